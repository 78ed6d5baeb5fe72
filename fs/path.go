package fs

import (
	"fmt"
	"strings"

	"github.com/mit-pdos/nvmixfs/common"
)

func splitPath(path string) []string {
	var names []string
	for _, name := range strings.Split(path, "/") {
		if name == "" || name == "." {
			continue
		}
		names = append(names, name)
	}
	return names
}

// Resolve walks a slash-separated path from the root. Empty components
// and "." are skipped; there is no "..".
func (fs *Fs) Resolve(path string) (common.Inum, error) {
	inum := common.ROOTINUM
	for _, name := range splitPath(path) {
		next, _, err := fs.Lookup(inum, name)
		if err != nil {
			return 0, fmt.Errorf("resolving `%s`: %w", path, err)
		}
		inum = next
	}
	return inum, nil
}

// ResolveParent returns the directory that holds the last component of
// path, and that component.
func (fs *Fs) ResolveParent(path string) (common.Inum, string, error) {
	names := splitPath(path)
	if len(names) == 0 {
		return 0, "", fmt.Errorf("resolving `%s`: no parent: %w", path, common.ErrInvalidName)
	}
	parent, err := fs.Resolve(strings.Join(names[:len(names)-1], "/"))
	if err != nil {
		return 0, "", err
	}
	return parent, names[len(names)-1], nil
}
