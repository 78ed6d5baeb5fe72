package fs

import (
	"fmt"
	"time"

	"github.com/mit-pdos/nvmixfs/common"
	"github.com/mit-pdos/nvmixfs/dir"
	"github.com/mit-pdos/nvmixfs/util"
)

type Attr struct {
	Inum   common.Inum
	Mode   uint32
	Uid    uint32
	Gid    uint32
	Size   uint64
	Nlink  uint32
	Blocks uint64 // 512-byte units
	Atime  time.Time
	Mtime  time.Time
	Ctime  time.Time
}

func (a Attr) IsDir() bool {
	return a.Mode&common.S_IFMT == common.S_IFDIR
}

// Getattr reports inum's attributes. A directory's link count is its own
// entry and "." plus one ".." per child directory.
func (fs *Fs) Getattr(inum common.Inum) (Attr, error) {
	if err := checkInum(inum); err != nil {
		return Attr{}, fmt.Errorf("getattr: %w", err)
	}
	fs.locks.Acquire(inum)
	defer fs.locks.Release(inum)
	ip, err := fs.getInode(inum)
	if err != nil {
		return Attr{}, fmt.Errorf("getattr: %w", err)
	}
	nlink := uint32(1)
	if ip.IsDir() {
		t, err := fs.readDir(inum)
		if err != nil {
			return Attr{}, fmt.Errorf("getattr: %w", err)
		}
		nlink = 2
		for _, de := range t.Entries() {
			child, err := fs.getInode(de.Inum)
			if err != nil {
				return Attr{}, fmt.Errorf("getattr: entry `%s`: %w", de.Name, err)
			}
			if child.IsDir() {
				nlink++
			}
		}
	}
	_, times, _ := fs.itab.Get(inum)
	return Attr{
		Inum:   inum,
		Mode:   ip.Mode,
		Uid:    ip.Uid,
		Gid:    ip.Gid,
		Size:   uint64(ip.Size),
		Nlink:  nlink,
		Blocks: util.BlocksFor(uint64(ip.Size)),
		Atime:  times.Atime,
		Mtime:  times.Mtime,
		Ctime:  times.Ctime,
	}, nil
}

// ReadDir calls emit for each entry of parent from slot pos on, and stops
// early when emit returns false. It returns the position to resume from;
// the refused entry is emitted again on resume. A finished listing
// returns MAXENTRYNUM.
func (fs *Fs) ReadDir(parent common.Inum, pos uint64, emit func(pos uint64, de dir.Dirent) bool) (uint64, error) {
	if err := checkInum(parent); err != nil {
		return pos, fmt.Errorf("readdir: %w", err)
	}
	fs.locks.Acquire(parent)
	defer fs.locks.Release(parent)
	t, err := fs.readDir(parent)
	if err != nil {
		return pos, fmt.Errorf("readdir: %w", err)
	}
	fs.itab.Access(parent)
	c := t.Enumerate(pos)
	for {
		i, de, ok := c.Next()
		if !ok {
			return i, nil
		}
		if !emit(i, de) {
			return i, nil
		}
	}
}
