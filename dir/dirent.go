package dir

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/tchajed/marshal"

	"github.com/mit-pdos/nvmixfs/common"
)

// Dirent is one 24-byte slot of a directory block: a 16-byte name
// followed by the inode number. Inum 0 marks a free slot.
type Dirent struct {
	Name string
	Inum common.Inum
}

func (de Dirent) String() string {
	return fmt.Sprintf("%q -> %d", de.Name, de.Inum)
}

// ValidName rejects names the directory block cannot hold faithfully.
func ValidName(name string) error {
	if len(name) == 0 {
		return fmt.Errorf("empty name: %w", common.ErrInvalidName)
	}
	if uint64(len(name)) > common.MAXNAMELEN {
		return fmt.Errorf(
			"name `%s` longer than %d bytes: %w",
			name,
			common.MAXNAMELEN,
			common.ErrInvalidName,
		)
	}
	if strings.ContainsAny(name, "/\x00") {
		return fmt.Errorf("name %q has '/' or NUL: %w", name, common.ErrInvalidName)
	}
	return nil
}

func encodeDirent(de Dirent) []byte {
	b := make([]byte, common.DIRENTSZ)
	copy(b[:common.MAXNAMELEN], de.Name)
	enc := marshal.NewEnc(8)
	enc.PutInt(uint64(de.Inum))
	copy(b[common.MAXNAMELEN:], enc.Finish())
	return b
}

// decodeDirent reads a slot. A name filling all 16 bytes has no NUL.
func decodeDirent(b []byte) Dirent {
	name := b[:common.MAXNAMELEN]
	if i := bytes.IndexByte(name, 0); i >= 0 {
		name = name[:i]
	}
	dec := marshal.NewDec(b[common.MAXNAMELEN:common.DIRENTSZ])
	return Dirent{Name: string(name), Inum: common.Inum(dec.GetInt())}
}
