// Package dir implements the directory table: MAXENTRYNUM fixed-size
// entries packed into a directory's single data block.
//
// A Table works on a private copy of the block. Callers read the block,
// wrap it, mutate, and write Block() back; serializing that sequence per
// directory is up to them (see lockmap).
package dir

import (
	"fmt"

	"github.com/mit-pdos/nvmixfs/common"
	"github.com/mit-pdos/nvmixfs/util"
)

type Table struct {
	blk []byte
}

func MkTable(blk []byte) (*Table, error) {
	if uint64(len(blk)) != common.BLOCKSIZE {
		return nil, fmt.Errorf(
			"directory block of %d bytes: %w",
			len(blk),
			common.ErrCorruptState,
		)
	}
	return &Table{blk: blk}, nil
}

// MkEmptyTable returns a table with every slot free.
func MkEmptyTable() *Table {
	return &Table{blk: make([]byte, common.BLOCKSIZE)}
}

func (t *Table) Block() []byte {
	return t.blk
}

func slotOff(i uint64) uint64 {
	return i * common.DIRENTSZ
}

func (t *Table) get(i uint64) Dirent {
	off := slotOff(i)
	return decodeDirent(t.blk[off : off+common.DIRENTSZ])
}

func (t *Table) put(i uint64, de Dirent) {
	off := slotOff(i)
	copy(t.blk[off:off+common.DIRENTSZ], encodeDirent(de))
}

// Find scans every slot for an exact name match.
func (t *Table) Find(name string) (Dirent, bool) {
	for i := uint64(0); i < common.MAXENTRYNUM; i++ {
		de := t.get(i)
		if de.Inum == common.NULLINUM {
			continue
		}
		if de.Name == name {
			return de, true
		}
	}
	return Dirent{}, false
}

// Insert puts (name, inum) in the first free slot. It does not check for
// duplicates.
func (t *Table) Insert(name string, inum common.Inum) error {
	if err := ValidName(name); err != nil {
		return err
	}
	if inum == common.NULLINUM || uint64(inum) >= common.MAXINODENUM {
		return fmt.Errorf("linking `%s` to %d: %w", name, inum, common.ErrInvalidInum)
	}
	for i := uint64(0); i < common.MAXENTRYNUM; i++ {
		if t.get(i).Inum != common.NULLINUM {
			continue
		}
		t.put(i, Dirent{Name: name, Inum: inum})
		util.DPrintf(5, "dir: slot %d = %q -> %d\n", i, name, inum)
		return nil
	}
	return fmt.Errorf("linking `%s`: %w", name, common.ErrDirectoryFull)
}

// Remove clears the slot matching both name and inum, and reports
// whether there was one.
func (t *Table) Remove(name string, inum common.Inum) bool {
	for i := uint64(0); i < common.MAXENTRYNUM; i++ {
		de := t.get(i)
		if de.Inum == common.NULLINUM || de.Inum != inum || de.Name != name {
			continue
		}
		t.put(i, Dirent{})
		return true
	}
	return false
}

// Entries returns the occupied slots in slot order.
func (t *Table) Entries() []Dirent {
	var ents []Dirent
	c := t.Enumerate(0)
	for {
		_, de, ok := c.Next()
		if !ok {
			return ents
		}
		ents = append(ents, de)
	}
}

func (t *Table) IsEmpty() bool {
	_, _, ok := t.Enumerate(0).Next()
	return !ok
}

// Cursor walks the occupied slots from a starting position.
type Cursor struct {
	t   *Table
	pos uint64
}

// Enumerate starts a cursor at slot start. Resuming a listing from the
// position after the last one seen never repeats an entry.
func (t *Table) Enumerate(start uint64) *Cursor {
	return &Cursor{t: t, pos: start}
}

// Next returns the next occupied slot and its position, or ok == false
// when the table is exhausted.
func (c *Cursor) Next() (uint64, Dirent, bool) {
	for c.pos < common.MAXENTRYNUM {
		i := c.pos
		c.pos++
		de := c.t.get(i)
		if de.Inum != common.NULLINUM {
			return i, de, true
		}
	}
	return common.MAXENTRYNUM, Dirent{}, false
}

// Pos is where the next call to Next starts scanning.
func (c *Cursor) Pos() uint64 {
	return c.pos
}
