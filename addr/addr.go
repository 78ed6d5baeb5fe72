package addr

import (
	"github.com/mit-pdos/nvmixfs/common"
)

// Addr identifies an object in the byte-addressable region.
//
// Blkno is the region block containing the object, Off is the location of
// the object within the block and Sz its size, both in bytes.
type Addr struct {
	Blkno common.Bnum
	Off   uint64
	Sz    uint64
}

// Flatid is the absolute byte offset of the object in the region.
func (a Addr) Flatid() uint64 {
	return uint64(a.Blkno)*common.BLOCKSIZE + a.Off
}

// End is one past the last byte of the object.
func (a Addr) End() uint64 {
	return a.Flatid() + a.Sz
}

func MkAddr(blkno common.Bnum, off uint64, sz uint64) Addr {
	return Addr{Blkno: blkno, Off: off, Sz: sz}
}

// SuperAddr is where the superblock lives.
func SuperAddr() Addr {
	return MkAddr(common.SUPERBLK, 0, common.SUPERSZ)
}

// InodeAddr is the slot of inode inum in the inode table.
func InodeAddr(inum common.Inum) Addr {
	return MkAddr(common.INODEBLK, uint64(inum)*common.INODESZ, common.INODESZ)
}
