package common

import (
	"github.com/tchajed/goose/machine/disk"
)

const (
	BLOCKSIZE uint64 = disk.BlockSize

	MAXINODENUM uint64 = 32 // bits of the superblock bitmap in use
	MAXENTRYNUM uint64 = 32 // directory entries per directory block
	MAXNAMELEN  uint64 = 16

	SUPERSZ  uint64 = 24 // on-region size of the superblock
	INODESZ  uint64 = 20 // on-region size of an inode record
	DIRENTSZ uint64 = 24 // on-disk size of a directory entry

	SUPERBLK uint64 = 0 // region block holding the superblock
	INODEBLK uint64 = 1 // region block holding the inode table

	FIRSTDATABLK Bnum = 0 // first directory/data block on the disk

	// MAGIC is "nvmix" in ASCII.
	MAGIC uint64 = 0x6E766D6978
)

// Version of the on-region format written by mkfs.
const (
	VERSIONMAJOR uint8 = 0
	VERSIONMINOR uint8 = 1
	VERSIONPATCH uint8 = 0
)

// Inode mode bits, as in stat(2).
const (
	S_IFMT  uint32 = 0170000
	S_IFDIR uint32 = 0040000
	S_IFREG uint32 = 0100000

	PERMMASK uint32 = 07777
)

type Inum uint64
type Bnum = uint64

const (
	ROOTINUM Inum = 0

	// NULLINUM marks a free directory slot. It never names a directory
	// member because ROOTINUM has no parent.
	NULLINUM Inum = 0
)

// DataBlock returns the single data block owned by inum.
func DataBlock(inum Inum) Bnum {
	return FIRSTDATABLK + Bnum(inum)
}
