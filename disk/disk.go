// Package disk is the block-device side of the persistence layer: the
// directory and data blocks live here, one 4096-byte logical block per
// inode.
package disk

import (
	"github.com/mit-pdos/nvmixfs/common"
)

// Block is a 4096-byte buffer
type Block = []byte

const BlockSize uint64 = common.BLOCKSIZE

// Disk provides access to a logical block-based disk
type Disk interface {
	// Read reads a disk block by address
	//
	// Expects a < Size().
	Read(a uint64) (Block, error)

	// ReadTo reads the disk block at a and stores the result in b
	//
	// Expects a < Size().
	ReadTo(a uint64, b Block) error

	// Write updates a disk block by address
	//
	// Expects a < Size().
	Write(a uint64, v Block) error

	// Size reports how big the disk is, in blocks
	Size() (uint64, error)

	// Barrier ensures data is persisted.
	//
	// When it returns, all outstanding writes are guaranteed to be durably on
	// disk
	Barrier() error

	// Close releases any resources used by the disk and makes it unusable.
	Close() error
}

func ioErr(op string, a uint64, err error) error {
	return &common.IOError{Op: op, Off: a, Err: err}
}
