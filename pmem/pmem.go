// Package pmem is the byte-addressable side of the persistence layer. The
// superblock and inode table live in a Region, which is read and written
// at byte granularity and made durable with an explicit Persist on the
// written range.
//
// Writes are synchronous and ordered: a Persist covers every WriteAt to
// the same range that returned before it, and nothing written after it.
package pmem

import (
	"fmt"

	"github.com/mit-pdos/nvmixfs/common"
)

type Region interface {
	// ReadAt returns a copy of n bytes starting at off.
	ReadAt(off uint64, n uint64) ([]byte, error)

	// WriteAt stores p at off. The store is visible to later reads but is
	// not durable until a Persist covering it returns.
	WriteAt(off uint64, p []byte) error

	// Persist flushes [off, off+n) to the medium and fences.
	Persist(off uint64, n uint64) error

	// Size reports the mapped size in bytes.
	Size() uint64

	// Close unmaps the region.
	Close() error
}

func checkRange(op string, off uint64, n uint64, size uint64) error {
	if off+n < off || off+n > size {
		return &common.IOError{
			Op:  op,
			Off: off,
			Err: fmt.Errorf("range of %d bytes out of bounds (%d bytes)", n, size),
		}
	}
	return nil
}
