package disk

import (
	"fmt"

	gdisk "github.com/tchajed/goose/machine/disk"
)

var _ Disk = gooseDisk{}

// gooseDisk adapts a goose machine disk, which reports failures by
// panicking, to the error-returning Disk interface.
type gooseDisk struct {
	d gdisk.Disk
}

// FromGoose wraps a goose disk; out-of-range accesses come back as
// IOError instead of panics.
func FromGoose(d gdisk.Disk) Disk {
	return gooseDisk{d: d}
}

func recovered(op string, a uint64, err *error) {
	if r := recover(); r != nil {
		*err = ioErr(op, a, fmt.Errorf("%v", r))
	}
}

func (g gooseDisk) Read(a uint64) (Block, error) {
	blk := make(Block, BlockSize)
	err := g.ReadTo(a, blk)
	return blk, err
}

// ReadTo copies out of the goose block, so callers never alias it.
func (g gooseDisk) ReadTo(a uint64, b Block) (err error) {
	if uint64(len(b)) != BlockSize {
		return ioErr("read", a, fmt.Errorf("buffer is not block-sized (%d bytes)", len(b)))
	}
	defer recovered("read", a, &err)
	copy(b, g.d.Read(a))
	return nil
}

func (g gooseDisk) Write(a uint64, v Block) (err error) {
	if uint64(len(v)) != BlockSize {
		return ioErr("write", a, fmt.Errorf("v is not block-sized (%d bytes)", len(v)))
	}
	defer recovered("write", a, &err)
	g.d.Write(a, v)
	return nil
}

func (g gooseDisk) Size() (sz uint64, err error) {
	defer recovered("size", 0, &err)
	return g.d.Size(), nil
}

func (g gooseDisk) Barrier() (err error) {
	defer recovered("barrier", 0, &err)
	g.d.Barrier()
	return nil
}

func (g gooseDisk) Close() (err error) {
	defer recovered("close", 0, &err)
	g.d.Close()
	return nil
}
