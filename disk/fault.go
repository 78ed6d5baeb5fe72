package disk

import (
	"errors"
	"sync"
)

var errInjected = errors.New("injected fault")

// FaultDisk wraps a Disk and fails operations on request. Tests use it to
// check that medium errors are surfaced rather than retried.
type FaultDisk struct {
	Disk
	mu         sync.Mutex
	failReads  bool
	failWrites bool
	writes     uint64
}

func NewFaultDisk(d Disk) *FaultDisk {
	return &FaultDisk{Disk: d}
}

func (d *FaultDisk) SetFailReads(fail bool) {
	d.mu.Lock()
	d.failReads = fail
	d.mu.Unlock()
}

func (d *FaultDisk) SetFailWrites(fail bool) {
	d.mu.Lock()
	d.failWrites = fail
	d.mu.Unlock()
}

// Writes reports how many writes reached the underlying disk.
func (d *FaultDisk) Writes() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.writes
}

func (d *FaultDisk) Read(a uint64) (Block, error) {
	buf := make(Block, BlockSize)
	err := d.ReadTo(a, buf)
	return buf, err
}

func (d *FaultDisk) ReadTo(a uint64, b Block) error {
	d.mu.Lock()
	fail := d.failReads
	d.mu.Unlock()
	if fail {
		return ioErr("read", a, errInjected)
	}
	return d.Disk.ReadTo(a, b)
}

func (d *FaultDisk) Write(a uint64, v Block) error {
	d.mu.Lock()
	fail := d.failWrites
	if !fail {
		d.writes++
	}
	d.mu.Unlock()
	if fail {
		return ioErr("write", a, errInjected)
	}
	return d.Disk.Write(a, v)
}

func (d *FaultDisk) Barrier() error {
	d.mu.Lock()
	fail := d.failWrites
	d.mu.Unlock()
	if fail {
		return ioErr("barrier", 0, errInjected)
	}
	return d.Disk.Barrier()
}
