package pmem

import (
	"sync"

	"github.com/mit-pdos/nvmixfs/util"
)

var _ Region = (*MemRegion)(nil)

// MemRegion is a Region backed by two byte slices: the volatile view that
// reads and writes see, and the durable image that only Persist updates.
// Crash() throws away everything that was not persisted.
type MemRegion struct {
	mu       sync.RWMutex
	volatile []byte
	durable  []byte
	persists uint64
}

func NewMemRegion(size uint64) *MemRegion {
	return &MemRegion{
		volatile: make([]byte, size),
		durable:  make([]byte, size),
	}
}

func (r *MemRegion) ReadAt(off uint64, n uint64) ([]byte, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if err := checkRange("pmem read", off, n, uint64(len(r.volatile))); err != nil {
		return nil, err
	}
	return util.CloneByteSlice(r.volatile[off : off+n]), nil
}

func (r *MemRegion) WriteAt(off uint64, p []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := checkRange("pmem write", off, uint64(len(p)), uint64(len(r.volatile))); err != nil {
		return err
	}
	copy(r.volatile[off:], p)
	return nil
}

func (r *MemRegion) Persist(off uint64, n uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := checkRange("pmem persist", off, n, uint64(len(r.volatile))); err != nil {
		return err
	}
	copy(r.durable[off:off+n], r.volatile[off:off+n])
	r.persists++
	return nil
}

func (r *MemRegion) Size() uint64 {
	return uint64(len(r.volatile))
}

func (r *MemRegion) Close() error { return nil }

// Persists reports how many Persist calls succeeded.
func (r *MemRegion) Persists() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.persists
}

// Crash resets the volatile view to the durable image.
func (r *MemRegion) Crash() {
	r.mu.Lock()
	defer r.mu.Unlock()
	copy(r.volatile, r.durable)
}
