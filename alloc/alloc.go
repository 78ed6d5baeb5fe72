package alloc

import (
	"fmt"
	"math/bits"
	"sync"

	"github.com/mit-pdos/nvmixfs/common"
	"github.com/mit-pdos/nvmixfs/util"
)

// Allocator hands out inode numbers.
type Allocator interface {
	ClaimFirstFree() (common.Inum, error)
	Release(n common.Inum) error
	IsSet(n common.Inum) bool
	NumFree() uint64
	Bitmap() uint64
}

var _ Allocator = (*Alloc)(nil)

// Alloc is the inode bitmap kept in the superblock. Bit i set means inode
// i is allocated. Every change is persisted before the lock is dropped, so
// the durable bitmap changes in the same order callers observe.
type Alloc struct {
	lock    *sync.Mutex // protects bitmap
	bitmap  uint64
	max     uint64
	persist func(bitmap uint64) error
}

func MkAlloc(bitmap uint64, max uint64, persist func(uint64) error) *Alloc {
	if max > 64 {
		panic("MkAlloc")
	}
	a := &Alloc{
		lock:    new(sync.Mutex),
		bitmap:  bitmap,
		max:     max,
		persist: persist,
	}
	return a
}

func (a *Alloc) valid(n common.Inum) bool {
	return uint64(n) < a.max
}

// findFreeBit returns the lowest clear bit. Assumes caller holds lock.
func (a *Alloc) findFreeBit() (uint64, bool) {
	for n := uint64(0); n < a.max; n++ {
		if a.bitmap&(1<<n) == 0 {
			return n, true
		}
	}
	return 0, false
}

// ClaimFirstFree sets and returns the lowest clear bit. It fails with
// ErrNoSpace, leaving the bitmap alone, when every bit is set.
func (a *Alloc) ClaimFirstFree() (common.Inum, error) {
	a.lock.Lock()
	defer a.lock.Unlock()
	n, ok := a.findFreeBit()
	if !ok {
		return 0, common.ErrNoSpace
	}
	old := a.bitmap
	a.bitmap = old | (1 << n)
	if err := a.persist(a.bitmap); err != nil {
		a.bitmap = old
		return 0, fmt.Errorf("claiming inode `%d`: %w", n, err)
	}
	util.DPrintf(5, "claim: %d bitmap %#x\n", n, a.bitmap)
	return common.Inum(n), nil
}

// Release clears bit n. The caller guarantees nothing references n.
func (a *Alloc) Release(n common.Inum) error {
	if n == common.ROOTINUM || !a.valid(n) {
		return fmt.Errorf("releasing inode `%d`: %w", n, common.ErrInvalidInum)
	}
	a.lock.Lock()
	defer a.lock.Unlock()
	old := a.bitmap
	a.bitmap = old & ^(1 << uint64(n))
	if a.bitmap == old {
		return nil
	}
	if err := a.persist(a.bitmap); err != nil {
		a.bitmap = old
		return fmt.Errorf("releasing inode `%d`: %w", n, err)
	}
	util.DPrintf(5, "release: %d bitmap %#x\n", n, a.bitmap)
	return nil
}

func (a *Alloc) IsSet(n common.Inum) bool {
	if !a.valid(n) {
		return false
	}
	a.lock.Lock()
	defer a.lock.Unlock()
	return a.bitmap&(1<<uint64(n)) != 0
}

func popCnt(b uint64) uint64 {
	return uint64(bits.OnesCount64(b))
}

func (a *Alloc) NumFree() uint64 {
	a.lock.Lock()
	defer a.lock.Unlock()
	mask := uint64(1<<a.max - 1)
	if a.max == 64 {
		mask = ^uint64(0)
	}
	return a.max - popCnt(a.bitmap&mask)
}

func (a *Alloc) Bitmap() uint64 {
	a.lock.Lock()
	defer a.lock.Unlock()
	return a.bitmap
}
