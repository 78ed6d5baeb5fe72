// lockmap is a sharded map of directory locks.
//
// The API is as if LockMap held one exclusive lock for every inode number;
// Acquire(n) takes the lock guarding directory n's data block across a
// whole read-modify-write, and Release(n) drops it. Lock state is only
// materialized while a lock is held or waited for. Shard i keeps the state
// of every n with n % NSHARD == i.
package lockmap

import (
	"sync"

	"github.com/mit-pdos/nvmixfs/common"
)

type lockState struct {
	held    bool
	cond    *sync.Cond
	waiters uint64
}

type lockShard struct {
	mu    *sync.Mutex
	state map[common.Inum]*lockState
}

func mkLockShard() *lockShard {
	return &lockShard{
		mu:    new(sync.Mutex),
		state: make(map[common.Inum]*lockState),
	}
}

func (shard *lockShard) acquire(n common.Inum) {
	shard.mu.Lock()
	defer shard.mu.Unlock()
	state, ok := shard.state[n]
	if !ok {
		state = &lockState{cond: sync.NewCond(shard.mu)}
		shard.state[n] = state
	}
	for state.held {
		state.waiters += 1
		state.cond.Wait()
		state.waiters -= 1
	}
	state.held = true
}

func (shard *lockShard) release(n common.Inum) {
	shard.mu.Lock()
	defer shard.mu.Unlock()
	state, ok := shard.state[n]
	if !ok || !state.held {
		panic("lockmap: release of unheld lock")
	}
	state.held = false
	if state.waiters > 0 {
		state.cond.Signal()
	} else {
		delete(shard.state, n)
	}
}

func (shard *lockShard) held(n common.Inum) bool {
	shard.mu.Lock()
	defer shard.mu.Unlock()
	state, ok := shard.state[n]
	return ok && state.held
}

const NSHARD uint64 = 8

type LockMap struct {
	shards []*lockShard
}

func MkLockMap() *LockMap {
	shards := make([]*lockShard, NSHARD)
	for i := range shards {
		shards[i] = mkLockShard()
	}
	return &LockMap{shards: shards}
}

func (lmap *LockMap) shard(n common.Inum) *lockShard {
	return lmap.shards[uint64(n)%NSHARD]
}

func (lmap *LockMap) Acquire(n common.Inum) {
	lmap.shard(n).acquire(n)
}

func (lmap *LockMap) Release(n common.Inum) {
	lmap.shard(n).release(n)
}

// Held reports whether n is currently locked by anyone.
func (lmap *LockMap) Held(n common.Inum) bool {
	return lmap.shard(n).held(n)
}

// AcquirePair locks two directories in inode-number order, so that two
// callers locking the same pair cannot deadlock. a == b locks once.
func (lmap *LockMap) AcquirePair(a common.Inum, b common.Inum) {
	if a == b {
		lmap.Acquire(a)
		return
	}
	if b < a {
		a, b = b, a
	}
	lmap.Acquire(a)
	lmap.Acquire(b)
}

func (lmap *LockMap) ReleasePair(a common.Inum, b common.Inum) {
	lmap.Release(a)
	if a != b {
		lmap.Release(b)
	}
}
