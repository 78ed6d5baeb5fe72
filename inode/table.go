package inode

import (
	"sync"
	"time"

	"github.com/mit-pdos/nvmixfs/common"
)

// Attr is the part of an inode that only exists in memory.
type Attr struct {
	Atime time.Time
	Mtime time.Time
	Ctime time.Time
}

type slot struct {
	live bool
	ip   Inode
	attr Attr
}

// Table maps inode numbers to their cached record and attributes. It is
// indexed by number; nothing points back into a host object.
type Table struct {
	mu    *sync.Mutex
	slots []slot
	now   func() time.Time
}

func MkTable() *Table {
	return &Table{
		mu:    new(sync.Mutex),
		slots: make([]slot, common.MAXINODENUM),
		now:   time.Now,
	}
}

// SetClock replaces the time source.
func (t *Table) SetClock(now func() time.Time) {
	t.mu.Lock()
	t.now = now
	t.mu.Unlock()
}

func (t *Table) Get(inum common.Inum) (Inode, Attr, bool) {
	if uint64(inum) >= common.MAXINODENUM {
		return Inode{}, Attr{}, false
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	s := t.slots[inum]
	return s.ip, s.attr, s.live
}

// Load caches a record read from the region. All times start at the load
// time, since the region does not store them.
func (t *Table) Load(inum common.Inum, ip Inode) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s := &t.slots[inum]
	if s.live {
		s.ip = ip
		return
	}
	now := t.now()
	*s = slot{live: true, ip: ip, attr: Attr{Atime: now, Mtime: now, Ctime: now}}
}

// Put caches a record just written to the region. A fresh slot gets every
// time set to now; a live one keeps its times, and the caller bumps the
// ones its change calls for.
func (t *Table) Put(inum common.Inum, ip Inode) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s := &t.slots[inum]
	if !s.live {
		now := t.now()
		s.attr = Attr{Atime: now, Mtime: now, Ctime: now}
	}
	s.live = true
	s.ip = ip
}

// Touch marks inum modified (mtime and ctime).
func (t *Table) Touch(inum common.Inum) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s := &t.slots[inum]
	if !s.live {
		return
	}
	now := t.now()
	s.attr.Mtime = now
	s.attr.Ctime = now
}

// Change marks inum's metadata changed (ctime only).
func (t *Table) Change(inum common.Inum) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s := &t.slots[inum]
	if s.live {
		s.attr.Ctime = t.now()
	}
}

func (t *Table) Access(inum common.Inum) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s := &t.slots[inum]
	if s.live {
		s.attr.Atime = t.now()
	}
}

// Drop forgets inum after it has been freed.
func (t *Table) Drop(inum common.Inum) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.slots[inum] = slot{}
}
