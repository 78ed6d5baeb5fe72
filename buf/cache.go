package buf

import (
	"fmt"
	"sync"

	"github.com/mit-pdos/nvmixfs/common"
	"github.com/mit-pdos/nvmixfs/disk"
	"github.com/mit-pdos/nvmixfs/util"
)

// Cache is a write-back block cache in front of a disk.Disk.
//
// Callers always get a private copy of a block, mutate it, and hand it
// back with Write. Serializing the read-modify-write of one block is the
// caller's job; the cache only protects its own map.
type Cache struct {
	mu   *sync.Mutex
	d    disk.Disk
	bufs *BufMap
}

func MkCache(d disk.Disk) *Cache {
	return &Cache{
		mu:   new(sync.Mutex),
		d:    d,
		bufs: MkBufMap(),
	}
}

func (c *Cache) Disk() disk.Disk {
	return c.d
}

// Read returns a working copy of block blkno.
func (c *Cache) Read(blkno common.Bnum) (disk.Block, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b := c.bufs.Lookup(blkno)
	if b == nil {
		blk, err := c.d.Read(blkno)
		if err != nil {
			return nil, fmt.Errorf("reading block `%d`: %w", blkno, err)
		}
		b = MkBuf(blkno, blk)
		c.bufs.Insert(b)
	}
	return util.CloneByteSlice(b.Data), nil
}

// Write installs data as the new contents of blkno and marks it dirty.
func (c *Cache) Write(blkno common.Bnum, data disk.Block) error {
	if uint64(len(data)) != disk.BlockSize {
		return &common.IOError{
			Op:  "write",
			Off: blkno,
			Err: fmt.Errorf("data is not block-sized (%d bytes)", len(data)),
		}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	b := c.bufs.Lookup(blkno)
	if b == nil {
		b = MkBuf(blkno, util.CloneByteSlice(data))
		c.bufs.Insert(b)
	} else {
		copy(b.Data, data)
	}
	b.SetDirty()
	util.DPrintf(5, "%d: mark dirty\n", blkno)
	return nil
}

// NDirty counts the blocks a Sync would write back.
func (c *Cache) NDirty() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.bufs.Ndirty()
}

// Sync writes every dirty buffer back and issues a barrier. Buffers that
// failed to write stay dirty.
func (c *Cache) Sync() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	dirty := c.bufs.DirtyBufs()
	util.DPrintf(3, "sync: %d dirty bufs\n", len(dirty))
	for _, b := range dirty {
		if err := b.WriteDirect(c.d); err != nil {
			return fmt.Errorf("syncing block `%d`: %w", b.Blkno, err)
		}
	}
	if err := c.d.Barrier(); err != nil {
		return fmt.Errorf("syncing: %w", err)
	}
	return nil
}

// Flush writes blkno back if it is dirty and issues a barrier, leaving
// other dirty buffers alone.
func (c *Cache) Flush(blkno common.Bnum) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	b := c.bufs.Lookup(blkno)
	if b == nil || !b.IsDirty() {
		return nil
	}
	if err := b.WriteDirect(c.d); err != nil {
		return fmt.Errorf("flushing block `%d`: %w", blkno, err)
	}
	if err := c.d.Barrier(); err != nil {
		return fmt.Errorf("flushing block `%d`: %w", blkno, err)
	}
	return nil
}
