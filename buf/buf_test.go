package buf

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mit-pdos/nvmixfs/common"
	"github.com/mit-pdos/nvmixfs/disk"
)

func fill(b byte) disk.Block {
	blk := make(disk.Block, disk.BlockSize)
	for i := range blk {
		blk[i] = b
	}
	return blk
}

func TestBufMapDirtyOrder(t *testing.T) {
	assert := assert.New(t)
	m := MkBufMap()
	for _, bn := range []common.Bnum{7, 2, 5} {
		b := MkBuf(bn, fill(0))
		b.SetDirty()
		m.Insert(b)
	}
	m.Insert(MkBuf(3, fill(0)))
	assert.Equal(uint64(3), m.Ndirty())

	var order []common.Bnum
	for _, b := range m.DirtyBufs() {
		order = append(order, b.Blkno)
	}
	assert.Equal([]common.Bnum{2, 5, 7}, order)
	assert.Nil(m.Lookup(4))
}

func TestCacheDefersWrites(t *testing.T) {
	assert := assert.New(t)
	d := disk.NewFaultDisk(disk.NewMemDisk(4))
	c := MkCache(d)

	blk, err := c.Read(1)
	require.NoError(t, err)
	blk[0] = 0x42
	b2, _ := c.Read(1)
	assert.Equal(byte(0), b2[0], "working copies are private")

	require.NoError(t, c.Write(1, blk))
	assert.Equal(uint64(1), c.NDirty())
	assert.Equal(uint64(0), d.Writes(), "write is deferred")

	b2, _ = c.Read(1)
	assert.Equal(byte(0x42), b2[0], "cache serves the dirty copy")

	require.NoError(t, c.Sync())
	assert.Equal(uint64(0), c.NDirty())
	assert.Equal(uint64(1), d.Writes())

	ondisk, _ := d.Read(1)
	assert.Equal(byte(0x42), ondisk[0])
}

func TestCacheSyncError(t *testing.T) {
	assert := assert.New(t)
	d := disk.NewFaultDisk(disk.NewMemDisk(4))
	c := MkCache(d)
	require.NoError(t, c.Write(2, fill(1)))

	d.SetFailWrites(true)
	err := c.Sync()
	assert.True(errors.Is(err, common.ErrIO))
	assert.Equal(uint64(1), c.NDirty(), "failed writeback stays dirty")

	d.SetFailWrites(false)
	assert.NoError(c.Sync())
	assert.Equal(uint64(0), c.NDirty())
}

func TestCacheReadError(t *testing.T) {
	d := disk.NewFaultDisk(disk.NewMemDisk(4))
	d.SetFailReads(true)
	_, err := MkCache(d).Read(0)
	assert.True(t, errors.Is(err, common.ErrIO))
}

func TestCacheRejectsShortBlock(t *testing.T) {
	c := MkCache(disk.NewMemDisk(4))
	err := c.Write(0, make(disk.Block, 12))
	assert.True(t, errors.Is(err, common.ErrIO))
}

func TestCacheFlushOne(t *testing.T) {
	assert := assert.New(t)
	d := disk.NewFaultDisk(disk.NewMemDisk(4))
	c := MkCache(d)
	require.NoError(t, c.Write(1, fill(1)))
	require.NoError(t, c.Write(3, fill(3)))

	require.NoError(t, c.Flush(3))
	assert.Equal(uint64(1), d.Writes())
	assert.Equal(uint64(1), c.NDirty())
	ondisk, _ := d.Read(3)
	assert.Equal(fill(3), ondisk)

	require.NoError(t, c.Flush(3))
	require.NoError(t, c.Flush(2))
	assert.Equal(uint64(1), d.Writes(), "clean and absent blocks are not written")
}
