package disk

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gdisk "github.com/tchajed/goose/machine/disk"

	"github.com/mit-pdos/nvmixfs/common"
)

func block(b byte) Block {
	blk := make(Block, BlockSize)
	for i := range blk {
		blk[i] = b
	}
	return blk
}

func testReadWrite(t *testing.T, d Disk) {
	assert := assert.New(t)
	sz, err := d.Size()
	require.NoError(t, err)
	assert.Equal(uint64(8), sz)

	require.NoError(t, d.Write(3, block(0xab)))
	blk, err := d.Read(3)
	require.NoError(t, err)
	assert.Equal(block(0xab), blk)

	blk, err = d.Read(2)
	require.NoError(t, err)
	assert.Equal(block(0), blk, "unwritten block should be zero")

	buf := block(0xff)
	require.NoError(t, d.ReadTo(3, buf))
	assert.Equal(block(0xab), buf)
	buf[0] = 0
	blk, err = d.Read(3)
	require.NoError(t, err)
	assert.Equal(byte(0xab), blk[0], "ReadTo buffer must not alias the disk")
	err = d.ReadTo(8, buf)
	assert.True(errors.Is(err, common.ErrIO), "ReadTo past end")
	err = d.ReadTo(3, make(Block, 10))
	assert.True(errors.Is(err, common.ErrIO), "short ReadTo buffer")

	_, err = d.Read(8)
	assert.True(errors.Is(err, common.ErrIO), "read past end")
	err = d.Write(8, block(1))
	assert.True(errors.Is(err, common.ErrIO), "write past end")
	err = d.Write(1, make(Block, 10))
	assert.True(errors.Is(err, common.ErrIO), "short block")

	assert.NoError(d.Barrier())
}

func TestMemDisk(t *testing.T) {
	d := NewMemDisk(8)
	testReadWrite(t, d)
	assert.NoError(t, d.Close())
}

func TestFileDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "disk.img")
	d, err := NewFileDisk(path, 8)
	require.NoError(t, err)
	testReadWrite(t, d)
	require.NoError(t, d.Close())

	d, err = NewFileDisk(path, 8)
	require.NoError(t, err)
	defer d.Close()
	blk, err := d.Read(3)
	require.NoError(t, err)
	assert.Equal(t, block(0xab), blk, "contents should survive reopen")
}

func TestGooseDisk(t *testing.T) {
	gd := gdisk.NewMemDisk(8)
	d := FromGoose(gd)
	testReadWrite(t, d)

	gd.Write(5, block(0x5a))
	buf := make(Block, BlockSize)
	require.NoError(t, d.ReadTo(5, buf))
	assert.Equal(t, block(0x5a), buf, "ReadTo sees writes made through goose")
}

func TestFaultDisk(t *testing.T) {
	assert := assert.New(t)
	d := NewFaultDisk(NewMemDisk(4))
	assert.NoError(d.Write(0, block(1)))
	assert.Equal(uint64(1), d.Writes())

	d.SetFailWrites(true)
	assert.True(errors.Is(d.Write(0, block(2)), common.ErrIO))
	assert.True(errors.Is(d.Barrier(), common.ErrIO))
	assert.Equal(uint64(1), d.Writes())

	d.SetFailReads(true)
	_, err := d.Read(0)
	assert.True(errors.Is(err, common.ErrIO))

	d.SetFailReads(false)
	blk, err := d.Read(0)
	assert.NoError(err)
	assert.Equal(block(1), blk, "failed write should not land")
}
