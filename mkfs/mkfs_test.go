package mkfs

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mit-pdos/nvmixfs/common"
	"github.com/mit-pdos/nvmixfs/dir"
	"github.com/mit-pdos/nvmixfs/disk"
	"github.com/mit-pdos/nvmixfs/pmem"
	"github.com/mit-pdos/nvmixfs/super"
)

func TestFormat(t *testing.T) {
	assert := assert.New(t)
	region := pmem.NewMemRegion(super.MinRegionSize())
	d := disk.NewMemDisk(common.MAXINODENUM)
	// stale data from an earlier file system
	junk := make(disk.Block, disk.BlockSize)
	for i := range junk {
		junk[i] = 0xff
	}
	require.NoError(t, d.Write(5, junk))

	require.NoError(t, Format(region, d, DefaultOptions()))
	region.Crash()

	fsSuper := super.MkFsSuper(region)
	sb, err := fsSuper.LoadSuperblock()
	require.NoError(t, err)
	assert.Equal(common.MAGIC, sb.Magic)
	assert.Equal(uint64(0x3), sb.Bitmap)
	assert.Equal(super.CurrentVersion(), sb.Version)

	ip, err := fsSuper.ReadInode(common.ROOTINUM)
	assert.NoError(err)
	assert.Equal(common.S_IFDIR|0755, ip.Mode)
	assert.Equal(uint16(common.FIRSTDATABLK), ip.DataBlock)
	assert.Equal(uint32(0), ip.Size)

	ip, err = fsSuper.ReadInode(BOOTSTRAPINUM)
	assert.NoError(err)
	assert.Equal(common.S_IFREG|0664, ip.Mode)
	assert.Equal(uint16(common.FIRSTDATABLK+1), ip.DataBlock)

	blk, err := d.Read(common.DataBlock(common.ROOTINUM))
	require.NoError(t, err)
	tbl, err := dir.MkTable(blk)
	require.NoError(t, err)
	assert.Equal([]dir.Dirent{{Name: BOOTSTRAPNAME, Inum: BOOTSTRAPINUM}}, tbl.Entries())

	blk, _ = d.Read(5)
	assert.Equal(make(disk.Block, disk.BlockSize), blk, "data blocks are zeroed")
}

func TestFormatOptions(t *testing.T) {
	region := pmem.NewMemRegion(super.MinRegionSize())
	d := disk.NewMemDisk(common.MAXINODENUM)
	opts := Options{BootstrapName: "lost+found", Version: super.Version{Major: 1, Minor: 2, Patch: 3}}
	require.NoError(t, Format(region, d, opts))

	sb, err := super.MkFsSuper(region).LoadSuperblock()
	require.NoError(t, err)
	assert.Equal(t, "1.2.3", sb.Version.String())
	blk, _ := d.Read(0)
	tbl, _ := dir.MkTable(blk)
	_, ok := tbl.Find("lost+found")
	assert.True(t, ok)
}

func TestFormatErrors(t *testing.T) {
	region := pmem.NewMemRegion(super.MinRegionSize())
	err := Format(region, disk.NewMemDisk(4), DefaultOptions())
	assert.True(t, errors.Is(err, common.ErrNoSpace))

	err = Format(pmem.NewMemRegion(100), disk.NewMemDisk(common.MAXINODENUM), DefaultOptions())
	assert.True(t, errors.Is(err, common.ErrNoSpace))

	opts := DefaultOptions()
	opts.BootstrapName = "a/b"
	err = Format(region, disk.NewMemDisk(common.MAXINODENUM), opts)
	assert.True(t, errors.Is(err, common.ErrInvalidName))

	d := disk.NewFaultDisk(disk.NewMemDisk(common.MAXINODENUM))
	d.SetFailWrites(true)
	err = Format(region, d, DefaultOptions())
	assert.True(t, errors.Is(err, common.ErrIO))
}
