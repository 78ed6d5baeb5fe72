// Package mkfs lays down a fresh file system: a superblock and inode
// table in the region, and zeroed data blocks on the disk with the root
// directory holding one bootstrap file.
package mkfs

import (
	"fmt"

	"github.com/mit-pdos/nvmixfs/common"
	"github.com/mit-pdos/nvmixfs/dir"
	"github.com/mit-pdos/nvmixfs/disk"
	"github.com/mit-pdos/nvmixfs/inode"
	"github.com/mit-pdos/nvmixfs/pmem"
	"github.com/mit-pdos/nvmixfs/super"
	"github.com/mit-pdos/nvmixfs/util"
)

const (
	BOOTSTRAPNAME = "reserved.txt"
	BOOTSTRAPINUM = common.Inum(1)
)

type Options struct {
	BootstrapName string
	Version       super.Version
}

func DefaultOptions() Options {
	return Options{
		BootstrapName: BOOTSTRAPNAME,
		Version:       super.CurrentVersion(),
	}
}

// Format overwrites region and d. The region is persisted before the
// disk is touched, and the disk gets a barrier at the end.
func Format(region pmem.Region, d disk.Disk, opts Options) error {
	if err := dir.ValidName(opts.BootstrapName); err != nil {
		return fmt.Errorf("formatting: %w", err)
	}
	nblocks, err := d.Size()
	if err != nil {
		return fmt.Errorf("formatting: %w", err)
	}
	if nblocks < common.MAXINODENUM {
		return fmt.Errorf(
			"formatting: disk has %d blocks, need %d: %w",
			nblocks,
			common.MAXINODENUM,
			common.ErrNoSpace,
		)
	}
	fsSuper := super.MkFsSuper(region)
	if region.Size() < super.MinRegionSize() {
		return fmt.Errorf(
			"formatting: region of %d bytes is smaller than %d: %w",
			region.Size(),
			super.MinRegionSize(),
			common.ErrNoSpace,
		)
	}

	sb := super.Superblock{
		Magic:   common.MAGIC,
		Bitmap:  1<<uint64(common.ROOTINUM) | 1<<uint64(BOOTSTRAPINUM),
		Version: opts.Version,
	}
	if err := fsSuper.WriteSuperblock(sb); err != nil {
		return fmt.Errorf("formatting: %w", err)
	}
	for n := uint64(0); n < common.MAXINODENUM; n++ {
		inum := common.Inum(n)
		var ip inode.Inode
		switch inum {
		case common.ROOTINUM:
			ip = inode.MkInode(inum, common.S_IFDIR|0755, 0, 0)
		case BOOTSTRAPINUM:
			ip = inode.MkInode(inum, common.S_IFREG|0664, 0, 0)
		}
		if err := fsSuper.WriteInode(inum, ip); err != nil {
			return fmt.Errorf("formatting: %w", err)
		}
	}

	zero := make(disk.Block, disk.BlockSize)
	for n := uint64(0); n < common.MAXINODENUM; n++ {
		bn := common.DataBlock(common.Inum(n))
		if err := d.Write(bn, zero); err != nil {
			return fmt.Errorf("formatting: zeroing block `%d`: %w", bn, err)
		}
	}
	root := dir.MkEmptyTable()
	if err := root.Insert(opts.BootstrapName, BOOTSTRAPINUM); err != nil {
		return fmt.Errorf("formatting: %w", err)
	}
	if err := d.Write(common.DataBlock(common.ROOTINUM), root.Block()); err != nil {
		return fmt.Errorf("formatting: root directory: %w", err)
	}
	if err := d.Barrier(); err != nil {
		return fmt.Errorf("formatting: %w", err)
	}
	util.DPrintf(0, "mkfs: version %v, %d inodes, bootstrap %q\n",
		opts.Version, common.MAXINODENUM, opts.BootstrapName)
	return nil
}
