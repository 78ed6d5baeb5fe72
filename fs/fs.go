// Package fs ties the region-side metadata and the disk-side directory
// blocks into a file system: name lookup, creation and removal of files
// and directories, listing, and attributes.
//
// Creation claims and persists the bitmap bit and the inode record before
// the directory entry becomes visible, and removal drops the entry before
// releasing the bit. A crash between the two stores can therefore leak an
// inode but never leave an entry pointing at a free slot.
package fs

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/mit-pdos/nvmixfs/alloc"
	"github.com/mit-pdos/nvmixfs/buf"
	"github.com/mit-pdos/nvmixfs/common"
	"github.com/mit-pdos/nvmixfs/disk"
	"github.com/mit-pdos/nvmixfs/inode"
	"github.com/mit-pdos/nvmixfs/lockmap"
	"github.com/mit-pdos/nvmixfs/pmem"
	"github.com/mit-pdos/nvmixfs/super"
	"github.com/mit-pdos/nvmixfs/util"
)

// Cred is the identity a new inode is owned by.
type Cred struct {
	Uid uint32
	Gid uint32
}

type Fs struct {
	id      uuid.UUID
	region  pmem.Region
	super   *super.FsSuper
	version super.Version
	alloc   alloc.Allocator
	cache   *buf.Cache
	locks   *lockmap.LockMap // per-inode data block
	itab    *inode.Table
}

// Mount checks the region's magic before anything else and then verifies
// that the root is an allocated directory.
func Mount(region pmem.Region, d disk.Disk) (*Fs, error) {
	fsSuper := super.MkFsSuper(region)
	sb, err := fsSuper.LoadSuperblock()
	if err != nil {
		return nil, fmt.Errorf("mounting: %w", err)
	}
	nblocks, err := d.Size()
	if err != nil {
		return nil, fmt.Errorf("mounting: %w", err)
	}
	if nblocks < common.DataBlock(common.Inum(common.MAXINODENUM-1))+1 {
		return nil, fmt.Errorf(
			"mounting: disk has %d blocks, need %d: %w",
			nblocks,
			common.MAXINODENUM,
			common.ErrCorruptState,
		)
	}
	fs := &Fs{
		id:      uuid.New(),
		region:  region,
		super:   fsSuper,
		version: sb.Version,
		alloc:   alloc.MkAlloc(sb.Bitmap, common.MAXINODENUM, fsSuper.WriteBitmap),
		cache:   buf.MkCache(d),
		locks:   lockmap.MkLockMap(),
		itab:    inode.MkTable(),
	}
	if !fs.alloc.IsSet(common.ROOTINUM) {
		return nil, fmt.Errorf("mounting: root not allocated: %w", common.ErrCorruptState)
	}
	root, err := fs.getInode(common.ROOTINUM)
	if err != nil {
		return nil, fmt.Errorf("mounting: %w", err)
	}
	if !root.IsDir() {
		return nil, fmt.Errorf("mounting: root is %v: %w", root, common.ErrCorruptState)
	}
	util.DPrintf(0, "nvmixfs[%s]: mounted version %v, %d/%d inodes free\n",
		fs.id, sb.Version, fs.alloc.NumFree(), common.MAXINODENUM)
	return fs, nil
}

// Id identifies this mount in log lines.
func (fs *Fs) Id() uuid.UUID {
	return fs.id
}

func (fs *Fs) Version() super.Version {
	return fs.version
}

// Sync flushes dirty directory and data blocks.
func (fs *Fs) Sync() error {
	util.DPrintf(1, "nvmixfs[%s]: sync %d dirty blocks\n", fs.id, fs.cache.NDirty())
	if err := fs.cache.Sync(); err != nil {
		return fmt.Errorf("nvmixfs[%s]: %w", fs.id, err)
	}
	return nil
}

// Unmount flushes and releases both media. The Fs is unusable afterward.
func (fs *Fs) Unmount() error {
	if err := fs.Sync(); err != nil {
		return err
	}
	if err := fs.cache.Disk().Close(); err != nil {
		return fmt.Errorf("nvmixfs[%s]: closing disk: %w", fs.id, err)
	}
	if err := fs.region.Close(); err != nil {
		return fmt.Errorf("nvmixfs[%s]: closing region: %w", fs.id, err)
	}
	util.DPrintf(0, "nvmixfs[%s]: unmounted\n", fs.id)
	return nil
}

type Statfs struct {
	BlockSize  uint64
	Blocks     uint64
	BlocksFree uint64
	Files      uint64
	FilesFree  uint64
	NameLen    uint64
}

// Statfs counts one data block per inode, so blocks and files track
// each other.
func (fs *Fs) Statfs() Statfs {
	free := fs.alloc.NumFree()
	return Statfs{
		BlockSize:  common.BLOCKSIZE,
		Blocks:     common.MAXINODENUM,
		BlocksFree: free,
		Files:      common.MAXINODENUM,
		FilesFree:  free,
		NameLen:    common.MAXNAMELEN,
	}
}
