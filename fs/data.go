package fs

import (
	"fmt"

	"github.com/mit-pdos/nvmixfs/common"
	"github.com/mit-pdos/nvmixfs/inode"
	"github.com/mit-pdos/nvmixfs/util"
)

// fileInode returns inum's record if it is a regular file.
func (fs *Fs) fileInode(inum common.Inum) (inode.Inode, error) {
	ip, err := fs.getInode(inum)
	if err != nil {
		return inode.Inode{}, err
	}
	if ip.IsDir() {
		return inode.Inode{}, fmt.Errorf("inode `%d`: %w", inum, common.ErrIsDir)
	}
	return ip, nil
}

// ReadData copies file bytes starting at off into p and returns how many
// were copied; reading at or past the end returns 0.
func (fs *Fs) ReadData(inum common.Inum, off uint64, p []byte) (uint64, error) {
	if err := checkInum(inum); err != nil {
		return 0, fmt.Errorf("read: %w", err)
	}
	fs.locks.Acquire(inum)
	defer fs.locks.Release(inum)
	ip, err := fs.fileInode(inum)
	if err != nil {
		return 0, fmt.Errorf("read: %w", err)
	}
	size := util.Min(uint64(ip.Size), common.BLOCKSIZE)
	if off >= size {
		return 0, nil
	}
	blk, err := fs.cache.Read(common.DataBlock(inum))
	if err != nil {
		return 0, fmt.Errorf("read: %w", err)
	}
	n := copy(p, blk[off:size])
	fs.itab.Access(inum)
	return uint64(n), nil
}

// WriteData stores p at off, growing the file if needed. A file is one
// block long at most.
func (fs *Fs) WriteData(inum common.Inum, off uint64, p []byte) (uint64, error) {
	if err := checkInum(inum); err != nil {
		return 0, fmt.Errorf("write: %w", err)
	}
	n := uint64(len(p))
	if util.SumOverflows(off, n) || off+n > common.BLOCKSIZE {
		return 0, fmt.Errorf("write %d bytes at %d: %w", n, off, common.ErrTooLarge)
	}
	fs.locks.Acquire(inum)
	defer fs.locks.Release(inum)
	ip, err := fs.fileInode(inum)
	if err != nil {
		return 0, fmt.Errorf("write: %w", err)
	}
	bn := common.DataBlock(inum)
	blk, err := fs.cache.Read(bn)
	if err != nil {
		return 0, fmt.Errorf("write: %w", err)
	}
	copy(blk[off:], p)
	if err := fs.cache.Write(bn, blk); err != nil {
		return 0, fmt.Errorf("write: %w", err)
	}
	if off+n > uint64(ip.Size) {
		ip.Size = uint32(off + n)
		if err := fs.putInode(inum, ip); err != nil {
			return 0, fmt.Errorf("write: %w", err)
		}
	}
	fs.itab.Touch(inum)
	return n, nil
}
