package fs

import (
	"errors"
	"fmt"

	"github.com/mit-pdos/nvmixfs/common"
	"github.com/mit-pdos/nvmixfs/dir"
	"github.com/mit-pdos/nvmixfs/inode"
	"github.com/mit-pdos/nvmixfs/util"
)

func checkInum(inum common.Inum) error {
	if uint64(inum) >= common.MAXINODENUM {
		return fmt.Errorf("inode `%d`: %w", inum, common.ErrInvalidInum)
	}
	return nil
}

// getInode returns inum's record, from the side-table if it is cached.
func (fs *Fs) getInode(inum common.Inum) (inode.Inode, error) {
	if err := checkInum(inum); err != nil {
		return inode.Inode{}, err
	}
	if !fs.alloc.IsSet(inum) {
		return inode.Inode{}, fmt.Errorf("inode `%d` is free: %w", inum, common.ErrNotFound)
	}
	if ip, _, ok := fs.itab.Get(inum); ok {
		return ip, nil
	}
	ip, err := fs.super.ReadInode(inum)
	if err != nil {
		return inode.Inode{}, err
	}
	if common.Bnum(ip.DataBlock) != common.DataBlock(inum) {
		return inode.Inode{}, fmt.Errorf(
			"inode `%d` claims block %d: %w",
			inum,
			ip.DataBlock,
			common.ErrCorruptState,
		)
	}
	fs.itab.Load(inum, ip)
	return ip, nil
}

// putInode persists ip and then caches it.
func (fs *Fs) putInode(inum common.Inum, ip inode.Inode) error {
	if err := fs.super.WriteInode(inum, ip); err != nil {
		return err
	}
	fs.itab.Put(inum, ip)
	return nil
}

// readDir returns a working copy of dinum's table. The caller holds
// dinum's lock.
func (fs *Fs) readDir(dinum common.Inum) (*dir.Table, error) {
	ip, err := fs.getInode(dinum)
	if err != nil {
		return nil, err
	}
	if !ip.IsDir() {
		return nil, fmt.Errorf("inode `%d`: %w", dinum, common.ErrNotDir)
	}
	blk, err := fs.cache.Read(common.DataBlock(dinum))
	if err != nil {
		return nil, err
	}
	return dir.MkTable(blk)
}

func (fs *Fs) writeDir(dinum common.Inum, t *dir.Table) error {
	return fs.cache.Write(common.DataBlock(dinum), t.Block())
}

// lookupLocked finds name in parent's table and checks that the entry
// points at an allocated inode.
func (fs *Fs) lookupLocked(t *dir.Table, parent common.Inum, name string) (dir.Dirent, inode.Inode, error) {
	de, ok := t.Find(name)
	if !ok {
		return dir.Dirent{}, inode.Inode{}, fmt.Errorf(
			"`%s` in %d: %w", name, parent, common.ErrNotFound)
	}
	if !fs.alloc.IsSet(de.Inum) {
		return dir.Dirent{}, inode.Inode{}, fmt.Errorf(
			"`%s` in %d names free inode %d: %w",
			name,
			parent,
			de.Inum,
			common.ErrCorruptState,
		)
	}
	ip, err := fs.getInode(de.Inum)
	if err != nil {
		return dir.Dirent{}, inode.Inode{}, err
	}
	return de, ip, nil
}

// Lookup resolves name in parent. A missing name is reported as
// ErrNotFound, an entry pointing at a free inode as ErrCorruptState.
func (fs *Fs) Lookup(parent common.Inum, name string) (common.Inum, inode.Inode, error) {
	if err := checkInum(parent); err != nil {
		return 0, inode.Inode{}, err
	}
	fs.locks.Acquire(parent)
	defer fs.locks.Release(parent)
	t, err := fs.readDir(parent)
	if err != nil {
		return 0, inode.Inode{}, fmt.Errorf("lookup: %w", err)
	}
	de, ip, err := fs.lookupLocked(t, parent, name)
	if err != nil {
		return 0, inode.Inode{}, fmt.Errorf("lookup: %w", err)
	}
	fs.itab.Access(parent)
	util.DPrintf(1, "nvmixfs[%s]: lookup %d/%s -> %d\n", fs.id, parent, name, de.Inum)
	return de.Inum, ip, nil
}

// AllocateNode claims the lowest free inode number and persists a fresh
// record for it owned by cred. The node is not reachable until BindName
// links it. A mode without the directory type is made a regular file.
func (fs *Fs) AllocateNode(cred Cred, mode uint32) (common.Inum, error) {
	if mode&common.S_IFMT != common.S_IFDIR {
		mode = inode.MkMode(common.S_IFREG, mode)
	}
	inum, err := fs.alloc.ClaimFirstFree()
	if err != nil {
		return 0, fmt.Errorf("allocating node: %w", err)
	}
	fs.locks.Acquire(inum)
	err = fs.initNode(inum, cred, mode)
	fs.locks.Release(inum)
	if err != nil {
		if rerr := fs.releaseNode(inum); rerr != nil {
			return 0, fmt.Errorf("allocating node: %w (release: %v)", err, rerr)
		}
		return 0, fmt.Errorf("allocating node: %w", err)
	}
	util.DPrintf(1, "nvmixfs[%s]: allocated %d mode %#o\n", fs.id, inum, mode)
	return inum, nil
}

// initNode writes the record and clears whatever the block held for the
// previous owner of inum, so a new directory starts empty. The cleared
// block reaches the disk before any entry can name inum.
func (fs *Fs) initNode(inum common.Inum, cred Cred, mode uint32) error {
	ip := inode.MkInode(inum, mode, cred.Uid, cred.Gid)
	if err := fs.putInode(inum, ip); err != nil {
		return err
	}
	bn := common.DataBlock(inum)
	if err := fs.cache.Write(bn, dir.MkEmptyTable().Block()); err != nil {
		return err
	}
	return fs.cache.Flush(bn)
}

// releaseNode gives back a node that never got a name. If the bit cannot
// be cleared the inode leaks; the caller reports it.
func (fs *Fs) releaseNode(inum common.Inum) error {
	if err := fs.alloc.Release(inum); err != nil {
		util.DPrintf(0, "nvmixfs[%s]: leaking inode %d: %v\n", fs.id, inum, err)
		return err
	}
	fs.itab.Drop(inum)
	return nil
}

// BindName links an allocated node into parent under name. If the link
// cannot be made the node is released, so it is never left allocated but
// unreachable.
func (fs *Fs) BindName(parent common.Inum, inum common.Inum, name string) error {
	if err := checkInum(inum); err != nil {
		return fmt.Errorf("binding: %w", err)
	}
	if inum == common.ROOTINUM || !fs.alloc.IsSet(inum) {
		return fmt.Errorf("binding inode `%d`: %w", inum, common.ErrInvalidInum)
	}
	err := fs.bindName(parent, inum, name)
	if err != nil {
		if rerr := fs.releaseNode(inum); rerr != nil {
			return fmt.Errorf("binding `%s`: %w (release: %v)", name, err, rerr)
		}
		return fmt.Errorf("binding `%s`: %w", name, err)
	}
	return nil
}

func (fs *Fs) bindName(parent common.Inum, inum common.Inum, name string) error {
	if err := dir.ValidName(name); err != nil {
		return err
	}
	if err := checkInum(parent); err != nil {
		return err
	}
	fs.locks.Acquire(parent)
	defer fs.locks.Release(parent)
	t, err := fs.readDir(parent)
	if err != nil {
		return err
	}
	if _, ok := t.Find(name); ok {
		return fmt.Errorf("`%s` in %d: %w", name, parent, common.ErrExists)
	}
	if err := t.Insert(name, inum); err != nil {
		return err
	}
	if err := fs.writeDir(parent, t); err != nil {
		return err
	}
	fs.itab.Touch(parent)
	util.DPrintf(1, "nvmixfs[%s]: bound %d/%s -> %d\n", fs.id, parent, name, inum)
	return nil
}

func (fs *Fs) create(cred Cred, parent common.Inum, name string, mode uint32) (common.Inum, error) {
	if err := dir.ValidName(name); err != nil {
		return 0, err
	}
	inum, err := fs.AllocateNode(cred, mode)
	if err != nil {
		return 0, err
	}
	if err := fs.BindName(parent, inum, name); err != nil {
		return 0, err
	}
	return inum, nil
}

// Create makes a regular file with permission bits perm.
func (fs *Fs) Create(cred Cred, parent common.Inum, name string, perm uint32) (common.Inum, error) {
	return fs.create(cred, parent, name, inode.MkMode(common.S_IFREG, perm))
}

// Mkdir makes an empty directory with permission bits perm.
func (fs *Fs) Mkdir(cred Cred, parent common.Inum, name string, perm uint32) (common.Inum, error) {
	return fs.create(cred, parent, name, inode.MkMode(common.S_IFDIR, perm))
}

// Unlink removes a file's entry from parent and then frees the inode.
func (fs *Fs) Unlink(parent common.Inum, name string) error {
	if err := checkInum(parent); err != nil {
		return fmt.Errorf("unlink: %w", err)
	}
	fs.locks.Acquire(parent)
	defer fs.locks.Release(parent)
	t, err := fs.readDir(parent)
	if err != nil {
		return fmt.Errorf("unlink: %w", err)
	}
	de, ip, err := fs.lookupLocked(t, parent, name)
	if err != nil {
		return fmt.Errorf("unlink: %w", err)
	}
	if ip.IsDir() {
		return fmt.Errorf("unlink `%s`: %w", name, common.ErrIsDir)
	}
	if err := fs.removeEntry(t, parent, de); err != nil {
		return fmt.Errorf("unlink: %w", err)
	}
	return nil
}

// removeEntry drops de from parent's table and only then releases the
// inode. The removal reaches the disk before the bit is cleared, so a
// crash cannot leave the entry pointing at a free inode. The caller holds
// parent's lock.
func (fs *Fs) removeEntry(t *dir.Table, parent common.Inum, de dir.Dirent) error {
	t.Remove(de.Name, de.Inum)
	if err := fs.writeDir(parent, t); err != nil {
		return err
	}
	if err := fs.cache.Flush(common.DataBlock(parent)); err != nil {
		return err
	}
	if err := fs.alloc.Release(de.Inum); err != nil {
		return err
	}
	fs.itab.Drop(de.Inum)
	fs.itab.Touch(parent)
	util.DPrintf(1, "nvmixfs[%s]: removed %d/%s (%d)\n", fs.id, parent, de.Name, de.Inum)
	return nil
}

// Rmdir removes an empty directory. Parent and child are locked together
// in inode-number order.
func (fs *Fs) Rmdir(parent common.Inum, name string) error {
	if err := checkInum(parent); err != nil {
		return fmt.Errorf("rmdir: %w", err)
	}
	for {
		child, err := fs.findChild(parent, name)
		if err != nil {
			return fmt.Errorf("rmdir: %w", err)
		}
		done, err := fs.rmdirPair(parent, name, child)
		if err != nil {
			return fmt.Errorf("rmdir: %w", err)
		}
		if done {
			return nil
		}
		util.DPrintf(3, "nvmixfs[%s]: rmdir %d/%s raced, retrying\n", fs.id, parent, name)
	}
}

func (fs *Fs) findChild(parent common.Inum, name string) (common.Inum, error) {
	fs.locks.Acquire(parent)
	defer fs.locks.Release(parent)
	t, err := fs.readDir(parent)
	if err != nil {
		return 0, err
	}
	de, ip, err := fs.lookupLocked(t, parent, name)
	if err != nil {
		return 0, err
	}
	if !ip.IsDir() {
		return 0, fmt.Errorf("`%s`: %w", name, common.ErrNotDir)
	}
	return de.Inum, nil
}

// rmdirPair reports false if name no longer names child once both locks
// are held.
func (fs *Fs) rmdirPair(parent common.Inum, name string, child common.Inum) (bool, error) {
	fs.locks.AcquirePair(parent, child)
	defer fs.locks.ReleasePair(parent, child)
	t, err := fs.readDir(parent)
	if err != nil {
		return false, err
	}
	de, ip, err := fs.lookupLocked(t, parent, name)
	if errors.Is(err, common.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if de.Inum != child {
		return false, nil
	}
	if !ip.IsDir() {
		return false, fmt.Errorf("`%s`: %w", name, common.ErrNotDir)
	}
	ct, err := fs.readDir(child)
	if err != nil {
		return false, err
	}
	if !ct.IsEmpty() {
		return false, fmt.Errorf("`%s`: %w", name, common.ErrNotEmpty)
	}
	if err := fs.removeEntry(t, parent, de); err != nil {
		return false, err
	}
	return true, nil
}

// ReadInode returns the record of an allocated inode.
func (fs *Fs) ReadInode(inum common.Inum) (inode.Inode, error) {
	ip, err := fs.getInode(inum)
	if err != nil {
		return inode.Inode{}, fmt.Errorf("reading inode: %w", err)
	}
	return ip, nil
}

// WriteInode updates permissions, owner and size. The file type and the
// data block are fixed by allocation and kept as they are.
func (fs *Fs) WriteInode(inum common.Inum, ip inode.Inode) error {
	if err := checkInum(inum); err != nil {
		return fmt.Errorf("writing inode: %w", err)
	}
	fs.locks.Acquire(inum)
	defer fs.locks.Release(inum)
	cur, err := fs.getInode(inum)
	if err != nil {
		return fmt.Errorf("writing inode: %w", err)
	}
	if uint64(ip.Size) > common.BLOCKSIZE {
		return fmt.Errorf("writing inode `%d` size %d: %w", inum, ip.Size, common.ErrTooLarge)
	}
	ip.Mode = cur.Mode&common.S_IFMT | ip.Mode&common.PERMMASK
	ip.DataBlock = cur.DataBlock
	if err := fs.putInode(inum, ip); err != nil {
		return fmt.Errorf("writing inode: %w", err)
	}
	fs.itab.Change(inum)
	return nil
}
