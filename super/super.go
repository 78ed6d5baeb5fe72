// Package super is the metadata store: the superblock and the inode table,
// both kept in the byte-addressable region.
//
// Region layout:
//
//	block 0, offset 0     superblock (24 bytes)
//	block 1, offset 20*n  inode n (20 bytes), n < MAXINODENUM
package super

import (
	"fmt"

	"github.com/tchajed/marshal"

	"github.com/mit-pdos/nvmixfs/addr"
	"github.com/mit-pdos/nvmixfs/common"
	"github.com/mit-pdos/nvmixfs/inode"
	"github.com/mit-pdos/nvmixfs/pmem"
	"github.com/mit-pdos/nvmixfs/util"
)

type Version struct {
	Major uint8
	Minor uint8
	Patch uint8
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// CurrentVersion is the format version this package writes.
func CurrentVersion() Version {
	return Version{
		Major: common.VERSIONMAJOR,
		Minor: common.VERSIONMINOR,
		Patch: common.VERSIONPATCH,
	}
}

type Superblock struct {
	Magic   uint64
	Bitmap  uint64 // bit i set: inode i allocated
	Version Version
}

// Encode packs the version into the low three bytes of the third word;
// the remaining five bytes are padding.
func (sb Superblock) Encode() []byte {
	enc := marshal.NewEnc(common.SUPERSZ)
	enc.PutInt(sb.Magic)
	enc.PutInt(sb.Bitmap)
	enc.PutInt(uint64(sb.Version.Major) |
		uint64(sb.Version.Minor)<<8 |
		uint64(sb.Version.Patch)<<16)
	return enc.Finish()
}

func DecodeSuperblock(b []byte) Superblock {
	dec := marshal.NewDec(b)
	var sb Superblock
	sb.Magic = dec.GetInt()
	sb.Bitmap = dec.GetInt()
	v := dec.GetInt()
	sb.Version = Version{
		Major: uint8(v),
		Minor: uint8(v >> 8),
		Patch: uint8(v >> 16),
	}
	return sb
}

// FsSuper gives typed access to the region. It holds no locks: the
// allocator serializes superblock updates, and an inode slot is only
// written by the operation that owns that inode number.
type FsSuper struct {
	Region pmem.Region
}

func MkFsSuper(r pmem.Region) *FsSuper {
	return &FsSuper{Region: r}
}

// MinRegionSize is the smallest region that holds the superblock and a
// full inode table.
func MinRegionSize() uint64 {
	return addr.InodeAddr(common.Inum(common.MAXINODENUM - 1)).End()
}

func (fs *FsSuper) Inum2Addr(inum common.Inum) (addr.Addr, error) {
	if uint64(inum) >= common.MAXINODENUM {
		return addr.Addr{}, fmt.Errorf("inode `%d`: %w", inum, common.ErrInvalidInum)
	}
	return addr.InodeAddr(inum), nil
}

func (fs *FsSuper) read(a addr.Addr) ([]byte, error) {
	return fs.Region.ReadAt(a.Flatid(), a.Sz)
}

// write stores b at a and persists the range before returning.
func (fs *FsSuper) write(a addr.Addr, b []byte) error {
	if err := fs.Region.WriteAt(a.Flatid(), b); err != nil {
		return err
	}
	return fs.Region.Persist(a.Flatid(), a.Sz)
}

// LoadSuperblock reads the superblock and checks the magic before
// anything else looks at the region.
func (fs *FsSuper) LoadSuperblock() (Superblock, error) {
	if fs.Region.Size() < MinRegionSize() {
		return Superblock{}, fmt.Errorf(
			"loading superblock: region of %d bytes is smaller than %d: %w",
			fs.Region.Size(),
			MinRegionSize(),
			common.ErrIO,
		)
	}
	b, err := fs.read(addr.SuperAddr())
	if err != nil {
		return Superblock{}, fmt.Errorf("loading superblock: %w", err)
	}
	sb := DecodeSuperblock(b)
	if sb.Magic != common.MAGIC {
		return Superblock{}, fmt.Errorf(
			"loading superblock: %w",
			&common.MagicMismatchError{Found: sb.Magic},
		)
	}
	util.DPrintf(1, "superblock: bitmap %#x version %v\n", sb.Bitmap, sb.Version)
	return sb, nil
}

func (fs *FsSuper) WriteSuperblock(sb Superblock) error {
	if err := fs.write(addr.SuperAddr(), sb.Encode()); err != nil {
		return fmt.Errorf("writing superblock: %w", err)
	}
	return nil
}

// WriteBitmap updates only the bitmap word of the superblock.
func (fs *FsSuper) WriteBitmap(bitmap uint64) error {
	enc := marshal.NewEnc(8)
	enc.PutInt(bitmap)
	a := addr.MkAddr(common.SUPERBLK, 8, 8)
	if err := fs.write(a, enc.Finish()); err != nil {
		return fmt.Errorf("writing bitmap %#x: %w", bitmap, err)
	}
	return nil
}

// ReadInode returns slot inum as stored. The slot is only meaningful if
// inum's bitmap bit is set; checking that is the caller's job.
func (fs *FsSuper) ReadInode(inum common.Inum) (inode.Inode, error) {
	a, err := fs.Inum2Addr(inum)
	if err != nil {
		return inode.Inode{}, fmt.Errorf("reading inode: %w", err)
	}
	b, err := fs.read(a)
	if err != nil {
		return inode.Inode{}, fmt.Errorf("reading inode `%d`: %w", inum, err)
	}
	return inode.Decode(b), nil
}

func (fs *FsSuper) WriteInode(inum common.Inum, ip inode.Inode) error {
	a, err := fs.Inum2Addr(inum)
	if err != nil {
		return fmt.Errorf("writing inode: %w", err)
	}
	if err := fs.write(a, ip.Encode()); err != nil {
		return fmt.Errorf("writing inode `%d`: %w", inum, err)
	}
	util.DPrintf(5, "inode %d: wrote %v\n", inum, ip)
	return nil
}
