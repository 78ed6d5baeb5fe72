// Package inode defines the on-region inode record and the in-memory
// side-table that carries what the record does not: timestamps and
// whether the slot is live.
package inode

import (
	"fmt"

	"github.com/tchajed/marshal"

	"github.com/mit-pdos/nvmixfs/common"
)

// Inode is one 20-byte slot of the inode table.
type Inode struct {
	Mode      uint32
	Uid       uint32
	Gid       uint32
	Size      uint32
	DataBlock uint16
}

// MkInode initializes the record for a freshly claimed inum.
func MkInode(inum common.Inum, mode uint32, uid uint32, gid uint32) Inode {
	return Inode{
		Mode:      mode,
		Uid:       uid,
		Gid:       gid,
		Size:      0,
		DataBlock: uint16(common.DataBlock(inum)),
	}
}

func (ip Inode) IsDir() bool {
	return ip.Mode&common.S_IFMT == common.S_IFDIR
}

func (ip Inode) IsReg() bool {
	return ip.Mode&common.S_IFMT == common.S_IFREG
}

func (ip Inode) Perm() uint32 {
	return ip.Mode & common.PERMMASK
}

func (ip Inode) String() string {
	return fmt.Sprintf("{mode %#o uid %d gid %d size %d blk %d}",
		ip.Mode, ip.Uid, ip.Gid, ip.Size, ip.DataBlock)
}

// Encode lays the record out little endian; the data block index takes
// the low half of the last word and the high half is padding.
func (ip Inode) Encode() []byte {
	enc := marshal.NewEnc(common.INODESZ)
	enc.PutInt32(ip.Mode)
	enc.PutInt32(ip.Uid)
	enc.PutInt32(ip.Gid)
	enc.PutInt32(ip.Size)
	enc.PutInt32(uint32(ip.DataBlock))
	return enc.Finish()
}

func Decode(b []byte) Inode {
	dec := marshal.NewDec(b)
	var ip Inode
	ip.Mode = dec.GetInt32()
	ip.Uid = dec.GetInt32()
	ip.Gid = dec.GetInt32()
	ip.Size = dec.GetInt32()
	ip.DataBlock = uint16(dec.GetInt32())
	return ip
}

// MkMode packs a file type and permission bits.
func MkMode(ftype uint32, perm uint32) uint32 {
	return ftype&common.S_IFMT | perm&common.PERMMASK
}
