// buf holds working copies of directory and data blocks. A write to the
// block device only marks the buffer dirty; it reaches the disk at the
// next Sync.
package buf

import (
	"github.com/mit-pdos/nvmixfs/common"
	"github.com/mit-pdos/nvmixfs/disk"
	"github.com/mit-pdos/nvmixfs/util"
)

// A Buf is the cached contents of one disk block
type Buf struct {
	Blkno common.Bnum
	Data  disk.Block
	dirty bool // written since the last writeback?
}

func MkBuf(blkno common.Bnum, data disk.Block) *Buf {
	b := &Buf{
		Blkno: blkno,
		Data:  data,
		dirty: false,
	}
	return b
}

func (buf *Buf) IsDirty() bool {
	return buf.dirty
}

func (buf *Buf) SetDirty() {
	buf.dirty = true
}

// WriteDirect writes the buffer to d and marks it clean.
func (buf *Buf) WriteDirect(d disk.Disk) error {
	util.DPrintf(5, "%d: write back\n", buf.Blkno)
	if err := d.Write(buf.Blkno, buf.Data); err != nil {
		return err
	}
	buf.dirty = false
	return nil
}
