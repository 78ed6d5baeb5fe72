package pmem

import (
	"sync"

	"golang.org/x/sys/unix"

	"github.com/mit-pdos/nvmixfs/common"
	"github.com/mit-pdos/nvmixfs/util"
)

var _ Region = (*mmapRegion)(nil)

// mmapRegion maps a persistent-memory device (or a plain file standing in
// for one) MAP_SHARED. Persist is msync(MS_SYNC) on the page-aligned span
// covering the range.
type mmapRegion struct {
	mu   sync.RWMutex
	fd   int
	data []byte
}

// OpenFile maps size bytes of the device or file at path, growing regular
// files to size.
func OpenFile(path string, size uint64) (Region, error) {
	fd, err := unix.Open(path, unix.O_RDWR|unix.O_CREAT, 0666)
	if err != nil {
		return nil, &common.IOError{Op: "open " + path, Err: err}
	}
	var stat unix.Stat_t
	if err := unix.Fstat(fd, &stat); err != nil {
		unix.Close(fd)
		return nil, &common.IOError{Op: "stat " + path, Err: err}
	}
	if (stat.Mode&unix.S_IFMT) == unix.S_IFREG && uint64(stat.Size) < size {
		if err := unix.Ftruncate(fd, int64(size)); err != nil {
			unix.Close(fd)
			return nil, &common.IOError{Op: "truncate " + path, Err: err}
		}
	}
	data, err := unix.Mmap(fd, 0, int(size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		unix.Close(fd)
		return nil, &common.IOError{Op: "mmap " + path, Err: err}
	}
	util.DPrintf(0, "pmem: mapped %s (%d bytes)\n", path, size)
	return &mmapRegion{fd: fd, data: data}, nil
}

func (r *mmapRegion) ReadAt(off uint64, n uint64) ([]byte, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if err := checkRange("pmem read", off, n, uint64(len(r.data))); err != nil {
		return nil, err
	}
	return util.CloneByteSlice(r.data[off : off+n]), nil
}

func (r *mmapRegion) WriteAt(off uint64, p []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := checkRange("pmem write", off, uint64(len(p)), uint64(len(r.data))); err != nil {
		return err
	}
	copy(r.data[off:], p)
	return nil
}

func (r *mmapRegion) Persist(off uint64, n uint64) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if err := checkRange("pmem persist", off, n, uint64(len(r.data))); err != nil {
		return err
	}
	// msync wants a page-aligned start
	pg := uint64(unix.Getpagesize())
	start := off / pg * pg
	end := util.Min(util.RoundUp(off+n, pg)*pg, uint64(len(r.data)))
	util.DPrintf(10, "pmem: persist [%d, %d) as [%d, %d)\n", off, off+n, start, end)
	if err := unix.Msync(r.data[start:end], unix.MS_SYNC); err != nil {
		return &common.IOError{Op: "msync", Off: off, Err: err}
	}
	return nil
}

func (r *mmapRegion) Size() uint64 {
	return uint64(len(r.data))
}

func (r *mmapRegion) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.data == nil {
		return nil
	}
	if err := unix.Munmap(r.data); err != nil {
		return &common.IOError{Op: "munmap", Err: err}
	}
	r.data = nil
	if err := unix.Close(r.fd); err != nil {
		return &common.IOError{Op: "close", Err: err}
	}
	return nil
}
