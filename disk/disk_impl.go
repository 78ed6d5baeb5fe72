package disk

import (
	"fmt"

	gdisk "github.com/tchajed/goose/machine/disk"
	"golang.org/x/sys/unix"
)

var _ Disk = (*fileDisk)(nil)

type fileDisk struct {
	fd        int
	numBlocks uint64
}

// NewFileDisk opens (creating if needed) the file or block device at path.
// Regular files are grown to numBlocks blocks.
func NewFileDisk(path string, numBlocks uint64) (Disk, error) {
	fd, err := unix.Open(path, unix.O_RDWR|unix.O_CREAT, 0666)
	if err != nil {
		return nil, ioErr("open "+path, 0, err)
	}
	var stat unix.Stat_t
	err = unix.Fstat(fd, &stat)
	if err != nil {
		unix.Close(fd)
		return nil, ioErr("stat "+path, 0, err)
	}
	if (stat.Mode&unix.S_IFMT) == unix.S_IFREG &&
		uint64(stat.Size) < numBlocks*BlockSize {
		err = unix.Ftruncate(fd, int64(numBlocks*BlockSize))
		if err != nil {
			unix.Close(fd)
			return nil, ioErr("truncate "+path, 0, err)
		}
	}
	return &fileDisk{fd: fd, numBlocks: numBlocks}, nil
}

func (d *fileDisk) ReadTo(a uint64, buf Block) error {
	if uint64(len(buf)) != BlockSize {
		return ioErr("read", a, fmt.Errorf("buffer is not block-sized (%d bytes)", len(buf)))
	}
	if a >= d.numBlocks {
		return ioErr("read", a, fmt.Errorf("out of bounds (%d blocks)", d.numBlocks))
	}
	n, err := unix.Pread(d.fd, buf, int64(a*BlockSize))
	if err != nil {
		return ioErr("read", a, err)
	}
	if uint64(n) != BlockSize {
		return ioErr("read", a, fmt.Errorf("short read (%d bytes)", n))
	}
	return nil
}

func (d *fileDisk) Read(a uint64) (Block, error) {
	buf := make([]byte, BlockSize)
	err := d.ReadTo(a, buf)
	return buf, err
}

func (d *fileDisk) Write(a uint64, v Block) error {
	if uint64(len(v)) != BlockSize {
		return ioErr("write", a, fmt.Errorf("v is not block sized (%d bytes)", len(v)))
	}
	if a >= d.numBlocks {
		return ioErr("write", a, fmt.Errorf("out of bounds (%d blocks)", d.numBlocks))
	}
	n, err := unix.Pwrite(d.fd, v, int64(a*BlockSize))
	if err != nil {
		return ioErr("write", a, err)
	}
	if uint64(n) != BlockSize {
		return ioErr("write", a, fmt.Errorf("short write (%d bytes)", n))
	}
	return nil
}

func (d *fileDisk) Size() (uint64, error) {
	return d.numBlocks, nil
}

func (d *fileDisk) Barrier() error {
	// NOTE: on macOS, this flushes to the drive but doesn't actually issue a
	// disk barrier; see https://golang.org/src/internal/poll/fd_fsync_darwin.go
	// for more details. The correct replacement is to issue a fcntl syscall with
	// cmd F_FULLFSYNC.
	if err := unix.Fsync(d.fd); err != nil {
		return ioErr("fsync", 0, err)
	}
	return nil
}

func (d *fileDisk) Close() error {
	if err := unix.Close(d.fd); err != nil {
		return ioErr("close", 0, err)
	}
	return nil
}

// NewMemDisk returns an in-memory disk of numBlocks zeroed blocks,
// backed by goose's MemDisk.
func NewMemDisk(numBlocks uint64) Disk {
	return FromGoose(gdisk.NewMemDisk(numBlocks))
}
