package common

import (
	"errors"
	"fmt"
)

var (
	ErrIO            = errors.New("i/o error")
	ErrMagicMismatch = errors.New("bad magic")
	ErrNoSpace       = errors.New("no free inodes")
	ErrDirectoryFull = errors.New("directory full")
	ErrNotFound      = errors.New("no such entry")
	ErrNotEmpty      = errors.New("directory not empty")
	ErrCorruptState  = errors.New("corrupt filesystem state")
	ErrInvalidName   = errors.New("invalid name")
	ErrInvalidInum   = errors.New("invalid inode number")
	ErrExists        = errors.New("entry exists")
	ErrIsDir         = errors.New("is a directory")
	ErrNotDir        = errors.New("not a directory")
	ErrTooLarge      = errors.New("file too large")
)

// IOError reports a failed read, write or flush on one of the two media.
type IOError struct {
	Op  string
	Off uint64 // block number on the disk, byte offset in the region
	Err error
}

func (err *IOError) Error() string {
	if err.Err == nil {
		return fmt.Sprintf("%s at `%#x`: %v", err.Op, err.Off, ErrIO)
	}
	return fmt.Sprintf("%s at `%#x`: %v", err.Op, err.Off, err.Err)
}

func (err *IOError) Unwrap() error { return err.Err }

func (err *IOError) Is(target error) bool { return target == ErrIO }

// MagicMismatchError is returned when the region does not carry MAGIC.
type MagicMismatchError struct {
	Found uint64
}

func (err *MagicMismatchError) Error() string {
	return fmt.Sprintf(
		"bad magic: wanted `%#x`; found `%#x`",
		MAGIC,
		err.Found,
	)
}

func (err *MagicMismatchError) Is(target error) bool {
	return target == ErrMagicMismatch
}
