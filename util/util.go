package util

import (
	"log"

	"github.com/mit-pdos/nvmixfs/common"
)

// Debug is the highest DPrintf level that is printed.
var Debug uint64 = 0

func DPrintf(level uint64, format string, a ...interface{}) {
	if level <= Debug {
		log.Printf(format, a...)
	}
}

func RoundUp(n uint64, sz uint64) uint64 {
	return (n + sz - 1) / sz
}

func Min(n uint64, m uint64) uint64 {
	if n < m {
		return n
	} else {
		return m
	}
}

func SumOverflows(n uint64, m uint64) bool {
	return n+m < n
}

func CloneByteSlice(s []byte) []byte {
	s2 := make([]byte, len(s))
	copy(s2, s)
	return s2
}

// BlocksFor reports how many 512-byte sectors a file of size bytes
// occupies, rounded up to whole filesystem blocks.
func BlocksFor(size uint64) uint64 {
	if size == 0 {
		return 0
	}
	return RoundUp(size, common.BLOCKSIZE) * (common.BLOCKSIZE / 512)
}
