package common

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLayoutFitsOneBlock(t *testing.T) {
	assert := assert.New(t)
	assert.Equal(uint64(640), INODESZ*MAXINODENUM)
	assert.Equal(uint64(768), DIRENTSZ*MAXENTRYNUM)
	assert.True(INODESZ*MAXINODENUM < BLOCKSIZE)
	assert.True(DIRENTSZ*MAXENTRYNUM < BLOCKSIZE)
	assert.True(SUPERSZ < BLOCKSIZE)
}

func TestMagicSpellsNvmix(t *testing.T) {
	var b []byte
	for m := MAGIC; m != 0; m >>= 8 {
		b = append([]byte{byte(m)}, b...)
	}
	assert.Equal(t, "nvmix", string(b))
}

func TestDataBlock(t *testing.T) {
	assert.Equal(t, FIRSTDATABLK, DataBlock(ROOTINUM))
	assert.Equal(t, FIRSTDATABLK+31, DataBlock(31))
}

func TestErrorsMatch(t *testing.T) {
	assert := assert.New(t)
	ioerr := fmt.Errorf("reading block: %w", &IOError{Op: "read", Off: 3})
	assert.True(errors.Is(ioerr, ErrIO))
	assert.False(errors.Is(ioerr, ErrMagicMismatch))

	var mm error = &MagicMismatchError{Found: 0xef53}
	assert.True(errors.Is(fmt.Errorf("mount: %w", mm), ErrMagicMismatch))
	var target *MagicMismatchError
	assert.True(errors.As(mm, &target))
	assert.Equal(uint64(0xef53), target.Found)
}
