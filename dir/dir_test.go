package dir

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mit-pdos/nvmixfs/common"
)

func TestDirentLayout(t *testing.T) {
	assert := assert.New(t)
	b := encodeDirent(Dirent{Name: "abc", Inum: 0x0102})
	assert.Equal(int(common.DIRENTSZ), len(b))
	assert.Equal([]byte("abc"), b[:3])
	assert.Equal(byte(0), b[3])
	assert.Equal(byte(0x02), b[16], "inum is little endian at offset 16")
	assert.Equal(byte(0x01), b[17])
	assert.Equal(Dirent{Name: "abc", Inum: 0x0102}, decodeDirent(b))
}

func TestFullLengthName(t *testing.T) {
	assert := assert.New(t)
	name := "0123456789abcdef"
	tbl := MkEmptyTable()
	assert.NoError(tbl.Insert(name, 3))
	assert.NotContains(tbl.Block()[:common.MAXNAMELEN], byte(0))
	de, ok := tbl.Find(name)
	assert.True(ok)
	assert.Equal(common.Inum(3), de.Inum)
	assert.Equal(name, de.Name)
}

func TestValidName(t *testing.T) {
	for _, name := range []string{"", "a/b", "nul\x00", "0123456789abcdefg"} {
		err := ValidName(name)
		assert.True(t, errors.Is(err, common.ErrInvalidName), "name %q", name)
	}
	assert.NoError(t, ValidName("reserved.txt"))
	assert.NoError(t, ValidName("."))
}

func TestInsertFindRemove(t *testing.T) {
	assert := assert.New(t)
	tbl := MkEmptyTable()
	assert.True(tbl.IsEmpty())

	assert.NoError(tbl.Insert("a", 1))
	assert.NoError(tbl.Insert("b", 2))
	de, ok := tbl.Find("b")
	assert.True(ok)
	assert.Equal(common.Inum(2), de.Inum)
	_, ok = tbl.Find("B")
	assert.False(ok, "match is exact")

	assert.False(tbl.Remove("a", 2), "inum must match too")
	assert.False(tbl.Remove("zz", 1))
	assert.True(tbl.Remove("a", 1))
	_, ok = tbl.Find("a")
	assert.False(ok)

	// freed slot 0 is reused first
	assert.NoError(tbl.Insert("c", 3))
	assert.Equal([]Dirent{{"c", 3}, {"b", 2}}, tbl.Entries())
	assert.False(tbl.IsEmpty())
}

func TestInsertRejectsBadInum(t *testing.T) {
	tbl := MkEmptyTable()
	assert.True(t, errors.Is(tbl.Insert("a", 0), common.ErrInvalidInum))
	assert.True(t, errors.Is(tbl.Insert("a", common.Inum(common.MAXINODENUM)), common.ErrInvalidInum))
}

func TestDirectoryFull(t *testing.T) {
	tbl := MkEmptyTable()
	for i := uint64(0); i < common.MAXENTRYNUM; i++ {
		require.NoError(t, tbl.Insert(fmt.Sprintf("f%d", i), common.Inum(i%31+1)))
	}
	err := tbl.Insert("one-more", 1)
	assert.True(t, errors.Is(err, common.ErrDirectoryFull))
	assert.Len(t, tbl.Entries(), int(common.MAXENTRYNUM))
}

func TestEnumerateResume(t *testing.T) {
	assert := assert.New(t)
	tbl := MkEmptyTable()
	for i := 1; i <= 6; i++ {
		assert.NoError(tbl.Insert(fmt.Sprintf("f%d", i), common.Inum(i)))
	}
	tbl.Remove("f2", 2)
	tbl.Remove("f5", 5)

	var seen []string
	c := tbl.Enumerate(0)
	for i := 0; i < 2; i++ {
		_, de, ok := c.Next()
		assert.True(ok)
		seen = append(seen, de.Name)
	}
	resume := c.Pos()

	c = tbl.Enumerate(resume)
	for {
		_, de, ok := c.Next()
		if !ok {
			break
		}
		seen = append(seen, de.Name)
	}
	assert.Equal([]string{"f1", "f3", "f4", "f6"}, seen)

	_, _, ok := tbl.Enumerate(common.MAXENTRYNUM).Next()
	assert.False(ok)
}

func TestMkTableSize(t *testing.T) {
	_, err := MkTable(make([]byte, 10))
	assert.True(t, errors.Is(err, common.ErrCorruptState))
	_, err = MkTable(make([]byte, common.BLOCKSIZE))
	assert.NoError(t, err)
}
