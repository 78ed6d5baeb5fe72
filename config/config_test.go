package config

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mit-pdos/nvmixfs/common"
	"github.com/mit-pdos/nvmixfs/util"
)

func TestParseSize(t *testing.T) {
	for in, want := range map[string]Size{
		"0":     0,
		"4096":  4096,
		"8K":    8 << 10,
		"256M":  256 << 20,
		"1g":    1 << 30,
		" 12k ": 12 << 10,
	} {
		got, err := ParseSize(in)
		assert.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	for _, in := range []string{"", "M", "12T", "-1", "99999999999999999999G"} {
		_, err := ParseSize(in)
		assert.Error(t, err, in)
	}
}

// setenv sets the variables for one test and restores them afterward.
func setenv(t *testing.T, kv map[string]string) {
	for k, v := range kv {
		old, had := os.LookupEnv(k)
		require.NoError(t, os.Setenv(k, v))
		k := k
		t.Cleanup(func() {
			if had {
				os.Setenv(k, old)
			} else {
				os.Unsetenv(k)
			}
		})
	}
}

func TestLoadFileThenEnv(t *testing.T) {
	assert := assert.New(t)
	dir, err := ioutil.TempDir("", "nvmixconfig")
	require.NoError(t, err)
	defer os.RemoveAll(dir)
	file := filepath.Join(dir, "nvmixfs.yaml")
	require.NoError(t, ioutil.WriteFile(file, []byte(
		"pmemPath: /dev/dax0.0\n"+
			"pmemSize: 16M\n"+
			"diskPath: /dev/sdb\n"+
			"debug: 2\n",
	), 0644))
	setenv(t, map[string]string{
		"NVMIX_CONFIG_FILE": file,
		"NVMIX_DISK_PATH":   "/tmp/disk.img",
	})
	defer func() { util.Debug = 0 }()

	c, err := Load()
	require.NoError(t, err)
	assert.Equal("/dev/dax0.0", c.PmemPath)
	assert.Equal(Size(16<<20), c.PmemSize)
	assert.Equal("/tmp/disk.img", c.DiskPath, "environment wins")
	assert.Equal(common.MAXINODENUM, c.DiskBlocks, "default kept")
	assert.Equal("reserved.txt", c.BootstrapName)
	assert.Equal(uint64(2), util.Debug)
	assert.NoError(c.Validate())
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	dir, err := ioutil.TempDir("", "nvmixconfig")
	require.NoError(t, err)
	defer os.RemoveAll(dir)
	file := filepath.Join(dir, "nvmixfs.yaml")
	require.NoError(t, ioutil.WriteFile(file, []byte("pmemPth: /dev/dax0.0\n"), 0644))
	setenv(t, map[string]string{"NVMIX_CONFIG_FILE": file})

	_, err = Load()
	assert.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	setenv(t, map[string]string{
		"NVMIX_CONFIG_FILE": filepath.Join(os.TempDir(), "does-not-exist.yaml"),
		"NVMIX_PMEM_SIZE":   "1M",
	})
	c, err := Load()
	require.NoError(t, err)
	assert.Equal(t, Size(1<<20), c.PmemSize)
}

func TestValidate(t *testing.T) {
	c := Default()
	assert.EqualError(t, c.Validate(), "missing required configuration: pmemPath / NVMIX_PMEM_PATH")
	c.PmemPath = "/dev/dax0.0"
	c.DiskPath = "/dev/sdb"
	assert.NoError(t, c.Validate())
	c.DiskBlocks = 4
	assert.Error(t, c.Validate())
}

func TestOpen(t *testing.T) {
	dir, err := ioutil.TempDir("", "nvmixconfig")
	require.NoError(t, err)
	defer os.RemoveAll(dir)
	c := Default()
	c.PmemPath = filepath.Join(dir, "pmem.img")
	c.DiskPath = filepath.Join(dir, "disk.img")
	region, d, err := c.Open()
	require.NoError(t, err)
	assert.Equal(t, uint64(c.PmemSize), region.Size())
	n, err := d.Size()
	assert.NoError(t, err)
	assert.Equal(t, c.DiskBlocks, n)
	assert.NoError(t, d.Close())
	assert.NoError(t, region.Close())
}
