// Package config locates the two media of a file system and the knobs
// the command-line tools share. Values come from a YAML file and are then
// overridden by NVMIX_* environment variables.
package config

import (
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"

	"github.com/mit-pdos/nvmixfs/common"
	"github.com/mit-pdos/nvmixfs/disk"
	"github.com/mit-pdos/nvmixfs/mkfs"
	"github.com/mit-pdos/nvmixfs/pmem"
	"github.com/mit-pdos/nvmixfs/util"
)

const (
	envVarPrefix = "NVMIX"
	appName      = "nvmixfs"
)

type Config struct {
	PmemPath      string `envconfig:"PMEM_PATH"      yaml:"pmemPath"`
	PmemSize      Size   `envconfig:"PMEM_SIZE"      yaml:"pmemSize"`
	DiskPath      string `envconfig:"DISK_PATH"      yaml:"diskPath"`
	DiskBlocks    uint64 `envconfig:"DISK_BLOCKS"    yaml:"diskBlocks"`
	BootstrapName string `envconfig:"BOOTSTRAP_NAME" yaml:"bootstrapName"`
	Debug         uint64 `envconfig:"DEBUG"          yaml:"debug"`
}

func Default() Config {
	return Config{
		PmemSize:      Size(2 * common.BLOCKSIZE),
		DiskBlocks:    common.MAXINODENUM,
		BootstrapName: mkfs.BOOTSTRAPNAME,
	}
}

// ConfigFile is $NVMIX_CONFIG_FILE, or $HOME/.config/nvmixfs.yaml.
func ConfigFile() string {
	if f := os.Getenv(envVarPrefix + "_CONFIG_FILE"); f != "" {
		return f
	}
	return filepath.Join(os.Getenv("HOME"), ".config", appName+".yaml")
}

// Load reads the config file, if there is one, then applies the
// environment on top.
func Load() (*Config, error) {
	c := Default()
	data, err := ioutil.ReadFile(ConfigFile())
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	} else if err := yaml.UnmarshalStrict(data, &c); err != nil {
		return nil, fmt.Errorf("unmarshaling config file: %w", err)
	}

	if err := envconfig.Process(envVarPrefix, &c); err != nil {
		return nil, fmt.Errorf("parsing environment variables: %w", err)
	}
	util.Debug = c.Debug
	return &c, nil
}

func (c *Config) Validate() error {
	if y, e := func() (string, string) {
		if c.PmemPath == "" {
			return "pmemPath", "PMEM_PATH"
		}
		if c.PmemSize == 0 {
			return "pmemSize", "PMEM_SIZE"
		}
		if c.DiskPath == "" {
			return "diskPath", "DISK_PATH"
		}
		if c.DiskBlocks == 0 {
			return "diskBlocks", "DISK_BLOCKS"
		}
		return "", ""
	}(); y != "" {
		return fmt.Errorf(
			"missing required configuration: %s / %s_%s",
			y,
			envVarPrefix,
			e,
		)
	}
	if c.DiskBlocks < common.MAXINODENUM {
		return fmt.Errorf(
			"diskBlocks: %d blocks cannot hold %d inodes",
			c.DiskBlocks,
			common.MAXINODENUM,
		)
	}
	return nil
}

// Open maps the region and opens the disk. The caller closes both.
func (c *Config) Open() (pmem.Region, disk.Disk, error) {
	region, err := pmem.OpenFile(c.PmemPath, uint64(c.PmemSize))
	if err != nil {
		return nil, nil, fmt.Errorf("opening region `%s`: %w", c.PmemPath, err)
	}
	d, err := disk.NewFileDisk(c.DiskPath, c.DiskBlocks)
	if err != nil {
		region.Close()
		return nil, nil, fmt.Errorf("opening disk `%s`: %w", c.DiskPath, err)
	}
	return region, d, nil
}

// Size is a byte count written with an optional K, M or G suffix
// (powers of 1024).
type Size uint64

func ParseSize(value string) (Size, error) {
	s := strings.TrimSpace(value)
	mult := uint64(1)
	if n := len(s); n > 0 {
		switch strings.ToUpper(s[n-1:]) {
		case "K":
			mult = 1 << 10
		case "M":
			mult = 1 << 20
		case "G":
			mult = 1 << 30
		}
		if mult != 1 {
			s = s[:n-1]
		}
	}
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing size `%s`: %w", value, err)
	}
	if v > (^uint64(0))/mult {
		return 0, fmt.Errorf("parsing size `%s`: overflows", value)
	}
	return Size(v * mult), nil
}

func (sz *Size) Decode(value string) error {
	v, err := ParseSize(value)
	if err != nil {
		return err
	}
	*sz = v
	return nil
}

func (sz *Size) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return fmt.Errorf("yaml-unmarshaling *Size: %w", err)
	}
	return sz.Decode(s)
}

func (sz Size) String() string {
	return strconv.FormatUint(uint64(sz), 10)
}
