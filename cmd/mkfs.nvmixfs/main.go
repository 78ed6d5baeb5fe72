package main

import (
	"fmt"
	"log"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/mit-pdos/nvmixfs/config"
	"github.com/mit-pdos/nvmixfs/mkfs"
	"github.com/mit-pdos/nvmixfs/super"
)

func main() {
	app := &cli.App{
		Name:      "mkfs.nvmixfs",
		Usage:     "format a byte-addressable region and a block device as nvmixfs",
		ArgsUsage: "[<pmem-path> <pmem-size> <disk-path>]",
		Description: "Arguments override the pmemPath, pmemSize and diskPath " +
			"configuration; without them the configuration is used as is.",
		Flags: []cli.Flag{
			&cli.Uint64Flag{
				Name:  "disk-blocks",
				Usage: "size of the block device in 4096-byte blocks",
			},
			&cli.StringFlag{
				Name:  "bootstrap-name",
				Usage: "name of the file created in the root directory",
			},
		},
		Action: format,
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func format(ctx *cli.Context) error {
	c, err := config.Load()
	if err != nil {
		return err
	}
	switch ctx.NArg() {
	case 0:
	case 3:
		c.PmemPath = ctx.Args().Get(0)
		if err := c.PmemSize.Decode(ctx.Args().Get(1)); err != nil {
			return err
		}
		c.DiskPath = ctx.Args().Get(2)
	default:
		return cli.Exit(
			fmt.Sprintf("usage: %s %s", ctx.App.Name, ctx.App.ArgsUsage),
			2,
		)
	}
	if ctx.IsSet("disk-blocks") {
		c.DiskBlocks = ctx.Uint64("disk-blocks")
	}
	if ctx.IsSet("bootstrap-name") {
		c.BootstrapName = ctx.String("bootstrap-name")
	}
	if err := c.Validate(); err != nil {
		return err
	}

	region, d, err := c.Open()
	if err != nil {
		return err
	}
	defer region.Close()
	defer d.Close()

	opts := mkfs.Options{
		BootstrapName: c.BootstrapName,
		Version:       super.CurrentVersion(),
	}
	if err := mkfs.Format(region, d, opts); err != nil {
		return err
	}
	fmt.Printf(
		"formatted %s (%v bytes) and %s (%d blocks), version %v\n",
		c.PmemPath,
		c.PmemSize,
		c.DiskPath,
		c.DiskBlocks,
		opts.Version,
	)
	return nil
}
