package main

import (
	"errors"
	"fmt"
	"io/ioutil"
	"log"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/mit-pdos/nvmixfs/common"
	"github.com/mit-pdos/nvmixfs/config"
	"github.com/mit-pdos/nvmixfs/dir"
	"github.com/mit-pdos/nvmixfs/fs"
)

func main() {
	app := &cli.App{
		Name:  "nvmixctl",
		Usage: "inspect and modify an unmounted nvmixfs file system",
		Commands: []*cli.Command{{
			Name:      "ls",
			Usage:     "list a directory",
			ArgsUsage: "[<path>]",
			Action: withFs(func(fsys *fs.Fs, ctx *cli.Context) error {
				return list(fsys, ctx.Args().First())
			}),
		}, {
			Name:      "stat",
			Usage:     "show the attributes of a file or directory",
			ArgsUsage: "<path>",
			Action: withFs(func(fsys *fs.Fs, ctx *cli.Context) error {
				inum, err := fsys.Resolve(ctx.Args().First())
				if err != nil {
					return err
				}
				a, err := fsys.Getattr(inum)
				if err != nil {
					return err
				}
				fmt.Printf(
					"inode %d mode %#o uid %d gid %d size %d nlink %d blocks %d mtime %s\n",
					a.Inum,
					a.Mode,
					a.Uid,
					a.Gid,
					a.Size,
					a.Nlink,
					a.Blocks,
					a.Mtime.Format("2006-01-02 15:04:05"),
				)
				return nil
			}),
		}, {
			Name:      "touch",
			Aliases:   []string{"create"},
			Usage:     "create an empty file",
			ArgsUsage: "<path>",
			Flags:     []cli.Flag{permFlag(0644)},
			Action: withFs(func(fsys *fs.Fs, ctx *cli.Context) error {
				parent, name, err := fsys.ResolveParent(ctx.Args().First())
				if err != nil {
					return err
				}
				_, err = fsys.Create(callerCred(), parent, name, uint32(ctx.Uint("perm")))
				return err
			}),
		}, {
			Name:      "mkdir",
			Usage:     "create an empty directory",
			ArgsUsage: "<path>",
			Flags:     []cli.Flag{permFlag(0755)},
			Action: withFs(func(fsys *fs.Fs, ctx *cli.Context) error {
				parent, name, err := fsys.ResolveParent(ctx.Args().First())
				if err != nil {
					return err
				}
				_, err = fsys.Mkdir(callerCred(), parent, name, uint32(ctx.Uint("perm")))
				return err
			}),
		}, {
			Name:      "rm",
			Aliases:   []string{"unlink"},
			Usage:     "remove a file",
			ArgsUsage: "<path>",
			Action: withFs(func(fsys *fs.Fs, ctx *cli.Context) error {
				parent, name, err := fsys.ResolveParent(ctx.Args().First())
				if err != nil {
					return err
				}
				return fsys.Unlink(parent, name)
			}),
		}, {
			Name:      "rmdir",
			Usage:     "remove an empty directory",
			ArgsUsage: "<path>",
			Action: withFs(func(fsys *fs.Fs, ctx *cli.Context) error {
				parent, name, err := fsys.ResolveParent(ctx.Args().First())
				if err != nil {
					return err
				}
				return fsys.Rmdir(parent, name)
			}),
		}, {
			Name:      "cat",
			Usage:     "print a file",
			ArgsUsage: "<path>",
			Action: withFs(func(fsys *fs.Fs, ctx *cli.Context) error {
				inum, err := fsys.Resolve(ctx.Args().First())
				if err != nil {
					return err
				}
				p := make([]byte, common.BLOCKSIZE)
				n, err := fsys.ReadData(inum, 0, p)
				if err != nil {
					return err
				}
				_, err = os.Stdout.Write(p[:n])
				return err
			}),
		}, {
			Name:      "write",
			Usage:     "replace a file's contents with standard input",
			ArgsUsage: "<path>",
			Action: withFs(func(fsys *fs.Fs, ctx *cli.Context) error {
				data, err := ioutil.ReadAll(os.Stdin)
				if err != nil {
					return fmt.Errorf("reading stdin: %w", err)
				}
				return replace(fsys, ctx.Args().First(), data)
			}),
		}, {
			Name:  "df",
			Usage: "show free inodes and blocks",
			Action: withFs(func(fsys *fs.Fs, ctx *cli.Context) error {
				st := fsys.Statfs()
				fmt.Printf(
					"version %v: %d/%d inodes free, %d/%d blocks of %d bytes free\n",
					fsys.Version(),
					st.FilesFree,
					st.Files,
					st.BlocksFree,
					st.Blocks,
					st.BlockSize,
				)
				return nil
			}),
		}},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func permFlag(def uint) cli.Flag {
	return &cli.UintFlag{
		Name:  "perm",
		Usage: "permission bits",
		Value: def,
	}
}

func callerCred() fs.Cred {
	return fs.Cred{Uid: uint32(os.Getuid()), Gid: uint32(os.Getgid())}
}

// withFs mounts the configured file system around f and unmounts it
// afterward, which flushes anything f changed.
func withFs(f func(fsys *fs.Fs, ctx *cli.Context) error) cli.ActionFunc {
	return func(ctx *cli.Context) error {
		c, err := config.Load()
		if err != nil {
			return err
		}
		if err := c.Validate(); err != nil {
			return err
		}
		region, d, err := c.Open()
		if err != nil {
			return err
		}
		fsys, err := fs.Mount(region, d)
		if err != nil {
			d.Close()
			region.Close()
			return err
		}
		if err := f(fsys, ctx); err != nil {
			fsys.Unmount()
			return err
		}
		return fsys.Unmount()
	}
}

func list(fsys *fs.Fs, path string) error {
	inum, err := fsys.Resolve(path)
	if err != nil {
		return err
	}
	var ents []dir.Dirent
	if _, err := fsys.ReadDir(inum, 0, func(_ uint64, de dir.Dirent) bool {
		ents = append(ents, de)
		return true
	}); err != nil {
		return err
	}
	for _, de := range ents {
		a, err := fsys.Getattr(de.Inum)
		if err != nil {
			return fmt.Errorf("`%s`: %w", de.Name, err)
		}
		kind := "-"
		if a.IsDir() {
			kind = "d"
		}
		fmt.Printf("%s%04o %3d %5d %5d %6d %s\n",
			kind, a.Mode&common.PERMMASK, a.Inum, a.Uid, a.Gid, a.Size, de.Name)
	}
	return nil
}

// replace overwrites the file at path, creating it if needed, and trims
// it to len(data).
func replace(fsys *fs.Fs, path string, data []byte) error {
	inum, err := fsys.Resolve(path)
	if errors.Is(err, common.ErrNotFound) {
		parent, name, err := fsys.ResolveParent(path)
		if err != nil {
			return err
		}
		inum, err = fsys.Create(callerCred(), parent, name, 0644)
		if err != nil {
			return err
		}
	} else if err != nil {
		return err
	}
	if _, err := fsys.WriteData(inum, 0, data); err != nil {
		return err
	}
	ip, err := fsys.ReadInode(inum)
	if err != nil {
		return err
	}
	if uint64(ip.Size) != uint64(len(data)) {
		ip.Size = uint32(len(data))
		return fsys.WriteInode(inum, ip)
	}
	return nil
}
