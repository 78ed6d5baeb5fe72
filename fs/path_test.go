package fs

import (
	"errors"

	"github.com/mit-pdos/nvmixfs/common"
	"github.com/mit-pdos/nvmixfs/mkfs"
)

func (suite *FsSuite) TestResolve() {
	fs := suite.fs
	a, err := fs.Mkdir(cred, root, "a", 0755)
	suite.Require().NoError(err)
	b, err := fs.Mkdir(cred, a, "b", 0755)
	suite.Require().NoError(err)
	f, err := fs.Create(cred, b, "f", 0644)
	suite.Require().NoError(err)

	for path, want := range map[string]common.Inum{
		"":                 root,
		"/":                root,
		"/a":               a,
		"a/b":              b,
		"/a/./b//f":        f,
		mkfs.BOOTSTRAPNAME: mkfs.BOOTSTRAPINUM,
	} {
		got, err := fs.Resolve(path)
		suite.NoError(err, path)
		suite.Equal(want, got, path)
	}
	_, err = fs.Resolve("/a/c")
	suite.True(errors.Is(err, common.ErrNotFound))
	_, err = fs.Resolve("/a/b/f/g")
	suite.True(errors.Is(err, common.ErrNotDir))

	parent, name, err := fs.ResolveParent("/a/b/new")
	suite.NoError(err)
	suite.Equal(b, parent)
	suite.Equal("new", name)
	_, _, err = fs.ResolveParent("/")
	suite.True(errors.Is(err, common.ErrInvalidName))
}
