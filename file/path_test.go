/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Thu Mar 29 13:01:45 2018 mstenber
 * Last modified: Fri Apr  6 11:10:09 2018 mstenber
 * Edit time:     16 min
 *
 */

package file

import (
	"strings"
	"testing"

	"github.com/fingon/go-vfscore/errno"
	"github.com/stvp/assert"
)

func TestParsePath(t *testing.T) {
	t.Parallel()
	add := func(s, expected string) {
		p, err := ParsePath(s)
		assert.Nil(t, err, s)
		assert.Equal(t, p.String(), expected, s)
	}
	add("/", "/")
	add("", ".")
	add("/a/./b/../c", "/a/c")
	add("/..", "/")
	add("//a//", "/a")
	add("../x", "../x")
	add("a/..", ".")

	_, err := ParsePath("/" + strings.Repeat("x", NameMax+1))
	assert.Equal(t, errno.Of(err), errno.ENAMETOOLONG)
	_, err = ParsePath(strings.Repeat("x/", PathMax))
	assert.Equal(t, errno.Of(err), errno.ENAMETOOLONG)
}

func TestPathOps(t *testing.T) {
	t.Parallel()
	p := MustParsePath("/usr/local/bin")
	assert.True(t, p.IsAbsolute())
	assert.True(t, !p.IsRoot())
	assert.Equal(t, p.Len(), 3)
	assert.Equal(t, p.Base(), "bin")
	assert.Equal(t, p.Parent().String(), "/usr/local")
	assert.True(t, RootPath().IsRoot())
	assert.Equal(t, RootPath().Parent().String(), "/")
	assert.Equal(t, RootPath().Base(), "")

	assert.True(t, p.HasPrefix(MustParsePath("/usr")))
	assert.True(t, p.HasPrefix(RootPath()))
	assert.True(t, p.HasPrefix(p))
	assert.True(t, !p.HasPrefix(MustParsePath("/us")))
	assert.True(t, !p.HasPrefix(MustParsePath("usr")))
	assert.Equal(t, p.TrimPrefix(MustParsePath("/usr")).String(), "local/bin")

	assert.Equal(t, p.Concat(MustParsePath("../lib")).String(), "/usr/local/lib")
	assert.Equal(t, p.Concat(MustParsePath("/etc")).String(), "/etc")

	q := p.Parent()
	_ = q.Join("share")
	assert.Equal(t, p.String(), "/usr/local/bin")
	assert.True(t, p.Parent().Join("bin").Equal(p))
	assert.True(t, !p.Equal(p.Parent()))
}
