/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Thu Apr  5 10:02:22 2018 mstenber
 * Last modified: Thu Apr 12 13:31:40 2018 mstenber
 * Edit time:     18 min
 *
 */

package procfs_test

import (
	"strings"
	"testing"

	"github.com/fingon/go-vfscore/errno"
	"github.com/fingon/go-vfscore/file"
	"github.com/fingon/go-vfscore/fs/procfs"
	"github.com/fingon/go-vfscore/fs/tmpfs"
	"github.com/fingon/go-vfscore/perm"
	"github.com/stvp/assert"
)

func readAll(t *testing.T, path string) string {
	f, err := file.GetFileFromPath(file.MustParsePath(path), perm.Kernel, true)
	assert.Nil(t, err, path)
	buf := make([]byte, 4096)
	n, eof, err := f.Read(0, buf)
	assert.Nil(t, err, path)
	assert.True(t, eof, path)
	return string(buf[:n])
}

func TestProcfs(t *testing.T) {
	file.ResetMounts()
	file.RegisterType(tmpfs.Type{})
	file.RegisterType(procfs.Type{Version: "test"})
	defer file.UnregisterType(procfs.Name)
	defer file.UnregisterType(tmpfs.Name)

	_, err := file.CreateMount(file.NoDevSource(tmpfs.Name), nil, 0, file.RootPath())
	assert.Nil(t, err)
	root, _ := file.GetFileFromPath(file.RootPath(), perm.Kernel, true)
	_, err = file.CreateFile(root, "proc", perm.Kernel, 0o555, file.NewDirectoryContent())
	assert.Nil(t, err)
	_, err = file.CreateMount(file.NoDevSource(procfs.Name), nil, 0, file.MustParsePath("/proc"))
	assert.Nil(t, err)

	proc, err := file.GetFileFromPath(file.MustParsePath("/proc"), perm.Kernel, true)
	assert.Nil(t, err)
	l, err := file.ListDirectory(proc, perm.NewProfile(1, 1))
	assert.Nil(t, err)
	assert.Equal(t, len(l), 4)
	assert.Equal(t, l[1].Name, "mounts")

	mounts := readAll(t, "/proc/mounts")
	assert.True(t, strings.Contains(mounts, "tmpfs / tmpfs rw 0 0\n"), mounts)
	assert.True(t, strings.Contains(mounts, "proc /proc proc ro 0 0\n"), mounts)
	fss := readAll(t, "/proc/filesystems")
	assert.True(t, strings.Contains(fss, "nodev\tproc\n"), fss)
	assert.Equal(t, readAll(t, "/proc/version"), "vfscore version test\n")

	_, err = file.CreateFile(proc, "x", perm.Kernel, 0o644, file.RegularContent{})
	assert.Equal(t, errno.Of(err), errno.EROFS)
	v, _ := file.GetFileFromPath(file.MustParsePath("/proc/version"), perm.Kernel, true)
	_, err = v.Write(0, []byte("x"))
	assert.Equal(t, errno.Of(err), errno.EROFS)
	assert.Equal(t, errno.Of(file.RemoveFile(v, perm.Kernel)), errno.EROFS)
	_, err = file.GetFileFromPath(file.MustParsePath("/proc/nope"), perm.Kernel, true)
	assert.Equal(t, errno.Of(err), errno.ENOENT)

	st, err := file.GetStatfs(v)
	assert.Nil(t, err)
	assert.Equal(t, st.Type, uint32(procfs.Magic))

	// An open file keeps reading what was there when it was opened.
	m, err := file.GetFileFromPath(file.MustParsePath("/proc/mounts"), perm.Kernel, true)
	assert.Nil(t, err)
	m, err = file.Open(m)
	assert.Nil(t, err)
	size := m.GetSize()
	_, err = file.CreateFile(root, "t", perm.Kernel, 0o755, file.NewDirectoryContent())
	assert.Nil(t, err)
	_, err = file.CreateMount(file.NoDevSource(tmpfs.Name), nil, 0, file.MustParsePath("/t"))
	assert.Nil(t, err)
	buf := make([]byte, 4096)
	n, eof, err := m.Read(0, buf)
	assert.Nil(t, err)
	assert.True(t, eof)
	assert.Equal(t, n, size)
	assert.True(t, !strings.Contains(string(buf[:n]), " /t "))
	assert.True(t, strings.Contains(readAll(t, "/proc/mounts"), "tmpfs /t tmpfs rw 0 0\n"))
	assert.Nil(t, m.Close())
}
