/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Wed Apr 11 10:02:11 2018 mstenber
 * Last modified: Fri Apr 13 15:44:50 2018 mstenber
 * Edit time:     29 min
 *
 */

package vfs

import (
	"io/ioutil"
	"os"
	"strings"
	"testing"

	"github.com/fingon/go-vfscore/errno"
	"github.com/fingon/go-vfscore/file"
	"github.com/fingon/go-vfscore/fs/boltfs"
	"github.com/fingon/go-vfscore/fs/procfs"
	"github.com/fingon/go-vfscore/fs/tmpfs"
	"github.com/fingon/go-vfscore/perm"
	"github.com/stvp/assert"
)

func mkdir(t *testing.T, path string) {
	p := file.MustParsePath(path)
	parent, err := file.GetFileFromPath(p.Parent(), perm.Kernel, true)
	assert.Nil(t, err, path)
	_, err = file.CreateFile(parent, p.Base(), perm.Kernel, 0o755, file.NewDirectoryContent())
	assert.Nil(t, err, path)
}

func TestInitMount(t *testing.T) {
	assert.Nil(t, RegisterDefaults(Options{}))
	assert.Nil(t, RegisterDefaults(Options{TmpfsCapacity: 8192}))
	assert.Equal(t, file.ListTypes(), []string{boltfs.Name, procfs.Name, tmpfs.Name})
	assert.Equal(t, file.GetType(tmpfs.Name), file.BackendType(tmpfs.Type{Capacity: 8192}))
	defer Shutdown()

	assert.True(t, !IsInit())
	assert.Nil(t, Init(nil))
	assert.True(t, IsInit())
	assert.Equal(t, errno.Of(Init(nil)), errno.EBUSY)

	mkdir(t, "/proc")
	u1 := perm.NewProfile(1, 1)
	_, err := Mount(file.NoDevSource(procfs.Name), "/proc", "", false, u1)
	assert.Equal(t, errno.Of(err), errno.EPERM)
	_, err = Mount(file.NoDevSource(procfs.Name), "/nope", "", false, perm.Kernel)
	assert.Equal(t, errno.Of(err), errno.ENOENT)
	_, err = Mount(file.NoDevSource("x"), "/proc", "x", false, perm.Kernel)
	assert.Equal(t, errno.Of(err), errno.ENODEV)
	mp, err := Mount(file.NoDevSource(procfs.Name), "/proc", "", false, perm.Kernel)
	assert.Nil(t, err)
	assert.True(t, mp.IsReadonly())

	f, err := file.GetFileFromPath(file.MustParsePath("/proc/version"), u1, true)
	assert.Nil(t, err)
	_, err = Mount(file.NoDevSource(tmpfs.Name), "/proc/version", "", false, perm.Kernel)
	assert.Equal(t, errno.Of(err), errno.ENOTDIR)
	buf := make([]byte, 100)
	n, _, err := f.Read(0, buf)
	assert.Nil(t, err)
	assert.True(t, strings.Contains(string(buf[:n]), Version))

	assert.Equal(t, errno.Of(Unmount("/proc", u1)), errno.EPERM)
	assert.Equal(t, errno.Of(Unmount("/tmp", perm.Kernel)), errno.EINVAL)
	assert.Nil(t, Unmount("/proc", perm.Kernel))
	assert.Equal(t, errno.Of(Unmount("/", perm.Kernel)), errno.EBUSY)
}

func TestImageRoot(t *testing.T) {
	dir, err := ioutil.TempDir("", "vfs")
	assert.Nil(t, err)
	defer os.RemoveAll(dir)
	path := dir + "/root.img"
	assert.Nil(t, boltfs.Format(path, boltfs.FormatOptions{DirectoryType: true}))

	assert.Nil(t, RegisterDefaults(Options{CacheSize: 16}))
	defer Shutdown()
	id, err := AttachImage(path, false)
	assert.Nil(t, err)
	assert.Equal(t, id.Major, uint32(LoopMajor))
	_, err = AttachImage(dir+"/missing.img", false)
	assert.Equal(t, errno.Of(err), errno.ENODEV)

	assert.Nil(t, Init(&id))
	mp := file.RootMountPoint()
	assert.Equal(t, mp.GetFilesystem().GetName(), boltfs.Name)

	mkdir(t, "/tmp")
	_, err = Mount(file.NoDevSource(tmpfs.Name), "/tmp", tmpfs.Name, false, perm.Kernel)
	assert.Nil(t, err)
	mkdir(t, "/tmp/x")
	assert.Equal(t, len(file.ListMountPoints()), 2)
	Shutdown()
	assert.True(t, !IsInit())

	id, err = AttachImage(path, true)
	assert.Nil(t, err)
	assert.Nil(t, Init(&id))
	root, err := file.GetFileFromPath(file.RootPath(), perm.Kernel, true)
	assert.Nil(t, err)
	entries, err := file.ListDirectory(root, perm.Kernel)
	assert.Nil(t, err)
	assert.Equal(t, len(entries), 1)
	assert.Equal(t, entries[0].Name, "tmp")
	_, err = file.GetFileFromPath(file.MustParsePath("/tmp/x"), perm.Kernel, true)
	assert.Equal(t, errno.Of(err), errno.ENOENT)
}
