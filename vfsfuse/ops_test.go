/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Thu Apr 12 15:43:45 2018 mstenber
 * Last modified: Sat Apr 14 12:06:16 2018 mstenber
 * Edit time:     48 min
 *
 */

package vfsfuse

import (
	"os"
	"strings"
	"syscall"
	"testing"

	"github.com/fingon/go-vfscore/errno"
	"github.com/fingon/go-vfscore/file"
	"github.com/fingon/go-vfscore/fs/procfs"
	"github.com/fingon/go-vfscore/perm"
	"github.com/fingon/go-vfscore/vfs"
	"github.com/hanwen/go-fuse/fuse"
	"github.com/stvp/assert"
)

func setup(t *testing.T) *Ops {
	assert.Nil(t, vfs.RegisterDefaults(vfs.Options{}))
	assert.Nil(t, vfs.Init(nil))
	return NewOps()
}

// ProdFs exercises the filesystem through the FUSE operations,
// trying to go for as high coverage as possible.
//
// NOTE: The filesystem HAS to be empty to start with.
func ProdFs(t *testing.T, ops *Ops) {
	root := NewFSUser(ops, 0, 0)
	arr, err := root.ReadDir("/")
	assert.Nil(t, err)
	assert.Equal(t, len(arr), 0)

	assert.Nil(t, root.Mkdir("/public", 0777))
	assert.Nil(t, root.Mkdir("/private", 0700))
	assert.Nil(t, root.Mkdir("/nobody", 0))

	arr, err = root.ReadDir("/")
	assert.Nil(t, err)
	assert.Equal(t, len(arr), 3)
	assert.Equal(t, arr[0].Name(), "nobody")
	assert.Equal(t, arr[1].Name(), "private")
	assert.Equal(t, arr[2].Name(), "public")
	assert.Equal(t, arr[2].Mode(), os.ModeDir|0777)

	assert.Nil(t, root.Mkdir("/goat", 0777))
	fi, err := root.Lstat("/goat")
	assert.Nil(t, err)
	assert.True(t, fi.IsDir())
	assert.Equal(t, fi.Name(), "goat")
	assert.Nil(t, root.Remove("/goat"))
	_, err = root.Lstat("/goat")
	assert.Equal(t, errno.Of(err), errno.ENOENT)
	assert.Equal(t, errno.Of(root.Remove("/asdf")), errno.ENOENT)
}

func TestOps(t *testing.T) {
	ops := setup(t)
	defer vfs.Shutdown()
	ProdFs(t, ops)

	root := NewFSUser(ops, 0, 0)
	u1 := NewFSUser(ops, 1, 1)
	u2 := NewFSUser(ops, 2, 2)

	assert.Nil(t, u1.WriteFile("/public/a", []byte("0123456789"), 0644))
	assert.Equal(t, errno.Of(u1.WriteFile("/public/a", nil, 0644)), errno.EEXIST)
	assert.Equal(t, errno.Of(u1.WriteFile("/private/a", nil, 0644)), errno.EACCES)

	b, err := u2.ReadFile("/public/a")
	assert.Nil(t, err)
	assert.Equal(t, string(b), "0123456789")
	assert.Nil(t, u2.Access("/public/a", fuse.R_OK))
	assert.Equal(t, errno.Of(u2.Access("/public/a", fuse.W_OK)), errno.EACCES)

	assert.Equal(t, errno.Of(u2.Chmod("/public/a", 0666)), errno.EPERM)
	assert.Nil(t, u1.Chmod("/public/a", 0600))
	_, err = u2.ReadFile("/public/a")
	assert.Equal(t, errno.Of(err), errno.EACCES)
	b, err = u1.ReadFile("/public/a")
	assert.Nil(t, err)
	assert.Equal(t, len(b), 10)

	assert.Nil(t, u1.Symlink("a", "/public/l"))
	s, err := u2.Readlink("/public/l")
	assert.Nil(t, err)
	assert.Equal(t, s, "a")
	fi, err := u2.Lstat("/public/l")
	assert.Nil(t, err)
	assert.Equal(t, fi.Mode()&os.ModeSymlink, os.ModeSymlink)
	_, err = u1.Readlink("/public/a")
	assert.Equal(t, errno.Of(err), errno.EINVAL)

	assert.Equal(t, errno.Of(root.Remove("/public")), errno.ENOTEMPTY)
	assert.Nil(t, u1.Remove("/public/l"))

	_, err = u1.ListDir("/private")
	assert.Equal(t, errno.Of(err), errno.EACCES)
	l, err := u1.ListDir("/public")
	assert.Nil(t, err)
	assert.Equal(t, l, []string{"a"})

	var so fuse.StatfsOut
	assert.Equal(t, ops.StatFs(&fuse.InHeader{NodeId: fuse.FUSE_ROOT_ID}, &so), fuse.OK)
	assert.Equal(t, so.NameLen, uint32(file.NameMax))
}

func TestNodes(t *testing.T) {
	ops := setup(t)
	defer vfs.Shutdown()
	root := NewFSUser(ops, 0, 0)
	assert.Nil(t, root.Mkdir("/d", 0755))

	var eo fuse.EntryOut
	ih := fuse.InHeader{NodeId: fuse.FUSE_ROOT_ID}
	assert.Equal(t, ops.Lookup(&ih, "d", &eo), fuse.OK)
	id := eo.NodeId
	assert.Equal(t, ops.Lookup(&ih, "d", &eo), fuse.OK)
	assert.Equal(t, eo.NodeId, id)
	assert.Equal(t, ops.Lookup(&ih, "nope", &eo), fuse.ENOENT)

	var ao fuse.AttrOut
	assert.Equal(t, ops.GetAttr(&fuse.GetAttrIn{InHeader: fuse.InHeader{NodeId: id}}, &ao), fuse.OK)
	assert.Equal(t, ao.Mode, uint32(syscall.S_IFDIR|0755))
	assert.Equal(t, ao.Nlink, uint32(2))

	// Mkdir referred the node once, and the two lookups twice more
	ops.Forget(id, 2)
	assert.Equal(t, ops.GetAttr(&fuse.GetAttrIn{InHeader: fuse.InHeader{NodeId: id}}, &ao), fuse.OK)
	ops.Forget(id, 1)
	assert.Equal(t, ops.GetAttr(&fuse.GetAttrIn{InHeader: fuse.InHeader{NodeId: id}}, &ao), fuse.ENOENT)
	ops.Forget(fuse.FUSE_ROOT_ID, 1)
	assert.Equal(t, ops.GetAttr(&fuse.GetAttrIn{InHeader: fuse.InHeader{NodeId: fuse.FUSE_ROOT_ID}}, &ao), fuse.OK)

	in := fuse.MknodIn{InHeader: ih, Mode: syscall.S_IFIFO | 0644}
	assert.Equal(t, ops.Mknod(&in, "fifo", &eo), fuse.OK)
	assert.Equal(t, eo.Mode, uint32(syscall.S_IFIFO|0644))
	in.Mode = syscall.S_IFDIR | 0755
	assert.Equal(t, ops.Mknod(&in, "dir", &eo), fuse.EINVAL)
	assert.Equal(t, ops.Rmdir(&ih, "fifo"), fuse.ENOTDIR)
	assert.Equal(t, ops.Unlink(&ih, "d"), eisdir)
	assert.Equal(t, ops.Unlink(&ih, "fifo"), fuse.OK)

	_, code := ops.Read(&fuse.ReadIn{Fh: 4242}, nil)
	assert.Equal(t, code, ebadf)
}

func TestUnlinkWhileOpen(t *testing.T) {
	ops := setup(t)
	defer vfs.Shutdown()
	ih := fuse.InHeader{NodeId: fuse.FUSE_ROOT_ID}
	var co fuse.CreateOut
	assert.Equal(t, ops.Create(&fuse.CreateIn{InHeader: ih, Mode: 0644}, "f", &co), fuse.OK)
	fh1 := co.Fh
	var oo fuse.OpenOut
	oi := fuse.OpenIn{InHeader: fuse.InHeader{NodeId: co.NodeId}, Flags: uint32(os.O_RDWR)}
	assert.Equal(t, ops.Open(&oi, &oo), fuse.OK)
	fh2 := oo.Fh

	n, code := ops.Write(&fuse.WriteIn{Fh: fh1}, []byte("0123456789"))
	assert.Equal(t, code, fuse.OK)
	assert.Equal(t, n, uint32(10))
	// Syncing the other handle must not lose the write.
	assert.Equal(t, ops.Fsync(&fuse.FsyncIn{Fh: fh2}), fuse.OK)

	assert.Equal(t, ops.Unlink(&ih, "f"), fuse.OK)
	ops.Release(&fuse.ReleaseIn{Fh: fh1})
	buf := make([]byte, 16)
	res, code := ops.Read(&fuse.ReadIn{Fh: fh2}, buf)
	assert.Equal(t, code, fuse.OK)
	assert.Equal(t, res.Size(), 10)
	assert.Equal(t, string(buf[:10]), "0123456789")

	ops.Release(&fuse.ReleaseIn{Fh: fh2})
	var eo fuse.EntryOut
	assert.Equal(t, ops.Lookup(&ih, "f", &eo), fuse.ENOENT)
}

func TestMountedProc(t *testing.T) {
	ops := setup(t)
	defer vfs.Shutdown()
	root := NewFSUser(ops, 0, 0)
	assert.Nil(t, root.Mkdir("/proc", 0555))
	_, err := vfs.Mount(file.NoDevSource(procfs.Name), "/proc", "", false, perm.Kernel)
	assert.Nil(t, err)

	u1 := NewFSUser(ops, 1, 1)
	l, err := u1.ListDir("/proc")
	assert.Nil(t, err)
	assert.Equal(t, l, []string{"filesystems", "mounts", "uptime", "version"})
	b, err := u1.ReadFile("/proc/filesystems")
	assert.Nil(t, err)
	assert.True(t, strings.Contains(string(b), "nodev\ttmpfs"), string(b))
	assert.Equal(t, errno.Of(u1.Chmod("/proc/version", 0777)), errno.EPERM)
	assert.Equal(t, errno.Of(root.Chmod("/proc/version", 0777)), errno.EROFS)
	assert.Equal(t, errno.Of(root.WriteFile("/proc/x", nil, 0644)), errno.EROFS)
}
