/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Thu Apr 12 15:39:36 2018 mstenber
 * Last modified: Sat Apr 14 11:40:02 2018 mstenber
 * Edit time:     61 min
 *
 */

package vfsfuse

import (
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/fingon/go-vfscore/errno"
	"github.com/fingon/go-vfscore/mlog"
	"github.com/hanwen/go-fuse/fuse"
)

// s2e maps a status back onto the errno it came from.
func s2e(status fuse.Status) error {
	if !status.Ok() {
		return errno.Wrapf(errno.Errno(status), "%s", status.String())
	}
	return nil
}

// FSUser provides ~os module functionality across the raw FUSE
// operations, as the given user. It does NOT mount anything; it is
// used for testing (parallel tests, arbitrary permission simulation
// with non-root users).
type FSUser struct {
	fuse.InHeader
	ops *Ops
}

type fileInfo struct {
	name  string
	size  int64
	mode  os.FileMode
	mtime time.Time
}

func (self *fileInfo) Name() string {
	return self.name
}

func (self *fileInfo) Size() int64 {
	return self.size
}

func (self *fileInfo) Mode() os.FileMode {
	return self.mode
}

func (self *fileInfo) ModTime() time.Time {
	return self.mtime
}

func (self *fileInfo) IsDir() bool {
	return self.Mode().IsDir()
}

func (self *fileInfo) Sys() interface{} {
	return nil
}

func fileModeFromFuse(mode uint32) os.FileMode {
	r := os.FileMode(mode) & os.ModePerm
	switch mode & syscall.S_IFMT {
	case syscall.S_IFDIR:
		r |= os.ModeDir
	case syscall.S_IFLNK:
		r |= os.ModeSymlink
	case syscall.S_IFIFO:
		r |= os.ModeNamedPipe
	case syscall.S_IFCHR:
		r |= os.ModeDevice | os.ModeCharDevice
	case syscall.S_IFBLK:
		r |= os.ModeDevice
	case syscall.S_IFSOCK:
		r |= os.ModeSocket
	}
	return r
}

func NewFSUser(ops *Ops, uid, gid uint32) *FSUser {
	self := &FSUser{ops: ops}
	self.Uid = uid
	self.Gid = gid
	return self
}

func (self *FSUser) lookup(path string, eo *fuse.EntryOut) (err error) {
	inode := uint64(fuse.FUSE_ROOT_ID)
	for _, name := range strings.Split(path, "/") {
		if name == "" {
			continue
		}
		self.NodeId = inode
		err = s2e(self.ops.Lookup(&self.InHeader, name, eo))
		if err != nil {
			return
		}
		inode = eo.NodeId
	}
	self.NodeId = inode
	err = s2e(self.ops.Lookup(&self.InHeader, ".", eo))
	return
}

func (self *FSUser) ListDir(name string) (ret []string, err error) {
	var eo fuse.EntryOut
	err = self.lookup(name, &eo)
	if err != nil {
		return
	}
	var oo fuse.OpenOut
	err = s2e(self.ops.OpenDir(&fuse.OpenIn{InHeader: self.InHeader}, &oo))
	if err != nil {
		return
	}
	defer self.ops.ReleaseDir(&fuse.ReleaseIn{Fh: oo.Fh, InHeader: self.InHeader})
	del := fuse.NewDirEntryList(make([]byte, 1000), 0)
	err = s2e(self.ops.ReadDir(&fuse.ReadIn{Fh: oo.Fh,
		InHeader: self.InHeader}, del))
	if err != nil {
		return
	}
	err = s2e(self.ops.ReadDirPlus(&fuse.ReadIn{Fh: oo.Fh,
		InHeader: self.InHeader}, del))
	if err != nil {
		return
	}
	// DirEntryList is write-only; cheat using backdoor API.
	ret = self.ops.ListDir(eo.NodeId)
	return
}

// ReadDir is clone of ioutil.ReadDir
func (self *FSUser) ReadDir(dirname string) (ret []os.FileInfo, err error) {
	mlog.Printf2("vfsfuse/user", "ReadDir %s", dirname)
	l, err := self.ListDir(dirname)
	if err != nil {
		return
	}
	ret = make([]os.FileInfo, len(l))
	for i, n := range l {
		ret[i], err = self.Lstat(filepath.Join(dirname, n))
		if err != nil {
			return
		}
	}
	return
}

// Mkdir is clone of os.Mkdir
func (self *FSUser) Mkdir(path string, perm os.FileMode) (err error) {
	dirname, basename := filepath.Split(path)
	var eo fuse.EntryOut
	err = self.lookup(dirname, &eo)
	if err != nil {
		return
	}
	return s2e(self.ops.Mkdir(&fuse.MkdirIn{InHeader: self.InHeader,
		Mode: uint32(perm)}, basename, &eo))
}

// Lstat is clone of os.Lstat
func (self *FSUser) Lstat(path string) (fi os.FileInfo, err error) {
	var eo fuse.EntryOut
	err = self.lookup(path, &eo)
	if err != nil {
		return
	}
	_, basename := filepath.Split(path)
	fi = &fileInfo{name: basename,
		size:  int64(eo.Size),
		mode:  fileModeFromFuse(eo.Mode),
		mtime: time.Unix(int64(eo.Mtime), int64(eo.Mtimensec))}
	return
}

// Remove is clone of os.Remove
func (self *FSUser) Remove(path string) (err error) {
	fi, err := self.Lstat(path)
	if err != nil {
		return
	}
	dirname, basename := filepath.Split(path)
	var eo fuse.EntryOut
	err = self.lookup(dirname, &eo)
	if err != nil {
		return
	}
	if fi.IsDir() {
		return s2e(self.ops.Rmdir(&self.InHeader, basename))
	}
	return s2e(self.ops.Unlink(&self.InHeader, basename))
}

// WriteFile is clone of ioutil.WriteFile; the file must not exist.
func (self *FSUser) WriteFile(path string, data []byte, perm os.FileMode) (err error) {
	dirname, basename := filepath.Split(path)
	var eo fuse.EntryOut
	err = self.lookup(dirname, &eo)
	if err != nil {
		return
	}
	var co fuse.CreateOut
	err = s2e(self.ops.Create(&fuse.CreateIn{InHeader: self.InHeader,
		Flags: uint32(os.O_WRONLY | os.O_CREATE | os.O_EXCL),
		Mode:  uint32(perm)}, basename, &co))
	if err != nil {
		return
	}
	defer self.ops.Release(&fuse.ReleaseIn{Fh: co.Fh, InHeader: self.InHeader})
	n, code := self.ops.Write(&fuse.WriteIn{InHeader: self.InHeader,
		Fh: co.Fh}, data)
	err = s2e(code)
	if err == nil && int(n) != len(data) {
		err = errno.Wrapf(errno.EIO, "short write %d", n)
	}
	return
}

// ReadFile is clone of ioutil.ReadFile
func (self *FSUser) ReadFile(path string) (b []byte, err error) {
	var eo fuse.EntryOut
	err = self.lookup(path, &eo)
	if err != nil {
		return
	}
	var oo fuse.OpenOut
	err = s2e(self.ops.Open(&fuse.OpenIn{InHeader: self.InHeader,
		Flags: uint32(os.O_RDONLY)}, &oo))
	if err != nil {
		return
	}
	defer self.ops.Release(&fuse.ReleaseIn{Fh: oo.Fh, InHeader: self.InHeader})
	buf := make([]byte, eo.Size)
	rr, code := self.ops.Read(&fuse.ReadIn{InHeader: self.InHeader,
		Fh: oo.Fh, Size: uint32(len(buf))}, buf)
	err = s2e(code)
	if err != nil {
		return
	}
	b, code = rr.Bytes(buf)
	return b, s2e(code)
}

// Symlink is clone of os.Symlink
func (self *FSUser) Symlink(oldname, newname string) (err error) {
	dirname, basename := filepath.Split(newname)
	var eo fuse.EntryOut
	err = self.lookup(dirname, &eo)
	if err != nil {
		return
	}
	return s2e(self.ops.Symlink(&self.InHeader, oldname, basename, &eo))
}

// Readlink is clone of os.Readlink
func (self *FSUser) Readlink(path string) (s string, err error) {
	var eo fuse.EntryOut
	err = self.lookup(path, &eo)
	if err != nil {
		return
	}
	b, code := self.ops.Readlink(&self.InHeader)
	return string(b), s2e(code)
}

// Chmod is clone of os.Chmod
func (self *FSUser) Chmod(path string, mode os.FileMode) (err error) {
	var eo fuse.EntryOut
	err = self.lookup(path, &eo)
	if err != nil {
		return
	}
	var ao fuse.AttrOut
	return s2e(self.ops.SetAttr(&fuse.SetAttrIn{
		SetAttrInCommon: fuse.SetAttrInCommon{InHeader: self.InHeader,
			Valid: fuse.FATTR_MODE,
			Mode:  uint32(mode)}}, &ao))
}

// Access is clone of unix.Access
func (self *FSUser) Access(path string, mask uint32) (err error) {
	var eo fuse.EntryOut
	err = self.lookup(path, &eo)
	if err != nil {
		return
	}
	return s2e(self.ops.Access(&fuse.AccessIn{InHeader: self.InHeader,
		Mask: mask}))
}
