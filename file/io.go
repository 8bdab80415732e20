/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Thu Mar 29 15:02:37 2018 mstenber
 * Last modified: Mon Apr  9 14:52:20 2018 mstenber
 * Edit time:     63 min
 *
 */

package file

import (
	"github.com/fingon/go-vfscore/buffer"
	"github.com/fingon/go-vfscore/channel"
	"github.com/fingon/go-vfscore/device"
	"github.com/fingon/go-vfscore/errno"
	"github.com/fingon/go-vfscore/mlog"
)

var _ channel.IO = &File{}

// ioTarget is what I/O on a file ends up hitting: either a backend
// node (fs != nil) reached through the mount's channel, or a channel
// of its own. handle is nil if there is nothing to talk to.
type ioTarget struct {
	handle *channel.Handle
	fs     *Filesystem
	node   NodeId
}

func (self *File) ioTarget() (t ioTarget, err error) {
	switch c := self.content.(type) {
	case RegularContent:
		if self.location.IsVirtual() {
			t.handle = buffer.Get(self.location)
			return
		}
		mp := self.location.MountPoint()
		if mp == nil {
			err = errno.Wrapf(errno.EIO, "no mount for %v", self.location)
			return
		}
		t.handle, t.fs, err = mp.Resolve()
		t.node = self.location.GetNode()
	case DirectoryContent:
		err = errno.Wrapf(errno.EISDIR, "%s", self.name)
	case LinkContent:
		err = errno.Wrapf(errno.EINVAL, "%s is a link", self.name)
	case FifoContent:
		t.handle = buffer.GetOrDefault(self.location, buffer.NewPipeBuffer)
	case SocketContent:
		t.handle = buffer.GetOrDefault(self.location, buffer.NewSocket)
	case BlockDeviceContent:
		t.handle, err = deviceHandle(device.ID{Type: device.Block, Major: c.Major, Minor: c.Minor})
	case CharDeviceContent:
		t.handle, err = deviceHandle(device.ID{Type: device.Char, Major: c.Major, Minor: c.Minor})
	default:
		err = errno.Wrapf(errno.EINVAL, "unknown content %T", c)
	}
	return
}

func deviceHandle(id device.ID) (*channel.Handle, error) {
	d, err := device.Get(id)
	if err != nil {
		return nil, err
	}
	return d.Handle, nil
}

// Read reads from off into buf. For backend-stored files, end of file
// is reported once off+n reaches the size as the backend has it now.
// An open file whose content was snapshotted reads the snapshot.
func (self *File) Read(off uint64, buf []byte) (n uint64, eof bool, err error) {
	mlog.Printf2("file/io", "Read %v %s @%d #%d", self.location, self.name, off, len(buf))
	if self.cached != nil {
		defer self.cached.Locked()()
		return self.cached.Get().Read(off, buf)
	}
	t, err := self.ioTarget()
	if err != nil {
		return
	}
	if t.handle == nil {
		return 0, true, nil
	}
	defer t.handle.Locked()()
	if t.fs == nil {
		return t.handle.Get().Read(off, buf)
	}
	defer t.fs.Locked()()
	io := t.handle.Get()
	n, err = t.fs.Read(io, t.node, off, buf)
	if err != nil {
		return 0, false, err
	}
	if !self.IsDirty(AttrSize) {
		fresh, err := t.fs.Load(io, t.node, self.name)
		if err != nil {
			return 0, false, err
		}
		self.size = fresh.size
	}
	eof = off+n >= self.size
	self.Atime = Now()
	return
}

// Write writes buf at off. The size becomes max(off+n, size).
func (self *File) Write(off uint64, buf []byte) (n uint64, err error) {
	mlog.Printf2("file/io", "Write %v %s @%d #%d", self.location, self.name, off, len(buf))
	t, err := self.ioTarget()
	if err != nil {
		return
	}
	if t.handle == nil {
		return 0, nil
	}
	n, err = func() (uint64, error) {
		defer t.handle.Locked()()
		if t.fs == nil {
			return t.handle.Get().Write(off, buf)
		}
		defer t.fs.Locked()()
		if t.fs.IsReadonly() {
			return 0, errno.Wrapf(errno.EROFS, "write %s", self.name)
		}
		if err := t.fs.Write(t.handle.Get(), t.node, off, buf); err != nil {
			return 0, err
		}
		return uint64(len(buf)), nil
	}()
	if err != nil {
		return
	}
	if off+n > self.size {
		self.size = off + n
	}
	self.Mtime = Now()
	return
}

func (self *File) Poll(mask uint32) (uint32, error) {
	t, err := self.ioTarget()
	if err != nil {
		return 0, err
	}
	if t.handle == nil {
		return 0, nil
	}
	defer t.handle.Locked()()
	return t.handle.Get().Poll(mask)
}

// Sync flushes the metadata changed through this instance to the
// backend, if there is one. Fields nobody changed here are left as
// the backend has them.
func (self *File) Sync() error {
	if self.dirty == 0 {
		return nil
	}
	mp := self.location.MountPoint()
	if mp == nil {
		return nil
	}
	h, fs, err := mp.Resolve()
	if err != nil {
		return err
	}
	defer h.Locked()()
	defer fs.Locked()()
	if fs.IsReadonly() {
		return errno.Wrapf(errno.EROFS, "sync %s", self.name)
	}
	mlog.Printf2("file/io", "Sync %v %s dirty:%x", self.location, self.name, self.dirty)
	if err := fs.Update(h.Get(), self); err != nil {
		return err
	}
	self.dirty = 0
	return nil
}
