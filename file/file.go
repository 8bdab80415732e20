/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Thu Mar 29 13:20:44 2018 mstenber
 * Last modified: Mon Apr  9 14:40:12 2018 mstenber
 * Edit time:     96 min
 *
 */

// file is the core of the VFS: the in-memory file entity and its I/O
// dispatch, the backend contract and registry, the mount table, and
// the path-level operations built on top of them.
package file

import (
	"runtime"
	"sync/atomic"
	"time"

	"github.com/fingon/go-vfscore/channel"
	"github.com/fingon/go-vfscore/errno"
	"github.com/fingon/go-vfscore/mlog"
	"github.com/fingon/go-vfscore/perm"
	"github.com/fingon/go-vfscore/util"
)

// Timestamp is in seconds since the epoch.
type Timestamp uint64

func Now() Timestamp {
	return Timestamp(time.Now().Unix())
}

// Attr is a set of metadata fields changed in memory that Sync has
// yet to flush to the backend.
type Attr uint8

const (
	AttrMode Attr = 1 << iota
	AttrOwner
	AttrTimes
	AttrSize
)

// File is the in-memory representation of any node. Its own lock is
// for callers that share one instance (see Open); the backend is the
// authority on persistent state and serializes access to it.
type File struct {
	util.MutexLocked

	name       string
	parentPath Path

	nlink uint16

	// BlocksCount is the number of blocks allocated for the file.
	BlocksCount uint64
	size        uint64

	uid, gid uint32
	mode     uint32

	Ctime, Mtime, Atime Timestamp

	location Location
	content  Content

	dirty  Attr
	cached *channel.Handle

	deferredRemove bool
	removed        bool
	refs           int32
}

var _ perm.Object = &File{}

// NewFile creates a file with one hard link and one reference. The
// content determines the kind.
func NewFile(name string, uid, gid, mode uint32, location Location, content Content) *File {
	now := Now()
	f := &File{name: name,
		parentPath: RootPath(),
		nlink:      1,
		uid:        uid,
		gid:        gid,
		mode:       mode & perm.PermMask,
		Ctime:      now,
		Mtime:      now,
		Atime:      now,
		location:   location,
		content:    content,
		refs:       1}
	runtime.SetFinalizer(f, (*File).finalize)
	return f
}

func (self *File) GetName() string {
	return self.name
}

func (self *File) GetParentPath() Path {
	return self.parentPath
}

// SetParentPath sets the absolute path of the parent directory.
func (self *File) SetParentPath(p Path) {
	self.parentPath = p
}

// GetPath returns the absolute path of the file.
func (self *File) GetPath() Path {
	return self.parentPath.Join(self.name)
}

// GetMode returns both type and permission bits.
func (self *File) GetMode() uint32 {
	return self.mode | self.GetType().Mode()
}

func (self *File) GetPermissions() uint32 {
	return self.mode & perm.PermMask
}

func (self *File) SetPermissions(mode uint32) {
	self.mode = mode & perm.PermMask
	self.Ctime = Now()
	self.dirty |= AttrMode
}

func (self *File) GetLocation() Location {
	return self.location
}

// SetLocation is used when a node materialized by a backend gets
// bound to the mount it was found through.
func (self *File) SetLocation(location Location) {
	self.location = location
}

func (self *File) GetHardLinksCount() uint16 {
	return self.nlink
}

func (self *File) SetHardLinksCount(count uint16) {
	self.nlink = count
	self.Ctime = Now()
}

func (self *File) GetSize() uint64 {
	return self.size
}

// SetSize records the size as the backend knows it; use Resize to
// change it.
func (self *File) SetSize(size uint64) {
	self.size = size
}

// Resize changes the size; the next Sync truncates or extends the
// node on the backend.
func (self *File) Resize(size uint64) {
	self.size = size
	self.Mtime = Now()
	self.Ctime = self.Mtime
	self.dirty |= AttrSize | AttrTimes
}

// IsDirty tells whether any of attr was changed since the last Sync.
func (self *File) IsDirty(attr Attr) bool {
	return self.dirty&attr != 0
}

func (self *File) GetUid() uint32 {
	return self.uid
}

func (self *File) SetUid(uid uint32) {
	self.uid = uid
	self.Ctime = Now()
	self.dirty |= AttrOwner
}

func (self *File) GetGid() uint32 {
	return self.gid
}

func (self *File) SetGid(gid uint32) {
	self.gid = gid
	self.Ctime = Now()
	self.dirty |= AttrOwner
}

func (self *File) GetContent() Content {
	return self.content
}

func (self *File) GetType() Kind {
	return self.content.Kind()
}

func (self *File) IsRegular() bool {
	return self.GetType() == Regular
}

func (self *File) IsDirectory() bool {
	return self.GetType() == Directory
}

// GetDevice returns major and minor of device nodes.
func (self *File) GetDevice() (major, minor uint32, ok bool) {
	switch c := self.content.(type) {
	case BlockDeviceContent:
		return c.Major, c.Minor, true
	case CharDeviceContent:
		return c.Major, c.Minor, true
	}
	return
}

func (self *File) IsEmptyDirectory() (bool, error) {
	d, ok := self.content.(DirectoryContent)
	if !ok {
		return false, errno.Wrapf(errno.ENOTDIR, "%s", self.name)
	}
	return len(d.Entries) == 0, nil
}

func (self *File) AddEntry(name string, entry DirEntry) error {
	d, ok := self.content.(DirectoryContent)
	if !ok {
		return errno.Wrapf(errno.ENOTDIR, "%s", self.name)
	}
	d.Entries[name] = entry
	return nil
}

func (self *File) RemoveEntry(name string) error {
	d, ok := self.content.(DirectoryContent)
	if !ok {
		return errno.Wrapf(errno.ENOTDIR, "%s", self.name)
	}
	delete(d.Entries, name)
	return nil
}

// AsDirEntry returns the entry a parent directory keeps of this file.
func (self *File) AsDirEntry() DirEntry {
	return DirEntry{Node: self.location.GetNode(), Kind: self.GetType()}
}

// DeferRemove marks the file to be removed once it is closed or its
// last reference is released.
func (self *File) DeferRemove() {
	self.deferredRemove = true
}

func (self *File) IsRemoveDeferred() bool {
	return self.deferredRemove
}

// Refer adds a reference.
func (self *File) Refer() *File {
	atomic.AddInt32(&self.refs, 1)
	return self
}

// Release drops a reference. When the last one goes, a deferred
// removal is carried out; its failure has nobody to go to and is
// only logged.
func (self *File) Release() {
	refs := atomic.AddInt32(&self.refs, -1)
	if refs < 0 {
		mlog.Warnf("file %s released too many times", self.name)
		return
	}
	if refs == 0 {
		self.finalize()
	}
}

// Close ends one open handle of the file (see Open). Once the last
// one is gone, a deferred removal is carried out and its failure
// reported.
func (self *File) Close() error {
	if !self.closeOpen() {
		return nil
	}
	if !self.deferredRemove || self.removed {
		return nil
	}
	mlog.Printf2("file/file", "Close %v removing %s", self.location, self.name)
	if err := RemoveFile(self, perm.Kernel); err != nil {
		return err
	}
	self.removed = true
	return nil
}

func (self *File) finalize() {
	if !self.deferredRemove || self.removed {
		return
	}
	self.removed = true
	mlog.Printf2("file/file", "finalize %v removing %s", self.location, self.name)
	if err := RemoveFile(self, perm.Kernel); err != nil {
		mlog.Warnf("deferred removal of %s failed: %v", self.GetPath(), err)
	}
}
