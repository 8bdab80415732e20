/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Wed Apr  4 09:30:12 2018 mstenber
 * Last modified: Thu Apr 12 10:05:51 2018 mstenber
 * Edit time:     102 min
 *
 */

// tmpfs is the in-memory temporary filesystem. Everything lives in
// maps; nothing survives unmounting.
package tmpfs

import (
	"github.com/fingon/go-vfscore/channel"
	"github.com/fingon/go-vfscore/errno"
	"github.com/fingon/go-vfscore/file"
	"github.com/fingon/go-vfscore/mlog"
)

const Name = "tmpfs"

// Magic is the statfs type of tmpfs.
const Magic = 0x01021994

const blockSize = 4096

// RootMode is the mode of the root directory of a fresh tmpfs.
const RootMode = 0o777

type node struct {
	uid, gid, mode      uint32
	nlink               uint16
	ctime, mtime, atime file.Timestamp
	content             file.Content
	data                []byte
}

func (self *node) isDir() bool {
	return self.content.Kind() == file.Directory
}

func (self *node) entries() map[string]file.DirEntry {
	return self.content.(file.DirectoryContent).Entries
}

// Tmpfs is a mounted tmpfs instance. Callers serialize access (see
// file.Filesystem).
type Tmpfs struct {
	readonly bool
	capacity uint64
	used     uint64
	nodes    map[file.NodeId]*node
	nextId   file.NodeId
	root     file.NodeId
}

var _ file.Backend = &Tmpfs{}

// New returns an empty tmpfs. capacity limits stored file data in
// bytes; zero means unlimited.
func New(capacity uint64, readonly bool) *Tmpfs {
	self := &Tmpfs{readonly: readonly,
		capacity: capacity,
		nodes:    make(map[file.NodeId]*node),
		nextId:   1}
	self.root = self.addNode(0, 0, RootMode, file.NewDirectoryContent())
	self.nodes[self.root].nlink = 2
	return self
}

func (self *Tmpfs) addNode(uid, gid, mode uint32, content file.Content) file.NodeId {
	now := file.Now()
	id := self.nextId
	self.nextId++
	n := &node{uid: uid, gid: gid, mode: mode & 0o7777,
		nlink:   1,
		ctime:   now,
		mtime:   now,
		atime:   now,
		content: content}
	if n.isDir() {
		n.nlink = 2
	}
	self.nodes[id] = n
	return id
}

func (self *Tmpfs) getNode(id file.NodeId) (*node, error) {
	n, ok := self.nodes[id]
	if !ok {
		return nil, errno.Wrapf(errno.ENOENT, "tmpfs node %d", id)
	}
	return n, nil
}

func (self *Tmpfs) getDir(id file.NodeId) (*node, error) {
	n, err := self.getNode(id)
	if err != nil {
		return nil, err
	}
	if !n.isDir() {
		return nil, errno.Wrapf(errno.ENOTDIR, "tmpfs node %d", id)
	}
	return n, nil
}

func (self *Tmpfs) checkWritable() error {
	if self.readonly {
		return errno.Wrapf(errno.EROFS, "tmpfs")
	}
	return nil
}

func (self *Tmpfs) GetName() string {
	return Name
}

func (self *Tmpfs) IsReadonly() bool {
	return self.readonly
}

func (self *Tmpfs) MustCache() bool {
	return false
}

func (self *Tmpfs) GetStat(io channel.IO) (file.Statfs, error) {
	st := file.Statfs{Type: Magic,
		Bsize:   blockSize,
		Frsize:  blockSize,
		Namelen: file.NameMax,
		Files:   int64(len(self.nodes))}
	used := int64((self.used + blockSize - 1) / blockSize)
	if self.capacity > 0 {
		st.Blocks = int64(self.capacity / blockSize)
		st.Bfree = st.Blocks - used
		if st.Bfree < 0 {
			st.Bfree = 0
		}
	} else {
		st.Blocks = used
	}
	st.Bavail = st.Bfree
	return st, nil
}

func (self *Tmpfs) GetRootNode(io channel.IO) (file.NodeId, error) {
	return self.root, nil
}

func (self *Tmpfs) Lookup(io channel.IO, parent *file.NodeId, name string) (file.NodeId, error) {
	pid := self.root
	if parent != nil {
		pid = *parent
	}
	p, err := self.getDir(pid)
	if err != nil {
		return 0, err
	}
	e, ok := p.entries()[name]
	if !ok {
		return 0, errno.Wrapf(errno.ENOENT, "%s", name)
	}
	return e.Node, nil
}

func (self *Tmpfs) Load(io channel.IO, id file.NodeId, name string) (*file.File, error) {
	n, err := self.getNode(id)
	if err != nil {
		return nil, err
	}
	f := file.NewFile(name, n.uid, n.gid, n.mode, file.OnBackend(0, id), file.CloneContent(n.content))
	f.SetHardLinksCount(n.nlink)
	size := uint64(len(n.data))
	if link, ok := n.content.(file.LinkContent); ok {
		size = uint64(len(link.Target))
	}
	f.SetSize(size)
	f.BlocksCount = (uint64(len(n.data)) + 511) / 512
	f.Ctime, f.Mtime, f.Atime = n.ctime, n.mtime, n.atime
	return f, nil
}

func (self *Tmpfs) Create(io channel.IO, parent file.NodeId, name string, uid, gid, mode uint32, content file.Content) (*file.File, error) {
	mlog.Printf2("fs/tmpfs/tmpfs", "Create %d %s", parent, name)
	if err := self.checkWritable(); err != nil {
		return nil, err
	}
	p, err := self.getDir(parent)
	if err != nil {
		return nil, err
	}
	if _, ok := p.entries()[name]; ok {
		return nil, errno.Wrapf(errno.EEXIST, "%s", name)
	}
	id := self.addNode(uid, gid, mode, file.CloneContent(content))
	p.entries()[name] = file.DirEntry{Node: id, Kind: content.Kind()}
	if content.Kind() == file.Directory {
		p.nlink++
	}
	p.mtime = file.Now()
	p.ctime = p.mtime
	return self.Load(io, id, name)
}

func (self *Tmpfs) Link(io channel.IO, parent file.NodeId, name string, id file.NodeId) error {
	if err := self.checkWritable(); err != nil {
		return err
	}
	p, err := self.getDir(parent)
	if err != nil {
		return err
	}
	n, err := self.getNode(id)
	if err != nil {
		return err
	}
	if n.isDir() {
		return errno.Wrapf(errno.EPERM, "hard link to directory")
	}
	if _, ok := p.entries()[name]; ok {
		return errno.Wrapf(errno.EEXIST, "%s", name)
	}
	p.entries()[name] = file.DirEntry{Node: id, Kind: n.content.Kind()}
	n.nlink++
	n.ctime = file.Now()
	return nil
}

func (self *Tmpfs) resize(n *node, size uint64) error {
	old := uint64(len(n.data))
	if size > old && self.capacity > 0 && self.used+size-old > self.capacity {
		return errno.Wrapf(errno.ENOSPC, "tmpfs full")
	}
	if size > old {
		nd := make([]byte, size)
		copy(nd, n.data)
		n.data = nd
	} else {
		n.data = n.data[:size:size]
	}
	self.used = self.used + size - old
	return nil
}

func (self *Tmpfs) Update(io channel.IO, f *file.File) error {
	if err := self.checkWritable(); err != nil {
		return err
	}
	n, err := self.getNode(f.GetLocation().GetNode())
	if err != nil {
		return err
	}
	if f.IsDirty(file.AttrOwner) {
		n.uid, n.gid = f.GetUid(), f.GetGid()
	}
	if f.IsDirty(file.AttrMode) {
		n.mode = f.GetPermissions()
	}
	if f.IsDirty(file.AttrTimes) {
		n.mtime, n.atime = f.Mtime, f.Atime
	}
	n.ctime = f.Ctime
	if f.IsRegular() && f.IsDirty(file.AttrSize) {
		return self.resize(n, f.GetSize())
	}
	return nil
}

func (self *Tmpfs) Unlink(io channel.IO, parent file.NodeId, name string) (uint16, error) {
	mlog.Printf2("fs/tmpfs/tmpfs", "Unlink %d %s", parent, name)
	if err := self.checkWritable(); err != nil {
		return 0, err
	}
	p, err := self.getDir(parent)
	if err != nil {
		return 0, err
	}
	e, ok := p.entries()[name]
	if !ok {
		return 0, errno.Wrapf(errno.ENOENT, "%s", name)
	}
	n, err := self.getNode(e.Node)
	if err != nil {
		return 0, err
	}
	if n.isDir() {
		if len(n.entries()) > 0 {
			return 0, errno.Wrapf(errno.ENOTEMPTY, "%s", name)
		}
		p.nlink--
		n.nlink = 0
	} else {
		n.nlink--
	}
	delete(p.entries(), name)
	p.mtime = file.Now()
	p.ctime = p.mtime
	if n.nlink == 0 {
		self.used -= uint64(len(n.data))
		delete(self.nodes, e.Node)
	}
	return n.nlink, nil
}

func (self *Tmpfs) regular(id file.NodeId) (*node, error) {
	n, err := self.getNode(id)
	if err != nil {
		return nil, err
	}
	switch n.content.Kind() {
	case file.Regular:
		return n, nil
	case file.Directory:
		return nil, errno.Wrapf(errno.EISDIR, "tmpfs node %d", id)
	}
	return nil, errno.Wrapf(errno.EINVAL, "tmpfs node %d", id)
}

func (self *Tmpfs) Read(io channel.IO, id file.NodeId, off uint64, buf []byte) (uint64, error) {
	n, err := self.regular(id)
	if err != nil {
		return 0, err
	}
	if off >= uint64(len(n.data)) {
		return 0, nil
	}
	return uint64(copy(buf, n.data[off:])), nil
}

func (self *Tmpfs) Write(io channel.IO, id file.NodeId, off uint64, buf []byte) error {
	if err := self.checkWritable(); err != nil {
		return err
	}
	n, err := self.regular(id)
	if err != nil {
		return err
	}
	end := off + uint64(len(buf))
	if end > uint64(len(n.data)) {
		if err := self.resize(n, end); err != nil {
			return err
		}
	}
	copy(n.data[off:], buf)
	n.mtime = file.Now()
	return nil
}

// Type is the tmpfs backend type. It never claims a device; tmpfs is
// mounted by name.
type Type struct {
	// Capacity is passed to New for every mount.
	Capacity uint64
}

var _ file.BackendType = Type{}

func (self Type) GetName() string {
	return Name
}

func (self Type) Detect(io channel.IO) (bool, error) {
	return false, nil
}

func (self Type) Mount(io channel.IO, path file.Path, readonly bool) (file.Backend, error) {
	mlog.Printf2("fs/tmpfs/tmpfs", "Mount %v ro:%v", path, readonly)
	return New(self.Capacity, readonly), nil
}

func (self Type) NoDev() bool {
	return true
}
