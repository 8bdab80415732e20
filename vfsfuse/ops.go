/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Thu Apr 12 13:02:43 2018 mstenber
 * Last modified: Sat Apr 14 11:27:36 2018 mstenber
 * Edit time:     212 min
 *
 */

// vfsfuse exports the VFS namespace as a raw FUSE filesystem.
//
// FUSE node ids are handed out per path on Lookup and dropped again
// on Forget; every operation re-resolves the path, so the backends
// remain the only authority on file state.
package vfsfuse

import (
	"os"
	"syscall"

	"github.com/fingon/go-vfscore/device"
	"github.com/fingon/go-vfscore/errno"
	"github.com/fingon/go-vfscore/file"
	"github.com/fingon/go-vfscore/mlog"
	"github.com/fingon/go-vfscore/perm"
	"github.com/fingon/go-vfscore/util"
	. "github.com/hanwen/go-fuse/fuse"
)

const entryValidity = 1
const attrValidity = 1

var ebadf = Status(syscall.EBADF)
var eacces = Status(syscall.EACCES)
var eisdir = Status(syscall.EISDIR)

type node struct {
	path    file.Path
	lookups uint64
}

// handle is an open file or directory. Open files of one node share
// their *file.File, and lock it; the handle lock covers entries.
type handle struct {
	util.MutexLocked
	f       *file.File
	entries []file.NamedEntry
}

type Ops struct {
	RawFileSystem

	util.MutexLocked // protects the rest
	server           *Server
	nodes            map[uint64]*node
	path2node        map[string]uint64
	nextNode         uint64
	handles          map[uint64]*handle
	nextFh           uint64
}

var _ RawFileSystem = &Ops{}

func NewOps() *Ops {
	self := &Ops{RawFileSystem: NewDefaultRawFileSystem(),
		nodes:     make(map[uint64]*node),
		path2node: make(map[string]uint64),
		nextNode:  FUSE_ROOT_ID + 1,
		handles:   make(map[uint64]*handle),
		nextFh:    1}
	root := file.RootPath()
	self.nodes[FUSE_ROOT_ID] = &node{path: root, lookups: 1}
	self.path2node[root.String()] = FUSE_ROOT_ID
	return self
}

func s(err error) Status {
	if err == nil {
		return OK
	}
	return Status(errno.Of(err))
}

func profile(ctx *Context) perm.AccessProfile {
	return perm.NewProfile(ctx.Uid, ctx.Gid)
}

func (self *Ops) Init(server *Server) {
	self.server = server
}

func (self *Ops) String() string {
	return os.Args[0]
}

func (self *Ops) SetDebug(dbg bool) {
}

func (self *Ops) getPath(nodeId uint64) (file.Path, Status) {
	defer self.Locked()()
	n := self.nodes[nodeId]
	if n == nil {
		return file.Path{}, ENOENT
	}
	return n.path, OK
}

// getFile resolves the node. Traversal permissions were checked when
// the node was looked up.
func (self *Ops) getFile(nodeId uint64) (*file.File, Status) {
	p, code := self.getPath(nodeId)
	if !code.Ok() {
		return nil, code
	}
	f, err := file.GetFileFromPath(p, perm.Kernel, false)
	return f, s(err)
}

func (self *Ops) refer(p file.Path) uint64 {
	defer self.Locked()()
	k := p.String()
	id, ok := self.path2node[k]
	if !ok {
		id = self.nextNode
		self.nextNode++
		self.nodes[id] = &node{path: p}
		self.path2node[k] = id
	}
	self.nodes[id].lookups++
	return id
}

func (self *Ops) Forget(nodeId, nlookup uint64) {
	defer self.Locked()()
	n := self.nodes[nodeId]
	if n == nil || nodeId == FUSE_ROOT_ID {
		return
	}
	if n.lookups <= nlookup {
		delete(self.nodes, nodeId)
		delete(self.path2node, n.path.String())
		return
	}
	n.lookups -= nlookup
}

func fillAttr(f *file.File, ino uint64, out *Attr) {
	out.Ino = ino
	out.Size = f.GetSize()
	out.Blocks = (out.Size + 511) / 512
	out.Blksize = 4096
	out.Mode = f.GetMode()
	out.Nlink = uint32(f.GetHardLinksCount())
	out.Uid = f.GetUid()
	out.Gid = f.GetGid()
	out.Atime = uint64(f.Atime)
	out.Mtime = uint64(f.Mtime)
	out.Ctime = uint64(f.Ctime)
	if major, minor, ok := f.GetDevice(); ok {
		out.Rdev = uint32(device.MakeDev(major, minor))
	}
}

func (self *Ops) fillEntry(f *file.File, p file.Path, out *EntryOut) {
	// Link may provide nil out
	if out == nil {
		return
	}
	ino := self.refer(p)
	out.NodeId = ino
	out.Generation = 0
	out.EntryValid = entryValidity
	out.AttrValid = attrValidity
	out.EntryValidNsec = 0
	out.AttrValidNsec = 0
	fillAttr(f, ino, &out.Attr)
}

func (self *Ops) StatFs(input *InHeader, out *StatfsOut) Status {
	f, code := self.getFile(input.NodeId)
	if !code.Ok() {
		return code
	}
	st, err := file.GetStatfs(f)
	if err != nil {
		return s(err)
	}
	out.Bsize = st.Bsize
	out.Frsize = st.Frsize
	out.Blocks = uint64(st.Blocks)
	out.Bfree = uint64(st.Bfree)
	out.Bavail = uint64(st.Bavail)
	out.Files = uint64(st.Files)
	out.Ffree = uint64(st.Ffree)
	out.NameLen = st.Namelen
	return OK
}

// lookup gets child of a parent.
func (self *Ops) lookup(parent uint64, name string, ctx *Context) (*file.File, file.Path, Status) {
	mlog.Printf2("vfsfuse/ops", "ops.lookup %v %s", parent, name)
	p, code := self.getPath(parent)
	if !code.Ok() {
		return nil, p, code
	}
	dir, err := file.GetFileFromPath(p, perm.Kernel, false)
	if err != nil {
		return nil, p, s(err)
	}
	f, err := file.GetFileFromParent(dir, name, profile(ctx), false)
	if err != nil {
		return nil, p, s(err)
	}
	return f, p.Join(name), OK
}

func (self *Ops) Lookup(input *InHeader, name string, out *EntryOut) Status {
	f, p, code := self.lookup(input.NodeId, name, &input.Context)
	if code.Ok() {
		self.fillEntry(f, p, out)
	}
	return code
}

func (self *Ops) GetAttr(input *GetAttrIn, out *AttrOut) Status {
	f, code := self.getFile(input.NodeId)
	if !code.Ok() {
		return code
	}
	out.AttrValid = attrValidity
	out.AttrValidNsec = 0
	fillAttr(f, input.NodeId, &out.Attr)
	return OK
}

func (self *Ops) SetAttr(input *SetAttrIn, out *AttrOut) Status {
	mlog.Printf2("vfsfuse/ops", "SetAttr %v %x", input.NodeId, input.Valid)
	f, code := self.getFile(input.NodeId)
	if !code.Ok() {
		mlog.Printf2("vfsfuse/ops", " no such file")
		return code
	}
	ap := profile(&input.Context)
	if input.Valid&FATTR_MODE != 0 {
		if err := file.SetPermissions(f, input.Mode&perm.PermMask, ap); err != nil {
			return s(err)
		}
	}
	if input.Valid&(FATTR_UID|FATTR_GID) != 0 {
		uid, gid := f.GetUid(), f.GetGid()
		if input.Valid&FATTR_UID != 0 {
			uid = input.Uid
		}
		if input.Valid&FATTR_GID != 0 {
			gid = input.Gid
		}
		if err := file.SetOwner(f, uid, gid, ap); err != nil {
			return s(err)
		}
	}
	if input.Valid&FATTR_SIZE != 0 {
		if err := file.Truncate(f, input.Size, ap); err != nil {
			return s(err)
		}
	}
	if input.Valid&(FATTR_ATIME|FATTR_MTIME) != 0 {
		var atime, mtime *file.Timestamp
		now := file.Now()
		if input.Valid&FATTR_ATIME != 0 {
			t := file.Timestamp(input.Atime)
			if input.Valid&FATTR_ATIME_NOW != 0 {
				t = now
			}
			atime = &t
		}
		if input.Valid&FATTR_MTIME != 0 {
			t := file.Timestamp(input.Mtime)
			if input.Valid&FATTR_MTIME_NOW != 0 {
				t = now
			}
			mtime = &t
		}
		if err := file.SetTimes(f, atime, mtime, ap); err != nil {
			return s(err)
		}
	}
	out.AttrValid = attrValidity
	fillAttr(f, input.NodeId, &out.Attr)
	return OK
}

func (self *Ops) Access(input *AccessIn) Status {
	f, code := self.getFile(input.NodeId)
	if !code.Ok() {
		return code
	}
	ap := profile(&input.Context)
	ok := true
	if input.Mask&R_OK != 0 {
		ok = ok && ap.CheckReadAccess(f, false)
	}
	if input.Mask&W_OK != 0 {
		ok = ok && ap.CheckWriteAccess(f, false)
	}
	if input.Mask&X_OK != 0 {
		ok = ok && ap.CheckExecuteAccess(f, false)
	}
	if !ok {
		return eacces
	}
	return OK
}

func (self *Ops) create(input *InHeader, name string, mode uint32, content file.Content, out *EntryOut) (*file.File, Status) {
	mlog.Printf2("vfsfuse/ops", " create %v", name)
	p, code := self.getPath(input.NodeId)
	if !code.Ok() {
		return nil, code
	}
	dir, err := file.GetFileFromPath(p, perm.Kernel, false)
	if err != nil {
		return nil, s(err)
	}
	f, err := file.CreateFile(dir, name, profile(&input.Context), mode&perm.PermMask, content)
	if err != nil {
		return nil, s(err)
	}
	self.fillEntry(f, p.Join(name), out)
	return f, OK
}

func (self *Ops) Mkdir(input *MkdirIn, name string, out *EntryOut) Status {
	_, code := self.create(&input.InHeader, name, input.Mode, file.NewDirectoryContent(), out)
	return code
}

func (self *Ops) Mknod(input *MknodIn, name string, out *EntryOut) Status {
	kind, ok := file.KindFromMode(input.Mode)
	if !ok || kind == file.Directory || kind == file.Link {
		return EINVAL
	}
	dev := uint64(input.Rdev)
	content := file.NewContent(kind, "", device.Major(dev), device.Minor(dev))
	_, code := self.create(&input.InHeader, name, input.Mode, content, out)
	return code
}

func (self *Ops) Symlink(input *InHeader, pointedTo string, linkName string, out *EntryOut) Status {
	_, code := self.create(input, linkName, 0777, file.LinkContent{Target: pointedTo}, out)
	return code
}

func (self *Ops) Readlink(input *InHeader) ([]byte, Status) {
	f, code := self.getFile(input.NodeId)
	if !code.Ok() {
		return nil, code
	}
	target, err := file.Readlink(f)
	if err != nil {
		return nil, s(err)
	}
	return []byte(target), OK
}

func (self *Ops) Link(input *LinkIn, name string, out *EntryOut) Status {
	mlog.Printf2("vfsfuse/ops", "Link %v %s", input.Oldnodeid, name)
	target, code := self.getFile(input.Oldnodeid)
	if !code.Ok() {
		mlog.Printf2("vfsfuse/ops", " original child %v not found", input.Oldnodeid)
		return code
	}
	dir, code := self.getFile(input.NodeId)
	if !code.Ok() {
		mlog.Printf2("vfsfuse/ops", " containing directory not found")
		return code
	}
	if err := file.CreateLink(target, dir, name, profile(&input.Context)); err != nil {
		return s(err)
	}
	_, p, code := self.lookup(input.NodeId, name, &input.Context)
	if code.Ok() {
		self.fillEntry(target, p, out)
	}
	return code
}

func (self *Ops) unlink(input *InHeader, name string, isdir bool) Status {
	f, _, code := self.lookup(input.NodeId, name, &input.Context)
	if !code.Ok() {
		return code
	}
	if f.IsDirectory() != isdir {
		if isdir {
			return ENOTDIR
		}
		return eisdir
	}
	if isdir {
		return s(file.RemoveFile(f, profile(&input.Context)))
	}
	return s(file.Unlink(f, profile(&input.Context)))
}

func (self *Ops) Unlink(input *InHeader, name string) Status {
	mlog.Printf2("vfsfuse/ops", "ops.Unlink %s", name)
	return self.unlink(input, name, false)
}

func (self *Ops) Rmdir(input *InHeader, name string) Status {
	mlog.Printf2("vfsfuse/ops", "ops.Rmdir %s", name)
	return self.unlink(input, name, true)
}

func (self *Ops) addHandle(h *handle) uint64 {
	defer self.Locked()()
	fh := self.nextFh
	self.nextFh++
	self.handles[fh] = h
	return fh
}

func (self *Ops) getHandle(fh uint64) *handle {
	defer self.Locked()()
	return self.handles[fh]
}

func (self *Ops) release(fh uint64) {
	self.Lock()
	h := self.handles[fh]
	delete(self.handles, fh)
	self.Unlock()
	if h == nil {
		return
	}
	defer h.f.Locked()()
	if err := h.f.Close(); err != nil {
		mlog.Warnf("close of %v failed: %v", h.f.GetPath(), err)
	}
}

func (self *Ops) open(f *file.File, flags uint32, ctx *Context) (uint64, Status) {
	ap := profile(ctx)
	acc := int(flags) & syscall.O_ACCMODE
	if acc != os.O_WRONLY && !ap.CanReadFile(f) {
		return 0, eacces
	}
	if acc != os.O_RDONLY && !ap.CanWriteFile(f) {
		return 0, eacces
	}
	if f.IsDirectory() && acc != os.O_RDONLY {
		return 0, eisdir
	}
	if flags&uint32(os.O_TRUNC) != 0 && f.IsRegular() {
		if err := file.Truncate(f, 0, ap); err != nil {
			return 0, s(err)
		}
	}
	f, err := file.Open(f)
	if err != nil {
		return 0, s(err)
	}
	return self.addHandle(&handle{f: f}), OK
}

func (self *Ops) Open(input *OpenIn, out *OpenOut) Status {
	mlog.Printf2("vfsfuse/ops", "ops.Open %v", input.NodeId)
	f, code := self.getFile(input.NodeId)
	if !code.Ok() {
		return code
	}
	out.Fh, code = self.open(f, input.Flags, &input.Context)
	return code
}

func (self *Ops) Create(input *CreateIn, name string, out *CreateOut) Status {
	mlog.Printf2("vfsfuse/ops", "ops.Create %s", name)
	f, code := self.create(&input.InHeader, name, input.Mode, file.RegularContent{}, &out.EntryOut)
	if !code.Ok() {
		return code
	}
	// The creator may write a file it cannot otherwise open.
	f, err := file.Open(f)
	if err != nil {
		return s(err)
	}
	out.OpenOut.Fh = self.addHandle(&handle{f: f})
	return OK
}

func (self *Ops) Read(input *ReadIn, buf []byte) (ReadResult, Status) {
	h := self.getHandle(input.Fh)
	if h == nil {
		return nil, ebadf
	}
	defer h.f.Locked()()
	n, _, err := h.f.Read(input.Offset, buf)
	if err != nil {
		return nil, s(err)
	}
	return ReadResultData(buf[:n]), OK
}

func (self *Ops) Write(input *WriteIn, data []byte) (uint32, Status) {
	h := self.getHandle(input.Fh)
	if h == nil {
		return 0, ebadf
	}
	defer h.f.Locked()()
	n, err := h.f.Write(input.Offset, data)
	return uint32(n), s(err)
}

func (self *Ops) Fsync(input *FsyncIn) Status {
	h := self.getHandle(input.Fh)
	if h == nil {
		return ebadf
	}
	defer h.f.Locked()()
	return s(h.f.Sync())
}

func (self *Ops) Release(input *ReleaseIn) {
	self.release(input.Fh)
}

func (self *Ops) OpenDir(input *OpenIn, out *OpenOut) Status {
	f, code := self.getFile(input.NodeId)
	if !code.Ok() {
		return code
	}
	entries, err := file.ListDirectory(f, profile(&input.Context))
	if err != nil {
		return s(err)
	}
	out.Fh = self.addHandle(&handle{f: f, entries: entries})
	return OK
}

func (self *Ops) ReadDir(input *ReadIn, l *DirEntryList) Status {
	h := self.getHandle(input.Fh)
	if h == nil {
		return ebadf
	}
	defer h.Locked()()
	for i := input.Offset; i < uint64(len(h.entries)); i++ {
		e := h.entries[i]
		de := DirEntry{Mode: e.Kind.Mode(), Name: e.Name, Ino: uint64(e.Node)}
		if ok, _ := l.AddDirEntry(de); !ok {
			break
		}
	}
	return OK
}

func (self *Ops) ReadDirPlus(input *ReadIn, l *DirEntryList) Status {
	h := self.getHandle(input.Fh)
	if h == nil {
		return ebadf
	}
	defer h.Locked()()
	for i := input.Offset; i < uint64(len(h.entries)); i++ {
		e := h.entries[i]
		de := DirEntry{Mode: e.Kind.Mode(), Name: e.Name, Ino: uint64(e.Node)}
		entry, _ := l.AddDirLookupEntry(de)
		if entry == nil {
			break
		}
		*entry = EntryOut{}
		self.Lookup(&input.InHeader, e.Name, entry)
	}
	return OK
}

func (self *Ops) ReleaseDir(input *ReleaseIn) {
	self.release(input.Fh)
}

// ListDir returns the entry names of the directory node; it is for
// tests and debugging, bypassing permission checks.
func (self *Ops) ListDir(nodeId uint64) (names []string) {
	f, code := self.getFile(nodeId)
	if !code.Ok() {
		return nil
	}
	entries, err := file.ListDirectory(f, perm.Kernel)
	if err != nil {
		return nil
	}
	for _, e := range entries {
		names = append(names, e.Name)
	}
	return
}
