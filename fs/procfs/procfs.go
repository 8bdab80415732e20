/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Thu Apr  5 09:12:40 2018 mstenber
 * Last modified: Thu Apr 12 13:20:11 2018 mstenber
 * Edit time:     47 min
 *
 */

// procfs is a read-only filesystem whose files are generated from the
// state of the VFS itself when they are read.
package procfs

import (
	"bytes"
	"fmt"
	"time"

	"github.com/fingon/go-vfscore/channel"
	"github.com/fingon/go-vfscore/errno"
	"github.com/fingon/go-vfscore/file"
	"github.com/fingon/go-vfscore/mlog"
)

const Name = "proc"

const Magic = 0x9fa0

const rootNode file.NodeId = 1

// NoDev is implemented by backend types that are mounted by name
// rather than from a device.
type NoDev interface {
	NoDev() bool
}

type generator func(self *Procfs) []byte

type entry struct {
	name string
	gen  generator
}

var entries = []entry{
	{"filesystems", (*Procfs).filesystems},
	{"mounts", (*Procfs).mounts},
	{"uptime", (*Procfs).uptime},
	{"version", (*Procfs).versionFile},
}

type Procfs struct {
	version string
	started time.Time
}

var _ file.Backend = &Procfs{}

func New(version string) *Procfs {
	return &Procfs{version: version, started: time.Now()}
}

func (self *Procfs) filesystems() []byte {
	var b bytes.Buffer
	for _, name := range file.ListTypes() {
		prefix := ""
		if nd, ok := file.GetType(name).(NoDev); ok && nd.NoDev() {
			prefix = "nodev"
		}
		fmt.Fprintf(&b, "%s\t%s\n", prefix, name)
	}
	return b.Bytes()
}

func (self *Procfs) mounts() []byte {
	var b bytes.Buffer
	for _, mp := range file.ListMountPoints() {
		mode := "rw"
		if mp.IsReadonly() {
			mode = "ro"
		}
		fmt.Fprintf(&b, "%v %v %s %s 0 0\n", mp.GetSource(), mp.GetPath(), mp.GetFilesystem().GetName(), mode)
	}
	return b.Bytes()
}

func (self *Procfs) uptime() []byte {
	return []byte(fmt.Sprintf("%.2f\n", time.Since(self.started).Seconds()))
}

func (self *Procfs) versionFile() []byte {
	return []byte(fmt.Sprintf("vfscore version %s\n", self.version))
}

func (self *Procfs) entry(node file.NodeId) (entry, error) {
	i := int(node) - int(rootNode) - 1
	if i < 0 || i >= len(entries) {
		return entry{}, errno.Wrapf(errno.ENOENT, "proc node %d", node)
	}
	return entries[i], nil
}

func (self *Procfs) GetName() string {
	return Name
}

func (self *Procfs) IsReadonly() bool {
	return true
}

func (self *Procfs) MustCache() bool {
	return true
}

func (self *Procfs) GetStat(io channel.IO) (file.Statfs, error) {
	return file.Statfs{Type: Magic,
		Bsize:   4096,
		Frsize:  4096,
		Namelen: file.NameMax,
		Files:   int64(len(entries) + 1)}, nil
}

func (self *Procfs) GetRootNode(io channel.IO) (file.NodeId, error) {
	return rootNode, nil
}

func (self *Procfs) Lookup(io channel.IO, parent *file.NodeId, name string) (file.NodeId, error) {
	if parent != nil && *parent != rootNode {
		if _, err := self.entry(*parent); err != nil {
			return 0, err
		}
		return 0, errno.Wrapf(errno.ENOTDIR, "proc node %d", *parent)
	}
	for i, e := range entries {
		if e.name == name {
			return rootNode + file.NodeId(i) + 1, nil
		}
	}
	return 0, errno.Wrapf(errno.ENOENT, "%s", name)
}

func (self *Procfs) Load(io channel.IO, node file.NodeId, name string) (*file.File, error) {
	mlog.Printf2("fs/procfs/procfs", "Load %d %s", node, name)
	if node == rootNode {
		d := file.NewDirectoryContent()
		for i, e := range entries {
			d.Entries[e.name] = file.DirEntry{Node: rootNode + file.NodeId(i) + 1, Kind: file.Regular}
		}
		f := file.NewFile(name, 0, 0, 0o555, file.OnBackend(0, node), d)
		f.SetHardLinksCount(2)
		return f, nil
	}
	e, err := self.entry(node)
	if err != nil {
		return nil, err
	}
	f := file.NewFile(name, 0, 0, 0o444, file.OnBackend(0, node), file.RegularContent{})
	f.SetSize(uint64(len(e.gen(self))))
	return f, nil
}

func (self *Procfs) Create(io channel.IO, parent file.NodeId, name string, uid, gid, mode uint32, content file.Content) (*file.File, error) {
	return nil, errno.Wrapf(errno.EROFS, "proc")
}

func (self *Procfs) Link(io channel.IO, parent file.NodeId, name string, node file.NodeId) error {
	return errno.Wrapf(errno.EROFS, "proc")
}

func (self *Procfs) Update(io channel.IO, f *file.File) error {
	return errno.Wrapf(errno.EROFS, "proc")
}

func (self *Procfs) Unlink(io channel.IO, parent file.NodeId, name string) (uint16, error) {
	return 0, errno.Wrapf(errno.EROFS, "proc")
}

func (self *Procfs) Read(io channel.IO, node file.NodeId, off uint64, buf []byte) (uint64, error) {
	if node == rootNode {
		return 0, errno.Wrapf(errno.EISDIR, "proc")
	}
	e, err := self.entry(node)
	if err != nil {
		return 0, err
	}
	data := e.gen(self)
	if off >= uint64(len(data)) {
		return 0, nil
	}
	return uint64(copy(buf, data[off:])), nil
}

func (self *Procfs) Write(io channel.IO, node file.NodeId, off uint64, buf []byte) error {
	return errno.Wrapf(errno.EROFS, "proc")
}

// Type is the procfs backend type.
type Type struct {
	Version string
}

var _ file.BackendType = Type{}

func (self Type) GetName() string {
	return Name
}

func (self Type) NoDev() bool {
	return true
}

func (self Type) Detect(io channel.IO) (bool, error) {
	return false, nil
}

func (self Type) Mount(io channel.IO, path file.Path, readonly bool) (file.Backend, error) {
	return New(self.Version), nil
}
