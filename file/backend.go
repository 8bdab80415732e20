/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Fri Mar 30 09:11:02 2018 mstenber
 * Last modified: Mon Apr  9 11:20:31 2018 mstenber
 * Edit time:     34 min
 *
 */

package file

import (
	"github.com/fingon/go-vfscore/channel"
	"github.com/fingon/go-vfscore/util"
)

// Statfs is what statfs(2) reports about a filesystem.
type Statfs struct {
	Type    uint32
	Bsize   uint32
	Blocks  int64
	Bfree   int64
	Bavail  int64
	Files   int64
	Ffree   int64
	Fsid    [2]int32
	Namelen uint32
	Frsize  uint32
	Flags   uint32
}

// Backend is a mounted storage driver. It holds no channel of its
// own; every operation gets the mount's channel explicitly.
//
// Files returned by Load and Create have a location on mount id 0;
// the caller binds them to the actual mount.
type Backend interface {
	GetName() string

	IsReadonly() bool

	// MustCache tells whether the content of a file must be cached
	// while it is open, because the backend generates it on every
	// read. Open then takes a snapshot.
	MustCache() bool

	GetStat(io channel.IO) (Statfs, error)

	GetRootNode(io channel.IO) (NodeId, error)

	// Lookup returns the node of name in directory parent; nil parent
	// is the root. ENOENT if there is no such entry, ENOTDIR if
	// parent is not a directory.
	Lookup(io channel.IO, parent *NodeId, name string) (NodeId, error)

	// Load materializes the file for node.
	Load(io channel.IO, node NodeId, name string) (*File, error)

	// Create adds a new node under parent; the kind of content
	// determines its type.
	Create(io channel.IO, parent NodeId, name string, uid, gid, mode uint32, content Content) (*File, error)

	// Link adds a hard link to node; EOPNOTSUPP if unsupported.
	Link(io channel.IO, parent NodeId, name string, node NodeId) error

	// Update flushes the metadata of file that it marks dirty (see
	// File.IsDirty). A dirty size truncates or extends the node.
	Update(io channel.IO, file *File) error

	// Unlink removes an entry and returns the number of links left
	// on the node; at zero, the node is gone.
	Unlink(io channel.IO, parent NodeId, name string) (uint16, error)

	Read(io channel.IO, node NodeId, off uint64, buf []byte) (uint64, error)

	Write(io channel.IO, node NodeId, off uint64, buf []byte) error
}

// BackendType is what the registry stores: something that can tell
// whether a channel holds its format, and mount it.
type BackendType interface {
	GetName() string

	Detect(io channel.IO) (bool, error)

	Mount(io channel.IO, path Path, readonly bool) (Backend, error)
}

// Filesystem is a mounted backend instance together with its lock.
// Locks are taken in the order mount point, channel, filesystem.
type Filesystem struct {
	util.MutexLocked
	Backend
}

func NewFilesystem(be Backend) *Filesystem {
	return &Filesystem{Backend: be}
}
