/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Thu Mar 29 11:12:09 2018 mstenber
 * Last modified: Fri Apr  6 10:34:40 2018 mstenber
 * Edit time:     24 min
 *
 */

package file

// DirEntry is what a directory knows about a child.
type DirEntry struct {
	Node NodeId
	Kind Kind
}

// Content is the kind-specific payload of a file; its concrete type
// determines the kind.
type Content interface {
	Kind() Kind
}

type RegularContent struct{}

type DirectoryContent struct {
	Entries map[string]DirEntry
}

type LinkContent struct {
	Target string
}

type FifoContent struct{}

type SocketContent struct{}

type BlockDeviceContent struct {
	Major, Minor uint32
}

type CharDeviceContent struct {
	Major, Minor uint32
}

func (self RegularContent) Kind() Kind     { return Regular }
func (self DirectoryContent) Kind() Kind   { return Directory }
func (self LinkContent) Kind() Kind        { return Link }
func (self FifoContent) Kind() Kind        { return Fifo }
func (self SocketContent) Kind() Kind      { return Socket }
func (self BlockDeviceContent) Kind() Kind { return BlockDevice }
func (self CharDeviceContent) Kind() Kind  { return CharDevice }

func NewDirectoryContent() DirectoryContent {
	return DirectoryContent{Entries: make(map[string]DirEntry)}
}

// NewContent builds empty content of the given kind. target is used
// by links, major and minor by device nodes.
func NewContent(kind Kind, target string, major, minor uint32) Content {
	switch kind {
	case Directory:
		return NewDirectoryContent()
	case Link:
		return LinkContent{Target: target}
	case Fifo:
		return FifoContent{}
	case Socket:
		return SocketContent{}
	case BlockDevice:
		return BlockDeviceContent{Major: major, Minor: minor}
	case CharDevice:
		return CharDeviceContent{Major: major, Minor: minor}
	}
	return RegularContent{}
}

// CloneContent returns a copy that shares no mutable state (the entry
// map) with c.
func CloneContent(c Content) Content {
	if d, ok := c.(DirectoryContent); ok {
		nd := NewDirectoryContent()
		for k, v := range d.Entries {
			nd.Entries[k] = v
		}
		return nd
	}
	return c
}
