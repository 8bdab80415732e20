/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Mon Apr 16 10:12:33 2018 mstenber
 * Last modified: Mon Apr 16 13:40:05 2018 mstenber
 * Edit time:     58 min
 *
 */

package file

import (
	"github.com/fingon/go-vfscore/channel"
	"github.com/fingon/go-vfscore/errno"
	"github.com/fingon/go-vfscore/mlog"
	"github.com/fingon/go-vfscore/util"
)

const snapshotChunk = 4096

// openFile is the instance shared by every open handle of a node.
type openFile struct {
	f     *File
	count int

	// remove is where the node was unlinked from while open.
	remove *Path
}

var openLock util.MutexLocked
var openFiles = make(map[Location]*openFile)

// Open registers an open handle of f and returns the instance that
// all open handles of the node share; the first opener's f becomes
// it. Files of backends that must be cached get their content
// snapshotted then. Every Open is paired with a Close of the returned
// file. Only regular files on a backend are tracked; others are
// returned as is.
func Open(f *File) (*File, error) {
	if !f.IsRegular() || f.location.IsVirtual() {
		return f, nil
	}
	defer openLock.Locked()()
	if o, ok := openFiles[f.location]; ok {
		o.count++
		mlog.Printf2("file/open", "Open %v shared #%d", f.location, o.count)
		return o.f, nil
	}
	if err := f.snapshot(); err != nil {
		return nil, err
	}
	mlog.Printf2("file/open", "Open %v %s", f.location, f.name)
	openFiles[f.location] = &openFile{f: f, count: 1}
	return f, nil
}

// OpenCount returns the number of open handles of the node at
// location.
func OpenCount(location Location) int {
	defer openLock.Locked()()
	if o, ok := openFiles[location]; ok {
		return o.count
	}
	return 0
}

// snapshot reads the whole content of a file whose backend generates
// it, so that reads through the open file see one consistent view.
func (self *File) snapshot() error {
	mp := self.location.MountPoint()
	if mp == nil {
		return errno.Wrapf(errno.EIO, "no mount for %v", self.location)
	}
	h, fs, err := mp.Resolve()
	if err != nil {
		return err
	}
	defer h.Locked()()
	defer fs.Locked()()
	if !fs.MustCache() {
		return nil
	}
	var data []byte
	buf := make([]byte, snapshotChunk)
	for {
		n, err := fs.Read(h.Get(), self.location.GetNode(), uint64(len(data)), buf)
		if err != nil {
			return err
		}
		if n == 0 {
			break
		}
		data = append(data, buf[:n]...)
	}
	mlog.Printf2("file/open", " snapshot %v #%d", self.location, len(data))
	self.cached = channel.NewHandle(channel.NewMemory(data))
	self.size = uint64(len(data))
	return nil
}

// closeOpen drops one open handle. It tells whether that was the
// last one (or the file was never opened); the pending removal of an
// unlinked node is then handed over to the file.
func (self *File) closeOpen() bool {
	defer openLock.Locked()()
	o, ok := openFiles[self.location]
	if !ok || o.f != self {
		return true
	}
	o.count--
	if o.count > 0 {
		return false
	}
	delete(openFiles, self.location)
	self.cached = nil
	if o.remove != nil {
		self.parentPath = o.remove.Parent()
		self.name = o.remove.Base()
		self.DeferRemove()
	}
	return true
}

// deferIfOpen arranges for f to be unlinked once the last open handle
// of its node is closed. It tells whether the node was open.
func deferIfOpen(f *File) bool {
	defer openLock.Locked()()
	o, ok := openFiles[f.location]
	if !ok {
		return false
	}
	p := f.GetPath()
	o.remove = &p
	return true
}
