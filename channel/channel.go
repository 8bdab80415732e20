/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Mon Mar 26 12:10:41 2018 mstenber
 * Last modified: Wed Apr  4 16:20:12 2018 mstenber
 * Edit time:     52 min
 *
 */

// channel defines the byte-oriented I/O capability that everything
// below the VFS core (block devices, pipes, sockets, character
// devices) exposes, and that files themselves expose upwards.
package channel

import (
	"github.com/fingon/go-vfscore/util"
)

// Poll event bits (same values as poll(2)).
const (
	POLLIN  uint32 = 0x1
	POLLPRI uint32 = 0x2
	POLLOUT uint32 = 0x4
	POLLERR uint32 = 0x8
	POLLHUP uint32 = 0x10
)

// IO is the byte-oriented channel. Offsets are ignored by stream-like
// implementations (pipes, sockets).
type IO interface {
	// GetSize returns the size of the underlying content in bytes.
	GetSize() uint64

	// Read reads into buf starting at off. It returns the number of
	// bytes read and whether end-of-file was reached.
	Read(off uint64, buf []byte) (n uint64, eof bool, err error)

	// Write writes buf at off and returns the number of bytes written.
	Write(off uint64, buf []byte) (n uint64, err error)

	// Poll returns the subset of mask events currently available.
	Poll(mask uint32) (uint32, error)
}

// Named is implemented by channels backed by a host file; backends
// that need the file itself (rather than just bytes) use it.
type Named interface {
	Path() string
}

// Handle is a shared, lock-guarded channel. When an operation needs
// more than one lock, the order is mount point -> channel -> backend.
type Handle struct {
	util.MutexLocked
	io IO
}

func NewHandle(io IO) *Handle {
	return &Handle{io: io}
}

// Get returns the wrapped channel; the caller should hold the lock
// while using it.
func (self *Handle) Get() IO {
	return self.io
}
