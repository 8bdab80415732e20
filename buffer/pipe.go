/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Tue Mar 27 09:30:55 2018 mstenber
 * Last modified: Wed Apr  4 16:33:02 2018 mstenber
 * Edit time:     21 min
 *
 */

package buffer

import (
	"sync"

	"github.com/fingon/go-vfscore/channel"
)

// PipeCapacity is the number of bytes a pipe holds before writes
// become short.
const PipeCapacity = 65536

// PipeBuffer is a bounded byte FIFO. Offsets are ignored.
type PipeBuffer struct {
	mu   sync.Mutex
	data []byte
	cap  int
}

var _ channel.IO = &PipeBuffer{}

func NewPipeBuffer() channel.IO {
	return &PipeBuffer{cap: PipeCapacity}
}

// Socket is a loopback stream socket; what is written can be read
// back in order.
type Socket struct {
	PipeBuffer
}

func NewSocket() channel.IO {
	return &Socket{PipeBuffer{cap: PipeCapacity}}
}

func (self *PipeBuffer) GetSize() uint64 {
	self.mu.Lock()
	defer self.mu.Unlock()
	return uint64(len(self.data))
}

func (self *PipeBuffer) Read(off uint64, buf []byte) (uint64, bool, error) {
	self.mu.Lock()
	defer self.mu.Unlock()
	n := copy(buf, self.data)
	self.data = self.data[n:]
	return uint64(n), len(self.data) == 0, nil
}

func (self *PipeBuffer) Write(off uint64, buf []byte) (uint64, error) {
	self.mu.Lock()
	defer self.mu.Unlock()
	room := self.cap - len(self.data)
	if room > len(buf) {
		room = len(buf)
	}
	self.data = append(self.data, buf[:room]...)
	return uint64(room), nil
}

func (self *PipeBuffer) Poll(mask uint32) (uint32, error) {
	self.mu.Lock()
	defer self.mu.Unlock()
	var ev uint32
	if len(self.data) > 0 {
		ev |= channel.POLLIN
	}
	if len(self.data) < self.cap {
		ev |= channel.POLLOUT
	}
	return ev & mask, nil
}
