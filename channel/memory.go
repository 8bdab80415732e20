/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Mon Mar 26 13:01:50 2018 mstenber
 * Last modified: Wed Apr  4 16:18:33 2018 mstenber
 * Edit time:     14 min
 *
 */

package channel

import "sync"

// Memory is a random-access channel on top of a byte slice. Writes
// past the end grow it.
type Memory struct {
	mu   sync.Mutex
	data []byte
}

var _ IO = &Memory{}

func NewMemory(data []byte) *Memory {
	return &Memory{data: data}
}

func (self *Memory) Bytes() []byte {
	self.mu.Lock()
	defer self.mu.Unlock()
	return append([]byte(nil), self.data...)
}

func (self *Memory) GetSize() uint64 {
	self.mu.Lock()
	defer self.mu.Unlock()
	return uint64(len(self.data))
}

func (self *Memory) Read(off uint64, buf []byte) (uint64, bool, error) {
	self.mu.Lock()
	defer self.mu.Unlock()
	size := uint64(len(self.data))
	if off >= size {
		return 0, true, nil
	}
	n := uint64(copy(buf, self.data[off:]))
	return n, off+n >= size, nil
}

func (self *Memory) Write(off uint64, buf []byte) (uint64, error) {
	self.mu.Lock()
	defer self.mu.Unlock()
	end := off + uint64(len(buf))
	if end > uint64(len(self.data)) {
		nd := make([]byte, end)
		copy(nd, self.data)
		self.data = nd
	}
	copy(self.data[off:], buf)
	return uint64(len(buf)), nil
}

func (self *Memory) Poll(mask uint32) (uint32, error) {
	return mask & (POLLIN | POLLOUT), nil
}
