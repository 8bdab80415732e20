/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Tue Mar 27 11:05:49 2018 mstenber
 * Last modified: Thu Apr  5 09:52:18 2018 mstenber
 * Edit time:     31 min
 *
 */

package device

import (
	"os"

	"github.com/fingon/go-vfscore/channel"
	"github.com/fingon/go-vfscore/errno"
	"github.com/pkg/errors"
)

var (
	NullID = ID{Type: Char, Major: 1, Minor: 3}
	ZeroID = ID{Type: Char, Major: 1, Minor: 5}
)

// Null discards writes and reads as empty.
type Null struct{}

func (self Null) GetSize() uint64 { return 0 }

func (self Null) Read(off uint64, buf []byte) (uint64, bool, error) {
	return 0, true, nil
}

func (self Null) Write(off uint64, buf []byte) (uint64, error) {
	return uint64(len(buf)), nil
}

func (self Null) Poll(mask uint32) (uint32, error) {
	return mask & (channel.POLLIN | channel.POLLOUT), nil
}

// Zero discards writes and reads as zeroes.
type Zero struct{ Null }

func (self Zero) Read(off uint64, buf []byte) (uint64, bool, error) {
	for i := range buf {
		buf[i] = 0
	}
	return uint64(len(buf)), false, nil
}

// RegisterDefaults registers the null and zero devices, unless they
// already are.
func RegisterDefaults() {
	for id, io := range map[ID]channel.IO{NullID: Null{}, ZeroID: Zero{}} {
		if _, err := Get(id); err == nil {
			continue
		}
		name := "null"
		if id == ZeroID {
			name = "zero"
		}
		Register(id, name, io)
	}
}

// FileDevice is a block device backed by a host file (disk image).
type FileDevice struct {
	f    *os.File
	path string
}

var _ channel.IO = &FileDevice{}
var _ channel.Named = &FileDevice{}

func OpenFileDevice(path string, readonly bool) (*FileDevice, error) {
	flags := os.O_RDWR
	if readonly {
		flags = os.O_RDONLY
	}
	f, err := os.OpenFile(path, flags, 0)
	if err != nil {
		return nil, errors.Wrapf(errno.ENODEV, "open %s: %v", path, err)
	}
	return &FileDevice{f: f, path: path}, nil
}

func (self *FileDevice) Path() string {
	return self.path
}

func (self *FileDevice) Close() error {
	return self.f.Close()
}

func (self *FileDevice) GetSize() uint64 {
	fi, err := self.f.Stat()
	if err != nil {
		return 0
	}
	return uint64(fi.Size())
}

func (self *FileDevice) Read(off uint64, buf []byte) (uint64, bool, error) {
	n, err := self.f.ReadAt(buf, int64(off))
	if err != nil && n < len(buf) {
		if off+uint64(n) >= self.GetSize() {
			return uint64(n), true, nil
		}
		return uint64(n), false, errors.Wrapf(errno.EIO, "read: %v", err)
	}
	return uint64(n), off+uint64(n) >= self.GetSize(), nil
}

func (self *FileDevice) Write(off uint64, buf []byte) (uint64, error) {
	n, err := self.f.WriteAt(buf, int64(off))
	if err != nil {
		return uint64(n), errors.Wrapf(errno.EIO, "write: %v", err)
	}
	return uint64(n), nil
}

func (self *FileDevice) Poll(mask uint32) (uint32, error) {
	return mask & (channel.POLLIN | channel.POLLOUT), nil
}
