/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Tue Mar 27 10:22:30 2018 mstenber
 * Last modified: Thu Apr  5 09:41:12 2018 mstenber
 * Edit time:     44 min
 *
 */

// device is the registry of block and character devices, addressed
// by (type, major, minor).
package device

import (
	"fmt"
	"sync"

	"github.com/fingon/go-vfscore/channel"
	"github.com/fingon/go-vfscore/errno"
	"github.com/fingon/go-vfscore/mlog"
)

type Type uint8

const (
	Block Type = iota
	Char
)

func (self Type) String() string {
	if self == Block {
		return "block"
	}
	return "char"
}

type ID struct {
	Type  Type
	Major uint32
	Minor uint32
}

func (self ID) String() string {
	return fmt.Sprintf("%v:%d:%d", self.Type, self.Major, self.Minor)
}

// MakeDev encodes major and minor the way Linux dev_t does.
func MakeDev(major, minor uint32) uint64 {
	return uint64(minor&0xff) | uint64(major&0xfff)<<8 |
		uint64(minor&^0xff)<<12 | uint64(major&^0xfff)<<32
}

func Major(dev uint64) uint32 {
	return uint32((dev>>8)&0xfff) | uint32((dev>>32)&^0xfff)
}

func Minor(dev uint64) uint32 {
	return uint32(dev&0xff) | uint32((dev>>12)&^0xff)
}

type Device struct {
	ID
	Name string
	*channel.Handle
}

var mutex sync.Mutex
var devices = make(map[ID]*Device)

// Register adds a device; EEXIST if the id is taken.
func Register(id ID, name string, io channel.IO) (*Device, error) {
	mutex.Lock()
	defer mutex.Unlock()
	if _, ok := devices[id]; ok {
		return nil, errno.Wrapf(errno.EEXIST, "device %v", id)
	}
	mlog.Printf2("device/device", "Register %v %s", id, name)
	d := &Device{ID: id, Name: name, Handle: channel.NewHandle(io)}
	devices[id] = d
	return d, nil
}

// Unregister removes the device; it is a no-op if there is none.
func Unregister(id ID) {
	mutex.Lock()
	defer mutex.Unlock()
	mlog.Printf2("device/device", "Unregister %v", id)
	delete(devices, id)
}

// Get returns the device, or ENODEV.
func Get(id ID) (*Device, error) {
	mutex.Lock()
	defer mutex.Unlock()
	d, ok := devices[id]
	if !ok {
		return nil, errno.Wrapf(errno.ENODEV, "device %v", id)
	}
	return d, nil
}
