/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Tue Apr  3 09:12:40 2018 mstenber
 * Last modified: Wed Apr 11 10:31:57 2018 mstenber
 * Edit time:     88 min
 *
 */

// dirent is the on-disk directory entry format:
//
//	inode:u32 total_size:u16 name_len_lo:u8 name_len_hi_or_type:u8 name
//
// little-endian, packed. When the filesystem has the directory type
// feature, the fourth byte holds the type indicator and names are at
// most 255 bytes; otherwise it holds the high byte of the name length.
// Entries with inode 0 are free.
package dirent

import (
	"encoding/binary"
	"log"

	"github.com/fingon/go-vfscore/errno"
	"github.com/fingon/go-vfscore/file"
)

const HeaderSize = 8

// FeatureDirectoryType is the required feature that puts the type
// indicator into the entries.
const FeatureDirectoryType uint32 = 0x0002

// Superblock is the part of the filesystem the codec consults. It is
// asked on every access, as the answer may change.
type Superblock interface {
	HasRequiredFeature(feature uint32) bool
}

// Features is a trivial Superblock.
type Features uint32

func (self Features) HasRequiredFeature(feature uint32) bool {
	return uint32(self)&feature != 0
}

func hasType(sb Superblock) bool {
	return sb.HasRequiredFeature(FeatureDirectoryType)
}

// Type indicators.
const (
	TypeUnknown uint8 = iota
	TypeRegular
	TypeDirectory
	TypeCharDevice
	TypeBlockDevice
	TypeFifo
	TypeSocket
	TypeSymlink
)

func TypeIndicator(kind file.Kind) uint8 {
	switch kind {
	case file.Regular:
		return TypeRegular
	case file.Directory:
		return TypeDirectory
	case file.CharDevice:
		return TypeCharDevice
	case file.BlockDevice:
		return TypeBlockDevice
	case file.Fifo:
		return TypeFifo
	case file.Socket:
		return TypeSocket
	case file.Link:
		return TypeSymlink
	}
	return TypeUnknown
}

func KindFromTypeIndicator(t uint8) (file.Kind, bool) {
	switch t {
	case TypeRegular:
		return file.Regular, true
	case TypeDirectory:
		return file.Directory, true
	case TypeCharDevice:
		return file.CharDevice, true
	case TypeBlockDevice:
		return file.BlockDevice, true
	case TypeFifo:
		return file.Fifo, true
	case TypeSocket:
		return file.Socket, true
	case TypeSymlink:
		return file.Link, true
	}
	return file.Regular, false
}

// Entry is one decoded directory entry. name is the whole area after
// the header, so its length is always TotalSize-HeaderSize.
type Entry struct {
	Inode           uint32
	TotalSize       uint16
	NameLenLo       uint8
	NameLenHiOrType uint8
	name            []byte
}

// NewFree returns a free entry of totalSize bytes.
func NewFree(totalSize uint16) (*Entry, error) {
	if totalSize < HeaderSize {
		return nil, errno.Wrapf(errno.EINVAL, "entry size %d", totalSize)
	}
	return &Entry{TotalSize: totalSize,
		name: make([]byte, totalSize-HeaderSize)}, nil
}

// New returns an entry for inode; EINVAL if totalSize cannot hold the
// header and name.
func New(sb Superblock, inode uint32, totalSize uint16, kind file.Kind, name string) (*Entry, error) {
	if int(totalSize) < HeaderSize+len(name) {
		return nil, errno.Wrapf(errno.EINVAL, "entry size %d for %d byte name", totalSize, len(name))
	}
	e, err := NewFree(totalSize)
	if err != nil {
		return nil, err
	}
	e.Inode = inode
	e.SetType(sb, kind)
	e.SetName(sb, name)
	return e, nil
}

// Decode decodes the entry at the start of buf.
func Decode(buf []byte) (*Entry, error) {
	if len(buf) < HeaderSize {
		return nil, errno.Wrapf(errno.EIO, "truncated entry header")
	}
	e := &Entry{Inode: binary.LittleEndian.Uint32(buf),
		TotalSize:       binary.LittleEndian.Uint16(buf[4:]),
		NameLenLo:       buf[6],
		NameLenHiOrType: buf[7]}
	if e.TotalSize < HeaderSize || int(e.TotalSize) > len(buf) {
		return nil, errno.Wrapf(errno.EIO, "bad entry size %d", e.TotalSize)
	}
	e.name = append([]byte(nil), buf[HeaderSize:e.TotalSize]...)
	return e, nil
}

// Encode writes the entry (TotalSize bytes) to the start of buf.
func (self *Entry) Encode(buf []byte) {
	binary.LittleEndian.PutUint32(buf, self.Inode)
	binary.LittleEndian.PutUint16(buf[4:], self.TotalSize)
	buf[6] = self.NameLenLo
	buf[7] = self.NameLenHiOrType
	copy(buf[HeaderSize:self.TotalSize], self.name)
}

func (self *Entry) IsFree() bool {
	return self.Inode == 0
}

func (self *Entry) GetNameLength(sb Superblock) int {
	if hasType(sb) {
		return int(self.NameLenLo)
	}
	return int(self.NameLenHiOrType)<<8 | int(self.NameLenLo)
}

func (self *Entry) GetName(sb Superblock) string {
	n := self.GetNameLength(sb)
	if n > len(self.name) {
		n = len(self.name)
	}
	return string(self.name[:n])
}

// SetName sets the name, truncated to what fits in the entry.
func (self *Entry) SetName(sb Superblock, name string) {
	n := len(name)
	if n > len(self.name) {
		n = len(self.name)
	}
	if hasType(sb) && n > 0xff {
		n = 0xff
	}
	copy(self.name, name[:n])
	self.NameLenLo = uint8(n)
	if !hasType(sb) {
		self.NameLenHiOrType = uint8(n >> 8)
	}
}

// GetType returns the kind; false if the filesystem has no type
// indicators or the indicator is unknown.
func (self *Entry) GetType(sb Superblock) (file.Kind, bool) {
	if !hasType(sb) {
		return file.Regular, false
	}
	return KindFromTypeIndicator(self.NameLenHiOrType)
}

// SetType sets the type indicator; no-op without the feature.
func (self *Entry) SetType(sb Superblock, kind file.Kind) {
	if hasType(sb) {
		self.NameLenHiOrType = TypeIndicator(kind)
	}
}

// spare is what the entry can give away: everything if it is free,
// everything but the name if not.
func (self *Entry) spare(sb Superblock) int {
	if self.IsFree() {
		return int(self.TotalSize)
	}
	return int(self.TotalSize) - self.GetNameLength(sb)
}

// MaySplit tells whether an entry of newSize bytes can be split off,
// leaving room for the header and a minimal name in this one.
func (self *Entry) MaySplit(sb Superblock, newSize uint16) bool {
	return self.spare(sb) >= int(newSize)+16
}

// Split shrinks the entry by newSize and returns a free entry of that
// size, which belongs right after this one in the block.
func (self *Entry) Split(newSize uint16) *Entry {
	self.TotalSize -= newSize
	self.name = self.name[:self.TotalSize-HeaderSize]
	e, err := NewFree(newSize)
	if err != nil {
		log.Panicf("invalid split to %d: %v", newSize, err)
	}
	return e
}

// Merge folds next, which must directly follow this entry in the
// same block, into this one.
func (self *Entry) Merge(next *Entry) {
	self.TotalSize += next.TotalSize
	self.name = append(self.name[:len(self.name):len(self.name)], make([]byte, next.TotalSize)...)
}
