/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Tue Apr  3 11:02:19 2018 mstenber
 * Last modified: Wed Apr 11 11:20:44 2018 mstenber
 * Edit time:     67 min
 *
 */

package dirent

import (
	"github.com/fingon/go-vfscore/errno"
	"github.com/fingon/go-vfscore/file"
	"github.com/fingon/go-vfscore/mlog"
	"github.com/fingon/go-vfscore/util"
)

// Alignment of entry sizes (and therefore offsets) within a block.
const Alignment = 4

// Block is one directory data block: a sequence of entries whose
// sizes add up to the block size. It is not safe for concurrent use;
// the owning backend serializes access.
type Block struct {
	data []byte
}

// InitBlock returns an empty block of size bytes (one free entry).
// EINVAL if size cannot be covered by a single aligned entry.
func InitBlock(size int) (*Block, error) {
	if size < HeaderSize || size > 0xffff || size%Alignment != 0 {
		return nil, errno.Wrapf(errno.EINVAL, "block size %d", size)
	}
	b := &Block{data: make([]byte, size)}
	e, err := NewFree(uint16(size))
	if err != nil {
		return nil, err
	}
	e.Encode(b.data)
	return b, nil
}

// LoadBlock wraps existing block data (not copied).
func LoadBlock(data []byte) *Block {
	return &Block{data: data}
}

func (self *Block) Bytes() []byte {
	return self.data
}

func (self *Block) Size() int {
	return len(self.data)
}

// Walk calls cb for each entry in block order until it returns false.
func (self *Block) Walk(cb func(off int, e *Entry) bool) error {
	for off := 0; off < len(self.data); {
		e, err := Decode(self.data[off:])
		if err != nil {
			return errno.Wrapf(errno.EIO, "entry at %d: %v", off, err)
		}
		if !cb(off, e) {
			return nil
		}
		off += int(e.TotalSize)
	}
	return nil
}

// Validate checks that the entries exactly cover the block.
func (self *Block) Validate() error {
	sum := 0
	err := self.Walk(func(off int, e *Entry) bool {
		sum += int(e.TotalSize)
		return true
	})
	if err != nil {
		return err
	}
	if sum != len(self.data) {
		return errno.Wrapf(errno.EIO, "entries cover %d of %d bytes", sum, len(self.data))
	}
	return nil
}

// Entries returns the occupied entries.
func (self *Block) Entries() ([]*Entry, error) {
	var l []*Entry
	err := self.Walk(func(off int, e *Entry) bool {
		if !e.IsFree() {
			l = append(l, e)
		}
		return true
	})
	return l, err
}

func (self *Block) IsEmpty() (bool, error) {
	l, err := self.Entries()
	return len(l) == 0, err
}

// Lookup returns the entry called name; ENOENT if there is none.
func (self *Block) Lookup(sb Superblock, name string) (*Entry, error) {
	var found *Entry
	err := self.Walk(func(off int, e *Entry) bool {
		if !e.IsFree() && e.GetName(sb) == name {
			found = e
			return false
		}
		return true
	})
	if err != nil {
		return nil, err
	}
	if found == nil {
		return nil, errno.Wrapf(errno.ENOENT, "%s", name)
	}
	return found, nil
}

// RecordSize returns the aligned size an entry for name needs.
func RecordSize(name string) uint16 {
	return uint16(util.AlignUp(HeaderSize+len(name), Alignment))
}

// Insert adds an entry, first fit: a free entry large enough, or one
// whose slack can be split off. ENOSPC means the caller needs another
// block.
func (self *Block) Insert(sb Superblock, inode uint32, kind file.Kind, name string) error {
	need := RecordSize(name)
	done := false
	err := self.Walk(func(off int, e *Entry) bool {
		if e.IsFree() && e.TotalSize >= need {
			e.Inode = inode
			e.SetType(sb, kind)
			e.SetName(sb, name)
			e.Encode(self.data[off:])
			done = true
			return false
		}
		if !e.IsFree() && e.MaySplit(sb, need) {
			used := uint16(util.AlignUp(HeaderSize+e.GetNameLength(sb), Alignment))
			n := e.Split(e.TotalSize - used)
			n.Inode = inode
			n.SetType(sb, kind)
			n.SetName(sb, name)
			e.Encode(self.data[off:])
			n.Encode(self.data[off+int(e.TotalSize):])
			done = true
			return false
		}
		return true
	})
	if err != nil {
		return err
	}
	if !done {
		return errno.Wrapf(errno.ENOSPC, "no room for %s", name)
	}
	mlog.Printf2("fs/dirent/block", "Insert %s -> %d", name, inode)
	return nil
}

// Remove frees the entry called name and coalesces it with free
// neighbours. It returns the inode the entry pointed to.
func (self *Block) Remove(sb Superblock, name string) (uint32, error) {
	var prev, cur *Entry
	var prevOff, curOff int
	err := self.Walk(func(off int, e *Entry) bool {
		if cur != nil {
			if e.IsFree() {
				cur.Merge(e)
			}
			return false
		}
		if !e.IsFree() && e.GetName(sb) == name {
			cur, curOff = e, off
			return true
		}
		prev, prevOff = e, off
		return true
	})
	if err != nil {
		return 0, err
	}
	if cur == nil {
		return 0, errno.Wrapf(errno.ENOENT, "%s", name)
	}
	inode := cur.Inode
	cur.Inode = 0
	if prev != nil && prev.IsFree() {
		prev.Merge(cur)
		prev.Encode(self.data[prevOff:])
	} else {
		cur.Encode(self.data[curOff:])
	}
	mlog.Printf2("fs/dirent/block", "Remove %s (was %d)", name, inode)
	return inode, nil
}
