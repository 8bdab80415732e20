/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Tue Apr  3 13:40:02 2018 mstenber
 * Last modified: Wed Apr 11 12:02:30 2018 mstenber
 * Edit time:     52 min
 *
 */

package dirent

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/fingon/go-vfscore/errno"
	"github.com/fingon/go-vfscore/file"
	"github.com/stvp/assert"
)

var superblocks = []Features{0, Features(FeatureDirectoryType)}

func TestTypeIndicator(t *testing.T) {
	t.Parallel()
	for _, k := range file.Kinds {
		k2, ok := KindFromTypeIndicator(TypeIndicator(k))
		assert.True(t, ok)
		assert.Equal(t, k2, k)
	}
	_, ok := KindFromTypeIndicator(TypeUnknown)
	assert.True(t, !ok)
	assert.Equal(t, TypeIndicator(file.Link), uint8(7))
	assert.Equal(t, TypeIndicator(file.CharDevice), uint8(3))
}

func TestNew(t *testing.T) {
	t.Parallel()
	for _, sb := range superblocks {
		for _, k := range file.Kinds {
			t.Run(fmt.Sprintf("%v-%v", sb, k), func(t *testing.T) {
				e, err := New(sb, 42, 16, k, "foo")
				assert.Nil(t, err)
				assert.True(t, !e.IsFree())
				assert.Equal(t, e.GetName(sb), "foo")
				assert.Equal(t, e.GetNameLength(sb), 3)
				k2, ok := e.GetType(sb)
				if sb.HasRequiredFeature(FeatureDirectoryType) {
					assert.True(t, ok)
					assert.Equal(t, k2, k)
				} else {
					assert.True(t, !ok)
				}
			})
		}
	}
}

func TestNewTooSmall(t *testing.T) {
	t.Parallel()
	_, err := New(Features(0), 1, 10, file.Regular, "foo")
	assert.Equal(t, errno.Of(err), errno.EINVAL)
	_, err = NewFree(4)
	assert.Equal(t, errno.Of(err), errno.EINVAL)
}

func TestSetNameTruncates(t *testing.T) {
	t.Parallel()
	for _, sb := range superblocks {
		e, err := NewFree(12)
		assert.Nil(t, err)
		e.SetName(sb, "abcdefgh")
		assert.Equal(t, e.GetName(sb), "abcd")
	}
}

func TestLongNameLength(t *testing.T) {
	t.Parallel()
	name := make([]byte, 300)
	for i := range name {
		name[i] = 'x'
	}
	sb := Features(0)
	e, err := New(sb, 1, 400, file.Regular, string(name))
	assert.Nil(t, err)
	assert.Equal(t, e.GetNameLength(sb), 300)
	assert.Equal(t, e.NameLenHiOrType, uint8(1))

	sb = Features(FeatureDirectoryType)
	e, err = New(sb, 1, 400, file.Directory, string(name))
	assert.Nil(t, err)
	assert.Equal(t, e.GetNameLength(sb), 255)
	assert.Equal(t, e.NameLenHiOrType, TypeDirectory)
}

func TestFeatureConsultedEachTime(t *testing.T) {
	t.Parallel()
	sb := Features(FeatureDirectoryType)
	e, err := New(sb, 1, 16, file.Directory, "abc")
	assert.Nil(t, err)
	// Same bytes read without the feature: the type byte becomes the
	// high byte of the name length.
	assert.Equal(t, e.GetNameLength(Features(0)), int(TypeDirectory)<<8|3)
}

func TestEncodeLayout(t *testing.T) {
	t.Parallel()
	sb := Features(FeatureDirectoryType)
	e, err := New(sb, 0x01020304, 12, file.Link, "ab")
	assert.Nil(t, err)
	buf := make([]byte, 12)
	e.Encode(buf)
	assert.Equal(t, buf, []byte{4, 3, 2, 1, 12, 0, 2, 7, 'a', 'b', 0, 0})

	e2, err := Decode(buf)
	assert.Nil(t, err)
	assert.Equal(t, e2.Inode, uint32(0x01020304))
	assert.Equal(t, e2.GetName(sb), "ab")

	_, err = Decode(buf[:5])
	assert.Equal(t, errno.Of(err), errno.EIO)
	buf[4] = 40
	_, err = Decode(buf)
	assert.Equal(t, errno.Of(err), errno.EIO)
}

func TestSplitMerge(t *testing.T) {
	t.Parallel()
	for _, sb := range superblocks {
		free, _ := NewFree(64)
		assert.True(t, free.MaySplit(sb, 48))
		assert.True(t, !free.MaySplit(sb, 49))
		n := free.Split(32)
		assert.Equal(t, free.TotalSize, uint16(32))
		assert.Equal(t, n.TotalSize, uint16(32))
		assert.True(t, n.IsFree())
		free.Merge(n)
		assert.Equal(t, free.TotalSize, uint16(64))
		assert.True(t, free.IsFree())

		used, _ := New(sb, 5, 64, file.Regular, "abcdefgh")
		assert.True(t, used.MaySplit(sb, 40))
		assert.True(t, !used.MaySplit(sb, 41))
		n = used.Split(40)
		assert.Equal(t, used.GetName(sb), "abcdefgh")
		used.Merge(n)
		assert.Equal(t, used.TotalSize, uint16(64))
		assert.True(t, !used.IsFree())
		assert.Equal(t, used.Inode, uint32(5))
		assert.Equal(t, used.GetName(sb), "abcdefgh")
	}
}

func TestBlock(t *testing.T) {
	t.Parallel()
	for _, sb := range superblocks {
		b, err := InitBlock(128)
		assert.Nil(t, err)
		assert.Nil(t, b.Validate())
		empty, _ := b.IsEmpty()
		assert.True(t, empty)

		assert.Nil(t, b.Insert(sb, 10, file.Regular, "a"))
		assert.Nil(t, b.Insert(sb, 11, file.Directory, "bb"))
		assert.Nil(t, b.Validate())

		e, err := b.Lookup(sb, "bb")
		assert.Nil(t, err)
		assert.Equal(t, e.Inode, uint32(11))
		_, err = b.Lookup(sb, "c")
		assert.Equal(t, errno.Of(err), errno.ENOENT)

		l, _ := b.Entries()
		assert.Equal(t, len(l), 2)

		ino, err := b.Remove(sb, "a")
		assert.Nil(t, err)
		assert.Equal(t, ino, uint32(10))
		assert.Nil(t, b.Validate())
		_, err = b.Remove(sb, "a")
		assert.Equal(t, errno.Of(err), errno.ENOENT)

		// The freed first slot is reused.
		assert.Nil(t, b.Insert(sb, 12, file.Regular, "c"))
		assert.Nil(t, b.Validate())
		_, err = b.Remove(sb, "bb")
		assert.Nil(t, err)
		_, err = b.Remove(sb, "c")
		assert.Nil(t, err)
		assert.Nil(t, b.Validate())
		l, _ = b.Entries()
		assert.Equal(t, len(l), 0)
		// Everything coalesced back into one free entry.
		n := 0
		b.Walk(func(off int, e *Entry) bool {
			n++
			return true
		})
		assert.Equal(t, n, 1)
	}
}

func TestInitBlockSize(t *testing.T) {
	t.Parallel()
	for _, size := range []int{0, HeaderSize - Alignment, 66, 0x10000} {
		b, err := InitBlock(size)
		assert.Equal(t, errno.Of(err), errno.EINVAL, size)
		assert.True(t, b == nil)
	}
	b, err := InitBlock(HeaderSize)
	assert.Nil(t, err)
	assert.Nil(t, b.Validate())
}

func TestBlockFull(t *testing.T) {
	t.Parallel()
	sb := Features(FeatureDirectoryType)
	b, err := InitBlock(64)
	assert.Nil(t, err)
	i := 0
	for ; err == nil; i++ {
		err = b.Insert(sb, uint32(i+1), file.Regular, fmt.Sprintf("n%d", i))
	}
	assert.Equal(t, errno.Of(err), errno.ENOSPC)
	assert.True(t, i > 1)
	assert.Nil(t, b.Validate())
}

func TestBlockInvariantRandom(t *testing.T) {
	t.Parallel()
	r := rand.New(rand.NewSource(42))
	for _, sb := range superblocks {
		b, err := InitBlock(1024)
		assert.Nil(t, err)
		names := map[string]bool{}
		for i := 0; i < 2000; i++ {
			name := fmt.Sprintf("f%d", r.Intn(100))
			if names[name] {
				_, err := b.Remove(sb, name)
				assert.Nil(t, err)
				delete(names, name)
			} else {
				err := b.Insert(sb, uint32(i+1), file.Regular, name)
				if err == nil {
					names[name] = true
				} else {
					assert.Equal(t, errno.Of(err), errno.ENOSPC)
				}
			}
			assert.Nil(t, b.Validate())
		}
		l, err := b.Entries()
		assert.Nil(t, err)
		assert.Equal(t, len(l), len(names))
	}
}
