/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Mon Mar 26 13:12:20 2018 mstenber
 * Last modified: Wed Apr  4 16:22:01 2018 mstenber
 * Edit time:     6 min
 *
 */

package channel

import (
	"testing"

	"github.com/stvp/assert"
)

func TestMemory(t *testing.T) {
	t.Parallel()
	m := NewMemory(nil)
	n, err := m.Write(4, []byte("abcd"))
	assert.Nil(t, err)
	assert.Equal(t, n, uint64(4))
	assert.Equal(t, m.GetSize(), uint64(8))

	buf := make([]byte, 3)
	n, eof, err := m.Read(5, buf)
	assert.Nil(t, err)
	assert.Equal(t, n, uint64(3))
	assert.True(t, eof)
	assert.Equal(t, string(buf), "bcd")

	n, eof, err = m.Read(0, buf)
	assert.Nil(t, err)
	assert.True(t, !eof)
	assert.Equal(t, buf, []byte{0, 0, 0})

	n, eof, _ = m.Read(100, buf)
	assert.Equal(t, n, uint64(0))
	assert.True(t, eof)
}

func TestHandle(t *testing.T) {
	t.Parallel()
	h := NewHandle(Dummy{})
	defer h.Locked()()
	assert.True(t, h.IsLocked())
	assert.Equal(t, h.Get().GetSize(), uint64(0))
}
