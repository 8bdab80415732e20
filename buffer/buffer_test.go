/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Tue Mar 27 10:01:12 2018 mstenber
 * Last modified: Wed Apr  4 16:35:40 2018 mstenber
 * Edit time:     9 min
 *
 */

package buffer

import (
	"testing"

	"github.com/fingon/go-vfscore/channel"
	"github.com/stvp/assert"
)

type testKey struct{ id int }

func TestRegistry(t *testing.T) {
	k := testKey{1}
	assert.True(t, Get(k) == nil)
	p := GetOrDefault(k, NewPipeBuffer)
	assert.True(t, GetOrDefault(k, NewSocket) == p)
	assert.True(t, Get(k) == p)
	_, ok := p.Get().(*PipeBuffer)
	assert.True(t, ok)
	Release(k)
	assert.True(t, Get(k) == nil)
	Release(k)

	m := channel.NewMemory(nil)
	Bind(k, m)
	assert.Equal(t, Get(k).Get(), channel.IO(m))
	Release(k)
}

func TestPipe(t *testing.T) {
	t.Parallel()
	p := &PipeBuffer{cap: 4}
	ev, _ := p.Poll(channel.POLLIN | channel.POLLOUT)
	assert.Equal(t, ev, channel.POLLOUT)

	n, err := p.Write(0, []byte("abcdef"))
	assert.Nil(t, err)
	assert.Equal(t, n, uint64(4))
	ev, _ = p.Poll(channel.POLLIN | channel.POLLOUT)
	assert.Equal(t, ev, channel.POLLIN)

	buf := make([]byte, 3)
	n, eof, err := p.Read(0, buf)
	assert.Nil(t, err)
	assert.Equal(t, n, uint64(3))
	assert.True(t, !eof)
	assert.Equal(t, string(buf), "abc")

	n, eof, _ = p.Read(0, buf)
	assert.Equal(t, n, uint64(1))
	assert.True(t, eof)
	assert.Equal(t, buf[0], byte('d'))
}
