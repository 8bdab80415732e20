/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Tue Mar 27 11:40:03 2018 mstenber
 * Last modified: Thu Apr  5 10:02:55 2018 mstenber
 * Edit time:     15 min
 *
 */

package device

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/fingon/go-vfscore/errno"
	"github.com/stvp/assert"
)

func TestMakeDev(t *testing.T) {
	t.Parallel()
	for _, mm := range [][2]uint32{{0, 0}, {8, 1}, {259, 65536}, {4095, 255}, {4096, 256}} {
		dev := MakeDev(mm[0], mm[1])
		assert.Equal(t, Major(dev), mm[0])
		assert.Equal(t, Minor(dev), mm[1])
	}
	assert.Equal(t, MakeDev(8, 1), uint64(0x801))
}

func TestRegistry(t *testing.T) {
	id := ID{Type: Block, Major: 250, Minor: 7}
	_, err := Get(id)
	assert.Equal(t, errno.Of(err), errno.ENODEV)

	d, err := Register(id, "test", Zero{})
	assert.Nil(t, err)
	_, err = Register(id, "test", Zero{})
	assert.Equal(t, errno.Of(err), errno.EEXIST)

	d2, err := Get(id)
	assert.Nil(t, err)
	assert.Equal(t, d2, d)

	buf := []byte{1, 2, 3}
	n, eof, err := d2.Get().Read(0, buf)
	assert.Nil(t, err)
	assert.Equal(t, n, uint64(3))
	assert.True(t, !eof)
	assert.Equal(t, buf, []byte{0, 0, 0})

	Unregister(id)
	_, err = Get(id)
	assert.Equal(t, errno.Of(err), errno.ENODEV)
}

func TestFileDevice(t *testing.T) {
	t.Parallel()
	dir, err := ioutil.TempDir("", "device")
	assert.Nil(t, err)
	defer os.RemoveAll(dir)
	path := filepath.Join(dir, "img")
	assert.Nil(t, ioutil.WriteFile(path, []byte("hello"), 0600))

	_, err = OpenFileDevice(filepath.Join(dir, "nope"), true)
	assert.Equal(t, errno.Of(err), errno.ENODEV)

	fd, err := OpenFileDevice(path, false)
	assert.Nil(t, err)
	defer fd.Close()
	assert.Equal(t, fd.Path(), path)
	n, err := fd.Write(5, []byte(" world"))
	assert.Nil(t, err)
	assert.Equal(t, n, uint64(6))
	buf := make([]byte, 20)
	n, eof, err := fd.Read(0, buf)
	assert.Nil(t, err)
	assert.True(t, eof)
	assert.Equal(t, string(buf[:n]), "hello world")
}
