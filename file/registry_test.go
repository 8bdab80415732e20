/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Fri Mar 30 10:01:12 2018 mstenber
 * Last modified: Mon Apr  9 11:40:30 2018 mstenber
 * Edit time:     14 min
 *
 */

package file

import (
	"testing"

	"github.com/fingon/go-vfscore/channel"
	"github.com/fingon/go-vfscore/errno"
	"github.com/stvp/assert"
)

type fakeType struct {
	name  string
	match bool
}

func (self fakeType) GetName() string {
	return self.name
}

func (self fakeType) Detect(io channel.IO) (bool, error) {
	return self.match, nil
}

func (self fakeType) Mount(io channel.IO, path Path, readonly bool) (Backend, error) {
	return nil, errno.Wrapf(errno.EOPNOTSUPP, "fake")
}

func TestRegistry(t *testing.T) {
	defer UnregisterType("fake1")
	defer UnregisterType("fake2")
	defer UnregisterType("fake3")

	io := channel.Dummy{}
	assert.Nil(t, RegisterType(fakeType{name: "fake1"}))
	_, err := DetectType(io)
	assert.Equal(t, errno.Of(err), errno.ENODEV)

	assert.Nil(t, RegisterType(fakeType{name: "fake2", match: true}))
	assert.Nil(t, RegisterType(fakeType{name: "fake3", match: true}))
	err = RegisterType(fakeType{name: "fake1", match: true})
	assert.Equal(t, errno.Of(err), errno.EEXIST)

	bt, err := DetectType(io)
	assert.Nil(t, err)
	assert.Equal(t, bt.GetName(), "fake2")

	assert.Equal(t, GetType("fake1").GetName(), "fake1")
	assert.Nil(t, GetType("nope"))
	names := ListTypes()
	assert.True(t, len(names) >= 3)

	UnregisterType("fake2")
	UnregisterType("fake2")
	bt, err = DetectType(io)
	assert.Nil(t, err)
	assert.Equal(t, bt.GetName(), "fake3")
}
