/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Tue Mar 27 09:02:11 2018 mstenber
 * Last modified: Wed Apr  4 16:31:40 2018 mstenber
 * Edit time:     38 min
 *
 */

// buffer keeps track of non-persistent channels (pipes, sockets)
// that are addressed by a file location rather than a backend node.
package buffer

import (
	"sync"

	"github.com/fingon/go-vfscore/channel"
	"github.com/fingon/go-vfscore/mlog"
)

var mutex sync.Mutex
var buffers = make(map[interface{}]*channel.Handle)

// Get returns the handle of the channel bound to key, or nil if there
// is none. Every user of a key shares the one handle and its lock.
func Get(key interface{}) *channel.Handle {
	mutex.Lock()
	defer mutex.Unlock()
	return buffers[key]
}

// GetOrDefault returns the channel bound to key. If there is none
// yet, one is created with factory and bound to key.
func GetOrDefault(key interface{}, factory func() channel.IO) *channel.Handle {
	mutex.Lock()
	defer mutex.Unlock()
	h, ok := buffers[key]
	if !ok {
		mlog.Printf2("buffer/buffer", "GetOrDefault %v created", key)
		h = channel.NewHandle(factory())
		buffers[key] = h
	}
	return h
}

// Bind binds io to key, replacing whatever was there.
func Bind(key interface{}, io channel.IO) {
	mutex.Lock()
	defer mutex.Unlock()
	buffers[key] = channel.NewHandle(io)
}

// Release forgets the channel bound to key, if any. It is called
// once the node the key refers to is gone for good.
func Release(key interface{}) {
	mutex.Lock()
	defer mutex.Unlock()
	if _, ok := buffers[key]; ok {
		mlog.Printf2("buffer/buffer", "Release %v", key)
		delete(buffers, key)
	}
}

// Count returns the number of live channels.
func Count() int {
	mutex.Lock()
	defer mutex.Unlock()
	return len(buffers)
}
