/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Fri Mar 30 09:40:55 2018 mstenber
 * Last modified: Mon Apr  9 11:31:08 2018 mstenber
 * Edit time:     22 min
 *
 */

package file

import (
	"sort"
	"sync"

	"github.com/fingon/go-vfscore/channel"
	"github.com/fingon/go-vfscore/errno"
	"github.com/fingon/go-vfscore/mlog"
)

var typesMutex sync.Mutex

// Kept in registration order so that Detect is deterministic.
var backendTypes []BackendType

func findType(name string) int {
	for i, t := range backendTypes {
		if t.GetName() == name {
			return i
		}
	}
	return -1
}

// RegisterType adds a backend type; EEXIST if the name is taken.
func RegisterType(t BackendType) error {
	typesMutex.Lock()
	defer typesMutex.Unlock()
	if findType(t.GetName()) >= 0 {
		return errno.Wrapf(errno.EEXIST, "backend type %s", t.GetName())
	}
	mlog.Printf2("file/registry", "RegisterType %s", t.GetName())
	backendTypes = append(backendTypes, t)
	return nil
}

// UnregisterType removes a backend type; no-op if it is not there.
func UnregisterType(name string) {
	typesMutex.Lock()
	defer typesMutex.Unlock()
	i := findType(name)
	if i < 0 {
		return
	}
	mlog.Printf2("file/registry", "UnregisterType %s", name)
	backendTypes = append(backendTypes[:i:i], backendTypes[i+1:]...)
}

// GetType returns the named backend type, or nil.
func GetType(name string) BackendType {
	typesMutex.Lock()
	defer typesMutex.Unlock()
	i := findType(name)
	if i < 0 {
		return nil
	}
	return backendTypes[i]
}

// DetectType returns the first registered type that recognizes the
// content of io; ENODEV if none does.
func DetectType(io channel.IO) (BackendType, error) {
	typesMutex.Lock()
	defer typesMutex.Unlock()
	for _, t := range backendTypes {
		ok, err := t.Detect(io)
		if err != nil {
			return nil, err
		}
		if ok {
			mlog.Printf2("file/registry", "DetectType found %s", t.GetName())
			return t, nil
		}
	}
	return nil, errno.Wrapf(errno.ENODEV, "no backend type matches")
}

// ListTypes returns the registered type names, sorted.
func ListTypes() []string {
	typesMutex.Lock()
	defer typesMutex.Unlock()
	names := make([]string, 0, len(backendTypes))
	for _, t := range backendTypes {
		names = append(names, t.GetName())
	}
	sort.Strings(names)
	return names
}
