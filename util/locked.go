/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Thu Jan  4 12:21:40 2018 mstenber
 * Last modified: Tue Mar 27 14:02:19 2018 mstenber
 * Edit time:     31 min
 *
 */

package util

import (
	"sync"
	"sync/atomic"
)

// MutexLocked is sync.Mutex with convenience features: just defer
// x.Locked()(), and AssertLocked for functions whose caller must
// hold the lock.
type MutexLocked struct {
	mu     sync.Mutex
	locked int32
}

func (self *MutexLocked) Lock() {
	self.mu.Lock()
	atomic.StoreInt32(&self.locked, 1)
}

func (self *MutexLocked) Unlock() {
	atomic.StoreInt32(&self.locked, 0)
	self.mu.Unlock()
}

func (self *MutexLocked) Locked() (unlock func()) {
	self.Lock()
	return self.Unlock
}

// IsLocked is only advisory; someone else may be holding the lock.
func (self *MutexLocked) IsLocked() bool {
	return atomic.LoadInt32(&self.locked) != 0
}

func (self *MutexLocked) AssertLocked() {
	if !self.IsLocked() {
		panic("lock not held")
	}
}
