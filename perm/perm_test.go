/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Wed Mar 28 09:40:17 2018 mstenber
 * Last modified: Thu Apr  5 11:20:44 2018 mstenber
 * Edit time:     26 min
 *
 */

package perm

import (
	"fmt"
	"testing"

	"github.com/stvp/assert"
)

type obj struct {
	uid, gid, mode uint32
	regular        bool
}

func (self obj) GetUid() uint32         { return self.uid }
func (self obj) GetGid() uint32         { return self.gid }
func (self obj) GetPermissions() uint32 { return self.mode }
func (self obj) IsRegular() bool        { return self.regular }

// expected computes the reference answer for one of r/w/x (shift 2,
// 1, 0 within each class).
func expected(uid, gid uint32, o obj, bit uint, exec bool) bool {
	if (uid == 0 || gid == 0) && !(exec && o.regular) {
		return true
	}
	if o.mode&(1<<(6+bit)) != 0 && o.uid == uid {
		return true
	}
	if o.mode&(1<<(3+bit)) != 0 && o.gid == gid {
		return true
	}
	return o.mode&(1<<bit) != 0
}

func TestTruthTable(t *testing.T) {
	t.Parallel()
	ids := []uint32{0, 1, 2}
	for _, uid := range ids {
		for _, gid := range ids {
			for _, ouid := range ids[1:] {
				for _, ogid := range ids[1:] {
					for mode := uint32(0); mode < 0o1000; mode += 0o21 {
						for _, regular := range []bool{false, true} {
							o := obj{ouid, ogid, mode, regular}
							ap := NewProfile(uid, gid)
							name := fmt.Sprintf("%d/%d %v", uid, gid, o)
							assert.Equal(t, ap.CanReadFile(o), expected(uid, gid, o, 2, false), name)
							assert.Equal(t, ap.CanWriteFile(o), expected(uid, gid, o, 1, false), name)
							assert.Equal(t, ap.CanExecuteFile(o), expected(uid, gid, o, 0, true), name)
						}
					}
				}
			}
		}
	}
}

func TestRootRegularExecute(t *testing.T) {
	t.Parallel()
	f := obj{uid: 0, gid: 0, mode: 0o644, regular: true}
	assert.True(t, !Kernel.CanExecuteFile(f))
	assert.True(t, Kernel.CanReadFile(f))
	assert.True(t, Kernel.CanWriteFile(f))

	f.mode = 0o755
	assert.True(t, Kernel.CanExecuteFile(f))

	d := obj{uid: 1, gid: 1, mode: 0, regular: false}
	assert.True(t, Kernel.CanSearchDirectory(d))
	assert.True(t, Kernel.CanWriteDirectory(d))
}

func TestAnyClass(t *testing.T) {
	t.Parallel()
	// The owner gets in through the group and other bits too.
	f := obj{uid: 1, gid: 1, mode: 0o044}
	assert.True(t, NewProfile(1, 1).CanReadFile(f))
	assert.True(t, NewProfile(2, 1).CanReadFile(f))
	assert.True(t, NewProfile(2, 2).CanReadFile(f))

	f.mode = 0o040
	assert.True(t, NewProfile(1, 1).CanReadFile(f))
	assert.True(t, !NewProfile(1, 2).CanReadFile(f))
	assert.True(t, !NewProfile(2, 2).CanReadFile(f))

	f.mode = 0o400
	assert.True(t, NewProfile(1, 2).CanReadFile(f))
	assert.True(t, !NewProfile(2, 1).CanReadFile(f))
}

func TestEffective(t *testing.T) {
	t.Parallel()
	f := obj{uid: 1, gid: 1, mode: 0o600, regular: true}
	ap := AccessProfile{Uid: 2, Gid: 2, Euid: 1, Egid: 1}
	assert.True(t, ap.CheckReadAccess(f, true))
	assert.True(t, !ap.CheckReadAccess(f, false))
	assert.True(t, ap.CanSetFilePermissions(f))
	assert.True(t, !NewProfile(2, 0).CanSetFilePermissions(f))
	assert.True(t, NewProfile(0, 2).CanSetFilePermissions(f))
}

func TestDerived(t *testing.T) {
	t.Parallel()
	d := obj{uid: 1, gid: 1, mode: 0o500}
	ap := NewProfile(1, 1)
	assert.True(t, ap.CanListDirectory(d))
	assert.True(t, ap.CanSearchDirectory(d))
	assert.True(t, !ap.CanWriteDirectory(d))
	d.mode = 0o300
	assert.True(t, ap.CanWriteDirectory(d))
	assert.True(t, !ap.CanListDirectory(d))
	d.mode = 0o200
	assert.True(t, !ap.CanWriteDirectory(d))
}
