/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Wed Mar 28 08:51:22 2018 mstenber
 * Last modified: Thu Apr  5 11:14:09 2018 mstenber
 * Edit time:     57 min
 *
 */

// perm is the permission model: who may read, write, execute (or
// search) a node, given an identity and the node's ownership and
// mode bits.
package perm

const (
	RootUid uint32 = 0
	RootGid uint32 = 0
)

// Permission bits.
const (
	S_ISUID uint32 = 0o4000
	S_ISGID uint32 = 0o2000
	S_ISVTX uint32 = 0o1000

	S_IRUSR uint32 = 0o400
	S_IWUSR uint32 = 0o200
	S_IXUSR uint32 = 0o100
	S_IRGRP uint32 = 0o040
	S_IWGRP uint32 = 0o020
	S_IXGRP uint32 = 0o010
	S_IROTH uint32 = 0o004
	S_IWOTH uint32 = 0o002
	S_IXOTH uint32 = 0o001

	PermMask uint32 = 0o7777
)

// Object is what permission checks look at.
type Object interface {
	GetUid() uint32
	GetGid() uint32
	GetPermissions() uint32

	// IsRegular is true for regular files; root is subject to the
	// ordinary execute check on those.
	IsRegular() bool
}

// AccessProfile is the identity of an agent: real and effective ids.
type AccessProfile struct {
	Uid, Gid   uint32
	Euid, Egid uint32
}

// Kernel is the profile of the kernel itself.
var Kernel = AccessProfile{}

func NewProfile(uid, gid uint32) AccessProfile {
	return AccessProfile{Uid: uid, Gid: gid, Euid: uid, Egid: gid}
}

func (self AccessProfile) IsPrivileged() bool {
	return self.Euid == RootUid || self.Egid == RootGid
}

func (self AccessProfile) ids(effective bool) (uint32, uint32) {
	if effective {
		return self.Euid, self.Egid
	}
	return self.Uid, self.Gid
}

// check grants access if any class allows it: the owner bit for the
// owner, the group bit for the group, or the other bit for anybody.
func check(uid, gid uint32, obj Object, usr, grp, oth uint32) bool {
	mode := obj.GetPermissions()
	if mode&usr != 0 && obj.GetUid() == uid {
		return true
	}
	if mode&grp != 0 && obj.GetGid() == gid {
		return true
	}
	return mode&oth != 0
}

func isRoot(uid, gid uint32) bool {
	return uid == RootUid || gid == RootGid
}

// CheckReadAccess tells whether obj may be read; effective selects
// effective ids over real ones.
func (self AccessProfile) CheckReadAccess(obj Object, effective bool) bool {
	uid, gid := self.ids(effective)
	if isRoot(uid, gid) {
		return true
	}
	return check(uid, gid, obj, S_IRUSR, S_IRGRP, S_IROTH)
}

func (self AccessProfile) CheckWriteAccess(obj Object, effective bool) bool {
	uid, gid := self.ids(effective)
	if isRoot(uid, gid) {
		return true
	}
	return check(uid, gid, obj, S_IWUSR, S_IWGRP, S_IWOTH)
}

func (self AccessProfile) CheckExecuteAccess(obj Object, effective bool) bool {
	uid, gid := self.ids(effective)
	if isRoot(uid, gid) && !obj.IsRegular() {
		return true
	}
	return check(uid, gid, obj, S_IXUSR, S_IXGRP, S_IXOTH)
}

func (self AccessProfile) CanReadFile(obj Object) bool {
	return self.CheckReadAccess(obj, true)
}

// CanListDirectory covers the names only, not the children's content
// or metadata.
func (self AccessProfile) CanListDirectory(obj Object) bool {
	return self.CanReadFile(obj)
}

func (self AccessProfile) CanWriteFile(obj Object) bool {
	return self.CheckWriteAccess(obj, true)
}

// CanWriteDirectory covers creating, removing and renaming entries.
func (self AccessProfile) CanWriteDirectory(obj Object) bool {
	return self.CanWriteFile(obj) && self.CanExecuteFile(obj)
}

func (self AccessProfile) CanExecuteFile(obj Object) bool {
	return self.CheckExecuteAccess(obj, true)
}

// CanSearchDirectory covers reaching children whose name is known.
func (self AccessProfile) CanSearchDirectory(obj Object) bool {
	return self.CanExecuteFile(obj)
}

func (self AccessProfile) CanSetFilePermissions(obj Object) bool {
	return self.Euid == RootUid || self.Euid == obj.GetUid()
}
