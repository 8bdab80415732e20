/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Mon Apr  2 10:05:48 2018 mstenber
 * Last modified: Tue Apr 10 13:55:02 2018 mstenber
 * Edit time:     148 min
 *
 */

package file

import (
	"sort"
	"strings"

	"github.com/fingon/go-vfscore/buffer"
	"github.com/fingon/go-vfscore/errno"
	"github.com/fingon/go-vfscore/mlog"
	"github.com/fingon/go-vfscore/perm"
)

// MaxLinkHops is the number of symbolic links followed during one
// resolution before giving up with ELOOP.
const MaxLinkHops = 40

// NamedEntry is one line of a directory listing.
type NamedEntry struct {
	Name string
	DirEntry
}

func mountRoot(mp *MountPoint) (*File, error) {
	h, fs, err := mp.Resolve()
	if err != nil {
		return nil, err
	}
	defer h.Locked()()
	defer fs.Locked()()
	io := h.Get()
	node, err := fs.GetRootNode(io)
	if err != nil {
		return nil, err
	}
	f, err := fs.Load(io, node, mp.path.Base())
	if err != nil {
		return nil, err
	}
	return mp.bind(f, mp.path.Parent()), nil
}

// lookupChild finds name within parent, crossing into whatever is
// mounted there. No permission checks.
func lookupChild(parent *File, name string) (*File, error) {
	if !parent.IsDirectory() {
		return nil, errno.Wrapf(errno.ENOTDIR, "%v", parent.GetPath())
	}
	path := parent.GetPath().Join(name)
	if mp := GetMountPointByPath(path); mp != nil {
		return mountRoot(mp)
	}
	mp := parent.location.MountPoint()
	if mp == nil {
		return nil, errno.Wrapf(errno.EIO, "no mount for %v", parent.GetPath())
	}
	h, fs, err := mp.Resolve()
	if err != nil {
		return nil, err
	}
	defer h.Locked()()
	defer fs.Locked()()
	io := h.Get()
	pnode := parent.location.GetNode()
	node, err := fs.Lookup(io, &pnode, name)
	if err != nil {
		return nil, err
	}
	f, err := fs.Load(io, node, name)
	if err != nil {
		return nil, err
	}
	return mp.bind(f, parent.GetPath()), nil
}

func followLink(dir Path, link LinkContent, rest []string, ap perm.AccessProfile, followLinks bool, hops int) (*File, error) {
	hops++
	if hops > MaxLinkHops {
		return nil, errno.Wrapf(errno.ELOOP, "%v", dir)
	}
	if link.Target == "" {
		return nil, errno.Wrapf(errno.ENOENT, "empty link in %v", dir)
	}
	target, err := ParsePath(link.Target)
	if err != nil {
		return nil, err
	}
	next := dir.Concat(target)
	for _, name := range rest {
		next = next.Join(name)
	}
	mlog.Printf2("file/vfs", " link -> %v (hop %d)", next, hops)
	return resolve(next, ap, followLinks, hops)
}

func resolve(path Path, ap perm.AccessProfile, followLinks bool, hops int) (*File, error) {
	if !path.IsAbsolute() {
		return nil, errno.Wrapf(errno.EINVAL, "relative path %v", path)
	}
	root := RootMountPoint()
	if root == nil {
		return nil, errno.Wrapf(errno.EIO, "no root mount")
	}
	cur, err := mountRoot(root)
	if err != nil {
		return nil, err
	}
	comps := path.Components()
	for i, name := range comps {
		if !cur.IsDirectory() {
			return nil, errno.Wrapf(errno.ENOTDIR, "%v", cur.GetPath())
		}
		if !ap.CanSearchDirectory(cur) {
			return nil, errno.Wrapf(errno.EACCES, "search %v", cur.GetPath())
		}
		child, err := lookupChild(cur, name)
		if err != nil {
			return nil, err
		}
		last := i == len(comps)-1
		if link, ok := child.content.(LinkContent); ok && (!last || followLinks) {
			return followLink(cur.GetPath(), link, comps[i+1:], ap, followLinks, hops)
		}
		cur = child
	}
	return cur, nil
}

// GetFileFromPath resolves an absolute path from the root mount.
// Search permission is required on every directory on the way. A
// symbolic link in the last component is followed only if
// followLinks is set.
func GetFileFromPath(path Path, ap perm.AccessProfile, followLinks bool) (*File, error) {
	mlog.Printf2("file/vfs", "GetFileFromPath %v", path)
	return resolve(path, ap, followLinks, 0)
}

// GetFileFromParent returns the child name of directory parent.
func GetFileFromParent(parent *File, name string, ap perm.AccessProfile, followLinks bool) (*File, error) {
	mlog.Printf2("file/vfs", "GetFileFromParent %v %s", parent.GetPath(), name)
	if name == "" {
		return nil, errno.Wrapf(errno.ENOENT, "empty name")
	}
	if name == "." || name == ".." || strings.Contains(name, "/") {
		p, err := ParsePath(name)
		if err != nil {
			return nil, err
		}
		return resolve(parent.GetPath().Concat(p), ap, followLinks, 0)
	}
	if !parent.IsDirectory() {
		return nil, errno.Wrapf(errno.ENOTDIR, "%v", parent.GetPath())
	}
	if !ap.CanSearchDirectory(parent) {
		return nil, errno.Wrapf(errno.EACCES, "search %v", parent.GetPath())
	}
	child, err := lookupChild(parent, name)
	if err != nil {
		return nil, err
	}
	if link, ok := child.content.(LinkContent); ok && followLinks {
		return followLink(parent.GetPath(), link, nil, ap, true, 0)
	}
	return child, nil
}

func checkName(name string) error {
	if name == "" || name == "." || name == ".." || strings.Contains(name, "/") {
		return errno.Wrapf(errno.EINVAL, "name %q", name)
	}
	if len(name) > NameMax {
		return errno.Wrapf(errno.ENAMETOOLONG, "name %.16s...", name)
	}
	return nil
}

func writableMount(f *File) (*MountPoint, error) {
	mp := f.location.MountPoint()
	if mp == nil {
		return nil, errno.Wrapf(errno.EIO, "no mount for %v", f.GetPath())
	}
	if mp.IsReadonly() {
		return nil, errno.Wrapf(errno.EROFS, "%v", mp.path)
	}
	return mp, nil
}

// prepareEntry does the checks shared by everything that adds an
// entry to parent.
func prepareEntry(parent *File, name string, ap perm.AccessProfile) (*MountPoint, error) {
	if err := checkName(name); err != nil {
		return nil, err
	}
	if !parent.IsDirectory() {
		return nil, errno.Wrapf(errno.ENOTDIR, "%v", parent.GetPath())
	}
	if !ap.CanWriteDirectory(parent) {
		return nil, errno.Wrapf(errno.EACCES, "write %v", parent.GetPath())
	}
	mp, err := writableMount(parent)
	if err != nil {
		return nil, err
	}
	if GetMountPointByPath(parent.GetPath().Join(name)) != nil {
		return nil, errno.Wrapf(errno.EEXIST, "%v/%s", parent.GetPath(), name)
	}
	return mp, nil
}

// CreateFile creates name in directory parent, owned by the
// effective identity of ap. The kind of content determines the type.
func CreateFile(parent *File, name string, ap perm.AccessProfile, mode uint32, content Content) (*File, error) {
	mlog.Printf2("file/vfs", "CreateFile %v %s %o %v", parent.GetPath(), name, mode, content.Kind())
	mp, err := prepareEntry(parent, name, ap)
	if err != nil {
		return nil, err
	}
	h, fs, err := mp.Resolve()
	if err != nil {
		return nil, err
	}
	defer h.Locked()()
	defer fs.Locked()()
	io := h.Get()
	pnode := parent.location.GetNode()
	if _, err := fs.Lookup(io, &pnode, name); err == nil {
		return nil, errno.Wrapf(errno.EEXIST, "%v/%s", parent.GetPath(), name)
	} else if !errno.Is(err, errno.ENOENT) {
		return nil, err
	}
	uid, gid := ap.Euid, ap.Egid
	if parent.mode&perm.S_ISGID != 0 {
		gid = parent.gid
	}
	f, err := fs.Create(io, pnode, name, uid, gid, mode, content)
	if err != nil {
		return nil, err
	}
	mp.bind(f, parent.GetPath())
	parent.AddEntry(name, f.AsDirEntry())
	parent.Mtime = Now()
	parent.Ctime = parent.Mtime
	return f, nil
}

// CreateLink adds a hard link name in parent to target. Both must be
// on the same mount.
func CreateLink(target *File, parent *File, name string, ap perm.AccessProfile) error {
	mlog.Printf2("file/vfs", "CreateLink %v -> %v/%s", target.GetPath(), parent.GetPath(), name)
	if target.IsDirectory() {
		return errno.Wrapf(errno.EPERM, "hard link to directory %v", target.GetPath())
	}
	mp, err := prepareEntry(parent, name, ap)
	if err != nil {
		return err
	}
	if id, ok := target.location.GetMountId(); !ok || id != mp.id {
		return errno.Wrapf(errno.EXDEV, "%v", target.GetPath())
	}
	h, fs, err := mp.Resolve()
	if err != nil {
		return err
	}
	defer h.Locked()()
	defer fs.Locked()()
	io := h.Get()
	pnode := parent.location.GetNode()
	if _, err := fs.Lookup(io, &pnode, name); err == nil {
		return errno.Wrapf(errno.EEXIST, "%v/%s", parent.GetPath(), name)
	} else if !errno.Is(err, errno.ENOENT) {
		return err
	}
	if err := fs.Link(io, pnode, name, target.location.GetNode()); err != nil {
		return err
	}
	target.SetHardLinksCount(target.GetHardLinksCount() + 1)
	parent.AddEntry(name, target.AsDirEntry())
	return nil
}

// removable checks that ap may remove f from its parent directory,
// and returns the parent and the mount it is on.
func removable(f *File, ap perm.AccessProfile) (*File, *MountPoint, error) {
	path := f.GetPath()
	if path.IsRoot() || GetMountPointByPath(path) != nil {
		return nil, nil, errno.Wrapf(errno.EBUSY, "%v is a mount point", path)
	}
	parent, err := resolve(f.GetParentPath(), ap, true, 0)
	if err != nil {
		return nil, nil, err
	}
	if !parent.IsDirectory() {
		return nil, nil, errno.Wrapf(errno.ENOTDIR, "%v", parent.GetPath())
	}
	if !ap.CanWriteDirectory(parent) {
		return nil, nil, errno.Wrapf(errno.EACCES, "write %v", parent.GetPath())
	}
	if parent.mode&perm.S_ISVTX != 0 && ap.Euid != perm.RootUid && ap.Euid != f.uid && ap.Euid != parent.uid {
		return nil, nil, errno.Wrapf(errno.EACCES, "sticky %v", parent.GetPath())
	}
	mp, err := writableMount(parent)
	if err != nil {
		return nil, nil, err
	}
	return parent, mp, nil
}

// RemoveFile unlinks f from its parent directory. Once the last link
// is gone, whatever channel was bound to the node is dropped too.
func RemoveFile(f *File, ap perm.AccessProfile) error {
	path := f.GetPath()
	mlog.Printf2("file/vfs", "RemoveFile %v", path)
	parent, mp, err := removable(f, ap)
	if err != nil {
		return err
	}
	h, fs, err := mp.Resolve()
	if err != nil {
		return err
	}
	defer h.Locked()()
	defer fs.Locked()()
	io := h.Get()
	pnode := parent.location.GetNode()
	node, err := fs.Lookup(io, &pnode, f.name)
	if err != nil {
		return err
	}
	if f.IsDirectory() {
		cur, err := fs.Load(io, node, f.name)
		if err != nil {
			return err
		}
		empty, err := cur.IsEmptyDirectory()
		if err != nil {
			return err
		}
		if !empty {
			return errno.Wrapf(errno.ENOTEMPTY, "%v", path)
		}
	}
	links, err := fs.Unlink(io, pnode, f.name)
	if err != nil {
		return err
	}
	f.SetHardLinksCount(links)
	if links == 0 {
		buffer.Release(OnBackend(mp.id, node))
	}
	return nil
}

// Unlink removes f like RemoveFile. If f is the last link of a node
// that is open, only the checks are done now; the entry goes when the
// last open handle is closed.
func Unlink(f *File, ap perm.AccessProfile) error {
	if f.IsDirectory() || f.GetHardLinksCount() > 1 {
		return RemoveFile(f, ap)
	}
	if _, _, err := removable(f, ap); err != nil {
		return err
	}
	if deferIfOpen(f) {
		mlog.Printf2("file/vfs", "Unlink %v deferred", f.GetPath())
		return nil
	}
	return RemoveFile(f, ap)
}

// Readlink returns the target of a symbolic link.
func Readlink(f *File) (string, error) {
	link, ok := f.content.(LinkContent)
	if !ok {
		return "", errno.Wrapf(errno.EINVAL, "%v is not a link", f.GetPath())
	}
	return link.Target, nil
}

// ListDirectory returns the current entries of dir, sorted by name.
func ListDirectory(dir *File, ap perm.AccessProfile) ([]NamedEntry, error) {
	if !dir.IsDirectory() {
		return nil, errno.Wrapf(errno.ENOTDIR, "%v", dir.GetPath())
	}
	if !ap.CanListDirectory(dir) {
		return nil, errno.Wrapf(errno.EACCES, "list %v", dir.GetPath())
	}
	mp := dir.location.MountPoint()
	if mp == nil {
		return nil, errno.Wrapf(errno.EIO, "no mount for %v", dir.GetPath())
	}
	h, fs, err := mp.Resolve()
	if err != nil {
		return nil, err
	}
	defer h.Locked()()
	defer fs.Locked()()
	fresh, err := fs.Load(h.Get(), dir.location.GetNode(), dir.name)
	if err != nil {
		return nil, err
	}
	d, ok := fresh.content.(DirectoryContent)
	if !ok {
		return nil, errno.Wrapf(errno.ENOTDIR, "%v", dir.GetPath())
	}
	dir.content = d
	l := make([]NamedEntry, 0, len(d.Entries))
	for name, e := range d.Entries {
		l = append(l, NamedEntry{Name: name, DirEntry: e})
	}
	sort.Slice(l, func(i, j int) bool { return l[i].Name < l[j].Name })
	return l, nil
}

// SetPermissions changes the permission bits of f; only the owner
// (or root) may.
func SetPermissions(f *File, mode uint32, ap perm.AccessProfile) error {
	if !ap.CanSetFilePermissions(f) {
		return errno.Wrapf(errno.EPERM, "chmod %v", f.GetPath())
	}
	if _, err := writableMount(f); err != nil {
		return err
	}
	if ap.Euid != perm.RootUid && ap.Egid != f.gid {
		mode &^= perm.S_ISGID
	}
	f.SetPermissions(mode)
	return f.Sync()
}

// SetOwner changes the owner of f. Only root may give a file away;
// the owner may change the group to its own.
func SetOwner(f *File, uid, gid uint32, ap perm.AccessProfile) error {
	root := ap.Euid == perm.RootUid
	if uid != f.uid && !root {
		return errno.Wrapf(errno.EPERM, "chown %v", f.GetPath())
	}
	if gid != f.gid && !root && !(ap.Euid == f.uid && gid == ap.Egid) {
		return errno.Wrapf(errno.EPERM, "chgrp %v", f.GetPath())
	}
	if _, err := writableMount(f); err != nil {
		return err
	}
	f.SetUid(uid)
	f.SetGid(gid)
	if !root && !f.IsDirectory() && f.mode&(perm.S_ISUID|perm.S_ISGID) != 0 {
		f.SetPermissions(f.mode &^ (perm.S_ISUID | perm.S_ISGID))
	}
	return f.Sync()
}

// SetTimes sets the access and modification times; nil leaves one
// alone.
func SetTimes(f *File, atime, mtime *Timestamp, ap perm.AccessProfile) error {
	if !ap.CanSetFilePermissions(f) && !ap.CanWriteFile(f) {
		return errno.Wrapf(errno.EACCES, "utimes %v", f.GetPath())
	}
	if _, err := writableMount(f); err != nil {
		return err
	}
	if atime != nil {
		f.Atime = *atime
	}
	if mtime != nil {
		f.Mtime = *mtime
	}
	f.Ctime = Now()
	f.dirty |= AttrTimes
	return f.Sync()
}

// Truncate changes the size of a regular file.
func Truncate(f *File, size uint64, ap perm.AccessProfile) error {
	switch f.GetType() {
	case Regular:
	case Directory:
		return errno.Wrapf(errno.EISDIR, "%v", f.GetPath())
	default:
		return errno.Wrapf(errno.EINVAL, "truncate %v", f.GetPath())
	}
	if !ap.CanWriteFile(f) {
		return errno.Wrapf(errno.EACCES, "truncate %v", f.GetPath())
	}
	if _, err := writableMount(f); err != nil {
		return err
	}
	f.Resize(size)
	return f.Sync()
}

// GetStatfs returns the statistics of the filesystem f lives on.
func GetStatfs(f *File) (Statfs, error) {
	mp := f.location.MountPoint()
	if mp == nil {
		return Statfs{}, errno.Wrapf(errno.EIO, "no mount for %v", f.GetPath())
	}
	return mp.Statfs()
}
