/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Wed Apr 11 09:15:30 2018 mstenber
 * Last modified: Fri Apr 13 15:30:12 2018 mstenber
 * Edit time:     58 min
 *
 */

// vfs brings the filesystem layer up and down: it registers the
// default backend types, mounts the root and provides the
// privileged mount and unmount entry points.
package vfs

import (
	"sync"

	"github.com/fingon/go-vfscore/device"
	"github.com/fingon/go-vfscore/errno"
	"github.com/fingon/go-vfscore/file"
	"github.com/fingon/go-vfscore/fs/boltfs"
	"github.com/fingon/go-vfscore/fs/procfs"
	"github.com/fingon/go-vfscore/fs/tmpfs"
	"github.com/fingon/go-vfscore/mlog"
	"github.com/fingon/go-vfscore/perm"
)

const Version = "0.1.0"

// LoopMajor is the major number of image-backed block devices.
const LoopMajor = 7

type Options struct {
	// TmpfsCapacity limits each tmpfs instance, in bytes.
	TmpfsCapacity uint64

	// BoltPassword is used to mount encrypted boltfs images.
	BoltPassword string

	// CacheSize is the boltfs inode cache size.
	CacheSize int
}

var mutex sync.Mutex
var initialized bool
var images = make(map[device.ID]*device.FileDevice)

// RegisterDefaults registers the null and zero devices and the
// built-in backend types, replacing earlier registrations of them so
// that the options take effect.
func RegisterDefaults(opts Options) error {
	device.RegisterDefaults()
	for _, t := range []file.BackendType{
		tmpfs.Type{Capacity: opts.TmpfsCapacity},
		procfs.Type{Version: Version},
		boltfs.Type{Password: opts.BoltPassword, CacheSize: opts.CacheSize},
	} {
		file.UnregisterType(t.GetName())
		if err := file.RegisterType(t); err != nil {
			mlog.Warnf("registering %s failed: %v", t.GetName(), err)
			return err
		}
	}
	return nil
}

func IsInit() bool {
	mutex.Lock()
	defer mutex.Unlock()
	return initialized
}

// Init mounts the root filesystem: the given block device, or a
// fresh tmpfs if root is nil.
func Init(root *device.ID) error {
	return initRoot(root, 0)
}

// InitReadonly is Init with the root mounted read-only.
func InitReadonly(root *device.ID) error {
	return initRoot(root, file.MS_RDONLY)
}

func initRoot(root *device.ID, flags uint32) error {
	mutex.Lock()
	defer mutex.Unlock()
	if initialized {
		return errno.Wrapf(errno.EBUSY, "already initialized")
	}
	source := file.NoDevSource(tmpfs.Name)
	if root != nil {
		source = file.DeviceSource(*root)
	}
	mlog.Printf2("vfs/vfs", "Init %v", source)
	if _, err := file.CreateMount(source, nil, flags, file.RootPath()); err != nil {
		return err
	}
	initialized = true
	return nil
}

// Shutdown unmounts everything and detaches the images.
func Shutdown() {
	mutex.Lock()
	defer mutex.Unlock()
	mlog.Printf2("vfs/vfs", "Shutdown")
	file.ResetMounts()
	for id, fd := range images {
		device.Unregister(id)
		if err := fd.Close(); err != nil {
			mlog.Warnf("closing %v failed: %v", id, err)
		}
	}
	images = make(map[device.ID]*device.FileDevice)
	initialized = false
}

// AttachImage registers the host file at path as a new block device.
func AttachImage(path string, readonly bool) (device.ID, error) {
	mutex.Lock()
	defer mutex.Unlock()
	fd, err := device.OpenFileDevice(path, readonly)
	if err != nil {
		return device.ID{}, err
	}
	for minor := uint32(0); ; minor++ {
		id := device.ID{Type: device.Block, Major: LoopMajor, Minor: minor}
		if _, err := device.Register(id, path, fd); err == nil {
			mlog.Printf2("vfs/vfs", "AttachImage %s as %v", path, id)
			images[id] = fd
			return id, nil
		} else if !errno.Is(err, errno.EEXIST) {
			fd.Close()
			return device.ID{}, err
		}
	}
}

// Mount mounts source on the directory at path. With empty fsType,
// the type is detected from the source. Only root may mount.
func Mount(source file.MountSource, path string, fsType string, readonly bool, ap perm.AccessProfile) (*file.MountPoint, error) {
	mlog.Printf2("vfs/vfs", "Mount %v %s %s", source, path, fsType)
	if ap.Euid != perm.RootUid {
		return nil, errno.Wrapf(errno.EPERM, "mount %s", path)
	}
	p, err := file.ParsePath(path)
	if err != nil {
		return nil, err
	}
	target, err := file.GetFileFromPath(p, ap, true)
	if err != nil {
		return nil, err
	}
	if !target.IsDirectory() {
		return nil, errno.Wrapf(errno.ENOTDIR, "%s", path)
	}
	var t file.BackendType
	if fsType != "" {
		if t = file.GetType(fsType); t == nil {
			return nil, errno.Wrapf(errno.ENODEV, "backend type %s", fsType)
		}
	}
	var flags uint32
	if readonly {
		flags |= file.MS_RDONLY
	}
	return file.CreateMount(source, t, flags, target.GetPath())
}

// Unmount removes the mount on path. Only root may unmount.
func Unmount(path string, ap perm.AccessProfile) error {
	mlog.Printf2("vfs/vfs", "Unmount %s", path)
	if ap.Euid != perm.RootUid {
		return errno.Wrapf(errno.EPERM, "umount %s", path)
	}
	p, err := file.ParsePath(path)
	if err != nil {
		return err
	}
	mp := file.GetMountPointByPath(p)
	if mp == nil {
		return errno.Wrapf(errno.EINVAL, "%s is not mounted", path)
	}
	return file.RemoveMount(mp.GetId())
}
