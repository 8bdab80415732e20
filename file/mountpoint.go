/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Fri Mar 30 10:15:20 2018 mstenber
 * Last modified: Tue Apr 10 09:42:18 2018 mstenber
 * Edit time:     71 min
 *
 */

package file

import (
	"fmt"
	"sort"
	"sync"

	"github.com/fingon/go-vfscore/channel"
	"github.com/fingon/go-vfscore/device"
	"github.com/fingon/go-vfscore/errno"
	"github.com/fingon/go-vfscore/mlog"
	"github.com/fingon/go-vfscore/util"
)

// Mount flags.
const (
	MS_RDONLY uint32 = 1
)

// MountSource is what a mount is made of: a device, or (for
// filesystems without one) the name of the backend type.
type MountSource struct {
	device *device.ID
	name   string
}

func DeviceSource(id device.ID) MountSource {
	return MountSource{device: &id}
}

func NoDevSource(name string) MountSource {
	return MountSource{name: name}
}

// GetDevice returns the device id, if the source is a device.
func (self MountSource) GetDevice() (device.ID, bool) {
	if self.device == nil {
		return device.ID{}, false
	}
	return *self.device, true
}

// GetName returns the backend type name of device-less sources.
func (self MountSource) GetName() string {
	return self.name
}

// GetIO returns the channel of the source; device-less sources get
// a new empty one, which the mount then keeps.
func (self MountSource) GetIO() (*channel.Handle, error) {
	if self.device == nil {
		return channel.NewHandle(channel.Dummy{}), nil
	}
	d, err := device.Get(*self.device)
	if err != nil {
		return nil, err
	}
	return d.Handle, nil
}

func (self MountSource) String() string {
	if self.device != nil {
		return self.device.String()
	}
	return self.name
}

type MountPoint struct {
	util.MutexLocked
	id     uint32
	source MountSource
	io     *channel.Handle
	fs     *Filesystem
	path   Path
	flags  uint32
}

func (self *MountPoint) GetId() uint32 {
	return self.id
}

func (self *MountPoint) GetSource() MountSource {
	return self.source
}

func (self *MountPoint) GetPath() Path {
	return self.path
}

func (self *MountPoint) GetFlags() uint32 {
	return self.flags
}

func (self *MountPoint) IsReadonly() bool {
	return self.flags&MS_RDONLY != 0 || self.fs.IsReadonly()
}

func (self *MountPoint) GetFilesystem() *Filesystem {
	return self.fs
}

// Resolve returns the channel and the backend of the mount. Neither
// is locked. The channel is the one the mount was made from, so every
// user of the mount serializes on the same handle.
func (self *MountPoint) Resolve() (*channel.Handle, *Filesystem, error) {
	defer self.Locked()()
	if self.io == nil {
		return nil, nil, errno.Wrapf(errno.EIO, "mount %d has no channel", self.id)
	}
	return self.io, self.fs, nil
}

// Statfs returns the backend statistics with the mount flags.
func (self *MountPoint) Statfs() (Statfs, error) {
	h, fs, err := self.Resolve()
	if err != nil {
		return Statfs{}, err
	}
	defer h.Locked()()
	defer fs.Locked()()
	st, err := fs.GetStat(h.Get())
	if err != nil {
		return st, err
	}
	st.Flags = self.flags
	st.Fsid = [2]int32{}
	return st, nil
}

// bind ties a file materialized by the backend to this mount.
func (self *MountPoint) bind(f *File, parentPath Path) *File {
	f.SetLocation(OnBackend(self.id, f.GetLocation().GetNode()))
	f.SetParentPath(parentPath)
	return f
}

func (self *MountPoint) String() string {
	return fmt.Sprintf("%d:%v@%v", self.id, self.source, self.path)
}

var mountMutex sync.Mutex
var mountPoints = make(map[uint32]*MountPoint)
var nextMountId uint32

// CreateMount mounts source on path. With nil fsType, the type is
// detected from the device, or looked up by name for device-less
// sources. The mount gets the next free id.
func CreateMount(source MountSource, fsType BackendType, flags uint32, path Path) (*MountPoint, error) {
	mlog.Printf2("file/mountpoint", "CreateMount %v %v", source, path)
	if !path.IsAbsolute() {
		return nil, errno.Wrapf(errno.EINVAL, "mount path %v", path)
	}
	if GetMountPointByPath(path) != nil {
		return nil, errno.Wrapf(errno.EBUSY, "already mounted on %v", path)
	}
	h, err := source.GetIO()
	if err != nil {
		return nil, err
	}
	unlock := h.Locked()
	if fsType == nil {
		if _, ok := source.GetDevice(); ok {
			fsType, err = DetectType(h.Get())
		} else if fsType = GetType(source.GetName()); fsType == nil {
			err = errno.Wrapf(errno.ENODEV, "backend type %s", source.GetName())
		}
	}
	var be Backend
	if err == nil {
		be, err = fsType.Mount(h.Get(), path, flags&MS_RDONLY != 0)
	}
	unlock()
	if err != nil {
		return nil, err
	}

	mountMutex.Lock()
	defer mountMutex.Unlock()
	for _, mp := range mountPoints {
		if mp.path.Equal(path) {
			return nil, errno.Wrapf(errno.EBUSY, "already mounted on %v", path)
		}
	}
	mp := &MountPoint{id: nextMountId,
		source: source,
		io:     h,
		fs:     NewFilesystem(be),
		path:   path,
		flags:  flags}
	nextMountId++
	mountPoints[mp.id] = mp
	mlog.Printf2("file/mountpoint", " created %v", mp)
	return mp, nil
}

// RemoveMount removes the mount. The root mount and mounts with other
// mounts beneath them are busy.
func RemoveMount(id uint32) error {
	mp, err := detachMount(id)
	if err != nil {
		return err
	}
	mp.close()
	return nil
}

func detachMount(id uint32) (*MountPoint, error) {
	mountMutex.Lock()
	defer mountMutex.Unlock()
	mp, ok := mountPoints[id]
	if !ok {
		return nil, errno.Wrapf(errno.EINVAL, "no mount %d", id)
	}
	if mp.path.IsRoot() {
		return nil, errno.Wrapf(errno.EBUSY, "root mount")
	}
	for _, other := range mountPoints {
		if other != mp && other.path.HasPrefix(mp.path) {
			return nil, errno.Wrapf(errno.EBUSY, "%v is mounted beneath", other.path)
		}
	}
	mlog.Printf2("file/mountpoint", "RemoveMount %v", mp)
	delete(mountPoints, id)
	return mp, nil
}

// close releases the backend, if it holds on to something.
func (self *MountPoint) close() {
	c, ok := self.fs.Backend.(interface{ Close() error })
	if !ok {
		return
	}
	defer self.fs.Locked()()
	if err := c.Close(); err != nil {
		mlog.Warnf("closing %v failed: %v", self, err)
	}
}

func GetMountPoint(id uint32) *MountPoint {
	mountMutex.Lock()
	defer mountMutex.Unlock()
	return mountPoints[id]
}

// GetMountPointByPath returns the mount whose path is exactly path.
func GetMountPointByPath(path Path) *MountPoint {
	mountMutex.Lock()
	defer mountMutex.Unlock()
	for _, mp := range mountPoints {
		if mp.path.Equal(path) {
			return mp
		}
	}
	return nil
}

// ListMountPoints returns the mounts ordered by id.
func ListMountPoints() []*MountPoint {
	mountMutex.Lock()
	defer mountMutex.Unlock()
	l := make([]*MountPoint, 0, len(mountPoints))
	for _, mp := range mountPoints {
		l = append(l, mp)
	}
	sort.Slice(l, func(i, j int) bool { return l[i].id < l[j].id })
	return l
}

// RootMountPoint returns the mount on /, or nil before init.
func RootMountPoint() *MountPoint {
	return GetMountPointByPath(RootPath())
}

// ResetMounts unmounts everything; used when tearing the layer down.
func ResetMounts() {
	mountMutex.Lock()
	old := mountPoints
	mountPoints = make(map[uint32]*MountPoint)
	mountMutex.Unlock()
	for _, mp := range old {
		mp.close()
	}
}
