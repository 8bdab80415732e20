/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Thu Apr 12 10:12:55 2018 mstenber
 * Last modified: Fri Apr 13 16:31:10 2018 mstenber
 * Edit time:     34 min
 *
 */

package config

import (
	"os"

	"github.com/fingon/go-vfscore/device"
	"github.com/fingon/go-vfscore/errno"
	"github.com/fingon/go-vfscore/file"
	"github.com/fingon/go-vfscore/fs/boltfs"
	"github.com/fingon/go-vfscore/mlog"
	"github.com/fingon/go-vfscore/perm"
	"github.com/fingon/go-vfscore/vfs"
)

// Boot brings the filesystem layer up as described by the
// configuration. On failure, whatever was mounted is torn down again.
func (self *Config) Boot() error {
	mlog.Printf2("config/boot", "Boot")
	if vfs.IsInit() {
		return errno.Wrapf(errno.EBUSY, "already booted")
	}
	if err := vfs.RegisterDefaults(self.Options()); err != nil {
		return err
	}
	err := self.boot()
	if err != nil {
		vfs.Shutdown()
	}
	return err
}

func (self *Config) boot() error {
	var err error
	if self.Root.Image == "" {
		err = vfs.Init(nil)
	} else {
		var id device.ID
		id, err = self.attach(self.Root.Image, self.Root.Readonly, self.Root.Format)
		if err != nil {
			return err
		}
		if self.Root.Readonly {
			err = vfs.InitReadonly(&id)
		} else {
			err = vfs.Init(&id)
		}
	}
	if err != nil {
		return err
	}
	for _, m := range self.Mounts {
		if err = self.mount(m); err != nil {
			return err
		}
	}
	return nil
}

func (self *Config) attach(path string, readonly, format bool) (device.ID, error) {
	if format {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			mlog.Printf2("config/boot", " formatting %s", path)
			if err = boltfs.Format(path, self.FormatOptions()); err != nil {
				return device.ID{}, err
			}
		}
	}
	return vfs.AttachImage(path, readonly)
}

func (self *Config) mount(m MountConfig) error {
	mlog.Printf2("config/boot", " mount %s on %s", m.Source, m.Path)
	p, err := file.ParsePath(m.Path)
	if err != nil {
		return err
	}
	if err = mkdirAll(p); err != nil {
		return err
	}
	source := file.NoDevSource(m.Source)
	if path, ok := m.ImagePath(); ok {
		id, err := self.attach(path, m.Readonly, false)
		if err != nil {
			return err
		}
		source = file.DeviceSource(id)
	}
	_, err = vfs.Mount(source, m.Path, m.Type, m.Readonly, perm.Kernel)
	return err
}

func mkdirAll(p file.Path) error {
	dir, err := file.GetFileFromPath(file.RootPath(), perm.Kernel, true)
	if err != nil {
		return err
	}
	for _, name := range p.Components() {
		next, err := file.GetFileFromParent(dir, name, perm.Kernel, true)
		if errno.Is(err, errno.ENOENT) {
			next, err = file.CreateFile(dir, name, perm.Kernel, 0o755, file.NewDirectoryContent())
		}
		if err != nil {
			return err
		}
		dir = next
	}
	return nil
}
