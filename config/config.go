/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Thu Apr 12 08:40:02 2018 mstenber
 * Last modified: Fri Apr 13 16:20:45 2018 mstenber
 * Edit time:     71 min
 *
 */

// config describes how the filesystem layer is brought up: what the
// root is, what else gets mounted where, and where (if anywhere) the
// namespace is exported via FUSE.
//
// Configuration is YAML, with environment variable overrides for the
// most commonly changed values.
package config

import (
	"os"
	"strings"

	"github.com/fingon/go-vfscore/errno"
	"github.com/fingon/go-vfscore/fs/boltfs"
	"github.com/fingon/go-vfscore/vfs"
	"github.com/ilyakaznacheev/cleanenv"
)

// ImagePrefix marks mount sources that are image files rather than
// backend type names.
const ImagePrefix = "image:"

type RootConfig struct {
	// Image is the path of the root filesystem image; empty means
	// tmpfs.
	Image string `yaml:"image" env:"VFSCORE_ROOT_IMAGE"`

	Readonly bool `yaml:"readonly" env:"VFSCORE_ROOT_READONLY"`

	// Format creates the image if it does not exist yet.
	Format bool `yaml:"format" env:"VFSCORE_ROOT_FORMAT"`
}

type BoltfsConfig struct {
	Password      string `yaml:"password" env:"VFSCORE_PASSWORD"`
	CacheSize     int    `yaml:"cache_size" env:"VFSCORE_CACHE_SIZE" env-default:"1024"`
	BlockSize     uint32 `yaml:"block_size" env-default:"4096"`
	Capacity      uint64 `yaml:"capacity"`
	Compression   bool   `yaml:"compression"`
	DirectoryType bool   `yaml:"directory_type"`
}

type TmpfsConfig struct {
	Capacity uint64 `yaml:"capacity" env:"VFSCORE_TMPFS_CAPACITY"`
}

type MountConfig struct {
	// Source is either a backend type name (tmpfs, proc) or
	// image:<path>.
	Source   string `yaml:"source"`
	Path     string `yaml:"path"`
	Type     string `yaml:"type"`
	Readonly bool   `yaml:"readonly"`
}

type FuseConfig struct {
	Mountpoint string `yaml:"mountpoint" env:"VFSCORE_MOUNTPOINT"`
	Debug      bool   `yaml:"debug" env:"VFSCORE_FUSE_DEBUG"`
}

type Config struct {
	Root   RootConfig    `yaml:"root"`
	Boltfs BoltfsConfig  `yaml:"boltfs"`
	Tmpfs  TmpfsConfig   `yaml:"tmpfs"`
	Mounts []MountConfig `yaml:"mounts"`
	Fuse   FuseConfig    `yaml:"fuse"`
}

// Load reads the configuration file at path (if any) and applies
// environment overrides and defaults.
func Load(path string) (*Config, error) {
	var cfg Config
	var err error
	if path == "" {
		err = cleanenv.ReadEnv(&cfg)
	} else {
		if _, serr := os.Stat(path); serr != nil {
			return nil, errno.Wrapf(errno.ENOENT, "config file %s", path)
		}
		err = cleanenv.ReadConfig(path, &cfg)
	}
	if err != nil {
		return nil, errno.Wrapf(errno.EINVAL, "cannot read config: %v", err)
	}
	if err = cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// MustLoad is Load that panics on failure.
func MustLoad(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		panic(err)
	}
	return cfg
}

func (self *Config) Validate() error {
	bs := self.Boltfs.BlockSize
	if bs < boltfs.MinBlockSize || bs > boltfs.MaxBlockSize {
		return errno.Wrapf(errno.EINVAL, "boltfs block size %d", bs)
	}
	for _, m := range self.Mounts {
		if !strings.HasPrefix(m.Path, "/") {
			return errno.Wrapf(errno.EINVAL, "mount path %q is not absolute", m.Path)
		}
		if m.Source == "" {
			return errno.Wrapf(errno.EINVAL, "mount on %s has no source", m.Path)
		}
		if m.Source == ImagePrefix {
			return errno.Wrapf(errno.EINVAL, "mount on %s has empty image path", m.Path)
		}
	}
	return nil
}

func (self *Config) Options() vfs.Options {
	return vfs.Options{TmpfsCapacity: self.Tmpfs.Capacity,
		BoltPassword: self.Boltfs.Password,
		CacheSize:    self.Boltfs.CacheSize}
}

func (self *Config) FormatOptions() boltfs.FormatOptions {
	return boltfs.FormatOptions{BlockSize: self.Boltfs.BlockSize,
		Capacity:      self.Boltfs.Capacity,
		Compression:   self.Boltfs.Compression,
		DirectoryType: self.Boltfs.DirectoryType,
		Password:      self.Boltfs.Password}
}

// ImagePath returns the image path of an image:<path> source.
func (self MountConfig) ImagePath() (string, bool) {
	if !strings.HasPrefix(self.Source, ImagePrefix) {
		return "", false
	}
	return self.Source[len(ImagePrefix):], true
}
