/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Mon Apr  9 09:40:11 2018 mstenber
 * Last modified: Fri Apr 13 11:12:45 2018 mstenber
 * Edit time:     52 min
 *
 */

package boltfs

import (
	"crypto/rand"
	"encoding/binary"
	"log"
	"time"

	"github.com/fingon/go-vfscore/codec"
	"github.com/fingon/go-vfscore/errno"
	"github.com/fingon/go-vfscore/file"
	"github.com/fingon/go-vfscore/fs/dirent"
	"github.com/fingon/go-vfscore/mlog"
	"github.com/google/uuid"
	ugorji "github.com/ugorji/go/codec"
	bbolt "go.etcd.io/bbolt"
)

const (
	Name = "boltfs"

	// Magic is the statfs type of boltfs.
	Magic = 0x626f6c74

	// boltMagic is what bbolt writes in its meta pages.
	boltMagic = 0xED0CDAED

	RootIno  = 2
	firstIno = 11

	version = 1

	DefaultBlockSize = 4096
	MinBlockSize     = 1024
	MaxBlockSize     = 32768

	pbkdf2Iterations = 4096
)

// Features of the superblock.
const (
	FeatureCompression   uint32 = 0x0001
	FeatureDirectoryType        = dirent.FeatureDirectoryType
)

var (
	superBucket = []byte("super")
	inodeBucket = []byte("inodes")
	dirBucket   = []byte("dirblocks")
	dataBucket  = []byte("data")
	superKey    = []byte("super")

	checkPlaintext = []byte("boltfs")
)

// Superblock is the per-filesystem record.
type Superblock struct {
	Version   uint32
	Uuid      string
	Features  uint32
	BlockSize uint32

	// Capacity and Used are in bytes of stored blocks; zero
	// capacity is unlimited.
	Capacity uint64
	Used     uint64

	Inodes    uint64
	NextInode uint32

	// Salt and Check are set if the data is encrypted.
	Salt  []byte
	Check []byte
}

var _ dirent.Superblock = &Superblock{}

func (self *Superblock) HasRequiredFeature(feature uint32) bool {
	return self.Features&feature != 0
}

// Inode is the per-node record. Mode carries the type bits too.
type Inode struct {
	Mode                uint32
	Uid, Gid            uint32
	Nlink               uint16
	Size                uint64
	Ctime, Mtime, Atime uint64
	Target              string
	Major, Minor        uint32
}

func (self *Inode) Kind() file.Kind {
	k, _ := file.KindFromMode(self.Mode)
	return k
}

var cborHandle ugorji.CborHandle

func encode(v interface{}) []byte {
	var buf []byte
	enc := ugorji.NewEncoderBytes(&buf, &cborHandle)
	if err := enc.Encode(v); err != nil {
		log.Panic(err)
	}
	return buf
}

func decode(data []byte, v interface{}) error {
	dec := ugorji.NewDecoderBytes(data, &cborHandle)
	if err := dec.Decode(v); err != nil {
		return errno.Wrapf(errno.EIO, "cbor: %v", err)
	}
	return nil
}

func inoKey(ino uint32) []byte {
	k := make([]byte, 4)
	binary.BigEndian.PutUint32(k, ino)
	return k
}

func blockKey(ino, idx uint32) []byte {
	k := make([]byte, 8)
	binary.BigEndian.PutUint32(k, ino)
	binary.BigEndian.PutUint32(k[4:], idx)
	return k
}

type FormatOptions struct {
	// BlockSize of directory and data blocks; zero means
	// DefaultBlockSize.
	BlockSize uint32

	// Capacity in bytes; zero is unlimited.
	Capacity uint64

	Compression   bool
	DirectoryType bool

	// Password enables encryption of file data.
	Password string
}

func newEncryptingCodec(password string, salt []byte) *codec.EncryptingCodec {
	return codec.EncryptingCodec{}.Init([]byte(password), salt, pbkdf2Iterations)
}

// Format creates an empty boltfs in the database file at path. EEXIST
// if there is one already.
func Format(path string, opts FormatOptions) error {
	mlog.Printf2("fs/boltfs/format", "Format %s %+v", path, opts)
	bs := opts.BlockSize
	if bs == 0 {
		bs = DefaultBlockSize
	}
	if bs < MinBlockSize || bs > MaxBlockSize || bs%dirent.Alignment != 0 {
		return errno.Wrapf(errno.EINVAL, "block size %d", bs)
	}
	sb := Superblock{Version: version,
		Uuid:      uuid.New().String(),
		BlockSize: bs,
		Capacity:  opts.Capacity,
		Inodes:    1,
		NextInode: firstIno}
	if opts.Compression {
		sb.Features |= FeatureCompression
	}
	if opts.DirectoryType {
		sb.Features |= FeatureDirectoryType
	}
	if opts.Password != "" {
		sb.Salt = make([]byte, 16)
		if _, err := rand.Read(sb.Salt); err != nil {
			return err
		}
		check, err := newEncryptingCodec(opts.Password, sb.Salt).EncodeBytes(checkPlaintext, superKey)
		if err != nil {
			return err
		}
		sb.Check = check
	}
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return errno.Wrapf(errno.EIO, "open %s: %v", path, err)
	}
	defer db.Close()
	now := uint64(file.Now())
	root := Inode{Mode: file.S_IFDIR | 0o755, Nlink: 2, Ctime: now, Mtime: now, Atime: now}
	return db.Update(func(tx *bbolt.Tx) error {
		if tx.Bucket(superBucket) != nil {
			return errno.Wrapf(errno.EEXIST, "%s is already formatted", path)
		}
		for _, name := range [][]byte{superBucket, inodeBucket, dirBucket, dataBucket} {
			if _, err := tx.CreateBucket(name); err != nil {
				return err
			}
		}
		if err := tx.Bucket(superBucket).Put(superKey, encode(&sb)); err != nil {
			return err
		}
		return tx.Bucket(inodeBucket).Put(inoKey(RootIno), encode(&root))
	})
}
