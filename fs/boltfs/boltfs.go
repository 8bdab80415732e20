/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Mon Apr  9 10:30:45 2018 mstenber
 * Last modified: Fri Apr 13 14:02:18 2018 mstenber
 * Edit time:     188 min
 *
 */

// boltfs is a persistent filesystem stored in a bbolt database
// file. Inodes are CBOR records; directories are lists of dirent
// blocks; file data is kept in fixed size blocks that may be
// compressed and encrypted.
//
// Buckets:
//
// - super: the superblock
// - inodes: inode number -> Inode
// - dirblocks: inode number + block index -> dirent block
// - data: inode number + block index -> data block
package boltfs

import (
	"bytes"
	"encoding/binary"
	"time"

	"github.com/bluele/gcache"
	"github.com/fingon/go-vfscore/channel"
	"github.com/fingon/go-vfscore/codec"
	"github.com/fingon/go-vfscore/errno"
	"github.com/fingon/go-vfscore/file"
	"github.com/fingon/go-vfscore/fs/dirent"
	"github.com/fingon/go-vfscore/mlog"
	"github.com/fingon/go-vfscore/perm"
	"github.com/fingon/go-vfscore/util"
	"github.com/google/uuid"
	bbolt "go.etcd.io/bbolt"
)

type Options struct {
	Password string

	// CacheSize is the number of inodes kept decoded; zero disables
	// the cache.
	CacheSize int

	Readonly bool
}

// Boltfs is a mounted boltfs. Callers serialize access (see
// file.Filesystem).
type Boltfs struct {
	db       *bbolt.DB
	path     string
	readonly bool
	sb       Superblock
	codec    codec.Codec
	cache    gcache.Cache
}

var _ file.Backend = &Boltfs{}

// Open mounts the boltfs in the database file at path.
func Open(path string, opts Options) (*Boltfs, error) {
	mlog.Printf2("fs/boltfs/boltfs", "Open %s ro:%v", path, opts.Readonly)
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: time.Second, ReadOnly: opts.Readonly})
	if err == bbolt.ErrTimeout {
		return nil, errno.Wrapf(errno.EBUSY, "%s is in use", path)
	}
	if err != nil {
		return nil, errno.Wrapf(errno.EIO, "open %s: %v", path, err)
	}
	self := &Boltfs{db: db, path: path, readonly: opts.Readonly}
	if err = self.init(opts); err != nil {
		db.Close()
		return nil, err
	}
	return self, nil
}

func (self *Boltfs) init(opts Options) error {
	err := self.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(superBucket)
		if b == nil {
			return errno.Wrapf(errno.EINVAL, "%s is not a boltfs", self.path)
		}
		v := b.Get(superKey)
		if v == nil {
			return errno.Wrapf(errno.EINVAL, "%s has no superblock", self.path)
		}
		return decode(v, &self.sb)
	})
	if err != nil {
		return err
	}
	if self.sb.Version != version {
		return errno.Wrapf(errno.EINVAL, "boltfs version %d", self.sb.Version)
	}
	if _, err := uuid.Parse(self.sb.Uuid); err != nil {
		return errno.Wrapf(errno.EIO, "bad uuid %q", self.sb.Uuid)
	}
	var codecs []codec.Codec
	if len(self.sb.Salt) > 0 {
		if opts.Password == "" {
			return errno.Wrapf(errno.EACCES, "%s is encrypted", self.path)
		}
		c := newEncryptingCodec(opts.Password, self.sb.Salt)
		if _, err := c.DecodeBytes(self.sb.Check, superKey); err != nil {
			return errno.Wrapf(errno.EACCES, "wrong password for %s", self.path)
		}
		codecs = append(codecs, c)
	}
	if self.sb.HasRequiredFeature(FeatureCompression) {
		codecs = append(codecs, &codec.CompressingCodec{})
	}
	if len(codecs) > 0 {
		self.codec = codec.CodecChain{}.Init(codecs...)
	}
	if opts.CacheSize > 0 {
		self.cache = gcache.New(opts.CacheSize).
			ARC().
			Build()
	}
	mlog.Printf2("fs/boltfs/boltfs", " mounted %s (%s)", self.path, self.sb.Uuid)
	return nil
}

func (self *Boltfs) Close() error {
	mlog.Printf2("fs/boltfs/boltfs", "Close %s", self.path)
	return self.db.Close()
}

func (self *Boltfs) GetUuid() string {
	return self.sb.Uuid
}

func (self *Boltfs) GetSuperblock() Superblock {
	return self.sb
}

func (self *Boltfs) blockSize() uint64 {
	return uint64(self.sb.BlockSize)
}

// update runs cb in a read-write transaction. If it fails, the
// in-memory superblock and cache are rolled back with it.
func (self *Boltfs) update(cb func(tx *bbolt.Tx) error) error {
	if self.readonly {
		return errno.Wrapf(errno.EROFS, "boltfs %s", self.path)
	}
	sb := self.sb
	err := self.db.Update(func(tx *bbolt.Tx) error {
		if err := cb(tx); err != nil {
			return err
		}
		return tx.Bucket(superBucket).Put(superKey, encode(&self.sb))
	})
	if err != nil {
		self.sb = sb
		if self.cache != nil {
			self.cache.Purge()
		}
	}
	return err
}

func (self *Boltfs) getInode(tx *bbolt.Tx, ino uint32) (*Inode, error) {
	if self.cache != nil {
		if v, err := self.cache.Get(ino); err == nil {
			in := *v.(*Inode)
			return &in, nil
		}
	}
	v := tx.Bucket(inodeBucket).Get(inoKey(ino))
	if v == nil {
		return nil, errno.Wrapf(errno.ENOENT, "inode %d", ino)
	}
	var in Inode
	if err := decode(v, &in); err != nil {
		return nil, err
	}
	if self.cache != nil {
		c := in
		self.cache.Set(ino, &c)
	}
	return &in, nil
}

func (self *Boltfs) getDir(tx *bbolt.Tx, ino uint32) (*Inode, error) {
	in, err := self.getInode(tx, ino)
	if err != nil {
		return nil, err
	}
	if in.Kind() != file.Directory {
		return nil, errno.Wrapf(errno.ENOTDIR, "inode %d", ino)
	}
	return in, nil
}

func (self *Boltfs) putInode(tx *bbolt.Tx, ino uint32, in *Inode) error {
	if err := tx.Bucket(inodeBucket).Put(inoKey(ino), encode(in)); err != nil {
		return err
	}
	if self.cache != nil {
		c := *in
		self.cache.Set(ino, &c)
	}
	return nil
}

// blockKeys returns the keys of bucket blocks of ino with index >=
// from.
func blockKeys(b *bbolt.Bucket, ino, from uint32) [][]byte {
	var keys [][]byte
	prefix := inoKey(ino)
	c := b.Cursor()
	for k, _ := c.Seek(blockKey(ino, from)); k != nil && bytes.HasPrefix(k, prefix); k, _ = c.Next() {
		keys = append(keys, append([]byte(nil), k...))
	}
	return keys
}

func (self *Boltfs) allocBlock() error {
	bs := self.blockSize()
	if self.sb.Capacity > 0 && self.sb.Used+bs > self.sb.Capacity {
		return errno.Wrapf(errno.ENOSPC, "boltfs %s full", self.path)
	}
	self.sb.Used += bs
	return nil
}

func (self *Boltfs) freeBlocks(b *bbolt.Bucket, ino, from uint32) error {
	for _, k := range blockKeys(b, ino, from) {
		if err := b.Delete(k); err != nil {
			return err
		}
		self.sb.Used -= self.blockSize()
	}
	return nil
}

func (self *Boltfs) freeInode(tx *bbolt.Tx, ino uint32) error {
	mlog.Printf2("fs/boltfs/boltfs", " freeInode %d", ino)
	if err := self.freeBlocks(tx.Bucket(dataBucket), ino, 0); err != nil {
		return err
	}
	if err := self.freeBlocks(tx.Bucket(dirBucket), ino, 0); err != nil {
		return err
	}
	if self.cache != nil {
		self.cache.Remove(ino)
	}
	self.sb.Inodes--
	return tx.Bucket(inodeBucket).Delete(inoKey(ino))
}

// walkDir calls cb with each block of directory ino until it
// returns false. The blocks are copies; cb must not modify the
// bucket.
func walkDir(tx *bbolt.Tx, ino uint32, cb func(idx uint32, b *dirent.Block) (bool, error)) error {
	prefix := inoKey(ino)
	c := tx.Bucket(dirBucket).Cursor()
	for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
		b := dirent.LoadBlock(append([]byte(nil), v...))
		cont, err := cb(binary.BigEndian.Uint32(k[4:]), b)
		if err != nil || !cont {
			return err
		}
	}
	return nil
}

func (self *Boltfs) lookupEntry(tx *bbolt.Tx, dir uint32, name string) (idx uint32, block *dirent.Block, e *dirent.Entry, err error) {
	err = walkDir(tx, dir, func(i uint32, b *dirent.Block) (bool, error) {
		found, err := b.Lookup(&self.sb, name)
		if errno.Is(err, errno.ENOENT) {
			return true, nil
		}
		if err != nil {
			return false, err
		}
		idx, block, e = i, b, found
		return false, nil
	})
	if err == nil && e == nil {
		err = errno.Wrapf(errno.ENOENT, "%s", name)
	}
	return
}

func (self *Boltfs) insertEntry(tx *bbolt.Tx, dir, ino uint32, kind file.Kind, name string) error {
	var last uint32
	var nblocks int
	var block *dirent.Block
	err := walkDir(tx, dir, func(i uint32, b *dirent.Block) (bool, error) {
		last = i
		nblocks++
		err := b.Insert(&self.sb, ino, kind, name)
		if errno.Is(err, errno.ENOSPC) {
			return true, nil
		}
		if err != nil {
			return false, err
		}
		block = b
		return false, nil
	})
	if err != nil {
		return err
	}
	if block == nil {
		if err := self.allocBlock(); err != nil {
			return err
		}
		if nblocks > 0 {
			last++
		}
		block, err = dirent.InitBlock(int(self.sb.BlockSize))
		if err != nil {
			return err
		}
		if err := block.Insert(&self.sb, ino, kind, name); err != nil {
			return err
		}
	}
	return tx.Bucket(dirBucket).Put(blockKey(dir, last), block.Bytes())
}

func (self *Boltfs) removeEntry(tx *bbolt.Tx, dir uint32, name string) error {
	idx, block, _, err := self.lookupEntry(tx, dir, name)
	if err != nil {
		return err
	}
	if _, err := block.Remove(&self.sb, name); err != nil {
		return err
	}
	return tx.Bucket(dirBucket).Put(blockKey(dir, idx), block.Bytes())
}

func (self *Boltfs) entryKind(tx *bbolt.Tx, e *dirent.Entry) (file.Kind, error) {
	if k, ok := e.GetType(&self.sb); ok {
		return k, nil
	}
	in, err := self.getInode(tx, e.Inode)
	if err != nil {
		return file.Regular, err
	}
	return in.Kind(), nil
}

func (self *Boltfs) dirEntries(tx *bbolt.Tx, dir uint32) (file.DirectoryContent, error) {
	d := file.NewDirectoryContent()
	var entries []*dirent.Entry
	err := walkDir(tx, dir, func(i uint32, b *dirent.Block) (bool, error) {
		l, err := b.Entries()
		entries = append(entries, l...)
		return err == nil, err
	})
	if err != nil {
		return d, err
	}
	for _, e := range entries {
		kind, err := self.entryKind(tx, e)
		if err != nil {
			return d, err
		}
		d.Entries[e.GetName(&self.sb)] = file.DirEntry{Node: file.NodeId(e.Inode), Kind: kind}
	}
	return d, nil
}

func isEmptyDir(tx *bbolt.Tx, dir uint32) (bool, error) {
	empty := true
	err := walkDir(tx, dir, func(i uint32, b *dirent.Block) (bool, error) {
		e, err := b.IsEmpty()
		empty = empty && e
		return empty && err == nil, err
	})
	return empty, err
}

func (self *Boltfs) loadDataBlock(tx *bbolt.Tx, ino, idx uint32) ([]byte, error) {
	key := blockKey(ino, idx)
	v := tx.Bucket(dataBucket).Get(key)
	if v == nil {
		return nil, nil
	}
	if self.codec == nil {
		return append([]byte(nil), v...), nil
	}
	return self.codec.DecodeBytes(v, key)
}

func (self *Boltfs) storeDataBlock(tx *bbolt.Tx, ino, idx uint32, data []byte) (err error) {
	key := blockKey(ino, idx)
	if self.codec != nil {
		data, err = self.codec.EncodeBytes(data, key)
		if err != nil {
			return
		}
	}
	return tx.Bucket(dataBucket).Put(key, data)
}

func (self *Boltfs) readData(tx *bbolt.Tx, ino uint32, in *Inode, off uint64, buf []byte) (uint64, error) {
	if off >= in.Size {
		return 0, nil
	}
	end := util.U64Min(off+uint64(len(buf)), in.Size)
	bs := self.blockSize()
	for pos := off; pos < end; {
		boff := pos % bs
		n := util.U64Min(bs-boff, end-pos)
		dst := buf[pos-off : pos-off+n]
		data, err := self.loadDataBlock(tx, ino, uint32(pos/bs))
		if err != nil {
			return 0, err
		}
		c := 0
		if boff < uint64(len(data)) {
			c = copy(dst, data[boff:])
		}
		for i := c; i < len(dst); i++ {
			dst[i] = 0
		}
		pos += n
	}
	return end - off, nil
}

func (self *Boltfs) writeData(tx *bbolt.Tx, ino uint32, in *Inode, off uint64, buf []byte) error {
	bs := self.blockSize()
	end := off + uint64(len(buf))
	for pos := off; pos < end; {
		idx := uint32(pos / bs)
		boff := pos % bs
		n := util.U64Min(bs-boff, end-pos)
		data, err := self.loadDataBlock(tx, ino, idx)
		if err != nil {
			return err
		}
		if data == nil {
			if err := self.allocBlock(); err != nil {
				return err
			}
		}
		if uint64(len(data)) < bs {
			nd := make([]byte, bs)
			copy(nd, data)
			data = nd
		}
		copy(data[boff:], buf[pos-off:pos-off+n])
		if err := self.storeDataBlock(tx, ino, idx, data); err != nil {
			return err
		}
		pos += n
	}
	if end > in.Size {
		in.Size = end
	}
	return nil
}

// truncate sets the size. Blocks past the end are freed and the tail
// of the last one is zeroed, so that growing again reads zeroes.
func (self *Boltfs) truncate(tx *bbolt.Tx, ino uint32, in *Inode, size uint64) error {
	mlog.Printf2("fs/boltfs/boltfs", " truncate %d %d->%d", ino, in.Size, size)
	if size < in.Size {
		bs := self.blockSize()
		if err := self.freeBlocks(tx.Bucket(dataBucket), ino, uint32((size+bs-1)/bs)); err != nil {
			return err
		}
		if size%bs != 0 {
			idx := uint32(size / bs)
			data, err := self.loadDataBlock(tx, ino, idx)
			if err != nil {
				return err
			}
			if data != nil {
				for i := size % bs; i < uint64(len(data)); i++ {
					data[i] = 0
				}
				if err := self.storeDataBlock(tx, ino, idx, data); err != nil {
					return err
				}
			}
		}
	}
	in.Size = size
	return nil
}

func (self *Boltfs) GetName() string {
	return Name
}

func (self *Boltfs) IsReadonly() bool {
	return self.readonly
}

func (self *Boltfs) MustCache() bool {
	return false
}

func (self *Boltfs) GetStat(io channel.IO) (file.Statfs, error) {
	bs := self.sb.BlockSize
	used := int64(self.sb.Used / uint64(bs))
	st := file.Statfs{Type: Magic,
		Bsize:   bs,
		Frsize:  bs,
		Namelen: file.NameMax,
		Files:   int64(self.sb.Inodes),
		Ffree:   int64(^uint32(0) - self.sb.NextInode)}
	if self.sb.Capacity > 0 {
		st.Blocks = int64(self.sb.Capacity / uint64(bs))
		st.Bfree = st.Blocks - used
	} else {
		st.Blocks = used
	}
	st.Bavail = st.Bfree
	return st, nil
}

func (self *Boltfs) GetRootNode(io channel.IO) (file.NodeId, error) {
	return RootIno, nil
}

func (self *Boltfs) Lookup(io channel.IO, parent *file.NodeId, name string) (node file.NodeId, err error) {
	pino := uint32(RootIno)
	if parent != nil {
		pino = uint32(*parent)
	}
	err = self.db.View(func(tx *bbolt.Tx) error {
		if _, err := self.getDir(tx, pino); err != nil {
			return err
		}
		_, _, e, err := self.lookupEntry(tx, pino, name)
		if err != nil {
			return err
		}
		node = file.NodeId(e.Inode)
		return nil
	})
	return
}

func (self *Boltfs) Load(io channel.IO, node file.NodeId, name string) (f *file.File, err error) {
	ino := uint32(node)
	err = self.db.View(func(tx *bbolt.Tx) error {
		in, err := self.getInode(tx, ino)
		if err != nil {
			return err
		}
		var content file.Content
		switch kind := in.Kind(); kind {
		case file.Directory:
			content, err = self.dirEntries(tx, ino)
			if err != nil {
				return err
			}
		default:
			content = file.NewContent(kind, in.Target, in.Major, in.Minor)
		}
		f = file.NewFile(name, in.Uid, in.Gid, in.Mode, file.OnBackend(0, node), content)
		f.SetHardLinksCount(in.Nlink)
		f.SetSize(in.Size)
		bs := self.blockSize()
		f.BlocksCount = (in.Size + bs - 1) / bs * (bs / 512)
		f.Ctime, f.Mtime, f.Atime = file.Timestamp(in.Ctime), file.Timestamp(in.Mtime), file.Timestamp(in.Atime)
		return nil
	})
	return
}

func (self *Boltfs) Create(io channel.IO, parent file.NodeId, name string, uid, gid, mode uint32, content file.Content) (*file.File, error) {
	mlog.Printf2("fs/boltfs/boltfs", "Create %d %s", parent, name)
	pino := uint32(parent)
	var ino uint32
	err := self.update(func(tx *bbolt.Tx) error {
		p, err := self.getDir(tx, pino)
		if err != nil {
			return err
		}
		if _, _, _, err := self.lookupEntry(tx, pino, name); err == nil {
			return errno.Wrapf(errno.EEXIST, "%s", name)
		} else if !errno.Is(err, errno.ENOENT) {
			return err
		}
		ino = self.sb.NextInode
		self.sb.NextInode++
		self.sb.Inodes++
		now := uint64(file.Now())
		kind := content.Kind()
		in := Inode{Mode: kind.Mode() | mode&perm.PermMask,
			Uid:   uid,
			Gid:   gid,
			Nlink: 1,
			Ctime: now,
			Mtime: now,
			Atime: now}
		switch c := content.(type) {
		case file.DirectoryContent:
			in.Nlink = 2
			p.Nlink++
		case file.LinkContent:
			in.Target = c.Target
			in.Size = uint64(len(c.Target))
		case file.BlockDeviceContent:
			in.Major, in.Minor = c.Major, c.Minor
		case file.CharDeviceContent:
			in.Major, in.Minor = c.Major, c.Minor
		}
		if err := self.insertEntry(tx, pino, ino, kind, name); err != nil {
			return err
		}
		p.Mtime = now
		p.Ctime = now
		if err := self.putInode(tx, pino, p); err != nil {
			return err
		}
		return self.putInode(tx, ino, &in)
	})
	if err != nil {
		return nil, err
	}
	return self.Load(io, file.NodeId(ino), name)
}

func (self *Boltfs) Link(io channel.IO, parent file.NodeId, name string, node file.NodeId) error {
	pino, ino := uint32(parent), uint32(node)
	return self.update(func(tx *bbolt.Tx) error {
		if _, err := self.getDir(tx, pino); err != nil {
			return err
		}
		in, err := self.getInode(tx, ino)
		if err != nil {
			return err
		}
		if in.Kind() == file.Directory {
			return errno.Wrapf(errno.EPERM, "hard link to directory")
		}
		if _, _, _, err := self.lookupEntry(tx, pino, name); err == nil {
			return errno.Wrapf(errno.EEXIST, "%s", name)
		}
		if err := self.insertEntry(tx, pino, ino, in.Kind(), name); err != nil {
			return err
		}
		in.Nlink++
		in.Ctime = uint64(file.Now())
		return self.putInode(tx, ino, in)
	})
}

func (self *Boltfs) Update(io channel.IO, f *file.File) error {
	ino := uint32(f.GetLocation().GetNode())
	return self.update(func(tx *bbolt.Tx) error {
		in, err := self.getInode(tx, ino)
		if err != nil {
			return err
		}
		if f.IsDirty(file.AttrOwner) {
			in.Uid, in.Gid = f.GetUid(), f.GetGid()
		}
		if f.IsDirty(file.AttrMode) {
			in.Mode = in.Mode&file.S_IFMT | f.GetPermissions()
		}
		if f.IsDirty(file.AttrTimes) {
			in.Mtime, in.Atime = uint64(f.Mtime), uint64(f.Atime)
		}
		in.Ctime = uint64(f.Ctime)
		if in.Kind() == file.Regular && f.IsDirty(file.AttrSize) && f.GetSize() != in.Size {
			if err := self.truncate(tx, ino, in, f.GetSize()); err != nil {
				return err
			}
		}
		return self.putInode(tx, ino, in)
	})
}

func (self *Boltfs) Unlink(io channel.IO, parent file.NodeId, name string) (links uint16, err error) {
	mlog.Printf2("fs/boltfs/boltfs", "Unlink %d %s", parent, name)
	pino := uint32(parent)
	err = self.update(func(tx *bbolt.Tx) error {
		p, err := self.getDir(tx, pino)
		if err != nil {
			return err
		}
		_, _, e, err := self.lookupEntry(tx, pino, name)
		if err != nil {
			return err
		}
		ino := e.Inode
		in, err := self.getInode(tx, ino)
		if err != nil {
			return err
		}
		if in.Kind() == file.Directory {
			empty, err := isEmptyDir(tx, ino)
			if err != nil {
				return err
			}
			if !empty {
				return errno.Wrapf(errno.ENOTEMPTY, "%s", name)
			}
			p.Nlink--
			in.Nlink = 0
		} else {
			in.Nlink--
		}
		if err := self.removeEntry(tx, pino, name); err != nil {
			return err
		}
		now := uint64(file.Now())
		p.Mtime = now
		p.Ctime = now
		if err := self.putInode(tx, pino, p); err != nil {
			return err
		}
		links = in.Nlink
		if links == 0 {
			return self.freeInode(tx, ino)
		}
		in.Ctime = now
		return self.putInode(tx, ino, in)
	})
	return
}

func checkRegular(in *Inode, ino uint32) error {
	switch in.Kind() {
	case file.Regular:
		return nil
	case file.Directory:
		return errno.Wrapf(errno.EISDIR, "inode %d", ino)
	}
	return errno.Wrapf(errno.EINVAL, "inode %d", ino)
}

func (self *Boltfs) Read(io channel.IO, node file.NodeId, off uint64, buf []byte) (n uint64, err error) {
	ino := uint32(node)
	err = self.db.View(func(tx *bbolt.Tx) error {
		in, err := self.getInode(tx, ino)
		if err != nil {
			return err
		}
		if err := checkRegular(in, ino); err != nil {
			return err
		}
		n, err = self.readData(tx, ino, in, off, buf)
		return err
	})
	return
}

func (self *Boltfs) Write(io channel.IO, node file.NodeId, off uint64, buf []byte) error {
	ino := uint32(node)
	return self.update(func(tx *bbolt.Tx) error {
		in, err := self.getInode(tx, ino)
		if err != nil {
			return err
		}
		if err := checkRegular(in, ino); err != nil {
			return err
		}
		if err := self.writeData(tx, ino, in, off, buf); err != nil {
			return err
		}
		in.Mtime = uint64(file.Now())
		return self.putInode(tx, ino, in)
	})
}

// Type is the boltfs backend type. It is mounted from block devices
// backed by a host file.
type Type struct {
	Password  string
	CacheSize int
}

var _ file.BackendType = Type{}

func (self Type) GetName() string {
	return Name
}

// Detect looks for the bbolt meta page magic; whether the database
// holds a boltfs is only found out at mount time.
func (self Type) Detect(io channel.IO) (bool, error) {
	buf := make([]byte, 4)
	n, _, err := io.Read(16, buf)
	if err != nil {
		return false, err
	}
	return n == 4 && binary.LittleEndian.Uint32(buf) == boltMagic, nil
}

func (self Type) Mount(io channel.IO, path file.Path, readonly bool) (file.Backend, error) {
	named, ok := io.(channel.Named)
	if !ok {
		return nil, errno.Wrapf(errno.ENODEV, "boltfs needs a file backed device")
	}
	return Open(named.Path(), Options{Password: self.Password,
		CacheSize: self.CacheSize,
		Readonly:  readonly})
}
