/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Thu Mar 29 10:02:14 2018 mstenber
 * Last modified: Fri Apr  6 10:11:27 2018 mstenber
 * Edit time:     28 min
 *
 */

package file

import "fmt"

// Kind is the type of a node.
type Kind uint8

const (
	Regular Kind = iota
	Directory
	Link
	Fifo
	Socket
	BlockDevice
	CharDevice
)

var Kinds = []Kind{Regular, Directory, Link, Fifo, Socket, BlockDevice, CharDevice}

// Mode type bits.
const (
	S_IFMT   uint32 = 0o170000
	S_IFSOCK uint32 = 0o140000
	S_IFLNK  uint32 = 0o120000
	S_IFREG  uint32 = 0o100000
	S_IFBLK  uint32 = 0o060000
	S_IFDIR  uint32 = 0o040000
	S_IFCHR  uint32 = 0o020000
	S_IFIFO  uint32 = 0o010000
)

// getdents64 entry types.
const (
	DT_UNKNOWN uint8 = 0
	DT_FIFO    uint8 = 1
	DT_CHR     uint8 = 2
	DT_DIR     uint8 = 4
	DT_BLK     uint8 = 6
	DT_REG     uint8 = 8
	DT_LNK     uint8 = 10
	DT_SOCK    uint8 = 12
)

var kindNames = []string{"regular", "directory", "link", "fifo", "socket", "block", "char"}

func (self Kind) String() string {
	if int(self) < len(kindNames) {
		return kindNames[self]
	}
	return fmt.Sprintf("kind%d", uint8(self))
}

// KindFromMode returns the kind encoded in the type bits of mode.
// Zero type bits mean a regular file.
func KindFromMode(mode uint32) (Kind, bool) {
	switch mode & S_IFMT {
	case S_IFSOCK:
		return Socket, true
	case S_IFLNK:
		return Link, true
	case S_IFREG, 0:
		return Regular, true
	case S_IFBLK:
		return BlockDevice, true
	case S_IFDIR:
		return Directory, true
	case S_IFCHR:
		return CharDevice, true
	case S_IFIFO:
		return Fifo, true
	}
	return Regular, false
}

func (self Kind) Mode() uint32 {
	switch self {
	case Socket:
		return S_IFSOCK
	case Link:
		return S_IFLNK
	case Regular:
		return S_IFREG
	case BlockDevice:
		return S_IFBLK
	case Directory:
		return S_IFDIR
	case CharDevice:
		return S_IFCHR
	case Fifo:
		return S_IFIFO
	}
	panic(fmt.Sprintf("invalid kind %d", uint8(self)))
}

func (self Kind) DirentType() uint8 {
	switch self {
	case Socket:
		return DT_SOCK
	case Link:
		return DT_LNK
	case Regular:
		return DT_REG
	case BlockDevice:
		return DT_BLK
	case Directory:
		return DT_DIR
	case CharDevice:
		return DT_CHR
	case Fifo:
		return DT_FIFO
	}
	return DT_UNKNOWN
}

func KindFromDirentType(dt uint8) (Kind, bool) {
	switch dt {
	case DT_SOCK:
		return Socket, true
	case DT_LNK:
		return Link, true
	case DT_REG:
		return Regular, true
	case DT_BLK:
		return BlockDevice, true
	case DT_DIR:
		return Directory, true
	case DT_CHR:
		return CharDevice, true
	case DT_FIFO:
		return Fifo, true
	}
	return Regular, false
}
