/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Mon Mar 26 11:02:17 2018 mstenber
 * Last modified: Thu Apr  5 09:41:55 2018 mstenber
 * Edit time:     47 min
 *
 */

// errno provides the error taxonomy of the VFS core.
//
// Every failure the core reports is (possibly wrapped) Errno, so that
// outer layers (syscall emulation, FUSE) can map it back to the
// numeric value without string matching. Context is added with
// github.com/pkg/errors; Of() digs the Errno back out.
package errno

import (
	"fmt"

	"github.com/pkg/errors"
)

// Errno uses the Linux numbering.
type Errno int32

const (
	EPERM        Errno = 1
	ENOENT       Errno = 2
	EIO          Errno = 5
	ENOMEM       Errno = 12
	EACCES       Errno = 13
	EBUSY        Errno = 16
	EEXIST       Errno = 17
	EXDEV        Errno = 18
	ENODEV       Errno = 19
	ENOTDIR      Errno = 20
	EISDIR       Errno = 21
	EINVAL       Errno = 22
	ENOSPC       Errno = 28
	EROFS        Errno = 30
	ERANGE       Errno = 34
	ENAMETOOLONG Errno = 36
	ENOTEMPTY    Errno = 39
	ELOOP        Errno = 40
	EOPNOTSUPP   Errno = 95
)

// Names of the error kinds the rest of the code cares about; these
// are just aliases so that call sites read like the failure they
// describe.
const (
	InvalidArgument   = EINVAL
	NotADirectory     = ENOTDIR
	IsADirectory      = EISDIR
	NoSuchDevice      = ENODEV
	IOFault           = EIO
	NotSupported      = EOPNOTSUPP
	AlreadyExists     = EEXIST
	PermissionDenied  = EACCES
	AllocationFailure = ENOMEM
	NotFound          = ENOENT
)

var errorNames = map[Errno]string{
	EPERM:        "Operation not permitted",
	ENOENT:       "No such file or directory",
	EIO:          "I/O error",
	ENOMEM:       "Cannot allocate memory",
	EACCES:       "Permission denied",
	EBUSY:        "Device or resource busy",
	EEXIST:       "File exists",
	EXDEV:        "Invalid cross-device link",
	ENODEV:       "No such device",
	ENOTDIR:      "Not a directory",
	EISDIR:       "Is a directory",
	EINVAL:       "Invalid argument",
	ENOSPC:       "No space left on device",
	EROFS:        "Read-only file system",
	ERANGE:       "Numerical result out of range",
	ENAMETOOLONG: "File name too long",
	ENOTEMPTY:    "Directory not empty",
	ELOOP:        "Too many levels of symbolic links",
	EOPNOTSUPP:   "Operation not supported",
}

func (self Errno) Error() string {
	name, ok := errorNames[self]
	if !ok {
		return fmt.Sprintf("errno %d", int32(self))
	}
	return name
}

// Of returns the Errno at the root of err. nil maps to 0 and errors
// that did not originate in the core map to EIO.
func Of(err error) Errno {
	if err == nil {
		return 0
	}
	var e Errno
	if errors.As(err, &e) {
		return e
	}
	return EIO
}

// Is reports whether err is (or wraps) the given Errno.
func Is(err error, e Errno) bool {
	return Of(err) == e
}

// Wrapf annotates e with context, keeping it recoverable with Of.
func Wrapf(e Errno, format string, args ...interface{}) error {
	return errors.Wrapf(e, format, args...)
}
