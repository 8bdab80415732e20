/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Mon Mar 26 11:40:02 2018 mstenber
 * Last modified: Thu Apr  5 09:43:10 2018 mstenber
 * Edit time:     8 min
 *
 */

package errno

import (
	"fmt"
	"testing"

	"github.com/pkg/errors"
	"github.com/stvp/assert"
)

func TestErrnoError(t *testing.T) {
	t.Parallel()
	assert.Equal(t, ENOENT.Error(), "No such file or directory")
	assert.Equal(t, NotSupported.Error(), "Operation not supported")
	assert.Equal(t, Errno(999).Error(), "errno 999")
}

func TestOf(t *testing.T) {
	t.Parallel()
	assert.Equal(t, Of(nil), Errno(0))
	assert.Equal(t, Of(ENOTDIR), ENOTDIR)

	err := Wrapf(EISDIR, "read of %s", "/tmp")
	assert.Equal(t, err.Error(), "read of /tmp: Is a directory")
	assert.Equal(t, Of(err), EISDIR)
	assert.True(t, Is(err, IsADirectory))
	assert.True(t, errors.Is(err, EISDIR))

	err = errors.Wrap(fmt.Errorf("plain"), "ctx")
	assert.Equal(t, Of(err), EIO)
}

func TestAllocationDistinct(t *testing.T) {
	t.Parallel()
	assert.NotEqual(t, AllocationFailure, InvalidArgument)
}
