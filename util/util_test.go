/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2017 Markus Stenberg
 *
 * Created:       Fri Dec 29 09:04:44 2017 mstenber
 * Last modified: Tue Mar 27 14:12:31 2018 mstenber
 * Edit time:     3 min
 *
 */

package util

import (
	"testing"

	"github.com/stvp/assert"
)

func TestMinMax(t *testing.T) {
	t.Parallel()
	assert.Equal(t, IMin(3, 1, 2), 1)
	assert.Equal(t, IMax(3, 1, 7), 7)
	assert.Equal(t, U64Min(10, 12), uint64(10))
	assert.Equal(t, U64Max(10, 12), uint64(12))
}

func TestAlignUp(t *testing.T) {
	t.Parallel()
	assert.Equal(t, AlignUp(0, 4), 0)
	assert.Equal(t, AlignUp(9, 4), 12)
	assert.Equal(t, AlignUp(12, 4), 12)
}
