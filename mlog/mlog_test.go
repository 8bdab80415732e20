/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2017 Markus Stenberg
 *
 * Created:       Sat Dec 30 14:31:18 2017 mstenber
 * Last modified: Mon Mar 26 10:20:02 2018 mstenber
 * Edit time:     27 min
 *
 */

package mlog

import (
	"bytes"
	"log"
	"testing"

	"github.com/stvp/assert"
)

func TestMlog(t *testing.T) {
	defer SetDumpGids(false)()
	add := func(pattern string, outputted bool) {
		t.Run(pattern, func(t *testing.T) {
			var b bytes.Buffer
			logger := log.New(&b, "", 0)
			Reset()
			defer SetLogger(logger)()
			defer SetPattern(pattern)()
			Printf("foo %s", "bar")
			assert.Equal(t, b.Len() > 0, outputted)
			if outputted {
				assert.Equal(t, b.String(), "foo bar\n")
			}
		})
	}
	add("", false)
	add("zzzglorb", false)
	add("mlog_test", true)
}

func TestMlogPrintf2(t *testing.T) {
	defer SetDumpGids(false)()
	var b bytes.Buffer
	Reset()
	defer SetLogger(log.New(&b, "", 0))()
	defer SetPattern("^file/")()
	Printf2("fs/tmpfs", "nope")
	Printf2("file/vfs", "yep %d", 42)
	assert.Equal(t, b.String(), "yep 42\n")
}

func TestMLogRecursion(t *testing.T) {
	defer SetDumpGids(false)()
	var b bytes.Buffer
	logger := log.New(&b, "", 0)
	Reset()
	defer SetLogger(logger)()
	defer SetPattern(".")()
	Printf("d0")
	func() {
		Printf("d1")
		func() {
			Printf("d2")
		}()
		Printf("D1")
	}()
	Printf("D0")
	assert.Equal(t, b.String(), "d0\n.d1\n..d2\n.D1\nD0\n")
}

func TestWarnf(t *testing.T) {
	var b bytes.Buffer
	defer SetLogger(log.New(&b, "", 0))()
	defer SetPattern("")()
	Warnf("removal of %s failed", "x")
	assert.Equal(t, b.String(), "WARNING removal of x failed\n")
}

func BenchmarkMlogDisabled(b *testing.B) {
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Printf("x")
	}
}

func BenchmarkMlogDisabled2(b *testing.B) {
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Printf2("x", "y", 42)
	}
}

func BenchmarkMlogNotMatching(b *testing.B) {
	defer SetPattern("zzglorb")()
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Printf2("file/file", "x")
	}
}
