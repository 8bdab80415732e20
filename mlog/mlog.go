/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2017 Markus Stenberg
 *
 * Created:       Sat Dec 30 13:41:33 2017 mstenber
 * Last modified: Mon Mar 26 10:12:40 2018 mstenber
 * Edit time:     118 min
 *
 */

// mlog is maybe-log. It is a small wrapper of standard 'log' used for
// tracing the VFS layer:
//
// - environment-variable-based (MLOG) and 'flag' (-mlog) regular
// expression chooses which source files get to print; what is not
// printed does not cause any real overhead (by default, everything
// is off)
//
// - call stack depth is used to determine indentation automatically,
// so nested backend calls are easy to follow
//
// - Warnf output is never filtered; it is for things that went wrong
// with nobody around to return an error to
package mlog

import (
	"flag"
	"fmt"
	"log"
	"os"
	"regexp"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
)

var logMode = log.Ltime | log.Lmicroseconds
var logger = log.New(os.Stderr, "", logMode)

const (
	StateUninitialized int32 = iota
	StateInitializing
	StateDisabled
	StateEnabled
)

// This can be used by anyone, with the atomic access
var status int32 = StateUninitialized

var mutex sync.Mutex

// Everything else must be used only with mutex held
var flagPattern *string
var pattern string
var patternRegexp *regexp.Regexp
var file2Debug map[string]bool
var minDepth int
var callers []uintptr
var dumpGids = true

const maxDepth = 100

func init() {
	flagPattern = flag.String("mlog", "", "Enable logging based on the given file regular expression")
	Reset()
}

// Reset resets the module to its factory default state. First
// subsequent log call will re-initialize the internal datastructures.
func Reset() {
	mutex.Lock()
	defer mutex.Unlock()
	atomic.StoreInt32(&status, StateUninitialized)
	minDepth = maxDepth
	callers = make([]uintptr, maxDepth)
}

// IsEnabled can be used to check if mlog is in use at all before
// doing something expensive.
func IsEnabled() bool {
	st := atomic.LoadInt32(&status)
	return st != StateDisabled
}

// SetLogger overrides the logger used as output. The returned undo
// function changes the logger back to the old one.
func SetLogger(l *log.Logger) (undo func()) {
	mutex.Lock()
	defer mutex.Unlock()
	oldLogger := logger
	logger = l
	return func() {
		mutex.Lock()
		defer mutex.Unlock()
		logger = oldLogger
	}
}

// SetPattern sets the mlog pattern by hand, overriding the
// environment variable and flag provided values. The returned undo
// function changes the state back to the old one.
func SetPattern(p string) (undo func()) {
	mutex.Lock()
	defer mutex.Unlock()
	oldPattern := pattern
	initializeWithPattern(p)
	return func() {
		mutex.Lock()
		defer mutex.Unlock()
		initializeWithPattern(oldPattern)
	}
}

// SetDumpGids toggles prefixing of the goroutine id.
func SetDumpGids(value bool) (undo func()) {
	mutex.Lock()
	defer mutex.Unlock()
	old := dumpGids
	dumpGids = value
	return func() {
		mutex.Lock()
		defer mutex.Unlock()
		dumpGids = old
	}
}

func initializeWithPattern(p string) {
	pattern = p
	if p == "" {
		atomic.StoreInt32(&status, StateDisabled)
		return
	}
	patternRegexp = regexp.MustCompile(p)
	file2Debug = make(map[string]bool)
	atomic.StoreInt32(&status, StateEnabled)
}

func initialize() {
	if !atomic.CompareAndSwapInt32(&status, StateUninitialized, StateInitializing) {
		return
	}
	p := os.Getenv("MLOG")
	if *flagPattern != "" {
		p = *flagPattern
	}
	initializeWithPattern(p)
}

// Printf is drop-in replacement of log.Printf. It does
// runtime.Caller() if MLOG is enabled at all, which may be
// suboptimal; Printf2 is cheaper.
func Printf(format string, args ...interface{}) {
	st := atomic.LoadInt32(&status)
	if st == StateDisabled {
		return
	}
	_, file, _, ok := runtime.Caller(1)
	if !ok {
		return
	}
	Printf2(file, format, args...)
}

// Printf2 is the premier choice instead of Printf. It is supplied
// with the name of the file (e.g. "file/vfs"), and therefore has no
// runtime penalty to speak of when MLOG matches only some files.
func Printf2(file string, format string, args ...interface{}) {
	st := atomic.LoadInt32(&status)
	if st == StateDisabled {
		return
	}
	mutex.Lock()
	defer mutex.Unlock()
	if st < StateDisabled {
		initialize()
		st = atomic.LoadInt32(&status)
		if st <= StateDisabled {
			return
		}
	}
	debug, ok := file2Debug[file]
	if !ok {
		debug = patternRegexp.MatchString(file)
		file2Debug[file] = debug
	}
	if !debug {
		return
	}
	depth := runtime.Callers(1, callers)
	if depth < minDepth {
		minDepth = depth
	}
	depth -= minDepth
	if depth > 0 {
		format = fmt.Sprint(strings.Repeat(".", depth), format)
	}
	if dumpGids {
		format = fmt.Sprintf("%8d %s", goroutineID(), format)
	}
	logger.Printf(format, args...)
}

// Warnf is always printed, regardless of pattern.
func Warnf(format string, args ...interface{}) {
	mutex.Lock()
	defer mutex.Unlock()
	logger.Printf("WARNING "+format, args...)
}
