/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Thu Mar 29 12:30:18 2018 mstenber
 * Last modified: Fri Apr  6 11:02:51 2018 mstenber
 * Edit time:     41 min
 *
 */

package file

import (
	"strings"

	"github.com/fingon/go-vfscore/errno"
)

const (
	PathMax = 4096
	NameMax = 255
)

// Path is a parsed path. "." components are dropped and ".." is
// resolved lexically where possible.
type Path struct {
	absolute   bool
	components []string
}

func RootPath() Path {
	return Path{absolute: true}
}

// ParsePath parses s; ENAMETOOLONG if s or one of its components is
// too long.
func ParsePath(s string) (Path, error) {
	if len(s) > PathMax {
		return Path{}, errno.Wrapf(errno.ENAMETOOLONG, "path of %d bytes", len(s))
	}
	p := Path{absolute: strings.HasPrefix(s, "/")}
	for _, c := range strings.Split(s, "/") {
		if len(c) > NameMax {
			return Path{}, errno.Wrapf(errno.ENAMETOOLONG, "name %.16s...", c)
		}
		p = p.Join(c)
	}
	return p, nil
}

// MustParsePath is ParsePath for paths known to be valid.
func MustParsePath(s string) Path {
	p, err := ParsePath(s)
	if err != nil {
		panic(err)
	}
	return p
}

func (self Path) IsAbsolute() bool {
	return self.absolute
}

func (self Path) IsRoot() bool {
	return self.absolute && len(self.components) == 0
}

func (self Path) Components() []string {
	return self.components
}

func (self Path) Len() int {
	return len(self.components)
}

// Join returns self with name appended. It never modifies self.
func (self Path) Join(name string) Path {
	switch name {
	case "", ".":
		return self
	case "..":
		n := len(self.components)
		if n > 0 && self.components[n-1] != ".." {
			return Path{absolute: self.absolute, components: self.components[: n-1 : n-1]}
		}
		if self.absolute {
			return self
		}
	}
	nc := make([]string, len(self.components), len(self.components)+1)
	copy(nc, self.components)
	return Path{absolute: self.absolute, components: append(nc, name)}
}

// Concat appends other; if other is absolute, it is returned as is.
func (self Path) Concat(other Path) Path {
	if other.absolute {
		return other
	}
	for _, c := range other.components {
		self = self.Join(c)
	}
	return self
}

// Parent returns the path without its last component.
func (self Path) Parent() Path {
	n := len(self.components)
	if n == 0 {
		return self
	}
	return Path{absolute: self.absolute, components: self.components[: n-1 : n-1]}
}

// Base returns the last component, or "" for the root.
func (self Path) Base() string {
	n := len(self.components)
	if n == 0 {
		return ""
	}
	return self.components[n-1]
}

// HasPrefix tells whether prefix is self or one of its ancestors.
func (self Path) HasPrefix(prefix Path) bool {
	if self.absolute != prefix.absolute || len(prefix.components) > len(self.components) {
		return false
	}
	for i, c := range prefix.components {
		if self.components[i] != c {
			return false
		}
	}
	return true
}

// TrimPrefix returns self relative to prefix (which it must have).
func (self Path) TrimPrefix(prefix Path) Path {
	return Path{components: self.components[len(prefix.components):]}
}

func (self Path) Equal(other Path) bool {
	return self.absolute == other.absolute && len(self.components) == len(other.components) && self.HasPrefix(other)
}

func (self Path) String() string {
	s := strings.Join(self.components, "/")
	if self.absolute {
		return "/" + s
	}
	if s == "" {
		return "."
	}
	return s
}
