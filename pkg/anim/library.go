package anim

import (
	"fmt"
	"sort"
)

// Library is an immutable registry of clips by name. Policies for different
// species import the same Library to share clips explicitly.
type Library struct {
	clips map[string]*Clip
	names []string
}

// NewLibrary builds a library from clips. Clip names must be unique.
func NewLibrary(clips ...*Clip) (*Library, error) {
	l := &Library{clips: make(map[string]*Clip, len(clips))}
	for _, c := range clips {
		if c == nil {
			continue
		}
		if _, dup := l.clips[c.name]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateClip, c.name)
		}
		l.clips[c.name] = c
		l.names = append(l.names, c.name)
	}
	sort.Strings(l.names)
	return l, nil
}

// Merge returns a new library holding the clips of l and others.
func (l *Library) Merge(others ...*Library) (*Library, error) {
	all := make([]*Clip, 0, l.Len())
	for _, lib := range append([]*Library{l}, others...) {
		for _, name := range lib.names {
			all = append(all, lib.clips[name])
		}
	}
	return NewLibrary(all...)
}

// Get returns the named clip.
func (l *Library) Get(name string) (*Clip, bool) {
	if l == nil {
		return nil, false
	}
	c, ok := l.clips[name]
	return c, ok
}

// MustGet returns the named clip and panics if it is missing.
func (l *Library) MustGet(name string) *Clip {
	c, ok := l.Get(name)
	if !ok {
		panic(fmt.Sprintf("anim: clip %q not in library", name))
	}
	return c
}

// Names returns clip names in sorted order.
func (l *Library) Names() []string {
	out := make([]string, len(l.names))
	copy(out, l.names)
	return out
}

// Len returns the number of clips.
func (l *Library) Len() int {
	if l == nil {
		return 0
	}
	return len(l.names)
}
