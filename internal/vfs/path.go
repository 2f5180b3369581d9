package vfs

import "strings"

// VfsPath is a normalized absolute path of the form (/segment)*. It never
// ends in "/", never contains "//", and is always stored with a leading "/"
// except for the root, which is the empty string internally.
//
// Construction rejects non-normalized strings rather than normalizing them,
// mirroring the teacher's preference for small pure helpers over permissive
// parsing (internal/graph/vdirpath.go).
type VfsPath struct {
	raw string
}

// Root returns the distinguished root path.
func Root() VfsPath {
	return VfsPath{}
}

// NewVfsPath validates and constructs a VfsPath. "" and "/" both yield the
// root. Paths ending in "/" or containing "//" are rejected.
func NewVfsPath(s string) (VfsPath, bool) {
	if s == "" || s == "/" {
		return Root(), true
	}
	if strings.HasSuffix(s, "/") || strings.Contains(s, "//") {
		return VfsPath{}, false
	}
	if !strings.HasPrefix(s, "/") {
		s = "/" + s
	}
	return VfsPath{raw: s}, true
}

// IsRoot reports whether p is the root path.
func (p VfsPath) IsRoot() bool {
	return p.raw == ""
}

// String returns the normalized path string ("" for root).
func (p VfsPath) String() string {
	return p.raw
}

// Push appends relative's segments onto p in place, returning the result.
// relative must itself be a valid (non-root) VfsPath.
func (p VfsPath) Push(relative VfsPath) VfsPath {
	return VfsPath{raw: p.raw + relative.raw}
}

// PushSegment appends a single path segment. Fails if segment contains "/".
func (p VfsPath) PushSegment(segment string) (VfsPath, bool) {
	if strings.Contains(segment, "/") {
		return p, false
	}
	return VfsPath{raw: p.raw + "/" + segment}, true
}

// Pop removes the last segment, returning the parent path. Fails (returns
// false) only for the root, which has no parent.
func (p VfsPath) Pop() (VfsPath, bool) {
	idx := strings.LastIndex(p.raw, "/")
	if idx < 0 {
		return p, false
	}
	return VfsPath{raw: p.raw[:idx]}, true
}
