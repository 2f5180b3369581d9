package vfs

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
)

// FileContentChange records that a file's content changed (or was created)
// since the last take_change call.
type FileContentChange struct {
	File    FileId
	Path    VfsPath
	Content []byte
}

// ChangeSet is the accumulated, not-yet-observed mutation record. Roots is
// non-nil only when the workspace's set of SourceRoots itself changed
// (SPEC_FULL.md §9.1: root replacement is tracked independently from
// per-file content edits, matching original_source's Change accumulator).
type ChangeSet struct {
	Files []FileContentChange
	Roots []SourceRoot
}

func (c ChangeSet) IsEmpty() bool {
	return len(c.Files) == 0 && len(c.Roots) == 0
}

// ErrOutsideWorkspace is returned by SetURIContent when a URI does not fall
// under the configured workspace root.
type ErrOutsideWorkspace struct {
	URI string
}

func (e *ErrOutsideWorkspace) Error() string {
	return fmt.Sprintf("vfs: uri %q is outside the workspace root", e.URI)
}

// Vfs is the in-memory virtual file system: the canonical bytes of every
// known file, addressed by FileId and VfsPath. It is the sole input layer
// feeding the Source DB (internal/sourcedb).
//
// Canonical bytes are held in a go-billy in-memory filesystem rather than a
// bare map, reusing an actual virtual-filesystem abstraction the way the
// teacher's FUSE layer (internal/fs in the teacher repo) wraps a foreign
// filesystem concept instead of inventing one.
type Vfs struct {
	mu sync.RWMutex

	backing billy.Filesystem
	set     FileSet
	nextID  uint32

	lineMaps map[FileId]*LineMap
	pending  ChangeSet

	uriPrefix string // e.g. "file:///workspace" — empty disables URI mapping
}

// New creates an empty Vfs. uriPrefix, if non-empty, is the URI prefix
// (typically "file://" + absolute workspace root, no trailing slash) that
// SetURIContent/FileForURI rewrite against.
func New(uriPrefix string) *Vfs {
	return &Vfs{
		backing:   memfs.New(),
		set:       NewFileSet(),
		lineMaps:  make(map[FileId]*LineMap),
		uriPrefix: strings.TrimSuffix(uriPrefix, "/"),
	}
}

// SetPathContent allocates a fresh FileId if path is new, otherwise replaces
// the existing file's content. Returns the file's id.
func (v *Vfs) SetPathContent(path VfsPath, content []byte) FileId {
	v.mu.Lock()
	defer v.mu.Unlock()

	id, ok := v.set.FileForPath(path)
	if !ok {
		v.nextID++
		id = FileId(v.nextID)
		v.set.Insert(id, path)
	}
	v.writeBacking(path, content)
	delete(v.lineMaps, id)
	v.pending.Files = append(v.pending.Files, FileContentChange{File: id, Path: path, Content: content})
	return id
}

func (v *Vfs) writeBacking(path VfsPath, content []byte) {
	name := billyName(path)
	f, err := v.backing.Create(name)
	if err != nil {
		// memfs.Create never fails for a well-formed name; surfacing a
		// panic here would hide a real bug in path normalization.
		panic(fmt.Sprintf("vfs: create %q: %v", name, err))
	}
	defer func() { _ = f.Close() }()
	if _, err := f.Write(content); err != nil {
		panic(fmt.Sprintf("vfs: write %q: %v", name, err))
	}
}

func billyName(path VfsPath) string {
	if path.IsRoot() {
		return "/__root__"
	}
	return path.String()
}

// FileContent returns the current bytes for file, or (nil, false) if file is
// unknown.
func (v *Vfs) FileContent(file FileId) ([]byte, bool) {
	v.mu.RLock()
	path, ok := v.set.PathForFile(file)
	v.mu.RUnlock()
	if !ok {
		return nil, false
	}
	f, err := v.backing.Open(billyName(path))
	if err != nil {
		return nil, false
	}
	defer func() { _ = f.Close() }()
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, false
	}
	return data, true
}

// FileForPath looks up the FileId for an already-known path.
func (v *Vfs) FileForPath(path VfsPath) (FileId, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.set.FileForPath(path)
}

// PathForFile is the inverse of FileForPath.
func (v *Vfs) PathForFile(file FileId) (VfsPath, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.set.PathForFile(file)
}

// SetURIContent maps uri to a VfsPath under the workspace root and sets its
// content, allocating a FileId as needed.
func (v *Vfs) SetURIContent(uri string, content []byte) (FileId, error) {
	path, err := v.pathForURI(uri)
	if err != nil {
		return 0, err
	}
	return v.SetPathContent(path, content), nil
}

// FileForURI maps an editor URI to its FileId, if known.
func (v *Vfs) FileForURI(uri string) (FileId, bool) {
	path, err := v.pathForURI(uri)
	if err != nil {
		return 0, false
	}
	return v.FileForPath(path)
}

// URIForFile is the inverse of FileForURI.
func (v *Vfs) URIForFile(file FileId) (string, bool) {
	path, ok := v.PathForFile(file)
	if !ok {
		return "", false
	}
	return v.uriPrefix + path.String(), true
}

func (v *Vfs) pathForURI(uri string) (VfsPath, error) {
	if v.uriPrefix == "" {
		p, ok := NewVfsPath(uri)
		if !ok {
			return VfsPath{}, &ErrOutsideWorkspace{URI: uri}
		}
		return p, nil
	}
	if !strings.HasPrefix(uri, v.uriPrefix) {
		return VfsPath{}, &ErrOutsideWorkspace{URI: uri}
	}
	rel := strings.TrimPrefix(uri, v.uriPrefix)
	p, ok := NewVfsPath(rel)
	if !ok {
		return VfsPath{}, &ErrOutsideWorkspace{URI: uri}
	}
	return p, nil
}

// ChangeFileContent splices replacement into file's current text at r. This
// is observably equivalent to a full SetPathContent, but avoids the caller
// reconstructing the unchanged prefix/suffix itself.
func (v *Vfs) ChangeFileContent(file FileId, r TextRange, replacement []byte) error {
	content, ok := v.FileContent(file)
	if !ok {
		return fmt.Errorf("vfs: change_file_content: unknown file %v", file)
	}
	if int(r.End) > len(content) || r.Start > r.End {
		return fmt.Errorf("vfs: change_file_content: range %s out of bounds for %d-byte file", r, len(content))
	}
	next := make([]byte, 0, int(r.Start)+len(replacement)+len(content)-int(r.End))
	next = append(next, content[:r.Start]...)
	next = append(next, replacement...)
	next = append(next, content[r.End:]...)

	v.mu.RLock()
	path, ok := v.set.PathForFile(file)
	v.mu.RUnlock()
	if !ok {
		return fmt.Errorf("vfs: change_file_content: unknown file %v", file)
	}

	v.mu.Lock()
	v.writeBacking(path, next)
	delete(v.lineMaps, file)
	v.pending.Files = append(v.pending.Files, FileContentChange{File: file, Path: path, Content: next})
	v.mu.Unlock()
	return nil
}

// SetRoots replaces the workspace's set of SourceRoots, recording the
// replacement independently of any per-file content changes in the same
// generation (SPEC_FULL.md §9.1).
func (v *Vfs) SetRoots(roots []SourceRoot) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.pending.Roots = roots
}

// TakeChange returns and clears the accumulated change set.
func (v *Vfs) TakeChange() ChangeSet {
	v.mu.Lock()
	defer v.mu.Unlock()
	change := v.pending
	v.pending = ChangeSet{}
	return change
}

// LineMapForFile returns the (cached) line map for file, rebuilding it from
// current content if necessary.
func (v *Vfs) LineMapForFile(file FileId) (*LineMap, bool) {
	v.mu.RLock()
	if lm, ok := v.lineMaps[file]; ok {
		v.mu.RUnlock()
		return lm, true
	}
	v.mu.RUnlock()

	content, ok := v.FileContent(file)
	if !ok {
		return nil, false
	}
	lm := NewLineMap(content)

	v.mu.Lock()
	v.lineMaps[file] = lm
	v.mu.Unlock()
	return lm, true
}

// AllFiles returns every FileId currently known to the Vfs.
func (v *Vfs) AllFiles() []FileId {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.set.Files()
}
