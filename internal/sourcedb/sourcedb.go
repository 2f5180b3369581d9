// Package sourcedb is the Source Database input layer (SPEC_FULL.md §3,
// §4.2): a thin, revision-stamping wrapper over internal/vfs that exposes
// the three pure input tables every downstream query is ultimately a
// function of — file_content, source_root, and file_source_root.
//
// Grounded on the teacher's internal/graph/graph.go MemoryStore — a struct
// of maps behind a lock, generalized here from one undifferentiated node
// store to three separate input tables each tagged with its own
// querydb.Durability.
package sourcedb

import (
	"sync"

	"github.com/attrlang/attrls/internal/querydb"
	"github.com/attrlang/attrls/internal/vfs"
)

// FileContentDurability and SourceRootDurability match SPEC_FULL.md §3:
// file content is edited frequently (Low); the source-root partition only
// changes on a workspace reload (High).
const (
	FileContentDurability  = querydb.DurabilityLow
	SourceRootDurability    = querydb.DurabilityHigh
)

// Database is the input layer. It never computes anything; every method is
// either a direct read-through to the underlying Vfs or bookkeeping for the
// per-input revision a Table needs to decide freshness.
type Database struct {
	mu sync.RWMutex

	vfs *vfs.Vfs

	fileContentRev map[vfs.FileId]querydb.Revision

	roots          map[vfs.SourceRootId]vfs.SourceRoot
	fileRoot       map[vfs.FileId]vfs.SourceRootId
	rootsRevision  querydb.Revision
}

// New wraps v. The returned Database has no source roots until the first
// ApplyChange that carries one (typically from internal/discovery's
// startup seed).
func New(v *vfs.Vfs) *Database {
	return &Database{
		vfs:            v,
		fileContentRev: make(map[vfs.FileId]querydb.Revision),
		roots:          make(map[vfs.SourceRootId]vfs.SourceRoot),
		fileRoot:       make(map[vfs.FileId]vfs.SourceRootId),
	}
}

func (d *Database) Vfs() *vfs.Vfs { return d.vfs }

// FileContent reads through to the underlying Vfs.
func (d *Database) FileContent(file vfs.FileId) ([]byte, bool) {
	return d.vfs.FileContent(file)
}

// FileContentRevision returns the revision at which file's content was last
// written. Every ApplyChange entry for file bumps it, including an entry
// whose bytes equal the previous content (vfs.SetPathContent records a
// change unconditionally), so rewriting a file with its own text still
// counts as a change to it.
func (d *Database) FileContentRevision(file vfs.FileId) (querydb.Revision, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	rev, ok := d.fileContentRev[file]
	return rev, ok
}

// SourceRoot looks up one workspace unit by id.
func (d *Database) SourceRoot(id vfs.SourceRootId) (vfs.SourceRoot, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	r, ok := d.roots[id]
	return r, ok
}

// SourceRootFor returns the SourceRootId owning file, if any.
func (d *Database) SourceRootFor(file vfs.FileId) (vfs.SourceRootId, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	id, ok := d.fileRoot[file]
	return id, ok
}

// AllSourceRoots returns every currently known source root.
func (d *Database) AllSourceRoots() []vfs.SourceRoot {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]vfs.SourceRoot, 0, len(d.roots))
	for _, r := range d.roots {
		out = append(out, r)
	}
	return out
}

// RootsRevision returns the revision at which the source-root partition
// was last replaced.
func (d *Database) RootsRevision() querydb.Revision {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.rootsRevision
}

// ApplyChange folds one vfs.ChangeSet into the input tables, stamping every
// touched FileId (and, if roots were replaced, every file in every new
// root) with rev. It returns the set of FileIds whose file_content input
// changed — the Host uses this to know which per-file memo entries to
// invalidate and which files to re-publish diagnostics for.
func (d *Database) ApplyChange(rev querydb.Revision, change vfs.ChangeSet) []vfs.FileId {
	d.mu.Lock()
	defer d.mu.Unlock()

	touched := make([]vfs.FileId, 0, len(change.Files))
	for _, f := range change.Files {
		d.fileContentRev[f.File] = rev
		touched = append(touched, f.File)
	}

	if change.Roots != nil {
		d.roots = make(map[vfs.SourceRootId]vfs.SourceRoot, len(change.Roots))
		d.fileRoot = make(map[vfs.FileId]vfs.SourceRootId, len(change.Roots))
		for _, root := range change.Roots {
			d.roots[root.ID] = root
			for _, file := range root.Set.Files() {
				d.fileRoot[file] = root.ID
			}
		}
		d.rootsRevision = rev
	}

	return touched
}
