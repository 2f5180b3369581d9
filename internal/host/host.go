// Package host is the single mutation entry point and lifecycle owner
// (SPEC_FULL.md §4.7): every edit, root replacement, and feature-service
// snapshot the outer glue needs passes through a Host, which is the only
// thing in this codebase allowed to call querydb.Database.BeginWrite.
//
// Grounded on the teacher's internal/control/control.go generation-counter
// idea (bump a single counter, have every reader observe a consistent
// value) adapted from a memory-mapped control block — persistence across
// process restarts is explicitly out of scope (SPEC_FULL.md §2.2) — to an
// in-process querydb.Database, and on the state-machine shape of a typical
// LSP server's initialize/shutdown/exit handshake.
package host

import (
	"errors"
	"fmt"
	"sync"

	"github.com/attrlang/attrls/internal/ide"
	"github.com/attrlang/attrls/internal/querydb"
	"github.com/attrlang/attrls/internal/sourcedb"
	"github.com/attrlang/attrls/internal/vfs"
)

// LifecycleState is one node of the Fresh -> Active -> Stopping ->
// Terminated state machine SPEC_FULL.md §4.7 diagrams.
type LifecycleState int

const (
	StateFresh LifecycleState = iota
	StateActive
	StateStopping
	StateTerminated
)

func (s LifecycleState) String() string {
	switch s {
	case StateFresh:
		return "fresh"
	case StateActive:
		return "active"
	case StateStopping:
		return "stopping"
	case StateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// ErrShutdownRequested is returned by a second Shutdown call, distinguishing
// "already shutting down" from a hard error.
var ErrShutdownRequested = errors.New("host: shutdown already requested")

// ErrTerminated is returned by any operation attempted after Exit.
var ErrTerminated = errors.New("host: host has terminated")

// Host owns the Vfs, the Source DB built over it, the query database that
// gates every reader, and the per-file feature-service caches — and
// serializes every mutation of them behind its own lock. Only one goroutine
// is expected to drive ApplyChange/Activate/Shutdown/Exit at a time (the
// lspglue dispatch loop's single reader goroutine, per SPEC_FULL.md §5);
// Snapshot is safe to call concurrently with that goroutine and with other
// Snapshot callers.
type Host struct {
	mu    sync.Mutex
	state LifecycleState

	vfs    *vfs.Vfs
	source *sourcedb.Database
	db     *querydb.Database
	caches *ide.Caches
}

// New creates a Host in StateFresh. uriPrefix is forwarded to vfs.New — see
// its doc comment.
func New(uriPrefix string) *Host {
	v := vfs.New(uriPrefix)
	return &Host{
		state:  StateFresh,
		vfs:    v,
		source: sourcedb.New(v),
		db:     querydb.NewDatabase(),
		caches: ide.NewCaches(),
	}
}

func (h *Host) State() LifecycleState {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// Vfs exposes the underlying Vfs for read-only queries (URI<->FileId
// mapping, AllFiles) that do not need to go through ApplyChange.
func (h *Host) Vfs() *vfs.Vfs { return h.vfs }

// Activate transitions Fresh -> Active, called once the LSP initialize
// handshake (or, for `attrls check`, the initial workspace load) completes.
func (h *Host) Activate() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.state != StateFresh {
		return fmt.Errorf("host: cannot activate from state %s", h.state)
	}
	h.state = StateActive
	return nil
}

// Shutdown transitions Active -> Stopping. It is idempotent in the sense
// that a second call reports ErrShutdownRequested rather than panicking or
// silently succeeding, so the caller can tell a duplicate shutdown request
// apart from its first.
func (h *Host) Shutdown() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.state == StateStopping || h.state == StateTerminated {
		return ErrShutdownRequested
	}
	h.state = StateStopping
	return nil
}

// Exit transitions unconditionally to Terminated, the state's one absorbing
// node — every later call to ApplyChange or Snapshot fails from here on.
func (h *Host) Exit() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.state = StateTerminated
}

func (h *Host) requireActive() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	switch h.state {
	case StateTerminated:
		return ErrTerminated
	case StateActive:
		return nil
	default:
		return fmt.Errorf("host: cannot apply change in state %s", h.state)
	}
}

// ApplyChange is the single writer entry point: it begins a querydb write
// (blocking until every outstanding Snapshot has Closed), runs mutate
// against the Vfs, folds the resulting vfs.ChangeSet into the Source DB at
// the new revision, invalidates the feature-service caches for every
// touched file, and returns those FileIds — the caller uses them to decide
// which files need fresh diagnostics published. A mutate that makes no
// change (e.g. SetRoots with the same roots, or a no-op edit) yields a
// ChangeSet with nothing in it; ApplyChange abandons the write rather than
// waste a revision bump on it.
func (h *Host) ApplyChange(mutate func(*vfs.Vfs)) ([]vfs.FileId, error) {
	if err := h.requireActive(); err != nil {
		return nil, err
	}

	ticket := h.db.BeginWrite()
	mutate(h.vfs)
	change := h.vfs.TakeChange()
	if change.IsEmpty() {
		ticket.Abandon()
		return nil, nil
	}

	rev := ticket.Commit()
	touched := h.source.ApplyChange(rev, change)
	for _, f := range touched {
		h.caches.Invalidate(f)
	}
	return touched, nil
}

// SetPathContent is a convenience ApplyChange wrapping Vfs.SetPathContent.
func (h *Host) SetPathContent(path vfs.VfsPath, content []byte) ([]vfs.FileId, error) {
	return h.ApplyChange(func(v *vfs.Vfs) { v.SetPathContent(path, content) })
}

// SetURIContent is a convenience ApplyChange wrapping Vfs.SetURIContent,
// surfacing its ErrOutsideWorkspace instead of swallowing it.
func (h *Host) SetURIContent(uri string, content []byte) ([]vfs.FileId, error) {
	var mutateErr error
	touched, err := h.ApplyChange(func(v *vfs.Vfs) {
		if _, e := v.SetURIContent(uri, content); e != nil {
			mutateErr = e
		}
	})
	if err != nil {
		return nil, err
	}
	if mutateErr != nil {
		return nil, mutateErr
	}
	return touched, nil
}

// ChangeFileContent is a convenience ApplyChange wrapping
// Vfs.ChangeFileContent, for incremental (range-based) edits.
func (h *Host) ChangeFileContent(file vfs.FileId, r vfs.TextRange, replacement []byte) ([]vfs.FileId, error) {
	var mutateErr error
	touched, err := h.ApplyChange(func(v *vfs.Vfs) {
		if e := v.ChangeFileContent(file, r, replacement); e != nil {
			mutateErr = e
		}
	})
	if err != nil {
		return nil, err
	}
	if mutateErr != nil {
		return nil, mutateErr
	}
	return touched, nil
}

// SetRoots is a convenience ApplyChange wrapping Vfs.SetRoots, used by
// internal/discovery to seed (or replace) the workspace partition.
func (h *Host) SetRoots(roots []vfs.SourceRoot) ([]vfs.FileId, error) {
	return h.ApplyChange(func(v *vfs.Vfs) { v.SetRoots(roots) })
}

// Snapshot pins the current revision and returns an Analysis reading
// through it. The caller must Close the Analysis exactly once, or a
// concurrent ApplyChange blocks forever waiting for it to drain.
func (h *Host) Snapshot() (*ide.Analysis, error) {
	h.mu.Lock()
	state := h.state
	h.mu.Unlock()
	if state == StateTerminated {
		return nil, ErrTerminated
	}
	return ide.NewAnalysis(h.db.Snapshot(), h.source, h.caches), nil
}
