// Package querydb is the demand-driven, memoizing query layer the feature
// services run against (SPEC_FULL.md §4.2): a single writer-controlled
// revision counter gates many per-query-kind memo tables, and readers hold
// cancellation-aware snapshots pinned to a revision.
//
// Grounded on the teacher's internal/graph/hotswap.go HotSwapGraph — "swap
// the active instance behind an RWMutex, delegate reads through it" —
// generalized here from one swappable graph to one revision counter shared
// by many bounded LRU memo tables, and on internal/control/control.go's
// atomic generation counter for the revision itself.
package querydb

import (
	"errors"
	"sync"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Revision is a monotone counter advanced by each applied change.
type Revision uint64

// Durability short-circuits invalidation: a query verified against only
// inputs at or below its own durability need not recompute when a less
// durable (more frequently changing) input is the only thing that moved.
// SPEC_FULL.md §4.2 — the core does not currently exploit the short-circuit:
// each Table records a durability tag (readable through Table.Durability)
// and sourcedb declares one constant per input kind, but no code path reads
// either tag to decide what a change invalidates.
type Durability int

const (
	DurabilityLow Durability = iota
	DurabilityMedium
	DurabilityHigh
)

// ErrCancelled is returned (unwound) from any in-progress query when the
// writer has signalled a pending change. It is never memoized: a cancelled
// execution leaves no trace in a Table.
var ErrCancelled = errors.New("querydb: cancelled")

// Database owns the revision counter and coordinates writers and readers.
// A single writer thread is expected to call BeginWrite; multiple readers
// may hold independent Snapshots concurrently.
type Database struct {
	mu       sync.RWMutex // guards revision swaps; readers take RLock for the duration of their snapshot
	revision atomic.Uint64

	cancelMu sync.Mutex
	cancel   chan struct{} // closed to signal "a write is pending", replaced after the write completes
}

// NewDatabase returns a Database at revision 0 with no pending cancellation.
func NewDatabase() *Database {
	d := &Database{cancel: make(chan struct{})}
	return d
}

// Snapshot is a read-only view of the Database pinned to the revision it
// was taken at. Close must be called exactly once to release the reader
// lock the writer is waiting to drain.
type Snapshot struct {
	db       *Database
	revision Revision
	cancel   <-chan struct{}
	closed   atomic.Bool
}

// Snapshot takes a read-only view pinned to the current revision. The
// writer may still accept BeginWrite calls while snapshots are live, but it
// blocks until every outstanding snapshot is Closed.
func (d *Database) Snapshot() *Snapshot {
	d.mu.RLock()
	d.cancelMu.Lock()
	cancel := d.cancel
	d.cancelMu.Unlock()
	return &Snapshot{db: d, revision: Revision(d.revision.Load()), cancel: cancel}
}

func (s *Snapshot) Revision() Revision { return s.revision }

// Cancelled reports whether a write has been signalled since this snapshot
// was taken.
func (s *Snapshot) Cancelled() bool {
	select {
	case <-s.cancel:
		return true
	default:
		return false
	}
}

// CheckCancelled is the per-sub-query-boundary poll SPEC_FULL.md §5
// mandates: call it at every dependency fetch inside a query and propagate
// ErrCancelled unwound out of the query stack on failure.
func (s *Snapshot) CheckCancelled() error {
	if s.Cancelled() {
		return ErrCancelled
	}
	return nil
}

// Close releases the snapshot. Safe to call more than once.
func (s *Snapshot) Close() {
	if s.closed.CompareAndSwap(false, true) {
		s.db.mu.RUnlock()
	}
}

// writeTicket is returned by BeginWrite; Commit must be called exactly once
// to install the bumped revision and let waiting readers back in.
type writeTicket struct {
	db *Database
}

// BeginWrite signals cancellation to every outstanding snapshot, waits for
// all of them to Close, then returns a ticket whose Commit bumps the
// revision. Only one writer is expected to call this at a time (the host's
// single writer thread, per SPEC_FULL.md §5).
func (d *Database) BeginWrite() *writeTicket {
	d.cancelMu.Lock()
	close(d.cancel)
	d.cancel = make(chan struct{})
	d.cancelMu.Unlock()

	d.mu.Lock() // blocks until every Snapshot (RLock holder) has Closed
	return &writeTicket{db: d}
}

// Commit installs the new revision and releases the writer lock.
func (t *writeTicket) Commit() Revision {
	next := t.db.revision.Add(1)
	t.db.mu.Unlock()
	return Revision(next)
}

// Abandon releases the writer lock without bumping the revision, used when
// a write turns out to be a no-op (e.g. an empty ChangeSet).
func (t *writeTicket) Abandon() {
	t.db.mu.Unlock()
}

// entry is one memoized (value, verified-at) pair. Unlike a full
// changed-at ripple, staleness here is decided purely by comparing the
// entry's verifiedAt against the current revision the caller supplies —
// this is a deliberate simplification (see DESIGN.md): a true changed-at
// scheme needs an equality check on V to decide whether to ripple
// invalidation to dependents, which would require a `comparable`
// constraint Go cannot enforce for arbitrary query result types. Instead
// every write explicitly Invalidates the exact keys it touches.
type entry[V any] struct {
	value      V
	verifiedAt Revision
}

// Table is a bounded, per-query-kind memo table. K must be comparable so it
// can key the underlying LRU cache; V is the query's result type.
type Table[K comparable, V any] struct {
	mu         sync.Mutex
	cache      *lru.Cache[K, entry[V]]
	durability Durability
}

// NewTable builds a Table holding at most size entries, evicting the least
// recently used on overflow. Eviction only ever forces a recompute, never
// an incorrect answer, since every entry also carries the revision it was
// verified at.
func NewTable[K comparable, V any](size int, durability Durability) *Table[K, V] {
	cache, err := lru.New[K, entry[V]](size)
	if err != nil {
		// Only returned for size <= 0, which is a caller programming error,
		// not a runtime condition this package should recover from.
		panic("querydb: invalid table size: " + err.Error())
	}
	return &Table[K, V]{cache: cache, durability: durability}
}

func (t *Table[K, V]) Durability() Durability { return t.durability }

// Get returns the memoized value for key if it was verified at or after
// snapshot's revision; otherwise it calls compute, checking cancellation
// both before and after the call, memoizes the result at the snapshot's
// revision, and returns it.
func (t *Table[K, V]) Get(snap *Snapshot, key K, compute func() (V, error)) (V, error) {
	var zero V
	if err := snap.CheckCancelled(); err != nil {
		return zero, err
	}

	t.mu.Lock()
	if e, ok := t.cache.Get(key); ok && e.verifiedAt >= snap.revision {
		t.mu.Unlock()
		return e.value, nil
	}
	t.mu.Unlock()

	value, err := compute()
	if err != nil {
		return zero, err
	}
	if err := snap.CheckCancelled(); err != nil {
		// Cancelled mid-computation: discard, memoize nothing.
		return zero, err
	}

	t.mu.Lock()
	t.cache.Add(key, entry[V]{value: value, verifiedAt: snap.revision})
	t.mu.Unlock()
	return value, nil
}

// Invalidate drops key's memoized entry, forcing the next Get to recompute
// regardless of revision. Called by the host for every FileId (or
// file-derived key) a change touches.
func (t *Table[K, V]) Invalidate(key K) {
	t.mu.Lock()
	t.cache.Remove(key)
	t.mu.Unlock()
}

// Purge drops every memoized entry, used when a workspace-wide change
// (e.g. a SourceRoot replacement) invalidates keys this table cannot name
// individually.
func (t *Table[K, V]) Purge() {
	t.mu.Lock()
	t.cache.Purge()
	t.mu.Unlock()
}
