package querydb

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTableMemoizesWithinRevision(t *testing.T) {
	db := NewDatabase()
	table := NewTable[string, int](8, DurabilityLow)

	snap := db.Snapshot()
	defer snap.Close()

	calls := 0
	compute := func() (int, error) {
		calls++
		return 42, nil
	}

	v1, err := table.Get(snap, "x", compute)
	require.NoError(t, err)
	assert.Equal(t, 42, v1)

	v2, err := table.Get(snap, "x", compute)
	require.NoError(t, err)
	assert.Equal(t, 42, v2)
	assert.Equal(t, 1, calls, "second Get within the same revision must not recompute")
}

func TestTableInvalidateForcesRecompute(t *testing.T) {
	db := NewDatabase()
	table := NewTable[string, int](8, DurabilityLow)
	snap := db.Snapshot()
	defer snap.Close()

	calls := 0
	compute := func() (int, error) {
		calls++
		return calls, nil
	}

	_, _ = table.Get(snap, "x", compute)
	table.Invalidate("x")
	_, _ = table.Get(snap, "x", compute)
	assert.Equal(t, 2, calls)
}

func TestTableStaleAcrossRevisionRecomputes(t *testing.T) {
	db := NewDatabase()
	table := NewTable[string, int](8, DurabilityLow)

	snap1 := db.Snapshot()
	calls := 0
	compute := func() (int, error) {
		calls++
		return calls, nil
	}
	_, _ = table.Get(snap1, "x", compute)
	snap1.Close()

	ticket := db.BeginWrite()
	ticket.Commit()

	snap2 := db.Snapshot()
	defer snap2.Close()
	_, _ = table.Get(snap2, "x", compute)
	assert.Equal(t, 2, calls, "a snapshot at a newer revision must not trust an older entry")
}

func TestBeginWriteWaitsForSnapshots(t *testing.T) {
	db := NewDatabase()
	snap := db.Snapshot()

	released := make(chan struct{})
	go func() {
		ticket := db.BeginWrite()
		ticket.Commit()
		close(released)
	}()

	select {
	case <-released:
		t.Fatal("BeginWrite returned while a snapshot was still open")
	case <-time.After(20 * time.Millisecond):
	}

	snap.Close()

	select {
	case <-released:
	case <-time.After(time.Second):
		t.Fatal("BeginWrite never returned after the snapshot was closed")
	}
}

func TestSnapshotCancelledAfterBeginWrite(t *testing.T) {
	db := NewDatabase()
	snap := db.Snapshot()
	assert.False(t, snap.Cancelled())

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticket := db.BeginWrite()
		ticket.Commit()
	}()

	// Give BeginWrite a chance to flip the cancel channel before it blocks
	// on the still-open snapshot.
	time.Sleep(10 * time.Millisecond)
	assert.True(t, snap.Cancelled())
	assert.ErrorIs(t, snap.CheckCancelled(), ErrCancelled)

	snap.Close()
	wg.Wait()
}

func TestTableGetPropagatesCancellation(t *testing.T) {
	db := NewDatabase()
	table := NewTable[string, int](8, DurabilityLow)
	snap := db.Snapshot()

	// BeginWrite would deadlock against the open snapshot below, so signal
	// cancellation the same way it does without waiting for the drain.
	db.cancelMu.Lock()
	close(db.cancel)
	db.cancel = make(chan struct{})
	db.cancelMu.Unlock()

	_, err := table.Get(snap, "x", func() (int, error) { return 1, nil })
	assert.ErrorIs(t, err, ErrCancelled)
	snap.Close()
}
