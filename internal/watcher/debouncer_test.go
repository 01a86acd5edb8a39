package watcher

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receive(t *testing.T, d *Debouncer, timeout time.Duration) []FileEvent {
	t.Helper()
	select {
	case events := <-d.Output():
		return events
	case <-time.After(timeout):
		t.Fatal("timeout waiting for debounced events")
		return nil
	}
}

func TestDebouncer_BurstCoalesces(t *testing.T) {
	// Given: a debouncer with a short window
	d := NewDebouncer(50 * time.Millisecond)
	defer d.Stop()

	// When: the WAL is written several times in a row
	for i := 0; i < 5; i++ {
		d.Add(FileEvent{Path: "site.db-wal", Operation: OpModify, Timestamp: time.Now()})
		time.Sleep(5 * time.Millisecond)
	}

	// Then: one event comes out
	events := receive(t, d, 500*time.Millisecond)
	require.Len(t, events, 1)
	assert.Equal(t, OpModify, events[0].Operation)
}

func TestDebouncer_CreateThenDelete_NoEvent(t *testing.T) {
	d := NewDebouncer(30 * time.Millisecond)
	defer d.Stop()

	d.Add(FileEvent{Path: "site.db-journal", Operation: OpCreate})
	d.Add(FileEvent{Path: "site.db-journal", Operation: OpDelete})

	select {
	case events := <-d.Output():
		t.Fatalf("expected no events, got %v", events)
	case <-time.After(150 * time.Millisecond):
	}
}

func TestDebouncer_DeleteThenCreate_Modify(t *testing.T) {
	d := NewDebouncer(30 * time.Millisecond)
	defer d.Stop()

	d.Add(FileEvent{Path: "site.db", Operation: OpDelete})
	d.Add(FileEvent{Path: "site.db", Operation: OpCreate})

	events := receive(t, d, 300*time.Millisecond)
	require.Len(t, events, 1)
	assert.Equal(t, OpModify, events[0].Operation)
}

func TestDebouncer_CreateThenModify_Create(t *testing.T) {
	d := NewDebouncer(30 * time.Millisecond)
	defer d.Stop()

	d.Add(FileEvent{Path: "site.db", Operation: OpCreate})
	d.Add(FileEvent{Path: "site.db", Operation: OpModify})

	events := receive(t, d, 300*time.Millisecond)
	require.Len(t, events, 1)
	assert.Equal(t, OpCreate, events[0].Operation)
}

func TestDebouncer_DifferentFiles_OneBatch(t *testing.T) {
	d := NewDebouncer(30 * time.Millisecond)
	defer d.Stop()

	d.Add(FileEvent{Path: "site.db", Operation: OpModify})
	d.Add(FileEvent{Path: "site.db-wal", Operation: OpModify})

	events := receive(t, d, 300*time.Millisecond)
	assert.Len(t, events, 2)
}

func TestDebouncer_Stop_ClosesOutput(t *testing.T) {
	d := NewDebouncer(30 * time.Millisecond)
	d.Stop()
	d.Stop()

	_, ok := <-d.Output()
	assert.False(t, ok)

	// Adds after stop are ignored
	assert.NotPanics(t, func() { d.Add(FileEvent{Path: "x"}) })
}
