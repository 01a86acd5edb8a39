package async

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBackgroundIndexer(t *testing.T) {
	// When: creating an indexer
	b := NewBackgroundIndexer(nil)

	// Then: it is idle with a progress tracker
	require.NotNil(t, b)
	assert.NotNil(t, b.Progress())
	assert.False(t, b.IsRunning())
	assert.NoError(t, b.Wait(), "Wait before Start returns at once")
}

func TestBackgroundIndexer_RunsAndBecomesReady(t *testing.T) {
	// Given: a rebuild that reports progress
	var calls atomic.Int32
	b := NewBackgroundIndexer(func(ctx context.Context, p *IndexProgress) error {
		calls.Add(1)
		p.SetStage(StageIndexing, 1)
		p.DoctypeDone("GP Page", 2)
		return nil
	})

	// When: starting it twice and waiting
	b.Start(context.Background())
	b.Start(context.Background())
	err := b.Wait()

	// Then: it ran once and is ready
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load())
	assert.False(t, b.IsRunning())
	snap := b.Progress().Snapshot()
	assert.Equal(t, string(StatusReady), snap.Status)
	assert.Equal(t, 2, snap.RecordsIndexed)
}

func TestBackgroundIndexer_Error(t *testing.T) {
	// Given: a failing rebuild
	b := NewBackgroundIndexer(func(ctx context.Context, p *IndexProgress) error {
		return errors.New("lock held")
	})

	// When: running it
	b.Start(context.Background())
	err := b.Wait()

	// Then: the error is returned and recorded
	require.EqualError(t, err, "lock held")
	snap := b.Progress().Snapshot()
	assert.Equal(t, string(StatusError), snap.Status)
	assert.Equal(t, "lock held", snap.ErrorMessage)
}

func TestBackgroundIndexer_StopCancels(t *testing.T) {
	// Given: a rebuild that blocks until cancelled
	started := make(chan struct{})
	b := NewBackgroundIndexer(func(ctx context.Context, p *IndexProgress) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	})
	b.Start(context.Background())
	<-started
	assert.True(t, b.IsRunning())

	// When: stopping it, twice
	done := make(chan struct{})
	go func() {
		b.Stop()
		b.Stop()
		close(done)
	}()

	// Then: it finishes with the cancellation
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return")
	}
	assert.ErrorIs(t, b.Wait(), context.Canceled)
	assert.False(t, b.IsRunning())
}

func TestBackgroundIndexer_StopBeforeStart(t *testing.T) {
	b := NewBackgroundIndexer(nil)
	assert.NotPanics(t, b.Stop)
}

func TestBackgroundIndexer_ParentContextCancels(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	b := NewBackgroundIndexer(func(ctx context.Context, p *IndexProgress) error {
		<-ctx.Done()
		return ctx.Err()
	})

	b.Start(ctx)
	cancel()

	assert.ErrorIs(t, b.Wait(), context.Canceled)
}
