// ABOUTME: Tests for the retention sweeper
// ABOUTME: Runs against the mock store, including injected purge failures

package sweeper

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/staffbot/internal/store"
)

func TestSweep_PurgesOldRows(t *testing.T) {
	st := store.NewMockStore()
	ctx := context.Background()
	require.NoError(t, st.Put(ctx, &store.StoredMessage{ID: "old", Timestamp: time.Now().Add(-48 * time.Hour)}))
	require.NoError(t, st.Put(ctx, &store.StoredMessage{ID: "new", Timestamp: time.Now()}))

	s := New(st, 24*time.Hour, time.Hour, slog.Default())
	n, err := s.Sweep(ctx)

	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	_, err = st.Get(ctx, "old")
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = st.Get(ctx, "new")
	assert.NoError(t, err)
}

func TestSweep_Disabled(t *testing.T) {
	st := store.NewMockStore()
	ctx := context.Background()
	require.NoError(t, st.Put(ctx, &store.StoredMessage{ID: "old", Timestamp: time.Now().Add(-48 * time.Hour)}))

	n, err := New(st, 0, time.Hour, slog.Default()).Sweep(ctx)

	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, 1, st.Len())
}

func TestSweep_StoreError(t *testing.T) {
	st := store.NewMockStore()
	st.Err = errors.New("disk I/O error")

	_, err := New(st, time.Hour, time.Hour, slog.Default()).Sweep(context.Background())

	var storageErr *store.StorageError
	require.ErrorAs(t, err, &storageErr)
	assert.Equal(t, "purge", storageErr.Op)
}

func TestRun_SweepsImmediatelyAndStopsOnCancel(t *testing.T) {
	st := store.NewMockStore()
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, st.Put(ctx, &store.StoredMessage{ID: "old", Timestamp: time.Now().Add(-48 * time.Hour)}))

	done := make(chan struct{})
	go func() {
		New(st, 24*time.Hour, time.Hour, slog.Default()).Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return st.Len() == 0 }, time.Second, 10*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestRun_ZeroIntervalSweepsOnce(t *testing.T) {
	st := store.NewMockStore()
	ctx := context.Background()
	require.NoError(t, st.Put(ctx, &store.StoredMessage{ID: "old", Timestamp: time.Now().Add(-60 * 24 * time.Hour)}))
	require.NoError(t, st.Put(ctx, &store.StoredMessage{ID: "new", Timestamp: time.Now()}))

	done := make(chan struct{})
	go func() {
		New(st, 720*time.Hour, 0, slog.Default()).Run(ctx)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run with no interval should return after the startup sweep")
	}

	assert.Equal(t, 1, st.Len())
	_, err := st.Get(ctx, "old")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestRun_DisabledLeavesRows(t *testing.T) {
	st := store.NewMockStore()
	ctx := context.Background()
	require.NoError(t, st.Put(ctx, &store.StoredMessage{ID: "old", Timestamp: time.Now().Add(-60 * 24 * time.Hour)}))

	done := make(chan struct{})
	go func() {
		New(st, 0, time.Hour, slog.Default()).Run(ctx)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run with purging disabled should return")
	}
	assert.Equal(t, 1, st.Len())
}
