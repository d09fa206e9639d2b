package cacheclear

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cramdeck/cramdeck/internal/navstore"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// flakyStorage fails a configurable number of Get calls before delegating,
// simulating a transiently unavailable backend. A sweep reads each slot
// before removing it, so a failing Get fails the whole attempt.
type flakyStorage struct {
	*navstore.Memory

	mu       sync.Mutex
	failures int
	failed   int
}

func (f *flakyStorage) Get(key string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failures > 0 {
		f.failures--
		f.failed++
		return "", false, errors.New("storage offline")
	}
	return f.Memory.Get(key)
}

func (f *flakyStorage) failedGets() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.failed
}

func TestSweepRemovesExpiredSlots(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	mem := navstore.NewMemory()
	store := navstore.NewStore(mem,
		navstore.WithMaxAge(time.Hour),
		navstore.WithClock(func() time.Time { return now }),
		navstore.WithLogger(discardLogger()),
	)

	require.NoError(t, store.SaveSnapshot(navstore.Snapshot{
		CurrentPath:  "/quiz/algebra",
		PreviousPath: "/",
	}))

	now = now.Add(2 * time.Hour)

	c := New(store, WithLogger(discardLogger()))
	removed, err := c.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, removed)
	assert.Zero(t, mem.Len())
}

func TestSweepKeepsFreshSlots(t *testing.T) {
	mem := navstore.NewMemory()
	store := navstore.NewStore(mem, navstore.WithLogger(discardLogger()))

	require.NoError(t, store.SaveSnapshot(navstore.Snapshot{CurrentPath: "/quiz/algebra"}))

	c := New(store, WithLogger(discardLogger()))
	removed, err := c.Sweep(context.Background())
	require.NoError(t, err)
	assert.Zero(t, removed)

	snap, ok, err := store.LoadSnapshot()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "/quiz/algebra", snap.CurrentPath)
}

func TestSweepRetriesTransientFailures(t *testing.T) {
	flaky := &flakyStorage{Memory: navstore.NewMemory(), failures: 2}
	store := navstore.NewStore(flaky, navstore.WithLogger(discardLogger()))

	c := New(store, WithWait(time.Millisecond), WithLogger(discardLogger()))
	_, err := c.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, flaky.failedGets())
}

func TestSweepGivesUpAfterMaxAttempts(t *testing.T) {
	flaky := &flakyStorage{Memory: navstore.NewMemory(), failures: 100}
	store := navstore.NewStore(flaky, navstore.WithLogger(discardLogger()))

	c := New(store, WithAttempts(2), WithWait(time.Millisecond), WithLogger(discardLogger()))
	_, err := c.Sweep(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "storage offline")
	assert.Equal(t, 2, flaky.failedGets())
}

func TestPurgeRemovesEverything(t *testing.T) {
	mem := navstore.NewMemory()
	store := navstore.NewStore(mem, navstore.WithLogger(discardLogger()))

	require.NoError(t, store.SaveSnapshot(navstore.Snapshot{
		CurrentPath:     "/quiz/algebra",
		PendingRedirect: "/results",
		RouteParams:     map[string]string{"step": "2"},
	}))
	require.NotZero(t, mem.Len())

	c := New(store, WithLogger(discardLogger()))
	require.NoError(t, c.Purge(context.Background()))
	assert.Zero(t, mem.Len())

	_, ok, err := store.LoadSnapshot()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPurgeIsIdempotent(t *testing.T) {
	store := navstore.NewStore(navstore.NewMemory(), navstore.WithLogger(discardLogger()))

	c := New(store, WithLogger(discardLogger()))
	require.NoError(t, c.Purge(context.Background()))
	require.NoError(t, c.Purge(context.Background()))
}

func TestRetryStopsOnContextCancel(t *testing.T) {
	flaky := &flakyStorage{Memory: navstore.NewMemory(), failures: 100}
	store := navstore.NewStore(flaky, navstore.WithLogger(discardLogger()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := New(store, WithWait(time.Minute), WithLogger(discardLogger()))
	_, err := c.Sweep(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, flaky.failedGets())
}
