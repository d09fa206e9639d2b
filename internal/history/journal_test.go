package history

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSeedsInitialEntry(t *testing.T) {
	j := New("/home")
	assert.Equal(t, "/home", j.Location())
	assert.Equal(t, 1, j.Len())
	assert.False(t, j.CanBack())
	assert.False(t, j.CanForward())

	empty := New("")
	assert.Equal(t, "/", empty.Location())
}

func TestPushAdvancesCursor(t *testing.T) {
	j := New("/")
	require.NoError(t, j.Push("/subjects"))
	require.NoError(t, j.Push("/quiz"))

	assert.Equal(t, "/quiz", j.Location())
	assert.Equal(t, 3, j.Len())
	assert.True(t, j.CanBack())
	assert.False(t, j.CanForward())
}

func TestPushTruncatesForwardTail(t *testing.T) {
	j := New("/")
	require.NoError(t, j.Push("/a"))
	require.NoError(t, j.Push("/b"))
	require.NoError(t, j.Back())
	require.Equal(t, "/a", j.Location())

	// Navigating anew drops /b from the forward tail.
	require.NoError(t, j.Push("/c"))
	assert.Equal(t, "/c", j.Location())
	assert.False(t, j.CanForward())
	assert.Equal(t, []string{"/", "/a", "/c"}, paths(j))
}

func TestReplaceSwapsInPlace(t *testing.T) {
	j := New("/")
	require.NoError(t, j.Push("/a"))
	require.NoError(t, j.Replace("/a2"))

	assert.Equal(t, "/a2", j.Location())
	assert.Equal(t, 2, j.Len())

	require.NoError(t, j.Back())
	assert.Equal(t, "/", j.Location())
}

func TestBackForwardDeliverPopEvents(t *testing.T) {
	j := New("/")
	require.NoError(t, j.Push("/a"))

	var events []PopEvent
	unsub := j.SubscribePop(func(ev PopEvent) { events = append(events, ev) })

	require.NoError(t, j.Back())
	require.NoError(t, j.Forward())

	require.Len(t, events, 2)
	assert.Equal(t, PopEvent{Path: "/", Delta: -1}, events[0])
	assert.Equal(t, PopEvent{Path: "/a", Delta: +1}, events[1])

	unsub()
	unsub() // second call is a no-op
	require.NoError(t, j.Back())
	assert.Len(t, events, 2)
}

func TestTraversalAtEdges(t *testing.T) {
	j := New("/")
	assert.ErrorIs(t, j.Back(), ErrNoEntry)
	assert.ErrorIs(t, j.Forward(), ErrNoEntry)

	require.NoError(t, j.Push("/a"))
	assert.ErrorIs(t, j.Forward(), ErrNoEntry)
}

func TestCapacityDropsOldest(t *testing.T) {
	j := New("/", WithMaxEntries(3))
	require.NoError(t, j.Push("/a"))
	require.NoError(t, j.Push("/b"))
	require.NoError(t, j.Push("/c"))

	assert.Equal(t, 3, j.Len())
	assert.Equal(t, []string{"/a", "/b", "/c"}, paths(j))
	assert.Equal(t, "/c", j.Location())
}

func TestPushEntryCarriesPayload(t *testing.T) {
	j := New("/")
	require.NoError(t, j.PushEntry(Entry{Path: "/a", Payload: 42}))

	var got PopEvent
	j.SubscribePop(func(ev PopEvent) { got = ev })

	require.NoError(t, j.Back())
	require.NoError(t, j.Forward())
	assert.Equal(t, 42, got.Payload)
}

func paths(j *Journal) []string {
	entries := j.Entries()
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Path
	}
	return out
}
