// Package history implements the in-process history primitive the navigator
// drives: an ordered list of visited entries with a cursor, push/replace
// mutation, and back/forward traversal that notifies subscribers the way a
// platform pop event would.
package history

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// DefaultMaxEntries bounds the journal; the oldest entry is dropped once the
// bound is reached.
const DefaultMaxEntries = 100

var (
	// ErrNoEntry is returned by Back/Forward when there is no entry in that
	// direction. Traversal at the edge of the journal is not retryable.
	ErrNoEntry = errors.New("history: no entry in that direction")
)

// Entry is a single visited location plus the opaque payload attached to it.
type Entry struct {
	Path    string
	Payload any
}

// PopEvent describes a completed back/forward traversal. Delta is -1 for
// back and +1 for forward.
type PopEvent struct {
	Path    string
	Payload any
	Delta   int
}

// Journal is a bounded history list with a cursor. It is safe for concurrent
// use. Pop events are delivered synchronously on the goroutine that called
// Back or Forward.
type Journal struct {
	mu         sync.Mutex
	entries    []Entry
	cursor     int
	maxEntries int
	subs       map[string]func(PopEvent)
	log        *slog.Logger
}

// Option configures a Journal.
type Option func(*Journal)

// WithMaxEntries overrides the journal capacity.
func WithMaxEntries(n int) Option {
	return func(j *Journal) {
		if n > 0 {
			j.maxEntries = n
		}
	}
}

// WithLogger overrides the default slog logger.
func WithLogger(l *slog.Logger) Option {
	return func(j *Journal) {
		if l != nil {
			j.log = l
		}
	}
}

// New creates a Journal seeded with initial as its only, current entry.
// An empty initial seeds "/".
func New(initial string, opts ...Option) *Journal {
	if initial == "" {
		initial = "/"
	}
	j := &Journal{
		entries:    []Entry{{Path: initial}},
		cursor:     0,
		maxEntries: DefaultMaxEntries,
		subs:       make(map[string]func(PopEvent)),
		log:        slog.Default(),
	}
	for _, o := range opts {
		o(j)
	}
	return j
}

// Push appends a new current entry, discarding any forward entries beyond the
// cursor. Implements the navigator's push primitive.
func (j *Journal) Push(path string) error {
	return j.PushEntry(Entry{Path: path})
}

// PushEntry is Push with an attached payload.
func (j *Journal) PushEntry(e Entry) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	// A new navigation invalidates the forward tail.
	j.entries = append(j.entries[:j.cursor+1], e)

	if len(j.entries) > j.maxEntries {
		drop := len(j.entries) - j.maxEntries
		j.entries = append([]Entry(nil), j.entries[drop:]...)
		j.log.Debug("history: capacity reached, dropped oldest entries", "count", drop)
	}
	j.cursor = len(j.entries) - 1
	return nil
}

// Replace swaps the current entry in place without touching the forward tail.
func (j *Journal) Replace(path string) error {
	return j.ReplaceEntry(Entry{Path: path})
}

// ReplaceEntry is Replace with an attached payload.
func (j *Journal) ReplaceEntry(e Entry) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.entries[j.cursor] = e
	return nil
}

// Back moves the cursor one entry toward the oldest and delivers a PopEvent.
func (j *Journal) Back() error {
	return j.traverse(-1)
}

// Forward moves the cursor one entry toward the newest and delivers a
// PopEvent.
func (j *Journal) Forward() error {
	return j.traverse(+1)
}

func (j *Journal) traverse(delta int) error {
	j.mu.Lock()
	next := j.cursor + delta
	if next < 0 || next >= len(j.entries) {
		j.mu.Unlock()
		return ErrNoEntry
	}
	j.cursor = next
	entry := j.entries[next]
	subs := j.snapshotSubs()
	j.mu.Unlock()

	ev := PopEvent{Path: entry.Path, Payload: entry.Payload, Delta: delta}
	for _, fn := range subs {
		fn(ev)
	}
	return nil
}

// Location returns the current entry's path.
func (j *Journal) Location() string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.entries[j.cursor].Path
}

// Current returns the current entry.
func (j *Journal) Current() Entry {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.entries[j.cursor]
}

// Len returns the number of entries in the journal.
func (j *Journal) Len() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return len(j.entries)
}

// CanBack reports whether a Back traversal would succeed.
func (j *Journal) CanBack() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.cursor > 0
}

// CanForward reports whether a Forward traversal would succeed.
func (j *Journal) CanForward() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.cursor < len(j.entries)-1
}

// Entries returns a copy of the journal contents in oldest-first order.
func (j *Journal) Entries() []Entry {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]Entry, len(j.entries))
	copy(out, j.entries)
	return out
}

// Cursor returns the index of the current entry within Entries().
func (j *Journal) Cursor() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.cursor
}

// SubscribePop registers fn for pop events and returns an unsubscribe
// function. Unsubscribing twice is harmless.
func (j *Journal) SubscribePop(fn func(PopEvent)) func() {
	id := uuid.New().String()

	j.mu.Lock()
	j.subs[id] = fn
	j.mu.Unlock()

	return func() {
		j.mu.Lock()
		delete(j.subs, id)
		j.mu.Unlock()
	}
}

// snapshotSubs copies the subscriber list. Must be called with mu held.
func (j *Journal) snapshotSubs() []func(PopEvent) {
	out := make([]func(PopEvent), 0, len(j.subs))
	for _, fn := range j.subs {
		out = append(out, fn)
	}
	return out
}
