// Package navstore persists navigation state snapshots across restarts. It
// exposes a small key/value Storage primitive (memory and SQLite backends)
// and a Store adapter that writes one namespaced, timestamped JSON entry per
// logical slot. Entries older than a configurable max age are treated as
// absent and removed on read. Writes are last-write-wins.
package navstore

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"
)

// Storage is the raw key/value primitive the adapter writes through. It
// mirrors a page-scoped web storage surface: synchronous string keys and
// values, no transactions.
type Storage interface {
	// Get returns the value for key and whether it was present.
	Get(key string) (string, bool, error)
	// Set stores value under key, overwriting any previous value.
	Set(key, value string) error
	// Remove deletes key. Removing an absent key is not an error.
	Remove(key string) error
	// Keys returns all stored keys with the given prefix.
	Keys(prefix string) ([]string, error)
}

// Slot names, one per persisted fragment of navigation state.
const (
	SlotCurrent         = "current"
	SlotPrevious        = "previous"
	SlotPreserved       = "preserved"
	SlotPendingRedirect = "pendingRedirect"
	SlotRouteParams     = "routeParams"
)

// allSlots is the full persisted layout, used by Clear and sweeps.
var allSlots = []string{
	SlotCurrent, SlotPrevious, SlotPreserved, SlotPendingRedirect, SlotRouteParams,
}

// DefaultNamespace prefixes every key written by a Store.
const DefaultNamespace = "cramdeck:nav"

// DefaultMaxAge is how long a persisted entry stays readable.
const DefaultMaxAge = time.Hour

// Snapshot is the persistable subset of navigation state.
type Snapshot struct {
	CurrentPath     string
	PreviousPath    string
	PendingRedirect string
	PreservedParams map[string]string
	RouteParams     map[string]string
}

// pathEntry is the JSON envelope for single-path slots.
type pathEntry struct {
	Path      string `json:"path"`
	Timestamp int64  `json:"timestamp"`
}

// paramsEntry is the JSON envelope for parameter-map slots.
type paramsEntry struct {
	Params    map[string]string `json:"params"`
	Timestamp int64             `json:"timestamp"`
}

// Store adapts a Storage into slot-level snapshot persistence.
type Store struct {
	storage Storage
	ns      string
	maxAge  time.Duration
	now     func() time.Time
	log     *slog.Logger
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithNamespace overrides the key namespace.
func WithNamespace(ns string) StoreOption {
	return func(s *Store) {
		if ns != "" {
			s.ns = ns
		}
	}
}

// WithMaxAge overrides how long entries stay readable.
func WithMaxAge(d time.Duration) StoreOption {
	return func(s *Store) {
		if d > 0 {
			s.maxAge = d
		}
	}
}

// WithClock sets a custom clock function (for testing).
func WithClock(fn func() time.Time) StoreOption {
	return func(s *Store) {
		if fn != nil {
			s.now = fn
		}
	}
}

// WithLogger overrides the default slog logger.
func WithLogger(l *slog.Logger) StoreOption {
	return func(s *Store) {
		if l != nil {
			s.log = l
		}
	}
}

// NewStore creates a Store over the given Storage.
func NewStore(storage Storage, opts ...StoreOption) *Store {
	s := &Store{
		storage: storage,
		ns:      DefaultNamespace,
		maxAge:  DefaultMaxAge,
		now:     time.Now,
		log:     slog.Default(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Namespace returns the key namespace this store writes under.
func (s *Store) Namespace() string { return s.ns }

func (s *Store) key(slot string) string {
	return s.ns + ":" + slot
}

// SaveSnapshot writes every slot of snap. Empty paths and empty parameter
// maps remove their slot instead of storing an empty envelope.
func (s *Store) SaveSnapshot(snap Snapshot) error {
	ts := s.now().UnixMilli()

	if err := s.savePath(SlotCurrent, snap.CurrentPath, ts); err != nil {
		return err
	}
	if err := s.savePath(SlotPrevious, snap.PreviousPath, ts); err != nil {
		return err
	}
	if err := s.savePath(SlotPendingRedirect, snap.PendingRedirect, ts); err != nil {
		return err
	}
	if err := s.saveParams(SlotPreserved, snap.PreservedParams, ts); err != nil {
		return err
	}
	return s.saveParams(SlotRouteParams, snap.RouteParams, ts)
}

func (s *Store) savePath(slot, path string, ts int64) error {
	if path == "" {
		return s.storage.Remove(s.key(slot))
	}
	raw, err := json.Marshal(pathEntry{Path: path, Timestamp: ts})
	if err != nil {
		return fmt.Errorf("marshal %s slot: %w", slot, err)
	}
	if err := s.storage.Set(s.key(slot), string(raw)); err != nil {
		return fmt.Errorf("write %s slot: %w", slot, err)
	}
	return nil
}

func (s *Store) saveParams(slot string, params map[string]string, ts int64) error {
	if len(params) == 0 {
		return s.storage.Remove(s.key(slot))
	}
	raw, err := json.Marshal(paramsEntry{Params: params, Timestamp: ts})
	if err != nil {
		return fmt.Errorf("marshal %s slot: %w", slot, err)
	}
	if err := s.storage.Set(s.key(slot), string(raw)); err != nil {
		return fmt.Errorf("write %s slot: %w", slot, err)
	}
	return nil
}

// LoadSnapshot reads all slots. ok is false when no current path survived
// (nothing useful to restore). Expired entries are removed and skipped.
func (s *Store) LoadSnapshot() (snap Snapshot, ok bool, err error) {
	snap.CurrentPath, err = s.loadPath(SlotCurrent)
	if err != nil {
		return Snapshot{}, false, err
	}
	snap.PreviousPath, err = s.loadPath(SlotPrevious)
	if err != nil {
		return Snapshot{}, false, err
	}
	snap.PendingRedirect, err = s.loadPath(SlotPendingRedirect)
	if err != nil {
		return Snapshot{}, false, err
	}
	snap.PreservedParams, err = s.loadParams(SlotPreserved)
	if err != nil {
		return Snapshot{}, false, err
	}
	snap.RouteParams, err = s.loadParams(SlotRouteParams)
	if err != nil {
		return Snapshot{}, false, err
	}
	return snap, snap.CurrentPath != "", nil
}

func (s *Store) loadPath(slot string) (string, error) {
	raw, found, err := s.storage.Get(s.key(slot))
	if err != nil {
		return "", fmt.Errorf("read %s slot: %w", slot, err)
	}
	if !found {
		return "", nil
	}

	var entry pathEntry
	if err := json.Unmarshal([]byte(raw), &entry); err != nil {
		// A corrupt entry is as good as absent; drop it.
		s.log.Warn("navstore: dropping corrupt slot", "slot", slot, "error", err)
		_ = s.storage.Remove(s.key(slot))
		return "", nil
	}
	if s.expired(entry.Timestamp) {
		_ = s.storage.Remove(s.key(slot))
		return "", nil
	}
	return entry.Path, nil
}

func (s *Store) loadParams(slot string) (map[string]string, error) {
	raw, found, err := s.storage.Get(s.key(slot))
	if err != nil {
		return nil, fmt.Errorf("read %s slot: %w", slot, err)
	}
	if !found {
		return nil, nil
	}

	var entry paramsEntry
	if err := json.Unmarshal([]byte(raw), &entry); err != nil {
		s.log.Warn("navstore: dropping corrupt slot", "slot", slot, "error", err)
		_ = s.storage.Remove(s.key(slot))
		return nil, nil
	}
	if s.expired(entry.Timestamp) {
		_ = s.storage.Remove(s.key(slot))
		return nil, nil
	}
	return entry.Params, nil
}

func (s *Store) expired(ts int64) bool {
	age := s.now().Sub(time.UnixMilli(ts))
	return age > s.maxAge
}

// Clear removes every slot in this store's namespace.
func (s *Store) Clear() error {
	for _, slot := range allSlots {
		if err := s.storage.Remove(s.key(slot)); err != nil {
			return fmt.Errorf("remove %s slot: %w", slot, err)
		}
	}
	return nil
}

// SweepExpired removes slots whose entries have outlived the max age and
// returns how many were removed.
func (s *Store) SweepExpired() (int, error) {
	removed := 0
	for _, slot := range allSlots {
		raw, found, err := s.storage.Get(s.key(slot))
		if err != nil {
			return removed, fmt.Errorf("read %s slot: %w", slot, err)
		}
		if !found {
			continue
		}

		var probe struct {
			Timestamp int64 `json:"timestamp"`
		}
		if err := json.Unmarshal([]byte(raw), &probe); err != nil || s.expired(probe.Timestamp) {
			if err := s.storage.Remove(s.key(slot)); err != nil {
				return removed, fmt.Errorf("remove %s slot: %w", slot, err)
			}
			removed++
		}
	}
	return removed, nil
}

// Slots returns the raw stored value per present slot, for inspection.
func (s *Store) Slots() (map[string]string, error) {
	out := make(map[string]string)
	for _, slot := range allSlots {
		raw, found, err := s.storage.Get(s.key(slot))
		if err != nil {
			return nil, fmt.Errorf("read %s slot: %w", slot, err)
		}
		if found {
			out[slot] = raw
		}
	}
	return out, nil
}
