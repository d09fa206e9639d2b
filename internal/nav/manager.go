package nav

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cramdeck/cramdeck/internal/history"
	"github.com/cramdeck/cramdeck/internal/loopguard"
	"github.com/cramdeck/cramdeck/internal/navstore"
	"github.com/cramdeck/cramdeck/internal/pathutil"
)

// History is the history-mutation primitive the manager drives. The manager
// is the only component permitted to invoke it. *history.Journal satisfies
// this interface.
type History interface {
	PushEntry(e history.Entry) error
	ReplaceEntry(e history.Entry) error
	Back() error
	Forward() error
	Location() string
	SubscribePop(fn func(history.PopEvent)) func()
}

// navigateOptions collects the per-call Navigate options.
type navigateOptions struct {
	replace        bool
	state          any
	preserveParams bool
	skipValidation bool
}

// NavigateOption configures a single Navigate call.
type NavigateOption func(*navigateOptions)

// WithReplace swaps the current history entry instead of pushing a new one.
func WithReplace() NavigateOption {
	return func(o *navigateOptions) { o.replace = true }
}

// WithHistoryState attaches an opaque payload to the history entry.
func WithHistoryState(state any) NavigateOption {
	return func(o *navigateOptions) { o.state = state }
}

// WithPreserveParams merges the preserved query parameters into the target.
func WithPreserveParams() NavigateOption {
	return func(o *navigateOptions) { o.preserveParams = true }
}

// WithSkipValidation bypasses path validation for trusted internal targets.
func WithSkipValidation() NavigateOption {
	return func(o *navigateOptions) { o.skipValidation = true }
}

// Manager is the unified navigation state manager. It is the sole owner of
// the canonical State: every mutation flows through the update batcher into
// one commit path, so listeners never observe a partial patch. All public
// operations resolve with a boolean outcome instead of failing loudly;
// unrecovered errors surface through State.NavigationError.
type Manager struct {
	cfg      Config
	hist     History
	store    *navstore.Store
	detector *loopguard.Detector
	batcher  *Batcher
	log      *slog.Logger
	now      func() time.Time

	mu        sync.Mutex
	state     State
	listeners map[string]func(State)
	unsubPop  func()
}

// Option configures a Manager.
type Option func(*Manager)

// WithConfig replaces the default configuration.
func WithConfig(cfg Config) Option {
	return func(m *Manager) { m.cfg = cfg }
}

// WithStore enables snapshot persistence through st.
func WithStore(st *navstore.Store) Option {
	return func(m *Manager) { m.store = st }
}

// WithLogger overrides the default slog logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.log = l
		}
	}
}

// WithClock sets a custom clock function (for testing).
func WithClock(fn func() time.Time) Option {
	return func(m *Manager) {
		if fn != nil {
			m.now = fn
		}
	}
}

// WithSynchronous makes every state patch apply immediately, bypassing the
// batch window. Meant for test harnesses needing deterministic commits.
func WithSynchronous() Option {
	return func(m *Manager) { m.cfg.Synchronous = true }
}

// NewManager creates a Manager over the given history primitive. h must be
// non-nil. If persistence is enabled and a store is attached, a surviving
// snapshot is restored; restore failures fall back to the journal location.
func NewManager(h History, opts ...Option) *Manager {
	m := &Manager{
		cfg:       DefaultConfig(),
		hist:      h,
		log:       slog.Default(),
		now:       time.Now,
		state:     newState(),
		listeners: make(map[string]func(State)),
	}
	for _, o := range opts {
		o(m)
	}

	m.detector = loopguard.New(
		loopguard.WithConfig(m.cfg.Loop),
		loopguard.WithClock(m.now),
		loopguard.WithLogger(m.log),
		loopguard.WithTripHandler(m.fallbackToSafeState),
	)
	m.batcher = newBatcher(m.cfg.BatchWindow, m.cfg.BatchCapacity, m.cfg.Synchronous, m.commit, m.now)

	m.state.CurrentPath = pathutil.NormalizePath(h.Location())
	m.restore()
	return m
}

// restore adopts a persisted snapshot as the initial state. It runs before
// any listener can be registered, so direct assignment is safe.
func (m *Manager) restore() {
	if !m.cfg.EnablePersistence || m.store == nil {
		return
	}
	snap, ok, err := m.store.LoadSnapshot()
	if err != nil {
		m.log.Warn("nav: snapshot restore failed, starting fresh", "error", err)
		return
	}
	if !ok {
		return
	}

	current := pathutil.NormalizePath(snap.CurrentPath)
	m.mu.Lock()
	m.state.CurrentPath = current
	m.state.PreviousPath = snap.PreviousPath
	m.state.PendingRedirect = snap.PendingRedirect
	if snap.PreservedParams != nil {
		m.state.PreservedParams = maps.Clone(snap.PreservedParams)
	}
	if snap.RouteParams != nil {
		m.state.RouteParams = maps.Clone(snap.RouteParams)
	}
	m.mu.Unlock()

	// Realign the journal so Location matches the restored state.
	if err := m.hist.ReplaceEntry(history.Entry{Path: current}); err != nil {
		m.log.Warn("nav: journal realign failed", "path", current, "error", err)
	}
}

// Navigate requests a transition to path. It resolves true once the history
// mutation succeeded and the state settled, false on validation failure,
// active circuit breaker, or exhausted retries. It never panics past this
// contract; unrecovered errors land in State.NavigationError.
func (m *Manager) Navigate(ctx context.Context, path string, opts ...NavigateOption) bool {
	var o navigateOptions
	for _, fn := range opts {
		fn(&o)
	}

	if m.detector.Active() {
		m.log.Debug("nav: rejected by active circuit breaker", "path", path)
		return false
	}

	// Settle pending parameter patches so this transition sees them.
	m.batcher.Flush()

	if !o.skipValidation && !pathutil.IsValidPath(path) {
		m.failNavigation(&ErrInvalidPath{
			Path:   path,
			Reason: "must start with / and contain no unsafe characters",
		})
		return false
	}

	target := pathutil.NormalizePath(path)
	if o.preserveParams {
		if preserved := m.preservedSnapshot(); len(preserved) > 0 {
			target = pathutil.MergeQueryParams(target, preserved)
		}
	}

	if !m.detector.RecordAttempt(target) {
		// The breaker either was active or tripped on this attempt; in
		// the latter case the trip handler has already forced the
		// fallback state.
		return false
	}

	m.batcher.Enqueue(Patch{IsNavigating: ptr(true)}, PriorityHigh)

	if err := m.mutate(ctx, target, o); err != nil {
		m.failNavigation(&ErrNavigationFailed{Path: target, Err: err})
		return false
	}

	prior := m.currentSnapshot()
	m.batcher.Enqueue(Patch{
		CurrentPath:  ptr(target),
		PreviousPath: ptr(prior),
		IsNavigating: ptr(false),
	}, PriorityHigh)
	m.detector.RecordSuccess()
	m.persistAfter(target, prior)
	return true
}

// mutate performs the history mutation with bounded linear-backoff retry.
// Validation and journal-edge errors never retry; transient errors retry up
// to the configured attempt count with waits of RetryDelay * attempt.
func (m *Manager) mutate(ctx context.Context, target string, o navigateOptions) error {
	attempts := 1
	if m.cfg.EnableErrorRecovery && m.cfg.MaxRetries > 1 {
		attempts = m.cfg.MaxRetries
	}

	entry := history.Entry{Path: target, Payload: o.state}
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		var err error
		if o.replace {
			err = m.hist.ReplaceEntry(entry)
		} else {
			err = m.hist.PushEntry(entry)
		}
		if err == nil {
			return nil
		}
		lastErr = err
		m.log.Warn("nav: history mutation failed",
			"path", target, "attempt", attempt, "error", err)

		if !retryable(err) || attempt == attempts {
			break
		}
		if serr := m.sleep(ctx, m.cfg.RetryDelay*time.Duration(attempt)); serr != nil {
			return serr
		}
	}
	return lastErr
}

// sleep waits for d or until ctx is done.
func (m *Manager) sleep(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

// GoBack requests a platform-level backward traversal. The destination is
// unknown until the pop event lands, so state settles in the pop handler.
func (m *Manager) GoBack() bool {
	return m.traverse(m.hist.Back, "back")
}

// GoForward is GoBack in the other direction.
func (m *Manager) GoForward() bool {
	return m.traverse(m.hist.Forward, "forward")
}

func (m *Manager) traverse(move func() error, dir string) bool {
	if m.detector.Active() {
		m.log.Debug("nav: traversal rejected by active circuit breaker", "direction", dir)
		return false
	}
	m.batcher.Flush()

	m.batcher.Enqueue(Patch{IsNavigating: ptr(true)}, PriorityHigh)
	if err := move(); err != nil {
		m.failNavigation(fmt.Errorf("cannot go %s: %w", dir, err))
		return false
	}
	return true
}

// HandlePop settles state after a history traversal: it recomputes the
// normalized current path, feeds it to the loop detector, and merges state
// with normal priority. Pop handling and programmatic navigation share the
// same commit path. Wired automatically by InitializeEventListeners.
func (m *Manager) HandlePop(ev history.PopEvent) {
	current := pathutil.NormalizePath(ev.Path)

	if !m.detector.RecordAttempt(current) {
		m.batcher.Enqueue(Patch{IsNavigating: ptr(false)}, PriorityHigh)
		return
	}

	prior := m.currentSnapshot()
	m.batcher.Enqueue(Patch{
		CurrentPath:  ptr(current),
		PreviousPath: ptr(prior),
		IsNavigating: ptr(false),
	}, PriorityNormal)
	m.detector.RecordSuccess()
	m.persistAfter(current, prior)
}

// SetPendingRedirect queues path for execution once the current flow
// completes. An empty path clears the queued redirect.
func (m *Manager) SetPendingRedirect(path string) {
	if path != "" {
		path = pathutil.NormalizePath(path)
	}
	m.batcher.Enqueue(Patch{PendingRedirect: ptr(path)}, PriorityHigh)
	m.persistState()
}

// ExecutePendingRedirect consumes the queued redirect and navigates to it.
// It is a no-op returning false while a navigation is in flight or when
// nothing is queued.
func (m *Manager) ExecutePendingRedirect(ctx context.Context) bool {
	m.batcher.Flush()
	st := m.GetState()
	if st.IsNavigating || st.PendingRedirect == "" {
		return false
	}
	m.batcher.Enqueue(Patch{PendingRedirect: ptr("")}, PriorityHigh)
	return m.Navigate(ctx, st.PendingRedirect)
}

// PreserveCurrentParams marks query parameters of the current path to
// survive across transitions. With no names, every current parameter is
// preserved; otherwise only the named ones.
func (m *Manager) PreserveCurrentParams(names ...string) {
	st := m.GetState()
	params := pathutil.ExtractQueryParams(st.CurrentPath)
	if len(names) > 0 {
		filtered := make(map[string]string, len(names))
		for _, name := range names {
			if v, ok := params[name]; ok {
				filtered[name] = v
			}
		}
		params = filtered
	}

	merged := maps.Clone(st.PreservedParams)
	maps.Copy(merged, params)
	m.batcher.Enqueue(Patch{PreservedParams: merged}, PriorityNormal)
}

// UpdateRouteParams merges patch into the route parameters. An empty value
// removes its key.
func (m *Manager) UpdateRouteParams(patch map[string]string) {
	st := m.GetState()
	merged := maps.Clone(st.RouteParams)
	for k, v := range patch {
		if v == "" {
			delete(merged, k)
			continue
		}
		merged[k] = v
	}
	m.batcher.Enqueue(Patch{RouteParams: merged}, PriorityNormal)
}

// ClearPreservedParams drops every preserved parameter.
func (m *Manager) ClearPreservedParams() {
	m.batcher.Enqueue(Patch{PreservedParams: map[string]string{}}, PriorityNormal)
}

// ClearNavigationError clears the surfaced error message.
func (m *Manager) ClearNavigationError() {
	m.batcher.Enqueue(Patch{NavigationError: ptr("")}, PriorityHigh)
}

// GetState returns a defensive copy of the canonical state.
func (m *Manager) GetState() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.Clone()
}

// AddListener registers fn to run synchronously after every effective state
// change and returns its unsubscribe function. Unsubscribing twice is
// harmless. Listeners receive a defensive copy.
func (m *Manager) AddListener(fn func(State)) func() {
	id := uuid.New().String()

	m.mu.Lock()
	m.listeners[id] = fn
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.listeners, id)
		m.mu.Unlock()
	}
}

// FlushPendingUpdates forces immediate processing of pending patches, for
// callers needing synchronous consistency before reading state.
func (m *Manager) FlushPendingUpdates() {
	m.batcher.Flush()
}

// ResetCircuitBreaker force-clears the breaker, allowing immediate
// subsequent navigation.
func (m *Manager) ResetCircuitBreaker() {
	m.detector.Reset()
}

// IsCircuitBreakerActive reports breaker status, auto-clearing it first if
// its timeout elapsed.
func (m *Manager) IsCircuitBreakerActive() bool {
	return m.detector.Active()
}

// LoopDetectionStatus returns a snapshot of the loop detector.
func (m *Manager) LoopDetectionStatus() loopguard.Status {
	return m.detector.Status()
}

// PersistNow flushes pending updates and snapshots the state. Lifecycle
// hooks call this on focus loss or shutdown.
func (m *Manager) PersistNow() {
	m.batcher.Flush()
	m.persistState()
}

// InitializeEventListeners wires the manager to the history's pop events.
// Calling it twice is a no-op.
func (m *Manager) InitializeEventListeners() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.unsubPop != nil {
		return
	}
	m.unsubPop = m.hist.SubscribePop(m.HandlePop)
}

// Cleanup unwires event listeners, flushes and stops the batcher, cancels
// the breaker's reset timer, and writes a final snapshot. The manager must
// not be used afterwards.
func (m *Manager) Cleanup() {
	m.mu.Lock()
	unsub := m.unsubPop
	m.unsubPop = nil
	m.mu.Unlock()
	if unsub != nil {
		unsub()
	}

	m.batcher.Flush()
	m.persistState()
	m.batcher.Close()
	m.detector.Close()
}

// commit applies a merged patch to the canonical state and notifies
// listeners at most once per effective change. This is the single update
// path; nothing else writes the state.
func (m *Manager) commit(p Patch) {
	m.mu.Lock()
	changed := p.apply(&m.state)
	if !changed {
		m.mu.Unlock()
		return
	}
	snap := m.state.Clone()
	fns := make([]func(State), 0, len(m.listeners))
	for _, fn := range m.listeners {
		fns = append(fns, fn)
	}
	m.mu.Unlock()

	for _, fn := range fns {
		fn(snap)
	}
}

// failNavigation surfaces err through the state and counts the failure.
// The error patch lands before the failure is recorded so that a breaker
// trip triggered by this failure overwrites it with the fallback message.
func (m *Manager) failNavigation(err error) {
	m.log.Warn("nav: navigation failed", "error", err)
	m.batcher.Enqueue(Patch{
		IsNavigating:    ptr(false),
		NavigationError: ptr(err.Error()),
	}, PriorityHigh)
	m.detector.RecordFailure()
}

// fallbackToSafeState forces the state machine onto the root route after a
// breaker trip so the user is never stuck on a broken route.
func (m *Manager) fallbackToSafeState(reason loopguard.Reason) {
	prior := m.currentSnapshot()
	if err := m.hist.ReplaceEntry(history.Entry{Path: "/"}); err != nil {
		m.log.Warn("nav: fallback realign failed", "error", err)
	}
	m.batcher.Enqueue(Patch{
		CurrentPath:     ptr("/"),
		PreviousPath:    ptr(prior),
		IsNavigating:    ptr(false),
		PendingRedirect: ptr(""),
		NavigationError: ptr(breakerMessage(reason)),
	}, PriorityHigh)
	m.persistState()
}

// breakerMessage renders a trip reason for direct display.
func breakerMessage(reason loopguard.Reason) string {
	switch reason {
	case loopguard.ReasonRenderOverflow:
		return "Navigation paused: too many screen refreshes. Taking you home."
	case loopguard.ReasonCircularPattern:
		return "Navigation paused: a redirect loop was detected. Taking you home."
	case loopguard.ReasonRapidNavigation:
		return "Navigation paused: navigating too fast. Taking you home."
	case loopguard.ReasonConsecutiveFailures:
		return "Navigation paused: repeated failures. Taking you home."
	default:
		return "Navigation paused. Taking you home."
	}
}

// persistState snapshots the committed state.
func (m *Manager) persistState() {
	st := m.GetState()
	m.persistAfter(st.CurrentPath, st.PreviousPath)
}

// persistAfter snapshots state using the just-settled paths, which may
// still be pending in the batcher. Best-effort: failures are logged and
// never change a navigation outcome.
func (m *Manager) persistAfter(current, previous string) {
	if !m.cfg.EnablePersistence || m.store == nil {
		return
	}
	st := m.GetState()
	snap := navstore.Snapshot{
		CurrentPath:     current,
		PreviousPath:    previous,
		PendingRedirect: st.PendingRedirect,
		PreservedParams: st.PreservedParams,
		RouteParams:     st.RouteParams,
	}
	if err := m.store.SaveSnapshot(snap); err != nil {
		m.log.Warn("nav: snapshot save failed", "error", err)
	}
}

func (m *Manager) currentSnapshot() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.CurrentPath
}

func (m *Manager) preservedSnapshot() map[string]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return maps.Clone(m.state.PreservedParams)
}
