// Package loopguard detects pathological navigation patterns — render loops,
// redirect ping-pong, call storms, failure cascades — and trips a circuit
// breaker that rejects further navigation until a timeout elapses or an
// explicit reset occurs.
package loopguard

import (
	"log/slog"
	"sync"
	"time"
)

// Reason identifies which signal tripped the breaker.
type Reason string

const (
	ReasonNone                Reason = ""
	ReasonRenderOverflow      Reason = "render-overflow"
	ReasonCircularPattern     Reason = "circular-pattern"
	ReasonRapidNavigation     Reason = "rapid-navigation"
	ReasonConsecutiveFailures Reason = "consecutive-failures"
)

// Config tunes the detector. Zero fields take the defaults below.
type Config struct {
	// HistorySize bounds the recorded path history. Default 20.
	HistorySize int
	// MaxRenderCount trips the breaker when this many attempts land inside
	// one render window. Default 50.
	MaxRenderCount int
	// RenderWindow is the sliding window for the render counter. Default 1s.
	RenderWindow time.Duration
	// RapidThreshold trips the breaker when this many path-changing calls
	// land inside one rapid window. Default 10.
	RapidThreshold int
	// RapidWindow is the sliding window for the rapid counter. Default 1s.
	RapidWindow time.Duration
	// MaxConsecutiveFailures trips the breaker after this many failed
	// attempts in a row. Default 5.
	MaxConsecutiveFailures int
	// BreakerTimeout is how long the breaker stays active before it
	// auto-resets. Default 5s.
	BreakerTimeout time.Duration
}

// DefaultConfig returns the standard thresholds.
func DefaultConfig() Config {
	return Config{
		HistorySize:            20,
		MaxRenderCount:         50,
		RenderWindow:           time.Second,
		RapidThreshold:         10,
		RapidWindow:            time.Second,
		MaxConsecutiveFailures: 5,
		BreakerTimeout:         5 * time.Second,
	}
}

func (c *Config) withDefaults() {
	def := DefaultConfig()
	if c.HistorySize <= 0 {
		c.HistorySize = def.HistorySize
	}
	if c.MaxRenderCount <= 0 {
		c.MaxRenderCount = def.MaxRenderCount
	}
	if c.RenderWindow <= 0 {
		c.RenderWindow = def.RenderWindow
	}
	if c.RapidThreshold <= 0 {
		c.RapidThreshold = def.RapidThreshold
	}
	if c.RapidWindow <= 0 {
		c.RapidWindow = def.RapidWindow
	}
	if c.MaxConsecutiveFailures <= 0 {
		c.MaxConsecutiveFailures = def.MaxConsecutiveFailures
	}
	if c.BreakerTimeout <= 0 {
		c.BreakerTimeout = def.BreakerTimeout
	}
}

// Status is a point-in-time snapshot of the detector.
type Status struct {
	PathHistory         []string
	RenderCount         int
	RapidCount          int
	ConsecutiveFailures int
	BreakerActive       bool
	BreakerActivatedAt  time.Time
	LastTripReason      Reason
}

// Detector tracks navigation attempts and owns the breaker. All state
// transitions use a mutex; the trip handler runs outside the lock.
type Detector struct {
	mu  sync.Mutex
	cfg Config

	// pathHistory holds recent targets, consecutive duplicates collapsed so
	// same-path storms are measured by the counters, not the pattern rules.
	pathHistory []string

	renderCount    int
	lastRenderTime time.Time

	rapidCount  int
	lastNavTime time.Time

	consecutiveFailures int

	breakerActive bool
	activatedAt   time.Time
	lastReason    Reason
	resetTimer    *time.Timer

	onTrip func(Reason)
	now    func() time.Time
	log    *slog.Logger
}

// Option configures a Detector.
type Option func(*Detector)

// WithConfig replaces the default thresholds.
func WithConfig(cfg Config) Option {
	return func(d *Detector) { d.cfg = cfg }
}

// WithClock sets a custom clock function (for testing).
func WithClock(fn func() time.Time) Option {
	return func(d *Detector) {
		if fn != nil {
			d.now = fn
		}
	}
}

// WithLogger overrides the default slog logger.
func WithLogger(l *slog.Logger) Option {
	return func(d *Detector) {
		if l != nil {
			d.log = l
		}
	}
}

// WithTripHandler registers fn to run when the breaker activates. The
// handler is invoked once per activation, outside the detector lock.
func WithTripHandler(fn func(Reason)) Option {
	return func(d *Detector) { d.onTrip = fn }
}

// New creates a Detector.
func New(opts ...Option) *Detector {
	d := &Detector{
		cfg: DefaultConfig(),
		now: time.Now,
		log: slog.Default(),
	}
	for _, o := range opts {
		o(d)
	}
	d.cfg.withDefaults()
	return d
}

// RecordAttempt registers a navigation attempt toward path and reports
// whether the attempt is allowed. It returns false when the breaker is
// already active or when this attempt trips it.
func (d *Detector) RecordAttempt(path string) bool {
	d.mu.Lock()

	d.maybeExpireLocked()
	if d.breakerActive {
		d.mu.Unlock()
		return false
	}

	now := d.now()

	// A call targeting the path already at the head of the history is a
	// re-render, not a navigation: it feeds the render counter only. Only
	// path-changing calls enter the history and the rapid counter.
	changed := len(d.pathHistory) == 0 || d.pathHistory[len(d.pathHistory)-1] != path
	if changed {
		d.pathHistory = append(d.pathHistory, path)
		if len(d.pathHistory) > d.cfg.HistorySize {
			d.pathHistory = append([]string(nil), d.pathHistory[1:]...)
		}
	}

	// Render window: every attempt counts.
	if now.Sub(d.lastRenderTime) > d.cfg.RenderWindow {
		d.renderCount = 0
	}
	d.renderCount++
	d.lastRenderTime = now

	// Rapid window: path-changing call frequency, tracked independently.
	if changed {
		if now.Sub(d.lastNavTime) > d.cfg.RapidWindow {
			d.rapidCount = 0
		}
		d.rapidCount++
		d.lastNavTime = now
	}

	reason := d.evaluateLocked()
	if reason == ReasonNone {
		d.mu.Unlock()
		return true
	}

	d.activateLocked(reason)
	onTrip := d.onTrip
	d.mu.Unlock()

	if onTrip != nil {
		onTrip(reason)
	}
	return false
}

// RecordFailure counts a failed navigation attempt. Crossing the
// consecutive-failure threshold trips the breaker immediately.
func (d *Detector) RecordFailure() {
	d.mu.Lock()
	d.consecutiveFailures++
	if d.breakerActive || d.consecutiveFailures < d.cfg.MaxConsecutiveFailures {
		d.mu.Unlock()
		return
	}
	d.activateLocked(ReasonConsecutiveFailures)
	onTrip := d.onTrip
	d.mu.Unlock()

	if onTrip != nil {
		onTrip(ReasonConsecutiveFailures)
	}
}

// RecordSuccess resets the consecutive failure counter.
func (d *Detector) RecordSuccess() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.consecutiveFailures = 0
}

// Active reports whether the breaker is active. The check is lazy: if the
// breaker timeout has elapsed it auto-resets before answering.
func (d *Detector) Active() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.maybeExpireLocked()
	return d.breakerActive
}

// Reset force-clears the breaker and all counters, allowing immediate
// subsequent navigation.
func (d *Detector) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.resetLocked()
}

// Status returns a copy of the current detector state.
func (d *Detector) Status() Status {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.maybeExpireLocked()

	hist := make([]string, len(d.pathHistory))
	copy(hist, d.pathHistory)
	return Status{
		PathHistory:         hist,
		RenderCount:         d.renderCount,
		RapidCount:          d.rapidCount,
		ConsecutiveFailures: d.consecutiveFailures,
		BreakerActive:       d.breakerActive,
		BreakerActivatedAt:  d.activatedAt,
		LastTripReason:      d.lastReason,
	}
}

// Close cancels the pending auto-reset timer, if any.
func (d *Detector) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.resetTimer != nil {
		d.resetTimer.Stop()
		d.resetTimer = nil
	}
}

// evaluateLocked checks the attempt-driven trip signals. Any one is
// sufficient; the returned reason is just the first match. The fourth
// signal, consecutive failures, fires from RecordFailure.
func (d *Detector) evaluateLocked() Reason {
	if d.renderCount >= d.cfg.MaxRenderCount {
		return ReasonRenderOverflow
	}
	if d.circularLocked() {
		return ReasonCircularPattern
	}
	if d.rapidCount >= d.cfg.RapidThreshold {
		return ReasonRapidNavigation
	}
	return ReasonNone
}

// circularLocked detects redirect cycles in the trailing history:
// an A-B-A-B alternation, any block of length 2-4 repeated back-to-back,
// or the same path recurring 3+ times within the trailing 5 entries.
func (d *Detector) circularLocked() bool {
	h := d.pathHistory
	n := len(h)

	if n >= 4 {
		if h[n-4] == h[n-2] && h[n-3] == h[n-1] && h[n-4] != h[n-3] {
			return true
		}
	}

	for blockLen := 2; blockLen <= 4; blockLen++ {
		if n < 2*blockLen {
			continue
		}
		match := true
		for i := 0; i < blockLen; i++ {
			if h[n-blockLen+i] != h[n-2*blockLen+i] {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}

	tail := h
	if n > 5 {
		tail = h[n-5:]
	}
	counts := make(map[string]int, len(tail))
	for _, p := range tail {
		counts[p]++
		if counts[p] >= 3 {
			return true
		}
	}
	return false
}

// activateLocked trips the breaker and schedules the auto-reset.
func (d *Detector) activateLocked(reason Reason) {
	d.breakerActive = true
	d.activatedAt = d.now()
	d.lastReason = reason
	d.log.Warn("loopguard: circuit breaker activated",
		"reason", string(reason),
		"timeout", d.cfg.BreakerTimeout)

	if d.resetTimer != nil {
		d.resetTimer.Stop()
	}
	d.resetTimer = time.AfterFunc(d.cfg.BreakerTimeout, func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		if d.breakerActive {
			d.resetLocked()
		}
	})
}

// maybeExpireLocked auto-resets an active breaker whose timeout elapsed.
// Must be called with mu held.
func (d *Detector) maybeExpireLocked() {
	if d.breakerActive && d.now().Sub(d.activatedAt) >= d.cfg.BreakerTimeout {
		d.resetLocked()
	}
}

// resetLocked clears the breaker and all detection state so navigation gets
// a fresh start. Must be called with mu held.
func (d *Detector) resetLocked() {
	d.breakerActive = false
	d.activatedAt = time.Time{}
	d.pathHistory = nil
	d.renderCount = 0
	d.rapidCount = 0
	d.consecutiveFailures = 0
	if d.resetTimer != nil {
		d.resetTimer.Stop()
		d.resetTimer = nil
	}
}
