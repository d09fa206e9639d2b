package nav

import (
	"sort"
	"sync"
	"time"
)

// Priority orders patches within a flush. High priority patches never wait
// for the batch window.
type Priority int

const (
	PriorityLow Priority = iota
	PriorityNormal
	PriorityHigh
)

func (p Priority) String() string {
	switch p {
	case PriorityLow:
		return "low"
	case PriorityNormal:
		return "normal"
	case PriorityHigh:
		return "high"
	default:
		return "unknown"
	}
}

// Batch window defaults, tuned to a single animation frame.
const (
	DefaultBatchWindow   = 16 * time.Millisecond
	DefaultBatchCapacity = 10
)

// pendingUpdate is one queued patch awaiting flush.
type pendingUpdate struct {
	patch    Patch
	priority Priority
	ts       time.Time
	seq      uint64
}

// Batcher coalesces normal and low priority patches issued within one batch
// window into a single apply call. High priority patches, and any patch
// issued while a flush is in progress, bypass the queue and apply
// immediately. The pending map is keyed by the touched-field set, so a
// later patch to the same fields replaces the earlier one.
type Batcher struct {
	mu          sync.Mutex
	pending     map[string]pendingUpdate
	timer       *time.Timer
	flushing    bool
	closed      bool
	window      time.Duration
	capacity    int
	synchronous bool
	apply       func(Patch)
	now         func() time.Time
	seq         uint64
}

// newBatcher creates a Batcher that delivers merged patches to apply.
// In synchronous mode every patch applies immediately, which keeps test
// harnesses deterministic without sniffing the environment.
func newBatcher(window time.Duration, capacity int, synchronous bool, apply func(Patch), now func() time.Time) *Batcher {
	if window <= 0 {
		window = DefaultBatchWindow
	}
	if capacity <= 0 {
		capacity = DefaultBatchCapacity
	}
	if now == nil {
		now = time.Now
	}
	return &Batcher{
		pending:     make(map[string]pendingUpdate),
		window:      window,
		capacity:    capacity,
		synchronous: synchronous,
		apply:       apply,
		now:         now,
	}
}

// Enqueue submits a patch. High priority and mid-flush patches apply
// synchronously before Enqueue returns; others wait for the next flush.
func (b *Batcher) Enqueue(p Patch, prio Priority) {
	if p.isZero() {
		return
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	if b.synchronous || prio == PriorityHigh || b.flushing {
		b.mu.Unlock()
		b.apply(p)
		return
	}

	b.seq++
	b.pending[p.Key()] = pendingUpdate{patch: p, priority: prio, ts: b.now(), seq: b.seq}

	full := len(b.pending) >= b.capacity
	if !full && b.timer == nil {
		b.timer = time.AfterFunc(b.window, b.Flush)
	}
	b.mu.Unlock()

	// Capacity overflow bounds memory and latency regardless of the timer.
	if full {
		b.Flush()
	}
}

// Flush merges whatever is pending, in ascending priority then ascending
// timestamp order, and applies the combined patch in one state transition.
// Callers needing synchronous consistency invoke this before reading state.
func (b *Batcher) Flush() {
	b.mu.Lock()
	if b.flushing || len(b.pending) == 0 {
		b.mu.Unlock()
		return
	}
	b.flushing = true
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
	batch := make([]pendingUpdate, 0, len(b.pending))
	for _, u := range b.pending {
		batch = append(batch, u)
	}
	clear(b.pending)
	b.mu.Unlock()

	sort.Slice(batch, func(i, j int) bool {
		if batch[i].priority != batch[j].priority {
			return batch[i].priority < batch[j].priority
		}
		if !batch[i].ts.Equal(batch[j].ts) {
			return batch[i].ts.Before(batch[j].ts)
		}
		return batch[i].seq < batch[j].seq
	})

	var combined Patch
	for _, u := range batch {
		combined.merge(u.patch)
	}
	b.apply(combined)

	b.mu.Lock()
	b.flushing = false
	b.mu.Unlock()
}

// Pending returns how many patches are queued, for status inspection.
func (b *Batcher) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending)
}

// Close cancels the flush timer and drops any patches enqueued afterwards.
// Pending patches are not flushed; callers flush first if they need them.
func (b *Batcher) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
}
