package loopguard

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestRenderOverflowTripsBreaker(t *testing.T) {
	clk := newFakeClock()
	d := New(WithClock(clk.Now))
	defer d.Close()

	for i := 0; i < 49; i++ {
		require.True(t, d.RecordAttempt("/quiz/algebra"), "attempt %d should be allowed", i+1)
	}
	assert.False(t, d.RecordAttempt("/quiz/algebra"), "attempt 50 should trip the breaker")
	assert.True(t, d.Active())
	assert.Equal(t, ReasonRenderOverflow, d.Status().LastTripReason)
}

func TestRenderWindowSlides(t *testing.T) {
	clk := newFakeClock()
	d := New(WithClock(clk.Now))
	defer d.Close()

	for i := 0; i < 30; i++ {
		require.True(t, d.RecordAttempt("/home"))
	}
	clk.Advance(1100 * time.Millisecond)
	for i := 0; i < 30; i++ {
		require.True(t, d.RecordAttempt("/home"))
	}
	assert.False(t, d.Active())
}

func TestCircularPatterns(t *testing.T) {
	tests := []struct {
		name  string
		paths []string
	}{
		{
			name:  "abab alternation",
			paths: []string{"/a", "/b", "/a", "/b"},
		},
		{
			name:  "repeated block of three",
			paths: []string{"/a", "/b", "/c", "/a", "/b", "/c"},
		},
		{
			name:  "same path three of trailing five",
			paths: []string{"/a", "/x", "/a", "/y", "/a"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clk := newFakeClock()
			d := New(WithClock(clk.Now))
			defer d.Close()

			for i, p := range tt.paths[:len(tt.paths)-1] {
				require.True(t, d.RecordAttempt(p), "attempt %d should be allowed", i+1)
			}
			assert.False(t, d.RecordAttempt(tt.paths[len(tt.paths)-1]))
			assert.True(t, d.Active())
			assert.Equal(t, ReasonCircularPattern, d.Status().LastTripReason)
		})
	}
}

func TestDistinctPathsDoNotTripCircular(t *testing.T) {
	clk := newFakeClock()
	d := New(WithClock(clk.Now), WithConfig(Config{RapidThreshold: 100}))
	defer d.Close()

	for i := 0; i < 20; i++ {
		require.True(t, d.RecordAttempt(fmt.Sprintf("/lesson/%d", i)))
	}
	assert.False(t, d.Active())
}

func TestRapidNavigationTripsBreaker(t *testing.T) {
	clk := newFakeClock()
	d := New(WithClock(clk.Now))
	defer d.Close()

	for i := 0; i < 9; i++ {
		require.True(t, d.RecordAttempt(fmt.Sprintf("/p%d", i)))
	}
	assert.False(t, d.RecordAttempt("/p9"))
	assert.Equal(t, ReasonRapidNavigation, d.Status().LastTripReason)
}

func TestRapidWindowSlides(t *testing.T) {
	clk := newFakeClock()
	d := New(WithClock(clk.Now))
	defer d.Close()

	for i := 0; i < 6; i++ {
		require.True(t, d.RecordAttempt(fmt.Sprintf("/a%d", i)))
	}
	clk.Advance(1100 * time.Millisecond)
	for i := 0; i < 6; i++ {
		require.True(t, d.RecordAttempt(fmt.Sprintf("/b%d", i)))
	}
	assert.False(t, d.Active())
}

func TestConsecutiveFailuresTripBreaker(t *testing.T) {
	d := New()
	defer d.Close()

	for i := 0; i < 4; i++ {
		d.RecordFailure()
	}
	assert.False(t, d.Active())
	d.RecordFailure()
	assert.True(t, d.Active())
	assert.Equal(t, ReasonConsecutiveFailures, d.Status().LastTripReason)
}

func TestSuccessResetsFailureStreak(t *testing.T) {
	d := New()
	defer d.Close()

	for i := 0; i < 4; i++ {
		d.RecordFailure()
	}
	d.RecordSuccess()
	for i := 0; i < 4; i++ {
		d.RecordFailure()
	}
	assert.False(t, d.Active())
}

func TestActiveBreakerRejectsAttempts(t *testing.T) {
	clk := newFakeClock()
	d := New(WithClock(clk.Now))
	defer d.Close()

	for _, p := range []string{"/a", "/b", "/a", "/b"} {
		d.RecordAttempt(p)
	}
	require.True(t, d.Active())
	assert.False(t, d.RecordAttempt("/elsewhere"))
}

func TestManualResetAllowsImmediateNavigation(t *testing.T) {
	clk := newFakeClock()
	d := New(WithClock(clk.Now))
	defer d.Close()

	for _, p := range []string{"/a", "/b", "/a", "/b"} {
		d.RecordAttempt(p)
	}
	require.True(t, d.Active())

	d.Reset()
	assert.False(t, d.Active())
	assert.True(t, d.RecordAttempt("/a"), "reset should clear pattern history")
	assert.True(t, d.RecordAttempt("/b"))
	assert.Zero(t, d.Status().ConsecutiveFailures)
}

func TestBreakerExpiresLazily(t *testing.T) {
	clk := newFakeClock()
	d := New(WithClock(clk.Now))
	defer d.Close()

	for _, p := range []string{"/a", "/b", "/a", "/b"} {
		d.RecordAttempt(p)
	}
	require.True(t, d.Active())

	clk.Advance(5 * time.Second)
	assert.False(t, d.Active())
	assert.True(t, d.RecordAttempt("/c"))
}

func TestBreakerAutoResetsOnTimer(t *testing.T) {
	d := New(WithConfig(Config{BreakerTimeout: 20 * time.Millisecond}))
	defer d.Close()

	for i := 0; i < 5; i++ {
		d.RecordFailure()
	}
	require.True(t, d.Active())

	assert.Eventually(t, func() bool {
		return !d.Active()
	}, time.Second, 5*time.Millisecond)
}

func TestTripHandlerInvokedOncePerActivation(t *testing.T) {
	clk := newFakeClock()

	var mu sync.Mutex
	var reasons []Reason
	d := New(WithClock(clk.Now), WithTripHandler(func(r Reason) {
		mu.Lock()
		defer mu.Unlock()
		reasons = append(reasons, r)
	}))
	defer d.Close()

	for _, p := range []string{"/a", "/b", "/a", "/b"} {
		d.RecordAttempt(p)
	}
	d.RecordAttempt("/c")
	d.RecordAttempt("/d")

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, reasons, 1)
	assert.Equal(t, ReasonCircularPattern, reasons[0])
}

func TestStatusSnapshot(t *testing.T) {
	clk := newFakeClock()
	d := New(WithClock(clk.Now))
	defer d.Close()

	d.RecordAttempt("/home")
	d.RecordAttempt("/quiz")
	d.RecordFailure()

	st := d.Status()
	assert.Equal(t, []string{"/home", "/quiz"}, st.PathHistory)
	assert.Equal(t, 2, st.RenderCount)
	assert.Equal(t, 2, st.RapidCount)
	assert.Equal(t, 1, st.ConsecutiveFailures)
	assert.False(t, st.BreakerActive)
	assert.Equal(t, ReasonNone, st.LastTripReason)

	st.PathHistory[0] = "/mutated"
	assert.Equal(t, []string{"/home", "/quiz"}, d.Status().PathHistory)
}

func TestHistoryBounded(t *testing.T) {
	clk := newFakeClock()
	d := New(WithClock(clk.Now), WithConfig(Config{
		HistorySize:    5,
		RapidThreshold: 1000,
	}))
	defer d.Close()

	for i := 0; i < 12; i++ {
		d.RecordAttempt(fmt.Sprintf("/step/%d", i))
	}
	st := d.Status()
	assert.Len(t, st.PathHistory, 5)
	assert.Equal(t, "/step/11", st.PathHistory[4])
}
