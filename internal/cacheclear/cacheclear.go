// Package cacheclear removes persisted navigation state defensively. Storage
// backends can fail transiently (a locked database file, a remote KV blip),
// so every operation retries a bounded number of times and stays safe to
// repeat after partial completion.
package cacheclear

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cramdeck/cramdeck/internal/navstore"
)

const (
	defaultAttempts = 3
	defaultWait     = 50 * time.Millisecond
)

// Cleaner wraps a navstore.Store with retrying sweep and purge operations.
type Cleaner struct {
	store    *navstore.Store
	attempts int
	wait     time.Duration
	log      *slog.Logger
}

// Option configures a Cleaner.
type Option func(*Cleaner)

// WithAttempts sets the total attempts per operation, including the first.
func WithAttempts(n int) Option {
	return func(c *Cleaner) {
		if n > 0 {
			c.attempts = n
		}
	}
}

// WithWait sets the base wait between attempts. The wait grows linearly.
func WithWait(d time.Duration) Option {
	return func(c *Cleaner) {
		if d > 0 {
			c.wait = d
		}
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(log *slog.Logger) Option {
	return func(c *Cleaner) {
		if log != nil {
			c.log = log
		}
	}
}

// New creates a Cleaner over the given store.
func New(store *navstore.Store, opts ...Option) *Cleaner {
	c := &Cleaner{
		store:    store,
		attempts: defaultAttempts,
		wait:     defaultWait,
		log:      slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Sweep removes expired slots, returning how many were removed. Slots that
// are still fresh are untouched.
func (c *Cleaner) Sweep(ctx context.Context) (int, error) {
	var removed int
	err := c.retry(ctx, "sweep", func() error {
		n, err := c.store.SweepExpired()
		removed = n
		return err
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}

// Purge removes every slot in the store's namespace, fresh or not.
func (c *Cleaner) Purge(ctx context.Context) error {
	return c.retry(ctx, "purge", func() error {
		return c.store.Clear()
	})
}

// retry runs fn up to c.attempts times with linearly growing waits.
func (c *Cleaner) retry(ctx context.Context, op string, fn func() error) error {
	var lastErr error

	for attempt := range c.attempts {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		if attempt == c.attempts-1 {
			break
		}

		wait := c.wait * time.Duration(attempt+1)
		c.log.Warn("cache clear attempt failed, retrying",
			"op", op, "attempt", attempt+1, "wait", wait, "error", err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}

	c.log.Error("cache clear failed", "op", op, "attempts", c.attempts, "error", lastErr)
	return lastErr
}
