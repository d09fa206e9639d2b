package nav

import (
	"context"
	"errors"
	"fmt"

	"github.com/cramdeck/cramdeck/internal/history"
	"github.com/cramdeck/cramdeck/internal/loopguard"
)

// ErrInvalidPath indicates a navigation target failed path validation.
// Validation failures are terminal for the call; they are never retried.
type ErrInvalidPath struct {
	Path   string
	Reason string
}

func (e *ErrInvalidPath) Error() string {
	return fmt.Sprintf("invalid path %q: %s", e.Path, e.Reason)
}

// ErrNavigationFailed indicates the history mutation itself failed.
// These are transient unless the wrapped error says otherwise.
type ErrNavigationFailed struct {
	Path string
	Err  error
}

func (e *ErrNavigationFailed) Error() string {
	return fmt.Sprintf("navigation to %q failed: %v", e.Path, e.Err)
}

func (e *ErrNavigationFailed) Unwrap() error { return e.Err }

// ErrBreakerOpen indicates the loop-detection circuit breaker rejected the
// attempt. Terminal for the call; the breaker clears by timeout or reset.
type ErrBreakerOpen struct {
	Reason loopguard.Reason
}

func (e *ErrBreakerOpen) Error() string {
	if e.Reason == loopguard.ReasonNone {
		return "navigation blocked: circuit breaker active"
	}
	return fmt.Sprintf("navigation blocked: circuit breaker active (%s)", e.Reason)
}

// retryable reports whether a navigation error is worth another attempt.
func retryable(err error) bool {
	// Context errors are never retried.
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	// Traversal past the journal edge cannot succeed on retry.
	if errors.Is(err, history.ErrNoEntry) {
		return false
	}

	var invalid *ErrInvalidPath
	if errors.As(err, &invalid) {
		return false
	}
	var open *ErrBreakerOpen
	if errors.As(err, &open) {
		return false
	}

	// Other errors (journal failures, flaky mutators) are treated as
	// transient.
	return true
}
