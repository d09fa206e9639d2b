// Package authstate tracks whether the user is signed in and couples sign-in
// flow to navigation: guarded routes park their target as the navigator's
// pending redirect, and a completed sign-in sends the user back there.
package authstate

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/cramdeck/cramdeck/internal/nav"
)

// loginPath is where unauthenticated users are sent.
const loginPath = "/login"

// Status is the current authentication state.
type Status int

const (
	StatusSignedOut Status = iota
	StatusSigningIn
	StatusSignedIn
)

func (s Status) String() string {
	switch s {
	case StatusSignedOut:
		return "signed-out"
	case StatusSigningIn:
		return "signing-in"
	case StatusSignedIn:
		return "signed-in"
	default:
		return "unknown"
	}
}

// Navigator is the slice of the navigation manager this package consumes.
// *nav.Manager satisfies it.
type Navigator interface {
	Navigate(ctx context.Context, path string, opts ...nav.NavigateOption) bool
	SetPendingRedirect(path string)
	ExecutePendingRedirect(ctx context.Context) bool
}

// Broadcaster owns the auth status and fans out changes to listeners.
type Broadcaster struct {
	mu        sync.Mutex
	status    Status
	account   string
	listeners map[string]func(Status)

	nav Navigator
	log *slog.Logger
}

// Option configures a Broadcaster.
type Option func(*Broadcaster)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(log *slog.Logger) Option {
	return func(b *Broadcaster) {
		if log != nil {
			b.log = log
		}
	}
}

// New creates a signed-out broadcaster bound to the given navigator.
func New(navigator Navigator, opts ...Option) *Broadcaster {
	b := &Broadcaster{
		status:    StatusSignedOut,
		listeners: make(map[string]func(Status)),
		nav:       navigator,
		log:       slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Status returns the current auth status.
func (b *Broadcaster) Status() Status {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.status
}

// SignedIn reports whether the user is fully signed in.
func (b *Broadcaster) SignedIn() bool {
	return b.Status() == StatusSignedIn
}

// Account returns the signed-in account name, or "" when signed out.
func (b *Broadcaster) Account() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.account
}

// RequireAuth gates navigation to target on being signed in. Signed-in users
// go straight to target; everyone else has target parked as the pending
// redirect and lands on the login route.
func (b *Broadcaster) RequireAuth(ctx context.Context, target string) bool {
	if b.SignedIn() {
		return b.nav.Navigate(ctx, target)
	}

	b.log.Debug("auth required, redirecting to login", "target", target)
	b.nav.SetPendingRedirect(target)
	return b.nav.Navigate(ctx, loginPath)
}

// BeginSignIn marks a sign-in attempt as in flight.
func (b *Broadcaster) BeginSignIn() {
	b.setStatus(StatusSigningIn, "")
}

// SignIn completes sign-in for the given account, notifies listeners, and
// executes the parked redirect. When no redirect is pending the user is sent
// home. Returns whether any navigation happened.
func (b *Broadcaster) SignIn(ctx context.Context, account string) bool {
	b.setStatus(StatusSignedIn, account)

	if b.nav.ExecutePendingRedirect(ctx) {
		return true
	}
	return b.nav.Navigate(ctx, "/")
}

// SignOut clears the auth state, drops any parked redirect, and returns the
// user to the home route. Safe to call when already signed out.
func (b *Broadcaster) SignOut(ctx context.Context) bool {
	if !b.setStatus(StatusSignedOut, "") {
		return false
	}

	b.nav.SetPendingRedirect("")
	return b.nav.Navigate(ctx, "/")
}

// AddListener registers a callback invoked on every effective status change.
// The returned function unsubscribes it.
func (b *Broadcaster) AddListener(fn func(Status)) func() {
	b.mu.Lock()
	id := uuid.NewString()
	b.listeners[id] = fn
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		delete(b.listeners, id)
		b.mu.Unlock()
	}
}

// setStatus updates status and account, returning false when nothing
// effectively changed. Listeners run outside the lock.
func (b *Broadcaster) setStatus(status Status, account string) bool {
	b.mu.Lock()
	if b.status == status && b.account == account {
		b.mu.Unlock()
		return false
	}
	b.status = status
	b.account = account

	fns := make([]func(Status), 0, len(b.listeners))
	for _, fn := range b.listeners {
		fns = append(fns, fn)
	}
	b.mu.Unlock()

	b.log.Debug("auth status changed", "status", status.String())
	for _, fn := range fns {
		fn(status)
	}
	return true
}
