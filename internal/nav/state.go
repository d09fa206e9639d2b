// Package nav implements the unified navigation state manager: a single
// state machine that owns the canonical navigation state, drives the
// history journal, guards against navigation loops with a circuit breaker,
// coalesces state patches through an update batcher, and persists snapshots
// across restarts.
package nav

import "maps"

// State is the canonical navigation state. Exactly one State is live per
// Manager; every mutation flows through the batched commit path so
// listeners always observe a fully merged snapshot. Empty strings stand in
// for "none" on the nullable fields.
type State struct {
	// CurrentPath is the active location (path + query + fragment),
	// always normalized.
	CurrentPath string

	// PreviousPath is the path active immediately before the last
	// successful transition.
	PreviousPath string

	// IsNavigating is true between transition start and settle. It is
	// advisory for the UI, not a cancellation token.
	IsNavigating bool

	// PendingRedirect is a path queued for execution once the current
	// navigation or auth flow completes.
	PendingRedirect string

	// NavigationError is the last unrecovered error message, cleared
	// explicitly or replaced by the next error.
	NavigationError string

	// PreservedParams are query parameters marked to survive across
	// transitions.
	PreservedParams map[string]string

	// RouteParams are path-derived parameters for the current route.
	RouteParams map[string]string
}

// Clone returns a deep copy; mutating the copy never affects the original.
func (s State) Clone() State {
	out := s
	out.PreservedParams = maps.Clone(s.PreservedParams)
	out.RouteParams = maps.Clone(s.RouteParams)
	if out.PreservedParams == nil {
		out.PreservedParams = make(map[string]string)
	}
	if out.RouteParams == nil {
		out.RouteParams = make(map[string]string)
	}
	return out
}

// newState returns an empty State with non-nil parameter maps.
func newState() State {
	return State{
		PreservedParams: make(map[string]string),
		RouteParams:     make(map[string]string),
	}
}
