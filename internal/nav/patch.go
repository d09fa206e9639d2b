package nav

import (
	"maps"
	"sort"
	"strings"
)

// Field names used to key pending patches by their touched-field set.
const (
	fieldCurrentPath     = "currentPath"
	fieldPreviousPath    = "previousPath"
	fieldIsNavigating    = "isNavigating"
	fieldPendingRedirect = "pendingRedirect"
	fieldNavigationError = "navigationError"
	fieldPreservedParams = "preservedParams"
	fieldRouteParams     = "routeParams"
)

// Patch is a partial State update. Nil scalar pointers leave the field
// untouched; a non-nil parameter map replaces the whole map.
type Patch struct {
	CurrentPath     *string
	PreviousPath    *string
	IsNavigating    *bool
	PendingRedirect *string
	NavigationError *string
	PreservedParams map[string]string
	RouteParams     map[string]string
}

// Fields returns the sorted names of the fields this patch touches.
func (p Patch) Fields() []string {
	var out []string
	if p.CurrentPath != nil {
		out = append(out, fieldCurrentPath)
	}
	if p.PreviousPath != nil {
		out = append(out, fieldPreviousPath)
	}
	if p.IsNavigating != nil {
		out = append(out, fieldIsNavigating)
	}
	if p.PendingRedirect != nil {
		out = append(out, fieldPendingRedirect)
	}
	if p.NavigationError != nil {
		out = append(out, fieldNavigationError)
	}
	if p.PreservedParams != nil {
		out = append(out, fieldPreservedParams)
	}
	if p.RouteParams != nil {
		out = append(out, fieldRouteParams)
	}
	sort.Strings(out)
	return out
}

// Key identifies the touched-field set, so a later patch to the same fields
// replaces the earlier pending one instead of stacking.
func (p Patch) Key() string {
	return strings.Join(p.Fields(), ",")
}

// isZero reports whether the patch touches nothing.
func (p Patch) isZero() bool {
	return p.CurrentPath == nil && p.PreviousPath == nil &&
		p.IsNavigating == nil && p.PendingRedirect == nil &&
		p.NavigationError == nil && p.PreservedParams == nil &&
		p.RouteParams == nil
}

// merge overlays o onto p field by field. Fields o touches win.
func (p *Patch) merge(o Patch) {
	if o.CurrentPath != nil {
		p.CurrentPath = o.CurrentPath
	}
	if o.PreviousPath != nil {
		p.PreviousPath = o.PreviousPath
	}
	if o.IsNavigating != nil {
		p.IsNavigating = o.IsNavigating
	}
	if o.PendingRedirect != nil {
		p.PendingRedirect = o.PendingRedirect
	}
	if o.NavigationError != nil {
		p.NavigationError = o.NavigationError
	}
	if o.PreservedParams != nil {
		p.PreservedParams = o.PreservedParams
	}
	if o.RouteParams != nil {
		p.RouteParams = o.RouteParams
	}
}

// apply writes the patch into s and reports whether any field actually
// changed by value. Unchanged patches must not notify listeners.
func (p Patch) apply(s *State) bool {
	changed := false
	if p.CurrentPath != nil && s.CurrentPath != *p.CurrentPath {
		s.CurrentPath = *p.CurrentPath
		changed = true
	}
	if p.PreviousPath != nil && s.PreviousPath != *p.PreviousPath {
		s.PreviousPath = *p.PreviousPath
		changed = true
	}
	if p.IsNavigating != nil && s.IsNavigating != *p.IsNavigating {
		s.IsNavigating = *p.IsNavigating
		changed = true
	}
	if p.PendingRedirect != nil && s.PendingRedirect != *p.PendingRedirect {
		s.PendingRedirect = *p.PendingRedirect
		changed = true
	}
	if p.NavigationError != nil && s.NavigationError != *p.NavigationError {
		s.NavigationError = *p.NavigationError
		changed = true
	}
	if p.PreservedParams != nil && !maps.Equal(s.PreservedParams, p.PreservedParams) {
		s.PreservedParams = maps.Clone(p.PreservedParams)
		changed = true
	}
	if p.RouteParams != nil && !maps.Equal(s.RouteParams, p.RouteParams) {
		s.RouteParams = maps.Clone(p.RouteParams)
		changed = true
	}
	return changed
}

// ptr returns a pointer to v, for building patches inline.
func ptr[T any](v T) *T { return &v }
