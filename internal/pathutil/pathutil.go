// Package pathutil provides pure helpers for validating, normalizing, and
// converting app route paths. A route path is the path + query + fragment
// portion of a URL, e.g. "/quiz/algebra?mode=timed#q3".
package pathutil

import (
	"net/url"
	"strings"
)

// validationBase is an arbitrary absolute base used to confirm a path parses
// as a URL. The host never resolves; only parseability matters.
const validationBase = "https://cramdeck.invalid"

// unsafeChars are rejected outright in raw navigation targets. Preserved-param
// merging happens after validation, so multi-param queries built internally
// may still contain '&'.
const unsafeChars = `<>"'&`

// IsValidPath reports whether p is acceptable as a raw navigation target:
// it must start with "/", contain none of < > " ' &, and parse as a URL
// when resolved against a base.
func IsValidPath(p string) bool {
	if !strings.HasPrefix(p, "/") {
		return false
	}
	if strings.ContainsAny(p, unsafeChars) {
		return false
	}
	if _, err := url.Parse(validationBase + p); err != nil {
		return false
	}
	return true
}

// NormalizePath collapses repeated slashes in the path portion, guarantees a
// leading slash, and strips a trailing slash except for the root. The query
// and fragment portions are preserved untouched. NormalizePath is idempotent.
func NormalizePath(p string) string {
	path, query, fragment := splitPath(p)

	if path == "" {
		path = "/"
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	for strings.Contains(path, "//") {
		path = strings.ReplaceAll(path, "//", "/")
	}
	if len(path) > 1 {
		path = strings.TrimSuffix(path, "/")
	}

	return joinPath(path, query, fragment)
}

// ExtractQueryParams returns the query parameters of p as a flat map. For
// repeated keys the first value wins. A path without a query yields an empty,
// non-nil map.
func ExtractQueryParams(p string) map[string]string {
	params := make(map[string]string)

	_, query, _ := splitPath(p)
	if query == "" {
		return params
	}

	values, err := url.ParseQuery(query)
	if err != nil {
		return params
	}
	for key, vals := range values {
		if len(vals) > 0 {
			params[key] = vals[0]
		}
	}
	return params
}

// BuildPathWithParams attaches params to path as a query string, replacing
// any query already present. Keys with empty values are dropped. Keys are
// encoded in sorted order so output is deterministic. The fragment, if any,
// is preserved.
func BuildPathWithParams(path string, params map[string]string) string {
	base, _, fragment := splitPath(path)

	values := url.Values{}
	for key, val := range params {
		if key == "" || val == "" {
			continue
		}
		values.Set(key, val)
	}

	return joinPath(base, values.Encode(), fragment)
}

// MergeQueryParams overlays extra onto the query already present in path.
// Existing keys keep their value unless extra overrides them. Empty values
// in extra are dropped.
func MergeQueryParams(path string, extra map[string]string) string {
	if len(extra) == 0 {
		return path
	}
	merged := ExtractQueryParams(path)
	for key, val := range extra {
		if val != "" {
			merged[key] = val
		}
	}
	return BuildPathWithParams(path, merged)
}

// splitPath breaks p into path, query (without '?'), and fragment (without
// '#'). The fragment is located first since a '?' inside a fragment is not a
// query separator.
func splitPath(p string) (path, query, fragment string) {
	path = p
	if i := strings.Index(path, "#"); i >= 0 {
		fragment = path[i+1:]
		path = path[:i]
	}
	if i := strings.Index(path, "?"); i >= 0 {
		query = path[i+1:]
		path = path[:i]
	}
	return path, query, fragment
}

// joinPath reassembles the parts produced by splitPath.
func joinPath(path, query, fragment string) string {
	var b strings.Builder
	b.WriteString(path)
	if query != "" {
		b.WriteString("?")
		b.WriteString(query)
	}
	if fragment != "" {
		b.WriteString("#")
		b.WriteString(fragment)
	}
	return b.String()
}
