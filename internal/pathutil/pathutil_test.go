package pathutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsValidPath(t *testing.T) {
	tests := []struct {
		name string
		path string
		want bool
	}{
		{"root", "/", true},
		{"plain", "/subjects", true},
		{"nested with query", "/quiz/algebra?mode=timed", true},
		{"fragment", "/results#summary", true},
		{"missing leading slash", "subjects", false},
		{"empty", "", false},
		{"angle bracket open", "/a<script", false},
		{"angle bracket close", "/a>b", false},
		{"double quote", `/a"b`, false},
		{"single quote", "/a'b", false},
		{"ampersand", "/a&b", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsValidPath(tt.path))
		})
	}
}

func TestNormalizePath(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty becomes root", "", "/"},
		{"root stays root", "/", "/"},
		{"collapses duplicate slashes", "/a//b///c", "/a/b/c"},
		{"adds leading slash", "a/b", "/a/b"},
		{"strips trailing slash", "/subjects/", "/subjects"},
		{"root keeps its slash", "///", "/"},
		{"query preserved", "/a//b?x=1", "/a/b?x=1"},
		{"fragment preserved", "/a//b#frag", "/a/b#frag"},
		{"query and fragment", "/a//b/?x=1#f", "/a/b?x=1#f"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizePath(tt.in))
		})
	}
}

func TestNormalizePathIdempotent(t *testing.T) {
	paths := []string{
		"/", "", "/a//b/", "a/b/c//", "/quiz?x=1&y=2#frag", "///x///y///",
	}
	for _, p := range paths {
		once := NormalizePath(p)
		assert.Equal(t, once, NormalizePath(once), "normalize(%q) not idempotent", p)
	}
}

func TestExtractQueryParams(t *testing.T) {
	params := ExtractQueryParams("/quiz?subject=algebra&mode=timed")
	assert.Equal(t, map[string]string{"subject": "algebra", "mode": "timed"}, params)

	empty := ExtractQueryParams("/quiz")
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	withFrag := ExtractQueryParams("/quiz?a=1#b=2")
	assert.Equal(t, map[string]string{"a": "1"}, withFrag)
}

func TestBuildPathWithParams(t *testing.T) {
	got := BuildPathWithParams("/quiz", map[string]string{"b": "2", "a": "1"})
	// url.Values.Encode sorts keys.
	assert.Equal(t, "/quiz?a=1&b=2", got)

	dropped := BuildPathWithParams("/quiz", map[string]string{"a": "1", "empty": ""})
	assert.Equal(t, "/quiz?a=1", dropped)

	none := BuildPathWithParams("/quiz", nil)
	assert.Equal(t, "/quiz", none)

	replaced := BuildPathWithParams("/quiz?old=1", map[string]string{"new": "2"})
	assert.Equal(t, "/quiz?new=2", replaced)
}

func TestQueryRoundTrip(t *testing.T) {
	original := "/quiz?mode=timed&subject=algebra"
	rebuilt := BuildPathWithParams("/quiz", ExtractQueryParams(original))
	assert.Equal(t, ExtractQueryParams(original), ExtractQueryParams(rebuilt))
}

func TestMergeQueryParams(t *testing.T) {
	got := MergeQueryParams("/x?keep=1", map[string]string{"added": "2"})
	assert.Equal(t, map[string]string{"keep": "1", "added": "2"}, ExtractQueryParams(got))

	overridden := MergeQueryParams("/x?a=1", map[string]string{"a": "9"})
	assert.Equal(t, "/x?a=9", overridden)

	unchanged := MergeQueryParams("/x?a=1", nil)
	assert.Equal(t, "/x?a=1", unchanged)
}
