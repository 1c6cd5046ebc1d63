package pathmatch

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantErr   bool
		recursive bool
	}{
		{name: "literal path", input: "profile/name"},
		{name: "single segment", input: "profile"},
		{name: "wildcard segment", input: "a/*/c"},
		{name: "leading wildcard", input: "*/config"},
		{name: "trailing recursive", input: "groups/g1/**", recursive: true},
		{name: "bare recursive", input: "**", recursive: true},
		{name: "empty pattern", input: "", wantErr: true},
		{name: "empty segment", input: "a//b", wantErr: true},
		{name: "trailing slash", input: "a/b/", wantErr: true},
		{name: "recursive not terminal", input: "a/**/b", wantErr: true},
		{name: "double recursive", input: "a/**/**", wantErr: true},
		{name: "partial glob", input: "pro*/name", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := Parse(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrInvalidPattern), "error should wrap ErrInvalidPattern")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.input, p.String())
			assert.Equal(t, tt.recursive, p.Recursive())
		})
	}
}

func TestMatches(t *testing.T) {
	tests := []struct {
		pattern string
		path    string
		want    bool
	}{
		// Exact matching.
		{"a/b/c", "a/b/c", true},
		{"a/b/c", "a/b/d", false},
		{"a/b/c", "a/b", false},
		{"a/b/c", "a/b/c/d", false},

		// Single-segment wildcard consumes exactly one segment.
		{"a/*/c", "a/x/c", true},
		{"a/*/c", "a/y/c", true},
		{"a/*/c", "a/x/y/c", false},
		{"a/*/c", "a/c", false},
		{"messages/*/public", "messages/42/public", true},
		{"messages/*/public", "messages/42/private", false},

		// Recursive wildcard consumes zero or more trailing segments.
		{"a/**", "a", true},
		{"a/**", "a/b", true},
		{"a/**", "a/b/c/d", true},
		{"a/**", "b", false},
		{"a/b/**", "a", false},
		{"**", "anything/at/all", true},

		// A concrete "*" segment is just a value.
		{"a/*/c", "a/*/c", true},
		{"a/b/c", "a/*/c", false},
	}

	for _, tt := range tests {
		t.Run(tt.pattern+"~"+tt.path, func(t *testing.T) {
			p := MustParse(tt.pattern)
			assert.Equal(t, tt.want, p.Matches(tt.path))
		})
	}
}

func TestMustParsePanics(t *testing.T) {
	assert.Panics(t, func() { MustParse("a/**/b") })
}

func TestSplitPath(t *testing.T) {
	assert.Nil(t, SplitPath(""))
	assert.Equal(t, []string{"a"}, SplitPath("a"))
	assert.Equal(t, []string{"a", "b", "c"}, SplitPath("a/b/c"))
}
