package pathmatch

import (
	"errors"
	"fmt"
	"strings"
)

const (
	// Wildcard matches exactly one path segment of any value.
	Wildcard = "*"
	// RecursiveWildcard matches zero or more trailing path segments. It is
	// only valid as the final segment of a pattern.
	RecursiveWildcard = "**"

	separator = "/"
)

// ErrInvalidPattern is returned when a pattern is structurally malformed:
// empty, containing empty segments, or using "**" anywhere but the final
// position. Callers must fix the pattern; the error is never downgraded to a
// deny decision.
var ErrInvalidPattern = errors.New("invalid path pattern")

// Pattern is a parsed grant pattern. The zero value is invalid; construct
// with Parse.
type Pattern struct {
	segments  []string
	recursive bool // final segment is "**"
}

// Parse validates and parses a pattern string.
func Parse(raw string) (Pattern, error) {
	if raw == "" {
		return Pattern{}, fmt.Errorf("%w: pattern is empty", ErrInvalidPattern)
	}

	segments := strings.Split(raw, separator)
	recursive := false

	for i, seg := range segments {
		switch {
		case seg == "":
			return Pattern{}, fmt.Errorf("%w: empty segment in %q", ErrInvalidPattern, raw)
		case seg == RecursiveWildcard:
			if i != len(segments)-1 {
				return Pattern{}, fmt.Errorf("%w: %q must be the final segment in %q", ErrInvalidPattern, RecursiveWildcard, raw)
			}
			recursive = true
		case strings.Contains(seg, Wildcard) && seg != Wildcard:
			// Partial-segment globs like "pro*" are not supported.
			return Pattern{}, fmt.Errorf("%w: segment %q mixes literal and wildcard characters", ErrInvalidPattern, seg)
		}
	}

	return Pattern{segments: segments, recursive: recursive}, nil
}

// MustParse is Parse for statically known patterns (role bundles, tests).
// It panics on malformed input.
func MustParse(raw string) Pattern {
	p, err := Parse(raw)
	if err != nil {
		panic(err)
	}
	return p
}

// Segments returns the pattern's segments, including any wildcard segments.
// The returned slice must not be modified.
func (p Pattern) Segments() []string {
	return p.segments
}

// Recursive reports whether the pattern ends in "**".
func (p Pattern) Recursive() bool {
	return p.recursive
}

// IsZero reports whether the pattern is the unusable zero value.
func (p Pattern) IsZero() bool {
	return p.segments == nil
}

// String reassembles the canonical pattern string. Patterns with equal
// String() values are the same pattern for grant-key purposes.
func (p Pattern) String() string {
	return strings.Join(p.segments, separator)
}

// SplitPath splits a concrete path into segments. Concrete paths carry no
// wildcard semantics; a literal "*" segment in a concrete path only matches
// grant patterns that cover it like any other value.
func SplitPath(path string) []string {
	if path == "" {
		return nil
	}
	return strings.Split(path, separator)
}

// Matches reports whether the concrete path is covered by the pattern. Both
// sequences are walked in lockstep: literals must match exactly, "*" consumes
// one segment, and "**" succeeds against all remaining segments including
// none.
func (p Pattern) Matches(path string) bool {
	return p.matchSegments(SplitPath(path))
}

func (p Pattern) matchSegments(concrete []string) bool {
	n := len(p.segments)
	if p.recursive {
		n-- // "**" handled after the fixed prefix
	}

	if len(concrete) < n {
		return false
	}
	if !p.recursive && len(concrete) != n {
		return false
	}

	for i := 0; i < n; i++ {
		seg := p.segments[i]
		if seg != Wildcard && seg != concrete[i] {
			return false
		}
	}
	return true
}
