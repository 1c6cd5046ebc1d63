// Package pathmatch parses hierarchical resource paths and tests concrete
// paths against stored grant patterns.
//
// A pattern is an ordered sequence of slash-separated segments. A segment is
// either a literal, "*" (matches exactly one segment of any value), or "**"
// (matches zero or more trailing segments). "**" is only valid as the final
// segment and a pattern may contain at most one.
//
// Examples:
//
//	profile/name        matches only profile/name
//	messages/*/public   matches messages/42/public, not messages/42/a/public
//	groups/g1/**        matches groups/g1, groups/g1/members, groups/g1/a/b
//
// Matching is a pure function with no allocation beyond the initial parse;
// callers on the hot path should parse once and reuse the Pattern.
package pathmatch
