// Package trie provides a segment-keyed trie over grant patterns.
//
// Each stored pattern is inserted segment by segment; literal segments get
// their own child edge, "*" shares a single wildcard edge, and a trailing
// "**" terminates at its parent node with a recursive-terminal value set.
// Candidate lookup for a concrete path descends literal and wildcard edges in
// parallel and collects recursive terminals at every visited depth, so only
// pattern-relevant values are returned instead of scanning every stored
// pattern.
package trie
