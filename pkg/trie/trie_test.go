package trie

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridkv/warden/pkg/pathmatch"
)

func candidates(t *testing.T, tr *Trie[string], path string) []string {
	t.Helper()
	out := tr.Candidates(path)
	sort.Strings(out)
	return out
}

func TestInsertAndCandidates(t *testing.T) {
	tr := New[string]()
	tr.Insert(pathmatch.MustParse("a/b/c"), "read", "exact")
	tr.Insert(pathmatch.MustParse("a/*/c"), "read", "wild")
	tr.Insert(pathmatch.MustParse("a/**"), "read", "deep")
	tr.Insert(pathmatch.MustParse("x/y"), "read", "other")

	assert.Equal(t, 4, tr.Len())

	tests := []struct {
		path string
		want []string
	}{
		{"a/b/c", []string{"deep", "exact", "wild"}},
		{"a/z/c", []string{"deep", "wild"}},
		{"a/b/c/d", []string{"deep"}},
		{"a", []string{"deep"}},
		{"x/y", []string{"other"}},
		{"x", nil},
		{"unrelated/path", nil},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, candidates(t, tr, tt.path), "path %q", tt.path)
	}
}

func TestSubkeysAreIndependent(t *testing.T) {
	tr := New[string]()
	p := pathmatch.MustParse("profile/*")
	tr.Insert(p, "read", "r")
	tr.Insert(p, "write", "w")
	assert.Equal(t, 2, tr.Len())

	assert.ElementsMatch(t, []string{"r", "w"}, tr.Candidates("profile/name"))

	require.True(t, tr.Remove(p, "read"))
	assert.Equal(t, []string{"w"}, tr.Candidates("profile/name"))
	assert.Equal(t, 1, tr.Len())
}

func TestInsertReplacesExisting(t *testing.T) {
	tr := New[string]()
	p := pathmatch.MustParse("a/b")
	tr.Insert(p, "read", "old")
	tr.Insert(p, "read", "new")
	assert.Equal(t, 1, tr.Len())
	assert.Equal(t, []string{"new"}, tr.Candidates("a/b"))
}

func TestRemovePrunesEmptyBranches(t *testing.T) {
	tr := New[string]()
	tr.Insert(pathmatch.MustParse("deep/nested/branch/leaf"), "read", "v")
	tr.Insert(pathmatch.MustParse("deep/other"), "read", "o")

	require.True(t, tr.Remove(pathmatch.MustParse("deep/nested/branch/leaf"), "read"))
	assert.Empty(t, tr.Candidates("deep/nested/branch/leaf"))
	assert.Equal(t, []string{"o"}, tr.Candidates("deep/other"))

	// Pruned interior nodes are gone from the root's child map.
	assert.Len(t, tr.root.children["deep"].children, 1)
}

func TestRemoveMissing(t *testing.T) {
	tr := New[string]()
	tr.Insert(pathmatch.MustParse("a/b"), "read", "v")

	assert.False(t, tr.Remove(pathmatch.MustParse("a/z"), "read"))
	assert.False(t, tr.Remove(pathmatch.MustParse("a/b"), "write"))
	assert.False(t, tr.Remove(pathmatch.MustParse("a/b/c"), "read"))
	assert.Equal(t, 1, tr.Len())
}

func TestRemoveRecursiveTerminal(t *testing.T) {
	tr := New[string]()
	tr.Insert(pathmatch.MustParse("a/**"), "read", "deep")
	tr.Insert(pathmatch.MustParse("a"), "read", "exact")

	require.True(t, tr.Remove(pathmatch.MustParse("a/**"), "read"))
	assert.Equal(t, []string{"exact"}, tr.Candidates("a"))
	assert.Empty(t, tr.Candidates("a/b"))
}

func TestWalk(t *testing.T) {
	tr := New[string]()
	tr.Insert(pathmatch.MustParse("a/b"), "read", "one")
	tr.Insert(pathmatch.MustParse("a/*"), "read", "two")
	tr.Insert(pathmatch.MustParse("c/**"), "read", "three")

	var seen []string
	tr.Walk(func(v string) bool {
		seen = append(seen, v)
		return true
	})
	assert.ElementsMatch(t, []string{"one", "two", "three"}, seen)

	// Early termination.
	count := 0
	tr.Walk(func(string) bool {
		count++
		return false
	})
	assert.Equal(t, 1, count)
}
