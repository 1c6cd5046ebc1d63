package trie

import (
	"github.com/gridkv/warden/pkg/pathmatch"
)

// Trie indexes values by grant pattern. Values at the same pattern are
// distinguished by a caller-supplied subkey (the grant store keys by access
// level). Trie is not safe for concurrent use; the owning store provides
// locking.
type Trie[V any] struct {
	root *node[V]
	size int
}

type node[V any] struct {
	children map[string]*node[V]
	wildcard *node[V]

	// exact holds values whose pattern ends exactly at this node; recursive
	// holds values whose pattern ends in "**" rooted here.
	exact     map[string]V
	recursive map[string]V
}

func newNode[V any]() *node[V] {
	return &node[V]{}
}

// New returns an empty trie.
func New[V any]() *Trie[V] {
	return &Trie[V]{root: newNode[V]()}
}

// Len returns the number of stored values.
func (t *Trie[V]) Len() int {
	return t.size
}

// prefix returns the pattern segments up to but excluding a trailing "**".
func prefix(p pathmatch.Pattern) []string {
	segs := p.Segments()
	if p.Recursive() {
		return segs[:len(segs)-1]
	}
	return segs
}

// Insert stores v under (pattern, subkey), replacing any previous value for
// that pair. O(pattern length).
func (t *Trie[V]) Insert(p pathmatch.Pattern, subkey string, v V) {
	n := t.root
	for _, seg := range prefix(p) {
		if seg == pathmatch.Wildcard {
			if n.wildcard == nil {
				n.wildcard = newNode[V]()
			}
			n = n.wildcard
			continue
		}
		if n.children == nil {
			n.children = make(map[string]*node[V])
		}
		child, ok := n.children[seg]
		if !ok {
			child = newNode[V]()
			n.children[seg] = child
		}
		n = child
	}

	slot := &n.exact
	if p.Recursive() {
		slot = &n.recursive
	}
	if *slot == nil {
		*slot = make(map[string]V)
	}
	if _, exists := (*slot)[subkey]; !exists {
		t.size++
	}
	(*slot)[subkey] = v
}

// Remove deletes the value stored under (pattern, subkey) and prunes any
// branch left empty. Reports whether a value was removed. O(pattern length).
func (t *Trie[V]) Remove(p pathmatch.Pattern, subkey string) bool {
	removed := t.remove(t.root, prefix(p), p.Recursive(), subkey)
	if removed {
		t.size--
	}
	return removed
}

func (t *Trie[V]) remove(n *node[V], segs []string, recursive bool, subkey string) bool {
	if len(segs) == 0 {
		slot := n.exact
		if recursive {
			slot = n.recursive
		}
		if _, ok := slot[subkey]; !ok {
			return false
		}
		delete(slot, subkey)
		return true
	}

	seg := segs[0]
	var child *node[V]
	if seg == pathmatch.Wildcard {
		child = n.wildcard
	} else {
		child = n.children[seg]
	}
	if child == nil {
		return false
	}

	if !t.remove(child, segs[1:], recursive, subkey) {
		return false
	}

	if child.empty() {
		if seg == pathmatch.Wildcard {
			n.wildcard = nil
		} else {
			delete(n.children, seg)
		}
	}
	return true
}

func (n *node[V]) empty() bool {
	return len(n.children) == 0 && n.wildcard == nil &&
		len(n.exact) == 0 && len(n.recursive) == 0
}

// Candidates returns every stored value whose pattern could match the
// concrete path. The literal and wildcard edges are both followed at each
// depth, and recursive terminals are collected at every visited node since
// "**" covers any number of remaining segments, including zero.
func (t *Trie[V]) Candidates(path string) []V {
	segments := pathmatch.SplitPath(path)

	var out []V
	frontier := []*node[V]{t.root}

	for _, seg := range segments {
		next := frontier[:0:0]
		for _, n := range frontier {
			for _, v := range n.recursive {
				out = append(out, v)
			}
			if child, ok := n.children[seg]; ok {
				next = append(next, child)
			}
			if n.wildcard != nil {
				next = append(next, n.wildcard)
			}
		}
		if len(next) == 0 {
			return out
		}
		frontier = next
	}

	for _, n := range frontier {
		for _, v := range n.recursive {
			out = append(out, v)
		}
		for _, v := range n.exact {
			out = append(out, v)
		}
	}
	return out
}

// Walk calls fn for every stored value until fn returns false.
func (t *Trie[V]) Walk(fn func(v V) bool) {
	t.walk(t.root, fn)
}

func (t *Trie[V]) walk(n *node[V], fn func(v V) bool) bool {
	for _, v := range n.exact {
		if !fn(v) {
			return false
		}
	}
	for _, v := range n.recursive {
		if !fn(v) {
			return false
		}
	}
	for _, child := range n.children {
		if !t.walk(child, fn) {
			return false
		}
	}
	if n.wildcard != nil {
		return t.walk(n.wildcard, fn)
	}
	return true
}
