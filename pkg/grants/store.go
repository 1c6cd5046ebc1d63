package grants

import (
	"context"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/gridkv/warden/pkg/pathmatch"
	"github.com/gridkv/warden/pkg/trie"
)

// Store owns the canonical grant records for all principals. See the package
// documentation for the locking model.
type Store struct {
	mu         sync.RWMutex
	principals map[Principal]*principalState
}

// principalState is one principal's shard: the record map keyed by
// (pattern, level), and the trie indexing the same records by pattern.
type principalState struct {
	mu    sync.RWMutex
	byKey map[string]*Grant
	index *trie.Trie[*Grant]
}

func newPrincipalState() *principalState {
	return &principalState{
		byKey: make(map[string]*Grant),
		index: trie.New[*Grant](),
	}
}

// recordKey distinguishes records within one principal's shard.
func recordKey(pattern pathmatch.Pattern, level AccessLevel) string {
	return pattern.String() + "\x00" + level.String()
}

// NewStore returns an empty grant store.
func NewStore() *Store {
	return &Store{principals: make(map[Principal]*principalState)}
}

// state returns the principal's shard, creating it when create is set.
func (s *Store) state(p Principal, create bool) *principalState {
	s.mu.RLock()
	ps := s.principals[p]
	s.mu.RUnlock()
	if ps != nil || !create {
		return ps
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if ps = s.principals[p]; ps == nil {
		ps = newPrincipalState()
		s.principals[p] = ps
	}
	return ps
}

// UpsertBatch inserts or replaces all records in a single critical section
// for the principal, so concurrent readers observe either none or all of a
// multi-pattern grant call. All records must belong to the given principal.
func (s *Store) UpsertBatch(p Principal, records []Grant) {
	if len(records) == 0 {
		return
	}
	ps := s.state(p, true)

	ps.mu.Lock()
	defer ps.mu.Unlock()
	for i := range records {
		g := records[i]
		key := recordKey(g.Pattern, g.Level)
		if prev, ok := ps.byKey[key]; ok {
			ps.index.Remove(prev.Pattern, prev.Level.String())
		}
		ps.byKey[key] = &g
		ps.index.Insert(g.Pattern, g.Level.String(), &g)
	}
}

// DeleteBatch removes the records for the given patterns at the given level
// in a single critical section. Missing records are skipped; the count of
// records actually removed is returned.
func (s *Store) DeleteBatch(p Principal, patterns []pathmatch.Pattern, level AccessLevel) int {
	ps := s.state(p, false)
	if ps == nil {
		return 0
	}

	ps.mu.Lock()
	defer ps.mu.Unlock()
	removed := 0
	for _, pat := range patterns {
		key := recordKey(pat, level)
		if _, ok := ps.byKey[key]; !ok {
			continue
		}
		delete(ps.byKey, key)
		ps.index.Remove(pat, level.String())
		removed++
	}
	return removed
}

// DeleteRole removes every record for the principal still tagged with the
// named role, returning the removed records. Records whose tag was since
// overwritten by a direct grant are left alone.
func (s *Store) DeleteRole(p Principal, role string) []Grant {
	ps := s.state(p, false)
	if ps == nil {
		return nil
	}

	ps.mu.Lock()
	defer ps.mu.Unlock()
	var removed []Grant
	for key, g := range ps.byKey {
		if g.Role != role {
			continue
		}
		delete(ps.byKey, key)
		ps.index.Remove(g.Pattern, g.Level.String())
		removed = append(removed, *g)
	}
	return removed
}

// Candidates returns copies of every record whose pattern could match the
// concrete path, including expired records; the caller filters by epoch and
// re-verifies the match.
func (s *Store) Candidates(p Principal, path string) []Grant {
	ps := s.state(p, false)
	if ps == nil {
		return nil
	}

	ps.mu.RLock()
	defer ps.mu.RUnlock()
	refs := ps.index.Candidates(path)
	out := make([]Grant, 0, len(refs))
	for _, g := range refs {
		out = append(out, *g)
	}
	return out
}

// Snapshot returns copies of all records for the principal, taken in one
// critical section. Batch evaluation uses this as its shared candidate set.
func (s *Store) Snapshot(p Principal) []Grant {
	ps := s.state(p, false)
	if ps == nil {
		return nil
	}

	ps.mu.RLock()
	defer ps.mu.RUnlock()
	out := make([]Grant, 0, len(ps.byKey))
	for _, g := range ps.byKey {
		out = append(out, *g)
	}
	return out
}

// All returns copies of every record in the store. Used to seed durable
// persistence and by tests; not on the decision path.
func (s *Store) All() []Grant {
	s.mu.RLock()
	states := make([]*principalState, 0, len(s.principals))
	for _, ps := range s.principals {
		states = append(states, ps)
	}
	s.mu.RUnlock()

	var out []Grant
	for _, ps := range states {
		ps.mu.RLock()
		for _, g := range ps.byKey {
			out = append(out, *g)
		}
		ps.mu.RUnlock()
	}
	return out
}

// Len returns the total number of records across all principals.
func (s *Store) Len() int {
	s.mu.RLock()
	states := make([]*principalState, 0, len(s.principals))
	for _, ps := range s.principals {
		states = append(states, ps)
	}
	s.mu.RUnlock()

	n := 0
	for _, ps := range states {
		ps.mu.RLock()
		n += len(ps.byKey)
		ps.mu.RUnlock()
	}
	return n
}

// SweepExpired removes every record dead at the given epoch and returns the
// removed records grouped by principal. Principals are swept concurrently;
// expiry is also enforced lazily on the read path, so the sweep is purely a
// space reclamation.
func (s *Store) SweepExpired(ctx context.Context, now Epoch) map[Principal][]Grant {
	s.mu.RLock()
	shards := make(map[Principal]*principalState, len(s.principals))
	for p, ps := range s.principals {
		shards[p] = ps
	}
	s.mu.RUnlock()

	var (
		outMu sync.Mutex
		out   = make(map[Principal][]Grant)
	)

	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for p, ps := range shards {
		p, ps := p, ps
		g.Go(func() error {
			removed := ps.sweep(now)
			if len(removed) == 0 {
				return nil
			}
			outMu.Lock()
			out[p] = removed
			outMu.Unlock()
			return nil
		})
	}
	_ = g.Wait() // workers never return errors

	return out
}

func (ps *principalState) sweep(now Epoch) []Grant {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	var removed []Grant
	for key, g := range ps.byKey {
		if !g.Expired(now) {
			continue
		}
		delete(ps.byKey, key)
		ps.index.Remove(g.Pattern, g.Level.String())
		removed = append(removed, *g)
	}
	return removed
}
