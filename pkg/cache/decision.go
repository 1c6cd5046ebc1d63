package cache

import (
	"sync"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/gridkv/warden/pkg/grants"
)

const (
	// DefaultTTL is the staleness window in epochs.
	DefaultTTL grants.Epoch = 100
	// DefaultMaxEntriesPerPrincipal bounds each principal's LRU.
	DefaultMaxEntriesPerPrincipal = 4096
)

// Config tunes the decision cache.
type Config struct {
	// TTL is the staleness window in epochs; an entry cached at epoch c is
	// dead once now-c >= TTL. Zero means DefaultTTL.
	TTL grants.Epoch
	// MaxEntriesPerPrincipal bounds each principal's LRU. Zero means
	// DefaultMaxEntriesPerPrincipal.
	MaxEntriesPerPrincipal int
}

func (c Config) withDefaults() Config {
	if c.TTL == 0 {
		c.TTL = DefaultTTL
	}
	if c.MaxEntriesPerPrincipal <= 0 {
		c.MaxEntriesPerPrincipal = DefaultMaxEntriesPerPrincipal
	}
	return c
}

type entry struct {
	decision bool
	cachedAt grants.Epoch
}

// shard holds one principal's cached decisions plus an invalidation
// generation. A decision computed from the grant store is only admitted by
// Put while the generation it observed at probe time is still current, so a
// mutation that lands between a reader's store lookup and its cache write
// can never be papered over by a stale entry. Shards stay in the map after
// invalidation: the generation has to outlive the entries it guards.
type shard struct {
	mu      sync.Mutex
	gen     uint64
	entries *lru.Cache[string, entry]
}

// DecisionCache memoizes permission decisions per principal.
type DecisionCache struct {
	cfg Config

	mu         sync.RWMutex
	principals map[grants.Principal]*shard

	hits   atomic.Int64
	misses atomic.Int64
}

// New returns a decision cache with the given configuration.
func New(cfg Config) *DecisionCache {
	return &DecisionCache{
		cfg:        cfg.withDefaults(),
		principals: make(map[grants.Principal]*shard),
	}
}

func decisionKey(path string, level grants.AccessLevel) string {
	return path + "\x00" + level.String()
}

func (c *DecisionCache) shardFor(p grants.Principal) *shard {
	c.mu.RLock()
	s := c.principals[p]
	c.mu.RUnlock()
	if s != nil {
		return s
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if s = c.principals[p]; s == nil {
		// Size is validated in withDefaults, so construction cannot fail.
		entries, _ := lru.New[string, entry](c.cfg.MaxEntriesPerPrincipal)
		s = &shard{entries: entries}
		c.principals[p] = s
	}
	return s
}

// Get returns the cached decision, if present and younger than the TTL. The
// returned generation is the principal's invalidation generation observed at
// probe time; a caller that misses, recomputes from the grant store, and
// calls Put must pass it back so an invalidation that raced the recompute is
// detected.
func (c *DecisionCache) Get(p grants.Principal, path string, level grants.AccessLevel, now grants.Epoch) (decision bool, gen uint64, ok bool) {
	c.mu.RLock()
	s := c.principals[p]
	c.mu.RUnlock()
	if s == nil {
		c.misses.Add(1)
		return false, 0, false
	}

	s.mu.Lock()
	gen = s.gen
	e, found := s.entries.Get(decisionKey(path, level))
	s.mu.Unlock()

	if !found || now-e.cachedAt >= c.cfg.TTL {
		c.misses.Add(1)
		return false, gen, false
	}
	c.hits.Add(1)
	return e.decision, gen, true
}

// Put records a decision computed at the given epoch against the generation
// observed by the preceding Get. The entry is silently discarded when the
// principal was invalidated in between: the decision may describe grants
// that no longer exist.
func (c *DecisionCache) Put(p grants.Principal, path string, level grants.AccessLevel, decision bool, now grants.Epoch, gen uint64) {
	s := c.shardFor(p)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen {
		return
	}
	s.entries.Add(decisionKey(path, level), entry{decision: decision, cachedAt: now})
}

// InvalidatePrincipal drops every cached decision for the principal and
// advances its generation, fencing off in-flight Puts that were computed
// before the mutation. Called after any grant mutation that could affect
// the principal's outcomes.
func (c *DecisionCache) InvalidatePrincipal(p grants.Principal) {
	s := c.shardFor(p)

	s.mu.Lock()
	s.gen++
	s.entries.Purge()
	s.mu.Unlock()
}

// Purge drops all entries for all principals. Generations advance so the
// purge fences in-flight Puts the same way per-principal invalidation does.
func (c *DecisionCache) Purge() {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, s := range c.principals {
		s.mu.Lock()
		s.gen++
		s.entries.Purge()
		s.mu.Unlock()
	}
}

// Stats reports cumulative hit/miss counts and the current entry count.
type Stats struct {
	Hits    int64
	Misses  int64
	Entries int
}

// Stats returns a snapshot of cache statistics.
func (c *DecisionCache) Stats() Stats {
	c.mu.RLock()
	entries := 0
	for _, s := range c.principals {
		entries += s.entries.Len()
	}
	c.mu.RUnlock()

	return Stats{
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
		Entries: entries,
	}
}
