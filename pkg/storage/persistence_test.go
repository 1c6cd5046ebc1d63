package storage

import (
	"context"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridkv/warden/pkg/grants"
	"github.com/gridkv/warden/pkg/pathmatch"
)

func record(principal, pattern string, level grants.AccessLevel, expires *grants.Epoch) grants.Grant {
	return grants.Grant{
		Principal: grants.Principal(principal),
		Pattern:   pathmatch.MustParse(pattern),
		Level:     level,
		GrantedAt: 1,
		ExpiresAt: expires,
	}
}

func sortGrants(gs []grants.Grant) {
	sort.Slice(gs, func(i, j int) bool { return gs[i].Key() < gs[j].Key() })
}

// testPersistence exercises the Persistence contract against any backend.
func testPersistence(t *testing.T, p Persistence) {
	t.Helper()
	ctx := context.Background()

	loaded, err := p.LoadAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, loaded)

	exp := grants.Epoch(99)
	roleGrant := record("bob", "profile/*", grants.Read, nil)
	roleGrant.Role = "viewer"
	seed := []grants.Grant{
		record("alice", "a/b/c", grants.Read, nil),
		record("alice", "a/b/c", grants.Write, &exp),
		record("alice", "a/**", grants.Read, nil),
		roleGrant,
	}
	require.NoError(t, p.SaveGrants(ctx, seed))

	loaded, err = p.LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 4)
	sortGrants(loaded)
	sortGrants(seed)
	for i := range seed {
		assert.Equal(t, seed[i].Key(), loaded[i].Key())
		assert.Equal(t, seed[i].Role, loaded[i].Role)
		if seed[i].ExpiresAt == nil {
			assert.Nil(t, loaded[i].ExpiresAt)
		} else {
			require.NotNil(t, loaded[i].ExpiresAt)
			assert.Equal(t, *seed[i].ExpiresAt, *loaded[i].ExpiresAt)
		}
	}

	// Upsert replaces in place.
	refreshed := record("alice", "a/b/c", grants.Write, nil)
	refreshed.GrantedAt = 5
	require.NoError(t, p.SaveGrants(ctx, []grants.Grant{refreshed}))
	loaded, err = p.LoadAll(ctx)
	require.NoError(t, err)
	assert.Len(t, loaded, 4)
	for _, g := range loaded {
		if g.Key() == refreshed.Key() {
			assert.Nil(t, g.ExpiresAt)
			assert.EqualValues(t, 5, g.GrantedAt)
		}
	}

	// Delete removes only the named keys for the named principal.
	require.NoError(t, p.DeleteGrants(ctx, "alice", []RecordKey{
		{Pattern: "a/b/c", Level: grants.Read},
		{Pattern: "never/stored", Level: grants.Read},
	}))
	loaded, err = p.LoadAll(ctx)
	require.NoError(t, err)
	assert.Len(t, loaded, 3)

	// Empty batches are no-ops.
	require.NoError(t, p.SaveGrants(ctx, nil))
	require.NoError(t, p.DeleteGrants(ctx, "alice", nil))
}

func TestMemoryPersistence(t *testing.T) {
	m := NewMemory()
	defer m.Close()
	testPersistence(t, m)
}

func TestKeys(t *testing.T) {
	ks := Keys([]grants.Grant{
		record("alice", "a/*", grants.Read, nil),
		record("alice", "b/**", grants.Write, nil),
	})
	assert.Equal(t, []RecordKey{
		{Pattern: "a/*", Level: grants.Read},
		{Pattern: "b/**", Level: grants.Write},
	}, ks)
}
