package storage

import (
	"context"

	"github.com/gridkv/warden/pkg/grants"
)

// RecordKey identifies a grant record within one principal's records.
type RecordKey struct {
	Pattern string
	Level   grants.AccessLevel
}

// Persistence is the durable store behind the engine. All methods must be
// safe for concurrent use. The engine calls SaveGrants/DeleteGrants after
// applying a mutation in memory and LoadAll once at startup.
type Persistence interface {
	// SaveGrants inserts or replaces the given records.
	SaveGrants(ctx context.Context, records []grants.Grant) error

	// DeleteGrants removes the records with the given keys for the
	// principal. Missing keys are not an error.
	DeleteGrants(ctx context.Context, principal grants.Principal, keys []RecordKey) error

	// LoadAll returns every persisted record.
	LoadAll(ctx context.Context) ([]grants.Grant, error)

	// Close releases backend resources.
	Close() error
}

// Keys converts grant records to their persistence keys.
func Keys(records []grants.Grant) []RecordKey {
	out := make([]RecordKey, 0, len(records))
	for _, g := range records {
		out = append(out, RecordKey{Pattern: g.Pattern.String(), Level: g.Level})
	}
	return out
}
