package storage

import (
	"context"
	"sync"

	"github.com/gridkv/warden/pkg/grants"
)

// Memory is an in-process Persistence backend. Records do not survive the
// process; use it for tests and deployments where the surrounding platform
// replays grants at startup.
type Memory struct {
	mu      sync.RWMutex
	records map[string]grants.Grant
}

// NewMemory returns an empty in-memory backend.
func NewMemory() *Memory {
	return &Memory{records: make(map[string]grants.Grant)}
}

// SaveGrants implements Persistence.
func (m *Memory) SaveGrants(_ context.Context, records []grants.Grant) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, g := range records {
		m.records[g.Key()] = g
	}
	return nil
}

// DeleteGrants implements Persistence.
func (m *Memory) DeleteGrants(_ context.Context, principal grants.Principal, keys []RecordKey) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.records, string(principal)+"\x00"+k.Pattern+"\x00"+k.Level.String())
	}
	return nil
}

// LoadAll implements Persistence.
func (m *Memory) LoadAll(context.Context) ([]grants.Grant, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]grants.Grant, 0, len(m.records))
	for _, g := range m.records {
		out = append(out, g)
	}
	return out, nil
}

// Close implements Persistence.
func (m *Memory) Close() error { return nil }
