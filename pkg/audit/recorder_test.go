package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridkv/warden/pkg/observability"
)

func TestNewEvent(t *testing.T) {
	e := NewEvent(EventTypeGrant, "alice", 42)

	assert.NotEmpty(t, e.ID)
	assert.Equal(t, EventTypeGrant, e.Type)
	assert.EqualValues(t, 42, e.Epoch)
	assert.False(t, e.Timestamp.IsZero())

	// IDs are unique per event.
	assert.NotEqual(t, e.ID, NewEvent(EventTypeGrant, "alice", 42).ID)
}

func TestLogRecorder(t *testing.T) {
	var buf bytes.Buffer
	rec := NewLogRecorder(observability.NewLogger(observability.InfoLevel, &buf))

	e := NewEvent(EventTypeRoleGrant, "bob", 7)
	e.Role = "viewer"
	e.Patterns = []string{"profile/*"}
	e.Level = "read"
	require.NoError(t, rec.Record(context.Background(), e))

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "authz.role_grant", line["type"])
	assert.Equal(t, "bob", line["principal"])
	assert.Equal(t, "viewer", line["role"])
	assert.Equal(t, "read", line["level"])
	assert.Equal(t, e.ID, line["audit_id"])
}

func TestMemoryRecorder(t *testing.T) {
	rec := NewMemoryRecorder()
	require.NoError(t, rec.Record(context.Background(), NewEvent(EventTypeGrant, "alice", 1)))
	require.NoError(t, rec.Record(context.Background(), NewEvent(EventTypeRevoke, "alice", 2)))

	events := rec.Events()
	require.Len(t, events, 2)
	assert.Equal(t, EventTypeGrant, events[0].Type)
	assert.Equal(t, EventTypeRevoke, events[1].Type)

	// The returned slice is a copy.
	events[0].Type = EventTypeRoleRevoke
	assert.Equal(t, EventTypeGrant, rec.Events()[0].Type)
}

func TestNopRecorder(t *testing.T) {
	assert.NoError(t, NopRecorder{}.Record(context.Background(), Event{}))
}
