package audit

import (
	"time"

	"github.com/google/uuid"

	"github.com/gridkv/warden/pkg/grants"
)

// EventType represents the category of audit event
type EventType string

const (
	EventTypeGrant       EventType = "authz.grant"
	EventTypeRevoke      EventType = "authz.revoke"
	EventTypeRoleGrant   EventType = "authz.role_grant"
	EventTypeRoleRevoke  EventType = "authz.role_revoke"
	EventTypeExpirySweep EventType = "authz.expiry_sweep"
)

// Event is one audit record. Epoch carries the engine's logical time at the
// mutation; Timestamp is wall-clock capture for log correlation only.
type Event struct {
	ID        string             `json:"id"`
	Type      EventType          `json:"type"`
	Principal grants.Principal   `json:"principal"`
	Patterns  []string           `json:"patterns,omitempty"`
	Level     string             `json:"level,omitempty"`
	Role      string             `json:"role,omitempty"`
	Epoch     grants.Epoch       `json:"epoch"`
	Count     int                `json:"count,omitempty"`
	Timestamp time.Time          `json:"timestamp"`
}

// NewEvent constructs an event with a fresh ID and capture time.
func NewEvent(typ EventType, principal grants.Principal, epoch grants.Epoch) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      typ,
		Principal: principal,
		Epoch:     epoch,
		Timestamp: time.Now().UTC(),
	}
}
