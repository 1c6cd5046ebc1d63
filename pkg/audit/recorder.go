package audit

import (
	"context"
	"sync"

	"github.com/gridkv/warden/pkg/observability"
)

// Recorder is the interface for audit recording. Implementations must be
// safe for concurrent use; Record is called while no engine locks are held.
type Recorder interface {
	Record(ctx context.Context, event Event) error
}

// LogRecorder writes audit events as structured log lines.
type LogRecorder struct {
	logger *observability.Logger
}

// NewLogRecorder returns a recorder writing through the given logger.
func NewLogRecorder(logger *observability.Logger) *LogRecorder {
	return &LogRecorder{logger: logger}
}

// Record implements Recorder.
func (r *LogRecorder) Record(_ context.Context, event Event) error {
	fields := map[string]interface{}{
		"audit_id":  event.ID,
		"type":      string(event.Type),
		"principal": string(event.Principal),
		"epoch":     uint64(event.Epoch),
	}
	if len(event.Patterns) > 0 {
		fields["patterns"] = event.Patterns
	}
	if event.Level != "" {
		fields["level"] = event.Level
	}
	if event.Role != "" {
		fields["role"] = event.Role
	}
	if event.Count > 0 {
		fields["count"] = event.Count
	}

	r.logger.WithFields(fields).Info("audit event")
	return nil
}

// MemoryRecorder keeps events in memory, newest last. Intended for tests.
type MemoryRecorder struct {
	mu     sync.Mutex
	events []Event
}

// NewMemoryRecorder returns an empty in-memory recorder.
func NewMemoryRecorder() *MemoryRecorder {
	return &MemoryRecorder{}
}

// Record implements Recorder.
func (r *MemoryRecorder) Record(_ context.Context, event Event) error {
	r.mu.Lock()
	r.events = append(r.events, event)
	r.mu.Unlock()
	return nil
}

// Events returns a copy of all recorded events.
func (r *MemoryRecorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// NopRecorder discards all events.
type NopRecorder struct{}

// Record implements Recorder.
func (NopRecorder) Record(context.Context, Event) error { return nil }
