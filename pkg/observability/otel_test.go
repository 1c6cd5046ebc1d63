package observability

import (
	"bytes"
	"context"
	"testing"
)

func TestInitOTelDisabled(t *testing.T) {
	logger := NewLogger(ErrorLevel, &bytes.Buffer{})

	o, err := InitOTel(context.Background(), OTelConfig{Enabled: false}, logger)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if o != nil {
		t.Fatal("expected nil providers when disabled")
	}
	// Shutdown on the nil result must be a safe no-op.
	if err := o.Shutdown(context.Background()); err != nil {
		t.Fatalf("unexpected shutdown error: %v", err)
	}
}

func TestWithTraceContextNoSpan(t *testing.T) {
	logger := NewLogger(ErrorLevel, &bytes.Buffer{})

	if got := WithTraceContext(context.Background(), logger); got != logger {
		t.Fatal("expected the logger back unchanged without an active span")
	}
}
