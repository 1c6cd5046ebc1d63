package async

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gridkv/warden/pkg/observability"
)

// syncWriter lets the test read log output written from another goroutine.
type syncWriter struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (w *syncWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.buf.Write(p)
}

func (w *syncWriter) String() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.buf.String()
}

func TestSafeGoRunsFunction(t *testing.T) {
	done := make(chan struct{})
	logger := observability.NewLogger(observability.ErrorLevel, &syncWriter{})

	SafeGo(context.Background(), time.Second, "test task", logger, func(ctx context.Context) error {
		close(done)
		return nil
	})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("function never ran")
	}
}

func TestSafeGoRecoversPanic(t *testing.T) {
	out := &syncWriter{}
	logger := observability.NewLogger(observability.ErrorLevel, out)
	ran := make(chan struct{})

	SafeGo(context.Background(), time.Second, "panicking task", logger, func(ctx context.Context) error {
		defer close(ran)
		panic("boom")
	})

	<-ran
	deadline := time.After(2 * time.Second)
	for !strings.Contains(out.String(), "panic in background task") {
		select {
		case <-deadline:
			t.Fatalf("panic was not logged: %q", out.String())
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestSafeGoLogsError(t *testing.T) {
	out := &syncWriter{}
	logger := observability.NewLogger(observability.ErrorLevel, out)
	ran := make(chan struct{})

	SafeGo(context.Background(), time.Second, "failing task", logger, func(ctx context.Context) error {
		defer close(ran)
		return errors.New("sweep failed")
	})

	<-ran
	deadline := time.After(2 * time.Second)
	for !strings.Contains(out.String(), "sweep failed") {
		select {
		case <-deadline:
			t.Fatalf("error was not logged: %q", out.String())
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestSafeGoHonorsTimeout(t *testing.T) {
	expired := make(chan struct{})
	logger := observability.NewLogger(observability.ErrorLevel, &syncWriter{})

	SafeGo(context.Background(), 10*time.Millisecond, "slow task", logger, func(ctx context.Context) error {
		<-ctx.Done()
		close(expired)
		return nil
	})

	select {
	case <-expired:
	case <-time.After(2 * time.Second):
		t.Fatal("context never expired")
	}
}
