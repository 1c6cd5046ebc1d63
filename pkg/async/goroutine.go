package async

import (
	"context"
	"runtime/debug"
	"time"

	"github.com/gridkv/warden/pkg/observability"
)

// SafeGo executes a function in a goroutine with context cancellation,
// panic recovery, timeout enforcement, and error logging.
//
// Use this instead of bare `go func()` for background work so a panicking
// sweep cannot take the embedding process down.
func SafeGo(parentCtx context.Context, timeout time.Duration, taskName string, logger *observability.Logger, fn func(context.Context) error) {
	go func() {
		ctx, cancel := context.WithTimeout(parentCtx, timeout)
		defer cancel()

		defer func() {
			if r := recover(); r != nil {
				logger.WithFields(map[string]interface{}{
					"task":  taskName,
					"panic": r,
					"stack": string(debug.Stack()),
				}).Error("panic in background task")
			}
		}()

		if err := fn(ctx); err != nil {
			// Background tasks are best-effort; the caller decides whether a
			// failure is fatal on the next scheduled run.
			logger.WithError(err).WithField("task", taskName).Error("background task failed")
		}
	}()
}
