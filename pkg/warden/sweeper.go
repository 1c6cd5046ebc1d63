package warden

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/gridkv/warden/pkg/async"
	"github.com/gridkv/warden/pkg/grants"
	"github.com/gridkv/warden/pkg/observability"
)

// sweepTimeout bounds a single background sweep, including any persistence
// round trips behind it.
const sweepTimeout = 5 * time.Minute

// Sweeper runs SweepExpired on a cron schedule. Sweeping is an optimization:
// matching already ignores expired grants, so a missed or slow sweep never
// changes a decision, it only delays reclaiming memory.
type Sweeper struct {
	service *Service
	cron    *cron.Cron
	epochFn func() grants.Epoch
	logger  *observability.Logger
}

// NewSweeper schedules periodic expired-grant sweeps on the service. epochFn
// supplies the current epoch at the moment each sweep fires; the engine has
// no clock of its own, so the embedding system decides what "now" means.
func NewSweeper(service *Service, schedule string, epochFn func() grants.Epoch, logger *observability.Logger) (*Sweeper, error) {
	if epochFn == nil {
		return nil, fmt.Errorf("epochFn is required")
	}
	if logger == nil {
		logger = service.logger
	}

	s := &Sweeper{
		service: service,
		cron:    cron.New(),
		epochFn: epochFn,
		logger:  logger,
	}
	if _, err := s.cron.AddFunc(schedule, s.run); err != nil {
		return nil, fmt.Errorf("invalid sweep schedule %q: %w", schedule, err)
	}
	return s, nil
}

// Start begins the schedule. It returns immediately; sweeps run on the cron
// goroutine.
func (s *Sweeper) Start() {
	s.cron.Start()
	s.logger.Info("expiry sweeper started")
}

// Stop halts the schedule and waits for an in-flight sweep to finish.
func (s *Sweeper) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("expiry sweeper stopped")
}

func (s *Sweeper) run() {
	now := s.epochFn()
	async.SafeGo(context.Background(), sweepTimeout, "expiry-sweep", s.logger, func(ctx context.Context) error {
		removed, err := s.service.SweepExpired(ctx, now)
		if err != nil {
			return err
		}
		if removed > 0 {
			s.logger.WithFields(map[string]interface{}{
				"removed": removed,
				"epoch":   uint64(now),
			}).Info("scheduled sweep removed expired grants")
		}
		return nil
	})
}
