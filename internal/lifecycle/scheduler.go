package lifecycle

import (
	"context"
	"fmt"
	"time"

	"franchisee-hub/internal/common/logger"

	"github.com/robfig/cron/v3"
)

// Scheduler runs Reconcile on a cron schedule. Overlapping runs are
// skipped rather than queued.
type Scheduler struct {
	cron    *cron.Cron
	wf      *Workflow
	logger  logger.Logger
	timeout time.Duration
}

// NewScheduler accepts standard five-field specs and descriptors such as
// "@every 15m".
func NewScheduler(wf *Workflow, schedule string, log logger.Logger) (*Scheduler, error) {
	s := &Scheduler{
		wf:      wf,
		logger:  log.WithFields(map[string]interface{}{"component": "reconcile"}),
		timeout: 5 * time.Minute,
	}
	s.cron = cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))

	if _, err := s.cron.AddFunc(schedule, s.run); err != nil {
		return nil, fmt.Errorf("invalid reconcile schedule %q: %w", schedule, err)
	}
	return s, nil
}

func (s *Scheduler) run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	if _, err := s.wf.Reconcile(ctx); err != nil {
		s.logger.Error("scheduled reconcile failed", map[string]interface{}{"error": err})
	}
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("reconcile scheduler started", map[string]interface{}{"entries": len(s.cron.Entries())})
}

// Stop waits for a running reconcile to finish or ctx to end.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop().Done()
	select {
	case <-done:
	case <-ctx.Done():
		s.logger.Warn("reconcile still running at shutdown", nil)
	}
}
