package services

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

const pruneTimeout = 2 * time.Minute

// Pruner deletes expired analytics rows
type Pruner interface {
	Prune(ctx context.Context) (int64, error)
}

// RetentionScheduler runs the analytics pruner on a cron schedule
type RetentionScheduler struct {
	cron   *cron.Cron
	pruner Pruner
}

// NewRetentionScheduler parses schedule (standard five-field cron or a
// descriptor such as @daily) and registers the prune job.
func NewRetentionScheduler(pruner Pruner, schedule string) (*RetentionScheduler, error) {
	s := &RetentionScheduler{
		cron:   cron.New(),
		pruner: pruner,
	}

	if _, err := s.cron.AddFunc(schedule, s.RunOnce); err != nil {
		return nil, fmt.Errorf("invalid retention schedule %q: %w", schedule, err)
	}
	return s, nil
}

// Start starts the scheduler in its own goroutine
func (s *RetentionScheduler) Start() {
	s.cron.Start()
	log.Info().Int("jobs", len(s.cron.Entries())).Msg("retention scheduler started")
}

// Stop stops the scheduler. The returned context is done once a running
// prune completes.
func (s *RetentionScheduler) Stop() context.Context {
	return s.cron.Stop()
}

// RunOnce prunes immediately
func (s *RetentionScheduler) RunOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), pruneTimeout)
	defer cancel()

	if _, err := s.pruner.Prune(ctx); err != nil {
		log.Error().Err(err).Msg("redirect retention run failed")
	}
}
