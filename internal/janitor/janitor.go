package janitor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Pruner deletes terminal dispatch rows older than a cutoff.
type Pruner interface {
	PruneTerminal(ctx context.Context, olderThan time.Time) (int64, error)
}

// Service prunes terminal dispatch records on a cron schedule so the
// dispatch table stays a short observability window, not an archive.
type Service struct {
	cron     *cron.Cron
	pruner   Pruner
	schedule string
	retain   time.Duration
	logger   *slog.Logger
}

// NewService creates a janitor.
func NewService(log *slog.Logger, pruner Pruner, scheduleSpec string, retain time.Duration) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		cron:     cron.New(),
		pruner:   pruner,
		schedule: scheduleSpec,
		retain:   retain,
		logger:   log.With(slog.String("service", "janitor")),
	}
}

// Start schedules the prune job and launches the cron loop.
func (s *Service) Start() error {
	if _, err := s.cron.AddFunc(s.schedule, s.runOnce); err != nil {
		return fmt.Errorf("schedule prune job: %w", err)
	}
	s.cron.Start()
	return nil
}

// Stop halts the cron loop and waits for a running job to finish.
func (s *Service) Stop() {
	<-s.cron.Stop().Done()
}

func (s *Service) runOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	cutoff := time.Now().UTC().Add(-s.retain)
	pruned, err := s.pruner.PruneTerminal(ctx, cutoff)
	if err != nil {
		s.logger.Warn("prune dispatches failed", slog.String("error", err.Error()))
		return
	}
	if pruned > 0 {
		s.logger.Info("pruned dispatch records", slog.Int64("count", pruned))
	}
}
