package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/SscSPs/transfer_backoffice/internal/core/domain"
	"github.com/robfig/cron/v3"
)

// SystemActor is the identity scheduled jobs act as.
var SystemActor = domain.Actor{UserID: "system", Role: domain.RoleAdmin, Name: "scheduler"}

// UsageResetter resets monthly card usage.
type UsageResetter interface {
	ResetUsage(ctx context.Context, country string, actor domain.Actor) (int64, error)
}

// Scheduler runs the periodic back-office jobs.
type Scheduler struct {
	cron    *cron.Cron
	cards   UsageResetter
	logger  *slog.Logger
	timeout time.Duration
}

// NewScheduler registers the monthly usage reset on resetSpec (standard 5-field cron, UTC).
func NewScheduler(cards UsageResetter, resetSpec string, logger *slog.Logger) (*Scheduler, error) {
	s := &Scheduler{
		cron:    cron.New(cron.WithLocation(time.UTC)),
		cards:   cards,
		logger:  logger,
		timeout: 5 * time.Minute,
	}
	if _, err := s.cron.AddFunc(resetSpec, func() { s.ResetUsage(context.Background()) }); err != nil {
		return nil, fmt.Errorf("invalid usage reset schedule %q: %w", resetSpec, err)
	}
	logger.Info("Monthly usage reset scheduled", slog.String("schedule", resetSpec))
	return s, nil
}

// ResetUsage is the job body: zero monthly usage on every card.
func (s *Scheduler) ResetUsage(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	n, err := s.cards.ResetUsage(ctx, "", SystemActor)
	if err != nil {
		s.logger.Error("Scheduled usage reset failed", slog.String("error", err.Error()))
		return
	}
	s.logger.Info("Scheduled usage reset done", slog.Int64("cards", n))
}

// Run starts the scheduler and blocks until ctx is done, then waits for running jobs.
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Info("Starting cron scheduler...")
	s.cron.Start()
	<-ctx.Done()
	s.logger.Info("Stopping cron scheduler...")
	<-s.cron.Stop().Done()
	s.logger.Info("Cron scheduler stopped")
	return nil
}

// IsRunning returns true if the scheduler has entries
func (s *Scheduler) IsRunning() bool {
	return len(s.cron.Entries()) > 0
}
