package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"

	"github.com/miradorstack/mirador-intel/internal/cache"
	"github.com/miradorstack/mirador-intel/internal/utils"
)

// SnoozePruner is the part of the learning engine the sweeper drives.
type SnoozePruner interface {
	ListUserIDs(ctx context.Context) ([]string, error)
	PruneExpiredSnoozes(ctx context.Context, userID string) (int, error)
}

// SnoozeSweeper periodically removes expired snoozes from every stored
// profile. When several replicas share a Valkey cache only one of them
// sweeps per interval.
type SnoozeSweeper struct {
	scheduler  gocron.Scheduler
	pruner     SnoozePruner
	locks      cache.Provider
	interval   time.Duration
	instanceID string
	clock      utils.Clock
	logger     *slog.Logger
}

// NewSnoozeSweeper builds a sweeper. locks may be nil for a single replica.
func NewSnoozeSweeper(pruner SnoozePruner, locks cache.Provider, interval time.Duration, clock utils.Clock, logger *slog.Logger) (*SnoozeSweeper, error) {
	if pruner == nil {
		return nil, errors.New("snooze sweeper requires a pruner")
	}
	if interval <= 0 {
		return nil, errors.New("snooze sweep interval must be positive")
	}
	if locks == nil {
		locks = cache.NoopProvider{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	scheduler, err := gocron.NewScheduler(gocron.WithLocation(time.UTC))
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}
	return &SnoozeSweeper{
		scheduler:  scheduler,
		pruner:     pruner,
		locks:      locks,
		interval:   interval,
		instanceID: uuid.New().String(),
		clock:      utils.ClockOrSystem(clock),
		logger:     logger,
	}, nil
}

// Start registers the sweep job and starts the scheduler.
func (s *SnoozeSweeper) Start(ctx context.Context) error {
	_, err := s.scheduler.NewJob(
		gocron.DurationJob(s.interval),
		gocron.NewTask(func() {
			s.Sweep(ctx)
		}),
		gocron.WithName("snooze-sweeper"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("register snooze sweep: %w", err)
	}
	s.scheduler.Start()
	s.logger.Info("snooze sweeper started", slog.Duration("interval", s.interval))
	return nil
}

// Stop shuts the scheduler down.
func (s *SnoozeSweeper) Stop() error {
	return s.scheduler.Shutdown()
}

// Sweep prunes every profile once and returns the number of snoozes removed.
func (s *SnoozeSweeper) Sweep(ctx context.Context) int {
	window := s.clock.Now().UnixNano() / int64(s.interval)
	lockKey := fmt.Sprintf("mirador-intel:snooze-sweep:%d", window)
	acquired, err := s.locks.SetNX(ctx, lockKey, []byte(s.instanceID), s.interval)
	if err != nil {
		s.logger.Warn("snooze sweep lock failed", slog.Any("error", err))
		return 0
	}
	if !acquired {
		s.logger.Debug("snooze sweep handled by another instance")
		return 0
	}

	users, err := s.pruner.ListUserIDs(ctx)
	if err != nil {
		s.logger.Error("snooze sweep list failed", slog.Any("error", err))
		return 0
	}
	total := 0
	for _, userID := range users {
		removed, err := s.pruner.PruneExpiredSnoozes(ctx, userID)
		if err != nil {
			s.logger.Warn("snooze prune failed", slog.String("user_id", userID), slog.Any("error", err))
			continue
		}
		total += removed
	}
	if total > 0 {
		s.logger.Info("expired snoozes pruned", slog.Int("removed", total), slog.Int("profiles", len(users)))
	}
	return total
}
