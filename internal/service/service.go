package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/marcel-krsh/usn/internal/alerting"
	"github.com/marcel-krsh/usn/internal/config"
	"github.com/marcel-krsh/usn/internal/scheduler"
	"github.com/marcel-krsh/usn/internal/storage"
	"github.com/marcel-krsh/usn/internal/treasury"
)

// Service orchestrates warmup sampling, balancing, persistence, and alerting.
type Service struct {
	scheduler *scheduler.Scheduler
	treasury  *treasury.Treasury
	samples   storage.RateSampleStore
	attempts  storage.AttemptStore
	notifier  alerting.Notifier
	logger    zerolog.Logger

	balancing config.BalancingConfig
	alertsOn  bool
	locker    storage.AdvisoryLocker
	lockKey   int64
}

// New constructs the treasury service.
func New(cfg *config.Config, sched *scheduler.Scheduler, tre *treasury.Treasury, samples storage.RateSampleStore, attempts storage.AttemptStore, notifier alerting.Notifier, logger zerolog.Logger) *Service {
	var locker storage.AdvisoryLocker
	if l, ok := samples.(storage.AdvisoryLocker); ok {
		locker = l
	}

	return &Service{
		scheduler: sched,
		treasury:  tre,
		samples:   samples,
		attempts:  attempts,
		notifier:  notifier,
		logger:    logger.With().Str("component", "service").Logger(),
		balancing: cfg.Balancing,
		alertsOn:  cfg.Alerting.Enabled,
		locker:    locker,
		lockKey:   cfg.Warmup.AdvisoryLockKey,
	}
}

// Run begins the aligned warmup loop.
func (s *Service) Run(ctx context.Context) error {
	if s.scheduler == nil {
		return fmt.Errorf("scheduler not configured")
	}
	return s.scheduler.Run(ctx, s.ProcessTick)
}

// ProcessTick runs one scheduled pass: cache a fresh rate sample and, once
// the cache is warm and balancing is enabled, run a balancing attempt.
func (s *Service) ProcessTick(ctx context.Context, tick time.Time) error {
	unlock, proceed, err := s.acquireLock(ctx)
	if err != nil {
		return err
	}
	if !proceed {
		s.logger.Debug().Time("tick", tick).Msg("skip tick because advisory lock held elsewhere")
		return nil
	}
	if unlock != nil {
		defer unlock()
	}

	return s.executeTick(ctx, tick)
}

func (s *Service) executeTick(ctx context.Context, tick time.Time) error {
	sample, err := s.treasury.Warmup(ctx)
	if err != nil {
		return fmt.Errorf("warmup: %w", err)
	}

	if s.samples != nil {
		record := storage.RateSampleRecord{
			ObservedAt: sample.At,
			Rate:       decimal.NewFromFloat(sample.Rate),
			CreatedAt:  time.Now().UTC(),
		}
		if err := s.samples.UpsertRateSample(ctx, record); err != nil {
			s.logger.Error().Err(err).Time("tick", tick).Msg("failed to persist rate sample")
		}
	}

	if !s.balancing.Enabled {
		return nil
	}
	if !s.treasury.Cache().Warm() {
		s.logger.Info().
			Int("samples", s.treasury.Cache().Len()).
			Msg("cache still warming up, skipping balancing pass")
		return nil
	}

	attempt, err := s.treasury.Balance(ctx, s.balanceRequest())
	s.recordAttempt(ctx, attempt, err)

	if err != nil {
		return fmt.Errorf("balance pool %d: %w", s.balancing.PoolID, err)
	}

	if s.alertsOn && s.notifier != nil && attempt.Action.Kind != treasury.DoNothing {
		note := alerting.Notification{
			AttemptID: attempt.ID,
			PoolID:    attempt.PoolID,
			Action:    attempt.Action.Verb(),
			Amount:    decimal.NewFromFloat(attempt.Action.Amount),
			Rate:      decimal.NewFromFloat(attempt.Rate),
			Executed:  attempt.Executed,
			At:        attempt.StartedAt,
		}
		if err := s.notifier.Notify(ctx, note); err != nil {
			s.logger.Error().Err(err).Time("tick", tick).Msg("failed to dispatch decision notification")
		}
	}

	return nil
}

func (s *Service) balanceRequest() treasury.BalanceRequest {
	req := treasury.BalanceRequest{
		PoolID:  s.balancing.PoolID,
		Execute: s.balancing.Execute,
	}
	if s.balancing.LimitMin != nil && s.balancing.LimitMax != nil {
		req.Limits = &treasury.LimitRange{
			Min: *s.balancing.LimitMin,
			Max: *s.balancing.LimitMax,
		}
	}
	return req
}

// recordAttempt persists the audit row. A nil attempt means the pass failed
// before a decision was made and leaves no row.
func (s *Service) recordAttempt(ctx context.Context, attempt *treasury.Attempt, balanceErr error) {
	if s.attempts == nil || attempt == nil {
		return
	}

	record := storage.AttemptRecord{
		ID:       attempt.ID,
		PoolID:   int64(attempt.PoolID),
		Action:   attempt.Action.Verb(),
		Amount:   decimal.NewFromFloat(attempt.Action.Amount),
		Rate:     decimal.NewFromFloat(attempt.Rate),
		Executed: attempt.Executed,
		Status:   attempt.State.String(),
	}
	if balanceErr != nil {
		msg := balanceErr.Error()
		record.Error = &msg
	}

	if err := s.attempts.InsertAttempt(ctx, record); err != nil {
		s.logger.Error().Err(err).Str("attempt", attempt.ID.String()).Msg("failed to persist attempt record")
	}
}

func (s *Service) acquireLock(ctx context.Context) (func(), bool, error) {
	if s.lockKey == 0 || s.locker == nil {
		return nil, true, nil
	}
	unlock, acquired, err := s.locker.TryAdvisoryLock(ctx, s.lockKey)
	if err != nil {
		return nil, false, fmt.Errorf("acquire advisory lock: %w", err)
	}
	if !acquired {
		return nil, false, nil
	}
	return unlock, true, nil
}
