// Package treasury holds the reserve-balancing core: the exchange-rate
// cache, the decision model, the reserve snapshot collector, and the
// orchestrator executing decisions against the chain.
package treasury

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/marcel-krsh/usn/internal/chain"
	"github.com/marcel-krsh/usn/internal/fixedpoint"
)

// ErrInvalidRange means a caller-supplied limit range has min above max. It
// is rejected before any external call is made.
var ErrInvalidRange = errors.New("treasury: limit range must be in [min, max] format")

// AttemptState tracks where a balancing attempt is in its lifecycle.
type AttemptState uint8

const (
	StateCollecting AttemptState = iota
	StateDeciding
	StateIdle
	StateExecuting
	StateDone
)

func (s AttemptState) String() string {
	switch s {
	case StateCollecting:
		return "collecting"
	case StateDeciding:
		return "deciding"
	case StateIdle:
		return "idle"
	case StateExecuting:
		return "executing"
	case StateDone:
		return "done"
	default:
		return "unknown"
	}
}

// Attempt carries the state of one balancing attempt. It is scoped to a
// single call and threaded by value through the orchestration steps;
// concurrent attempts never share one.
type Attempt struct {
	ID        uuid.UUID
	PoolID    uint64
	State     AttemptState
	Snapshot  ReserveSnapshot
	Rate      float64
	Action    Action
	Executed  bool
	StartedAt time.Time
}

// LimitRange bounds the randomly drawn per-attempt cap.
type LimitRange struct {
	Min float64
	Max float64
}

// BalanceRequest parameterises one balancing attempt.
type BalanceRequest struct {
	PoolID uint64
	// Limits, when set, caps the decision amount at a value drawn uniformly
	// from the range, making executed amounts less predictable to outside
	// observers.
	Limits *LimitRange
	// Execute runs the decision against the chain; otherwise the attempt
	// stops after logging the decision.
	Execute bool
}

// Treasury is the reserve-balancing service. The rate cache is its only
// shared mutable state; attempts may run concurrently and are not serialized
// against each other, so concurrent executions can race on the same external
// reserves.
type Treasury struct {
	cache     *RateCache
	collector *Collector
	executor  *Executor
	oracle    chain.RateOracle
	logger    zerolog.Logger
	now       func() time.Time
	randFloat func() float64
}

// New wires the treasury service.
func New(cache *RateCache, collector *Collector, executor *Executor, oracle chain.RateOracle, logger zerolog.Logger) *Treasury {
	return &Treasury{
		cache:     cache,
		collector: collector,
		executor:  executor,
		oracle:    oracle,
		logger:    logger.With().Str("component", "treasury").Logger(),
		now:       time.Now,
		randFloat: rand.Float64,
	}
}

// WithClock overrides the time source. Intended for tests.
func (t *Treasury) WithClock(now func() time.Time) *Treasury {
	t.now = now
	return t
}

// WithRand overrides the randomness source drawing the per-attempt limit.
// Intended for tests and for environments that supply their own entropy.
func (t *Treasury) WithRand(randFloat func() float64) *Treasury {
	t.randFloat = randFloat
	return t
}

// Cache exposes the rate cache for read-side consumers.
func (t *Treasury) Cache() *RateCache {
	return t.cache
}

// Warmup fetches one fresh oracle sample and appends it to the rate cache.
// It must run WarmupSamples times before balancing can decide.
func (t *Treasury) Warmup(ctx context.Context) (RateSample, error) {
	answer, decimals, err := t.oracle.LatestRate(ctx)
	if err != nil {
		return RateSample{}, fmt.Errorf("fetch oracle rate: %w", err)
	}

	sample := RateSample{
		At:   t.now(),
		Rate: fixedpoint.ScaleRate(answer, decimals),
	}
	t.cache.Append(sample.At, sample.Rate)

	t.logger.Info().
		Float64("rate", sample.Rate).
		Int("samples", t.cache.Len()).
		Msg("exchange rate sample cached")

	return sample, nil
}

// Balance runs one balancing attempt: collect the reserve snapshot, decide,
// and, when requested, execute. The decision is always logged. Precondition
// failures (cold cache, malformed pool, bad limit range) abort before any
// side effect; execution failures stop the step chain without rollback.
func (t *Treasury) Balance(ctx context.Context, req BalanceRequest) (*Attempt, error) {
	limit, err := t.drawLimit(req.Limits)
	if err != nil {
		return nil, err
	}

	if !t.cache.Warm() {
		return nil, fmt.Errorf("use warmup: %w", ErrNotWarmedUp)
	}

	attempt := &Attempt{
		ID:        uuid.New(),
		PoolID:    req.PoolID,
		State:     StateCollecting,
		StartedAt: t.now(),
	}
	logger := t.logger.With().Str("attempt", attempt.ID.String()).Uint64("pool", req.PoolID).Logger()

	snapshot, info, err := t.collector.Collect(ctx, req.PoolID)
	if err != nil {
		return nil, fmt.Errorf("collect reserve snapshot: %w", err)
	}
	attempt.Snapshot = snapshot

	times, rates, err := t.cache.Collect(attempt.StartedAt)
	if err != nil {
		return nil, err
	}
	attempt.Rate = rates[len(rates)-1]

	attempt.State = StateDeciding
	action, err := Decide(rates, times, snapshot.NativeReserve, snapshot.CirculatingStable, snapshot.SecondaryReserve, limit)
	if err != nil {
		return nil, err
	}
	attempt.Action = action

	logger.Info().Msg(action.String())

	if !req.Execute {
		logger.Info().Msg("Execution bypassed")
		attempt.State = StateIdle
		return attempt, nil
	}

	attempt.State = StateExecuting
	execErr := t.executor.Execute(ctx, attempt, info)
	attempt.Executed = execErr == nil && action.Kind != DoNothing
	attempt.State = StateDone

	if execErr != nil {
		return attempt, fmt.Errorf("execute %s: %w", action.Verb(), execErr)
	}
	return attempt, nil
}

// drawLimit validates the range and draws the per-attempt cap.
func (t *Treasury) drawLimit(limits *LimitRange) (*float64, error) {
	if limits == nil {
		return nil, nil
	}
	if limits.Min > limits.Max {
		return nil, ErrInvalidRange
	}
	drawn := limits.Min + t.randFloat()*(limits.Max-limits.Min)
	return &drawn, nil
}
