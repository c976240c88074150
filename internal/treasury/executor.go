package treasury

import (
	"context"
	"fmt"
	"math/big"

	"github.com/rs/zerolog"

	"github.com/marcel-krsh/usn/internal/chain"
	"github.com/marcel-krsh/usn/internal/fixedpoint"
)

// maxBurnShares places no upper bound on the shares a removal may burn.
// TODO: cap this once share pricing is wired into the snapshot.
var maxBurnShares = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

// ExecutorConfig fixes the execution parameters that do not vary per attempt.
type ExecutorConfig struct {
	// SwapPoolID is the pool used for wrapped/secondary swaps, distinct from
	// the stablecoin pool being balanced.
	SwapPoolID uint64
	// Slippage scales the naive expected swap output into the minimum
	// acceptable output. 0.5 tolerates heavy price movement between the
	// dry-run and execution.
	Slippage float64
	// NativeDecimals is the precision of the native coin and its wrapped form.
	NativeDecimals uint8
}

// Executor drives the chain of external calls realizing a Buy or Sell. Steps
// run strictly in order; a failed step halts the remainder of the plan and
// nothing that already completed is rolled back. Funds may be left where the
// last successful step put them.
type Executor struct {
	pool    chain.AMMPool
	wrapped chain.WrappedNative
	ledger  chain.Ledger
	cfg     ExecutorConfig
	logger  zerolog.Logger
}

// NewExecutor wires the execution orchestrator.
func NewExecutor(pool chain.AMMPool, wrapped chain.WrappedNative, ledger chain.Ledger, cfg ExecutorConfig, logger zerolog.Logger) *Executor {
	if cfg.Slippage <= 0 || cfg.Slippage > 1 {
		cfg.Slippage = 0.5
	}
	return &Executor{
		pool:    pool,
		wrapped: wrapped,
		ledger:  ledger,
		cfg:     cfg,
		logger:  logger.With().Str("component", "executor").Logger(),
	}
}

// step is one external call of an execution plan. Steps thread their results
// forward through captured variables rather than shared mutable state.
type step struct {
	name string
	run  func(ctx context.Context) error
}

// Execute realizes the attempt's action against the given pool. DoNothing
// returns immediately.
func (e *Executor) Execute(ctx context.Context, attempt *Attempt, info chain.PoolInfo) error {
	var plan []step
	var err error

	switch attempt.Action.Kind {
	case Sell:
		plan, err = e.sellPlan(attempt.PoolID, info, attempt.Action.Amount, attempt.Rate)
	case Buy:
		plan, err = e.buyPlan(attempt.PoolID, info, attempt.Action.Amount, attempt.Rate)
	default:
		return nil
	}
	if err != nil {
		return err
	}

	logger := e.logger.With().Str("attempt", attempt.ID.String()).Str("action", attempt.Action.Verb()).Logger()
	return runPlan(ctx, logger, plan)
}

func runPlan(ctx context.Context, logger zerolog.Logger, plan []step) error {
	for _, s := range plan {
		if err := s.run(ctx); err != nil {
			logger.Error().Err(err).Str("step", s.name).Msg("execution step failed; remaining steps skipped")
			return fmt.Errorf("%s: %w", s.name, err)
		}
		logger.Debug().Str("step", s.name).Msg("execution step complete")
	}
	return nil
}

// sellPlan withdraws both legs proportionally from the pool, converts the
// secondary leg back to native coin, and burns the withdrawn stablecoin. The
// burn is last so that a failed withdrawal leaves the supply untouched.
func (e *Executor) sellPlan(poolID uint64, info chain.PoolInfo, amount, rate float64) ([]step, error) {
	stableIdx, otherIdx, err := splitPool(info, e.ledger.Address())
	if err != nil {
		return nil, err
	}

	removeAmounts := make([]*big.Int, len(info.Tokens))
	for i, decimals := range info.Decimals {
		removeAmounts[i] = fixedpoint.ToAtoms(amount, decimals)
	}

	stableAmount := removeAmounts[stableIdx]
	secondaryToken := info.Tokens[otherIdx]
	secondaryAmount := removeAmounts[otherIdx]

	minOut := fixedpoint.ToAtoms(amount*e.cfg.Slippage/rate, e.cfg.NativeDecimals)

	// Swap output feeds the two wrapped-asset steps that follow.
	var wrappedOut *big.Int

	return []step{
		{name: "remove liquidity", run: func(ctx context.Context) error {
			return e.pool.RemoveLiquidityByTokens(ctx, poolID, removeAmounts, maxBurnShares)
		}},
		{name: "swap secondary for wrapped", run: func(ctx context.Context) error {
			out, err := e.pool.Swap(ctx, chain.SwapAction{
				PoolID:       e.cfg.SwapPoolID,
				TokenIn:      secondaryToken,
				TokenOut:     e.wrapped.Address(),
				AmountIn:     secondaryAmount,
				MinAmountOut: minOut,
			})
			if err != nil {
				return err
			}
			wrappedOut = out
			return nil
		}},
		{name: "withdraw wrapped", run: func(ctx context.Context) error {
			return e.pool.Withdraw(ctx, e.wrapped.Address(), wrappedOut)
		}},
		{name: "unwrap", run: func(ctx context.Context) error {
			return e.wrapped.Unwrap(ctx, wrappedOut)
		}},
		{name: "withdraw stablecoin", run: func(ctx context.Context) error {
			return e.pool.Withdraw(ctx, e.ledger.Address(), stableAmount)
		}},
		{name: "burn stablecoin", run: func(ctx context.Context) error {
			return e.ledger.Burn(ctx, stableAmount)
		}},
	}, nil
}

// buyPlan wraps native coin sized by the latest rate, swaps it into the
// secondary asset, and returns the proceeds to the pool as one-sided
// liquidity.
func (e *Executor) buyPlan(poolID uint64, info chain.PoolInfo, amount, rate float64) ([]step, error) {
	stableIdx, otherIdx, err := splitPool(info, e.ledger.Address())
	if err != nil {
		return nil, err
	}

	nativeAmount := fixedpoint.ToAtoms(amount/rate, e.cfg.NativeDecimals)
	secondaryToken := info.Tokens[otherIdx]
	minOut := fixedpoint.ToAtoms(amount*e.cfg.Slippage, info.Decimals[otherIdx])

	var secondaryOut *big.Int

	return []step{
		{name: "wrap native", run: func(ctx context.Context) error {
			return e.wrapped.Wrap(ctx, nativeAmount)
		}},
		{name: "deposit wrapped", run: func(ctx context.Context) error {
			return e.pool.Deposit(ctx, e.wrapped.Address(), nativeAmount)
		}},
		{name: "swap wrapped for secondary", run: func(ctx context.Context) error {
			out, err := e.pool.Swap(ctx, chain.SwapAction{
				PoolID:       e.cfg.SwapPoolID,
				TokenIn:      e.wrapped.Address(),
				TokenOut:     secondaryToken,
				AmountIn:     nativeAmount,
				MinAmountOut: minOut,
			})
			if err != nil {
				return err
			}
			secondaryOut = out
			return nil
		}},
		{name: "add liquidity", run: func(ctx context.Context) error {
			addAmounts := make([]*big.Int, len(info.Tokens))
			addAmounts[stableIdx] = new(big.Int)
			addAmounts[otherIdx] = secondaryOut
			_, err := e.pool.AddLiquidity(ctx, poolID, addAmounts, new(big.Int))
			return err
		}},
	}, nil
}
