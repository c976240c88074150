package treasury

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"

	"github.com/marcel-krsh/usn/internal/chain"
	"github.com/marcel-krsh/usn/internal/fixedpoint"
)

// ErrInvalidPoolShape means the pool does not hold exactly the stablecoin
// and one secondary token.
var ErrInvalidPoolShape = errors.New("treasury: a pool of 2 tokens is required")

// ReserveSnapshot is the reserve state one balancing attempt decides on.
// All three quantities are real values after decimal normalization; the
// snapshot is built fresh per attempt and never persisted.
type ReserveSnapshot struct {
	// NativeReserve is the native coin held directly by the treasury.
	NativeReserve float64
	// CirculatingStable is total stablecoin supply minus the pool-held part.
	CirculatingStable float64
	// SecondaryReserve is the secondary stable asset recoverable from the pool.
	SecondaryReserve float64
}

// Collector gathers a ReserveSnapshot from the pool, the ledger, and the
// treasury's own account.
type Collector struct {
	pool           chain.AMMPool
	ledger         chain.Ledger
	balances       chain.BalanceReader
	account        common.Address
	nativeDecimals uint8
	logger         zerolog.Logger
}

// NewCollector wires the snapshot collector.
func NewCollector(pool chain.AMMPool, ledger chain.Ledger, balances chain.BalanceReader, account common.Address, nativeDecimals uint8, logger zerolog.Logger) *Collector {
	return &Collector{
		pool:           pool,
		ledger:         ledger,
		balances:       balances,
		account:        account,
		nativeDecimals: nativeDecimals,
		logger:         logger.With().Str("component", "snapshot_collector").Logger(),
	}
}

// Collect reads the pool valuation of the treasury's shares, the pool-held
// stablecoin inventory, the local native balance, and the total supply, and
// normalizes each by its declared decimal precision. Any read failure aborts
// the whole attempt.
func (c *Collector) Collect(ctx context.Context, poolID uint64) (ReserveSnapshot, chain.PoolInfo, error) {
	info, err := c.pool.Info(ctx, poolID)
	if err != nil {
		return ReserveSnapshot{}, chain.PoolInfo{}, fmt.Errorf("read pool info: %w", err)
	}
	if len(info.Tokens) != 2 {
		return ReserveSnapshot{}, chain.PoolInfo{}, ErrInvalidPoolShape
	}

	shares, err := c.pool.ShareBalance(ctx, poolID, c.account)
	if err != nil {
		return ReserveSnapshot{}, chain.PoolInfo{}, fmt.Errorf("read pool shares: %w", err)
	}

	predicted, err := c.pool.PredictRemoveLiquidity(ctx, poolID, shares)
	if err != nil {
		return ReserveSnapshot{}, chain.PoolInfo{}, fmt.Errorf("predict share withdrawal: %w", err)
	}
	if len(predicted) != 2 {
		return ReserveSnapshot{}, chain.PoolInfo{}, ErrInvalidPoolShape
	}

	native, err := c.balances.NativeBalance(ctx)
	if err != nil {
		return ReserveSnapshot{}, chain.PoolInfo{}, fmt.Errorf("read native balance: %w", err)
	}

	supply, err := c.ledger.TotalSupply(ctx)
	if err != nil {
		return ReserveSnapshot{}, chain.PoolInfo{}, fmt.Errorf("read total supply: %w", err)
	}

	stableIdx, otherIdx, err := splitPool(info, c.ledger.Address())
	if err != nil {
		return ReserveSnapshot{}, chain.PoolInfo{}, err
	}

	circulating := new(big.Int).Sub(supply, info.Amounts[stableIdx])

	snapshot := ReserveSnapshot{
		NativeReserve:     fixedpoint.ToFloat(native, c.nativeDecimals),
		CirculatingStable: fixedpoint.ToFloat(circulating, info.Decimals[stableIdx]),
		SecondaryReserve:  fixedpoint.ToFloat(predicted[otherIdx], info.Decimals[otherIdx]),
	}

	c.logger.Debug().
		Uint64("pool", poolID).
		Float64("native", snapshot.NativeReserve).
		Float64("circulating", snapshot.CirculatingStable).
		Float64("secondary", snapshot.SecondaryReserve).
		Msg("reserve snapshot collected")

	return snapshot, info, nil
}

// splitPool locates the stablecoin side and the secondary side of a 2-token
// pool.
func splitPool(info chain.PoolInfo, stable common.Address) (stableIdx, otherIdx int, err error) {
	switch {
	case info.Tokens[0] == stable:
		return 0, 1, nil
	case info.Tokens[1] == stable:
		return 1, 0, nil
	default:
		return 0, 0, fmt.Errorf("stablecoin %s is not part of the pool", stable.Hex())
	}
}
