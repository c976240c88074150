// Package chain wraps the on-chain collaborators the treasury talks to: the
// stable-swap AMM, the wrapped native token, the price oracle, and the
// stablecoin ledger. Everything here is a thin typed client over JSON-RPC;
// no pool or oracle math lives on this side.
package chain

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// PoolInfo describes a stable-swap pool: its token set with per-token
// decimal precision and the aggregate amounts currently held per token.
type PoolInfo struct {
	Tokens   []common.Address
	Decimals []uint8
	Amounts  []*big.Int
}

// SwapAction is a single swap request against a fixed pool.
type SwapAction struct {
	PoolID       uint64
	TokenIn      common.Address
	TokenOut     common.Address
	AmountIn     *big.Int
	MinAmountOut *big.Int
}

// AMMPool exposes the liquidity-pool operations the treasury depends on.
type AMMPool interface {
	// Info returns the token set, decimals, and held amounts of a pool.
	Info(ctx context.Context, poolID uint64) (PoolInfo, error)
	// ShareBalance returns the pool shares held by owner.
	ShareBalance(ctx context.Context, poolID uint64, owner common.Address) (*big.Int, error)
	// PredictRemoveLiquidity values the given shares as per-token amounts.
	PredictRemoveLiquidity(ctx context.Context, poolID uint64, shares *big.Int) ([]*big.Int, error)
	// RemoveLiquidityByTokens burns shares to withdraw the requested per-token amounts.
	RemoveLiquidityByTokens(ctx context.Context, poolID uint64, amounts []*big.Int, maxBurnShares *big.Int) error
	// AddLiquidity deposits the per-token amounts and returns minted shares.
	AddLiquidity(ctx context.Context, poolID uint64, amounts []*big.Int, minShares *big.Int) (*big.Int, error)
	// Swap executes the action and returns the output amount.
	Swap(ctx context.Context, action SwapAction) (*big.Int, error)
	// Withdraw moves previously pooled tokens back to the caller's account.
	Withdraw(ctx context.Context, token common.Address, amount *big.Int) error
	// Deposit moves tokens from the caller's account into the pool's deposit vault.
	Deposit(ctx context.Context, token common.Address, amount *big.Int) error
}

// WrappedNative bridges the native coin and its wrapped token form.
type WrappedNative interface {
	// Wrap converts native coin into the wrapped token.
	Wrap(ctx context.Context, amount *big.Int) error
	// Unwrap converts wrapped tokens back into native coin.
	Unwrap(ctx context.Context, amount *big.Int) error
	// Address is the wrapped token contract address.
	Address() common.Address
}

// RateOracle provides one fresh exchange-rate sample per call.
type RateOracle interface {
	// LatestRate returns the current answer and its decimal precision.
	LatestRate(ctx context.Context) (*big.Int, uint8, error)
}

// Ledger is the stablecoin token contract owned by the treasury.
type Ledger interface {
	// TotalSupply returns the total stablecoin supply in atoms.
	TotalSupply(ctx context.Context) (*big.Int, error)
	// Burn destroys the given amount from the treasury account.
	Burn(ctx context.Context, amount *big.Int) error
	// Address is the stablecoin contract address.
	Address() common.Address
}

// BalanceReader reads the treasury's native-coin balance.
type BalanceReader interface {
	NativeBalance(ctx context.Context) (*big.Int, error)
}
