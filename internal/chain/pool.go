package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"
)

const stableSwapABIJSON = `[
{"inputs":[{"internalType":"uint64","name":"poolId","type":"uint64"}],"name":"getPoolTokens","outputs":[{"internalType":"address[]","name":"","type":"address[]"}],"stateMutability":"view","type":"function"},
{"inputs":[{"internalType":"uint64","name":"poolId","type":"uint64"}],"name":"getPoolDecimals","outputs":[{"internalType":"uint8[]","name":"","type":"uint8[]"}],"stateMutability":"view","type":"function"},
{"inputs":[{"internalType":"uint64","name":"poolId","type":"uint64"}],"name":"getPoolAmounts","outputs":[{"internalType":"uint256[]","name":"","type":"uint256[]"}],"stateMutability":"view","type":"function"},
{"inputs":[{"internalType":"uint64","name":"poolId","type":"uint64"},{"internalType":"address","name":"owner","type":"address"}],"name":"getPoolShares","outputs":[{"internalType":"uint256","name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
{"inputs":[{"internalType":"uint64","name":"poolId","type":"uint64"},{"internalType":"uint256","name":"shares","type":"uint256"}],"name":"predictRemoveLiquidity","outputs":[{"internalType":"uint256[]","name":"","type":"uint256[]"}],"stateMutability":"view","type":"function"},
{"inputs":[{"internalType":"uint64","name":"poolId","type":"uint64"},{"internalType":"uint256[]","name":"amounts","type":"uint256[]"},{"internalType":"uint256","name":"maxBurnShares","type":"uint256"}],"name":"removeLiquidityByTokens","outputs":[],"stateMutability":"nonpayable","type":"function"},
{"inputs":[{"internalType":"uint64","name":"poolId","type":"uint64"},{"internalType":"uint256[]","name":"amounts","type":"uint256[]"},{"internalType":"uint256","name":"minShares","type":"uint256"}],"name":"addStableLiquidity","outputs":[{"internalType":"uint256","name":"","type":"uint256"}],"stateMutability":"nonpayable","type":"function"},
{"inputs":[{"internalType":"uint64","name":"poolId","type":"uint64"},{"internalType":"address","name":"tokenIn","type":"address"},{"internalType":"address","name":"tokenOut","type":"address"},{"internalType":"uint256","name":"amountIn","type":"uint256"},{"internalType":"uint256","name":"minAmountOut","type":"uint256"}],"name":"swap","outputs":[{"internalType":"uint256","name":"","type":"uint256"}],"stateMutability":"nonpayable","type":"function"},
{"inputs":[{"internalType":"address","name":"token","type":"address"},{"internalType":"uint256","name":"amount","type":"uint256"}],"name":"withdraw","outputs":[],"stateMutability":"nonpayable","type":"function"},
{"inputs":[{"internalType":"address","name":"token","type":"address"},{"internalType":"uint256","name":"amount","type":"uint256"}],"name":"deposit","outputs":[],"stateMutability":"nonpayable","type":"function"}
]`

var stableSwapABI abi.ABI

func init() {
	parsed, err := abi.JSON(strings.NewReader(stableSwapABIJSON))
	if err != nil {
		panic("failed to parse stable-swap ABI: " + err.Error())
	}
	stableSwapABI = parsed
}

// Pool is the AMM client bound to one stable-swap contract.
type Pool struct {
	client   *Client
	contract common.Address
	logger   zerolog.Logger
}

// NewPool binds the stable-swap contract.
func NewPool(client *Client, contract common.Address, logger zerolog.Logger) *Pool {
	return &Pool{
		client:   client,
		contract: contract,
		logger:   logger.With().Str("component", "amm_pool").Logger(),
	}
}

// Info reads the token set, decimals, and held amounts of a pool.
func (p *Pool) Info(ctx context.Context, poolID uint64) (PoolInfo, error) {
	tokensOut, err := p.client.call(ctx, p.contract, stableSwapABI, "getPoolTokens", poolID)
	if err != nil {
		return PoolInfo{}, err
	}
	tokens, ok := tokensOut[0].([]common.Address)
	if !ok {
		return PoolInfo{}, errors.New("unexpected getPoolTokens response")
	}

	decimalsOut, err := p.client.call(ctx, p.contract, stableSwapABI, "getPoolDecimals", poolID)
	if err != nil {
		return PoolInfo{}, err
	}
	decimals, ok := decimalsOut[0].([]uint8)
	if !ok {
		return PoolInfo{}, errors.New("unexpected getPoolDecimals response")
	}

	amountsOut, err := p.client.call(ctx, p.contract, stableSwapABI, "getPoolAmounts", poolID)
	if err != nil {
		return PoolInfo{}, err
	}
	amounts, ok := amountsOut[0].([]*big.Int)
	if !ok {
		return PoolInfo{}, errors.New("unexpected getPoolAmounts response")
	}

	if len(tokens) != len(decimals) || len(tokens) != len(amounts) {
		return PoolInfo{}, fmt.Errorf("inconsistent pool %d shape: %d tokens, %d decimals, %d amounts",
			poolID, len(tokens), len(decimals), len(amounts))
	}

	return PoolInfo{Tokens: tokens, Decimals: decimals, Amounts: amounts}, nil
}

// ShareBalance reads the pool shares held by owner.
func (p *Pool) ShareBalance(ctx context.Context, poolID uint64, owner common.Address) (*big.Int, error) {
	outputs, err := p.client.call(ctx, p.contract, stableSwapABI, "getPoolShares", poolID, owner)
	if err != nil {
		return nil, err
	}
	shares, ok := outputs[0].(*big.Int)
	if !ok {
		return nil, errors.New("unexpected getPoolShares response")
	}
	return shares, nil
}

// PredictRemoveLiquidity values shares as the per-token amounts a withdrawal
// would return right now.
func (p *Pool) PredictRemoveLiquidity(ctx context.Context, poolID uint64, shares *big.Int) ([]*big.Int, error) {
	outputs, err := p.client.call(ctx, p.contract, stableSwapABI, "predictRemoveLiquidity", poolID, shares)
	if err != nil {
		return nil, err
	}
	amounts, ok := outputs[0].([]*big.Int)
	if !ok {
		return nil, errors.New("unexpected predictRemoveLiquidity response")
	}
	return amounts, nil
}

// RemoveLiquidityByTokens withdraws the requested per-token amounts.
func (p *Pool) RemoveLiquidityByTokens(ctx context.Context, poolID uint64, amounts []*big.Int, maxBurnShares *big.Int) error {
	return p.client.transact(ctx, p.contract, stableSwapABI, nil, "removeLiquidityByTokens", poolID, amounts, maxBurnShares)
}

// AddLiquidity deposits per-token amounts and returns the minted shares. The
// contract reports minted shares as a return value, so the amount is taken
// from a dry-run against the latest state before the transaction is sent.
func (p *Pool) AddLiquidity(ctx context.Context, poolID uint64, amounts []*big.Int, minShares *big.Int) (*big.Int, error) {
	outputs, err := p.client.call(ctx, p.contract, stableSwapABI, "addStableLiquidity", poolID, amounts, minShares)
	if err != nil {
		return nil, err
	}
	minted, ok := outputs[0].(*big.Int)
	if !ok {
		return nil, errors.New("unexpected addStableLiquidity response")
	}

	if err := p.client.transact(ctx, p.contract, stableSwapABI, nil, "addStableLiquidity", poolID, amounts, minShares); err != nil {
		return nil, err
	}
	return minted, nil
}

// Swap executes the swap and returns the output amount, estimated by a
// dry-run immediately before sending. The on-chain minimum-output floor still
// guards the executed amount.
func (p *Pool) Swap(ctx context.Context, action SwapAction) (*big.Int, error) {
	outputs, err := p.client.call(ctx, p.contract, stableSwapABI, "swap",
		action.PoolID, action.TokenIn, action.TokenOut, action.AmountIn, action.MinAmountOut)
	if err != nil {
		return nil, err
	}
	out, ok := outputs[0].(*big.Int)
	if !ok {
		return nil, errors.New("unexpected swap response")
	}

	if err := p.client.transact(ctx, p.contract, stableSwapABI, nil, "swap",
		action.PoolID, action.TokenIn, action.TokenOut, action.AmountIn, action.MinAmountOut); err != nil {
		return nil, err
	}

	p.logger.Debug().Uint64("pool", action.PoolID).Str("amount_out", out.String()).Msg("swap executed")
	return out, nil
}

// Withdraw moves pooled tokens back to the treasury account.
func (p *Pool) Withdraw(ctx context.Context, token common.Address, amount *big.Int) error {
	return p.client.transact(ctx, p.contract, stableSwapABI, nil, "withdraw", token, amount)
}

// Deposit moves tokens from the treasury account into the pool's deposit vault.
func (p *Pool) Deposit(ctx context.Context, token common.Address, amount *big.Int) error {
	return p.client.transact(ctx, p.contract, stableSwapABI, nil, "deposit", token, amount)
}

var _ AMMPool = (*Pool)(nil)
