package treasury

import (
	"context"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"

	"github.com/marcel-krsh/usn/internal/chain"
	"github.com/marcel-krsh/usn/internal/fixedpoint"
)

var (
	stableAddr    = common.HexToAddress("0x0000000000000000000000000000000000000001")
	secondaryAddr = common.HexToAddress("0x0000000000000000000000000000000000000002")
	wrappedAddr   = common.HexToAddress("0x0000000000000000000000000000000000000003")
	treasuryAddr  = common.HexToAddress("0x00000000000000000000000000000000000000aa")
)

var errInjected = errors.New("injected failure")

func nopLogger() zerolog.Logger {
	return zerolog.Nop()
}

// fakePool records the call sequence and fails any call whose name matches
// failOn.
type fakePool struct {
	info   chain.PoolInfo
	shares *big.Int
	// predicted per-token amounts for the treasury's shares
	predicted []*big.Int

	calls  []string
	failOn string

	swapOut *big.Int
}

func (p *fakePool) record(name string) error {
	p.calls = append(p.calls, name)
	if p.failOn == name {
		return errInjected
	}
	return nil
}

func (p *fakePool) Info(ctx context.Context, poolID uint64) (chain.PoolInfo, error) {
	if err := p.record("info"); err != nil {
		return chain.PoolInfo{}, err
	}
	return p.info, nil
}

func (p *fakePool) ShareBalance(ctx context.Context, poolID uint64, owner common.Address) (*big.Int, error) {
	if err := p.record("shares"); err != nil {
		return nil, err
	}
	return p.shares, nil
}

func (p *fakePool) PredictRemoveLiquidity(ctx context.Context, poolID uint64, shares *big.Int) ([]*big.Int, error) {
	if err := p.record("predict"); err != nil {
		return nil, err
	}
	return p.predicted, nil
}

func (p *fakePool) RemoveLiquidityByTokens(ctx context.Context, poolID uint64, amounts []*big.Int, maxBurnShares *big.Int) error {
	return p.record("remove_liquidity")
}

func (p *fakePool) AddLiquidity(ctx context.Context, poolID uint64, amounts []*big.Int, minShares *big.Int) (*big.Int, error) {
	if err := p.record("add_liquidity"); err != nil {
		return nil, err
	}
	return big.NewInt(1), nil
}

func (p *fakePool) Swap(ctx context.Context, action chain.SwapAction) (*big.Int, error) {
	if err := p.record("swap"); err != nil {
		return nil, err
	}
	if p.swapOut != nil {
		return p.swapOut, nil
	}
	return action.MinAmountOut, nil
}

func (p *fakePool) Withdraw(ctx context.Context, token common.Address, amount *big.Int) error {
	if token == stableAddr {
		return p.record("withdraw_stable")
	}
	return p.record("withdraw_wrapped")
}

func (p *fakePool) Deposit(ctx context.Context, token common.Address, amount *big.Int) error {
	return p.record("deposit")
}

type fakeWrapped struct {
	calls  []string
	failOn string
}

func (w *fakeWrapped) record(name string) error {
	w.calls = append(w.calls, name)
	if w.failOn == name {
		return errInjected
	}
	return nil
}

func (w *fakeWrapped) Wrap(ctx context.Context, amount *big.Int) error {
	return w.record("wrap")
}

func (w *fakeWrapped) Unwrap(ctx context.Context, amount *big.Int) error {
	return w.record("unwrap")
}

func (w *fakeWrapped) Address() common.Address {
	return wrappedAddr
}

type fakeLedger struct {
	supply *big.Int
	burned []*big.Int
	fail   bool
}

func (l *fakeLedger) TotalSupply(ctx context.Context) (*big.Int, error) {
	if l.supply == nil {
		return nil, errInjected
	}
	return l.supply, nil
}

func (l *fakeLedger) Burn(ctx context.Context, amount *big.Int) error {
	if l.fail {
		return errInjected
	}
	l.burned = append(l.burned, amount)
	return nil
}

func (l *fakeLedger) Address() common.Address {
	return stableAddr
}

type fakeBalances struct {
	balance *big.Int
}

func (b *fakeBalances) NativeBalance(ctx context.Context) (*big.Int, error) {
	if b.balance == nil {
		return nil, errInjected
	}
	return b.balance, nil
}

type fakeOracle struct {
	answer   *big.Int
	decimals uint8
	err      error
}

func (o *fakeOracle) LatestRate(ctx context.Context) (*big.Int, uint8, error) {
	if o.err != nil {
		return nil, 0, o.err
	}
	return o.answer, o.decimals, nil
}

// sellScenarioPool builds a 2-token pool whose snapshot reproduces the
// selling scenario: the predicted secondary reserve and pool-held
// stablecoin are sized so the collector recovers the published floats.
func sellScenarioPool() (*fakePool, *fakeLedger, *fakeBalances) {
	pooledStable := fixedpoint.ToAtoms(100_000_000, 18)
	supply := new(big.Int).Add(fixedpoint.ToAtoms(1241195491.76577, 18), pooledStable)

	pool := &fakePool{
		info: chain.PoolInfo{
			Tokens:   []common.Address{stableAddr, secondaryAddr},
			Decimals: []uint8{18, 6},
			Amounts:  []*big.Int{pooledStable, fixedpoint.ToAtoms(900_000_000, 6)},
		},
		shares:    big.NewInt(1_000_000),
		predicted: []*big.Int{fixedpoint.ToAtoms(1_000_000_000, 18), fixedpoint.ToAtoms(1367351872.04769, 6)},
	}

	ledger := &fakeLedger{supply: supply}
	balances := &fakeBalances{balance: fixedpoint.ToAtoms(191937460.53121, 18)}
	return pool, ledger, balances
}

var (
	_ chain.AMMPool       = (*fakePool)(nil)
	_ chain.WrappedNative = (*fakeWrapped)(nil)
	_ chain.Ledger        = (*fakeLedger)(nil)
	_ chain.BalanceReader = (*fakeBalances)(nil)
	_ chain.RateOracle    = (*fakeOracle)(nil)
)
