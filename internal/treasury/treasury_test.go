package treasury

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marcel-krsh/usn/internal/chain"
)

var sellRates = []float64{6.615, 6.62, 6.628, 6.623, 6.578, 6.6, 6.577, 6.611}

func warmedCache(now time.Time, rates []float64) *RateCache {
	cache := NewRateCache()
	for i, r := range rates {
		cache.Append(now.Add(time.Duration(i-len(rates)+1)*time.Hour), r)
	}
	return cache
}

func newTestTreasury(now time.Time, pool *fakePool, ledger *fakeLedger, balances *fakeBalances, wrapped *fakeWrapped, oracle chain.RateOracle, cache *RateCache) *Treasury {
	collector := NewCollector(pool, ledger, balances, treasuryAddr, 18, nopLogger())
	executor := newTestExecutor(pool, wrapped, ledger)
	return New(cache, collector, executor, oracle, nopLogger()).
		WithClock(func() time.Time { return now })
}

func TestBalanceRejectsInvalidRange(t *testing.T) {
	now := time.Now()
	pool, ledger, balances := sellScenarioPool()
	tr := newTestTreasury(now, pool, ledger, balances, &fakeWrapped{}, &fakeOracle{}, warmedCache(now, sellRates))

	_, err := tr.Balance(context.Background(), BalanceRequest{
		PoolID: 1,
		Limits: &LimitRange{Min: 5000, Max: 1000},
	})
	require.ErrorIs(t, err, ErrInvalidRange)

	// Rejected before any external call.
	assert.Empty(t, pool.calls)
}

func TestBalanceRequiresWarmCache(t *testing.T) {
	now := time.Now()
	pool, ledger, balances := sellScenarioPool()
	tr := newTestTreasury(now, pool, ledger, balances, &fakeWrapped{}, &fakeOracle{}, NewRateCache())

	_, err := tr.Balance(context.Background(), BalanceRequest{PoolID: 1})
	require.ErrorIs(t, err, ErrNotWarmedUp)
	assert.Empty(t, pool.calls)
}

func TestBalanceRejectsMalformedPool(t *testing.T) {
	now := time.Now()
	pool, ledger, balances := sellScenarioPool()
	pool.info.Tokens = append(pool.info.Tokens, wrappedAddr)
	tr := newTestTreasury(now, pool, ledger, balances, &fakeWrapped{}, &fakeOracle{}, warmedCache(now, sellRates))

	_, err := tr.Balance(context.Background(), BalanceRequest{PoolID: 1})
	require.ErrorIs(t, err, ErrInvalidPoolShape)
}

func TestBalanceDecidesWithoutExecution(t *testing.T) {
	now := time.Now()
	pool, ledger, balances := sellScenarioPool()
	wrapped := &fakeWrapped{}
	tr := newTestTreasury(now, pool, ledger, balances, wrapped, &fakeOracle{}, warmedCache(now, sellRates))

	attempt, err := tr.Balance(context.Background(), BalanceRequest{PoolID: 1})
	require.NoError(t, err)

	require.Equal(t, Sell, attempt.Action.Kind)
	assert.InEpsilon(t, 23604.588213058174, attempt.Action.Amount, 1e-6)
	assert.Equal(t, StateIdle, attempt.State)
	assert.False(t, attempt.Executed)

	// Only the snapshot reads happened.
	assert.Equal(t, []string{"info", "shares", "predict"}, pool.calls)
	assert.Empty(t, wrapped.calls)
	assert.Empty(t, ledger.burned)
}

func TestBalanceExecutesSell(t *testing.T) {
	now := time.Now()
	pool, ledger, balances := sellScenarioPool()
	wrapped := &fakeWrapped{}
	tr := newTestTreasury(now, pool, ledger, balances, wrapped, &fakeOracle{}, warmedCache(now, sellRates))

	attempt, err := tr.Balance(context.Background(), BalanceRequest{PoolID: 1, Execute: true})
	require.NoError(t, err)

	assert.Equal(t, StateDone, attempt.State)
	assert.True(t, attempt.Executed)
	assert.Equal(t, []string{"info", "shares", "predict", "remove_liquidity", "swap", "withdraw_wrapped", "withdraw_stable"}, pool.calls)
	require.Len(t, ledger.burned, 1)
}

func TestBalanceExecutionFailureLeavesSupplyUntouched(t *testing.T) {
	now := time.Now()
	pool, ledger, balances := sellScenarioPool()
	pool.failOn = "withdraw_stable"
	wrapped := &fakeWrapped{}
	tr := newTestTreasury(now, pool, ledger, balances, wrapped, &fakeOracle{}, warmedCache(now, sellRates))

	attempt, err := tr.Balance(context.Background(), BalanceRequest{PoolID: 1, Execute: true})
	require.ErrorIs(t, err, errInjected)

	require.NotNil(t, attempt)
	assert.Equal(t, StateDone, attempt.State)
	assert.False(t, attempt.Executed)
	assert.Empty(t, ledger.burned)
}

func TestBalanceDrawsLimitFromRange(t *testing.T) {
	now := time.Now()
	pool, ledger, balances := sellScenarioPool()
	wrapped := &fakeWrapped{}
	tr := newTestTreasury(now, pool, ledger, balances, wrapped, &fakeOracle{}, warmedCache(now, sellRates)).
		WithRand(func() float64 { return 0.5 })

	attempt, err := tr.Balance(context.Background(), BalanceRequest{
		PoolID: 1,
		Limits: &LimitRange{Min: 10000, Max: 20000},
	})
	require.NoError(t, err)

	// Fixed draw of 0.5 puts the cap at 15000, below the unconstrained sell.
	require.Equal(t, Sell, attempt.Action.Kind)
	assert.Equal(t, 15000.0, attempt.Action.Amount)
}

func TestWarmupAppendsSample(t *testing.T) {
	now := time.Now()
	pool, ledger, balances := sellScenarioPool()
	oracle := &fakeOracle{answer: big.NewInt(6_611_000), decimals: 6}
	cache := NewRateCache()
	tr := newTestTreasury(now, pool, ledger, balances, &fakeWrapped{}, oracle, cache)

	sample, err := tr.Warmup(context.Background())
	require.NoError(t, err)

	assert.InDelta(t, 6.611, sample.Rate, 1e-12)
	assert.Equal(t, 1, cache.Len())
}

func TestWarmupOracleFailure(t *testing.T) {
	now := time.Now()
	pool, ledger, balances := sellScenarioPool()
	oracle := &fakeOracle{err: errInjected}
	cache := NewRateCache()
	tr := newTestTreasury(now, pool, ledger, balances, &fakeWrapped{}, oracle, cache)

	_, err := tr.Warmup(context.Background())
	require.ErrorIs(t, err, errInjected)
	assert.Equal(t, 0, cache.Len())
}
