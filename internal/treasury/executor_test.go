package treasury

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marcel-krsh/usn/internal/fixedpoint"
)

func newTestExecutor(pool *fakePool, wrapped *fakeWrapped, ledger *fakeLedger) *Executor {
	return NewExecutor(pool, wrapped, ledger, ExecutorConfig{
		SwapPoolID:     4,
		Slippage:       0.5,
		NativeDecimals: 18,
	}, nopLogger())
}

func sellAttempt(amount float64) *Attempt {
	return &Attempt{
		ID:     uuid.New(),
		PoolID: 1,
		Rate:   6.611,
		Action: Action{Kind: Sell, Amount: amount},
	}
}

func TestExecuteSellRunsStepsInOrder(t *testing.T) {
	pool, ledger, _ := sellScenarioPool()
	wrapped := &fakeWrapped{}
	exec := newTestExecutor(pool, wrapped, ledger)

	err := exec.Execute(context.Background(), sellAttempt(20000), pool.info)
	require.NoError(t, err)

	assert.Equal(t, []string{"remove_liquidity", "swap", "withdraw_wrapped", "withdraw_stable"}, pool.calls)
	assert.Equal(t, []string{"unwrap"}, wrapped.calls)
	require.Len(t, ledger.burned, 1)
	assert.Equal(t, fixedpoint.ToAtoms(20000, 18), ledger.burned[0])
}

func TestExecuteSellFailureSkipsBurn(t *testing.T) {
	pool, ledger, _ := sellScenarioPool()
	pool.failOn = "withdraw_stable"
	wrapped := &fakeWrapped{}
	exec := newTestExecutor(pool, wrapped, ledger)

	err := exec.Execute(context.Background(), sellAttempt(20000), pool.info)
	require.ErrorIs(t, err, errInjected)

	// The stablecoin withdrawal failed, so the supply must be untouched.
	assert.Empty(t, ledger.burned)
}

func TestExecuteSellSwapFailureHaltsChain(t *testing.T) {
	pool, ledger, _ := sellScenarioPool()
	pool.failOn = "swap"
	wrapped := &fakeWrapped{}
	exec := newTestExecutor(pool, wrapped, ledger)

	err := exec.Execute(context.Background(), sellAttempt(20000), pool.info)
	require.ErrorIs(t, err, errInjected)

	// Liquidity already left the pool; nothing after the failed swap ran.
	assert.Equal(t, []string{"remove_liquidity", "swap"}, pool.calls)
	assert.Empty(t, wrapped.calls)
	assert.Empty(t, ledger.burned)
}

func TestExecuteBuyRunsStepsInOrder(t *testing.T) {
	pool, ledger, _ := sellScenarioPool()
	wrapped := &fakeWrapped{}
	exec := newTestExecutor(pool, wrapped, ledger)

	attempt := &Attempt{
		ID:     uuid.New(),
		PoolID: 1,
		Rate:   5.8699,
		Action: Action{Kind: Buy, Amount: 207013.88},
	}

	err := exec.Execute(context.Background(), attempt, pool.info)
	require.NoError(t, err)

	assert.Equal(t, []string{"wrap"}, wrapped.calls)
	assert.Equal(t, []string{"deposit", "swap", "add_liquidity"}, pool.calls)
	assert.Empty(t, ledger.burned)
}

func TestExecuteBuyWrapFailureHaltsChain(t *testing.T) {
	pool, ledger, _ := sellScenarioPool()
	wrapped := &fakeWrapped{failOn: "wrap"}
	exec := newTestExecutor(pool, wrapped, ledger)

	attempt := &Attempt{
		ID:     uuid.New(),
		PoolID: 1,
		Rate:   5.8699,
		Action: Action{Kind: Buy, Amount: 207013.88},
	}

	err := exec.Execute(context.Background(), attempt, pool.info)
	require.ErrorIs(t, err, errInjected)
	assert.Empty(t, pool.calls)
}

func TestExecuteDoNothingIsNoop(t *testing.T) {
	pool, ledger, _ := sellScenarioPool()
	wrapped := &fakeWrapped{}
	exec := newTestExecutor(pool, wrapped, ledger)

	attempt := &Attempt{ID: uuid.New(), Action: Action{Kind: DoNothing}}

	err := exec.Execute(context.Background(), attempt, pool.info)
	require.NoError(t, err)
	assert.Empty(t, pool.calls)
	assert.Empty(t, wrapped.calls)
}
