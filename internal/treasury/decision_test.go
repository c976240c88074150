package treasury

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testTimes = []float64{-7, -6, -5, -4, -3, -2, -1, 0}

func TestDecideSell(t *testing.T) {
	rates := []float64{6.615, 6.62, 6.628, 6.623, 6.578, 6.6, 6.577, 6.611}

	action, err := Decide(rates, testTimes, 191937460.53121, 1241195491.76577, 1367351872.04769, nil)
	require.NoError(t, err)

	require.Equal(t, Sell, action.Kind)
	assert.InEpsilon(t, 23604.588213058174, action.Amount, 1e-9)
}

func TestDecideSellWithLimit(t *testing.T) {
	rates := []float64{6.615, 6.62, 6.628, 6.623, 6.578, 6.6, 6.577, 6.611}
	limit := 20000.0

	action, err := Decide(rates, testTimes, 191937460.53121, 1241195491.76577, 1367351872.04769, &limit)
	require.NoError(t, err)

	require.Equal(t, Sell, action.Kind)
	assert.Equal(t, 20000.0, action.Amount)
}

func TestDecideDoNothing(t *testing.T) {
	rates := []float64{5.9519, 5.9222, 5.9189, 5.9242, 5.9194, 5.9173, 5.8818, 5.8741}

	action, err := Decide(rates, testTimes, 167242050.870139, 1001497797.34406, 1000522964.94309, nil)
	require.NoError(t, err)

	assert.Equal(t, DoNothing, action.Kind)
}

func TestDecideBuy(t *testing.T) {
	rates := []float64{5.6584, 5.809, 5.7635, 5.8331, 5.8555, 5.8643, 5.8565, 5.8699}

	action, err := Decide(rates, testTimes, 167270746.338665, 1001096736.9184, 1000039562.72316, nil)
	require.NoError(t, err)

	require.Equal(t, Buy, action.Kind)
	assert.InEpsilon(t, 207013.8891493543, action.Amount, 1e-9)
}

func TestDecideDeterministic(t *testing.T) {
	rates := []float64{6.615, 6.62, 6.628, 6.623, 6.578, 6.6, 6.577, 6.611}

	first, err := Decide(rates, testTimes, 191937460.53121, 1241195491.76577, 1367351872.04769, nil)
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		again, err := Decide(rates, testTimes, 191937460.53121, 1241195491.76577, 1367351872.04769, nil)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestDecideAmountNeverExceedsReserves(t *testing.T) {
	// Native reserve nearly gone: the model wants to sell the whole backing
	// shortfall, but the amount is clamped by the secondary reserve.
	rates := []float64{6.615, 6.62, 6.628, 6.623, 6.578, 6.6, 6.577, 6.611}

	action, err := Decide(rates, testTimes, 1000.0, 1241195491.76577, 15000.0, nil)
	require.NoError(t, err)

	require.Equal(t, Sell, action.Kind)
	assert.Equal(t, 15000.0, action.Amount)
}

func TestDecideAmountNeverExceedsStepCap(t *testing.T) {
	// Backing shortfall in the hundreds of millions is still capped by the
	// per-attempt step size.
	rates := []float64{6.615, 6.62, 6.628, 6.623, 6.578, 6.6, 6.577, 6.611}

	action, err := Decide(rates, testTimes, 1000.0, 1241195491.76577, 1367351872.04769, nil)
	require.NoError(t, err)

	require.Equal(t, Sell, action.Kind)
	assert.Equal(t, 3_000_000.0, action.Amount)
}

func TestDecideSubThresholdYieldsDoNothing(t *testing.T) {
	rates := []float64{6.615, 6.62, 6.628, 6.623, 6.578, 6.6, 6.577, 6.611}

	// Secondary reserve below the minimum trade size forces a no-op even
	// though the backing shortfall calls for a sell.
	action, err := Decide(rates, testTimes, 1000.0, 1241195491.76577, 500.0, nil)
	require.NoError(t, err)
	assert.Equal(t, DoNothing, action.Kind)

	// Same with a caller limit below the minimum trade size.
	limit := 999.0
	action, err = Decide(rates, testTimes, 191937460.53121, 1241195491.76577, 1367351872.04769, &limit)
	require.NoError(t, err)
	assert.Equal(t, DoNothing, action.Kind)
}

func TestDecideCapAppliesToBuy(t *testing.T) {
	rates := []float64{5.6584, 5.809, 5.7635, 5.8331, 5.8555, 5.8643, 5.8565, 5.8699}
	limit := 100000.0

	action, err := Decide(rates, testTimes, 167270746.338665, 1001096736.9184, 1000039562.72316, &limit)
	require.NoError(t, err)

	require.Equal(t, Buy, action.Kind)
	assert.Equal(t, 100000.0, action.Amount)
}

func TestDecideRejectsShortSeries(t *testing.T) {
	rates := []float64{6.615, 6.62, 6.628}
	times := []float64{-2, -1, 0}

	_, err := Decide(rates, times, 1, 1, 1, nil)
	require.ErrorIs(t, err, ErrBadSeries)
}

func TestActionString(t *testing.T) {
	assert.Equal(t, "Treasury decision is to sell $20000 USDT", Action{Kind: Sell, Amount: 20000}.String())
	assert.Equal(t, "Treasury decision is to buy $1500.5 USDT", Action{Kind: Buy, Amount: 1500.5}.String())
	assert.Equal(t, "Treasury decision is to do nothing", Action{Kind: DoNothing}.String())
}
