package treasury

import (
	"errors"
	"math"
	"strconv"
)

// ActionKind discriminates the treasury's balancing actions.
type ActionKind uint8

const (
	// DoNothing keeps the reserves as they are.
	DoNothing ActionKind = iota
	// Buy spends secondary reserve to buy back stablecoin exposure.
	Buy
	// Sell releases stablecoin against the secondary reserve.
	Sell
)

// Action is the outcome of one balancing decision. Amount is denominated in
// secondary-reserve units and is zero for DoNothing.
type Action struct {
	Kind   ActionKind
	Amount float64
}

func (a Action) String() string {
	switch a.Kind {
	case Buy:
		return "Treasury decision is to buy $" + strconv.FormatFloat(a.Amount, 'f', -1, 64) + " USDT"
	case Sell:
		return "Treasury decision is to sell $" + strconv.FormatFloat(a.Amount, 'f', -1, 64) + " USDT"
	default:
		return "Treasury decision is to do nothing"
	}
}

// Verb returns a compact action name for logs and audit rows.
func (a Action) Verb() string {
	switch a.Kind {
	case Buy:
		return "buy"
	case Sell:
		return "sell"
	default:
		return "nothing"
	}
}

// Model thresholds. Reserve ratios are dimensionless; amount bounds are in
// secondary-reserve units.
const (
	vertexPower = 4
	reserveMin  = 0.25
	stableUpper = 1.1
	stableLower = 1.0
	poolLower   = 0.6
	poolUpper   = 0.7
	buyMin      = 1000.0
	sellMin     = 1000.0
	buyStep     = 3_000_000.0
	sellStep    = 3_000_000.0
	timeOrigin  = 0.0
)

// ErrBadSeries means the rate series does not match the warmup window.
var ErrBadSeries = errors.New("treasury: rate series must hold exactly the warmup window")

// Decide converts the cached exchange-rate series and the reserve snapshot
// into a balancing action. The series must hold exactly WarmupSamples points,
// oldest first. An optional limit caps the emitted amount. Deterministic for
// identical inputs.
//
// The trend model smooths the series with a three-point moving average, fits
// a quadratic through the smoothed points by ordinary least squares, scores
// the fit with R-squared against the raw series, and derives a
// confidence-weighted curvature signal that decays as the parabola's vertex
// moves away from the present.
func Decide(rates, times []float64, nativeReserve, circulatingStable, secondaryReserve float64, limit *float64) (Action, error) {
	if len(rates) != WarmupSamples || len(times) != WarmupSamples {
		return Action{}, ErrBadSeries
	}

	currentRate := rates[WarmupSamples-1]

	// Three-point moving average over the interior points.
	xs := make([]float64, 0, WarmupSamples-2)
	ys := make([]float64, 0, WarmupSamples-2)
	for k := 1; k < WarmupSamples-1; k++ {
		xs = append(xs, (times[k-1]+times[k]+times[k+1])/3)
		ys = append(ys, (rates[k-1]+rates[k]+rates[k+1])/3)
	}

	a, b, c0 := fitQuadratic(xs, ys)

	// Goodness of fit is judged against the raw, unsmoothed series.
	var mean float64
	for _, r := range rates {
		mean += r
	}
	mean /= float64(len(rates))

	var sTot, sRes float64
	for i, r := range rates {
		sTot += (r - mean) * (r - mean)
		fitted := times[i]*times[i]*a + times[i]*b + c0
		sRes += (r - fitted) * (r - fitted)
	}
	rSquared := 1 - sRes/sTot

	// Confidence-weighted curvature: the further the parabola's vertex sits
	// from the time origin, the less the trend is trusted.
	confidence := math.Copysign(1, a) * rSquared / (math.Pow(timeOrigin+b/(2*a), vertexPower) + 1)

	sellLimit := sellStep
	buyLimit := buyStep
	if limit != nil {
		sellLimit = *limit
		buyLimit = *limit
	}

	overReserve := reserveMin*circulatingStable - currentRate*nativeReserve

	switch {
	case overReserve >= 0:
		amount := min(min(min(overReserve, sellStep), secondaryReserve), sellLimit)
		if amount >= sellMin {
			return Action{Kind: Sell, Amount: amount}, nil
		}
		return Action{Kind: DoNothing}, nil

	case confidence > 0:
		excess := max(confidence*(secondaryReserve-min(poolUpper*(secondaryReserve+currentRate*nativeReserve), stableUpper*circulatingStable)), 0)
		amount := min(min(min(excess, sellStep), secondaryReserve), sellLimit)
		if amount >= sellMin {
			return Action{Kind: Sell, Amount: amount}, nil
		}
		return Action{Kind: DoNothing}, nil

	default:
		shortfall := confidence * min(secondaryReserve-min(poolLower*(secondaryReserve+currentRate*nativeReserve), stableLower*circulatingStable), 0)
		amount := min(min(min(shortfall, buyStep), currentRate*nativeReserve), buyLimit)
		if amount >= buyMin {
			return Action{Kind: Buy, Amount: amount}, nil
		}
		return Action{Kind: DoNothing}, nil
	}
}

// fitQuadratic fits y = a*x^2 + b*x + c by ordinary least squares, solving
// the 3x3 normal equations with partial-pivot Gaussian elimination.
func fitQuadratic(xs, ys []float64) (a, b, c float64) {
	var s [3][3]float64
	var t [3]float64

	for i, x := range xs {
		row := [3]float64{1, x, x * x}
		for j := 0; j < 3; j++ {
			t[j] += row[j] * ys[i]
			for k := 0; k < 3; k++ {
				s[j][k] += row[j] * row[k]
			}
		}
	}

	w := solve3(s, t)
	return w[2], w[1], w[0]
}

func solve3(m [3][3]float64, v [3]float64) [3]float64 {
	var aug [3][4]float64
	for i := 0; i < 3; i++ {
		copy(aug[i][:3], m[i][:])
		aug[i][3] = v[i]
	}

	for col := 0; col < 3; col++ {
		pivot := col
		for r := col + 1; r < 3; r++ {
			if math.Abs(aug[r][col]) > math.Abs(aug[pivot][col]) {
				pivot = r
			}
		}
		aug[col], aug[pivot] = aug[pivot], aug[col]

		for r := col + 1; r < 3; r++ {
			f := aug[r][col] / aug[col][col]
			for cc := col; cc < 4; cc++ {
				aug[r][cc] -= f * aug[col][cc]
			}
		}
	}

	var w [3]float64
	for i := 2; i >= 0; i-- {
		acc := aug[i][3]
		for j := i + 1; j < 3; j++ {
			acc -= aug[i][j] * w[j]
		}
		w[i] = acc / aug[i][i]
	}
	return w
}
