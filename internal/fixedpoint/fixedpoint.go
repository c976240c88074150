// Package fixedpoint converts between integer token amounts ("atoms") and
// their real-valued representation. Every token carries its own decimal
// precision, so all conversions take the decimal count explicitly instead of
// assuming a chain-wide constant.
package fixedpoint

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// ToFloat converts an integer amount of atoms into a real value using the
// token's decimal precision.
func ToFloat(atoms *big.Int, decimals uint8) float64 {
	if atoms == nil {
		return 0
	}
	return decimal.NewFromBigInt(atoms, -int32(decimals)).InexactFloat64()
}

// ToAtoms converts a real value into an integer amount of atoms, truncating
// anything below the token's precision.
func ToAtoms(value float64, decimals uint8) *big.Int {
	return decimal.NewFromFloat(value).Shift(int32(decimals)).BigInt()
}

// ScaleRate normalizes an oracle answer into a plain exchange rate using the
// precision the oracle reports alongside the value.
func ScaleRate(answer *big.Int, decimals uint8) float64 {
	return ToFloat(answer, decimals)
}
