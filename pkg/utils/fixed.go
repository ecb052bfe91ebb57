package utils

import (
	"math"
	"math/big"

	"github.com/shopspring/decimal"
)

// FormatFixed renders v with the given number of decimals. Rounding is done
// on the exact binary value of v (1.005 is stored as 1.00499... and renders
// as "1.00"), ties are rounded away from zero.
func FormatFixed(v float64, places int32) string {
	return ExactDecimal(v).StringFixed(places)
}

// ExactDecimal converts v without going through its shortest decimal form.
// v must be finite.
func ExactDecimal(v float64) decimal.Decimal {
	frac, exp := math.Frexp(v)
	mant := big.NewInt(int64(math.Ldexp(frac, 53)))
	exp -= 53
	if exp >= 0 {
		return decimal.NewFromBigInt(mant.Lsh(mant, uint(exp)), 0)
	}
	pow5 := new(big.Int).Exp(big.NewInt(5), big.NewInt(int64(-exp)), nil)
	return decimal.NewFromBigInt(mant.Mul(mant, pow5), int32(exp))
}
