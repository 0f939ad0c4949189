package oracle

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalize_ScalesUpBelowCanonical(t *testing.T) {
	tests := []struct {
		name     string
		price    int64
		decimals uint8
		want     string
	}{
		{"zero decimals", 42, 0, "42000000000000000000"},
		{"six decimals", 1500000, 6, "1500000000000000000"},
		{"eight decimals", 200000000000, 8, "2000000000000000000000"},
		{"seventeen decimals", 7, 17, "70"},
		{"zero price", 0, 8, "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Normalize(big.NewInt(tt.price), tt.decimals)
			require.NoError(t, err)
			require.Equal(t, tt.want, got.String())
		})
	}
}

func TestNormalize_AtOrAboveCanonicalUnchanged(t *testing.T) {
	for _, decimals := range []uint8{18, 19, 20, 36} {
		price := big.NewInt(123456789)
		got, err := Normalize(price, decimals)
		require.NoError(t, err)
		require.Zero(t, price.Cmp(got), "decimals=%d", decimals)
	}
}

func TestNormalize_OverflowFailsLoudly(t *testing.T) {
	// maxPrice * 10^10 does not fit in 256 bits.
	_, err := Normalize(new(big.Int).Set(maxPrice), 8)
	require.ErrorIs(t, err, ErrOverflow)

	// The largest value that still scales cleanly succeeds.
	limit := new(big.Int).Quo(maxPrice, pow10(10))
	got, err := Normalize(limit, 8)
	require.NoError(t, err)
	require.Equal(t, new(big.Int).Mul(limit, pow10(10)), got)
}

func TestToUnsigned_NegativeIsTwosComplement(t *testing.T) {
	want := new(big.Int).Sub(maxPrice, big.NewInt(4)) // 2^256 - 5
	require.Equal(t, want, toUnsigned(big.NewInt(-5)))
	require.Equal(t, big.NewInt(7), toUnsigned(big.NewInt(7)))
}
