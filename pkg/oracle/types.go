// Package oracle implements the rate engine: price normalization to a
// canonical fixed-point precision, current and historical cross-asset
// rates, and the asset-to-source registry behind them.
package oracle

import (
	"context"
	"math/big"
)

// CanonicalDecimals is the fixed number of fractional digits every price is
// normalized to before cross-asset computation.
const CanonicalDecimals = 18

// PriceSource is an external provider of price readings for exactly one
// asset. Readings are organized into sequential rounds identified by an
// increasing index; round ids below the first recorded round, and ids of
// rounds that have not started yet, report a zero start timestamp.
type PriceSource interface {
	// Latest returns the raw price of the most recent round. The reading
	// is signed; the engine reinterprets it as unsigned.
	Latest(ctx context.Context) (*big.Int, error)

	// RoundData returns the raw price of the given round together with
	// the unix timestamp at which the round became effective.
	RoundData(ctx context.Context, round uint64) (price *big.Int, startedAt uint64, err error)

	// RoundStartedAt returns the unix timestamp at which the given round
	// became effective, or 0 if the round has not started.
	RoundStartedAt(ctx context.Context, round uint64) (uint64, error)

	// Decimals returns the number of fractional digits raw prices from
	// this source are expressed in.
	Decimals() uint8
}

// AssetMetadata resolves an asset's native display precision.
type AssetMetadata interface {
	Decimals(asset string) (uint8, error)
}

// MetadataFunc adapts a plain function to the AssetMetadata interface.
type MetadataFunc func(asset string) (uint8, error)

// Decimals implements AssetMetadata.
func (f MetadataFunc) Decimals(asset string) (uint8, error) {
	return f(asset)
}

// SourceBinding ties a registered asset to its price source. Both decimal
// counts are snapshots taken at registration time; a precision change on
// the live source is not picked up until the asset is re-registered.
type SourceBinding struct {
	Source         PriceSource
	SourceDecimals uint8
	AssetDecimals  uint8
}

// Binding is one entry of the registration-order listing.
type Binding struct {
	Asset  string
	Source PriceSource
}
