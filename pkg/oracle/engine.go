package oracle

import (
	"context"
	"fmt"
	"math/big"
	"sync"
)

// Engine computes normalized single-asset prices, current cross-asset rates
// and validated historical cross rates over a registry of price sources.
//
// The registry grows via RegisterSource and is never shrunk. Every read
// queries the bound source; no price is cached across calls. The engine
// itself never logs: each operation returns a value or a sentinel error and
// surfacing is the caller's responsibility.
type Engine struct {
	metadata AssetMetadata

	mu       sync.RWMutex
	bindings map[string]SourceBinding
	order    []string
}

// NewEngine creates an empty engine resolving asset precision through the
// given metadata collaborator.
func NewEngine(metadata AssetMetadata) *Engine {
	return &Engine{
		metadata: metadata,
		bindings: make(map[string]SourceBinding),
	}
}

// RegisterSource binds an asset to a price source, snapshotting the
// source's and the asset's decimal counts. Re-registering a known asset
// replaces its binding in place; the asset keeps its position in the
// registration order. Authorization is the caller's concern.
func (e *Engine) RegisterSource(asset string, source PriceSource) error {
	assetDecimals, err := e.metadata.Decimals(asset)
	if err != nil {
		return fmt.Errorf("asset metadata for %s: %w", asset, err)
	}

	binding := SourceBinding{
		Source:         source,
		SourceDecimals: source.Decimals(),
		AssetDecimals:  assetDecimals,
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if _, known := e.bindings[asset]; !known {
		e.order = append(e.order, asset)
	}
	e.bindings[asset] = binding
	return nil
}

// Source returns the price source currently bound to the asset.
func (e *Engine) Source(asset string) (PriceSource, error) {
	b, err := e.binding(asset)
	if err != nil {
		return nil, err
	}
	return b.Source, nil
}

// Bindings returns a snapshot of every registered asset and its source, in
// registration order.
func (e *Engine) Bindings() []Binding {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make([]Binding, 0, len(e.order))
	for _, asset := range e.order {
		out = append(out, Binding{Asset: asset, Source: e.bindings[asset].Source})
	}
	return out
}

func (e *Engine) binding(asset string) (SourceBinding, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	b, ok := e.bindings[asset]
	if !ok {
		return SourceBinding{}, fmt.Errorf("%w: %s", ErrUnknownAsset, asset)
	}
	return b, nil
}

// CurrentPrice returns the asset's latest reading normalized to 18
// fractional digits.
func (e *Engine) CurrentPrice(ctx context.Context, asset string) (*big.Int, error) {
	b, err := e.binding(asset)
	if err != nil {
		return nil, err
	}

	raw, err := b.Source.Latest(ctx)
	if err != nil {
		return nil, fmt.Errorf("latest price for %s: %w", asset, err)
	}
	return Normalize(toUnsigned(raw), b.SourceDecimals)
}

// CurrentCrossPrice returns how many quote smallest-units one base
// smallest-unit is worth, scaled to 18 fractional digits.
func (e *Engine) CurrentCrossPrice(ctx context.Context, base, quote string) (*big.Int, error) {
	baseBinding, err := e.binding(base)
	if err != nil {
		return nil, err
	}
	quoteBinding, err := e.binding(quote)
	if err != nil {
		return nil, err
	}

	basePrice, err := baseBinding.Source.Latest(ctx)
	if err != nil {
		return nil, fmt.Errorf("latest price for %s: %w", base, err)
	}
	quotePrice, err := quoteBinding.Source.Latest(ctx)
	if err != nil {
		return nil, fmt.Errorf("latest price for %s: %w", quote, err)
	}

	return crossPrice(toUnsigned(basePrice), baseBinding, toUnsigned(quotePrice), quoteBinding)
}

// HistoricalCrossPrice returns the cross rate computed from the given round
// of each side, after verifying that both rounds were simultaneously in
// effect at timestamp: for each side the requested time must fall inside
// the half-open window [startedAt, nextStartedAt), where a zero
// nextStartedAt means the round is still current. A failed check is final
// for the call; the engine never searches for a better round.
func (e *Engine) HistoricalCrossPrice(ctx context.Context, base string, baseRound uint64, quote string, quoteRound uint64, timestamp uint64) (*big.Int, error) {
	baseBinding, err := e.binding(base)
	if err != nil {
		return nil, err
	}
	quoteBinding, err := e.binding(quote)
	if err != nil {
		return nil, err
	}

	basePrice, baseStarted, err := baseBinding.Source.RoundData(ctx, baseRound)
	if err != nil {
		return nil, fmt.Errorf("round %d for %s: %w", baseRound, base, err)
	}
	quotePrice, quoteStarted, err := quoteBinding.Source.RoundData(ctx, quoteRound)
	if err != nil {
		return nil, fmt.Errorf("round %d for %s: %w", quoteRound, quote, err)
	}

	baseNext, err := baseBinding.Source.RoundStartedAt(ctx, baseRound+1)
	if err != nil {
		return nil, fmt.Errorf("round %d for %s: %w", baseRound+1, base, err)
	}
	quoteNext, err := quoteBinding.Source.RoundStartedAt(ctx, quoteRound+1)
	if err != nil {
		return nil, fmt.Errorf("round %d for %s: %w", quoteRound+1, quote, err)
	}

	if !roundInEffect(baseStarted, baseNext, timestamp) {
		return nil, fmt.Errorf("%w: %s round %d", ErrOutOfRange, base, baseRound)
	}
	if !roundInEffect(quoteStarted, quoteNext, timestamp) {
		return nil, fmt.Errorf("%w: %s round %d", ErrOutOfRange, quote, quoteRound)
	}

	return crossPrice(toUnsigned(basePrice), baseBinding, toUnsigned(quotePrice), quoteBinding)
}

// roundInEffect reports whether a round that started at the given time was
// the live round at ts. A zero next means no later round exists yet; the
// upper bound is exclusive.
func roundInEffect(started, next, ts uint64) bool {
	if started == 0 || started > ts {
		return false
	}
	return next == 0 || next > ts
}

// crossPrice computes basePrice/quotePrice at canonical scale.
//
// When both sides report at identical source and asset decimals the
// per-side scaling terms cancel algebraically and a single widened
// multiply-divide suffices. Otherwise both prices are normalized
// independently and the asset-level decimal difference is folded in: the
// result is quote smallest-units per base smallest-unit at 18 digits, not
// merely a ratio of source quotes.
func crossPrice(basePrice *big.Int, base SourceBinding, quotePrice *big.Int, quote SourceBinding) (*big.Int, error) {
	if base.SourceDecimals == quote.SourceDecimals && base.AssetDecimals == quote.AssetDecimals {
		if quotePrice.Sign() == 0 {
			return nil, ErrDivisionByZero
		}
		result := new(big.Int).Mul(basePrice, oneE18)
		result.Quo(result, quotePrice)
		if result.Cmp(maxPrice) > 0 {
			return nil, ErrOverflow
		}
		return result, nil
	}

	normBase, err := Normalize(basePrice, base.SourceDecimals)
	if err != nil {
		return nil, err
	}
	normQuote, err := Normalize(quotePrice, quote.SourceDecimals)
	if err != nil {
		return nil, err
	}
	if normQuote.Sign() == 0 {
		return nil, ErrDivisionByZero
	}

	// Multiplications first in the widened intermediate, divisions last.
	result := new(big.Int).Mul(normBase, oneE18)
	result.Mul(result, pow10(quote.AssetDecimals))
	result.Quo(result, normQuote)
	result.Quo(result, pow10(base.AssetDecimals))
	if result.Cmp(maxPrice) > 0 {
		return nil, ErrOverflow
	}
	return result, nil
}
