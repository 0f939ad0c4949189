// Package sources provides price feed interfaces and implementations.
package sources

import "errors"

var (
	// ErrNoPricesAvailable indicates that no prices are available from the feed.
	ErrNoPricesAvailable = errors.New("no prices available")
	// ErrUnexpectedStatus indicates an unexpected HTTP status code.
	ErrUnexpectedStatus = errors.New("unexpected HTTP status code")
	// ErrRateLimitExceeded indicates that a rate limit has been exceeded.
	ErrRateLimitExceeded = errors.New("rate limit exceeded")
	// ErrInvalidSymbol indicates a symbol this feed does not serve.
	ErrInvalidSymbol = errors.New("invalid symbol")
	// ErrInvalidConfig indicates that the feed configuration is invalid.
	ErrInvalidConfig = errors.New("invalid configuration")
	// ErrNoPairsConfigured indicates that no valid pairs are configured.
	ErrNoPairsConfigured = errors.New("no valid pairs configured")
	// ErrPairsMustBeMap indicates that pairs configuration must be a map.
	ErrPairsMustBeMap = errors.New("pairs must be a map of unified to source symbols")
	// ErrInvalidSymbolFormat indicates that the symbol format is invalid.
	ErrInvalidSymbolFormat = errors.New("symbol must be in BASE/QUOTE format")
	// ErrClientNotInitialized indicates that the feed client is not initialized.
	ErrClientNotInitialized = errors.New("client not initialized")
	// ErrNoPricesFetched indicates that no prices were fetched.
	ErrNoPricesFetched = errors.New("failed to fetch any prices")
	// ErrSubscribeNotImplemented indicates that subscribe is not implemented.
	ErrSubscribeNotImplemented = errors.New("subscribe not implemented")
)
