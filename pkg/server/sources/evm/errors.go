// Package evm provides price feeds backed by EVM chain contracts.
package evm

import "errors"

var (
	// ErrRPCURLRequired indicates that rpc_url is required.
	ErrRPCURLRequired = errors.New("rpc_url is required")
	// ErrFeedsConfigRequired indicates that the feeds configuration is required.
	ErrFeedsConfigRequired = errors.New("feeds configuration is required")
	// ErrUnknownFeed indicates a symbol with no configured aggregator.
	ErrUnknownFeed = errors.New("no aggregator configured for symbol")
)
