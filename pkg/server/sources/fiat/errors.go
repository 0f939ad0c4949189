// Package fiat provides fiat currency price feeds.
package fiat

import "errors"

var (
	// ErrMissingSymbolsInConfig indicates that symbols are missing in the configuration.
	ErrMissingSymbolsInConfig = errors.New("missing 'symbols' in config")
	// ErrInvalidSymbolsType indicates that the symbols type is invalid.
	ErrInvalidSymbolsType = errors.New("invalid 'symbols' type, expected list")
	// ErrNoValidSymbols indicates that no valid symbols are configured.
	ErrNoValidSymbols = errors.New("no valid USD-quoted symbols configured")
	// ErrNoCurrenciesToFetch indicates that no valid currencies are available to fetch.
	ErrNoCurrenciesToFetch = errors.New("no valid currencies to fetch")
)
