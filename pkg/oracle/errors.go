package oracle

import "errors"

var (
	// ErrUnknownAsset indicates that no source is registered for the asset.
	ErrUnknownAsset = errors.New("no source registered for asset")
	// ErrOutOfRange indicates that a requested round was not in effect at
	// the requested timestamp.
	ErrOutOfRange = errors.New("round not in effect at requested timestamp")
	// ErrDivisionByZero indicates that a normalized quote price was zero.
	ErrDivisionByZero = errors.New("quote price is zero")
	// ErrOverflow indicates that a scaling or multiplication step exceeded
	// the representable range.
	ErrOverflow = errors.New("arithmetic overflow")
)
