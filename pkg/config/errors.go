// Package config provides configuration loading and validation for rate-oracle.
package config

import "errors"

var (
	// ErrNoSourcesConfigured indicates that no price feeds are configured.
	ErrNoSourcesConfigured = errors.New("at least one price source must be configured")
	// ErrNoSourcesEnabled indicates that no price feeds are enabled.
	ErrNoSourcesEnabled = errors.New("no sources enabled")
	// ErrSourceTypeRequired indicates that source type is required.
	ErrSourceTypeRequired = errors.New("source type is required")
	// ErrSourceNameRequired indicates that source name is required.
	ErrSourceNameRequired = errors.New("source name is required")
	// ErrInvalidSourceDecimals indicates that source decimals are out of range.
	ErrInvalidSourceDecimals = errors.New("source decimals must be between 0 and 255")
	// ErrNoAssetsConfigured indicates that no assets are configured.
	ErrNoAssetsConfigured = errors.New("at least one asset must be configured")
	// ErrAssetSymbolRequired indicates that an asset symbol is required.
	ErrAssetSymbolRequired = errors.New("asset symbol is required")
	// ErrDuplicateAsset indicates that an asset is configured twice.
	ErrDuplicateAsset = errors.New("asset configured more than once")
	// ErrInvalidAssetDecimals indicates that asset decimals are out of range.
	ErrInvalidAssetDecimals = errors.New("asset decimals must be between 0 and 255")
	// ErrAssetSourceRequired indicates that an asset must name its feed.
	ErrAssetSourceRequired = errors.New("asset source must be specified as type.name")
	// ErrAssetSourceUnknown indicates that an asset references an unconfigured feed.
	ErrAssetSourceUnknown = errors.New("asset references a source that is not configured")
	// ErrAssetFeedRequired indicates that an asset must name its feed symbol.
	ErrAssetFeedRequired = errors.New("asset feed symbol is required")
	// ErrInvalidLogLevel indicates that the log level is invalid.
	ErrInvalidLogLevel = errors.New("invalid log level")
	// ErrInvalidLogFormat indicates that the log format is invalid.
	ErrInvalidLogFormat = errors.New("invalid log format")
)
