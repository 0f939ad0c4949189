package config

import (
	"fmt"
	"strings"
)

// Validate checks configuration for errors.
func Validate(cfg *Config) error {
	if len(cfg.Sources) == 0 {
		return ErrNoSourcesConfigured
	}

	enabled := make(map[string]bool)
	for i, source := range cfg.Sources {
		if err := validateSourceConfig(&source); err != nil {
			return fmt.Errorf("source %d (%s): %w", i, source.Key(), err)
		}
		if source.Enabled {
			enabled[source.Key()] = true
		}
	}
	if len(enabled) == 0 {
		return ErrNoSourcesEnabled
	}

	if len(cfg.Assets) == 0 {
		return ErrNoAssetsConfigured
	}
	seen := make(map[string]bool)
	for i, asset := range cfg.Assets {
		if err := validateAssetConfig(&asset, enabled); err != nil {
			return fmt.Errorf("asset %d (%s): %w", i, asset.Symbol, err)
		}
		if seen[asset.Symbol] {
			return fmt.Errorf("asset %d (%s): %w", i, asset.Symbol, ErrDuplicateAsset)
		}
		seen[asset.Symbol] = true
	}

	if err := validateLoggingConfig(&cfg.Logging); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}

	return nil
}

func validateSourceConfig(cfg *SourceConfig) error {
	if cfg.Type == "" {
		return ErrSourceTypeRequired
	}
	if cfg.Name == "" {
		return ErrSourceNameRequired
	}
	if cfg.Decimals < 0 || cfg.Decimals > 255 {
		return ErrInvalidSourceDecimals
	}
	return nil
}

func validateAssetConfig(cfg *AssetConfig, enabledSources map[string]bool) error {
	if cfg.Symbol == "" {
		return ErrAssetSymbolRequired
	}
	if cfg.Decimals < 0 || cfg.Decimals > 255 {
		return ErrInvalidAssetDecimals
	}
	if cfg.Source == "" || !strings.Contains(cfg.Source, ".") {
		return ErrAssetSourceRequired
	}
	if !enabledSources[cfg.Source] {
		return fmt.Errorf("%w: %s", ErrAssetSourceUnknown, cfg.Source)
	}
	if cfg.Feed == "" {
		return ErrAssetFeedRequired
	}
	return nil
}

func validateLoggingConfig(cfg *LoggingConfig) error {
	switch strings.ToLower(cfg.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: %s", ErrInvalidLogLevel, cfg.Level)
	}

	switch strings.ToLower(cfg.Format) {
	case "json", "text":
	default:
		return fmt.Errorf("%w: %s", ErrInvalidLogFormat, cfg.Format)
	}

	return nil
}
