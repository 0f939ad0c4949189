package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	cfg := &Config{
		Sources: []SourceConfig{
			{Type: "static", Name: "fixed", Decimals: 8, Enabled: true},
		},
		Assets: []AssetConfig{
			{Symbol: "ATOM", Decimals: 6, Source: "static.fixed", Feed: "ATOM/USD"},
		},
	}
	applyDefaults(cfg)
	return cfg
}

func TestValidate_AcceptsDefaults(t *testing.T) {
	cfg := validConfig()
	require.NoError(t, Validate(cfg))
	require.Equal(t, ":8080", cfg.Server.HTTP.Addr)
	require.Equal(t, "info", cfg.Logging.Level)
}

func TestValidate_RejectsBrokenConfigs(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{"no sources", func(c *Config) { c.Sources = nil }, ErrNoSourcesConfigured},
		{"none enabled", func(c *Config) { c.Sources[0].Enabled = false }, ErrNoSourcesEnabled},
		{"source type missing", func(c *Config) { c.Sources[0].Type = "" }, ErrSourceTypeRequired},
		{"source decimals out of range", func(c *Config) { c.Sources[0].Decimals = 300 }, ErrInvalidSourceDecimals},
		{"no assets", func(c *Config) { c.Assets = nil }, ErrNoAssetsConfigured},
		{"asset symbol missing", func(c *Config) { c.Assets[0].Symbol = "" }, ErrAssetSymbolRequired},
		{"asset source not type.name", func(c *Config) { c.Assets[0].Source = "fixed" }, ErrAssetSourceRequired},
		{"asset source unknown", func(c *Config) { c.Assets[0].Source = "cex.binance" }, ErrAssetSourceUnknown},
		{"asset feed missing", func(c *Config) { c.Assets[0].Feed = "" }, ErrAssetFeedRequired},
		{"bad log level", func(c *Config) { c.Logging.Level = "verbose" }, ErrInvalidLogLevel},
		{"duplicate asset", func(c *Config) { c.Assets = append(c.Assets, c.Assets[0]) }, ErrDuplicateAsset},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			require.ErrorIs(t, Validate(cfg), tt.wantErr)
		})
	}
}
