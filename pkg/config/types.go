package config

import "time"

// Config is the root configuration structure.
type Config struct {
	Server  ServerConfig   `yaml:"server"`
	Sources []SourceConfig `yaml:"sources"`
	Assets  []AssetConfig  `yaml:"assets"`
	Metrics MetricsConfig  `yaml:"metrics"`
	Logging LoggingConfig  `yaml:"logging"`
}

// ServerConfig configures the HTTP and WebSocket API.
type ServerConfig struct {
	HTTP      HTTPConfig `yaml:"http"`
	WebSocket WSConfig   `yaml:"websocket"`
	// AdminToken gates binding registration over HTTP. Empty disables the
	// registration endpoint entirely.
	AdminToken string `yaml:"admin_token"`
}

// HTTPConfig configures the HTTP server.
type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

// WSConfig configures the WebSocket streaming server.
type WSConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// SourceConfig configures one price feed.
type SourceConfig struct {
	Type string `yaml:"type"`
	Name string `yaml:"name"`
	// Decimals is the fixed number of fractional digits raw prices from
	// this feed are expressed in.
	Decimals int `yaml:"decimals"`
	// Interval overrides the feed's poll interval, e.g. "10s". Zero keeps
	// the feed's default.
	Interval Duration               `yaml:"interval"`
	Enabled  bool                   `yaml:"enabled"`
	Config   map[string]interface{} `yaml:"config"`
}

// AssetConfig describes one tracked asset and its initial source binding.
type AssetConfig struct {
	// Symbol is the asset identifier, e.g. "ATOM".
	Symbol string `yaml:"symbol"`
	// Decimals is the asset's native display precision.
	Decimals int `yaml:"decimals"`
	// Source is the "type.name" of the feed the asset is bound to.
	Source string `yaml:"source"`
	// Feed is the feed-side symbol serving this asset, e.g. "ATOM/USD".
	Feed string `yaml:"feed"`
}

// MetricsConfig configures Prometheus metrics.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
	Path    string `yaml:"path"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Duration is a wrapper around time.Duration for YAML parsing.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	td, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(td)
	return nil
}

// ToDuration converts Duration to time.Duration.
func (d Duration) ToDuration() time.Duration {
	return time.Duration(d)
}
