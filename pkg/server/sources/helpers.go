package sources

import (
	"fmt"
	"strings"

	"tc.com/rate-oracle/pkg/logging"
)

// GetLoggerFromConfig extracts the logger passed down from main, or a noop
// logger if none is configured.
func GetLoggerFromConfig(config map[string]interface{}) *logging.Logger {
	if loggerInterface, ok := config["logger"]; ok {
		if logger, ok := loggerInterface.(*logging.Logger); ok {
			return logger
		}
	}
	return logging.NewNoopLogger()
}

// GetDecimalsFromConfig extracts the feed's fixed decimals, defaulting when
// absent. YAML integers may arrive as int or float64.
func GetDecimalsFromConfig(config map[string]interface{}, defaultValue uint8) (uint8, error) {
	raw, ok := config["decimals"]
	if !ok {
		return defaultValue, nil
	}

	var d int
	switch v := raw.(type) {
	case int:
		d = v
	case float64:
		d = int(v)
	default:
		return 0, fmt.Errorf("%w: decimals is %T", ErrInvalidConfig, raw)
	}

	if d < 0 || d > 255 {
		return 0, fmt.Errorf("%w: decimals out of range", ErrInvalidConfig)
	}
	return uint8(d), nil
}

// ParsePairsFromMap extracts pair mappings from config where pairs is a map.
// Expected format: pairs: { "ATOM/USD": "ATOMUSDT", "BTC/USD": "BTCUSDT" }.
func ParsePairsFromMap(config map[string]interface{}) (map[string]string, error) {
	pairsRaw, ok := config["pairs"]
	if !ok {
		return nil, fmt.Errorf("%w: 'pairs' key", ErrInvalidConfig)
	}

	pairsMap, ok := pairsRaw.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("%w", ErrPairsMustBeMap)
	}

	pairs := make(map[string]string, len(pairsMap))
	for unified, sourceRaw := range pairsMap {
		source, ok := sourceRaw.(string)
		if !ok {
			return nil, fmt.Errorf("%w: %s is %T", ErrInvalidConfig, unified, sourceRaw)
		}
		if err := ValidateSymbolFormat(unified); err != nil {
			return nil, fmt.Errorf("unified symbol: %w", err)
		}
		pairs[unified] = source
	}

	if len(pairs) == 0 {
		return nil, fmt.Errorf("%w", ErrNoPairsConfigured)
	}

	return pairs, nil
}

// ValidateSymbolFormat checks that a symbol is in BASE/QUOTE form.
func ValidateSymbolFormat(symbol string) error {
	parts := strings.Split(symbol, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return fmt.Errorf("%w: %s", ErrInvalidSymbolFormat, symbol)
	}
	return nil
}
