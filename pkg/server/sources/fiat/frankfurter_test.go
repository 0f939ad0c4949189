package fiat

import (
	"testing"

	"github.com/stretchr/testify/require"

	"tc.com/rate-oracle/pkg/server/sources"
)

func TestNewFrankfurterSourceConfig(t *testing.T) {
	tests := []struct {
		name    string
		config  map[string]interface{}
		wantErr error
	}{
		{
			name: "valid config",
			config: map[string]interface{}{
				"symbols": []interface{}{"EUR/USD", "GBP/USD"},
			},
		},
		{
			name:    "missing symbols",
			config:  map[string]interface{}{},
			wantErr: ErrMissingSymbolsInConfig,
		},
		{
			name: "symbols not a list",
			config: map[string]interface{}{
				"symbols": "EUR/USD",
			},
			wantErr: ErrInvalidSymbolsType,
		},
		{
			name: "no USD-quoted symbols",
			config: map[string]interface{}{
				"symbols": []interface{}{"EUR/GBP"},
			},
			wantErr: ErrNoValidSymbols,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			source, err := NewFrankfurterSource(tt.config)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, "frankfurter", source.Name())
			require.Equal(t, sources.SourceTypeFiat, source.Type())
			require.Len(t, source.Symbols(), 2)
		})
	}
}

func TestFrankfurterSymbolMapping(t *testing.T) {
	source, err := NewFrankfurterSource(map[string]interface{}{
		"symbols": []interface{}{"EUR/USD", "JPY/USD"},
	})
	require.NoError(t, err)

	fs, ok := source.(*FrankfurterSource)
	require.True(t, ok)
	require.Equal(t, "EUR", fs.GetSourceSymbol("EUR/USD"))
	require.Equal(t, "JPY/USD", fs.GetUnifiedSymbol("JPY"))
}

func TestFrankfurterDefaultDecimals(t *testing.T) {
	source, err := NewFrankfurterSource(map[string]interface{}{
		"symbols": []interface{}{"EUR/USD"},
	})
	require.NoError(t, err)
	require.Equal(t, uint8(6), source.Decimals())
}
