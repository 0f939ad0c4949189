package evm

import (
	"context"
	"errors"
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"tc.com/rate-oracle/pkg/server/sources"
)

type fakeCaller struct {
	output []byte
	err    error
}

func (c *fakeCaller) CallContract(_ context.Context, _ ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	return c.output, c.err
}

func testAggregatorABI(t *testing.T) abi.ABI {
	t.Helper()
	a, err := abi.JSON(strings.NewReader(aggregatorABIJSON))
	require.NoError(t, err)
	return a
}

func packedRound(t *testing.T, a abi.ABI, answer int64, startedAt uint64) []byte {
	t.Helper()
	out, err := a.Methods["getRoundData"].Outputs.Pack(
		big.NewInt(7),
		big.NewInt(answer),
		new(big.Int).SetUint64(startedAt),
		new(big.Int).SetUint64(startedAt),
		big.NewInt(7),
	)
	require.NoError(t, err)
	return out
}

func TestAggregatorFeedRoundData(t *testing.T) {
	a := testAggregatorABI(t)
	feed := &aggregatorFeed{
		client:   &fakeCaller{output: packedRound(t, a, 200000000000, 1700000000)},
		aggABI:   a,
		addr:     common.HexToAddress("0x1"),
		decimals: 8,
	}

	price, startedAt, err := feed.RoundData(context.Background(), 7)
	require.NoError(t, err)
	require.Equal(t, big.NewInt(200000000000), price)
	require.Equal(t, uint64(1700000000), startedAt)

	next, err := feed.RoundStartedAt(context.Background(), 8)
	require.NoError(t, err)
	require.Equal(t, uint64(1700000000), next)

	latest, err := feed.Latest(context.Background())
	require.NoError(t, err)
	require.Equal(t, big.NewInt(200000000000), latest)
}

func TestAggregatorFeedMissingRound(t *testing.T) {
	a := testAggregatorABI(t)
	feed := &aggregatorFeed{
		client: &fakeCaller{err: errors.New("execution reverted: No data present")},
		aggABI: a,
		addr:   common.HexToAddress("0x1"),
	}

	// An unrecorded round reverts on chain; it must read as "not started",
	// not as a failure.
	price, startedAt, err := feed.RoundData(context.Background(), 99)
	require.NoError(t, err)
	require.Zero(t, price.Sign())
	require.Equal(t, uint64(0), startedAt)

	next, err := feed.RoundStartedAt(context.Background(), 100)
	require.NoError(t, err)
	require.Equal(t, uint64(0), next)
}

func TestAggregatorFeedTransportErrorSurfaces(t *testing.T) {
	a := testAggregatorABI(t)
	feed := &aggregatorFeed{
		client: &fakeCaller{err: errors.New("dial tcp 127.0.0.1:8545: connect: connection refused")},
		aggABI: a,
		addr:   common.HexToAddress("0x1"),
	}

	_, _, err := feed.RoundData(context.Background(), 7)
	require.Error(t, err)

	_, err = feed.RoundStartedAt(context.Background(), 8)
	require.Error(t, err)

	_, err = feed.Latest(context.Background())
	require.Error(t, err)
}

func TestNewChainlinkSourceConfig(t *testing.T) {
	tests := []struct {
		name    string
		config  map[string]interface{}
		wantErr error
	}{
		{
			name: "valid config",
			config: map[string]interface{}{
				"rpc_url": "https://rpc.example.com",
				"feeds": map[string]interface{}{
					"ETH/USD": "0x5f4eC3Df9cbd43714FE2740f5E3616155c5b8419",
				},
			},
		},
		{
			name: "missing rpc_url",
			config: map[string]interface{}{
				"feeds": map[string]interface{}{
					"ETH/USD": "0x5f4eC3Df9cbd43714FE2740f5E3616155c5b8419",
				},
			},
			wantErr: ErrRPCURLRequired,
		},
		{
			name: "missing feeds",
			config: map[string]interface{}{
				"rpc_url": "https://rpc.example.com",
			},
			wantErr: ErrFeedsConfigRequired,
		},
		{
			name: "bad aggregator address",
			config: map[string]interface{}{
				"rpc_url": "https://rpc.example.com",
				"feeds": map[string]interface{}{
					"ETH/USD": "not-an-address",
				},
			},
			wantErr: sources.ErrInvalidConfig,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			source, err := NewChainlinkSource(tt.config)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, "chainlink", source.Name())
			require.Equal(t, sources.SourceTypeEVM, source.Type())
		})
	}
}
