package evm

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/shopspring/decimal"

	"tc.com/rate-oracle/pkg/oracle"
	"tc.com/rate-oracle/pkg/server/sources"
)

const chainlinkPollRate = 30 * time.Second

// Chainlink aggregator ABI (read-only subset).
const aggregatorABIJSON = `[
	{"constant": true, "inputs": [], "name": "decimals",
	 "outputs": [{"internalType": "uint8", "name": "", "type": "uint8"}],
	 "stateMutability": "view", "type": "function"},
	{"constant": true, "inputs": [], "name": "latestRoundData",
	 "outputs": [
		{"internalType": "uint80", "name": "roundId", "type": "uint80"},
		{"internalType": "int256", "name": "answer", "type": "int256"},
		{"internalType": "uint256", "name": "startedAt", "type": "uint256"},
		{"internalType": "uint256", "name": "updatedAt", "type": "uint256"},
		{"internalType": "uint80", "name": "answeredInRound", "type": "uint80"}
	 ],
	 "stateMutability": "view", "type": "function"},
	{"constant": true,
	 "inputs": [{"internalType": "uint80", "name": "_roundId", "type": "uint80"}],
	 "name": "getRoundData",
	 "outputs": [
		{"internalType": "uint80", "name": "roundId", "type": "uint80"},
		{"internalType": "int256", "name": "answer", "type": "int256"},
		{"internalType": "uint256", "name": "startedAt", "type": "uint256"},
		{"internalType": "uint256", "name": "updatedAt", "type": "uint256"},
		{"internalType": "uint80", "name": "answeredInRound", "type": "uint80"}
	 ],
	 "stateMutability": "view", "type": "function"}
]`

// roundData mirrors the aggregator return tuple.
type roundData struct {
	RoundId         *big.Int
	Answer          *big.Int
	StartedAt       *big.Int
	UpdatedAt       *big.Int
	AnsweredInRound *big.Int
}

// ChainlinkSource serves prices straight from on-chain aggregator
// contracts. Unlike the polling feeds it keeps no local round history: each
// symbol's Feed is a pass-through to the aggregator's own rounds, which is
// the one feed with deep verifiable history.
type ChainlinkSource struct {
	*sources.BaseSource
	client *ethclient.Client
	rpcURL string
	aggABI abi.ABI

	aggregators map[string]common.Address

	mu           sync.RWMutex
	feedDecimals map[string]uint8
	prices       map[string]sources.Price
}

// NewChainlinkSource creates a new Chainlink feed from config.
// Expected format: feeds: { "ETH/USD": "0x5f4e...", "BTC/USD": "0xF403..." }.
func NewChainlinkSource(config map[string]interface{}) (sources.Source, error) {
	rpcURL, ok := config["rpc_url"].(string)
	if !ok || rpcURL == "" {
		return nil, fmt.Errorf("%w", ErrRPCURLRequired)
	}

	feedsRaw, ok := config["feeds"].(map[string]interface{})
	if !ok || len(feedsRaw) == 0 {
		return nil, fmt.Errorf("%w", ErrFeedsConfigRequired)
	}

	aggregators := make(map[string]common.Address, len(feedsRaw))
	pairs := make(map[string]string, len(feedsRaw))
	for symbol, addrRaw := range feedsRaw {
		if err := sources.ValidateSymbolFormat(symbol); err != nil {
			return nil, err
		}
		addr, ok := addrRaw.(string)
		if !ok || !common.IsHexAddress(addr) {
			return nil, fmt.Errorf("%w: aggregator address for %s", sources.ErrInvalidConfig, symbol)
		}
		aggregators[symbol] = common.HexToAddress(addr)
		pairs[symbol] = addr
	}

	aggABI, err := abi.JSON(strings.NewReader(aggregatorABIJSON))
	if err != nil {
		return nil, fmt.Errorf("failed to parse aggregator ABI: %w", err)
	}

	// Nominal only: each aggregator reports its own decimals on chain.
	decimals, err := sources.GetDecimalsFromConfig(config, 8)
	if err != nil {
		return nil, err
	}

	logger := sources.GetLoggerFromConfig(config)
	base := sources.NewBaseSource("chainlink", sources.SourceTypeEVM, decimals, pairs, logger)

	return &ChainlinkSource{
		BaseSource:   base,
		rpcURL:       rpcURL,
		aggABI:       aggABI,
		aggregators:  aggregators,
		feedDecimals: make(map[string]uint8, len(aggregators)),
		prices:       make(map[string]sources.Price),
	}, nil
}

// Initialize connects to the RPC endpoint and queries each aggregator's
// decimals once.
func (s *ChainlinkSource) Initialize(ctx context.Context) error {
	client, err := ethclient.DialContext(ctx, s.rpcURL)
	if err != nil {
		return fmt.Errorf("failed to connect to RPC: %w", err)
	}
	s.client = client

	for symbol, addr := range s.aggregators {
		decimals, err := s.fetchDecimals(ctx, addr)
		if err != nil {
			return fmt.Errorf("decimals for %s: %w", symbol, err)
		}
		s.mu.Lock()
		s.feedDecimals[symbol] = decimals
		s.mu.Unlock()
	}

	s.SetHealthy(true)
	return nil
}

// Start begins refreshing the quote cache at regular intervals.
func (s *ChainlinkSource) Start(ctx context.Context) error {
	if s.client == nil {
		return fmt.Errorf("%w", sources.ErrClientNotInitialized)
	}

	if err := s.refreshQuotes(ctx); err != nil {
		s.Logger().Warn("Initial quote refresh failed", "error", err.Error())
	}

	go func() {
		ticker := time.NewTicker(chainlinkPollRate)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-s.StopChan():
				return
			case <-ticker.C:
				refreshCtx, cancel := context.WithTimeout(ctx, chainlinkPollRate)
				if err := s.refreshQuotes(refreshCtx); err != nil {
					s.SetHealthy(false)
				} else {
					s.SetHealthy(true)
				}
				cancel()
			}
		}
	}()

	return nil
}

// Stop halts the feed.
func (s *ChainlinkSource) Stop() error {
	s.Close()
	if s.client != nil {
		s.client.Close()
	}
	return nil
}

// Feed returns a pass-through price source over the symbol's aggregator.
func (s *ChainlinkSource) Feed(symbol string) (oracle.PriceSource, error) {
	addr, ok := s.aggregators[symbol]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownFeed, symbol)
	}

	s.mu.RLock()
	decimals, ok := s.feedDecimals[symbol]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w", sources.ErrClientNotInitialized)
	}

	return &aggregatorFeed{
		client:   s.client,
		aggABI:   s.aggABI,
		addr:     addr,
		decimals: decimals,
	}, nil
}

// GetPrices returns the cached quotes.
func (s *ChainlinkSource) GetPrices(_ context.Context) (map[string]sources.Price, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.prices) == 0 {
		return nil, fmt.Errorf("%w", sources.ErrNoPricesAvailable)
	}

	result := make(map[string]sources.Price, len(s.prices))
	for k, v := range s.prices {
		result[k] = v
	}
	return result, nil
}

// Subscribe is not implemented: quotes live on chain, not in a local push
// stream.
func (s *ChainlinkSource) Subscribe(_ chan<- sources.PriceUpdate) error {
	return fmt.Errorf("%w", sources.ErrSubscribeNotImplemented)
}

// refreshQuotes reads every aggregator's latest answer into the display
// cache.
func (s *ChainlinkSource) refreshQuotes(ctx context.Context) error {
	now := time.Now()
	updated := 0

	for symbol, addr := range s.aggregators {
		data, err := s.call(ctx, addr, "latestRoundData")
		if err != nil {
			s.Logger().Warn("Failed to read aggregator", "symbol", symbol, "error", err)
			continue
		}

		s.mu.RLock()
		decimals := s.feedDecimals[symbol]
		s.mu.RUnlock()

		quote := decimal.NewFromBigInt(data.Answer, -int32(decimals))
		s.mu.Lock()
		s.prices[symbol] = sources.Price{
			Symbol:    symbol,
			Price:     quote,
			Timestamp: now,
			Source:    s.Name(),
		}
		s.mu.Unlock()
		updated++
	}

	if updated == 0 {
		return fmt.Errorf("%w", sources.ErrNoPricesFetched)
	}

	s.SetLastUpdate(now)
	return nil
}

func (s *ChainlinkSource) fetchDecimals(ctx context.Context, addr common.Address) (uint8, error) {
	input, err := s.aggABI.Pack("decimals")
	if err != nil {
		return 0, fmt.Errorf("failed to pack decimals call: %w", err)
	}

	output, err := s.client.CallContract(ctx, ethereum.CallMsg{To: &addr, Data: input}, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to call decimals: %w", err)
	}

	var decimals uint8
	if err := s.aggABI.UnpackIntoInterface(&decimals, "decimals", output); err != nil {
		return 0, fmt.Errorf("failed to unpack decimals: %w", err)
	}
	return decimals, nil
}

func (s *ChainlinkSource) call(ctx context.Context, addr common.Address, method string, args ...interface{}) (*roundData, error) {
	return callRoundData(ctx, s.client, s.aggABI, addr, method, args...)
}

// aggregatorFeed is the oracle.PriceSource view of one on-chain aggregator.
type aggregatorFeed struct {
	client   ethereum.ContractCaller
	aggABI   abi.ABI
	addr     common.Address
	decimals uint8
}

func (f *aggregatorFeed) Latest(ctx context.Context) (*big.Int, error) {
	data, err := callRoundData(ctx, f.client, f.aggABI, f.addr, "latestRoundData")
	if err != nil {
		return nil, err
	}
	return data.Answer, nil
}

func (f *aggregatorFeed) RoundData(ctx context.Context, round uint64) (*big.Int, uint64, error) {
	data, err := callRoundData(ctx, f.client, f.aggABI, f.addr, "getRoundData", new(big.Int).SetUint64(round))
	if err != nil {
		// Aggregators revert for rounds with no data; the validity check
		// downstream rejects the zero startedAt. RPC and transport failures
		// are a different thing and must surface.
		if isMissingRound(err) {
			return new(big.Int), 0, nil
		}
		return nil, 0, err
	}
	return data.Answer, data.StartedAt.Uint64(), nil
}

func (f *aggregatorFeed) RoundStartedAt(ctx context.Context, round uint64) (uint64, error) {
	data, err := callRoundData(ctx, f.client, f.aggABI, f.addr, "getRoundData", new(big.Int).SetUint64(round))
	if err != nil {
		if isMissingRound(err) {
			return 0, nil
		}
		return 0, err
	}
	return data.StartedAt.Uint64(), nil
}

func (f *aggregatorFeed) Decimals() uint8 {
	return f.decimals
}

// isMissingRound reports whether a call failed because the aggregator
// reverted for a round it never recorded ("No data present"), as opposed to
// a transport or node failure.
func isMissingRound(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "execution reverted") || strings.Contains(msg, "No data present")
}

func callRoundData(ctx context.Context, client ethereum.ContractCaller, aggABI abi.ABI, addr common.Address, method string, args ...interface{}) (*roundData, error) {
	input, err := aggABI.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to pack %s call: %w", method, err)
	}

	output, err := client.CallContract(ctx, ethereum.CallMsg{To: &addr, Data: input}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to call %s: %w", method, err)
	}

	var data roundData
	if err := aggABI.UnpackIntoInterface(&data, method, output); err != nil {
		return nil, fmt.Errorf("failed to unpack %s result: %w", method, err)
	}
	return &data, nil
}

func init() {
	sources.Register("evm.chainlink", NewChainlinkSource)
}
