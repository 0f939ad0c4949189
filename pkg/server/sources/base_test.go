package sources

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func newTestBase(t *testing.T, decimals uint8) *BaseSource {
	t.Helper()
	return NewBaseSource("test", SourceTypeStatic, decimals, map[string]string{
		"ATOM/USD": "ATOMUSD",
	}, nil)
}

func TestBaseSource_SetPriceAppendsRoundAtFeedDecimals(t *testing.T) {
	base := newTestBase(t, 8)
	ts := time.Unix(1700000000, 0)

	base.SetPrice("ATOM/USD", decimal.RequireFromString("9.37"), ts)

	feed, err := base.Feed("ATOM/USD")
	require.NoError(t, err)

	price, startedAt, err := feed.RoundData(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, big.NewInt(937000000), price)
	require.Equal(t, uint64(1700000000), startedAt)
}

func TestBaseSource_SetPriceTruncatesBeyondFeedDecimals(t *testing.T) {
	base := newTestBase(t, 2)
	base.SetPrice("ATOM/USD", decimal.RequireFromString("9.379"), time.Unix(1, 0))

	latest, err := base.Book("ATOM/USD").Latest()
	require.NoError(t, err)
	require.Equal(t, big.NewInt(937), latest)
}

func TestBaseSource_SequentialQuotesBecomeSequentialRounds(t *testing.T) {
	base := newTestBase(t, 8)
	for i, quote := range []string{"9.00", "9.10", "9.20"} {
		base.SetPrice("ATOM/USD", decimal.RequireFromString(quote), time.Unix(int64(100+i*60), 0))
	}

	book := base.Book("ATOM/USD")
	require.Equal(t, uint64(3), book.LatestRound())
	require.Equal(t, uint64(100), book.StartedAt(1))
	require.Equal(t, uint64(220), book.StartedAt(3))
}

func TestBaseSource_FeedUnknownSymbol(t *testing.T) {
	base := newTestBase(t, 8)
	_, err := base.Feed("DOGE/USD")
	require.ErrorIs(t, err, ErrInvalidSymbol)
}

func TestBaseSource_QuoteForUnknownSymbolDropped(t *testing.T) {
	base := newTestBase(t, 8)
	base.SetPrice("DOGE/USD", decimal.RequireFromString("0.1"), time.Now())
	require.Empty(t, base.GetAllPrices())
}

func TestBaseSource_SubscribersNotified(t *testing.T) {
	base := newTestBase(t, 8)
	updates := make(chan PriceUpdate, 1)
	base.AddSubscriber(updates)

	base.SetPrice("ATOM/USD", decimal.RequireFromString("9.37"), time.Now())

	select {
	case update := <-updates:
		require.Equal(t, "test", update.Source)
		require.Contains(t, update.Prices, "ATOM/USD")
	default:
		t.Fatal("expected a price update")
	}
}
