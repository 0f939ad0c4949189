package sources

import (
	"context"
	"fmt"
	"math/big"
	"sync"
)

type bookRound struct {
	price     *big.Int
	startedAt uint64
}

// RoundBook is the append-only round history of one symbol. Round ids are
// 1-based and strictly increasing; id 0 is never a valid round, so a zero
// started-at timestamp always means "round not started".
type RoundBook struct {
	mu     sync.RWMutex
	rounds []bookRound
}

// NewRoundBook creates an empty round book.
func NewRoundBook() *RoundBook {
	return &RoundBook{}
}

// Append records a new round. Rounds are assigned the next id in sequence.
func (b *RoundBook) Append(price *big.Int, startedAt uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rounds = append(b.rounds, bookRound{
		price:     new(big.Int).Set(price),
		startedAt: startedAt,
	})
}

// Latest returns the price of the most recent round.
func (b *RoundBook) Latest() (*big.Int, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if len(b.rounds) == 0 {
		return nil, fmt.Errorf("%w", ErrNoPricesAvailable)
	}
	return new(big.Int).Set(b.rounds[len(b.rounds)-1].price), nil
}

// LatestRound returns the id of the most recent round, 0 if none.
func (b *RoundBook) LatestRound() uint64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return uint64(len(b.rounds))
}

// Round returns the price and start timestamp of the given round. Unknown
// rounds report a zero start timestamp and a zero price, not an error: the
// caller's validity check is what rejects them.
func (b *RoundBook) Round(id uint64) (*big.Int, uint64) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if id == 0 || id > uint64(len(b.rounds)) {
		return new(big.Int), 0
	}
	r := b.rounds[id-1]
	return new(big.Int).Set(r.price), r.startedAt
}

// StartedAt returns the start timestamp of the given round, 0 if the round
// has not started.
func (b *RoundBook) StartedAt(id uint64) uint64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if id == 0 || id > uint64(len(b.rounds)) {
		return 0
	}
	return b.rounds[id-1].startedAt
}

// bookFeed exposes one symbol's round book as an oracle.PriceSource.
type bookFeed struct {
	book     *RoundBook
	decimals uint8
}

func (f *bookFeed) Latest(context.Context) (*big.Int, error) {
	return f.book.Latest()
}

func (f *bookFeed) RoundData(_ context.Context, round uint64) (*big.Int, uint64, error) {
	price, startedAt := f.book.Round(round)
	return price, startedAt, nil
}

func (f *bookFeed) RoundStartedAt(_ context.Context, round uint64) (uint64, error) {
	return f.book.StartedAt(round), nil
}

func (f *bookFeed) Decimals() uint8 {
	return f.decimals
}
