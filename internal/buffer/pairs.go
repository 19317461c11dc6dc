package buffer

import (
	"sync"

	"github.com/reflex-trading/reflex-data/internal/model"
)

// Default capacities, sized for a full session of a busy symbol.
const (
	DefaultTradeCapacity = 200_000
	DefaultQuoteCapacity = 300_000
)

// Pair holds the trade and quote rings for one symbol.
type Pair struct {
	Trades *Ring[model.TradeEvent]
	Quotes *Ring[model.QuoteEvent]
}

// PairSet is a thread-safe container of per-symbol buffer pairs, created
// lazily on first reference and never removed before process teardown.
type PairSet struct {
	mu       sync.RWMutex
	pairs    map[string]*Pair
	tradeCap int
	quoteCap int
}

// NewPairSet creates an empty container. Non-positive capacities fall back
// to the defaults.
func NewPairSet(tradeCap, quoteCap int) *PairSet {
	if tradeCap <= 0 {
		tradeCap = DefaultTradeCapacity
	}
	if quoteCap <= 0 {
		quoteCap = DefaultQuoteCapacity
	}
	return &PairSet{
		pairs:    make(map[string]*Pair),
		tradeCap: tradeCap,
		quoteCap: quoteCap,
	}
}

// Ensure returns the buffer pair for a symbol, creating it if needed.
// The symbol is expected to be normalized already; keys are upper-case.
func (ps *PairSet) Ensure(symbol string) *Pair {
	ps.mu.RLock()
	p, ok := ps.pairs[symbol]
	ps.mu.RUnlock()
	if ok {
		return p
	}

	ps.mu.Lock()
	defer ps.mu.Unlock()
	if p, ok = ps.pairs[symbol]; ok {
		return p
	}
	p = &Pair{
		Trades: NewRing[model.TradeEvent](ps.tradeCap),
		Quotes: NewRing[model.QuoteEvent](ps.quoteCap),
	}
	ps.pairs[symbol] = p
	return p
}

// Get returns the pair for a symbol without creating it.
func (ps *PairSet) Get(symbol string) (*Pair, bool) {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	p, ok := ps.pairs[symbol]
	return p, ok
}

// Symbols returns the symbols that currently have buffers.
func (ps *PairSet) Symbols() []string {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	out := make([]string, 0, len(ps.pairs))
	for s := range ps.pairs {
		out = append(out, s)
	}
	return out
}

// Len returns the number of symbols with buffers.
func (ps *PairSet) Len() int {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	return len(ps.pairs)
}
