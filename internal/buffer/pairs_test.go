package buffer

import (
	"sync"
	"testing"

	"github.com/reflex-trading/reflex-data/internal/model"
)

func TestPairSet_EnsureCreatesLazily(t *testing.T) {
	ps := NewPairSet(100, 200)

	if ps.Len() != 0 {
		t.Errorf("Len() = %d, want 0", ps.Len())
	}
	if _, ok := ps.Get("AAPL"); ok {
		t.Error("Get before Ensure returned a pair")
	}

	p := ps.Ensure("AAPL")
	if p == nil {
		t.Fatal("Ensure returned nil")
	}
	if p.Trades.Cap() != 100 {
		t.Errorf("Trades.Cap() = %d, want 100", p.Trades.Cap())
	}
	if p.Quotes.Cap() != 200 {
		t.Errorf("Quotes.Cap() = %d, want 200", p.Quotes.Cap())
	}

	// Same pair on repeat lookups.
	if again := ps.Ensure("AAPL"); again != p {
		t.Error("Ensure returned a different pair for the same symbol")
	}
	if got, ok := ps.Get("AAPL"); !ok || got != p {
		t.Error("Get returned a different pair after Ensure")
	}
}

func TestPairSet_DefaultCapacities(t *testing.T) {
	ps := NewPairSet(0, -1)
	p := ps.Ensure("MSFT")
	if p.Trades.Cap() != DefaultTradeCapacity {
		t.Errorf("Trades.Cap() = %d, want %d", p.Trades.Cap(), DefaultTradeCapacity)
	}
	if p.Quotes.Cap() != DefaultQuoteCapacity {
		t.Errorf("Quotes.Cap() = %d, want %d", p.Quotes.Cap(), DefaultQuoteCapacity)
	}
}

func TestPairSet_ConcurrentEnsure(t *testing.T) {
	ps := NewPairSet(16, 16)
	symbols := []string{"AAPL", "MSFT", "NVDA", "TSLA"}

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p := ps.Ensure(symbols[i%len(symbols)])
			p.Trades.Append(model.TradeEvent{Symbol: symbols[i%len(symbols)], Price: 1, Size: 1})
		}(i)
	}
	wg.Wait()

	if ps.Len() != len(symbols) {
		t.Errorf("Len() = %d, want %d", ps.Len(), len(symbols))
	}

	total := 0
	for _, s := range ps.Symbols() {
		p, _ := ps.Get(s)
		total += p.Trades.Len()
	}
	if total != 16 {
		t.Errorf("total trades = %d, want 16", total)
	}
}
