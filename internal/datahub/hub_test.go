package datahub

import (
	"context"
	"testing"
	"time"

	"github.com/reflex-trading/reflex-data/internal/buffer"
	"github.com/reflex-trading/reflex-data/internal/bus"
	"github.com/reflex-trading/reflex-data/internal/model"
	"github.com/reflex-trading/reflex-data/internal/registry"
)

func startHub(t *testing.T) (*Hub, *bus.Memory, *buffer.PairSet, *registry.Registry) {
	t.Helper()

	m := bus.NewMemory(nil)
	pairs := buffer.NewPairSet(16, 16)
	reg := registry.New()
	h := NewHub(m, pairs, reg, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		h.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Error("hub did not stop")
		}
	})

	// Wait until both subscriptions are live: publish a probe quote and
	// wait for it to be counted.
	probe, _ := model.EncodeQuote(model.QuoteEvent{
		Symbol: "PROBE", Bid: 1, Ask: 2, BidSize: 1, AskSize: 1, TsNs: 1,
	})
	deadline := time.Now().Add(2 * time.Second)
	for {
		m.Publish(ctx, bus.TopicQuotes, probe)
		if _, q, _ := h.Stats(); q > 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("hub never consumed the probe quote")
		}
		time.Sleep(time.Millisecond)
	}
	return h, m, pairs, reg
}

func TestHub_TradesLandInRing(t *testing.T) {
	h, m, pairs, _ := startHub(t)
	ctx := context.Background()

	for i := int64(1); i <= 3; i++ {
		raw, _ := model.EncodeTrade(model.TradeEvent{
			Symbol: "AAPL", Price: 100.0 + float64(i), Size: 10, TsNs: i,
		})
		m.Publish(ctx, bus.TopicTrades, raw)
	}

	pair, ok := pairs.Get("AAPL")
	if !ok {
		t.Fatal("no buffer pair created for AAPL")
	}
	got := pair.Trades.Drain()
	if len(got) != 3 {
		t.Fatalf("drained %d trades, want 3", len(got))
	}
	for i, ev := range got {
		if ev.TsNs != int64(i+1) {
			t.Errorf("trade[%d].TsNs = %d, want %d", i, ev.TsNs, i+1)
		}
	}

	if trades, _, _ := h.Stats(); trades != 3 {
		t.Errorf("trade counter = %d, want 3", trades)
	}
}

func TestHub_QuotesHydrateRegistry(t *testing.T) {
	_, m, pairs, reg := startHub(t)
	ctx := context.Background()

	raw, _ := model.EncodeQuote(model.QuoteEvent{
		Symbol: "AAPL", Bid: 100.0, Ask: 100.10, BidSize: 50, AskSize: 150, TsNs: 42,
	})
	m.Publish(ctx, bus.TopicQuotes, raw)

	rec, ok := reg.Get("AAPL")
	if !ok {
		t.Fatal("no registry record for AAPL")
	}
	snap := rec.Snapshot
	if diff := snap.Spread - 0.10; diff < -1e-9 || diff > 1e-9 {
		t.Errorf("spread = %v, want 0.10", snap.Spread)
	}
	if snap.Mid != 100.05 {
		t.Errorf("mid = %v, want 100.05", snap.Mid)
	}
	if snap.Imbalance != -0.5 {
		t.Errorf("imbalance = %v, want -0.5", snap.Imbalance)
	}
	if rec.LastPrice != 100.05 {
		t.Errorf("last price = %v, want 100.05", rec.LastPrice)
	}

	pair, ok := pairs.Get("AAPL")
	if !ok {
		t.Fatal("no buffer pair created for AAPL")
	}
	if pair.Quotes.Len() != 1 {
		t.Errorf("quote ring len = %d, want 1", pair.Quotes.Len())
	}
}

func TestHub_BadMessagesCounted(t *testing.T) {
	h, m, _, _ := startHub(t)
	ctx := context.Background()

	m.Publish(ctx, bus.TopicTrades, []byte(`{"type":"trade","symbol":"AAPL","price":0,"size":1,"ts":1}`))
	m.Publish(ctx, bus.TopicTrades, []byte(`not json`))

	if _, _, bad := h.Stats(); bad != 2 {
		t.Errorf("bad counter = %d, want 2", bad)
	}
}
