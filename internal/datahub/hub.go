package datahub

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/reflex-trading/reflex-data/internal/buffer"
	"github.com/reflex-trading/reflex-data/internal/bus"
	"github.com/reflex-trading/reflex-data/internal/model"
	"github.com/reflex-trading/reflex-data/internal/registry"
)

// Hub routes normalized bus messages into buffers and the registry.
type Hub struct {
	bus      bus.Bus
	pairs    *buffer.PairSet
	registry *registry.Registry
	logger   *slog.Logger

	tradesIn atomic.Int64
	quotesIn atomic.Int64
	badIn    atomic.Int64
}

// NewHub wires a hub over existing buffers and registry.
func NewHub(b bus.Bus, pairs *buffer.PairSet, reg *registry.Registry, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		bus:      b,
		pairs:    pairs,
		registry: reg,
		logger:   logger.With("component", "datahub"),
	}
}

// Run subscribes both data topics and blocks until the context is
// cancelled.
func (h *Hub) Run(ctx context.Context) error {
	unsubT, err := h.bus.Subscribe(ctx, bus.TopicTrades, h.onTrade)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", bus.TopicTrades, err)
	}
	defer unsubT()

	unsubQ, err := h.bus.Subscribe(ctx, bus.TopicQuotes, h.onQuote)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", bus.TopicQuotes, err)
	}
	defer unsubQ()

	h.logger.Info("datahub running")
	<-ctx.Done()
	return nil
}

func (h *Hub) onTrade(payload []byte) {
	ev, err := model.DecodeTrade(payload)
	if err != nil {
		h.badIn.Add(1)
		h.logger.Debug("bad trade message", "error", err)
		return
	}
	h.pairs.Ensure(ev.Symbol).Trades.Append(ev)
	h.registry.GetOrCreate(ev.Symbol)
	h.tradesIn.Add(1)
}

func (h *Hub) onQuote(payload []byte) {
	ev, err := model.DecodeQuote(payload)
	if err != nil {
		h.badIn.Add(1)
		h.logger.Debug("bad quote message", "error", err)
		return
	}
	h.pairs.Ensure(ev.Symbol).Quotes.Append(ev)
	registry.Hydrate(h.registry, ev)
	h.quotesIn.Add(1)
}

// Stats reports the hub's message counters.
func (h *Hub) Stats() (trades, quotes, bad int64) {
	return h.tradesIn.Load(), h.quotesIn.Load(), h.badIn.Load()
}
