package health

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/reflex-trading/reflex-data/internal/bus"
)

// DefaultInterval is the publication cadence.
const DefaultInterval = 2 * time.Second

// SnapshotFunc builds the current health record. It is called on every tick
// and must be cheap.
type SnapshotFunc func() any

// Publisher writes a health record to one store key on a fixed interval.
type Publisher struct {
	store    bus.Store
	key      string
	interval time.Duration
	snapshot SnapshotFunc
	logger   *slog.Logger
}

// NewPublisher creates a publisher. A zero interval means DefaultInterval.
func NewPublisher(store bus.Store, key string, interval time.Duration, fn SnapshotFunc, logger *slog.Logger) *Publisher {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{
		store:    store,
		key:      key,
		interval: interval,
		snapshot: fn,
		logger:   logger,
	}
}

// Run publishes until the context is cancelled. One record is written
// immediately so the key exists before the first full interval elapses.
func (p *Publisher) Run(ctx context.Context) {
	p.publish(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.publish(ctx)
		}
	}
}

func (p *Publisher) publish(ctx context.Context) {
	rec := p.snapshot()
	raw, err := json.Marshal(rec)
	if err != nil {
		p.logger.Error("marshal health record", "key", p.key, "error", err)
		return
	}
	if err := p.store.Set(ctx, p.key, raw); err != nil {
		p.logger.Warn("write health record", "key", p.key, "error", err)
	}
}
