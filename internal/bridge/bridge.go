package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/reflex-trading/reflex-data/internal/bus"
	"github.com/reflex-trading/reflex-data/internal/health"
	"github.com/reflex-trading/reflex-data/internal/model"
)

// Defaults for the bridge timing knobs.
const (
	DefaultChartTTL       = 45 * time.Second
	DefaultDebounce       = 150 * time.Millisecond
	DefaultExpireInterval = time.Second
)

// Source identifies a state producer.
type Source string

const (
	SourceOverride  Source = "override"
	SourceEvaluator Source = "evaluator"
	SourceChart     Source = "chart"
	SourceDB        Source = "db"
)

// priority is the resolution order, highest first.
var priority = []Source{SourceOverride, SourceEvaluator, SourceChart, SourceDB}

// StateStore is the persisted symbol-state backend. internal/database
// provides the Postgres implementation.
type StateStore interface {
	// BootstrapStates returns the persisted WARM/HOT symbol states.
	BootstrapStates(ctx context.Context) (map[string]model.State, error)
	// LookupState point-queries one symbol.
	LookupState(ctx context.Context, symbol string) (model.State, bool, error)
}

// Config parameterizes a Bridge.
type Config struct {
	ChartTTL       time.Duration
	Debounce       time.Duration
	ExpireInterval time.Duration
	HealthInterval time.Duration
	Instance       string
}

func (c *Config) applyDefaults() {
	if c.ChartTTL <= 0 {
		c.ChartTTL = DefaultChartTTL
	}
	if c.Debounce <= 0 {
		c.Debounce = DefaultDebounce
	}
	if c.ExpireInterval <= 0 {
		c.ExpireInterval = DefaultExpireInterval
	}
}

// Bridge owns the source maps and the push loop.
type Bridge struct {
	cfg    Config
	bus    bus.Bus
	store  bus.Store
	db     StateStore // nil disables the DB source
	logger *slog.Logger

	// now is swappable for TTL tests.
	now func() time.Time

	mu        sync.Mutex
	sources   map[Source]map[string]model.State
	chartSeen map[string]time.Time
	pushed    bool
	lastTicks []string
	lastWarm  []string // effWarm ∪ effHot as last pushed

	dirty chan struct{}

	updatesIn    atomic.Int64
	invalidIn    atomic.Int64
	dbBootCount  atomic.Int64
	dbNotifyIn   atomic.Int64
	pushOut      atomic.Int64
	chartExpired atomic.Int64
}

// New creates a bridge. db may be nil when no persisted source is
// configured.
func New(cfg Config, b bus.Bus, store bus.Store, db StateStore, logger *slog.Logger) *Bridge {
	cfg.applyDefaults()
	if logger == nil {
		logger = slog.Default()
	}
	br := &Bridge{
		cfg:       cfg,
		bus:       b,
		store:     store,
		db:        db,
		logger:    logger.With("component", "bridge"),
		now:       time.Now,
		sources:   make(map[Source]map[string]model.State),
		chartSeen: make(map[string]time.Time),
		dirty:     make(chan struct{}, 1),
	}
	for _, src := range priority {
		br.sources[src] = make(map[string]model.State)
	}
	return br
}

// Run bootstraps from the DB, subscribes the pub/sub sources, and drives
// the pusher, expirer, and health loops until the context is cancelled.
// A failing bootstrap is fatal; the DB listener reconnects on its own.
func (b *Bridge) Run(ctx context.Context) error {
	if b.db != nil {
		if err := b.Bootstrap(ctx); err != nil {
			return fmt.Errorf("db bootstrap: %w", err)
		}
	}

	topics := map[string]Source{
		bus.TopicStateEvaluator: SourceEvaluator,
		bus.TopicStateOverride:  SourceOverride,
		bus.TopicStateChart:     SourceChart,
	}
	for topic, src := range topics {
		unsub, err := b.bus.Subscribe(ctx, topic, b.sourceHandler(src))
		if err != nil {
			return fmt.Errorf("subscribe %s: %w", topic, err)
		}
		defer unsub()
	}

	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		b.pusher(ctx)
	}()
	go func() {
		defer wg.Done()
		b.expirer(ctx)
	}()
	go func() {
		defer wg.Done()
		health.NewPublisher(b.store, bus.KeyHealthBridge, b.cfg.HealthInterval, b.healthRecord, b.logger).Run(ctx)
	}()

	b.logger.Info("bridge running",
		"chart_ttl", b.cfg.ChartTTL, "debounce", b.cfg.Debounce)

	<-ctx.Done()
	wg.Wait()
	return nil
}

// Apply records one state assertion from a source and marks the bridge
// dirty. The symbol must already be normalized and the state valid.
func (b *Bridge) Apply(src Source, symbol string, state model.State) {
	b.mu.Lock()
	b.sources[src][symbol] = state
	if src == SourceChart {
		b.chartSeen[symbol] = b.now()
	}
	b.mu.Unlock()

	b.updatesIn.Add(1)
	b.signalDirty()
}

// Bootstrap replaces the DB source map with the persisted states.
func (b *Bridge) Bootstrap(ctx context.Context) error {
	states, err := b.db.BootstrapStates(ctx)
	if err != nil {
		return err
	}

	fresh := make(map[string]model.State, len(states))
	for sym, st := range states {
		norm, err := model.NormalizeSymbol(sym)
		if err != nil {
			b.logger.Warn("bootstrap row rejected", "symbol", sym, "error", err)
			continue
		}
		fresh[norm] = st
	}

	b.mu.Lock()
	b.sources[SourceDB] = fresh
	b.mu.Unlock()

	b.dbBootCount.Store(int64(len(fresh)))
	b.logger.Info("db bootstrap complete", "symbols", len(fresh))
	b.signalDirty()
	return nil
}

func (b *Bridge) signalDirty() {
	select {
	case b.dirty <- struct{}{}:
	default:
	}
}

// pusher waits for a dirty signal, sleeps the debounce window to coalesce
// bursts, then recomputes and publishes if anything changed.
func (b *Bridge) pusher(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-b.dirty:
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(b.cfg.Debounce):
		}

		// Consume the signal for updates that landed during the sleep;
		// the recompute below sees them anyway.
		select {
		case <-b.dirty:
		default:
		}

		b.pushIfChanged(ctx)
	}
}

// effective resolves every asserted symbol through the priority order,
// honoring the chart TTL, and returns the sorted tick and quote sets.
func (b *Bridge) effective() (ticks, quotes []string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.effectiveLocked()
}

func (b *Bridge) effectiveLocked() (ticks, quotes []string) {
	now := b.now()
	seen := make(map[string]struct{})
	for _, m := range b.sources {
		for sym := range m {
			seen[sym] = struct{}{}
		}
	}

	for sym := range seen {
		eff := model.StateCold
		for _, src := range priority {
			st, ok := b.sources[src][sym]
			if !ok {
				continue
			}
			if src == SourceChart && now.Sub(b.chartSeen[sym]) > b.cfg.ChartTTL {
				continue
			}
			eff = st
			break
		}
		switch eff {
		case model.StateHot:
			ticks = append(ticks, sym)
			quotes = append(quotes, sym)
		case model.StateWarm:
			quotes = append(quotes, sym)
		}
	}
	sort.Strings(ticks)
	sort.Strings(quotes)
	return ticks, quotes
}

// pushIfChanged publishes both replace commands when the effective sets
// differ from the last push. The first recompute always publishes, giving
// the ingestion processes a defined baseline.
func (b *Bridge) pushIfChanged(ctx context.Context) {
	b.mu.Lock()
	ticks, quotes := b.effectiveLocked()
	changed := !b.pushed || !equalSets(ticks, b.lastTicks) || !equalSets(quotes, b.lastWarm)
	if changed {
		b.pushed = true
		b.lastTicks = ticks
		b.lastWarm = quotes
	}
	b.mu.Unlock()

	if !changed {
		return
	}

	b.publish(ctx, bus.TopicControlTicks, model.ChannelTrades, ticks)
	b.publish(ctx, bus.TopicControlQuotes, model.ChannelQuotes, quotes)
	b.pushOut.Add(1)
	b.logger.Info("pushed subscription sets", "hot", len(ticks), "warm+hot", len(quotes))
}

func (b *Bridge) publish(ctx context.Context, topic string, ch model.Channel, symbols []string) {
	if symbols == nil {
		symbols = []string{}
	}
	payload, err := json.Marshal(bus.ControlCommand{
		Op:      bus.OpReplace,
		Channel: string(ch),
		Symbols: symbols,
	})
	if err != nil {
		b.logger.Error("marshal control command", "error", err)
		return
	}
	if err := b.bus.Publish(ctx, topic, payload); err != nil {
		b.logger.Warn("publish control command", "topic", topic, "error", err)
	}
}

// expirer drops chart entries past their TTL and signals a push when any
// were removed. Separate from the debounce path so an idle bridge still
// decays chart state.
func (b *Bridge) expirer(ctx context.Context) {
	ticker := time.NewTicker(b.cfg.ExpireInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			b.expireOnce()
		}
	}
}

func (b *Bridge) expireOnce() {
	now := b.now()
	var removed int

	b.mu.Lock()
	for sym, ts := range b.chartSeen {
		if now.Sub(ts) > b.cfg.ChartTTL {
			delete(b.chartSeen, sym)
			delete(b.sources[SourceChart], sym)
			removed++
		}
	}
	b.mu.Unlock()

	if removed > 0 {
		b.chartExpired.Add(int64(removed))
		b.logger.Info("chart entries expired", "removed", removed)
		b.signalDirty()
	}
}

type healthRecord struct {
	Proc         string         `json:"proc"`
	Sources      map[string]int `json:"sources"`
	EffHot       int            `json:"eff_hot"`
	EffWarm      int            `json:"eff_warm"`
	UpdatesIn    int64          `json:"updates_in"`
	InvalidIn    int64          `json:"invalid_in"`
	DBBootCount  int64          `json:"db_boot_count"`
	DBNotifyIn   int64          `json:"db_notify_in"`
	PushOut      int64          `json:"push_out"`
	ChartExpired int64          `json:"chart_expired"`
	Ts           int64          `json:"ts"`
	Instance     string         `json:"instance,omitempty"`
}

func (b *Bridge) healthRecord() any {
	b.mu.Lock()
	sizes := make(map[string]int, len(b.sources))
	for src, m := range b.sources {
		sizes[string(src)] = len(m)
	}
	hot := len(b.lastTicks)
	warm := len(b.lastWarm) - hot
	b.mu.Unlock()
	if warm < 0 {
		warm = 0
	}

	return healthRecord{
		Proc:         "bridge",
		Sources:      sizes,
		EffHot:       hot,
		EffWarm:      warm,
		UpdatesIn:    b.updatesIn.Load(),
		InvalidIn:    b.invalidIn.Load(),
		DBBootCount:  b.dbBootCount.Load(),
		DBNotifyIn:   b.dbNotifyIn.Load(),
		PushOut:      b.pushOut.Load(),
		ChartExpired: b.chartExpired.Load(),
		Ts:           time.Now().UnixMilli(),
		Instance:     b.cfg.Instance,
	}
}

func equalSets(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
