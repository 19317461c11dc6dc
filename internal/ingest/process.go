package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/reflex-trading/reflex-data/internal/bus"
	"github.com/reflex-trading/reflex-data/internal/feed"
	"github.com/reflex-trading/reflex-data/internal/health"
	"github.com/reflex-trading/reflex-data/internal/model"
)

// DefaultWorkers drains the work queue.
const DefaultWorkers = 2

// Subscriber is the slice of the feed client the process drives. feed.Client
// satisfies it.
type Subscriber interface {
	RegisterHandler(tag string, fn feed.EventHandler)
	Subscribe(symbols []string, ch model.Channel)
	Unsubscribe(symbols []string, ch model.Channel)
	Replace(symbols []string, ch model.Channel)
	Subscribed(ch model.Channel) []string
}

// Config parameterizes a Process.
type Config struct {
	Channel        model.Channel // T or Q
	Workers        int
	QueueSize      int
	HealthInterval time.Duration
	Instance       string // stamped on health records
}

// Process is one ingestion role: raw events in, normalized bus messages out,
// control commands applied to the feed client.
type Process struct {
	cfg    Config
	client Subscriber
	bus    bus.Bus
	store  bus.Store
	queue  *workQueue
	logger *slog.Logger

	dataTopic    string
	controlTopic string
	healthKey    string
	procName     string

	processed  atomic.Int64
	droppedBad atomic.Int64
	controlIn  atomic.Int64
	controlBad atomic.Int64
}

// NewProcess wires a process for the given channel. Only T and Q are valid
// roles.
func NewProcess(cfg Config, client Subscriber, b bus.Bus, store bus.Store, logger *slog.Logger) (*Process, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers
	}

	p := &Process{
		cfg:    cfg,
		client: client,
		bus:    b,
		store:  store,
		logger: logger.With("proc", string(cfg.Channel)),
	}

	switch cfg.Channel {
	case model.ChannelTrades:
		p.dataTopic = bus.TopicTrades
		p.controlTopic = bus.TopicControlTicks
		p.healthKey = bus.KeyHealthTickProc
		p.procName = "tick"
	case model.ChannelQuotes:
		p.dataTopic = bus.TopicQuotes
		p.controlTopic = bus.TopicControlQuotes
		p.healthKey = bus.KeyHealthQuoteProc
		p.procName = "quote"
	default:
		return nil, fmt.Errorf("unsupported ingest channel %q", cfg.Channel)
	}

	p.queue = newWorkQueue(cfg.QueueSize, p.logger)
	return p, nil
}

// Run blocks until the context is cancelled. It registers the feed handler,
// starts the workers and the control listener, and publishes health records.
func (p *Process) Run(ctx context.Context) error {
	unsub, err := p.bus.Subscribe(ctx, p.controlTopic, p.handleControl)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", p.controlTopic, err)
	}
	defer unsub()

	p.client.RegisterHandler(string(p.cfg.Channel), p.queue.Enqueue)

	var wg sync.WaitGroup
	for i := 0; i < p.cfg.Workers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			p.worker(ctx, id)
		}(i)
	}

	pub := health.NewPublisher(p.store, p.healthKey, p.cfg.HealthInterval, p.healthRecord, p.logger)
	wg.Add(1)
	go func() {
		defer wg.Done()
		pub.Run(ctx)
	}()

	p.logger.Info("ingestion running",
		"workers", p.cfg.Workers, "queue", cap(p.queue.ch), "topic", p.dataTopic)

	<-ctx.Done()
	wg.Wait()
	return nil
}

func (p *Process) worker(ctx context.Context, id int) {
	for {
		raw, ok := p.queue.Dequeue(ctx)
		if !ok {
			return
		}
		p.handle(ctx, raw)
	}
}

// handle parses one raw event and publishes its normalized form. Events
// failing validation are dropped and counted.
func (p *Process) handle(ctx context.Context, raw json.RawMessage) {
	var (
		payload []byte
		err     error
	)
	switch p.cfg.Channel {
	case model.ChannelTrades:
		var t model.TradeEvent
		if t, err = parseTrade(raw); err == nil {
			payload, err = model.EncodeTrade(t)
		}
	case model.ChannelQuotes:
		var q model.QuoteEvent
		if q, err = parseQuote(raw); err == nil {
			payload, err = model.EncodeQuote(q)
		}
	}
	if err != nil {
		p.droppedBad.Add(1)
		p.logger.Debug("dropping event", "error", err)
		return
	}

	if err := p.bus.Publish(ctx, p.dataTopic, payload); err != nil {
		p.logger.Warn("publish failed", "topic", p.dataTopic, "error", err)
		return
	}
	p.processed.Add(1)
}

// handleControl applies one control command. Commands addressed to another
// channel are ignored with a warning.
func (p *Process) handleControl(payload []byte) {
	p.controlIn.Add(1)

	var cmd bus.ControlCommand
	if err := json.Unmarshal(payload, &cmd); err != nil {
		p.controlBad.Add(1)
		p.logger.Warn("malformed control command", "error", err)
		return
	}
	if cmd.Channel != string(p.cfg.Channel) {
		p.controlBad.Add(1)
		p.logger.Warn("control command for wrong channel",
			"got", cmd.Channel, "want", string(p.cfg.Channel))
		return
	}

	switch cmd.Op {
	case bus.OpSubscribe:
		p.client.Subscribe(cmd.Symbols, p.cfg.Channel)
	case bus.OpUnsubscribe:
		p.client.Unsubscribe(cmd.Symbols, p.cfg.Channel)
	case bus.OpReplace:
		p.client.Replace(cmd.Symbols, p.cfg.Channel)
	default:
		p.controlBad.Add(1)
		p.logger.Warn("unknown control op", "op", cmd.Op)
		return
	}
	p.logger.Info("applied control command", "op", cmd.Op, "symbols", len(cmd.Symbols))
}

type healthRecord struct {
	Proc      string              `json:"proc"`
	Processed int64               `json:"processed"`
	Dropped   int64               `json:"dropped"`
	QSize     int                 `json:"qsize"`
	Subs      map[string][]string `json:"subs"`
	Ts        int64               `json:"ts"`
	Instance  string              `json:"instance,omitempty"`
}

func (p *Process) healthRecord() any {
	return healthRecord{
		Proc:      p.procName,
		Processed: p.processed.Load(),
		Dropped:   p.droppedBad.Load() + p.queue.Dropped(),
		QSize:     p.queue.Len(),
		Subs: map[string][]string{
			string(p.cfg.Channel): p.client.Subscribed(p.cfg.Channel),
		},
		Ts:       time.Now().UnixMilli(),
		Instance: p.cfg.Instance,
	}
}

// Processed returns the count of events normalized and published.
func (p *Process) Processed() int64 { return p.processed.Load() }

// Dropped returns events lost to validation failures or queue overflow.
func (p *Process) Dropped() int64 { return p.droppedBad.Load() + p.queue.Dropped() }
