// ingestd runs the market-data ingestion daemon: one WebSocket client per
// upstream channel (trades, quotes), the normalizing workers that publish
// onto the bus, and the in-process data hub that keeps ring buffers and the
// symbol registry current.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/reflex-trading/reflex-data/internal/buffer"
	"github.com/reflex-trading/reflex-data/internal/bus"
	"github.com/reflex-trading/reflex-data/internal/config"
	"github.com/reflex-trading/reflex-data/internal/datahub"
	"github.com/reflex-trading/reflex-data/internal/feed"
	"github.com/reflex-trading/reflex-data/internal/ingest"
	"github.com/reflex-trading/reflex-data/internal/model"
	"github.com/reflex-trading/reflex-data/internal/registry"
	"github.com/reflex-trading/reflex-data/internal/version"
)

func main() {
	configPath := flag.String("config", "configs/reflex.local.yaml", "path to config file")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	logger.Info("starting ingestd",
		"version", version.Version,
		"commit", version.Commit,
		"config", *configPath,
	)

	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel(cfg.Log.Level),
	}))
	slog.SetDefault(logger)

	instanceID := cfg.Instance.ID
	if instanceID == "" {
		instanceID = uuid.NewString()
	}
	logger.Info("configuration loaded", "instance_id", instanceID, "feed_url", cfg.Feed.URL)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Message bus: Redis when configured, in-process otherwise. The
	// in-process bus still feeds the data hub but is invisible to bridged.
	var msgBus interface {
		bus.Bus
		bus.Store
	}
	if cfg.Redis.URL != "" {
		rb, err := bus.NewRedis(ctx, cfg.Redis.URL, logger)
		if err != nil {
			logger.Error("failed to connect to redis", "error", err)
			os.Exit(1)
		}
		defer rb.Close()
		msgBus = rb
		logger.Info("redis bus connected")
	} else {
		msgBus = bus.NewMemory(logger)
		logger.Warn("no redis url configured, using in-process bus")
	}

	pairs := buffer.NewPairSet(cfg.Buffers.TradeCapacity, cfg.Buffers.QuoteCapacity)
	reg := registry.New()
	hub := datahub.NewHub(msgBus, pairs, reg, logger)

	newClient := func(ch model.Channel) *feed.Client {
		return feed.NewClient(feed.ClientConfig{
			URL:              cfg.Feed.URL,
			APIKey:           cfg.Feed.APIKey,
			Name:             "feed-" + string(ch),
			Reconnect:        true,
			MaxBackoff:       cfg.Feed.ReconnectMaxDelay,
			PingInterval:     cfg.Feed.PingInterval,
			PongTimeout:      cfg.Feed.PongTimeout,
			WriteTimeout:     cfg.Feed.WriteTimeout,
			HandshakeTimeout: cfg.Feed.HandshakeTimeout,
			SendQueueSize:    cfg.Feed.SendQueueSize,
		}, logger)
	}
	tickClient := newClient(model.ChannelTrades)
	quoteClient := newClient(model.ChannelQuotes)

	newProcess := func(ch model.Channel, client *feed.Client) *ingest.Process {
		p, err := ingest.NewProcess(ingest.Config{
			Channel:        ch,
			Workers:        cfg.Ingest.Workers,
			QueueSize:      cfg.Ingest.QueueSize,
			HealthInterval: cfg.Health.Interval,
			Instance:       instanceID,
		}, client, msgBus, msgBus, logger)
		if err != nil {
			logger.Error("failed to create ingestion process", "channel", ch, "error", err)
			os.Exit(1)
		}
		return p
	}
	tickProc := newProcess(model.ChannelTrades, tickClient)
	quoteProc := newProcess(model.ChannelQuotes, quoteClient)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return hub.Run(gctx) })
	g.Go(func() error { return tickProc.Run(gctx) })
	g.Go(func() error { return quoteProc.Run(gctx) })

	tickClient.Start(gctx)
	quoteClient.Start(gctx)

	logger.Info("ingestd running", "instance_id", instanceID)

	<-gctx.Done()
	logger.Info("shutting down...")

	tickClient.Stop(5 * time.Second)
	quoteClient.Stop(5 * time.Second)

	if err := g.Wait(); err != nil && err != context.Canceled {
		logger.Error("component failed", "error", err)
		os.Exit(1)
	}
	logger.Info("ingestd stopped")
}

func logLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
