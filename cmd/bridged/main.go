// bridged runs the state→subscription bridge: it merges desired symbol
// states from the database, the evaluator, operator overrides, and chart
// viewers, and pushes the resulting subscription sets to the ingestion
// daemons over the control bus.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/reflex-trading/reflex-data/internal/bridge"
	"github.com/reflex-trading/reflex-data/internal/bus"
	"github.com/reflex-trading/reflex-data/internal/config"
	"github.com/reflex-trading/reflex-data/internal/database"
	"github.com/reflex-trading/reflex-data/internal/version"
)

func main() {
	configPath := flag.String("config", "configs/reflex.local.yaml", "path to config file")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	logger.Info("starting bridged",
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

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

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

	// The DB source is optional: without it the bridge runs on the pub/sub
	// sources alone.
	var stateStore bridge.StateStore
	var dbPool interface{ Close() }
	var listen func(ctx context.Context, br *bridge.Bridge)
	if cfg.Database.Postgres.Enabled() {
		logger.Info("connecting to database",
			"host", cfg.Database.Postgres.Host,
			"database", cfg.Database.Postgres.Name,
		)
		p, err := database.Connect(ctx, cfg.Database.Postgres)
		if err != nil {
			logger.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		dbPool = p
		stateStore = database.NewStateStore(p, logger)
		listen = func(ctx context.Context, br *bridge.Bridge) {
			database.ListenStateChanges(ctx, p, br.HandleDBNotify, logger)
		}
		logger.Info("database connected")
	}
	if dbPool != nil {
		defer dbPool.Close()
	}

	br := bridge.New(bridge.Config{
		ChartTTL:       cfg.Bridge.ChartTTL,
		Debounce:       cfg.Bridge.Debounce,
		ExpireInterval: cfg.Bridge.ExpireInterval,
		HealthInterval: cfg.Health.Interval,
		Instance:       instanceID,
	}, msgBus, msgBus, stateStore, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return br.Run(gctx) })
	if listen != nil {
		g.Go(func() error {
			listen(gctx, br)
			return nil
		})
	}

	logger.Info("bridged running", "instance_id", instanceID)

	if err := g.Wait(); err != nil && err != context.Canceled {
		logger.Error("component failed", "error", err)
		os.Exit(1)
	}
	logger.Info("bridged stopped")
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
