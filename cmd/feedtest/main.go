// feedtest connects to the upstream feed and streams parsed events to the
// console. Usage:
//
//	go run ./cmd/feedtest --config configs/reflex.local.yaml --symbols AAPL,MSFT
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/reflex-trading/reflex-data/internal/config"
	"github.com/reflex-trading/reflex-data/internal/feed"
	"github.com/reflex-trading/reflex-data/internal/model"
)

func main() {
	configPath := flag.String("config", "configs/reflex.local.yaml", "path to config file")
	symbols := flag.String("symbols", "AAPL,MSFT", "comma-separated symbols to subscribe")
	verbose := flag.Bool("verbose", false, "print full event JSON")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))

	cfg, err := config.LoadWithDefaults(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if cfg.Feed.APIKey == "" {
		logger.Error("feed.api_key is required")
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal")
		cancel()
	}()

	client := feed.NewClient(feed.ClientConfig{
		URL:              cfg.Feed.URL,
		APIKey:           cfg.Feed.APIKey,
		Name:             "feedtest",
		Reconnect:        true,
		MaxBackoff:       cfg.Feed.ReconnectMaxDelay,
		PingInterval:     cfg.Feed.PingInterval,
		PongTimeout:      cfg.Feed.PongTimeout,
		WriteTimeout:     cfg.Feed.WriteTimeout,
		HandshakeTimeout: cfg.Feed.HandshakeTimeout,
		SendQueueSize:    cfg.Feed.SendQueueSize,
	}, logger)

	client.RegisterHandler("T", printEvent("TRADE", *verbose))
	client.RegisterHandler("Q", printEvent("QUOTE", *verbose))
	client.RegisterHandler("status", func(ev json.RawMessage) {
		fmt.Printf("[STATUS] %s\n", ev)
	})

	syms := strings.Split(*symbols, ",")
	client.Subscribe(syms, model.ChannelTrades)
	client.Subscribe(syms, model.ChannelQuotes)

	client.Start(ctx)

	// Stats printer
	go func() {
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				logger.Info("stats",
					"connected", client.IsConnected(),
					"authenticated", client.IsAuthenticated(),
					"trades_subscribed", len(client.Subscribed(model.ChannelTrades)),
					"quotes_subscribed", len(client.Subscribed(model.ChannelQuotes)),
					"dropped_outbound", client.DroppedOutbound(),
				)
			}
		}
	}()

	logger.Info("streaming started - press Ctrl+C to stop", "symbols", *symbols)

	<-ctx.Done()

	logger.Info("shutting down...")
	client.Stop(5 * time.Second)
	logger.Info("shutdown complete")
}

func printEvent(label string, verbose bool) feed.EventHandler {
	return func(ev json.RawMessage) {
		if verbose {
			data, _ := json.MarshalIndent(ev, "", "  ")
			fmt.Printf("[%s] %s\n", label, data)
			return
		}
		fmt.Printf("[%s] %s\n", label, ev)
	}
}
