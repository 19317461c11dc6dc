package database

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// NotifyChannel is the Postgres channel carrying symbol-state changes.
const NotifyChannel = "reflex_state_changes"

// reconnectDelay paces listener reconnects after a dropped connection.
const reconnectDelay = time.Second

// NotifyHandler consumes one notification payload.
type NotifyHandler func(ctx context.Context, payload []byte)

// ListenStateChanges holds a dedicated connection on LISTEN and feeds every
// notification to fn. It blocks until the context is cancelled, reconnecting
// with a fixed backoff when the connection drops.
func ListenStateChanges(ctx context.Context, pool *pgxpool.Pool, fn NotifyHandler, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "db-listener", "channel", NotifyChannel)

	for {
		if ctx.Err() != nil {
			return
		}
		if err := listenOnce(ctx, pool, fn); err != nil && ctx.Err() == nil {
			logger.Warn("listener disconnected", "error", err)
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(reconnectDelay):
		}
	}
}

func listenOnce(ctx context.Context, pool *pgxpool.Pool, fn NotifyHandler) error {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "LISTEN "+NotifyChannel); err != nil {
		return err
	}

	for {
		n, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			return err
		}
		fn(ctx, []byte(n.Payload))
	}
}
