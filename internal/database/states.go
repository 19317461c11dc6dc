package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/reflex-trading/reflex-data/internal/model"
)

// StateStore reads the persisted symbol states used by the bridge.
type StateStore struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewStateStore wraps an existing pool.
func NewStateStore(pool *pgxpool.Pool, logger *slog.Logger) *StateStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &StateStore{pool: pool, logger: logger.With("component", "state-store")}
}

// BootstrapStates loads every WARM/HOT symbol. The do_not_trade filter is
// applied only when the column exists, so the store works against older
// schemas.
func (s *StateStore) BootstrapStates(ctx context.Context) (map[string]model.State, error) {
	hasDNT, err := s.columnExists(ctx, "symbol_state", "do_not_trade")
	if err != nil {
		return nil, fmt.Errorf("check do_not_trade column: %w", err)
	}

	query := `SELECT symbol, state FROM symbol_state WHERE state IN ('WARM','HOT')`
	if hasDNT {
		query += ` AND COALESCE(do_not_trade, FALSE) = FALSE`
	}

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("bootstrap query: %w", err)
	}
	defer rows.Close()

	out := make(map[string]model.State)
	for rows.Next() {
		var symbol, state string
		if err := rows.Scan(&symbol, &state); err != nil {
			return nil, fmt.Errorf("scan bootstrap row: %w", err)
		}
		st, err := model.ParseState(state)
		if err != nil {
			s.logger.Warn("bootstrap row with bad state", "symbol", symbol, "state", state)
			continue
		}
		out[symbol] = st
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("bootstrap rows: %w", err)
	}
	return out, nil
}

// LookupState point-queries one symbol's persisted state.
func (s *StateStore) LookupState(ctx context.Context, symbol string) (model.State, bool, error) {
	var state string
	err := s.pool.QueryRow(ctx,
		`SELECT state FROM symbol_state WHERE symbol = $1`, symbol).Scan(&state)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("lookup %s: %w", symbol, err)
	}

	st, err := model.ParseState(state)
	if err != nil {
		return "", false, fmt.Errorf("lookup %s: %w", symbol, err)
	}
	return st, true, nil
}

func (s *StateStore) columnExists(ctx context.Context, table, column string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (
			SELECT 1 FROM information_schema.columns
			WHERE table_name = $1 AND column_name = $2
		)`, table, column).Scan(&exists)
	return exists, err
}
