package config

import (
	"errors"
	"fmt"
)

// Validate checks that all required fields are set and values are valid.
func (c *Config) Validate() error {
	if c.Feed.URL == "" {
		return errors.New("feed.url is required")
	}
	if c.Feed.APIKey == "" {
		return errors.New("feed.api_key is required")
	}
	if c.Feed.SendQueueSize < 1 {
		return errors.New("feed.send_queue_size must be >= 1")
	}

	if c.Database.Postgres.Enabled() {
		if err := c.Database.Postgres.validate("database.postgres"); err != nil {
			return err
		}
	}

	if c.Buffers.TradeCapacity < 1 {
		return errors.New("buffers.trade_capacity must be >= 1")
	}
	if c.Buffers.QuoteCapacity < 1 {
		return errors.New("buffers.quote_capacity must be >= 1")
	}

	if c.Ingest.Workers < 1 {
		return errors.New("ingest.workers must be >= 1")
	}
	if c.Ingest.QueueSize < 1 {
		return errors.New("ingest.queue_size must be >= 1")
	}

	if c.Bridge.ChartTTL <= 0 {
		return errors.New("bridge.chart_ttl must be positive")
	}
	if c.Bridge.Debounce <= 0 {
		return errors.New("bridge.debounce must be positive")
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be one of debug/info/warn/error, got %q", c.Log.Level)
	}

	return nil
}

func (db *DBConfig) validate(prefix string) error {
	if db.Name == "" {
		return fmt.Errorf("%s.name is required", prefix)
	}
	if db.User == "" {
		return fmt.Errorf("%s.user is required", prefix)
	}
	if db.Password == "" {
		return fmt.Errorf("%s.password is required", prefix)
	}
	if db.MaxConns < 1 {
		return fmt.Errorf("%s.max_conns must be >= 1", prefix)
	}
	if db.MinConns < 0 {
		return fmt.Errorf("%s.min_conns must be >= 0", prefix)
	}
	if db.MinConns > db.MaxConns {
		return fmt.Errorf("%s.min_conns (%d) cannot exceed max_conns (%d)", prefix, db.MinConns, db.MaxConns)
	}
	return nil
}
