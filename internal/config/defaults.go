package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultFeedURL           = "wss://socket.polygon.io/stocks"
	DefaultReconnectMaxDelay = 60 * time.Second
	DefaultPingInterval      = 20 * time.Second
	DefaultPongTimeout       = 10 * time.Second
	DefaultWriteTimeout      = 5 * time.Second
	DefaultHandshakeTimeout  = 10 * time.Second
	DefaultSendQueueSize     = 10_000
	DefaultDBPort            = 5432
	DefaultDBSSLMode         = "prefer"
	DefaultMaxConns          = 10
	DefaultMinConns          = 2
	DefaultTradeCapacity     = 200_000
	DefaultQuoteCapacity     = 300_000
	DefaultIngestWorkers     = 2
	DefaultIngestQueueSize   = 200_000
	DefaultChartTTL          = 45 * time.Second
	DefaultDebounce          = 150 * time.Millisecond
	DefaultExpireInterval    = 1 * time.Second
	DefaultHealthInterval    = 2 * time.Second
	DefaultLogLevel          = "info"
)

func (c *Config) applyDefaults() {
	// Feed defaults
	if c.Feed.URL == "" {
		c.Feed.URL = DefaultFeedURL
	}
	if c.Feed.ReconnectMaxDelay == 0 {
		c.Feed.ReconnectMaxDelay = DefaultReconnectMaxDelay
	}
	if c.Feed.PingInterval == 0 {
		c.Feed.PingInterval = DefaultPingInterval
	}
	if c.Feed.PongTimeout == 0 {
		c.Feed.PongTimeout = DefaultPongTimeout
	}
	if c.Feed.WriteTimeout == 0 {
		c.Feed.WriteTimeout = DefaultWriteTimeout
	}
	if c.Feed.HandshakeTimeout == 0 {
		c.Feed.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if c.Feed.SendQueueSize == 0 {
		c.Feed.SendQueueSize = DefaultSendQueueSize
	}

	// Database defaults
	applyDBDefaults(&c.Database.Postgres)

	// Buffer defaults
	if c.Buffers.TradeCapacity == 0 {
		c.Buffers.TradeCapacity = DefaultTradeCapacity
	}
	if c.Buffers.QuoteCapacity == 0 {
		c.Buffers.QuoteCapacity = DefaultQuoteCapacity
	}

	// Ingest defaults
	if c.Ingest.Workers == 0 {
		c.Ingest.Workers = DefaultIngestWorkers
	}
	if c.Ingest.QueueSize == 0 {
		c.Ingest.QueueSize = DefaultIngestQueueSize
	}

	// Bridge defaults
	if c.Bridge.ChartTTL == 0 {
		c.Bridge.ChartTTL = DefaultChartTTL
	}
	if c.Bridge.Debounce == 0 {
		c.Bridge.Debounce = DefaultDebounce
	}
	if c.Bridge.ExpireInterval == 0 {
		c.Bridge.ExpireInterval = DefaultExpireInterval
	}

	// Health defaults
	if c.Health.Interval == 0 {
		c.Health.Interval = DefaultHealthInterval
	}

	// Log defaults
	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
}

func applyDBDefaults(db *DBConfig) {
	if db.Port == 0 {
		db.Port = DefaultDBPort
	}
	if db.SSLMode == "" {
		db.SSLMode = DefaultDBSSLMode
	}
	if db.MaxConns == 0 {
		db.MaxConns = DefaultMaxConns
	}
	if db.MinConns == 0 {
		db.MinConns = DefaultMinConns
	}
}
