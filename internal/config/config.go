package config

import "time"

// Config is the root configuration shared by the reflex-data daemons.
type Config struct {
	Instance InstanceConfig `yaml:"instance"`
	Feed     FeedConfig     `yaml:"feed"`
	Redis    RedisConfig    `yaml:"redis"`
	Database DatabaseConfig `yaml:"database"`
	Buffers  BuffersConfig  `yaml:"buffers"`
	Ingest   IngestConfig   `yaml:"ingest"`
	Bridge   BridgeConfig   `yaml:"bridge"`
	Health   HealthConfig   `yaml:"health"`
	Log      LogConfig      `yaml:"log"`
}

// InstanceConfig identifies this process. An empty ID gets a generated UUID
// at startup.
type InstanceConfig struct {
	ID string `yaml:"id"`
}

// FeedConfig holds the upstream WebSocket feed settings.
type FeedConfig struct {
	URL               string        `yaml:"url"`
	APIKey            string        `yaml:"api_key"`
	ReconnectMaxDelay time.Duration `yaml:"reconnect_max_delay"`
	PingInterval      time.Duration `yaml:"ping_interval"`
	PongTimeout       time.Duration `yaml:"pong_timeout"`
	WriteTimeout      time.Duration `yaml:"write_timeout"`
	HandshakeTimeout  time.Duration `yaml:"handshake_timeout"`
	SendQueueSize     int           `yaml:"send_queue_size"`
}

// RedisConfig holds the message-bus connection. An empty URL selects the
// in-process bus, which only makes sense for single-binary deployments and
// tests.
type RedisConfig struct {
	URL string `yaml:"url"`
}

// DatabaseConfig holds the Postgres connection used by the bridge for the
// persisted symbol-state source. An empty host disables the DB source.
type DatabaseConfig struct {
	Postgres DBConfig `yaml:"postgres"`
}

// DBConfig holds a single database connection.
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}

// Enabled reports whether a DB connection is configured at all.
func (db DBConfig) Enabled() bool {
	return db.Host != ""
}

// BuffersConfig sizes the per-symbol ring buffers.
type BuffersConfig struct {
	TradeCapacity int `yaml:"trade_capacity"`
	QuoteCapacity int `yaml:"quote_capacity"`
}

// IngestConfig holds the per-channel ingestion settings.
type IngestConfig struct {
	Workers   int `yaml:"workers"`
	QueueSize int `yaml:"queue_size"`
}

// BridgeConfig holds the state-bridge timing knobs.
type BridgeConfig struct {
	ChartTTL       time.Duration `yaml:"chart_ttl"`
	Debounce       time.Duration `yaml:"debounce"`
	ExpireInterval time.Duration `yaml:"expire_interval"`
}

// HealthConfig holds the health publication cadence.
type HealthConfig struct {
	Interval time.Duration `yaml:"interval"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `yaml:"level"`
}
