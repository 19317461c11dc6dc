package feed

import (
	"encoding/json"
	"errors"
	"time"
)

// Errors
var (
	ErrNotConnected = errors.New("not connected")
	ErrQueueFull    = errors.New("send queue full")
	ErrStopped      = errors.New("client stopped")
)

// EventHandler consumes one inbound event. Handlers run on the read loop;
// a panicking handler is recovered and does not break dispatch.
type EventHandler func(ev json.RawMessage)

// WildcardTag registers a handler for every event tag. Wildcard handlers
// run after the tag-specific ones.
const WildcardTag = "*"

// ClientConfig configures a feed WebSocket client.
type ClientConfig struct {
	URL              string        // Upstream endpoint (wss://...)
	APIKey           string        // Sent in the auth frame right after connect
	Name             string        // Logging name (e.g. "feed-T")
	Reconnect        bool          // Reconnect after disconnects
	MaxBackoff       time.Duration // Reconnect delay cap
	PingInterval     time.Duration // Client ping cadence
	PongTimeout      time.Duration // Max wait for a pong before forcing reconnect
	WriteTimeout     time.Duration // Write deadline per frame
	HandshakeTimeout time.Duration // Dial deadline
	SendQueueSize    int           // Bounded outbound queue capacity
}

// DefaultClientConfig returns the production defaults.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		Name:             "feed",
		Reconnect:        true,
		MaxBackoff:       60 * time.Second,
		PingInterval:     20 * time.Second,
		PongTimeout:      10 * time.Second,
		WriteTimeout:     5 * time.Second,
		HandshakeTimeout: 10 * time.Second,
		SendQueueSize:    10_000,
	}
}

func (c *ClientConfig) applyDefaults() {
	d := DefaultClientConfig()
	if c.Name == "" {
		c.Name = d.Name
	}
	if c.MaxBackoff == 0 {
		c.MaxBackoff = d.MaxBackoff
	}
	if c.PingInterval == 0 {
		c.PingInterval = d.PingInterval
	}
	if c.PongTimeout == 0 {
		c.PongTimeout = d.PongTimeout
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = d.WriteTimeout
	}
	if c.HandshakeTimeout == 0 {
		c.HandshakeTimeout = d.HandshakeTimeout
	}
	if c.SendQueueSize == 0 {
		c.SendQueueSize = d.SendQueueSize
	}
}

// actionMsg is the outbound control frame shape: auth, subscribe,
// unsubscribe all share it.
type actionMsg struct {
	Action string `json:"action"`
	Params string `json:"params"`
}

// eventEnvelope is the minimal inbound frame shape used for dispatch.
type eventEnvelope struct {
	Ev      string `json:"ev"`
	Status  string `json:"status"`
	Message string `json:"message"`
}
