package bus

import "context"

// Well-known topics and health keys. Names are shared with the rest of the
// reflex deployment and must not change without coordinating consumers.
const (
	TopicControlTicks  = "reflex:wsctl:ticks"
	TopicControlQuotes = "reflex:wsctl:quotes"

	TopicStateEvaluator = "reflex:state:evaluator"
	TopicStateOverride  = "reflex:state:override"
	TopicStateChart     = "reflex:state:chart"

	TopicTrades = "reflex:bus:trades"
	TopicQuotes = "reflex:bus:quotes"

	KeyHealthTickProc  = "reflex:health:tick_proc"
	KeyHealthQuoteProc = "reflex:health:quote_proc"
	KeyHealthBridge    = "reflex:health:state_bridge"
)

// Handler consumes one published payload. Handlers run on the publisher's
// goroutine for the Memory bus and on a per-subscription goroutine for the
// Redis bus; they must not block for long.
type Handler func(payload []byte)

// Bus is a topic-based publish/subscribe transport.
type Bus interface {
	// Publish delivers the payload to all subscribers of topic. Within one
	// topic, a given subscriber observes payloads in publish order.
	Publish(ctx context.Context, topic string, payload []byte) error

	// Subscribe registers a handler for a topic and returns an unsubscribe
	// function. The subscription ends when either the returned function is
	// called or ctx is cancelled.
	Subscribe(ctx context.Context, topic string, fn Handler) (func(), error)
}

// Store is a key/value store for health records. Set overwrites; records
// are never appended.
type Store interface {
	Set(ctx context.Context, key string, value []byte) error
	Get(ctx context.Context, key string) ([]byte, bool, error)
}
