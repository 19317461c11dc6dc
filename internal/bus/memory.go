package bus

import (
	"context"
	"log/slog"
	"sync"
)

// DefaultHistorySize bounds the recent-message ring kept by the Memory bus.
const DefaultHistorySize = 512

// TopicMessage is one entry of the recent-history ring.
type TopicMessage struct {
	Topic   string
	Payload []byte
}

type memorySub struct {
	id int64
	fn Handler
}

// Memory is an in-process Bus and Store. Publish fans out synchronously to
// subscribers in registration order, then records the message in a bounded
// history ring. A panicking subscriber is recovered and logged; it never
// aborts delivery to the others.
type Memory struct {
	logger *slog.Logger

	mu      sync.Mutex
	nextID  int64
	subs    map[string][]memorySub
	history []TopicMessage
	histCap int

	kvMu sync.RWMutex
	kv   map[string][]byte
}

// NewMemory creates an in-process bus with the default history size.
func NewMemory(logger *slog.Logger) *Memory {
	if logger == nil {
		logger = slog.Default()
	}
	return &Memory{
		logger:  logger,
		subs:    make(map[string][]memorySub),
		histCap: DefaultHistorySize,
		kv:      make(map[string][]byte),
	}
}

// Publish implements Bus.
func (m *Memory) Publish(_ context.Context, topic string, payload []byte) error {
	m.mu.Lock()
	subs := make([]memorySub, len(m.subs[topic]))
	copy(subs, m.subs[topic])

	m.history = append(m.history, TopicMessage{Topic: topic, Payload: payload})
	if len(m.history) > m.histCap {
		m.history = m.history[len(m.history)-m.histCap:]
	}
	m.mu.Unlock()

	for _, s := range subs {
		m.invoke(topic, s, payload)
	}
	return nil
}

func (m *Memory) invoke(topic string, s memorySub, payload []byte) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("bus subscriber panicked", "topic", topic, "panic", r)
		}
	}()
	s.fn(payload)
}

// Subscribe implements Bus.
func (m *Memory) Subscribe(ctx context.Context, topic string, fn Handler) (func(), error) {
	m.mu.Lock()
	m.nextID++
	id := m.nextID
	m.subs[topic] = append(m.subs[topic], memorySub{id: id, fn: fn})
	m.mu.Unlock()

	unsub := func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		list := m.subs[topic]
		for i, s := range list {
			if s.id == id {
				m.subs[topic] = append(list[:i], list[i+1:]...)
				break
			}
		}
	}

	if ctx != nil && ctx.Done() != nil {
		go func() {
			<-ctx.Done()
			unsub()
		}()
	}

	return unsub, nil
}

// Recent returns up to the last limit published (topic, payload) pairs,
// oldest first. limit <= 0 returns the whole ring.
func (m *Memory) Recent(limit int) []TopicMessage {
	m.mu.Lock()
	defer m.mu.Unlock()

	items := m.history
	if limit > 0 && limit < len(items) {
		items = items[len(items)-limit:]
	}
	out := make([]TopicMessage, len(items))
	copy(out, items)
	return out
}

// Set implements Store.
func (m *Memory) Set(_ context.Context, key string, value []byte) error {
	m.kvMu.Lock()
	defer m.kvMu.Unlock()
	cp := make([]byte, len(value))
	copy(cp, value)
	m.kv[key] = cp
	return nil
}

// Get implements Store.
func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.kvMu.RLock()
	defer m.kvMu.RUnlock()
	v, ok := m.kv[key]
	if !ok {
		return nil, false, nil
	}
	cp := make([]byte, len(v))
	copy(cp, v)
	return cp, true, nil
}
