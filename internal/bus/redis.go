package bus

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// Redis carries bus topics over Redis pub/sub and health keys over plain
// SET/GET. One subscriber goroutine runs per subscription; go-redis handles
// transport-level reconnects.
type Redis struct {
	client *redis.Client
	logger *slog.Logger
}

// NewRedis connects a Redis-backed bus. The URL uses the standard
// redis://[user:pass@]host:port/db form.
func NewRedis(ctx context.Context, url string, logger *slog.Logger) (*Redis, error) {
	if logger == nil {
		logger = slog.Default()
	}

	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return &Redis{client: client, logger: logger}, nil
}

// Close releases the underlying client.
func (r *Redis) Close() error {
	return r.client.Close()
}

// Publish implements Bus.
func (r *Redis) Publish(ctx context.Context, topic string, payload []byte) error {
	return r.client.Publish(ctx, topic, payload).Err()
}

// Subscribe implements Bus.
func (r *Redis) Subscribe(ctx context.Context, topic string, fn Handler) (func(), error) {
	pubsub := r.client.Subscribe(ctx, topic)

	// Confirm the subscription before returning so callers can rely on
	// delivery of messages published afterwards.
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("subscribe %s: %w", topic, err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				r.invoke(topic, fn, []byte(msg.Payload))
			}
		}
	}()

	unsub := func() {
		pubsub.Close()
		<-done
	}
	return unsub, nil
}

func (r *Redis) invoke(topic string, fn Handler, payload []byte) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("bus subscriber panicked", "topic", topic, "panic", rec)
		}
	}()
	fn(payload)
}

// Set implements Store. Health keys are overwritten without expiry.
func (r *Redis) Set(ctx context.Context, key string, value []byte) error {
	return r.client.Set(ctx, key, value, 0).Err()
}

// Get implements Store.
func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool, error) {
	v, err := r.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return v, true, nil
}
