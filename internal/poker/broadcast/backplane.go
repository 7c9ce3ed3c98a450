package broadcast

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Backplane carries published events between instances that serve the same teams.
type Backplane interface {
	Publish(ctx context.Context, topic string, payload []byte) error
	// Consume delivers every message on topic to handle until ctx is cancelled or the subscription fails.
	// It calls ready once the subscription is confirmed; messages published before that may be missed.
	Consume(ctx context.Context, topic string, ready func(), handle func(payload []byte)) error
}

// RedisBackplane uses Redis pub/sub channels named after the room topic.
type RedisBackplane struct {
	client *redis.Client
}

// NewRedisBackplane parses a redis:// URL and verifies the server answers.
func NewRedisBackplane(ctx context.Context, url string) (*RedisBackplane, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &RedisBackplane{client: client}, nil
}

// NewRedisBackplaneFromClient wraps an existing client.
func NewRedisBackplaneFromClient(client *redis.Client) *RedisBackplane {
	return &RedisBackplane{client: client}
}

func (b *RedisBackplane) Publish(ctx context.Context, topic string, payload []byte) error {
	return b.client.Publish(ctx, topic, payload).Err()
}

func (b *RedisBackplane) Consume(ctx context.Context, topic string, ready func(), handle func(payload []byte)) error {
	ps := b.client.Subscribe(ctx, topic)
	defer ps.Close()
	// the first reply is the subscription confirmation
	if _, err := ps.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", topic, err)
	}
	ready()
	ch := ps.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return fmt.Errorf("subscribe %s: channel closed", topic)
			}
			handle([]byte(msg.Payload))
		}
	}
}

// Ping reports whether Redis is reachable.
func (b *RedisBackplane) Ping(ctx context.Context) error {
	return b.client.Ping(ctx).Err()
}

func (b *RedisBackplane) Close() error {
	return b.client.Close()
}
