package idempotency

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// setNXer is the subset of *redis.Client used by RedisMarker.
type setNXer interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
}

// RedisMarker stores processed-event keys in Redis. SETNX is the atomic
// check-then-set; the TTL bounds how long retries are recognized.
type RedisMarker struct {
	client setNXer
	prefix string
	ttl    time.Duration
}

func NewRedisMarker(client setNXer, prefix string, ttl time.Duration) (*RedisMarker, error) {
	if client == nil {
		return nil, errors.New("idempotency: redis client must not be nil")
	}
	if prefix == "" {
		prefix = "jarvis:processed"
	}
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &RedisMarker{client: client, prefix: prefix, ttl: ttl}, nil
}

func (m *RedisMarker) key(conversationID, eventID string) string {
	return m.prefix + ":" + conversationID + ":" + eventID
}

func (m *RedisMarker) MarkProcessed(ctx context.Context, conversationID, eventID string) (bool, error) {
	created, err := m.client.SetNX(ctx, m.key(conversationID, eventID), time.Now().UTC().Format(time.RFC3339), m.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("idempotency: redis SETNX: %w", err)
	}
	return created, nil
}
