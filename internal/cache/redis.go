package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const sessionNamespace = "lv:session"

var ErrMiss = errors.New("cache miss")

// SessionCache maps session token hashes to user ids.
type SessionCache struct {
	client redis.UniversalClient
}

// NewSessionCache connects using a redis:// URL, e.g. redis://:pass@localhost:6379/0.
func NewSessionCache(ctx context.Context, redisURL string) (*SessionCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return &SessionCache{client: client}, nil
}

func NewSessionCacheWithClient(client redis.UniversalClient) *SessionCache {
	return &SessionCache{client: client}
}

func key(tokenHash string) string {
	return sessionNamespace + ":" + tokenHash
}

func (c *SessionCache) GetUserID(ctx context.Context, tokenHash string) (uuid.UUID, error) {
	val, err := c.client.Get(ctx, key(tokenHash)).Result()
	if errors.Is(err, redis.Nil) {
		return uuid.Nil, ErrMiss
	}
	if err != nil {
		return uuid.Nil, err
	}
	id, err := uuid.Parse(val)
	if err != nil {
		return uuid.Nil, fmt.Errorf("corrupt cache entry: %w", err)
	}
	return id, nil
}

func (c *SessionCache) SetUserID(ctx context.Context, tokenHash string, userID uuid.UUID, ttl time.Duration) error {
	return c.client.Set(ctx, key(tokenHash), userID.String(), ttl).Err()
}

func (c *SessionCache) Delete(ctx context.Context, tokenHash string) error {
	return c.client.Del(ctx, key(tokenHash)).Err()
}

func (c *SessionCache) Close() error {
	return c.client.Close()
}
