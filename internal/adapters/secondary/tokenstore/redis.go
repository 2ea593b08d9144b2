package tokenstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lorrc/civic-dashboard/internal/core/ports"
	"github.com/redis/go-redis/v9"
)

// Redis keeps the token under a single key so several dashboard replicas
// share one session.
type Redis struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

var _ ports.TokenStore = (*Redis)(nil)

// NewRedis creates a store on client. A zero ttl keeps the key forever.
func NewRedis(client *redis.Client, key string, ttl time.Duration) *Redis {
	return &Redis{client: client, key: key, ttl: ttl}
}

// NewRedisFromURL parses a redis:// URL and verifies the connection.
func NewRedisFromURL(ctx context.Context, url, key string, ttl time.Duration) (*Redis, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return NewRedis(client, key, ttl), nil
}

func (r *Redis) Load(ctx context.Context) (string, error) {
	token, err := r.client.Get(ctx, r.key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get token: %w", err)
	}
	return token, nil
}

func (r *Redis) Save(ctx context.Context, token string) error {
	if err := r.client.Set(ctx, r.key, token, r.ttl).Err(); err != nil {
		return fmt.Errorf("set token: %w", err)
	}
	return nil
}

func (r *Redis) Clear(ctx context.Context) error {
	if err := r.client.Del(ctx, r.key).Err(); err != nil {
		return fmt.Errorf("delete token: %w", err)
	}
	return nil
}

// Ping checks that redis answers.
func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close releases the underlying client.
func (r *Redis) Close() error {
	return r.client.Close()
}
