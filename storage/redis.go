package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultRedisPrefix = "crud-session:"

// RedisKV keeps durable values in Redis under a key prefix, so several app processes
// can share one signed-in session.
type RedisKV struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

var _ KV = (*RedisKV)(nil)

// RedisOption configures a RedisKV.
type RedisOption func(*RedisKV)

// WithRedisPrefix namespaces every key. Clear only removes keys under this prefix.
func WithRedisPrefix(prefix string) RedisOption {
	return func(r *RedisKV) {
		r.prefix = prefix
	}
}

// WithRedisTTL expires every written key after d. Zero keeps keys forever.
func WithRedisTTL(d time.Duration) RedisOption {
	return func(r *RedisKV) {
		r.ttl = d
	}
}

// NewRedisKV wraps an existing client.
func NewRedisKV(client redis.UniversalClient, options ...RedisOption) *RedisKV {
	r := &RedisKV{
		client: client,
		prefix: defaultRedisPrefix,
	}
	for _, opt := range options {
		opt(r)
	}
	return r
}

// DialRedisKV parses a redis:// URL, connects, and verifies the connection with PING.
func DialRedisKV(ctx context.Context, url string, options ...RedisOption) (*RedisKV, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return NewRedisKV(client, options...), nil
}

// Close closes the underlying client.
func (r *RedisKV) Close() error {
	return r.client.Close()
}

func (r *RedisKV) Get(ctx context.Context, key string) (string, error) {
	v, err := r.client.Get(ctx, r.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", notFound(key)
	}
	if err != nil {
		return "", unavailable("redis get", err)
	}
	return v, nil
}

func (r *RedisKV) Set(ctx context.Context, key, value string) error {
	if err := r.client.Set(ctx, r.prefix+key, value, r.ttl).Err(); err != nil {
		return unavailable("redis set", err)
	}
	return nil
}

func (r *RedisKV) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, r.prefix+key).Err(); err != nil {
		return unavailable("redis del", err)
	}
	return nil
}

func (r *RedisKV) Clear(ctx context.Context) error {
	var keys []string
	iter := r.client.Scan(ctx, 0, r.prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return unavailable("redis scan", err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		return unavailable("redis del", err)
	}
	return nil
}
