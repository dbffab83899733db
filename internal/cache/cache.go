// Package cache provides an optional Redis-backed positive cache for the
// redirect resolve path. It is a read accelerator only; the store remains
// the system of record and a cold or absent cache changes nothing but
// latency.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/shortspan/shortspan/internal/model"
)

// ErrCacheMiss is returned when the key is not present.
var ErrCacheMiss = errors.New("cache miss")

const keyPrefix = "shortspan:alias:"

// Config holds Redis cache settings.
type Config struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// AliasCache caches resolved alias records keyed by lowercased short code.
type AliasCache struct {
	client *redis.Client
	ttl    time.Duration
}

// New connects to Redis and verifies the connection.
func New(cfg Config) (*AliasCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}

	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &AliasCache{client: client, ttl: ttl}, nil
}

// Get returns the cached record for a short code, or ErrCacheMiss.
func (c *AliasCache) Get(ctx context.Context, code string) (*model.ShortenedURL, error) {
	data, err := c.client.Get(ctx, key(code)).Bytes()
	if err == redis.Nil {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, err
	}

	var u model.ShortenedURL
	if err := json.Unmarshal(data, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// Set stores a resolved record under its short code with the cache TTL.
func (c *AliasCache) Set(ctx context.Context, u *model.ShortenedURL) error {
	data, err := json.Marshal(u)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key(u.ShortCode), data, c.ttl).Err()
}

// Delete drops a short code from the cache.
func (c *AliasCache) Delete(ctx context.Context, code string) error {
	return c.client.Del(ctx, key(code)).Err()
}

// Close releases the Redis connection.
func (c *AliasCache) Close() error {
	return c.client.Close()
}

func key(code string) string {
	return keyPrefix + strings.ToLower(code)
}
