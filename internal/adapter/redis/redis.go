// Package redis implements the cache and credential store ports on Redis.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

const (
	credentialPrefix = "nusahire:proxy:"
	cachePrefix      = "nusahire:cache:"
)

// Open parses url, connects and pings the server.
func Open(ctx context.Context, url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := goredis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	return client, nil
}

// CredentialStore keeps bridge entries as plain keys with a server-side TTL,
// so expiry and sweeping are handled by Redis itself.
type CredentialStore struct {
	client goredis.UniversalClient
}

// NewCredentialStore wraps client.
func NewCredentialStore(client goredis.UniversalClient) *CredentialStore {
	return &CredentialStore{client: client}
}

// Put is a single SET with EX, so replacement and expiry are atomic.
func (s *CredentialStore) Put(ctx context.Context, id, credential string, ttl time.Duration) error {
	if err := s.client.Set(ctx, credentialPrefix+id, credential, ttl).Err(); err != nil {
		return fmt.Errorf("redis put credential: %w", err)
	}
	return nil
}

// Get returns the stored credential.
func (s *CredentialStore) Get(ctx context.Context, id string) (string, bool, error) {
	val, err := s.client.Get(ctx, credentialPrefix+id).Result()
	if errors.Is(err, goredis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis get credential: %w", err)
	}
	return val, true, nil
}

// Delete removes id. DEL of a missing key returns 0 and no error.
func (s *CredentialStore) Delete(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, credentialPrefix+id).Err(); err != nil {
		return fmt.Errorf("redis delete credential: %w", err)
	}
	return nil
}

// Cache is a shared L2 cache for directory records.
type Cache struct {
	client goredis.UniversalClient
}

// NewCache wraps client.
func NewCache(client goredis.UniversalClient) *Cache {
	return &Cache{client: client}
}

func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := c.client.Get(ctx, cachePrefix+key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return val, true, nil
}

func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return c.client.Set(ctx, cachePrefix+key, value, ttl).Err()
}

func (c *Cache) Delete(ctx context.Context, key string) error {
	return c.client.Del(ctx, cachePrefix+key).Err()
}
