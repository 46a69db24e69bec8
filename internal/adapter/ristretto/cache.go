// Package ristretto implements the cache port as an in-process L1 cache.
package ristretto

import (
	"context"
	"time"

	"github.com/dgraph-io/ristretto/v2"
)

// averageEntryBytes sizes the admission counters for JSON tenant records.
const averageEntryBytes = 256

// Cache is a size-bounded in-process cache. Writes are made visible before
// Set returns so a lookup right after a fill is a hit.
type Cache struct {
	c      *ristretto.Cache[string, []byte]
	maxTTL time.Duration
}

// New creates a cache holding at most maxSizeMB of values. Entries never
// live longer than maxTTL, whatever TTL the caller asks for.
func New(maxSizeMB int64, maxTTL time.Duration) (*Cache, error) {
	maxCost := maxSizeMB << 20
	c, err := ristretto.NewCache(&ristretto.Config[string, []byte]{
		NumCounters: max(maxCost/averageEntryBytes*10, 1000),
		MaxCost:     maxCost,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	return &Cache{c: c, maxTTL: maxTTL}, nil
}

func (c *Cache) Get(_ context.Context, key string) ([]byte, bool, error) {
	val, found := c.c.Get(key)
	return val, found, nil
}

// Set stores value. Admission may still reject it under pressure, which
// only costs a later miss.
func (c *Cache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if c.maxTTL > 0 && (ttl <= 0 || ttl > c.maxTTL) {
		ttl = c.maxTTL
	}
	c.c.SetWithTTL(key, value, int64(len(value)), ttl)
	c.c.Wait()
	return nil
}

func (c *Cache) Delete(_ context.Context, key string) error {
	c.c.Del(key)
	return nil
}

// Close releases the cache's goroutines.
func (c *Cache) Close() {
	c.c.Close()
}
