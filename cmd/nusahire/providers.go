package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"

	"github.com/SCP-015/nusahire/internal/adapter/memory"
	nhnats "github.com/SCP-015/nusahire/internal/adapter/nats"
	"github.com/SCP-015/nusahire/internal/adapter/natskv"
	"github.com/SCP-015/nusahire/internal/adapter/postgres"
	nhredis "github.com/SCP-015/nusahire/internal/adapter/redis"
	"github.com/SCP-015/nusahire/internal/adapter/ristretto"
	"github.com/SCP-015/nusahire/internal/adapter/tiered"
	"github.com/SCP-015/nusahire/internal/config"
	"github.com/SCP-015/nusahire/internal/port/cache"
	"github.com/SCP-015/nusahire/internal/port/credstore"
	"github.com/SCP-015/nusahire/internal/resilience"
)

// infrastructure opens the optional NATS and Redis connections lazily, so
// only the backends the configuration selects are dialled.
type infrastructure struct {
	cfg     *config.Config
	pool    *pgxpool.Pool
	nats    *nhnats.Client
	redis   *goredis.Client
	l1      *ristretto.Cache
	breaker *resilience.Breaker
}

func (i *infrastructure) natsClient(ctx context.Context) (*nhnats.Client, error) {
	if i.nats == nil {
		c, err := nhnats.Connect(ctx, i.cfg.NATS.URL)
		if err != nil {
			return nil, err
		}
		i.nats = c
	}
	return i.nats, nil
}

func (i *infrastructure) redisClient(ctx context.Context) (*goredis.Client, error) {
	if i.redis == nil {
		c, err := nhredis.Open(ctx, i.cfg.Redis.URL)
		if err != nil {
			return nil, err
		}
		i.redis = c
	}
	return i.redis, nil
}

// tenantCache builds the ristretto L1 cache, tiered over a NATS KV or Redis
// L2 when one is configured.
func (i *infrastructure) tenantCache(ctx context.Context) (cache.Cache, error) {
	l1, err := ristretto.New(i.cfg.Cache.L1MaxSizeMB, i.cfg.Cache.L1TTL)
	if err != nil {
		return nil, fmt.Errorf("l1: %w", err)
	}
	i.l1 = l1

	var l2 cache.Cache
	switch i.cfg.Cache.L2 {
	case config.StoreNATS:
		nc, err := i.natsClient(ctx)
		if err != nil {
			return nil, err
		}
		kv, err := nc.Bucket(ctx, i.cfg.Cache.L2Bucket, i.cfg.Cache.L2TTL)
		if err != nil {
			return nil, err
		}
		l2 = natskv.New(kv)
	case config.StoreRedis:
		rc, err := i.redisClient(ctx)
		if err != nil {
			return nil, err
		}
		l2 = nhredis.NewCache(rc)
	default:
		return l1, nil
	}

	slog.Info("tenant cache tiered", "l2", i.cfg.Cache.L2)
	return tiered.New(l1, l2, i.cfg.Cache.L1TTL), nil
}

// credentialStore selects the proxy bridge backend. Remote backends are
// guarded by a circuit breaker.
func (i *infrastructure) credentialStore(ctx context.Context) (credstore.Store, error) {
	switch i.cfg.Proxy.Store {
	case config.StoreMemory:
		return memory.NewCredentialStore(), nil
	case config.StorePostgres:
		i.breaker = i.newBreaker("proxy-postgres")
		return postgres.NewCredentialStore(i.pool), nil
	case config.StoreRedis:
		rc, err := i.redisClient(ctx)
		if err != nil {
			return nil, err
		}
		i.breaker = i.newBreaker("proxy-redis")
		return nhredis.NewCredentialStore(rc), nil
	case config.StoreNATS:
		nc, err := i.natsClient(ctx)
		if err != nil {
			return nil, err
		}
		kv, err := nc.Bucket(ctx, i.cfg.Proxy.NATSBucket, i.cfg.Proxy.TTL)
		if err != nil {
			return nil, err
		}
		i.breaker = i.newBreaker("proxy-nats")
		return natskv.NewCredentialStore(kv), nil
	default:
		return nil, fmt.Errorf("unknown proxy store %q", i.cfg.Proxy.Store)
	}
}

func (i *infrastructure) newBreaker(name string) *resilience.Breaker {
	return resilience.NewBreaker(name, i.cfg.Breaker.MaxFailures, i.cfg.Breaker.Timeout)
}

// startSweeper purges expired bridge entries for stores without native expiry.
func (i *infrastructure) startSweeper(ctx context.Context, store credstore.Store) {
	if sweeper, ok := store.(credstore.Sweeper); ok {
		credstore.StartSweeper(ctx, sweeper, i.cfg.Proxy.SweepInterval)
	}
}

// Close releases whatever connections were opened.
func (i *infrastructure) Close() {
	if i.l1 != nil {
		i.l1.Close()
	}
	if i.nats != nil {
		_ = i.nats.Close()
	}
	if i.redis != nil {
		_ = i.redis.Close()
	}
}
