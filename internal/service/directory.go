package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/SCP-015/nusahire/internal/domain/tenant"
	"github.com/SCP-015/nusahire/internal/port/cache"
	"github.com/SCP-015/nusahire/internal/port/database"
)

const (
	keyTenantByID      = "tenant:id:"
	keyTenantBySlug    = "tenant:slug:"
	keyTenantByHistory = "tenant:history:"
)

// CachedDirectory decorates a TenantDirectory with a lookup cache. Only
// positive results are cached; cache failures fall through to the store.
type CachedDirectory struct {
	store database.TenantDirectory
	cache cache.Cache
	ttl   time.Duration
	group singleflight.Group
}

var _ database.TenantDirectory = (*CachedDirectory)(nil)

// NewCachedDirectory wraps store with c. A nil cache disables caching but
// keeps concurrent misses collapsed.
func NewCachedDirectory(store database.TenantDirectory, c cache.Cache, ttl time.Duration) *CachedDirectory {
	return &CachedDirectory{store: store, cache: c, ttl: ttl}
}

func (d *CachedDirectory) GetTenant(ctx context.Context, id string) (*tenant.Tenant, error) {
	return d.lookup(ctx, keyTenantByID+id, func(ctx context.Context) (*tenant.Tenant, error) {
		return d.store.GetTenant(ctx, id)
	})
}

func (d *CachedDirectory) GetTenantBySlug(ctx context.Context, slug string) (*tenant.Tenant, error) {
	return d.lookup(ctx, keyTenantBySlug+slug, func(ctx context.Context) (*tenant.Tenant, error) {
		return d.store.GetTenantBySlug(ctx, slug)
	})
}

func (d *CachedDirectory) GetTenantBySlugHistory(ctx context.Context, slug string) (*tenant.Tenant, error) {
	return d.lookup(ctx, keyTenantByHistory+slug, func(ctx context.Context) (*tenant.Tenant, error) {
		return d.store.GetTenantBySlugHistory(ctx, slug)
	})
}

// Invalidate drops every cached view of t: by id, by current slug, and by
// each of the given slugs (old current slugs and retired ones).
func (d *CachedDirectory) Invalidate(ctx context.Context, t *tenant.Tenant, slugs ...string) {
	if d.cache == nil {
		return
	}
	keys := []string{keyTenantByID + t.ID, keyTenantBySlug + t.Slug}
	for _, s := range slugs {
		keys = append(keys, keyTenantBySlug+s, keyTenantByHistory+s)
	}
	for _, k := range keys {
		if err := d.cache.Delete(ctx, k); err != nil {
			slog.Warn("tenant cache invalidation failed", "key", k, "error", err)
		}
	}
}

func (d *CachedDirectory) lookup(ctx context.Context, key string, load func(context.Context) (*tenant.Tenant, error)) (*tenant.Tenant, error) {
	if t, ok := d.cached(ctx, key); ok {
		return t, nil
	}

	v, err, _ := d.group.Do(key, func() (any, error) {
		// Shared by every waiter, so one caller's cancellation must not fail the rest.
		loadCtx := context.WithoutCancel(ctx)
		t, err := load(loadCtx)
		if err != nil {
			return nil, err
		}
		d.fill(loadCtx, key, t)
		return t, nil
	})
	if err != nil {
		return nil, err
	}
	t := *v.(*tenant.Tenant)
	return &t, nil
}

func (d *CachedDirectory) cached(ctx context.Context, key string) (*tenant.Tenant, bool) {
	if d.cache == nil {
		return nil, false
	}
	data, ok, err := d.cache.Get(ctx, key)
	if err != nil {
		slog.Debug("tenant cache read failed", "key", key, "error", err)
		return nil, false
	}
	if !ok {
		return nil, false
	}
	var t tenant.Tenant
	if err := json.Unmarshal(data, &t); err != nil {
		slog.Warn("tenant cache entry corrupt", "key", key, "error", err)
		return nil, false
	}
	return &t, true
}

func (d *CachedDirectory) fill(ctx context.Context, key string, t *tenant.Tenant) {
	if d.cache == nil {
		return
	}
	data, err := json.Marshal(t)
	if err != nil {
		return
	}
	if err := d.cache.Set(ctx, key, data, d.ttl); err != nil {
		slog.Debug("tenant cache write failed", "key", key, "error", err)
	}
}
