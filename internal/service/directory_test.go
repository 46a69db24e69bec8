package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/SCP-015/nusahire/internal/domain"
	"github.com/SCP-015/nusahire/internal/domain/tenant"
)

func TestCachedDirectory_CachesHits(t *testing.T) {
	store := newResolverStore()
	dir := NewCachedDirectory(store, newMapCache(), time.Minute)
	ctx := context.Background()

	for range 3 {
		got, err := dir.GetTenantBySlug(ctx, "acme")
		if err != nil || got.ID != "11111111-aaaa" {
			t.Fatalf("GetTenantBySlug = %+v, %v", got, err)
		}
	}
	if n := store.lookups(); n != 1 {
		t.Errorf("store lookups = %d, want 1", n)
	}
}

func TestCachedDirectory_MissesNotCached(t *testing.T) {
	store := newResolverStore()
	dir := NewCachedDirectory(store, newMapCache(), time.Minute)
	ctx := context.Background()

	for range 2 {
		if _, err := dir.GetTenantBySlug(ctx, "nope"); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	}
	if n := store.lookups(); n != 2 {
		t.Errorf("store lookups = %d, want 2", n)
	}
}

func TestCachedDirectory_ReturnsCopies(t *testing.T) {
	dir := NewCachedDirectory(newResolverStore(), nil, time.Minute)
	ctx := context.Background()

	a, err := dir.GetTenant(ctx, "11111111-aaaa")
	if err != nil {
		t.Fatal(err)
	}
	a.Slug = "mutated"
	b, err := dir.GetTenant(ctx, "11111111-aaaa")
	if err != nil {
		t.Fatal(err)
	}
	if b.Slug != "acme" {
		t.Errorf("slug = %s, caller mutation leaked", b.Slug)
	}
}

func TestCachedDirectory_Invalidate(t *testing.T) {
	store := newResolverStore()
	c := newMapCache()
	dir := NewCachedDirectory(store, c, time.Minute)
	ctx := context.Background()

	t1, err := dir.GetTenantBySlugHistory(ctx, "acme-old")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := dir.GetTenant(ctx, t1.ID); err != nil {
		t.Fatal(err)
	}
	dir.Invalidate(ctx, t1, "acme-old")

	for _, key := range []string{keyTenantByID + t1.ID, keyTenantByHistory + "acme-old"} {
		if _, ok, _ := c.Get(ctx, key); ok {
			t.Errorf("key %s still cached", key)
		}
	}
}

// blockingDirectory holds every lookup until release is closed.
type blockingDirectory struct {
	mu      sync.Mutex
	calls   int
	release chan struct{}
}

func (b *blockingDirectory) GetTenant(ctx context.Context, id string) (*tenant.Tenant, error) {
	b.mu.Lock()
	b.calls++
	b.mu.Unlock()
	<-b.release
	return &tenant.Tenant{ID: id, Slug: "acme"}, nil
}

func (b *blockingDirectory) GetTenantBySlug(context.Context, string) (*tenant.Tenant, error) {
	return nil, domain.ErrNotFound
}

func (b *blockingDirectory) GetTenantBySlugHistory(context.Context, string) (*tenant.Tenant, error) {
	return nil, domain.ErrNotFound
}

func TestCachedDirectory_CollapsesConcurrentMisses(t *testing.T) {
	backend := &blockingDirectory{release: make(chan struct{})}
	dir := NewCachedDirectory(backend, nil, time.Minute)

	const n = 10
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := dir.GetTenant(context.Background(), "t-1")
			errs <- err
		}()
	}
	// Give the goroutines time to pile up on the in-flight call.
	time.Sleep(50 * time.Millisecond)
	close(backend.release)
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Fatalf("GetTenant: %v", err)
		}
	}
	backend.mu.Lock()
	defer backend.mu.Unlock()
	if backend.calls >= n {
		t.Errorf("backend calls = %d, want fewer than %d", backend.calls, n)
	}
}
