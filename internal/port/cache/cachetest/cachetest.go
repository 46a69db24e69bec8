// Package cachetest provides a behavioural suite shared by cache adapters.
package cachetest

import (
	"context"
	"testing"
	"time"

	"github.com/SCP-015/nusahire/internal/port/cache"
)

// Run exercises the cache contract against c. Adapters with asynchronous
// writes must make Set visible to Get before returning.
func Run(t *testing.T, c cache.Cache) {
	t.Helper()
	ctx := context.Background()

	t.Run("SetAndGet", func(t *testing.T) {
		if err := c.Set(ctx, "tenant:id:t-1", []byte(`{"id":"t-1"}`), time.Minute); err != nil {
			t.Fatal(err)
		}
		val, found, err := c.Get(ctx, "tenant:id:t-1")
		if err != nil {
			t.Fatal(err)
		}
		if !found {
			t.Fatal("expected found after Set")
		}
		if string(val) != `{"id":"t-1"}` {
			t.Fatalf("unexpected value %s", val)
		}
	})

	t.Run("GetMiss", func(t *testing.T) {
		_, found, err := c.Get(ctx, "tenant:slug:nobody")
		if err != nil {
			t.Fatal(err)
		}
		if found {
			t.Fatal("expected miss for unknown key")
		}
	})

	t.Run("ArbitraryKeyCharacters", func(t *testing.T) {
		key := "tenant:slug:Weird Path/..%20"
		if err := c.Set(ctx, key, []byte("x"), time.Minute); err != nil {
			t.Fatal(err)
		}
		if _, found, err := c.Get(ctx, key); err != nil || !found {
			t.Fatalf("found=%v err=%v", found, err)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		_ = c.Set(ctx, "tenant:id:del", []byte("v"), time.Minute)
		if err := c.Delete(ctx, "tenant:id:del"); err != nil {
			t.Fatal(err)
		}
		_, found, err := c.Get(ctx, "tenant:id:del")
		if err != nil {
			t.Fatal(err)
		}
		if found {
			t.Fatal("expected miss after Delete")
		}
	})

	t.Run("DeleteNonexistent", func(t *testing.T) {
		if err := c.Delete(ctx, "tenant:id:never"); err != nil {
			t.Fatalf("Delete of unknown key: %v", err)
		}
	})

	t.Run("Overwrite", func(t *testing.T) {
		_ = c.Set(ctx, "tenant:id:ow", []byte("v1"), time.Minute)
		_ = c.Set(ctx, "tenant:id:ow", []byte("v2"), time.Minute)
		val, found, err := c.Get(ctx, "tenant:id:ow")
		if err != nil {
			t.Fatal(err)
		}
		if !found || string(val) != "v2" {
			t.Fatalf("expected v2 after overwrite, got %q (found=%v)", val, found)
		}
	})
}
