// Package credstoretest provides a behavioural suite shared by credential
// store adapters.
package credstoretest

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/SCP-015/nusahire/internal/port/credstore"
)

// Advance moves the store's notion of time forward.
type Advance func(d time.Duration)

// Run exercises the credential store contract. advance must move the clock
// the store uses for expiry.
func Run(t *testing.T, s credstore.Store, advance Advance) {
	t.Helper()
	ctx := context.Background()
	const week = 7 * 24 * time.Hour

	t.Run("PutAndGet", func(t *testing.T) {
		if err := s.Put(ctx, "id-get", "cred-1", week); err != nil {
			t.Fatal(err)
		}
		got, ok, err := s.Get(ctx, "id-get")
		if err != nil {
			t.Fatal(err)
		}
		if !ok || got != "cred-1" {
			t.Fatalf("expected cred-1, got %q (ok=%v)", got, ok)
		}
	})

	t.Run("GetUnknown", func(t *testing.T) {
		_, ok, err := s.Get(ctx, "id-unknown")
		if err != nil {
			t.Fatal(err)
		}
		if ok {
			t.Fatal("expected miss for unknown id")
		}
	})

	t.Run("Replace", func(t *testing.T) {
		_ = s.Put(ctx, "id-replace", "old", week)
		_ = s.Put(ctx, "id-replace", "new", week)
		got, ok, err := s.Get(ctx, "id-replace")
		if err != nil || !ok || got != "new" {
			t.Fatalf("got %q ok=%v err=%v", got, ok, err)
		}
	})

	t.Run("DeleteIsIdempotent", func(t *testing.T) {
		_ = s.Put(ctx, "id-del", "cred", week)
		if err := s.Delete(ctx, "id-del"); err != nil {
			t.Fatal(err)
		}
		if err := s.Delete(ctx, "id-del"); err != nil {
			t.Fatalf("second delete: %v", err)
		}
		if err := s.Delete(ctx, "id-never-existed"); err != nil {
			t.Fatalf("delete unknown: %v", err)
		}
		if _, ok, _ := s.Get(ctx, "id-del"); ok {
			t.Fatal("expected miss after delete")
		}
	})

	t.Run("IndependentIdentifiers", func(t *testing.T) {
		_ = s.Put(ctx, "tab-a", "cred-shared", week)
		_ = s.Put(ctx, "tab-b", "cred-shared", week)
		_ = s.Delete(ctx, "tab-a")
		if got, ok, _ := s.Get(ctx, "tab-b"); !ok || got != "cred-shared" {
			t.Fatalf("deleting one identifier affected another: %q ok=%v", got, ok)
		}
	})

	t.Run("ConcurrentAccess", func(t *testing.T) {
		var wg sync.WaitGroup
		for i := range 16 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				id := fmt.Sprintf("id-conc-%d", i%4)
				_ = s.Put(ctx, id, fmt.Sprintf("cred-%d", i), week)
				_, _, _ = s.Get(ctx, id)
			}()
		}
		wg.Wait()
		for i := range 4 {
			if _, ok, err := s.Get(ctx, fmt.Sprintf("id-conc-%d", i)); err != nil || !ok {
				t.Fatalf("id-conc-%d: ok=%v err=%v", i, ok, err)
			}
		}
	})

	// Runs last: it moves the clock.
	t.Run("Expiry", func(t *testing.T) {
		if err := s.Put(ctx, "id-ttl", "cred-ttl", week); err != nil {
			t.Fatal(err)
		}
		advance(time.Second)
		if got, ok, err := s.Get(ctx, "id-ttl"); err != nil || !ok || got != "cred-ttl" {
			t.Fatalf("before expiry: got %q ok=%v err=%v", got, ok, err)
		}
		advance(week)
		if _, ok, err := s.Get(ctx, "id-ttl"); err != nil || ok {
			t.Fatalf("after expiry: ok=%v err=%v", ok, err)
		}
	})
}
