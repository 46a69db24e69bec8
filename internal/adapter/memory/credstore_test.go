package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/SCP-015/nusahire/internal/port/credstore"
	"github.com/SCP-015/nusahire/internal/port/credstore/credstoretest"
)

var _ credstore.Sweeper = (*CredentialStore)(nil)

// fakeClock is advanced explicitly by tests.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newTestStore() (*CredentialStore, *fakeClock) {
	clock := &fakeClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	s := NewCredentialStore()
	s.now = clock.Now
	return s, clock
}

func TestCredentialStoreCompliance(t *testing.T) {
	s, clock := newTestStore()
	credstoretest.Run(t, s, clock.Advance)
}

func TestCredentialStoreExpiryBoundary(t *testing.T) {
	s, clock := newTestStore()
	ctx := context.Background()

	_ = s.Put(ctx, "id", "cred", time.Hour)
	clock.Advance(time.Hour - time.Nanosecond)
	if _, ok, _ := s.Get(ctx, "id"); !ok {
		t.Fatal("expected hit just before expiry")
	}
	clock.Advance(time.Nanosecond)
	if _, ok, _ := s.Get(ctx, "id"); ok {
		t.Fatal("expected miss at expiry instant")
	}
	if s.Len() != 0 {
		t.Fatalf("expired entry should be dropped on read, len=%d", s.Len())
	}
}

func TestCredentialStoreSweep(t *testing.T) {
	s, clock := newTestStore()
	ctx := context.Background()

	_ = s.Put(ctx, "short", "a", time.Minute)
	_ = s.Put(ctx, "long", "b", time.Hour)
	clock.Advance(2 * time.Minute)

	n, err := s.Sweep(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("expected 1 swept, got %d", n)
	}
	if s.Len() != 1 {
		t.Fatalf("expected 1 remaining, got %d", s.Len())
	}
	if got, ok, _ := s.Get(ctx, "long"); !ok || got != "b" {
		t.Fatalf("unexpired entry lost: %q ok=%v", got, ok)
	}
}

func TestCredentialStoreSweeperStops(t *testing.T) {
	s := NewCredentialStore()
	ctx, cancel := context.WithCancel(context.Background())
	_ = s.Put(ctx, "gone", "x", time.Nanosecond)
	credstore.StartSweeper(ctx, s, 5*time.Millisecond)

	deadline := time.Now().Add(2 * time.Second)
	for s.Len() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("sweeper did not remove expired entry")
		}
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
}
