package service

import (
	"context"
	"encoding/hex"
	"errors"
	"testing"
	"time"

	"github.com/SCP-015/nusahire/internal/adapter/memory"
	"github.com/SCP-015/nusahire/internal/resilience"
)

func TestCredentialBridge_IssueLookupRevoke(t *testing.T) {
	b := NewCredentialBridge(memory.NewCredentialStore(), 7*24*time.Hour, nil, nil)
	ctx := context.Background()

	id, err := b.Issue(ctx, "C1")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if raw, err := hex.DecodeString(id); err != nil || len(raw) != identifierBytes {
		t.Errorf("identifier %q is not %d random bytes", id, identifierBytes)
	}

	got, ok := b.Lookup(ctx, id)
	if !ok || got != "C1" {
		t.Fatalf("Lookup = %q, %v", got, ok)
	}

	if err := b.Revoke(ctx, id); err != nil {
		t.Fatalf("Revoke: %v", err)
	}
	if _, ok := b.Lookup(ctx, id); ok {
		t.Error("identifier still resolves after Revoke")
	}
	if err := b.Revoke(ctx, id); err != nil {
		t.Errorf("second Revoke: %v", err)
	}
}

func TestCredentialBridge_DistinctIdentifiers(t *testing.T) {
	b := NewCredentialBridge(memory.NewCredentialStore(), time.Hour, nil, nil)
	ctx := context.Background()

	seen := make(map[string]bool)
	for range 50 {
		id, err := b.Issue(ctx, "C")
		if err != nil {
			t.Fatal(err)
		}
		if seen[id] {
			t.Fatalf("identifier %s issued twice", id)
		}
		seen[id] = true
	}
}

func TestCredentialBridge_LookupEmptyOrUnknown(t *testing.T) {
	b := NewCredentialBridge(memory.NewCredentialStore(), time.Hour, nil, nil)
	for _, id := range []string{"", "deadbeef"} {
		if _, ok := b.Lookup(context.Background(), id); ok {
			t.Errorf("Lookup(%q) found a credential", id)
		}
	}
}

type brokenStore struct{ calls int }

func (s *brokenStore) Put(context.Context, string, string, time.Duration) error {
	return errors.New("store down")
}

func (s *brokenStore) Get(context.Context, string) (string, bool, error) {
	s.calls++
	return "", false, errors.New("store down")
}

func (s *brokenStore) Delete(context.Context, string) error { return errors.New("store down") }

func TestCredentialBridge_StoreFailureIsMiss(t *testing.T) {
	store := &brokenStore{}
	breaker := resilience.NewBreaker("proxy-store", 2, time.Minute)
	b := NewCredentialBridge(store, time.Hour, breaker, nil)
	ctx := context.Background()

	for range 5 {
		if _, ok := b.Lookup(ctx, "abc"); ok {
			t.Fatal("lookup succeeded against a broken store")
		}
	}
	if store.calls != 2 {
		t.Errorf("store calls = %d, want 2 before the breaker opened", store.calls)
	}
	if breaker.State() != resilience.StateOpen {
		t.Errorf("breaker state = %s, want open", breaker.State())
	}

	if _, err := b.Issue(ctx, "C"); err == nil {
		t.Error("Issue should surface store failures")
	}
	if err := b.Revoke(ctx, "abc"); err == nil {
		t.Error("Revoke should surface store failures")
	}
}
