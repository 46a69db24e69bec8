package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	obs "github.com/SCP-015/nusahire/internal/adapter/otel"
	"github.com/SCP-015/nusahire/internal/port/credstore"
	"github.com/SCP-015/nusahire/internal/resilience"
)

// identifierBytes is the entropy of a bridge identifier (64 hex chars).
const identifierBytes = 32

// CredentialBridge maps opaque client-held identifiers to bearer credentials
// kept server-side.
type CredentialBridge struct {
	store   credstore.Store
	ttl     time.Duration
	breaker *resilience.Breaker
	metrics *obs.Metrics
}

// NewCredentialBridge creates a bridge over store. breaker guards remote
// stores and may be nil; metrics may be nil.
func NewCredentialBridge(store credstore.Store, ttl time.Duration, breaker *resilience.Breaker, metrics *obs.Metrics) *CredentialBridge {
	return &CredentialBridge{store: store, ttl: ttl, breaker: breaker, metrics: metrics}
}

// TTL is the lifetime of issued identifiers.
func (b *CredentialBridge) TTL() time.Duration {
	return b.ttl
}

// Issue stores credential under a new random identifier and returns it.
func (b *CredentialBridge) Issue(ctx context.Context, credential string) (string, error) {
	id, err := generateRandomToken(identifierBytes)
	if err != nil {
		return "", fmt.Errorf("generate bridge identifier: %w", err)
	}
	if err := b.store.Put(ctx, id, credential, b.ttl); err != nil {
		return "", fmt.Errorf("store bridge credential: %w", err)
	}
	return id, nil
}

// Lookup returns the credential for id. Store failures and an open breaker
// are reported as a miss so the request continues unauthenticated.
func (b *CredentialBridge) Lookup(ctx context.Context, id string) (string, bool) {
	if id == "" {
		return "", false
	}

	var (
		credential string
		found      bool
	)
	get := func(ctx context.Context) error {
		var err error
		credential, found, err = b.store.Get(ctx, id)
		return err
	}

	var err error
	if b.breaker != nil {
		err = b.breaker.Do(ctx, get)
	} else {
		err = get(ctx)
	}

	switch {
	case err != nil:
		b.metrics.ProxyLookup(ctx, "error")
		slog.WarnContext(ctx, "proxy credential lookup failed", "id_prefix", credstore.Redact(id), "error", err)
		return "", false
	case !found:
		b.metrics.ProxyLookup(ctx, "miss")
		return "", false
	default:
		b.metrics.ProxyLookup(ctx, "hit")
		return credential, true
	}
}

// Revoke deletes id. Unknown identifiers are not an error.
func (b *CredentialBridge) Revoke(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	if err := b.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("revoke bridge credential: %w", err)
	}
	return nil
}

func generateRandomToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
