// Package credstore defines the port for the proxy credential store: a map
// from an opaque identifier to a bearer credential with per-entry expiry.
package credstore

import (
	"context"
	"log/slog"
	"time"
)

// Store holds bridge entries. Implementations must make each operation
// atomic per identifier and must treat an expired entry exactly like an
// absent one.
type Store interface {
	// Put stores credential under id for ttl, replacing any previous entry.
	Put(ctx context.Context, id, credential string, ttl time.Duration) error
	// Get returns the credential for id, or ok=false when absent or expired.
	Get(ctx context.Context, id string) (credential string, ok bool, err error)
	// Delete removes id. Deleting an unknown id is not an error.
	Delete(ctx context.Context, id string) error
}

// Sweeper is implemented by stores that need an explicit purge of expired
// entries to bound storage growth.
type Sweeper interface {
	Sweep(ctx context.Context) (int, error)
}

// StartSweeper runs s.Sweep every interval until ctx is cancelled.
func StartSweeper(ctx context.Context, s Sweeper, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				n, err := s.Sweep(ctx)
				if err != nil {
					slog.Warn("proxy credential sweep failed", "error", err)
					continue
				}
				if n > 0 {
					slog.Debug("expired proxy credentials swept", "count", n)
				}
			}
		}
	}()
}

// Redact returns the log-safe prefix of a bridge identifier.
func Redact(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}
