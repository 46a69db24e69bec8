package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// CredentialStore keeps proxy bridge entries in the proxy_credentials table.
// Expiry is compared against the application clock so reads and sweeps
// agree with the TTL computed at Put.
type CredentialStore struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

// NewCredentialStore creates a store on pool.
func NewCredentialStore(pool *pgxpool.Pool) *CredentialStore {
	return &CredentialStore{pool: pool, now: time.Now}
}

func (s *CredentialStore) Put(ctx context.Context, id, credential string, ttl time.Duration) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO proxy_credentials (id, credential, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET credential = EXCLUDED.credential, expires_at = EXCLUDED.expires_at`,
		id, credential, s.now().Add(ttl).UTC())
	if err != nil {
		return fmt.Errorf("put proxy credential: %w", err)
	}
	return nil
}

func (s *CredentialStore) Get(ctx context.Context, id string) (string, bool, error) {
	var credential string
	err := s.pool.QueryRow(ctx,
		`SELECT credential FROM proxy_credentials WHERE id = $1 AND expires_at > $2`,
		id, s.now().UTC()).Scan(&credential)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get proxy credential: %w", err)
	}
	return credential, true, nil
}

func (s *CredentialStore) Delete(ctx context.Context, id string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM proxy_credentials WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete proxy credential: %w", err)
	}
	return nil
}

// Sweep deletes expired rows.
func (s *CredentialStore) Sweep(ctx context.Context) (int, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM proxy_credentials WHERE expires_at <= $1`, s.now().UTC())
	if err != nil {
		return 0, fmt.Errorf("sweep proxy credentials: %w", err)
	}
	return int(tag.RowsAffected()), nil
}
