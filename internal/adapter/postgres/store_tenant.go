package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/SCP-015/nusahire/internal/domain"
	"github.com/SCP-015/nusahire/internal/domain/tenant"
)

const tenantColumns = `id, name, slug, code, owner_id, redirect_on_historical_slug, created_at, updated_at`

func scanTenant(row scannable) (*tenant.Tenant, error) {
	var t tenant.Tenant
	var owner *int64
	if err := row.Scan(&t.ID, &t.Name, &t.Slug, &t.Code, &owner, &t.RedirectOnHistoricalSlug, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	if owner != nil {
		t.OwnerID = *owner
	}
	return &t, nil
}

// --- Directory lookups ---

func (s *Store) GetTenant(ctx context.Context, id string) (*tenant.Tenant, error) {
	t, err := scanTenant(s.pool.QueryRow(ctx,
		`SELECT `+tenantColumns+` FROM tenants WHERE id = $1`, id))
	if err != nil {
		return nil, notFoundWrap(err, "get tenant %s", id)
	}
	return t, nil
}

func (s *Store) GetTenantBySlug(ctx context.Context, slug string) (*tenant.Tenant, error) {
	t, err := scanTenant(s.pool.QueryRow(ctx,
		`SELECT `+tenantColumns+` FROM tenants WHERE slug = $1`, slug))
	if err != nil {
		return nil, notFoundWrap(err, "get tenant by slug %s", slug)
	}
	return t, nil
}

func (s *Store) GetTenantBySlugHistory(ctx context.Context, slug string) (*tenant.Tenant, error) {
	t, err := scanTenant(s.pool.QueryRow(ctx,
		`SELECT t.id, t.name, t.slug, t.code, t.owner_id, t.redirect_on_historical_slug, t.created_at, t.updated_at
		 FROM tenant_slug_history h JOIN tenants t ON t.id = h.tenant_id
		 WHERE h.slug = $1`, slug))
	if err != nil {
		return nil, notFoundWrap(err, "get tenant by slug history %s", slug)
	}
	return t, nil
}

// --- Administration ---

func (s *Store) ListTenants(ctx context.Context) ([]tenant.Tenant, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+tenantColumns+` FROM tenants ORDER BY created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("list tenants: %w", err)
	}
	defer rows.Close()

	var tenants []tenant.Tenant
	for rows.Next() {
		t, err := scanTenant(rows)
		if err != nil {
			return nil, fmt.Errorf("scan tenant: %w", err)
		}
		tenants = append(tenants, *t)
	}
	return tenants, rows.Err()
}

// CreateTenant inserts t. The slug must not be current elsewhere or retired.
func (s *Store) CreateTenant(ctx context.Context, t *tenant.Tenant) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if err := checkNotRetired(ctx, tx, t.Slug); err != nil {
			return err
		}
		err := tx.QueryRow(ctx,
			`INSERT INTO tenants (id, name, slug, code, owner_id, redirect_on_historical_slug)
			 VALUES ($1, $2, $3, $4, $5, $6)
			 RETURNING created_at, updated_at`,
			t.ID, t.Name, t.Slug, t.Code, nullIfZero(t.OwnerID), t.RedirectOnHistoricalSlug,
		).Scan(&t.CreatedAt, &t.UpdatedAt)
		if isUniqueViolation(err) {
			return fmt.Errorf("create tenant %s: %w", t.Slug, domain.ErrConflict)
		}
		if err != nil {
			return fmt.Errorf("create tenant: %w", err)
		}
		return nil
	})
}

// RenameTenantSlug moves the current slug into history and sets the new one
// in a single transaction.
func (s *Store) RenameTenantSlug(ctx context.Context, id, slug string) (string, error) {
	var retired string
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if err := tx.QueryRow(ctx,
			`SELECT slug FROM tenants WHERE id = $1 FOR UPDATE`, id,
		).Scan(&retired); err != nil {
			return notFoundWrap(err, "rename tenant %s", id)
		}
		if retired == slug {
			return nil
		}
		if err := checkNotRetired(ctx, tx, slug); err != nil {
			return err
		}

		_, err := tx.Exec(ctx,
			`UPDATE tenants SET slug = $2, updated_at = now() WHERE id = $1`, id, slug)
		if isUniqueViolation(err) {
			return fmt.Errorf("rename tenant %s to %s: %w", id, slug, domain.ErrConflict)
		}
		if err != nil {
			return fmt.Errorf("rename tenant %s: %w", id, err)
		}

		if _, err := tx.Exec(ctx,
			`INSERT INTO tenant_slug_history (slug, tenant_id) VALUES ($1, $2)`, retired, id); err != nil {
			return fmt.Errorf("retire slug %s: %w", retired, err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return retired, nil
}

func checkNotRetired(ctx context.Context, tx pgx.Tx, slug string) error {
	var retired bool
	if err := tx.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM tenant_slug_history WHERE slug = $1)`, slug,
	).Scan(&retired); err != nil {
		return fmt.Errorf("check slug history: %w", err)
	}
	if retired {
		return fmt.Errorf("slug %s: %w", slug, tenant.ErrSlugRetired)
	}
	return nil
}

func (s *Store) SetTenantRedirect(ctx context.Context, id string, enabled bool) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE tenants SET redirect_on_historical_slug = $2, updated_at = now() WHERE id = $1`,
		id, enabled)
	return execExpectOne(tag, err, "set tenant redirect %s", id)
}

// SlugInUse reports whether slug is current for any tenant or retired.
func (s *Store) SlugInUse(ctx context.Context, slug string) (bool, error) {
	var used bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM tenants WHERE slug = $1)
		     OR EXISTS(SELECT 1 FROM tenant_slug_history WHERE slug = $1)`, slug,
	).Scan(&used)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return false, fmt.Errorf("check slug %s: %w", slug, err)
	}
	return used, nil
}

func (s *Store) ListSlugHistory(ctx context.Context, tenantID string) ([]tenant.SlugHistory, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT slug, tenant_id, retired_at FROM tenant_slug_history
		 WHERE tenant_id = $1 ORDER BY retired_at DESC`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list slug history: %w", err)
	}
	defer rows.Close()

	var out []tenant.SlugHistory
	for rows.Next() {
		var h tenant.SlugHistory
		if err := rows.Scan(&h.Slug, &h.TenantID, &h.RetiredAt); err != nil {
			return nil, fmt.Errorf("scan slug history: %w", err)
		}
		out = append(out, h)
	}
	return out, rows.Err()
}
