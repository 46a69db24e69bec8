package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/SCP-015/nusahire/internal/domain"
	"github.com/SCP-015/nusahire/internal/domain/tenant"
	"github.com/SCP-015/nusahire/internal/port/database"
)

const (
	joinCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	joinCodeLength   = 6
	createAttempts   = 3
)

// TenantService manages tenant provisioning and slug lifecycle.
type TenantService struct {
	store database.Store
	dir   *CachedDirectory
}

// NewTenantService creates a TenantService. dir, when set, is invalidated on
// every change.
func NewTenantService(store database.Store, dir *CachedDirectory) *TenantService {
	return &TenantService{store: store, dir: dir}
}

// Create validates req and provisions a tenant with a fresh id and join code.
func (s *TenantService) Create(ctx context.Context, req tenant.CreateRequest) (*tenant.Tenant, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	used, err := s.store.SlugInUse(ctx, req.Slug)
	if err != nil {
		return nil, err
	}
	if used {
		return nil, fmt.Errorf("slug %q: %w", req.Slug, domain.ErrConflict)
	}

	for attempt := 1; ; attempt++ {
		t := &tenant.Tenant{
			ID:      uuid.NewString(),
			Name:    req.Name,
			Slug:    req.Slug,
			Code:    joinCode(),
			OwnerID: req.OwnerID,
		}
		err := s.store.CreateTenant(ctx, t)
		if err == nil {
			slog.Info("tenant created", "tenant_id", t.ID, "slug", t.Slug)
			return t, nil
		}
		// A join code collision is the only conflict left after the slug check.
		if !errors.Is(err, domain.ErrConflict) || attempt == createAttempts {
			return nil, err
		}
	}
}

// Get returns a tenant by id.
func (s *TenantService) Get(ctx context.Context, id string) (*tenant.Tenant, error) {
	return s.store.GetTenant(ctx, id)
}

// List returns all tenants.
func (s *TenantService) List(ctx context.Context) ([]tenant.Tenant, error) {
	return s.store.ListTenants(ctx)
}

// History returns the tenant's retired slugs, newest first.
func (s *TenantService) History(ctx context.Context, id string) ([]tenant.SlugHistory, error) {
	return s.store.ListSlugHistory(ctx, id)
}

// RenameSlug changes the tenant's current slug. The previous slug is retired
// for good; a slug that is current elsewhere or retired is rejected.
func (s *TenantService) RenameSlug(ctx context.Context, id string, req tenant.RenameRequest) (*tenant.Tenant, error) {
	if err := tenant.ValidateSlug(req.Slug); err != nil {
		return nil, err
	}
	retired, err := s.store.RenameTenantSlug(ctx, id, req.Slug)
	if err != nil {
		return nil, err
	}
	t, err := s.store.GetTenant(ctx, id)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, t, retired)
	slog.Info("tenant slug renamed", "tenant_id", id, "from", retired, "to", t.Slug)
	return t, nil
}

// SetRedirectOnHistoricalSlug toggles redirects for retired slugs.
func (s *TenantService) SetRedirectOnHistoricalSlug(ctx context.Context, id string, enabled bool) (*tenant.Tenant, error) {
	if err := s.store.SetTenantRedirect(ctx, id, enabled); err != nil {
		return nil, err
	}
	t, err := s.store.GetTenant(ctx, id)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, t)
	return t, nil
}

// invalidate drops cached views of t, including every retired slug since
// history lookups cache the owning tenant's flags.
func (s *TenantService) invalidate(ctx context.Context, t *tenant.Tenant, extra ...string) {
	if s.dir == nil {
		return
	}
	slugs := extra
	history, err := s.store.ListSlugHistory(ctx, t.ID)
	if err != nil {
		slog.Warn("list slug history for invalidation", "tenant_id", t.ID, "error", err)
	}
	for _, h := range history {
		slugs = append(slugs, h.Slug)
	}
	s.dir.Invalidate(ctx, t, slugs...)
}

func joinCode() string {
	b := make([]byte, joinCodeLength)
	_, _ = rand.Read(b)
	for i := range b {
		b[i] = joinCodeAlphabet[int(b[i])%len(joinCodeAlphabet)]
	}
	return string(b)
}
