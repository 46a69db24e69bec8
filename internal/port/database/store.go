// Package database defines the database store port (interface).
package database

import (
	"context"
	"time"

	"github.com/SCP-015/nusahire/internal/domain/tenant"
	"github.com/SCP-015/nusahire/internal/domain/user"
)

// TenantDirectory is the read path used by tenant resolution. Lookups
// return an error wrapping domain.ErrNotFound when nothing matches.
type TenantDirectory interface {
	GetTenant(ctx context.Context, id string) (*tenant.Tenant, error)
	GetTenantBySlug(ctx context.Context, slug string) (*tenant.Tenant, error)
	// GetTenantBySlugHistory returns the tenant that retired slug.
	GetTenantBySlugHistory(ctx context.Context, slug string) (*tenant.Tenant, error)
}

// MemberDirectory resolves tenant-scoped principals.
type MemberDirectory interface {
	GetMember(ctx context.Context, tenantID string, userID int64) (*user.Member, error)
	// LatestExternalUID returns the cross-system id of the user's most recent
	// membership that has one, or nil.
	LatestExternalUID(ctx context.Context, userID int64) (*int64, error)
}

// Store is the port interface for database operations.
type Store interface {
	TenantDirectory
	MemberDirectory

	// Tenants
	ListTenants(ctx context.Context) ([]tenant.Tenant, error)
	CreateTenant(ctx context.Context, t *tenant.Tenant) error
	// RenameTenantSlug retires the current slug into history and sets slug,
	// atomically. It fails with domain.ErrConflict when slug is current
	// elsewhere and tenant.ErrSlugRetired when slug is in history.
	RenameTenantSlug(ctx context.Context, id, slug string) (retired string, err error)
	SetTenantRedirect(ctx context.Context, id string, enabled bool) error
	SlugInUse(ctx context.Context, slug string) (bool, error)
	ListSlugHistory(ctx context.Context, tenantID string) ([]tenant.SlugHistory, error)

	// Users
	CreateUser(ctx context.Context, u *user.User) error
	GetUser(ctx context.Context, id int64) (*user.User, error)
	GetUserByEmail(ctx context.Context, email string) (*user.User, error)

	// Members
	AddMember(ctx context.Context, req user.AddMemberRequest) (*user.Member, error)
	ListMemberships(ctx context.Context, userID int64) ([]user.Member, error)

	// Revoked access tokens
	RevokeToken(ctx context.Context, jti string, expiresAt time.Time) error
	IsTokenRevoked(ctx context.Context, jti string) (bool, error)
	PurgeExpiredTokens(ctx context.Context) (int64, error)
}
