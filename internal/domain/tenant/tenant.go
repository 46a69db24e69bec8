// Package tenant defines the portal (tenant) domain model for multi-tenancy.
package tenant

import (
	"errors"
	"fmt"
	"regexp"
	"slices"
	"time"

	"github.com/SCP-015/nusahire/internal/domain"
)

// Tenant is an isolated organization namespace ("portal"). ID never changes
// once assigned; Slug is unique among current slugs and may be renamed.
type Tenant struct {
	ID                       string    `json:"id"`
	Name                     string    `json:"name"`
	Slug                     string    `json:"slug"`
	Code                     string    `json:"code"` // short join code for invites
	OwnerID                  int64     `json:"owner_id"`
	RedirectOnHistoricalSlug bool      `json:"redirect_on_historical_slug"`
	CreatedAt                time.Time `json:"created_at"`
	UpdatedAt                time.Time `json:"updated_at"`
}

// SlugHistory records a retired slug. A retired slug is never reissued as any
// tenant's current slug.
type SlugHistory struct {
	Slug      string    `json:"slug"`
	TenantID  string    `json:"tenant_id"`
	RetiredAt time.Time `json:"retired_at"`
}

// CreateRequest holds the fields required to provision a new tenant.
type CreateRequest struct {
	Name    string `json:"name"`
	Slug    string `json:"slug"`
	OwnerID int64  `json:"owner_id"`
}

// Validate checks the request fields.
func (r *CreateRequest) Validate() error {
	if r.Name == "" {
		return fmt.Errorf("%w: tenant name is required", domain.ErrValidation)
	}
	return ValidateSlug(r.Slug)
}

// RenameRequest changes the current slug of a tenant.
type RenameRequest struct {
	Slug string `json:"slug"`
}

var slugRegex = regexp.MustCompile(`^[a-z0-9][a-z0-9-]{1,62}[a-z0-9]$`)

// ErrSlugRetired is returned when a slug is already present in slug history.
var ErrSlugRetired = errors.New("slug has been retired and cannot be reused")

// reservedSlugs shadow fixed route segments.
var reservedSlugs = []string{"api", "auth", "oauth", "health", "static"}

// ValidateSlug checks the slug format: 3-64 lowercase alphanumerics or hyphens,
// not starting or ending with a hyphen, and not a reserved route segment.
func ValidateSlug(slug string) error {
	if !slugRegex.MatchString(slug) {
		return fmt.Errorf("%w: invalid slug %q: must be 3-64 lowercase alphanumeric characters or hyphens", domain.ErrValidation, slug)
	}
	if slices.Contains(reservedSlugs, slug) {
		return fmt.Errorf("%w: slug %q is reserved", domain.ErrValidation, slug)
	}
	return nil
}
