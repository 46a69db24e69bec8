package service

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	obs "github.com/SCP-015/nusahire/internal/adapter/otel"
	"github.com/SCP-015/nusahire/internal/domain"
	"github.com/SCP-015/nusahire/internal/domain/tenant"
	"github.com/SCP-015/nusahire/internal/port/database"
)

// TenantResolver maps a path token to a tenant.
type TenantResolver struct {
	dir     database.TenantDirectory
	metrics *obs.Metrics
}

// NewTenantResolver creates a resolver over dir. metrics may be nil.
func NewTenantResolver(dir database.TenantDirectory, metrics *obs.Metrics) *TenantResolver {
	return &TenantResolver{dir: dir, metrics: metrics}
}

// Resolve tries token as a tenant id, then as a current slug, then as a
// retired slug. A retired-slug match is marked Historical. When nothing
// matches the error wraps domain.ErrTenantNotIdentified; any other error is
// a directory failure.
func (r *TenantResolver) Resolve(ctx context.Context, token string) (*tenant.Resolution, error) {
	ctx, span := obs.StartResolveSpan(ctx, token)
	defer span.End()

	res, outcome, err := r.resolve(ctx, token)
	r.metrics.Resolution(ctx, outcome)
	span.SetAttributes(attribute.String("tenant.outcome", outcome))
	if err != nil && !errors.Is(err, domain.ErrTenantNotIdentified) {
		span.RecordError(err)
		span.SetStatus(codes.Error, "tenant lookup failed")
	}
	return res, err
}

func (r *TenantResolver) resolve(ctx context.Context, token string) (*tenant.Resolution, string, error) {
	if token == "" {
		return nil, "not_found", fmt.Errorf("empty tenant token: %w", domain.ErrTenantNotIdentified)
	}

	lookups := []struct {
		outcome string
		find    func(context.Context, string) (*tenant.Tenant, error)
	}{
		{"id", r.dir.GetTenant},
		{"slug", r.dir.GetTenantBySlug},
		{"historical", r.dir.GetTenantBySlugHistory},
	}
	for _, l := range lookups {
		t, err := l.find(ctx, token)
		if err == nil {
			return &tenant.Resolution{Tenant: t, Token: token, Historical: l.outcome == "historical"}, l.outcome, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return nil, "error", fmt.Errorf("resolve tenant %q by %s: %w", token, l.outcome, err)
		}
	}
	return nil, "not_found", fmt.Errorf("tenant %q: %w", token, domain.ErrTenantNotIdentified)
}

// ShouldRedirect reports whether a resolution must be answered with a
// redirect to the tenant's current slug.
func ShouldRedirect(res *tenant.Resolution) bool {
	return res != nil && res.Historical && res.Tenant.RedirectOnHistoricalSlug
}
