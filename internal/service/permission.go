package service

import (
	"context"
	"errors"
	"fmt"

	obs "github.com/SCP-015/nusahire/internal/adapter/otel"
	"github.com/SCP-015/nusahire/internal/domain"
	"github.com/SCP-015/nusahire/internal/domain/tenant"
	"github.com/SCP-015/nusahire/internal/domain/user"
	"github.com/SCP-015/nusahire/internal/port/database"
)

// Verdict is the outcome of a permission check.
type Verdict int

const (
	Allow Verdict = iota
	Unauthorized
	Forbidden
)

func (v Verdict) String() string {
	switch v {
	case Allow:
		return "allow"
	case Unauthorized:
		return "unauthorized"
	case Forbidden:
		return "forbidden"
	default:
		return "unknown"
	}
}

// Decision is a verdict plus what it was reached against.
type Decision struct {
	Verdict   Verdict
	Principal *user.Principal // effective principal, nil when unauthenticated
	Required  []string        // names of the requirement, set on Forbidden
}

// PermissionEvaluator decides declared permission requirements against the
// principal effective in the current execution context.
type PermissionEvaluator struct {
	members database.MemberDirectory
	metrics *obs.Metrics
}

// NewPermissionEvaluator creates an evaluator. metrics may be nil.
func NewPermissionEvaluator(members database.MemberDirectory, metrics *obs.Metrics) *PermissionEvaluator {
	return &PermissionEvaluator{members: members, metrics: metrics}
}

// EffectivePrincipal swaps raw for its membership in the tenant bound to
// ctx. Without a tenant, or without a membership, raw is used as is.
func (e *PermissionEvaluator) EffectivePrincipal(ctx context.Context, raw *user.Principal) (*user.Principal, error) {
	if raw == nil {
		return nil, nil
	}
	tenantID := tenant.IDFromContext(ctx)
	if tenantID == "" || raw.TenantID == tenantID {
		return raw, nil
	}

	m, err := e.members.GetMember(ctx, tenantID, raw.UserID)
	if errors.Is(err, domain.ErrNotFound) {
		return raw, nil
	}
	if err != nil {
		return nil, fmt.Errorf("resolve member for user %d: %w", raw.UserID, err)
	}
	return user.ScopedPrincipal(raw, m), nil
}

// Decide evaluates req for raw. Super admins pass every requirement.
func (e *PermissionEvaluator) Decide(ctx context.Context, raw *user.Principal, req user.Requirement) (Decision, error) {
	p, err := e.EffectivePrincipal(ctx, raw)
	if err != nil {
		e.metrics.Decision(ctx, "error")
		return Decision{}, err
	}

	var d Decision
	switch {
	case p == nil:
		d = Decision{Verdict: Unauthorized}
	case p.IsSuperAdmin() || req.SatisfiedBy(p):
		d = Decision{Verdict: Allow, Principal: p}
	default:
		d = Decision{Verdict: Forbidden, Principal: p, Required: req.Names()}
	}
	e.metrics.Decision(ctx, d.Verdict.String())
	return d, nil
}
