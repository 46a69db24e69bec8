package tenant

import "context"

type ctxKey struct{}

// Resolution describes the tenant bound to a request. Historical is set when
// the request addressed the tenant by a retired slug.
type Resolution struct {
	Tenant     *Tenant
	Token      string // path segment the tenant was resolved from
	Historical bool
}

// WithTenant returns a copy of ctx scoped to the resolved tenant. The scope
// ends with the request context, so no explicit teardown is needed.
func WithTenant(ctx context.Context, res *Resolution) context.Context {
	return context.WithValue(ctx, ctxKey{}, res)
}

// FromContext returns the tenant bound to ctx, or nil in central context.
func FromContext(ctx context.Context) *Tenant {
	if res := ResolutionFromContext(ctx); res != nil {
		return res.Tenant
	}
	return nil
}

// ResolutionFromContext returns the full resolution bound to ctx, or nil.
func ResolutionFromContext(ctx context.Context) *Resolution {
	res, _ := ctx.Value(ctxKey{}).(*Resolution)
	if res == nil || res.Tenant == nil {
		return nil
	}
	return res
}

// IDFromContext returns the bound tenant ID, or "" in central context.
func IDFromContext(ctx context.Context) string {
	if t := FromContext(ctx); t != nil {
		return t.ID
	}
	return ""
}
