package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"slices"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/SCP-015/nusahire/internal/domain"
	"github.com/SCP-015/nusahire/internal/domain/tenant"
	"github.com/SCP-015/nusahire/internal/service"
)

// RouteContext tells tenant resolution how a route group is consumed.
type RouteContext int

const (
	// ContextAPI routes proceed without a tenant when none is identified.
	ContextAPI RouteContext = iota
	// ContextWeb routes are browser-facing: an unknown tenant is a 404 and
	// retired slugs may be redirected.
	ContextWeb
)

// TenantResolver is the resolution contract the middleware depends on.
type TenantResolver interface {
	Resolve(ctx context.Context, token string) (*tenant.Resolution, error)
}

// TenantOptions configures Tenant.
type TenantOptions struct {
	RouteParam     string // route parameter carrying the tenant token
	CentralDomains []string
	Context        RouteContext
}

// Tenant resolves the tenant named by the route parameter (or the first path
// segment), rewrites the parameter to the canonical tenant id and binds the
// tenant to the request context.
func Tenant(resolver TenantResolver, opts TenantOptions) func(http.Handler) http.Handler {
	central := make([]string, 0, len(opts.CentralDomains))
	for _, d := range opts.CentralDomains {
		central = append(central, strings.ToLower(d))
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := chi.URLParam(r, opts.RouteParam)
			if token == "" {
				token = firstSegment(r.URL.Path)
			}

			res, err := resolver.Resolve(r.Context(), token)
			if err != nil {
				if !errors.Is(err, domain.ErrTenantNotIdentified) {
					slog.ErrorContext(r.Context(), "tenant resolution failed", "token", token, "error", err)
					writeError(w, http.StatusInternalServerError, "internal server error")
					return
				}
				if opts.Context == ContextWeb || slices.Contains(central, requestHost(r)) {
					writeError(w, http.StatusNotFound, "tenant not found")
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			if opts.Context == ContextWeb && service.ShouldRedirect(res) &&
				(r.Method == http.MethodGet || r.Method == http.MethodHead) {
				w.Header().Set("Cache-Control", "no-store")
				w.Header().Set("Location", replaceSegment(r.URL, token, res.Tenant.Slug))
				w.WriteHeader(http.StatusFound)
				return
			}

			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				setURLParam(rctx, opts.RouteParam, res.Tenant.ID)
			}
			ctx := tenant.WithTenant(r.Context(), res)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// setURLParam overwrites key in the route params, adding it when the route
// did not declare it.
func setURLParam(rctx *chi.Context, key, value string) {
	for i, k := range rctx.URLParams.Keys {
		if k == key {
			rctx.URLParams.Values[i] = value
			return
		}
	}
	rctx.URLParams.Add(key, value)
}

func firstSegment(path string) string {
	path = strings.TrimPrefix(path, "/")
	if i := strings.IndexByte(path, '/'); i >= 0 {
		return path[:i]
	}
	return path
}

// replaceSegment swaps the first path segment equal to from and keeps the
// rest of the path and the query string verbatim.
func replaceSegment(u *url.URL, from, to string) string {
	segments := strings.Split(u.EscapedPath(), "/")
	for i, s := range segments {
		if s == from || s == url.PathEscape(from) {
			segments[i] = url.PathEscape(to)
			break
		}
	}
	loc := strings.Join(segments, "/")
	if u.RawQuery != "" {
		loc += "?" + u.RawQuery
	}
	return loc
}

func requestHost(r *http.Request) string {
	host := r.Host
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	return strings.ToLower(host)
}
