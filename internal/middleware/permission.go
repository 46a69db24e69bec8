package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/SCP-015/nusahire/internal/domain/user"
	"github.com/SCP-015/nusahire/internal/service"
)

type effectiveCtxKey struct{}

// Decider evaluates permission requirements.
type Decider interface {
	Decide(ctx context.Context, raw *user.Principal, req user.Requirement) (service.Decision, error)
}

// RequirePermission guards a route with a permission requirement. Each
// group is a '|'-separated list of alternatives and every group must be met.
func RequirePermission(d Decider, groups ...string) func(http.Handler) http.Handler {
	req := user.ParseRequirement(groups...)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			decision, err := d.Decide(r.Context(), PrincipalFromContext(r.Context()), req)
			if err != nil {
				slog.ErrorContext(r.Context(), "permission check failed", "error", err)
				writeError(w, http.StatusInternalServerError, "internal server error")
				return
			}

			switch decision.Verdict {
			case service.Allow:
				ctx := context.WithValue(r.Context(), effectiveCtxKey{}, decision.Principal)
				next.ServeHTTP(w, r.WithContext(ctx))
			case service.Unauthorized:
				writeError(w, http.StatusUnauthorized, "unauthenticated")
			default:
				writeJSON(w, http.StatusForbidden, map[string]any{
					"error":                "forbidden",
					"required_permissions": decision.Required,
				})
			}
		})
	}
}

// EffectivePrincipalFromContext returns the principal a permission check
// was decided against, or nil when the route had no check.
func EffectivePrincipalFromContext(ctx context.Context) *user.Principal {
	p, _ := ctx.Value(effectiveCtxKey{}).(*user.Principal)
	return p
}
