package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/SCP-015/nusahire/internal/config"
	"github.com/SCP-015/nusahire/internal/middleware"
)

// Deps carries the middleware collaborators MountRoutes wires in.
type Deps struct {
	Resolver middleware.TenantResolver
	Bridge   middleware.CredentialLookup
	Auth     middleware.Authenticator
	Decider  middleware.Decider
	Limiter  *middleware.RateLimiter
	Tenancy  config.Tenancy
	Cookie   string
}

// MountRoutes registers the central, tenant API and tenant web routes on r.
func MountRoutes(r chi.Router, h *Handlers, d Deps) {
	tenantAPI := middleware.Tenant(d.Resolver, middleware.TenantOptions{
		RouteParam:     d.Tenancy.RouteParam,
		CentralDomains: d.Tenancy.CentralDomains,
		Context:        middleware.ContextAPI,
	})
	tenantWeb := middleware.Tenant(d.Resolver, middleware.TenantOptions{
		RouteParam:     d.Tenancy.RouteParam,
		CentralDomains: d.Tenancy.CentralDomains,
		Context:        middleware.ContextWeb,
	})
	param := "/{" + d.Tenancy.RouteParam + "}"

	login := http.Handler(http.HandlerFunc(h.Login))
	if d.Limiter != nil {
		login = d.Limiter.Handler(login)
	}

	r.Group(func(r chi.Router) {
		r.Use(middleware.ProxyBridge(d.Bridge, d.Cookie))
		r.Use(middleware.Authenticate(d.Auth))

		r.Route("/api", func(r chi.Router) {
			r.Get("/oauth/public-key", h.PublicKey)

			r.Method(http.MethodPost, "/auth/login", login)
			r.Post("/auth/logout", h.Logout)
			r.With(middleware.RequireAuth).Get("/auth/me", h.Me)

			r.Route(param, func(r chi.Router) {
				r.Use(tenantAPI)
				r.Use(TenantLogTag)

				r.Method(http.MethodPost, "/auth/login", login)

				r.Group(func(r chi.Router) {
					r.Use(middleware.RequireAuth)
					r.Get("/me", h.TenantMe)
					r.With(middleware.RequirePermission(d.Decider, "portals.view|portals.*")).
						Get("/", h.TenantSummary)
					r.With(middleware.RequirePermission(d.Decider, "sso.issue")).
						Post("/sso/token", h.IssueSSOToken)
				})
			})
		})

		r.Route(param, func(r chi.Router) {
			r.Use(tenantWeb)
			r.Use(TenantLogTag)
			r.Get("/", h.TenantHome)
			r.Get("/*", h.TenantHome)
		})
	})
}
