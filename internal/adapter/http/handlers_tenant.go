package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/SCP-015/nusahire/internal/domain/tenant"
	"github.com/SCP-015/nusahire/internal/domain/user"
	"github.com/SCP-015/nusahire/internal/middleware"
)

type tenantView struct {
	Tenant     *tenant.Tenant `json:"tenant"`
	Token      string         `json:"token"`
	Historical bool           `json:"historical"`
	Path       string         `json:"path,omitempty"`
}

// TenantSummary handles GET /api/{portal}/.
func (h *Handlers) TenantSummary(w http.ResponseWriter, r *http.Request) {
	res := tenant.ResolutionFromContext(r.Context())
	if res == nil {
		writeError(w, http.StatusNotFound, "tenant not found")
		return
	}
	writeJSON(w, http.StatusOK, tenantView{Tenant: res.Tenant, Token: res.Token, Historical: res.Historical})
}

// TenantMe handles GET /api/{portal}/me and returns the principal effective
// in the tenant: the membership when there is one, else the central user.
func (h *Handlers) TenantMe(w http.ResponseWriter, r *http.Request) {
	p, err := h.Permissions.EffectivePrincipal(r.Context(), middleware.PrincipalFromContext(r.Context()))
	if err != nil {
		writeInternalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Principal *user.Principal `json:"principal"`
		TenantID  string          `json:"tenant_id,omitempty"`
	}{p, tenant.IDFromContext(r.Context())})
}

// TenantHome handles GET /{portal}/ and GET /{portal}/*. Page rendering
// lives elsewhere; this reports the binding the page would render under.
func (h *Handlers) TenantHome(w http.ResponseWriter, r *http.Request) {
	res := tenant.ResolutionFromContext(r.Context())
	writeJSON(w, http.StatusOK, tenantView{
		Tenant:     res.Tenant,
		Token:      res.Token,
		Historical: res.Historical,
		Path:       chi.URLParam(r, "*"),
	})
}
