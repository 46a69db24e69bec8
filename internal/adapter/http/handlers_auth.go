package http

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/SCP-015/nusahire/internal/domain/oauth"
	"github.com/SCP-015/nusahire/internal/domain/tenant"
	"github.com/SCP-015/nusahire/internal/domain/user"
	"github.com/SCP-015/nusahire/internal/middleware"
)

// publicKeyMaxAge is how long verifiers may cache the public key document.
const publicKeyMaxAge = time.Hour

// Login handles POST /api/auth/login and POST /api/{portal}/auth/login.
// The access token is returned in the body and parked behind the bridge
// cookie.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[user.LoginRequest](w, r)
	if !ok {
		return
	}

	resp, id, err := h.Auth.Login(r.Context(), req, tenant.IDFromContext(r.Context()))
	if err != nil {
		slog.Debug("login failed", "email", req.Email, "error", err)
		writeDomainError(w, err, "login failed")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     h.Proxy.CookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.Proxy.SecureCookie,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(h.Bridge.TTL() / time.Second),
	})
	writeJSON(w, http.StatusOK, resp)
}

// Logout handles POST /api/auth/logout. It is idempotent: a missing cookie
// or token is not an error.
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	var id string
	if c, err := r.Cookie(h.Proxy.CookieName); err == nil {
		id = c.Value
	}

	if err := h.Auth.Logout(r.Context(), id, middleware.ClaimsFromContext(r.Context())); err != nil {
		writeInternalError(w, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     h.Proxy.CookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   h.Proxy.SecureCookie,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
	writeJSON(w, http.StatusOK, map[string]string{"status": "logged out"})
}

// Me handles GET /api/auth/me and returns the central principal.
func (h *Handlers) Me(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, middleware.PrincipalFromContext(r.Context()))
}

// PublicKey handles GET /api/oauth/public-key.
func (h *Handlers) PublicKey(w http.ResponseWriter, _ *http.Request) {
	doc := h.Auth.PublicKey()
	w.Header().Set("Cache-Control", "public, max-age="+strconv.Itoa(int(publicKeyMaxAge/time.Second)))
	w.Header().Set("Last-Modified", doc.LastModified.UTC().Format(http.TimeFormat))
	writeJSON(w, http.StatusOK, doc)
}

// IssueSSOToken handles POST /api/{portal}/sso/token. The token carries the
// caller's identity in the current tenant and is addressed to a partner
// client.
func (h *Handlers) IssueSSOToken(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[oauth.PartnerTokenRequest](w, r)
	if !ok {
		return
	}

	p := middleware.EffectivePrincipalFromContext(r.Context())
	if p == nil {
		p = middleware.PrincipalFromContext(r.Context())
	}
	resp, err := h.Auth.IssuePartnerToken(r.Context(), p, tenant.IDFromContext(r.Context()), req)
	if err != nil {
		writeDomainError(w, err, "client not found")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
