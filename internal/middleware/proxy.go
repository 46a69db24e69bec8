package middleware

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strings"

	"github.com/SCP-015/nusahire/internal/port/credstore"
)

const (
	headerForwardedFor = "X-Forwarded-For"
	headerVia          = "Via"
	// HeaderClientIP carries the original client address to downstream handlers.
	HeaderClientIP = "Client-IP"
)

// CredentialLookup resolves a bridge identifier to its bearer credential.
type CredentialLookup interface {
	Lookup(ctx context.Context, id string) (string, bool)
}

// ProxyBridge restores the credential of requests that arrive through a
// proxy hop carrying the bridge cookie. The client address is taken from the
// left-most X-Forwarded-For entry and the stored credential is injected as
// a bearer Authorization header. A miss leaves the request untouched; the
// request is never failed here.
func ProxyBridge(bridge CredentialLookup, cookieName string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			forwarded := r.Header.Get(headerForwardedFor)
			if forwarded == "" && r.Header.Get(headerVia) == "" {
				next.ServeHTTP(w, r)
				return
			}
			cookie, err := r.Cookie(cookieName)
			if err != nil || cookie.Value == "" {
				next.ServeHTTP(w, r)
				return
			}

			r = r.Clone(r.Context())
			if ip := leftmostAddress(forwarded); ip != "" {
				r.RemoteAddr = withPort(ip, r.RemoteAddr)
				r.Header.Set(HeaderClientIP, ip)
			}
			if credential, ok := bridge.Lookup(r.Context(), cookie.Value); ok {
				r.Header.Set("Authorization", "Bearer "+credential)
			} else {
				slog.DebugContext(r.Context(), "proxy credential not found", "id_prefix", credstore.Redact(cookie.Value))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// leftmostAddress returns the first entry of an X-Forwarded-For chain when
// it parses as an IP address.
func leftmostAddress(chain string) string {
	first, _, _ := strings.Cut(chain, ",")
	first = strings.TrimSpace(first)
	if net.ParseIP(first) == nil {
		return ""
	}
	return first
}

// withPort keeps the port of the original peer address so RemoteAddr stays
// in host:port form.
func withPort(ip, remoteAddr string) string {
	port := "0"
	if _, p, err := net.SplitHostPort(remoteAddr); err == nil {
		port = p
	}
	return net.JoinHostPort(ip, port)
}
