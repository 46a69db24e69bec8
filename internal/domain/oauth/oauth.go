// Package oauth defines the access-token session and partner client models
// shared by the token minter and the HTTP layer.
package oauth

import (
	"errors"
	"slices"
	"time"
)

// Algorithm is the signature algorithm of every minted token.
const Algorithm = "RS256"

// ScopeAll is granted to first-party sessions.
const ScopeAll = "*"

// Session is an authenticated session about to be issued an access token.
// UserID is nil for client-only sessions; such tokens carry no identity claims.
type Session struct {
	ID        string    // becomes the jti claim
	ClientID  string    // becomes the aud claim
	UserID    *int64
	TenantID  string // tenant whose membership supplies the cross-system uid
	Scopes    []string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Client is a partner system allowed to receive SSO tokens.
type Client struct {
	ID     string   `yaml:"id" json:"id"`
	Name   string   `yaml:"name" json:"name"`
	Scopes []string `yaml:"scopes" json:"scopes"`
}

// ErrScopeNotAllowed is returned when a requested scope exceeds the client's grant.
var ErrScopeNotAllowed = errors.New("requested scope not allowed for client")

// CheckScopes verifies that every requested scope is allowed for the client.
func (c *Client) CheckScopes(requested []string) error {
	if slices.Contains(c.Scopes, ScopeAll) {
		return nil
	}
	for _, s := range requested {
		if !slices.Contains(c.Scopes, s) {
			return ErrScopeNotAllowed
		}
	}
	return nil
}

// PublicKeyDocument is served to downstream verifiers.
type PublicKeyDocument struct {
	PublicKey    string    `json:"public_key"`
	Algorithm    string    `json:"algorithm"`
	Format       string    `json:"format"`
	Fingerprint  string    `json:"fingerprint"`
	LastModified time.Time `json:"last_modified"`
}

// TokenResponse is returned by SSO token issuance.
type TokenResponse struct {
	AccessToken string `json:"access_token"` //nolint:gosec // response field, not a hardcoded secret
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// PartnerTokenRequest asks for an SSO token addressed to a partner client.
type PartnerTokenRequest struct {
	ClientID string   `json:"client_id"`
	Scopes   []string `json:"scopes"`
}

// Validate checks that the PartnerTokenRequest has all required fields.
func (r *PartnerTokenRequest) Validate() error {
	if r.ClientID == "" {
		return errors.New("client_id is required")
	}
	return nil
}
