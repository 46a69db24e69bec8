package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/golang-jwt/jwt/v5"

	obs "github.com/SCP-015/nusahire/internal/adapter/otel"
	"github.com/SCP-015/nusahire/internal/domain"
	"github.com/SCP-015/nusahire/internal/domain/oauth"
	"github.com/SCP-015/nusahire/internal/domain/user"
	"github.com/SCP-015/nusahire/internal/port/database"
)

// UserClaims bridge the caller's identity to partner systems. They are only
// present on user-bound tokens.
type UserClaims struct {
	Subject  string `json:"sub"`
	UID      *int64 `json:"uid"` // cross-system id from the tenant membership
	LocalUID int64  `json:"uid_nusahire"`
	Email    string `json:"email"`
}

// Claims is the stable claim set of every minted token.
type Claims struct {
	Issuer    string           `json:"iss"`
	Audience  string           `json:"aud"`
	ID        string           `json:"jti"`
	IssuedAt  *jwt.NumericDate `json:"iat"`
	NotBefore *jwt.NumericDate `json:"nbf"`
	ExpiresAt *jwt.NumericDate `json:"exp"`
	Scopes    []string         `json:"scopes"`
	*UserClaims
}

var _ jwt.Claims = (*Claims)(nil)

func (c *Claims) GetExpirationTime() (*jwt.NumericDate, error) { return c.ExpiresAt, nil }
func (c *Claims) GetIssuedAt() (*jwt.NumericDate, error)       { return c.IssuedAt, nil }
func (c *Claims) GetNotBefore() (*jwt.NumericDate, error)      { return c.NotBefore, nil }
func (c *Claims) GetIssuer() (string, error)                   { return c.Issuer, nil }
func (c *Claims) GetAudience() (jwt.ClaimStrings, error)       { return jwt.ClaimStrings{c.Audience}, nil }

func (c *Claims) GetSubject() (string, error) {
	if c.UserClaims == nil {
		return "", nil
	}
	return c.Subject, nil
}

// UserID parses the subject. ok is false for client-only tokens.
func (c *Claims) UserID() (int64, bool) {
	if c.UserClaims == nil {
		return 0, false
	}
	id, err := strconv.ParseInt(c.Subject, 10, 64)
	return id, err == nil
}

type userReader interface {
	GetUser(ctx context.Context, id int64) (*user.User, error)
}

// TokenMinter signs and verifies RS256 access tokens.
type TokenMinter struct {
	keys    *KeyPair
	issuer  string
	users   userReader
	members database.MemberDirectory
	metrics *obs.Metrics
}

// NewTokenMinter creates a minter. metrics may be nil.
func NewTokenMinter(keys *KeyPair, issuer string, users userReader, members database.MemberDirectory, metrics *obs.Metrics) *TokenMinter {
	return &TokenMinter{keys: keys, issuer: issuer, users: users, members: members, metrics: metrics}
}

// PublicKey returns the verification key document.
func (m *TokenMinter) PublicKey() oauth.PublicKeyDocument {
	return m.keys.Document()
}

// Build assembles and signs the token for s.
func (m *TokenMinter) Build(ctx context.Context, s oauth.Session) (string, *Claims, error) {
	ctx, span := obs.StartMintSpan(ctx, s.ClientID)
	defer span.End()

	token, claims, err := m.build(ctx, s)
	if err != nil {
		m.metrics.TokenMinted(ctx, "error")
		span.RecordError(err)
		return "", nil, err
	}
	m.metrics.TokenMinted(ctx, "ok")
	return token, claims, nil
}

func (m *TokenMinter) build(ctx context.Context, s oauth.Session) (string, *Claims, error) {
	scopes := s.Scopes
	if scopes == nil {
		scopes = []string{}
	}
	claims := &Claims{
		Issuer:    m.issuer,
		Audience:  s.ClientID,
		ID:        s.ID,
		IssuedAt:  jwt.NewNumericDate(s.IssuedAt),
		NotBefore: jwt.NewNumericDate(s.IssuedAt),
		ExpiresAt: jwt.NewNumericDate(s.ExpiresAt),
		Scopes:    scopes,
	}

	if s.UserID != nil {
		uc, err := m.userClaims(ctx, *s.UserID, s.TenantID)
		if err != nil {
			return "", nil, err
		}
		claims.UserClaims = uc
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(m.keys.Private)
	if err != nil {
		return "", nil, fmt.Errorf("sign token: %w", err)
	}
	return signed, claims, nil
}

// userClaims takes the cross-system id from the membership in tenantID,
// falling back to the user's most recent membership that has one.
func (m *TokenMinter) userClaims(ctx context.Context, userID int64, tenantID string) (*UserClaims, error) {
	u, err := m.users.GetUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load token user: %w", err)
	}

	var uid *int64
	if tenantID != "" {
		mem, err := m.members.GetMember(ctx, tenantID, userID)
		switch {
		case err == nil:
			uid = mem.ExternalUID
		case !errors.Is(err, domain.ErrNotFound):
			return nil, fmt.Errorf("load token membership: %w", err)
		}
	}
	if uid == nil {
		if uid, err = m.members.LatestExternalUID(ctx, userID); err != nil {
			return nil, fmt.Errorf("load external uid: %w", err)
		}
	}

	return &UserClaims{
		Subject:  strconv.FormatInt(u.ID, 10),
		UID:      uid,
		LocalUID: u.ID,
		Email:    u.Email,
	}, nil
}

// Render is Build for formatting paths such as templates and embedding
// hosts that cannot handle an error: any failure is logged and yields "".
// Request handlers call Build.
func (m *TokenMinter) Render(ctx context.Context, s oauth.Session) string {
	token, _, err := m.Build(ctx, s)
	if err != nil {
		slog.ErrorContext(ctx, "token render failed", "client_id", s.ClientID, "error", err)
		return ""
	}
	return token
}

// Verify checks signature, algorithm, issuer, audience and time claims.
// Tokens addressed to any other client than audience are rejected.
func (m *TokenMinter) Verify(token, audience string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims,
		func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodRSA); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return m.keys.Public, nil
		},
		jwt.WithValidMethods([]string{oauth.Algorithm}),
		jwt.WithIssuer(m.issuer),
		jwt.WithAudience(audience),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, err
	}
	return claims, nil
}
