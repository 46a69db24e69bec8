package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/SCP-015/nusahire/internal/config"
	"github.com/SCP-015/nusahire/internal/domain"
	"github.com/SCP-015/nusahire/internal/domain/oauth"
	"github.com/SCP-015/nusahire/internal/domain/user"
	"github.com/SCP-015/nusahire/internal/port/database"
)

var (
	// ErrInvalidCredentials is returned for an unknown email or a wrong password.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUnauthenticated is returned when a bearer token cannot be accepted.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrNotMember is returned when a user signs in to a tenant they do not belong to.
	ErrNotMember = errors.New("user is not a member of this tenant")
	// ErrUnknownClient is returned for a partner client that is not configured.
	ErrUnknownClient = errors.New("unknown oauth client")
)

// AuthService handles primary authentication and token issuance.
type AuthService struct {
	store  database.Store
	minter *TokenMinter
	bridge *CredentialBridge
	oauth  config.OAuth
	cost   int
	now    func() time.Time
}

// NewAuthService creates a new authentication service.
func NewAuthService(store database.Store, minter *TokenMinter, bridge *CredentialBridge, oauthCfg config.OAuth, authCfg config.Auth) *AuthService {
	return &AuthService{
		store:  store,
		minter: minter,
		bridge: bridge,
		oauth:  oauthCfg,
		cost:   authCfg.BcryptCost,
		now:    time.Now,
	}
}

// Register creates a new user with a bcrypt-hashed password.
func (s *AuthService) Register(ctx context.Context, req *user.CreateRequest) (*user.User, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrValidation, err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u := &user.User{
		Email:        req.Email,
		Name:         req.Name,
		PasswordHash: string(hash),
		Roles:        req.Roles,
	}
	if err := s.store.CreateUser(ctx, u); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return u, nil
}

// AddMember attaches a user to a tenant.
func (s *AuthService) AddMember(ctx context.Context, req user.AddMemberRequest) (*user.Member, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrValidation, err)
	}
	if _, err := s.store.GetUser(ctx, req.UserID); err != nil {
		return nil, err
	}
	if _, err := s.store.GetTenant(ctx, req.TenantID); err != nil {
		return nil, err
	}
	return s.store.AddMember(ctx, req)
}

// Login checks the password, mints a first-party token and parks it behind a
// new bridge identifier. tenantID is the tenant the user signs in to, or ""
// for central login. It returns the response and the bridge identifier.
func (s *AuthService) Login(ctx context.Context, req user.LoginRequest, tenantID string) (*user.LoginResponse, string, error) {
	if err := req.Validate(); err != nil {
		return nil, "", fmt.Errorf("%w: %w", domain.ErrValidation, err)
	}

	u, err := s.store.GetUserByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", fmt.Errorf("get user: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)); err != nil {
		return nil, "", ErrInvalidCredentials
	}

	if tenantID != "" && !slices.Contains(u.Roles, user.RoleSuperAdmin) {
		if _, err := s.store.GetMember(ctx, tenantID, u.ID); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, "", ErrNotMember
			}
			return nil, "", fmt.Errorf("get member: %w", err)
		}
	}

	now := s.now()
	token, _, err := s.minter.Build(ctx, oauth.Session{
		ID:        uuid.NewString(),
		ClientID:  s.oauth.ClientID,
		UserID:    &u.ID,
		TenantID:  tenantID,
		Scopes:    []string{oauth.ScopeAll},
		IssuedAt:  now,
		ExpiresAt: now.Add(s.oauth.AccessTokenExpiry),
	})
	if err != nil {
		return nil, "", fmt.Errorf("mint access token: %w", err)
	}

	id, err := s.bridge.Issue(ctx, token)
	if err != nil {
		return nil, "", err
	}

	slog.InfoContext(ctx, "user logged in", "user_id", u.ID)
	return &user.LoginResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int(s.oauth.AccessTokenExpiry.Seconds()),
		User:        *u,
	}, id, nil
}

// Authenticate verifies a bearer token and returns the central principal it
// identifies. Client-only and revoked tokens are rejected, as are tokens
// minted for partner clients.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*user.Principal, *Claims, error) {
	claims, err := s.minter.Verify(token, s.oauth.ClientID)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrUnauthenticated, err)
	}
	userID, ok := claims.UserID()
	if !ok {
		return nil, nil, fmt.Errorf("%w: token is not bound to a user", ErrUnauthenticated)
	}

	revoked, err := s.store.IsTokenRevoked(ctx, claims.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("check revocation: %w", err)
	}
	if revoked {
		return nil, nil, fmt.Errorf("%w: token revoked", ErrUnauthenticated)
	}

	u, err := s.store.GetUser(ctx, userID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil, fmt.Errorf("%w: user no longer exists", ErrUnauthenticated)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("get user: %w", err)
	}
	return user.CentralPrincipal(u), claims, nil
}

// Logout drops the bridge identifier and revokes the token it stood for.
// Either part may be absent.
func (s *AuthService) Logout(ctx context.Context, bridgeID string, claims *Claims) error {
	if err := s.bridge.Revoke(ctx, bridgeID); err != nil {
		return err
	}
	if claims == nil || claims.ID == "" {
		return nil
	}
	expires := s.now().Add(s.oauth.AccessTokenExpiry)
	if claims.ExpiresAt != nil {
		expires = claims.ExpiresAt.Time
	}
	if err := s.store.RevokeToken(ctx, claims.ID, expires); err != nil {
		return fmt.Errorf("revoke access token: %w", err)
	}
	return nil
}

// IssuePartnerToken mints an SSO token for p addressed to a configured
// partner client. The token carries p's tenant-scoped identity when tenantID
// is set.
func (s *AuthService) IssuePartnerToken(ctx context.Context, p *user.Principal, tenantID string, req oauth.PartnerTokenRequest) (*oauth.TokenResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrValidation, err)
	}
	client, err := s.client(req.ClientID)
	if err != nil {
		return nil, err
	}
	if err := client.CheckScopes(req.Scopes); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrValidation, err)
	}

	now := s.now()
	session := oauth.Session{
		ID:        uuid.NewString(),
		ClientID:  client.ID,
		TenantID:  tenantID,
		Scopes:    req.Scopes,
		IssuedAt:  now,
		ExpiresAt: now.Add(s.oauth.AccessTokenExpiry),
	}
	if p != nil {
		session.UserID = &p.UserID
	}

	token, _, err := s.minter.Build(ctx, session)
	if err != nil {
		return nil, fmt.Errorf("mint partner token: %w", err)
	}
	return &oauth.TokenResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int(s.oauth.AccessTokenExpiry.Seconds()),
	}, nil
}

func (s *AuthService) client(id string) (*oauth.Client, error) {
	for i := range s.oauth.Clients {
		if s.oauth.Clients[i].ID == id {
			return &s.oauth.Clients[i], nil
		}
	}
	return nil, fmt.Errorf("client %q: %w", id, ErrUnknownClient)
}

// PublicKey returns the verification key document.
func (s *AuthService) PublicKey() oauth.PublicKeyDocument {
	return s.minter.PublicKey()
}

// StartTokenCleanup starts a background goroutine that periodically purges
// expired revoked tokens. It stops when ctx is cancelled.
func (s *AuthService) StartTokenCleanup(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				n, err := s.store.PurgeExpiredTokens(ctx)
				if err != nil {
					slog.Warn("failed to purge expired tokens", "error", err)
				} else if n > 0 {
					slog.Info("purged expired revoked tokens", "count", n)
				}
			}
		}
	}()
}
