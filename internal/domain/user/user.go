// Package user defines the central user, tenant membership, and principal
// models used for authentication and authorization.
package user

import (
	"errors"
	"net/mail"
	"time"
)

// RoleSuperAdmin bypasses every permission check.
const RoleSuperAdmin = "super_admin"

// User is the central identity. One User spans every tenant the person
// belongs to; tenant-local roles live on Member.
type User struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"` // never serialized
	Roles        []string  `json:"roles"`
	Permissions  []string  `json:"permissions"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Member is the tenant-scoped principal record: one per (user, tenant) pair.
// ExternalUID is the cross-product numeric identifier, nil when the person has
// no account on the partner system yet.
type Member struct {
	ID          int64     `json:"id"`
	TenantID    string    `json:"tenant_id"`
	UserID      int64     `json:"user_id"`
	ExternalUID *int64    `json:"external_uid"`
	Roles       []string  `json:"roles"`
	Permissions []string  `json:"permissions"`
	CreatedAt   time.Time `json:"created_at"`
}

// CreateRequest is the input for registering a new central user.
type CreateRequest struct {
	Email    string   `json:"email"`
	Name     string   `json:"name"`
	Password string   `json:"password"` //nolint:gosec // request field, not a hardcoded secret
	Roles    []string `json:"roles,omitempty"`
}

// Validate checks that the CreateRequest has all required fields.
func (r *CreateRequest) Validate() error {
	if r.Email == "" {
		return errors.New("email is required")
	}
	if _, err := mail.ParseAddress(r.Email); err != nil {
		return errors.New("invalid email format")
	}
	if r.Name == "" {
		return errors.New("name is required")
	}
	if r.Password == "" {
		return errors.New("password is required")
	}
	if len(r.Password) < 8 {
		return errors.New("password must be at least 8 characters")
	}
	return nil
}

// AddMemberRequest attaches a user to a tenant with tenant-local grants.
type AddMemberRequest struct {
	TenantID    string   `json:"tenant_id"`
	UserID      int64    `json:"user_id"`
	ExternalUID *int64   `json:"external_uid,omitempty"`
	Roles       []string `json:"roles,omitempty"`
	Permissions []string `json:"permissions,omitempty"`
}

// Validate checks that the AddMemberRequest has all required fields.
func (r *AddMemberRequest) Validate() error {
	if r.TenantID == "" {
		return errors.New("tenant_id is required")
	}
	if r.UserID <= 0 {
		return errors.New("user_id is required")
	}
	return nil
}

// LoginRequest is the input for user authentication.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"` //nolint:gosec // request field, not a hardcoded secret
}

// Validate checks that the LoginRequest has all required fields.
func (r *LoginRequest) Validate() error {
	if r.Email == "" {
		return errors.New("email is required")
	}
	if r.Password == "" {
		return errors.New("password is required")
	}
	return nil
}

// LoginResponse is returned after successful authentication. The access token
// is also reachable through the proxy cookie for clients that cannot keep it.
type LoginResponse struct {
	AccessToken string `json:"access_token"` //nolint:gosec // response field, not a hardcoded secret
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"` // seconds until access token expires
	User        User   `json:"user"`
}
