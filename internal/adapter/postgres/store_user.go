package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/SCP-015/nusahire/internal/domain"
	"github.com/SCP-015/nusahire/internal/domain/user"
)

const userColumns = `id, email, name, password_hash, roles, permissions, created_at, updated_at`

func scanUser(row scannable) (*user.User, error) {
	var u user.User
	if err := row.Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.Roles, &u.Permissions, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *Store) CreateUser(ctx context.Context, u *user.User) error {
	err := s.pool.QueryRow(ctx, `
		INSERT INTO users (email, name, password_hash, roles, permissions)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at`,
		u.Email, u.Name, u.PasswordHash, pgTextArray(u.Roles), pgTextArray(u.Permissions),
	).Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt)
	if isUniqueViolation(err) {
		return fmt.Errorf("create user %s: %w", u.Email, domain.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (s *Store) GetUser(ctx context.Context, id int64) (*user.User, error) {
	u, err := scanUser(s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		return nil, notFoundWrap(err, "get user %d", id)
	}
	return u, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*user.User, error) {
	u, err := scanUser(s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1)`, email))
	if err != nil {
		return nil, notFoundWrap(err, "get user by email %s", email)
	}
	return u, nil
}

// --- Memberships ---

const memberColumns = `id, tenant_id, user_id, external_uid, roles, permissions, created_at`

func scanMember(row scannable) (*user.Member, error) {
	var m user.Member
	if err := row.Scan(&m.ID, &m.TenantID, &m.UserID, &m.ExternalUID, &m.Roles, &m.Permissions, &m.CreatedAt); err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *Store) AddMember(ctx context.Context, req user.AddMemberRequest) (*user.Member, error) {
	m, err := scanMember(s.pool.QueryRow(ctx, `
		INSERT INTO members (tenant_id, user_id, external_uid, roles, permissions)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+memberColumns,
		req.TenantID, req.UserID, req.ExternalUID, pgTextArray(req.Roles), pgTextArray(req.Permissions)))
	if isUniqueViolation(err) {
		return nil, fmt.Errorf("add member %d to %s: %w", req.UserID, req.TenantID, domain.ErrConflict)
	}
	if err != nil {
		return nil, fmt.Errorf("add member: %w", err)
	}
	return m, nil
}

func (s *Store) GetMember(ctx context.Context, tenantID string, userID int64) (*user.Member, error) {
	m, err := scanMember(s.pool.QueryRow(ctx,
		`SELECT `+memberColumns+` FROM members WHERE tenant_id = $1 AND user_id = $2`, tenantID, userID))
	if err != nil {
		return nil, notFoundWrap(err, "get member %d in %s", userID, tenantID)
	}
	return m, nil
}

func (s *Store) LatestExternalUID(ctx context.Context, userID int64) (*int64, error) {
	var uid *int64
	err := s.pool.QueryRow(ctx, `
		SELECT external_uid FROM members
		WHERE user_id = $1 AND external_uid IS NOT NULL
		ORDER BY created_at DESC, id DESC LIMIT 1`, userID).Scan(&uid)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest external uid %d: %w", userID, err)
	}
	return uid, nil
}

func (s *Store) ListMemberships(ctx context.Context, userID int64) ([]user.Member, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+memberColumns+` FROM members WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list memberships: %w", err)
	}
	defer rows.Close()

	var out []user.Member
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		out = append(out, *m)
	}
	return out, rows.Err()
}
