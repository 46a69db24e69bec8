package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/SCP-015/nusahire/internal/domain"
	"github.com/SCP-015/nusahire/internal/domain/tenant"
	"github.com/SCP-015/nusahire/internal/domain/user"
	"github.com/SCP-015/nusahire/internal/port/database"
)

var _ database.Store = (*mockStore)(nil)

// mockStore is an in-memory database.Store. Lookup counters let tests
// observe caching.
type mockStore struct {
	mu       sync.Mutex
	tenants  map[string]*tenant.Tenant
	history  []tenant.SlugHistory
	users    map[int64]*user.User
	members  []user.Member
	revoked  map[string]time.Time
	nextUser int64
	nextMem  int64

	tenantLookups int
	createErrs    []error // returned by successive CreateTenant calls
	getTenantErr  error
}

func newMockStore() *mockStore {
	return &mockStore{
		tenants: make(map[string]*tenant.Tenant),
		users:   make(map[int64]*user.User),
		revoked: make(map[string]time.Time),
	}
}

func (m *mockStore) GetTenant(_ context.Context, id string) (*tenant.Tenant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tenantLookups++
	if m.getTenantErr != nil {
		return nil, m.getTenantErr
	}
	if t, ok := m.tenants[id]; ok {
		cp := *t
		return &cp, nil
	}
	return nil, fmt.Errorf("tenant %s: %w", id, domain.ErrNotFound)
}

func (m *mockStore) GetTenantBySlug(_ context.Context, slug string) (*tenant.Tenant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tenantLookups++
	for _, t := range m.tenants {
		if t.Slug == slug {
			cp := *t
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("tenant slug %s: %w", slug, domain.ErrNotFound)
}

func (m *mockStore) GetTenantBySlugHistory(_ context.Context, slug string) (*tenant.Tenant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tenantLookups++
	for _, h := range m.history {
		if h.Slug == slug {
			if t, ok := m.tenants[h.TenantID]; ok {
				cp := *t
				return &cp, nil
			}
		}
	}
	return nil, fmt.Errorf("tenant history %s: %w", slug, domain.ErrNotFound)
}

func (m *mockStore) lookups() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tenantLookups
}

func (m *mockStore) ListTenants(_ context.Context) ([]tenant.Tenant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]tenant.Tenant, 0, len(m.tenants))
	for _, t := range m.tenants {
		out = append(out, *t)
	}
	return out, nil
}

func (m *mockStore) CreateTenant(_ context.Context, t *tenant.Tenant) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.createErrs) > 0 {
		err := m.createErrs[0]
		m.createErrs = m.createErrs[1:]
		if err != nil {
			return err
		}
	}
	if m.retiredLocked(t.Slug) {
		return tenant.ErrSlugRetired
	}
	for _, other := range m.tenants {
		if other.Slug == t.Slug || other.Code == t.Code {
			return domain.ErrConflict
		}
	}
	t.CreatedAt = time.Now()
	t.UpdatedAt = t.CreatedAt
	cp := *t
	m.tenants[t.ID] = &cp
	return nil
}

func (m *mockStore) retiredLocked(slug string) bool {
	for _, h := range m.history {
		if h.Slug == slug {
			return true
		}
	}
	return false
}

func (m *mockStore) RenameTenantSlug(_ context.Context, id, slug string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tenants[id]
	if !ok {
		return "", domain.ErrNotFound
	}
	if m.retiredLocked(slug) {
		return "", tenant.ErrSlugRetired
	}
	for _, other := range m.tenants {
		if other.Slug == slug {
			return "", domain.ErrConflict
		}
	}
	old := t.Slug
	m.history = append(m.history, tenant.SlugHistory{Slug: old, TenantID: id, RetiredAt: time.Now()})
	t.Slug = slug
	return old, nil
}

func (m *mockStore) SetTenantRedirect(_ context.Context, id string, enabled bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tenants[id]
	if !ok {
		return domain.ErrNotFound
	}
	t.RedirectOnHistoricalSlug = enabled
	return nil
}

func (m *mockStore) SlugInUse(_ context.Context, slug string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.retiredLocked(slug) {
		return true, nil
	}
	for _, t := range m.tenants {
		if t.Slug == slug {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockStore) ListSlugHistory(_ context.Context, tenantID string) ([]tenant.SlugHistory, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []tenant.SlugHistory
	for i := len(m.history) - 1; i >= 0; i-- {
		if m.history[i].TenantID == tenantID {
			out = append(out, m.history[i])
		}
	}
	return out, nil
}

func (m *mockStore) CreateUser(_ context.Context, u *user.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, other := range m.users {
		if strings.EqualFold(other.Email, u.Email) {
			return domain.ErrConflict
		}
	}
	m.nextUser++
	u.ID = m.nextUser
	cp := *u
	m.users[u.ID] = &cp
	return nil
}

// putUser stores u with a fixed id.
func (m *mockStore) putUser(u user.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.ID] = &u
	m.nextUser = max(m.nextUser, u.ID)
}

func (m *mockStore) GetUser(_ context.Context, id int64) (*user.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, fmt.Errorf("user %d: %w", id, domain.ErrNotFound)
}

func (m *mockStore) GetUserByEmail(_ context.Context, email string) (*user.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if strings.EqualFold(u.Email, email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("user %s: %w", email, domain.ErrNotFound)
}

func (m *mockStore) AddMember(_ context.Context, req user.AddMemberRequest) (*user.Member, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, mem := range m.members {
		if mem.TenantID == req.TenantID && mem.UserID == req.UserID {
			return nil, domain.ErrConflict
		}
	}
	m.nextMem++
	mem := user.Member{
		ID:          m.nextMem,
		TenantID:    req.TenantID,
		UserID:      req.UserID,
		ExternalUID: req.ExternalUID,
		Roles:       req.Roles,
		Permissions: req.Permissions,
		CreatedAt:   time.Now().Add(time.Duration(m.nextMem) * time.Second),
	}
	m.members = append(m.members, mem)
	return &mem, nil
}

func (m *mockStore) GetMember(_ context.Context, tenantID string, userID int64) (*user.Member, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, mem := range m.members {
		if mem.TenantID == tenantID && mem.UserID == userID {
			cp := mem
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("member %s/%d: %w", tenantID, userID, domain.ErrNotFound)
}

func (m *mockStore) LatestExternalUID(_ context.Context, userID int64) (*int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.members) - 1; i >= 0; i-- {
		if m.members[i].UserID == userID && m.members[i].ExternalUID != nil {
			v := *m.members[i].ExternalUID
			return &v, nil
		}
	}
	return nil, nil
}

func (m *mockStore) ListMemberships(_ context.Context, userID int64) ([]user.Member, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []user.Member
	for _, mem := range m.members {
		if mem.UserID == userID {
			out = append(out, mem)
		}
	}
	return out, nil
}

func (m *mockStore) RevokeToken(_ context.Context, jti string, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.revoked[jti] = expiresAt
	return nil
}

func (m *mockStore) IsTokenRevoked(_ context.Context, jti string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.revoked[jti]
	return ok, nil
}

func (m *mockStore) PurgeExpiredTokens(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for jti, exp := range m.revoked {
		if exp.Before(time.Now()) {
			delete(m.revoked, jti)
			n++
		}
	}
	return n, nil
}

func int64Ptr(v int64) *int64 { return &v }

func (m *mockStore) seedTenant(t tenant.Tenant, retired ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tenants[t.ID] = &t
	for _, s := range retired {
		m.history = append(m.history, tenant.SlugHistory{Slug: s, TenantID: t.ID, RetiredAt: time.Now()})
	}
}

// mapCache is a goroutine-safe cache.Cache that ignores TTLs.
type mapCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMapCache() *mapCache { return &mapCache{data: make(map[string][]byte)} }

func (c *mapCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.data[key]
	return v, ok, nil
}

func (c *mapCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
	return nil
}

func (c *mapCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	return nil
}
