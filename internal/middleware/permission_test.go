package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"slices"
	"testing"

	"github.com/SCP-015/nusahire/internal/domain"
	"github.com/SCP-015/nusahire/internal/domain/tenant"
	"github.com/SCP-015/nusahire/internal/domain/user"
	"github.com/SCP-015/nusahire/internal/service"
)

// fakeMembers scopes user 7 in tenant t-1 to job position permissions.
type fakeMembers struct{ err error }

func (f fakeMembers) GetMember(_ context.Context, tenantID string, userID int64) (*user.Member, error) {
	if f.err != nil {
		return nil, f.err
	}
	if tenantID == "t-1" && userID == 7 {
		return &user.Member{ID: 1, TenantID: "t-1", UserID: 7, Permissions: []string{"job_positions.create"}}, nil
	}
	return nil, domain.ErrNotFound
}

func (f fakeMembers) LatestExternalUID(context.Context, int64) (*int64, error) { return nil, nil }

func guarded(e *service.PermissionEvaluator, groups ...string) (http.Handler, *user.Principal) {
	var effective user.Principal
	h := RequirePermission(e, groups...)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if p := EffectivePrincipalFromContext(r.Context()); p != nil {
			effective = *p
		}
		w.WriteHeader(http.StatusOK)
	}))
	return h, &effective
}

func request(p *user.Principal, tenantID string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
	ctx := req.Context()
	if tenantID != "" {
		ctx = tenant.WithTenant(ctx, &tenant.Resolution{Tenant: &tenant.Tenant{ID: tenantID}})
	}
	if p != nil {
		ctx = WithPrincipal(ctx, p)
	}
	return req.WithContext(ctx)
}

func TestRequirePermission(t *testing.T) {
	e := service.NewPermissionEvaluator(fakeMembers{}, nil)
	member := &user.Principal{UserID: 7}
	admin := &user.Principal{UserID: 1, Roles: []string{user.RoleSuperAdmin}}

	tests := []struct {
		name     string
		p        *user.Principal
		tenantID string
		groups   []string
		want     int
	}{
		{"anonymous", nil, "t-1", []string{"job_positions.*"}, http.StatusUnauthorized},
		{"member wildcard", member, "t-1", []string{"job_positions.*"}, http.StatusOK},
		{"member other area", member, "t-1", []string{"job_levels.*"}, http.StatusForbidden},
		{"member alternative", member, "t-1", []string{"job_levels.view|job_positions.create"}, http.StatusOK},
		{"no tenant context", member, "", []string{"job_positions.*"}, http.StatusForbidden},
		{"super admin", admin, "t-1", []string{"anything"}, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, _ := guarded(e, tt.groups...)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, request(tt.p, tt.tenantID))
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestRequirePermission_ForbiddenBody(t *testing.T) {
	e := service.NewPermissionEvaluator(fakeMembers{}, nil)
	h, _ := guarded(e, "job_levels.view|job_levels.*")

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, request(&user.Principal{UserID: 7}, "t-1"))

	var body struct {
		Error    string   `json:"error"`
		Required []string `json:"required_permissions"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body.Error != "forbidden" || !slices.Equal(body.Required, []string{"job_levels.view", "job_levels.*"}) {
		t.Errorf("body = %+v", body)
	}
}

func TestRequirePermission_EffectivePrincipal(t *testing.T) {
	e := service.NewPermissionEvaluator(fakeMembers{}, nil)
	h, effective := guarded(e, "job_positions.create")

	h.ServeHTTP(httptest.NewRecorder(), request(&user.Principal{UserID: 7}, "t-1"))
	if effective.TenantID != "t-1" || effective.MemberID != 1 {
		t.Errorf("effective principal = %+v, want the t-1 membership", effective)
	}
}

func TestRequirePermission_LookupFailure(t *testing.T) {
	e := service.NewPermissionEvaluator(fakeMembers{err: errors.New("db down")}, nil)
	h, _ := guarded(e, "x")

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, request(&user.Principal{UserID: 7}, "t-1"))
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}
