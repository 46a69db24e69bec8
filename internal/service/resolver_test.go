package service

import (
	"context"
	"errors"
	"testing"

	"github.com/SCP-015/nusahire/internal/domain"
	"github.com/SCP-015/nusahire/internal/domain/tenant"
)

func newResolverStore() *mockStore {
	store := newMockStore()
	store.seedTenant(tenant.Tenant{ID: "11111111-aaaa", Name: "Acme", Slug: "acme"}, "acme-old")
	store.seedTenant(tenant.Tenant{ID: "22222222-bbbb", Name: "Globex", Slug: "globex", RedirectOnHistoricalSlug: true}, "initech")
	return store
}

func TestTenantResolver_Resolve(t *testing.T) {
	r := NewTenantResolver(newResolverStore(), nil)

	tests := []struct {
		token      string
		wantID     string
		historical bool
	}{
		{"11111111-aaaa", "11111111-aaaa", false},
		{"acme", "11111111-aaaa", false},
		{"acme-old", "11111111-aaaa", true},
		{"globex", "22222222-bbbb", false},
		{"initech", "22222222-bbbb", true},
	}
	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			res, err := r.Resolve(context.Background(), tt.token)
			if err != nil {
				t.Fatalf("Resolve: %v", err)
			}
			if res.Tenant.ID != tt.wantID {
				t.Errorf("tenant = %s, want %s", res.Tenant.ID, tt.wantID)
			}
			if res.Historical != tt.historical {
				t.Errorf("historical = %v, want %v", res.Historical, tt.historical)
			}
			if res.Token != tt.token {
				t.Errorf("token = %s", res.Token)
			}
		})
	}
}

func TestTenantResolver_IDBeatsSlug(t *testing.T) {
	store := newMockStore()
	store.seedTenant(tenant.Tenant{ID: "shadow", Slug: "first"})
	store.seedTenant(tenant.Tenant{ID: "other", Slug: "shadow"})
	r := NewTenantResolver(store, nil)

	res, err := r.Resolve(context.Background(), "shadow")
	if err != nil {
		t.Fatal(err)
	}
	if res.Tenant.ID != "shadow" {
		t.Errorf("resolved %s, want the tenant whose id matches", res.Tenant.ID)
	}
}

func TestTenantResolver_NotIdentified(t *testing.T) {
	r := NewTenantResolver(newResolverStore(), nil)
	for _, token := range []string{"nope", ""} {
		_, err := r.Resolve(context.Background(), token)
		if !errors.Is(err, domain.ErrTenantNotIdentified) {
			t.Errorf("Resolve(%q) = %v, want ErrTenantNotIdentified", token, err)
		}
	}
}

func TestTenantResolver_StoreFailure(t *testing.T) {
	store := newResolverStore()
	store.getTenantErr = errors.New("connection refused")
	r := NewTenantResolver(store, nil)

	_, err := r.Resolve(context.Background(), "acme")
	if err == nil || errors.Is(err, domain.ErrTenantNotIdentified) {
		t.Fatalf("expected a directory failure, got %v", err)
	}
}

func TestShouldRedirect(t *testing.T) {
	on := &tenant.Tenant{RedirectOnHistoricalSlug: true}
	off := &tenant.Tenant{}
	tests := []struct {
		name string
		res  *tenant.Resolution
		want bool
	}{
		{"nil", nil, false},
		{"current slug", &tenant.Resolution{Tenant: on}, false},
		{"historical with redirect", &tenant.Resolution{Tenant: on, Historical: true}, true},
		{"historical without redirect", &tenant.Resolution{Tenant: off, Historical: true}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ShouldRedirect(tt.res); got != tt.want {
				t.Errorf("ShouldRedirect = %v, want %v", got, tt.want)
			}
		})
	}
}
