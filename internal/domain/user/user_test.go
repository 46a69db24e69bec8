package user

import "testing"

func TestCreateRequest_Validate(t *testing.T) {
	tests := []struct {
		name    string
		req     CreateRequest
		wantErr string
	}{
		{name: "valid", req: CreateRequest{Email: "a@b.com", Name: "A", Password: "12345678"}},
		{name: "missing email", req: CreateRequest{Name: "A", Password: "12345678"}, wantErr: "email is required"},
		{name: "invalid email", req: CreateRequest{Email: "bad", Name: "A", Password: "12345678"}, wantErr: "invalid email format"},
		{name: "missing name", req: CreateRequest{Email: "a@b.com", Password: "12345678"}, wantErr: "name is required"},
		{name: "missing password", req: CreateRequest{Email: "a@b.com", Name: "A"}, wantErr: "password is required"},
		{name: "short password", req: CreateRequest{Email: "a@b.com", Name: "A", Password: "short"}, wantErr: "password must be at least 8 characters"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error containing %q, got nil", tt.wantErr)
			}
			if got := err.Error(); got != tt.wantErr {
				t.Fatalf("error = %q, want %q", got, tt.wantErr)
			}
		})
	}
}

func TestLoginRequest_Validate(t *testing.T) {
	tests := []struct {
		name    string
		req     LoginRequest
		wantErr string
	}{
		{name: "valid", req: LoginRequest{Email: "a@b.com", Password: "secret"}},
		{name: "missing email", req: LoginRequest{Password: "secret"}, wantErr: "email is required"},
		{name: "missing password", req: LoginRequest{Email: "a@b.com"}, wantErr: "password is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || err.Error() != tt.wantErr {
				t.Fatalf("error = %v, want %q", err, tt.wantErr)
			}
		})
	}
}

func TestAddMemberRequest_Validate(t *testing.T) {
	if err := (&AddMemberRequest{TenantID: "t1", UserID: 3}).Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := (&AddMemberRequest{UserID: 3}).Validate(); err == nil {
		t.Fatal("expected error for missing tenant_id")
	}
	if err := (&AddMemberRequest{TenantID: "t1"}).Validate(); err == nil {
		t.Fatal("expected error for missing user_id")
	}
}

func TestScopedPrincipal(t *testing.T) {
	uid := int64(42)
	u := &User{ID: 7, Email: "u@x.com", Roles: []string{RoleSuperAdmin}}
	m := &Member{ID: 11, TenantID: "t1", UserID: 7, ExternalUID: &uid, Roles: []string{"recruiter"}}

	c := CentralPrincipal(u)
	p := ScopedPrincipal(c, m)
	if !p.Scoped() {
		t.Fatal("expected scoped principal")
	}
	if p.IsSuperAdmin() {
		t.Fatal("central roles must not leak into the tenant-scoped principal")
	}
	if p.ExternalUID == nil || *p.ExternalUID != 42 {
		t.Fatalf("external uid = %v, want 42", p.ExternalUID)
	}

	if c.Scoped() {
		t.Fatal("expected central principal")
	}
	if !c.IsSuperAdmin() {
		t.Fatal("expected central super admin")
	}
}
