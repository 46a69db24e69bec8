package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"text/tabwriter"

	"golang.org/x/term"

	"github.com/SCP-015/nusahire/internal/adapter/postgres"
	"github.com/SCP-015/nusahire/internal/config"
	"github.com/SCP-015/nusahire/internal/domain/tenant"
	"github.com/SCP-015/nusahire/internal/domain/user"
	"github.com/SCP-015/nusahire/internal/service"
)

// runAdmin dispatches admin subcommands.
func runAdmin(args []string) error {
	if len(args) == 0 || args[0] == "help" || args[0] == "--help" {
		printAdminHelp()
		return nil
	}

	commands := map[string]func([]string) error{
		"create-tenant":  runAdminCreateTenant,
		"rename-tenant":  runAdminRenameTenant,
		"set-redirect":   runAdminSetRedirect,
		"list-tenants":   runAdminListTenants,
		"tenant-history": runAdminTenantHistory,
		"create-user":    runAdminCreateUser,
		"add-member":     runAdminAddMember,
		"migrate":        runAdminMigrate,
		"rollback":       runAdminRollback,
		"version":        runAdminVersion,
		"generate-keys":  runAdminGenerateKeys,
	}
	cmd, ok := commands[args[0]]
	if !ok {
		printAdminHelp()
		return fmt.Errorf("unknown admin command: %s", args[0])
	}
	return cmd(args[1:])
}

func printAdminHelp() {
	fmt.Fprintf(os.Stderr, `Usage: nusahire admin <command> [options]

Commands:
  create-tenant    Provision a tenant
  rename-tenant    Change a tenant's slug, retiring the old one
  set-redirect     Toggle redirects from retired slugs
  list-tenants     List all tenants
  tenant-history   List a tenant's retired slugs
  create-user      Register a central user
  add-member       Attach a user to a tenant
  migrate          Apply pending database migrations
  rollback         Roll back database migrations
  version          Print the current migration version
  generate-keys    Write a new RS256 key pair
  help             Show this help message

Examples:
  nusahire admin create-tenant --name "Acme Corp" --slug acme --owner 1
  nusahire admin rename-tenant --id <uuid> --slug acme-group
  nusahire admin set-redirect --id <uuid> --enabled=true
  nusahire admin create-user --email admin@localhost --name Admin --super-admin
  nusahire admin add-member --tenant <uuid> --user 1 --external-uid 42 --permissions portals.view,sso.issue
  nusahire admin generate-keys --dir storage
`)
}

type adminDeps struct {
	auth    *service.AuthService
	tenants *service.TenantService
	close   func()
}

func loadAdminDeps(ctx context.Context) (*adminDeps, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	pool, err := postgres.NewPool(ctx, cfg.Postgres)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	store := postgres.NewStore(pool)

	// Renames invalidate the shared L2 when one is configured; server L1
	// entries age out after cache.l1_ttl.
	infra := &infrastructure{cfg: cfg, pool: pool}
	tenantCache, err := infra.tenantCache(ctx)
	if err != nil {
		infra.Close()
		pool.Close()
		return nil, fmt.Errorf("tenant cache: %w", err)
	}
	dir := service.NewCachedDirectory(store, tenantCache, cfg.Cache.L2TTL)

	// Token minting is never reached from the admin tool.
	auth := service.NewAuthService(store, nil, nil, cfg.OAuth, cfg.Auth)

	return &adminDeps{
		auth:    auth,
		tenants: service.NewTenantService(store, dir),
		close: func() {
			infra.Close()
			pool.Close()
		},
	}, nil
}

func withAdminDeps(fn func(ctx context.Context, d *adminDeps) error) error {
	ctx := context.Background()
	d, err := loadAdminDeps(ctx)
	if err != nil {
		return err
	}
	defer d.close()
	return fn(ctx, d)
}

func runAdminCreateTenant(args []string) error {
	fs := flag.NewFlagSet("create-tenant", flag.ContinueOnError)
	name := fs.String("name", "", "tenant display name (required)")
	slug := fs.String("slug", "", "tenant slug (required)")
	owner := fs.Int64("owner", 0, "owner user id")
	if err := fs.Parse(args); err != nil {
		return err
	}

	return withAdminDeps(func(ctx context.Context, d *adminDeps) error {
		t, err := d.tenants.Create(ctx, tenant.CreateRequest{Name: *name, Slug: *slug, OwnerID: *owner})
		if err != nil {
			return fmt.Errorf("create tenant: %w", err)
		}
		fmt.Fprintf(os.Stderr, "Tenant created: %s (id=%s, code=%s)\n", t.Slug, t.ID, t.Code)
		return nil
	})
}

func runAdminRenameTenant(args []string) error {
	fs := flag.NewFlagSet("rename-tenant", flag.ContinueOnError)
	id := fs.String("id", "", "tenant id (required)")
	slug := fs.String("slug", "", "new slug (required)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *id == "" {
		return errors.New("--id is required")
	}

	return withAdminDeps(func(ctx context.Context, d *adminDeps) error {
		t, err := d.tenants.RenameSlug(ctx, *id, tenant.RenameRequest{Slug: *slug})
		if err != nil {
			return fmt.Errorf("rename tenant: %w", err)
		}
		fmt.Fprintf(os.Stderr, "Tenant %s now at slug %s\n", t.ID, t.Slug)
		return nil
	})
}

func runAdminSetRedirect(args []string) error {
	fs := flag.NewFlagSet("set-redirect", flag.ContinueOnError)
	id := fs.String("id", "", "tenant id (required)")
	enabled := fs.Bool("enabled", true, "redirect retired slugs to the current one")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *id == "" {
		return errors.New("--id is required")
	}

	return withAdminDeps(func(ctx context.Context, d *adminDeps) error {
		t, err := d.tenants.SetRedirectOnHistoricalSlug(ctx, *id, *enabled)
		if err != nil {
			return fmt.Errorf("set redirect: %w", err)
		}
		fmt.Fprintf(os.Stderr, "Tenant %s redirect_on_historical_slug=%t\n", t.Slug, t.RedirectOnHistoricalSlug)
		return nil
	})
}

func runAdminListTenants(args []string) error {
	fs := flag.NewFlagSet("list-tenants", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}

	return withAdminDeps(func(ctx context.Context, d *adminDeps) error {
		tenants, err := d.tenants.List(ctx)
		if err != nil {
			return fmt.Errorf("list tenants: %w", err)
		}
		if len(tenants) == 0 {
			fmt.Println("No tenants found.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		_, _ = fmt.Fprintln(w, "ID\tSLUG\tNAME\tCODE\tREDIRECT")
		for i := range tenants {
			_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%t\n",
				tenants[i].ID, tenants[i].Slug, tenants[i].Name, tenants[i].Code, tenants[i].RedirectOnHistoricalSlug)
		}
		return w.Flush()
	})
}

func runAdminTenantHistory(args []string) error {
	fs := flag.NewFlagSet("tenant-history", flag.ContinueOnError)
	id := fs.String("id", "", "tenant id (required)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *id == "" {
		return errors.New("--id is required")
	}

	return withAdminDeps(func(ctx context.Context, d *adminDeps) error {
		history, err := d.tenants.History(ctx, *id)
		if err != nil {
			return fmt.Errorf("tenant history: %w", err)
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		_, _ = fmt.Fprintln(w, "SLUG\tRETIRED_AT")
		for _, h := range history {
			_, _ = fmt.Fprintf(w, "%s\t%s\n", h.Slug, h.RetiredAt.Format("2006-01-02 15:04:05"))
		}
		return w.Flush()
	})
}

func runAdminCreateUser(args []string) error {
	fs := flag.NewFlagSet("create-user", flag.ContinueOnError)
	email := fs.String("email", "", "user email address (required)")
	name := fs.String("name", "", "user display name (required)")
	password := fs.String("password", "", "password (prompted if not provided)") //nolint:gosec // CLI flag
	superAdmin := fs.Bool("super-admin", false, "grant the super_admin role")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *email == "" {
		return errors.New("--email is required")
	}
	if *name == "" {
		return errors.New("--name is required")
	}

	pass := *password
	if pass == "" {
		var err error
		pass, err = promptPassword("Password: ")
		if err != nil {
			return fmt.Errorf("read password: %w", err)
		}
		confirm, err := promptPassword("Confirm password: ")
		if err != nil {
			return fmt.Errorf("read password: %w", err)
		}
		if pass != confirm {
			return errors.New("passwords do not match")
		}
	}

	var roles []string
	if *superAdmin {
		roles = append(roles, user.RoleSuperAdmin)
	}

	return withAdminDeps(func(ctx context.Context, d *adminDeps) error {
		u, err := d.auth.Register(ctx, &user.CreateRequest{Email: *email, Name: *name, Password: pass, Roles: roles})
		if err != nil {
			return fmt.Errorf("create user: %w", err)
		}
		fmt.Fprintf(os.Stderr, "User created: %s (id=%d)\n", u.Email, u.ID)
		return nil
	})
}

func runAdminAddMember(args []string) error {
	fs := flag.NewFlagSet("add-member", flag.ContinueOnError)
	tenantID := fs.String("tenant", "", "tenant id (required)")
	userID := fs.Int64("user", 0, "user id (required)")
	externalUID := fs.Int64("external-uid", 0, "cross-system user id, 0 for none")
	roles := fs.String("roles", "", "comma-separated roles")
	perms := fs.String("permissions", "", "comma-separated permissions")
	if err := fs.Parse(args); err != nil {
		return err
	}

	req := user.AddMemberRequest{
		TenantID:    *tenantID,
		UserID:      *userID,
		Roles:       splitList(*roles),
		Permissions: splitList(*perms),
	}
	if *externalUID != 0 {
		req.ExternalUID = externalUID
	}

	return withAdminDeps(func(ctx context.Context, d *adminDeps) error {
		m, err := d.auth.AddMember(ctx, req)
		if err != nil {
			return fmt.Errorf("add member: %w", err)
		}
		fmt.Fprintf(os.Stderr, "Member added: id=%d tenant=%s user=%d\n", m.ID, m.TenantID, m.UserID)
		return nil
	})
}

func runAdminMigrate(args []string) error {
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := postgres.RunMigrations(context.Background(), cfg.Postgres.DSN); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	fmt.Fprintln(os.Stderr, "Migrations applied")
	return nil
}

func runAdminRollback(args []string) error {
	fs := flag.NewFlagSet("rollback", flag.ContinueOnError)
	steps := fs.Int("steps", 1, "number of migrations to roll back")
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := postgres.RollbackMigrations(context.Background(), cfg.Postgres.DSN, *steps); err != nil {
		return fmt.Errorf("rollback: %w", err)
	}
	fmt.Fprintf(os.Stderr, "Rolled back %d migration(s)\n", *steps)
	return nil
}

func runAdminVersion(args []string) error {
	fs := flag.NewFlagSet("version", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	v, err := postgres.MigrationVersion(context.Background(), cfg.Postgres.DSN)
	if err != nil {
		return fmt.Errorf("version: %w", err)
	}
	fmt.Println(v)
	return nil
}

func runAdminGenerateKeys(args []string) error {
	fs := flag.NewFlagSet("generate-keys", flag.ContinueOnError)
	dir := fs.String("dir", "storage", "output directory")
	bits := fs.Int("bits", 4096, "RSA modulus size")
	force := fs.Bool("force", false, "overwrite existing keys")
	if err := fs.Parse(args); err != nil {
		return err
	}

	privPath := filepath.Join(*dir, "oauth-private.key")
	pubPath := filepath.Join(*dir, "oauth-public.key")
	if !*force {
		for _, p := range []string{privPath, pubPath} {
			if _, err := os.Stat(p); err == nil {
				return fmt.Errorf("%s exists; pass --force to overwrite", p)
			}
		}
	}

	priv, pub, err := service.GenerateKeyPEM(*bits)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(*dir, 0o700); err != nil {
		return err
	}
	if err := os.WriteFile(privPath, priv, 0o600); err != nil {
		return err
	}
	if err := os.WriteFile(pubPath, pub, 0o644); err != nil { //nolint:gosec // public key
		return err
	}
	fmt.Fprintf(os.Stderr, "Keys written to %s and %s\n", privPath, pubPath)
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// promptPassword reads a password from the terminal without echoing.
func promptPassword(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	b, err := term.ReadPassword(int(syscall.Stdin)) //nolint:unconvert // int conversion needed on some platforms
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
