package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"syscall"
	"text/tabwriter"

	"golang.org/x/term"

	"github.com/tradeloom/tradeloom/internal/adapter/postgres"
	"github.com/tradeloom/tradeloom/internal/config"
	"github.com/tradeloom/tradeloom/internal/domain/provision"
	"github.com/tradeloom/tradeloom/internal/domain/tenant"
	"github.com/tradeloom/tradeloom/internal/domain/user"
	"github.com/tradeloom/tradeloom/internal/service"
)

// runAdmin dispatches admin subcommands.
func runAdmin(args []string) error {
	if len(args) == 0 || args[0] == "help" || args[0] == "--help" {
		printAdminHelp()
		return nil
	}

	switch args[0] {
	case "create-super-tenant", "create-guest-tenant":
		return runAdminEnsureTenant(args[1:], args[0], ensureCommands[args[0]])
	case "create-tenant":
		return runAdminCreateTenant(args[1:])
	case "create-user":
		return runAdminCreateUser(args[1:])
	case "add-member":
		return runAdminAddMember(args[1:])
	case "list-tenants":
		return runAdminListTenants(args[1:])
	default:
		printAdminHelp()
		return fmt.Errorf("unknown admin command: %s", args[0])
	}
}

func printAdminHelp() {
	fmt.Fprintf(os.Stderr, `Usage: tradeloom admin <command> [options]

Commands:
  create-super-tenant   Create the super tenant and its superuser (exit 3 if it exists)
  create-guest-tenant   Create the guest demo tenant and guest user (exit 3 if it exists)
  create-tenant         Create a tenant
  create-user           Create a user
  add-member            Grant a user a role in a tenant
  list-tenants          List all tenants
  help                  Show this help message

Examples:
  tradeloom admin create-super-tenant --no-input
  tradeloom admin create-tenant --name "Acme GmbH" --slug acme --domain erp.acme.com
  tradeloom admin create-user --email ops@acme.com --name "Ops"
  tradeloom admin add-member --tenant acme --email ops@acme.com --role admin
  tradeloom admin list-tenants
`)
}

// withApp opens infrastructure, builds the services and runs fn.
func withApp(fn func(ctx context.Context, a *app) error) error {
	cfg, err := loadCLIConfig()
	if err != nil {
		return err
	}
	ctx := context.Background()
	in, err := openInfra(ctx, cfg)
	if err != nil {
		return err
	}
	defer in.Close()

	a := newApp(cfg, in)
	if v, err := in.migrator.Version(ctx, postgres.SetTenant); err == nil {
		a.tenants.SetSchemaVersion(v)
	}
	return fn(ctx, a)
}

type ensureFunc func(*service.TenantService, context.Context) (*tenant.Tenant, provision.Outcome, error)

// ensureCommand is one idempotent bootstrap step. superAdmin marks the
// steps that create the super admin and so may prompt for its password.
type ensureCommand struct {
	ensure     ensureFunc
	superAdmin bool
}

var ensureCommands = map[string]ensureCommand{
	"create-super-tenant": {ensure: (*service.TenantService).EnsureSuperTenant, superAdmin: true},
	"create-guest-tenant": {ensure: (*service.TenantService).EnsureGuestTenant},
}

// prepare collects the credentials the step needs before it runs.
func (c ensureCommand) prepare(t *config.Tenancy, noInput bool) error {
	if !c.superAdmin {
		return nil
	}
	return promptSuperAdmin(t, noInput)
}

// runAdminEnsureTenant runs one idempotent bootstrap step and exits with the
// outcome's code: 0 created, 3 already exists, 1 failed.
func runAdminEnsureTenant(args []string, name string, cmd ensureCommand) error {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	noInput := fs.Bool("no-input", false, "never prompt for a password")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var outcome provision.Outcome
	err := withApp(func(ctx context.Context, a *app) error {
		if err := cmd.prepare(&a.cfg.Tenancy, *noInput); err != nil {
			return err
		}
		t, o, err := cmd.ensure(a.tenants, ctx)
		outcome = o
		if err != nil {
			return err
		}
		if t == nil {
			fmt.Fprintf(os.Stderr, "%s: %s\n", name, o)
			return nil
		}
		if err := a.tenants.StampSchema(ctx, t); err != nil {
			return fmt.Errorf("stamp schema: %w", err)
		}
		fmt.Fprintf(os.Stderr, "%s: %s (id=%s, slug=%s)\n", name, o, t.ID, t.Slug)
		return nil
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", name, err)
		return exitError{code: provision.OutcomeFailed.ExitCode()}
	}
	if code := outcome.ExitCode(); code != 0 {
		return exitError{code: code}
	}
	return nil
}

func runAdminCreateTenant(args []string) error {
	fs := flag.NewFlagSet("create-tenant", flag.ContinueOnError)
	name := fs.String("name", "", "tenant display name (required)")
	slug := fs.String("slug", "", "URL-safe slug (derived from name if empty)")
	host := fs.String("domain", "", "custom domain")
	trial := fs.Bool("trial", false, "mark the tenant as a trial")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *name == "" {
		return fmt.Errorf("--name is required")
	}

	return withApp(func(ctx context.Context, a *app) error {
		t, err := a.tenants.Create(ctx, tenant.CreateRequest{
			Name:   *name,
			Slug:   *slug,
			Domain: *host,
			Trial:  *trial,
		}, service.SourceAdmin)
		if err != nil {
			return fmt.Errorf("create tenant: %w", err)
		}
		fmt.Fprintf(os.Stderr, "Tenant created: %s (id=%s, slug=%s)\n", t.Name, t.ID, t.Slug)
		return nil
	})
}

func runAdminCreateUser(args []string) error {
	fs := flag.NewFlagSet("create-user", flag.ContinueOnError)
	email := fs.String("email", "", "user email address (required)")
	name := fs.String("name", "", "user display name (required)")
	password := fs.String("password", "", "password (prompted if not provided)") //nolint:gosec // CLI flag
	superuser := fs.Bool("superuser", false, "grant cross-tenant superuser rights")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *email == "" {
		return fmt.Errorf("--email is required")
	}
	if *name == "" {
		return fmt.Errorf("--name is required")
	}

	pass := *password
	if pass == "" {
		var err error
		pass, err = promptNewPassword("Password: ")
		if err != nil {
			return err
		}
	}

	return withApp(func(ctx context.Context, a *app) error {
		u, err := a.auth.Register(ctx, &user.CreateRequest{
			Email:     *email,
			Name:      *name,
			Password:  pass,
			Superuser: *superuser,
		})
		if err != nil {
			return fmt.Errorf("create user: %w", err)
		}
		fmt.Fprintf(os.Stderr, "User created: %s (id=%s, superuser=%t)\n", u.Email, u.ID, u.Superuser)
		return nil
	})
}

func runAdminAddMember(args []string) error {
	fs := flag.NewFlagSet("add-member", flag.ContinueOnError)
	slug := fs.String("tenant", "", "tenant slug (required)")
	email := fs.String("email", "", "user email address (required)")
	role := fs.String("role", string(tenant.RoleUser), "owner, admin, manager, user or readonly")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *slug == "" || *email == "" {
		return fmt.Errorf("--tenant and --email are required")
	}

	return withApp(func(ctx context.Context, a *app) error {
		t, err := a.lookup.BySlug(ctx, *slug)
		if err != nil {
			return fmt.Errorf("tenant %s: %w", *slug, err)
		}
		u, err := a.infra.store.GetUserByEmail(ctx, *email)
		if err != nil {
			return fmt.Errorf("user %s: %w", *email, err)
		}
		m, err := a.tenants.AddMember(ctx, t.ID, tenant.MembershipRequest{UserID: u.ID, Role: tenant.Role(*role)})
		if err != nil {
			return fmt.Errorf("add member: %w", err)
		}
		fmt.Fprintf(os.Stderr, "Member added: %s is %s in %s\n", u.Email, m.Role, t.Slug)
		return nil
	})
}

func runAdminListTenants(args []string) error {
	fs := flag.NewFlagSet("list-tenants", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}

	return withApp(func(ctx context.Context, a *app) error {
		tenants, err := a.tenants.List(ctx)
		if err != nil {
			return fmt.Errorf("list tenants: %w", err)
		}
		if len(tenants) == 0 {
			fmt.Println("No tenants found.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		_, _ = fmt.Fprintln(w, "ID\tSLUG\tNAME\tDOMAIN\tENABLED\tTRIAL")
		for i := range tenants {
			_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%t\t%t\n",
				tenants[i].ID, tenants[i].Slug, tenants[i].Name, tenants[i].Domain, tenants[i].Enabled, tenants[i].Trial)
		}
		return w.Flush()
	})
}

// promptNewPassword reads a password twice and checks they match.
func promptNewPassword(prompt string) (string, error) {
	pass, err := promptPassword(prompt)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	confirm, err := promptPassword("Confirm password: ")
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	if pass != confirm {
		return "", fmt.Errorf("passwords do not match")
	}
	return pass, nil
}

// promptPassword reads a password from the terminal without echoing.
func promptPassword(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	b, err := term.ReadPassword(int(syscall.Stdin)) //nolint:unconvert // int conversion needed on some platforms
	fmt.Fprintln(os.Stderr)                         // newline after password input
	if err != nil {
		return "", err
	}
	return string(b), nil
}
