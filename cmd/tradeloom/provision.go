package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"syscall"
	"text/tabwriter"
	"time"

	"golang.org/x/term"

	"github.com/tradeloom/tradeloom/internal/adapter/postgres"
	"github.com/tradeloom/tradeloom/internal/config"
	"github.com/tradeloom/tradeloom/internal/domain/provision"
	"github.com/tradeloom/tradeloom/internal/logger"
)

// runMigrate applies both migration sets without provisioning any tenant.
func runMigrate(args []string) error {
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadCLIConfig()
	if err != nil {
		return err
	}

	m, err := postgres.NewMigrator(cfg.Postgres.DSN)
	if err != nil {
		return fmt.Errorf("migrator: %w", err)
	}
	defer func() { _ = m.Close() }()

	ctx := context.Background()
	for _, set := range []postgres.MigrationSet{postgres.SetShared, postgres.SetTenant} {
		n, err := m.Up(ctx, set)
		if err != nil {
			return fmt.Errorf("migrate %s: %w", set, err)
		}
		v, err := m.Version(ctx, set)
		if err != nil {
			return fmt.Errorf("version %s: %w", set, err)
		}
		fmt.Fprintf(os.Stderr, "%s: applied %d, version %d\n", set, n, v)
	}
	return nil
}

// runProvision runs the five-phase sequence and prints the report. A fatal
// phase exits 1; a degraded run exits 0 with warnings on stderr.
func runProvision(args []string) error {
	fs := flag.NewFlagSet("provision", flag.ContinueOnError)
	noInput := fs.Bool("no-input", false, "never prompt; missing credentials fail their phase")
	skipGuest := fs.Bool("skip-guest", false, "skip the guest tenant phase")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadCLIConfig()
	if err != nil {
		return err
	}
	if err := promptSuperAdmin(&cfg.Tenancy, *noInput); err != nil {
		return err
	}

	ctx := context.Background()
	in, err := openInfra(ctx, cfg)
	if err != nil {
		return err
	}
	defer in.Close()

	rep, runErr := newApp(cfg, in).sequencer(*skipGuest).Run(ctx)
	if rep != nil {
		if err := printReport(rep); err != nil {
			return err
		}
	}
	if runErr != nil {
		var perr *provision.PhaseError
		if errors.As(runErr, &perr) {
			fmt.Fprintf(os.Stderr, "error: %v\n", perr)
			return exitError{code: 1}
		}
		return runErr
	}
	return nil
}

// Replaced in tests.
var (
	stdinIsTerminal = func() bool { return term.IsTerminal(int(syscall.Stdin)) } //nolint:unconvert // int conversion needed on some platforms
	readNewPassword = promptNewPassword
)

// promptSuperAdmin asks for the super admin password when an email is
// configured without one and stdin is a terminal.
func promptSuperAdmin(t *config.Tenancy, noInput bool) error {
	if noInput || t.SuperAdminEmail == "" || t.SuperAdminPassword != "" {
		return nil
	}
	if !stdinIsTerminal() {
		return nil
	}
	pass, err := readNewPassword(fmt.Sprintf("Password for %s: ", t.SuperAdminEmail))
	if err != nil {
		return err
	}
	t.SuperAdminPassword = pass
	return nil
}

func printReport(rep *provision.Report) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "PHASE\tNAME\tOUTCOME\tDURATION\tDETAIL")
	for _, r := range rep.Results {
		detail := r.Detail
		if r.Err != nil {
			detail = r.Err.Error()
		}
		_, _ = fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", int(r.Phase), r.Name, r.Outcome, r.Duration.Round(time.Millisecond), detail)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	for _, warn := range rep.Warnings {
		fmt.Fprintf(os.Stderr, "warning: %s\n", warn)
	}
	return nil
}

// loadCLIConfig loads configuration and installs the structured logger.
func loadCLIConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	log, _ := logger.New(config.Logging{Level: cfg.Logging.Level, Service: cfg.Logging.Service})
	slog.SetDefault(log)
	return cfg, nil
}
