package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	cfhttp "github.com/tradeloom/tradeloom/internal/adapter/http"
	cfotel "github.com/tradeloom/tradeloom/internal/adapter/otel"
	"github.com/tradeloom/tradeloom/internal/adapter/postgres"
	"github.com/tradeloom/tradeloom/internal/config"
	"github.com/tradeloom/tradeloom/internal/logger"
	"github.com/tradeloom/tradeloom/internal/middleware"
	"github.com/tradeloom/tradeloom/internal/port/messagequeue"
	"github.com/tradeloom/tradeloom/internal/service"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		var exit exitError
		if errors.As(err, &exit) {
			os.Exit(exit.code)
		}
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

// exitError terminates the process with code without further logging.
type exitError struct{ code int }

func (e exitError) Error() string { return fmt.Sprintf("exit status %d", e.code) }

func run(args []string) error {
	cmd := "serve"
	if len(args) > 0 && args[0] != "" && args[0][0] != '-' {
		cmd, args = args[0], args[1:]
	}

	switch cmd {
	case "serve":
		return runServe(args)
	case "migrate":
		return runMigrate(args)
	case "provision":
		return runProvision(args)
	case "admin":
		return runAdmin(args)
	case "help", "--help", "-h":
		printHelp()
		return nil
	default:
		printHelp()
		return fmt.Errorf("unknown command: %s", cmd)
	}
}

func printHelp() {
	fmt.Fprintf(os.Stderr, `Usage: tradeloom <command> [options]

Commands:
  serve       Run the HTTP API (default)
  migrate     Apply the shared and tenant schema migrations
  provision   Run the full migration and provisioning sequence
  admin       Tenant and user administration
  help        Show this help message
`)
}

func runServe(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	skipProvision := fs.Bool("skip-provision", false, "do not run the provisioning sequence at startup")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	log, closeLog := logger.New(cfg.Logging)
	defer closeLog.Close()
	slog.SetDefault(log)

	slog.Info("config loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Logging.Level,
		"pg_max_conns", cfg.Postgres.MaxConns,
		"auth_enabled", cfg.Auth.Enabled,
		"base_domain", cfg.Tenancy.BaseDomain,
	)

	ctx := context.Background()

	// --- Infrastructure ---

	shutdownOTEL, err := cfotel.Init(ctx, cfg.OTEL)
	if err != nil {
		return fmt.Errorf("otel: %w", err)
	}
	defer func() {
		if err := shutdownOTEL(context.Background()); err != nil {
			slog.Warn("otel shutdown", "error", err)
		}
	}()
	metrics, err := cfotel.NewMetrics()
	if err != nil {
		return fmt.Errorf("otel metrics: %w", err)
	}

	infra, err := openInfra(ctx, cfg)
	if err != nil {
		return err
	}
	defer infra.Close()

	app := newApp(cfg, infra)
	app.setMetrics(metrics)

	// --- Provisioning ---

	if *skipProvision {
		v, err := infra.migrator.Version(ctx, postgres.SetTenant)
		if err != nil {
			return fmt.Errorf("tenant schema version: %w", err)
		}
		app.tenants.SetSchemaVersion(v)
	} else {
		seq := app.sequencer(false)
		seq.SetMetrics(metrics)
		rep, err := seq.Run(ctx)
		if err != nil {
			return fmt.Errorf("provisioning: %w", err)
		}
		if rep.Degraded() {
			slog.Warn("provisioning degraded", "warnings", rep.Warnings)
		}
	}

	// --- Cross-instance cache invalidation ---

	if infra.queue != nil {
		stop, err := infra.queue.Subscribe(ctx, messagequeue.SubjectTenantUpdated, app.lookup.HandleTenantUpdated)
		if err != nil {
			slog.Warn("tenant update subscription unavailable", "error", err)
		} else {
			defer stop()
		}
	}

	// --- HTTP ---

	rl := middleware.NewRateLimiter(cfg.Rate.RequestsPerSecond, cfg.Rate.Burst)
	stopCleanup := rl.StartCleanup(cfg.Rate.CleanupInterval, cfg.Rate.MaxIdleTime)
	defer stopCleanup()

	r := chi.NewRouter()

	// Middleware
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestID)
	r.Use(cfhttp.Logger)
	r.Use(chimw.Recoverer)
	r.Use(cfhttp.SecurityHeaders)
	r.Use(cfhttp.CORS(cfg.Server.CORSOrigin))
	r.Use(cfotel.HTTPMiddleware(cfg.OTEL.ServiceName))
	r.Use(rl.Handler)
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(middleware.Auth(app.auth, cfg.Auth.Enabled))

	var tenantMW []func(http.Handler) http.Handler
	if infra.idempotency != nil {
		tenantMW = append(tenantMW, middleware.Idempotency(infra.idempotency))
	}
	cfhttp.MountRoutes(r, app.handlers(infra.pool.Ping), app.resolver, tenantMW...)

	addr := ":" + cfg.Server.Port

	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// Graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		slog.Info("starting server", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-done:
	case err := <-errCh:
		return fmt.Errorf("server: %w", err)
	}
	slog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}

// sequencer builds a provisioning sequencer over the app's services.
func (a *app) sequencer(skipGuest bool) *service.Sequencer {
	seq := service.NewSequencer(a.infra.migrator, a.infra.store, a.tenants)
	seq.SetEvents(a.events)
	seq.SetSkipGuest(skipGuest)
	return seq
}
