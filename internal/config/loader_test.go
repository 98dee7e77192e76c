package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	if cfg.Server.Port != "8080" {
		t.Errorf("expected port 8080, got %s", cfg.Server.Port)
	}
	if cfg.Postgres.MaxConns != 15 {
		t.Errorf("expected max_conns 15, got %d", cfg.Postgres.MaxConns)
	}
	if cfg.Tenancy.SuperSlug != "super" {
		t.Errorf("expected super slug 'super', got %q", cfg.Tenancy.SuperSlug)
	}
	if cfg.Tenancy.SearchLimit != 5 {
		t.Errorf("expected search limit 5, got %d", cfg.Tenancy.SearchLimit)
	}
	if cfg.Breaker.Timeout != 30*time.Second {
		t.Errorf("expected breaker timeout 30s, got %v", cfg.Breaker.Timeout)
	}
}

func TestLoadYAMLOverride(t *testing.T) {
	dir := t.TempDir()
	yamlPath := filepath.Join(dir, "test.yaml")

	content := `
server:
  port: "9090"
postgres:
  max_conns: 20
tenancy:
  base_domain: "tradeloom.test"
  guest_enabled: false
logging:
  level: "debug"
`
	if err := os.WriteFile(yamlPath, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := Defaults()
	if err := loadYAML(&cfg, yamlPath); err != nil {
		t.Fatal(err)
	}

	if cfg.Server.Port != "9090" {
		t.Errorf("expected port 9090, got %s", cfg.Server.Port)
	}
	if cfg.Postgres.MaxConns != 20 {
		t.Errorf("expected max_conns 20, got %d", cfg.Postgres.MaxConns)
	}
	if cfg.Tenancy.BaseDomain != "tradeloom.test" {
		t.Errorf("expected base domain tradeloom.test, got %q", cfg.Tenancy.BaseDomain)
	}
	if cfg.Tenancy.GuestEnabled {
		t.Error("expected guest disabled by YAML")
	}
	// Unchanged fields keep defaults
	if cfg.Tenancy.GuestSlug != "guest" {
		t.Errorf("expected default guest slug, got %q", cfg.Tenancy.GuestSlug)
	}
}

func TestLoadYAMLMissing(t *testing.T) {
	cfg := Defaults()
	if err := loadYAML(&cfg, "/nonexistent/tradeloom.yaml"); err != nil {
		t.Fatalf("missing file should not be an error: %v", err)
	}
}

func TestEnvOverride(t *testing.T) {
	cfg := Defaults()

	t.Setenv("TRADELOOM_PORT", "7070")
	t.Setenv("DATABASE_URL", "postgres://test:test@db:5432/test")
	t.Setenv("TRADELOOM_PG_MAX_CONNS", "25")
	t.Setenv("TRADELOOM_BASE_DOMAIN", "example.com")
	t.Setenv("TRADELOOM_GUEST_ENABLED", "false")
	t.Setenv("TRADELOOM_SEARCH_LIMIT", "3")

	loadEnv(&cfg)

	if cfg.Server.Port != "7070" {
		t.Errorf("expected port 7070, got %s", cfg.Server.Port)
	}
	if cfg.Postgres.DSN != "postgres://test:test@db:5432/test" {
		t.Errorf("unexpected dsn %q", cfg.Postgres.DSN)
	}
	if cfg.Postgres.MaxConns != 25 {
		t.Errorf("expected max_conns 25, got %d", cfg.Postgres.MaxConns)
	}
	if cfg.Tenancy.BaseDomain != "example.com" {
		t.Errorf("expected base domain example.com, got %q", cfg.Tenancy.BaseDomain)
	}
	if cfg.Tenancy.GuestEnabled {
		t.Error("expected guest disabled by env")
	}
	if cfg.Tenancy.SearchLimit != 3 {
		t.Errorf("expected search limit 3, got %d", cfg.Tenancy.SearchLimit)
	}
}

func TestValidateRequired(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"empty port", func(c *Config) { c.Server.Port = "" }, "server.port"},
		{"empty dsn", func(c *Config) { c.Postgres.DSN = "" }, "postgres.dsn"},
		{"zero max conns", func(c *Config) { c.Postgres.MaxConns = 0 }, "max_conns"},
		{"short jwt secret", func(c *Config) { c.Auth.JWTSecret = "short" }, "jwt_secret"},
		{"empty super slug", func(c *Config) { c.Tenancy.SuperSlug = "" }, "super_slug"},
		{"guest without email", func(c *Config) { c.Tenancy.GuestEmail = "" }, "guest_email"},
		{"zero search limit", func(c *Config) { c.Tenancy.SearchLimit = 0 }, "search_limit"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			cfg.Auth.JWTSecret = testSecret
			tt.mutate(&cfg)
			err := validate(&cfg)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidateAuthDisabledSkipsSecret(t *testing.T) {
	cfg := Defaults()
	cfg.Auth.Enabled = false
	if err := validate(&cfg); err != nil {
		t.Fatalf("expected no error with auth disabled, got %v", err)
	}
}

func TestLoadFrom_FullHierarchy(t *testing.T) {
	dir := t.TempDir()
	yamlPath := filepath.Join(dir, "cfg.yaml")
	if err := os.WriteFile(yamlPath, []byte(`
server:
  port: "9090"
logging:
  level: "debug"
`), 0o644); err != nil {
		t.Fatal(err)
	}

	envPath := filepath.Join(dir, "test.env")
	if err := os.WriteFile(envPath, []byte("TRADELOOM_JWT_SECRET="+testSecret+"\nTRADELOOM_LOG_LEVEL=error\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("TRADELOOM_ENV_FILE", envPath)
	t.Setenv("TRADELOOM_PORT", "7070")
	// Pre-set so the process env beats the dotenv file.
	t.Setenv("TRADELOOM_LOG_LEVEL", "warn")
	// Registered for cleanup; the dotenv loader fills it in.
	t.Setenv("TRADELOOM_JWT_SECRET", "")
	os.Unsetenv("TRADELOOM_JWT_SECRET")

	cfg, err := LoadFrom(yamlPath)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}

	if cfg.Server.Port != "7070" {
		t.Errorf("env should override YAML: got port %q, want 7070", cfg.Server.Port)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("process env should beat dotenv: got level %q, want warn", cfg.Logging.Level)
	}
	if cfg.Auth.JWTSecret != testSecret {
		t.Errorf("dotenv should supply jwt secret, got %q", cfg.Auth.JWTSecret)
	}
}
