package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the path checked for YAML configuration.
const DefaultConfigFile = "tradeloom.yaml"

// DefaultEnvFile is the dotenv file overlaid before the process environment.
const DefaultEnvFile = ".env"

// minJWTSecretLen is the shortest HS256 secret accepted when auth is enabled.
const minJWTSecretLen = 32

// Load returns a Config using the hierarchy: defaults < YAML < .env < ENV.
// YAML and .env files are optional; missing files are not an error.
func Load() (*Config, error) {
	return LoadFrom(DefaultConfigFile)
}

// LoadFrom returns a Config loaded from the given YAML path using the
// hierarchy: defaults < YAML < .env < ENV. The YAML file is optional.
func LoadFrom(yamlPath string) (*Config, error) {
	cfg := Defaults()

	if err := loadYAML(&cfg, yamlPath); err != nil {
		return nil, fmt.Errorf("config yaml: %w", err)
	}

	if err := loadDotEnv(envFile()); err != nil {
		return nil, fmt.Errorf("config dotenv: %w", err)
	}

	loadEnv(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validate: %w", err)
	}

	return &cfg, nil
}

// loadYAML reads the YAML file and unmarshals it over cfg.
// Returns nil if the file does not exist.
func loadYAML(cfg *Config, path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path comes from the operator
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	return nil
}

func envFile() string {
	if f := os.Getenv("TRADELOOM_ENV_FILE"); f != "" {
		return f
	}
	return DefaultEnvFile
}

// loadDotEnv populates the process environment from a dotenv file without
// overriding variables that are already set. A missing file is ignored.
func loadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	return godotenv.Load(path)
}

// loadEnv overlays environment variables onto cfg.
// Only non-empty env values override the current config.
func loadEnv(cfg *Config) {
	setString(&cfg.Server.Port, "TRADELOOM_PORT")
	setString(&cfg.Server.CORSOrigin, "TRADELOOM_CORS_ORIGIN")
	setString(&cfg.Postgres.DSN, "DATABASE_URL")
	setInt32(&cfg.Postgres.MaxConns, "TRADELOOM_PG_MAX_CONNS")
	setInt32(&cfg.Postgres.MinConns, "TRADELOOM_PG_MIN_CONNS")
	setDuration(&cfg.Postgres.MaxConnLifetime, "TRADELOOM_PG_MAX_CONN_LIFETIME")
	setDuration(&cfg.Postgres.MaxConnIdleTime, "TRADELOOM_PG_MAX_CONN_IDLE_TIME")
	setDuration(&cfg.Postgres.HealthCheck, "TRADELOOM_PG_HEALTH_CHECK")
	setString(&cfg.NATS.URL, "NATS_URL")
	setString(&cfg.Logging.Level, "TRADELOOM_LOG_LEVEL")
	setString(&cfg.Logging.Service, "TRADELOOM_LOG_SERVICE")
	setBool(&cfg.Logging.Async, "TRADELOOM_LOG_ASYNC")
	setInt(&cfg.Breaker.MaxFailures, "TRADELOOM_BREAKER_MAX_FAILURES")
	setDuration(&cfg.Breaker.Timeout, "TRADELOOM_BREAKER_TIMEOUT")
	setFloat64(&cfg.Rate.RequestsPerSecond, "TRADELOOM_RATE_RPS")
	setInt(&cfg.Rate.Burst, "TRADELOOM_RATE_BURST")
	setDuration(&cfg.Rate.CleanupInterval, "TRADELOOM_RATE_CLEANUP_INTERVAL")
	setDuration(&cfg.Rate.MaxIdleTime, "TRADELOOM_RATE_MAX_IDLE_TIME")

	// Auth
	setBool(&cfg.Auth.Enabled, "TRADELOOM_AUTH_ENABLED")
	setString(&cfg.Auth.JWTSecret, "TRADELOOM_JWT_SECRET")
	setDuration(&cfg.Auth.AccessTokenExpiry, "TRADELOOM_ACCESS_TOKEN_EXPIRY")
	setInt(&cfg.Auth.BcryptCost, "TRADELOOM_BCRYPT_COST")

	// Tenancy
	setString(&cfg.Tenancy.BaseDomain, "TRADELOOM_BASE_DOMAIN")
	setString(&cfg.Tenancy.SuperSlug, "TRADELOOM_SUPER_TENANT_SLUG")
	setString(&cfg.Tenancy.SuperName, "TRADELOOM_SUPER_TENANT_NAME")
	setString(&cfg.Tenancy.SuperAdminEmail, "TRADELOOM_SUPER_ADMIN_EMAIL")
	setString(&cfg.Tenancy.SuperAdminPassword, "TRADELOOM_SUPER_ADMIN_PASSWORD")
	setBool(&cfg.Tenancy.GuestEnabled, "TRADELOOM_GUEST_ENABLED")
	setString(&cfg.Tenancy.GuestSlug, "TRADELOOM_GUEST_TENANT_SLUG")
	setString(&cfg.Tenancy.GuestName, "TRADELOOM_GUEST_TENANT_NAME")
	setString(&cfg.Tenancy.GuestEmail, "TRADELOOM_GUEST_EMAIL")
	setString(&cfg.Tenancy.GuestPassword, "TRADELOOM_GUEST_PASSWORD")
	setInt(&cfg.Tenancy.SearchLimit, "TRADELOOM_SEARCH_LIMIT")

	// Cache
	setInt64(&cfg.Cache.L1MaxSizeMB, "TRADELOOM_CACHE_L1_SIZE_MB")
	setString(&cfg.Cache.L2Bucket, "TRADELOOM_CACHE_L2_BUCKET")
	setDuration(&cfg.Cache.TTL, "TRADELOOM_CACHE_TTL")

	// Idempotency
	setString(&cfg.Idempotency.Bucket, "TRADELOOM_IDEMPOTENCY_BUCKET")
	setDuration(&cfg.Idempotency.TTL, "TRADELOOM_IDEMPOTENCY_TTL")

	// OTEL
	setBool(&cfg.OTEL.Enabled, "TRADELOOM_OTEL_ENABLED")
	setString(&cfg.OTEL.Endpoint, "OTEL_EXPORTER_OTLP_ENDPOINT")
	setString(&cfg.OTEL.ServiceName, "OTEL_SERVICE_NAME")
	setBool(&cfg.OTEL.Insecure, "TRADELOOM_OTEL_INSECURE")
}

// validate checks that required fields are set.
func validate(cfg *Config) error {
	if cfg.Server.Port == "" {
		return errors.New("server.port is required")
	}
	if cfg.Postgres.DSN == "" {
		return errors.New("postgres.dsn is required")
	}
	if cfg.Postgres.MaxConns < 1 {
		return errors.New("postgres.max_conns must be >= 1")
	}
	if cfg.Breaker.MaxFailures < 1 {
		return errors.New("breaker.max_failures must be >= 1")
	}
	if cfg.Rate.Burst < 1 {
		return errors.New("rate.burst must be >= 1")
	}
	if cfg.Auth.Enabled && len(cfg.Auth.JWTSecret) < minJWTSecretLen {
		return fmt.Errorf("auth.jwt_secret must be at least %d characters", minJWTSecretLen)
	}
	if cfg.Tenancy.SuperSlug == "" {
		return errors.New("tenancy.super_slug is required")
	}
	if cfg.Tenancy.GuestEnabled && (cfg.Tenancy.GuestSlug == "" || cfg.Tenancy.GuestEmail == "") {
		return errors.New("tenancy.guest_slug and tenancy.guest_email are required when guest is enabled")
	}
	if cfg.Tenancy.SearchLimit < 1 {
		return errors.New("tenancy.search_limit must be >= 1")
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt32(dst *int32, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 32); err == nil {
			*dst = int32(n)
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
