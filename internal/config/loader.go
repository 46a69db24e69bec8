package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the path checked for YAML configuration.
const DefaultConfigFile = "nusahire.yaml"

// Proxy credential store backends.
const (
	StoreMemory   = "memory"
	StoreRedis    = "redis"
	StoreNATS     = "nats"
	StorePostgres = "postgres"
)

// Load returns a Config using the hierarchy: defaults < YAML < ENV.
// YAML file is optional; missing file is not an error.
func Load() (*Config, error) {
	return LoadFrom(DefaultConfigFile)
}

// LoadFrom returns a Config loaded from the given YAML path using the
// hierarchy: defaults < YAML < ENV. The YAML file is optional.
func LoadFrom(yamlPath string) (*Config, error) {
	cfg := Defaults()

	if err := loadYAML(&cfg, yamlPath); err != nil {
		return nil, fmt.Errorf("config yaml: %w", err)
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
	data, err := os.ReadFile(path) //nolint:gosec // G304: path is validated by caller
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

// loadEnv overlays environment variables onto cfg.
// Only non-empty env values override the current config.
func loadEnv(cfg *Config) {
	setString(&cfg.Server.Port, "NUSAHIRE_PORT")
	setString(&cfg.Server.CORSOrigin, "NUSAHIRE_CORS_ORIGIN")
	setString(&cfg.Postgres.DSN, "DATABASE_URL")
	setInt32(&cfg.Postgres.MaxConns, "NUSAHIRE_PG_MAX_CONNS")
	setInt32(&cfg.Postgres.MinConns, "NUSAHIRE_PG_MIN_CONNS")
	setDuration(&cfg.Postgres.MaxConnLifetime, "NUSAHIRE_PG_MAX_CONN_LIFETIME")
	setDuration(&cfg.Postgres.MaxConnIdleTime, "NUSAHIRE_PG_MAX_CONN_IDLE_TIME")
	setDuration(&cfg.Postgres.HealthCheck, "NUSAHIRE_PG_HEALTH_CHECK")
	setString(&cfg.NATS.URL, "NATS_URL")
	setString(&cfg.Redis.URL, "REDIS_URL")
	setString(&cfg.Logging.Level, "NUSAHIRE_LOG_LEVEL")
	setString(&cfg.Logging.Service, "NUSAHIRE_LOG_SERVICE")
	setBool(&cfg.Logging.Async, "NUSAHIRE_LOG_ASYNC")

	// Cache
	setInt64(&cfg.Cache.L1MaxSizeMB, "NUSAHIRE_CACHE_L1_SIZE_MB")
	setDuration(&cfg.Cache.L1TTL, "NUSAHIRE_CACHE_L1_TTL")
	setString(&cfg.Cache.L2, "NUSAHIRE_CACHE_L2")
	setString(&cfg.Cache.L2Bucket, "NUSAHIRE_CACHE_L2_BUCKET")
	setDuration(&cfg.Cache.L2TTL, "NUSAHIRE_CACHE_L2_TTL")

	// Tenancy
	setString(&cfg.Tenancy.RouteParam, "NUSAHIRE_TENANT_ROUTE_PARAM")
	setList(&cfg.Tenancy.CentralDomains, "NUSAHIRE_CENTRAL_DOMAINS")

	// Proxy bridge
	setString(&cfg.Proxy.CookieName, "NUSAHIRE_PROXY_KEY")
	setDuration(&cfg.Proxy.TTL, "NUSAHIRE_PROXY_TTL")
	setString(&cfg.Proxy.Store, "NUSAHIRE_PROXY_STORE")
	setDuration(&cfg.Proxy.SweepInterval, "NUSAHIRE_PROXY_SWEEP_INTERVAL")
	setBool(&cfg.Proxy.SecureCookie, "NUSAHIRE_PROXY_SECURE_COOKIE")
	setString(&cfg.Proxy.NATSBucket, "NUSAHIRE_PROXY_NATS_BUCKET")

	// OAuth
	setString(&cfg.OAuth.Issuer, "NUSAHIRE_OAUTH_ISSUER")
	setString(&cfg.OAuth.ClientID, "NUSAHIRE_OAUTH_CLIENT_ID")
	setString(&cfg.OAuth.PrivateKeyPath, "NUSAHIRE_OAUTH_PRIVATE_KEY_PATH")
	setString(&cfg.OAuth.PublicKeyPath, "NUSAHIRE_OAUTH_PUBLIC_KEY_PATH")
	setString(&cfg.OAuth.PrivateKey, "NUSAHIRE_OAUTH_PRIVATE_KEY")
	setString(&cfg.OAuth.PublicKey, "NUSAHIRE_OAUTH_PUBLIC_KEY")
	setDuration(&cfg.OAuth.AccessTokenExpiry, "NUSAHIRE_OAUTH_ACCESS_TOKEN_EXPIRY")

	// Auth
	setInt(&cfg.Auth.BcryptCost, "NUSAHIRE_BCRYPT_COST")
	setDuration(&cfg.Auth.RevocationCleanup, "NUSAHIRE_REVOCATION_CLEANUP")
	setFloat(&cfg.Auth.LoginRate, "NUSAHIRE_LOGIN_RATE")
	setInt(&cfg.Auth.LoginBurst, "NUSAHIRE_LOGIN_BURST")

	setInt(&cfg.Breaker.MaxFailures, "NUSAHIRE_BREAKER_MAX_FAILURES")
	setDuration(&cfg.Breaker.Timeout, "NUSAHIRE_BREAKER_TIMEOUT")

	setString(&cfg.OTel.Endpoint, "OTEL_EXPORTER_OTLP_ENDPOINT")
	setString(&cfg.OTel.ServiceName, "OTEL_SERVICE_NAME")
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
	if cfg.Tenancy.RouteParam == "" {
		return errors.New("tenancy.route_param is required")
	}
	if cfg.Proxy.CookieName == "" {
		return errors.New("proxy.cookie_name is required")
	}
	if cfg.Proxy.TTL <= 0 {
		return errors.New("proxy.ttl must be > 0")
	}
	if cfg.Proxy.SweepInterval <= 0 {
		return errors.New("proxy.sweep_interval must be > 0")
	}
	if cfg.Auth.RevocationCleanup <= 0 {
		return errors.New("auth.revocation_cleanup must be > 0")
	}
	if cfg.Cache.L1TTL <= 0 {
		return errors.New("cache.l1_ttl must be > 0")
	}
	switch cfg.Proxy.Store {
	case StoreMemory, StorePostgres:
	case StoreRedis:
		if cfg.Redis.URL == "" {
			return errors.New("redis.url is required when proxy.store is redis")
		}
	case StoreNATS:
		if cfg.NATS.URL == "" {
			return errors.New("nats.url is required when proxy.store is nats")
		}
	default:
		return fmt.Errorf("proxy.store %q is not one of memory, redis, nats, postgres", cfg.Proxy.Store)
	}
	switch cfg.Cache.L2 {
	case "":
	case StoreRedis:
		if cfg.Redis.URL == "" {
			return errors.New("redis.url is required when cache.l2 is redis")
		}
	case StoreNATS:
		if cfg.NATS.URL == "" {
			return errors.New("nats.url is required when cache.l2 is nats")
		}
	default:
		return fmt.Errorf("cache.l2 %q is not one of nats, redis", cfg.Cache.L2)
	}
	if cfg.OAuth.PrivateKey == "" && cfg.OAuth.PrivateKeyPath == "" {
		return errors.New("oauth.private_key or oauth.private_key_path is required")
	}
	// No fallback to the signing key: verifiers need an independent public key.
	if cfg.OAuth.PublicKey == "" && cfg.OAuth.PublicKeyPath == "" {
		return errors.New("oauth.public_key or oauth.public_key_path is required")
	}
	if cfg.OAuth.AccessTokenExpiry <= 0 {
		return errors.New("oauth.access_token_expiry must be > 0")
	}
	if cfg.Auth.LoginRate <= 0 || cfg.Auth.LoginBurst < 1 {
		return errors.New("auth.login_rate must be > 0 and auth.login_burst >= 1")
	}
	if cfg.Breaker.MaxFailures < 1 {
		return errors.New("breaker.max_failures must be >= 1")
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// setList splits a comma-separated env value, dropping blanks.
func setList(dst *[]string, key string) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	*dst = out
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

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setFloat(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
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
