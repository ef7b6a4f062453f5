// Package config provides YAML-based configuration loading for the ledger
// daemon, with environment variable overrides for deployment secrets.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"buildledger/internal/infra/cache"
)

// Config is the top-level daemon configuration, loaded from config.yaml.
type Config struct {
	Server ServerConfig `yaml:"server"`
	Store  StoreConfig  `yaml:"store"`
	Cache  cache.Config `yaml:"cache"`
	Remote RemoteConfig `yaml:"remote"`
	Sync   SyncConfig   `yaml:"sync"`
	Events EventsConfig `yaml:"events"`
	Blob   BlobConfig   `yaml:"blob"`
	Log    LogConfig    `yaml:"log"`
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Port      int    `yaml:"port"`
	JWTSecret string `yaml:"jwt_secret"`
}

// StoreConfig selects the persistence backend for the entity store.
type StoreConfig struct {
	Driver      string `yaml:"driver"` // memory | sqlite | postgres
	SQLitePath  string `yaml:"sqlite_path"`
	PostgresDSN string `yaml:"postgres_dsn"`
}

// RemoteConfig points at the authoritative ledger service.
type RemoteConfig struct {
	BaseURL        string `yaml:"base_url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// SyncConfig controls the reconcile loop.
type SyncConfig struct {
	ReconcileSchedule string `yaml:"reconcile_schedule"` // cron expression
}

// EventsConfig holds the message broker settings. An empty URL disables
// event publishing.
type EventsConfig struct {
	AMQPURL  string `yaml:"amqp_url"`
	Exchange string `yaml:"exchange"`
}

// BlobConfig selects the document attachment backend.
type BlobConfig struct {
	Driver     string `yaml:"driver"` // memory | fs | s3
	Root       string `yaml:"root"`   // fs driver
	S3Region   string `yaml:"s3_region"`
	S3Bucket   string `yaml:"s3_bucket"`
	S3Endpoint string `yaml:"s3_endpoint"`
}

// LogConfig controls the zap logger.
type LogConfig struct {
	Level string `yaml:"level"` // debug | info | warn | error
}

// Timeout returns the remote request timeout as a duration.
func (r RemoteConfig) Timeout() time.Duration {
	return time.Duration(r.TimeoutSeconds) * time.Second
}

// Load reads a YAML config file from path, applies environment overrides,
// and returns a validated Config. A missing file is not an error; the
// defaults plus environment variables make a runnable configuration.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		data = nil
	}
	return Parse(data)
}

// Parse unmarshals YAML bytes, applies environment overrides and defaults,
// and validates the result.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("config: parse: %w", err)
		}
	}
	cfg.applyEnv()
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyEnv lets deployment environments override file settings.
func (c *Config) applyEnv() {
	if port := os.Getenv("SERVER_PORT"); port != "" {
		if v, err := strconv.Atoi(port); err == nil {
			c.Server.Port = v
		}
	}
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		c.Server.JWTSecret = secret
	}
	if driver := os.Getenv("STORE_DRIVER"); driver != "" {
		c.Store.Driver = driver
	}
	if path := os.Getenv("STORE_SQLITE_PATH"); path != "" {
		c.Store.SQLitePath = path
	}
	if dsn := os.Getenv("STORE_POSTGRES_DSN"); dsn != "" {
		c.Store.PostgresDSN = dsn
	}
	if driver := os.Getenv("CACHE_DRIVER"); driver != "" {
		c.Cache.Driver = driver
	}
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		c.Cache.RedisAddr = addr
	}
	if url := os.Getenv("REMOTE_BASE_URL"); url != "" {
		c.Remote.BaseURL = url
	}
	if url := os.Getenv("MQ_URL"); url != "" {
		c.Events.AMQPURL = url
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		c.Log.Level = level
	}
}

// applyDefaults fills in derived and default values.
func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Store.Driver == "" {
		c.Store.Driver = "memory"
	}
	if c.Store.Driver == "sqlite" && c.Store.SQLitePath == "" {
		c.Store.SQLitePath = "ledger.db"
	}
	if c.Remote.TimeoutSeconds == 0 {
		c.Remote.TimeoutSeconds = 10
	}
	if c.Sync.ReconcileSchedule == "" {
		c.Sync.ReconcileSchedule = "@every 1m"
	}
	if c.Events.Exchange == "" {
		c.Events.Exchange = "ledger.events"
	}
	if c.Blob.Driver == "" {
		c.Blob.Driver = "memory"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// validate checks that all required fields are present and consistent.
func (c *Config) validate() error {
	var errs []string
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port %d out of range", c.Server.Port))
	}
	switch c.Store.Driver {
	case "memory", "sqlite":
	case "postgres":
		if c.Store.PostgresDSN == "" {
			errs = append(errs, "store.postgres_dsn is required for the postgres driver")
		}
	default:
		errs = append(errs, fmt.Sprintf("store.driver %q is not supported", c.Store.Driver))
	}
	switch c.Blob.Driver {
	case "memory":
	case "fs":
		if c.Blob.Root == "" {
			errs = append(errs, "blob.root is required for the fs driver")
		}
	case "s3":
		if c.Blob.S3Bucket == "" {
			errs = append(errs, "blob.s3_bucket is required for the s3 driver")
		}
	default:
		errs = append(errs, fmt.Sprintf("blob.driver %q is not supported", c.Blob.Driver))
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
