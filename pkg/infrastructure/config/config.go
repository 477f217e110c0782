package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
)

// Config holds all configuration for the propagation engine.
// Values come from an optional YAML file with environment variable overrides.
// Secrets (database and redis passwords) only come from the environment.
type Config struct {
	Env      string `yaml:"env" env:"MRP_ENV" env-default:"local"`
	LogLevel string `yaml:"log_level" env:"MRP_LOG_LEVEL" env-default:"info"`

	// Store selects where plans are persisted: "memory" or "postgres"
	Store string `yaml:"store" env:"MRP_STORE" env-default:"memory"`

	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Engine   EngineConfig   `yaml:"engine"`
}

// DatabaseConfig holds PostgreSQL database configuration.
type DatabaseConfig struct {
	Host           string `yaml:"host" env:"PGHOST" env-default:"localhost"`
	Port           int    `yaml:"port" env:"PGPORT" env-default:"5432"`
	User           string `yaml:"user" env:"PGUSER" env-default:"mrp"`
	Password       string `yaml:"-" env:"PGPASSWORD"`
	Database       string `yaml:"database" env:"PGDATABASE" env-default:"mrp"`
	SSLMode        string `yaml:"ssl_mode" env:"PGSSLMODE" env-default:"disable"`
	MaxConnections int32  `yaml:"max_connections" env:"PGMAX_CONNECTIONS" env-default:"10"`
}

// URL builds the pgx connection string
func (d DatabaseConfig) URL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Database, d.SSLMode)
}

// RedisConfig holds Redis configuration. An empty host disables Redis and
// bucket locks stay in-process.
type RedisConfig struct {
	Host     string `yaml:"host" env:"REDIS_HOST" env-default:""`
	Port     int    `yaml:"port" env:"REDIS_PORT" env-default:"6379"`
	Password string `yaml:"-" env:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" env:"REDIS_DB" env-default:"0"`

	// LockTTLMillis bounds how long a crashed holder can keep a bucket locked
	LockTTLMillis int `yaml:"lock_ttl_ms" env:"REDIS_LOCK_TTL_MS" env-default:"5000"`
}

// EngineConfig tunes the propagation run
type EngineConfig struct {
	MaxParallelBranches int    `yaml:"max_parallel_branches" env:"MRP_MAX_PARALLEL_BRANCHES" env-default:"8"`
	MaxCarryOverDays    int    `yaml:"max_carry_over_days" env:"MRP_MAX_CARRY_OVER_DAYS" env-default:"365"`
	PlanNoPrefix        string `yaml:"plan_no_prefix" env:"MRP_PLAN_NO_PREFIX" env-default:"PP"`
}

// Load reads .env (if present), then the YAML file at path with environment overrides.
// An empty path reads configuration from the environment only.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := &Config{}

	if path == "" {
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, fmt.Errorf("failed to read environment: %w", err)
		}
	} else {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("config file %s: %w", path, err)
		}
		if err := cleanenv.ReadConfig(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks values that cleanenv cannot express as tags
func (c *Config) Validate() error {
	if c.Store != StoreMemory && c.Store != StorePostgres {
		return fmt.Errorf("store must be %q or %q, got %q", StoreMemory, StorePostgres, c.Store)
	}
	if c.Engine.MaxParallelBranches < 1 {
		return fmt.Errorf("engine.max_parallel_branches must be at least 1, got %d", c.Engine.MaxParallelBranches)
	}
	if c.Engine.MaxCarryOverDays < 0 {
		return fmt.Errorf("engine.max_carry_over_days cannot be negative, got %d", c.Engine.MaxCarryOverDays)
	}
	if c.Engine.PlanNoPrefix == "" {
		return fmt.Errorf("engine.plan_no_prefix cannot be empty")
	}
	if c.Redis.Host != "" && c.Redis.LockTTLMillis <= 0 {
		return fmt.Errorf("redis.lock_ttl_ms must be positive, got %d", c.Redis.LockTTLMillis)
	}
	return nil
}

// IsProduction reports whether the process runs in a production environment
func (c *Config) IsProduction() bool {
	return c.Env == "production" || c.Env == "prod"
}
