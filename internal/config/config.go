// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server   Server   `yaml:"server"`
	Tenant   Tenant   `yaml:"tenant"`
	Auth     Auth     `yaml:"auth"`
	Database Database `yaml:"database"`
	MongoDB  MongoDB  `yaml:"mongodb"`
	Redis    Redis    `yaml:"redis"`
	Cache    Cache    `yaml:"cache"`
	RabbitMQ RabbitMQ `yaml:"rabbitmq"`
	Log      Log      `yaml:"log"`

	Workers int `yaml:"workers" env:"WORKERS"`
}

type Server struct {
	Addr            string        `yaml:"addr" env:"SERVER_ADDR"`
	ReadTimeout     time.Duration `yaml:"read_timeout" env:"SERVER_READ_TIMEOUT"`
	WriteTimeout    time.Duration `yaml:"write_timeout" env:"SERVER_WRITE_TIMEOUT"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SERVER_SHUTDOWN_TIMEOUT"`
}

type Tenant struct {
	Header        string `yaml:"header" env:"TENANT_HEADER"`
	Default       string `yaml:"default" env:"TENANT_DEFAULT"`
	RequireHeader bool   `yaml:"require_header" env:"TENANT_REQUIRE_HEADER"`
}

type Auth struct {
	JWTSecret string        `yaml:"jwt_secret" env:"AUTH_JWT_SECRET"`
	TokenTTL  time.Duration `yaml:"token_ttl" env:"AUTH_TOKEN_TTL"`
}

// Database is the relational store holding users. An empty URL selects the
// in-memory store.
type Database struct {
	URL     string `yaml:"url" env:"DATABASE_URL"`
	Migrate bool   `yaml:"migrate" env:"DATABASE_MIGRATE"`
}

// MongoDB is the document store holding products. An empty URL selects the
// in-memory store.
type MongoDB struct {
	URL            string        `yaml:"url" env:"MONGODB_URL"`
	Database       string        `yaml:"database" env:"MONGODB_DATABASE"`
	Collection     string        `yaml:"collection" env:"MONGODB_COLLECTION"`
	ConnectTimeout time.Duration `yaml:"connect_timeout" env:"MONGODB_CONNECT_TIMEOUT"`
	RetryAttempts  int           `yaml:"retry_attempts" env:"MONGODB_RETRY_ATTEMPTS"`
	RetryInterval  time.Duration `yaml:"retry_interval" env:"MONGODB_RETRY_INTERVAL"`
}

type Redis struct {
	URL           string        `yaml:"url" env:"REDIS_URL"`
	Prefix        string        `yaml:"prefix" env:"REDIS_PREFIX"`
	RetryAttempts int           `yaml:"retry_attempts" env:"REDIS_RETRY_ATTEMPTS"`
	RetryInterval time.Duration `yaml:"retry_interval" env:"REDIS_RETRY_INTERVAL"`
}

const (
	CacheRedis  = "redis"
	CacheMemory = "memory"
	CacheNone   = "none"
)

type Cache struct {
	Driver string        `yaml:"driver" env:"CACHE_DRIVER"`
	TTL    time.Duration `yaml:"ttl" env:"CACHE_TTL"`
	Size   int           `yaml:"size" env:"CACHE_SIZE"`
}

// RabbitMQ carries change events. An empty URL disables publishing and
// cross-instance invalidation.
type RabbitMQ struct {
	URL      string `yaml:"url" env:"RABBITMQ_URL"`
	Exchange string `yaml:"exchange" env:"RABBITMQ_EXCHANGE"`
}

type Log struct {
	Level  string `yaml:"level" env:"LOG_LEVEL"`
	Format string `yaml:"format" env:"LOG_FORMAT"`
}

// Default returns the configuration used when no file or variable overrides it.
func Default() *Config {
	return &Config{
		Server: Server{
			Addr:            ":8080",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    10 * time.Second,
			ShutdownTimeout: 5 * time.Second,
		},
		Tenant: Tenant{
			Header:  "X-Tenant-ID",
			Default: "default",
		},
		Auth: Auth{TokenTTL: 24 * time.Hour},
		MongoDB: MongoDB{
			Database:       "dataservices",
			Collection:     "products",
			ConnectTimeout: 10 * time.Second,
			RetryAttempts:  3,
			RetryInterval:  5 * time.Second,
		},
		Redis: Redis{
			Prefix:        "dataservices:",
			RetryAttempts: 3,
			RetryInterval: 5 * time.Second,
		},
		Cache: Cache{
			Driver: CacheRedis,
			TTL:    10 * time.Minute,
			Size:   10000,
		},
		RabbitMQ: RabbitMQ{Exchange: "dataservices.changes"},
		Log:      Log{Level: "info", Format: "json"},
		Workers:  4,
	}
}

// LoadConfig reads the YAML file at path on top of the defaults, then
// applies environment overrides (a .env file in the working directory is
// loaded first when present). An empty path skips the file.
func LoadConfig(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config: %w", err)
		}
	}

	// the .env file is optional
	_ = godotenv.Load()
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the service cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Addr == "" {
		errs = append(errs, errors.New("server.addr is required"))
	}
	if c.Tenant.Header == "" {
		errs = append(errs, errors.New("tenant.header is required"))
	}
	if c.Tenant.Default == "" && !c.Tenant.RequireHeader {
		errs = append(errs, errors.New("tenant.default is required unless tenant.require_header is set"))
	}
	switch c.Cache.Driver {
	case CacheRedis, CacheMemory, CacheNone:
	default:
		errs = append(errs, fmt.Errorf("cache.driver %q is not one of redis, memory, none", c.Cache.Driver))
	}
	if c.Cache.Driver == CacheMemory && c.Cache.Size <= 0 {
		errs = append(errs, errors.New("cache.size must be positive for the memory cache"))
	}
	if c.Cache.TTL < 0 {
		errs = append(errs, errors.New("cache.ttl must not be negative"))
	}
	if c.Workers < 1 {
		errs = append(errs, errors.New("workers must be at least 1"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}
