// Package config loads service configuration from the environment and an
// optional config.env file. Environment variables take precedence.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Cache backends.
const (
	CacheMemory = "memory"
	CacheRedis  = "redis"
)

// Config groups the service configuration.
type Config struct {
	App   AppConfig
	DB    DBConfig
	JWT   JWTConfig
	Cache CacheConfig
	Redis RedisConfig
}

// AppConfig holds process-level settings.
type AppConfig struct {
	Env            string // development, staging, production
	Port           int
	LogLevel       string
	AuthEnabled    bool
	MigrateOnStart bool
}

// Development reports whether the service runs in development mode.
func (c AppConfig) Development() bool {
	return c.Env == "development"
}

// Addr returns the HTTP listen address.
func (c AppConfig) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// DBConfig holds PostgreSQL settings.
type DBConfig struct {
	URL      string
	MaxConns int32
	MinConns int32
}

// JWTConfig holds bearer token settings.
type JWTConfig struct {
	Secret string
	Issuer string
	TTL    time.Duration
}

// CacheConfig holds lookup cache settings.
type CacheConfig struct {
	Backend           string // memory or redis
	TTL               time.Duration
	InvalidateOnWrite bool
}

// RedisConfig holds Redis settings used by the redis cache backend.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// Load reads the configuration. paths are searched for config.env;
// when empty the working directory and ./config are used.
func Load(paths ...string) (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("env")
	if len(paths) == 0 {
		paths = []string{".", "./config"}
	}
	for _, p := range paths {
		v.AddConfigPath(p)
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	setDefaults(v)

	cfg := &Config{
		App: AppConfig{
			Env:            v.GetString("APP_ENV"),
			Port:           v.GetInt("APP_PORT"),
			LogLevel:       v.GetString("LOG_LEVEL"),
			AuthEnabled:    v.GetBool("AUTH_ENABLED"),
			MigrateOnStart: v.GetBool("MIGRATE_ON_START"),
		},
		DB: DBConfig{
			URL:      v.GetString("DATABASE_URL"),
			MaxConns: v.GetInt32("DB_MAX_CONNS"),
			MinConns: v.GetInt32("DB_MIN_CONNS"),
		},
		JWT: JWTConfig{
			Secret: v.GetString("JWT_SECRET"),
			Issuer: v.GetString("JWT_ISSUER"),
			TTL:    v.GetDuration("JWT_TTL"),
		},
		Cache: CacheConfig{
			Backend:           strings.ToLower(v.GetString("CACHE_BACKEND")),
			TTL:               v.GetDuration("CACHE_TTL"),
			InvalidateOnWrite: v.GetBool("CACHE_INVALIDATE_ON_WRITE"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("REDIS_ADDR"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	if c.DB.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.App.AuthEnabled && c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET is required when AUTH_ENABLED is set")
	}
	switch c.Cache.Backend {
	case CacheMemory:
	case CacheRedis:
		if c.Redis.Addr == "" {
			return fmt.Errorf("REDIS_ADDR is required for the redis cache backend")
		}
	default:
		return fmt.Errorf("unknown CACHE_BACKEND %q", c.Cache.Backend)
	}
	if c.DB.MinConns > c.DB.MaxConns {
		return fmt.Errorf("DB_MIN_CONNS (%d) exceeds DB_MAX_CONNS (%d)", c.DB.MinConns, c.DB.MaxConns)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("APP_PORT", 8080)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("AUTH_ENABLED", true)
	v.SetDefault("MIGRATE_ON_START", true)

	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 2)

	v.SetDefault("JWT_ISSUER", "sysdict")
	v.SetDefault("JWT_TTL", 15*time.Minute)

	v.SetDefault("CACHE_BACKEND", CacheMemory)
	v.SetDefault("CACHE_TTL", 10*time.Minute)
	v.SetDefault("CACHE_INVALIDATE_ON_WRITE", true)

	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
}
