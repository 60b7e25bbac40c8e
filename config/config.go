// Package config reads the storefront settings from the environment.
// A .env file in the working directory is loaded first when present;
// variables already set in the environment win over it.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Drivers accepted in STORE_DRIVER.
const (
	DriverMemory   = "memory"
	DriverRedis    = "redis"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
	DriverMongo    = "mongo"
)

// Config holds the process settings read from the environment.
type Config struct {
	Port         string
	BackendURL   string
	StoreDriver  string
	StoreDSN     string
	RedisURL     string
	CookieSecure bool
	ClientQuota  int
	Lifetime     time.Duration
	LogEnv       string
}

// Load reads the configuration. files are extra .env files to load; with
// none, ".env" is tried.
func Load(files ...string) (*Config, error) {
	// a missing .env is fine, the environment alone may be enough
	_ = godotenv.Load(files...)

	cfg := &Config{
		Port:        getEnv("PORT", "3000"),
		BackendURL:  getEnv("BACKEND_URL", "http://localhost:8080/api"),
		StoreDriver: strings.ToLower(getEnv("STORE_DRIVER", DriverMemory)),
		StoreDSN:    getEnv("STORE_DSN", ""),
		RedisURL:    getEnv("REDIS_URL", ""),
		LogEnv:      getEnv("LOG_ENV", "production"),
	}

	var err error
	if cfg.CookieSecure, err = strconv.ParseBool(getEnv("COOKIE_SECURE", "false")); err != nil {
		return nil, fmt.Errorf("COOKIE_SECURE: %w", err)
	}
	if cfg.ClientQuota, err = strconv.Atoi(getEnv("CLIENT_QUOTA", strconv.Itoa(5<<20))); err != nil {
		return nil, fmt.Errorf("CLIENT_QUOTA: %w", err)
	}
	if cfg.Lifetime, err = time.ParseDuration(getEnv("CLIENT_LIFETIME", "720h")); err != nil {
		return nil, fmt.Errorf("CLIENT_LIFETIME: %w", err)
	}

	return cfg, cfg.Validate()
}

// Validate checks the combination of settings.
func (c *Config) Validate() error {
	switch c.StoreDriver {
	case DriverMemory:
	case DriverRedis:
		if c.RedisURL == "" && c.StoreDSN == "" {
			return fmt.Errorf("store driver %q needs REDIS_URL", c.StoreDriver)
		}
	case DriverSQLite, DriverPostgres, DriverMySQL, DriverMongo:
		if c.StoreDSN == "" {
			return fmt.Errorf("store driver %q needs STORE_DSN", c.StoreDriver)
		}
	default:
		return fmt.Errorf("unknown store driver %q", c.StoreDriver)
	}
	if c.ClientQuota < 0 {
		return fmt.Errorf("CLIENT_QUOTA must not be negative")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}
