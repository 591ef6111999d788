// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package config handles application-wide settings and environment parsing.

It leverages 'caarlos0/env' to map OS environment variables into a strongly-typed
Go struct, providing early validation and default values.

Usage:

	cfg, err := config.Load()
	if err != nil {
	    log.Fatal(err)
	}

Architecture:

  - Immutability: Once loaded, configuration is read-only.
  - DI-Friendly: Passed to core components (KV store, Blob store) via constructors.
  - Zero Hidden State: No global variables are used to store config.

Backend-dependent requirements (e.g. DATABASE_URL when KV_BACKEND=postgres) are
checked after parsing because env tags cannot express them.
*/
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// # Backend Identifiers

const (
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendBolt     = "bbolt"
	BackendRedis    = "redis"
)

// # Configuration Schema

// Config holds all runtime configuration for the Manhwaty API server.
type Config struct {

	// Server settings
	ServerPort  string `env:"SERVER_PORT"  envDefault:"8080"`
	Environment string `env:"ENVIRONMENT"  envDefault:"development"`
	Debug       bool   `env:"DEBUG"        envDefault:"false"`

	// Record metadata (synchronous key-value primitive)
	KVBackend   string `env:"KV_BACKEND"  envDefault:"sqlite"`
	SQLitePath  string `env:"SQLITE_PATH" envDefault:"./data/manhwaty.db"`
	DatabaseURL string `env:"DATABASE_URL"`

	// Image assets (asynchronous blob store)
	BlobBackend   string `env:"BLOB_BACKEND"   envDefault:"bbolt"`
	BoltPath      string `env:"BOLT_PATH"      envDefault:"./data/images.db"`
	RedisURL      string `env:"REDIS_URL"`
	BlobNamespace string `env:"BLOB_NAMESPACE" envDefault:"manhwaty_images"`

	// Display references for blob assets
	AssetTokenSecret string        `env:"ASSET_TOKEN_SECRET,required"`
	AssetTokenTTL    time.Duration `env:"ASSET_TOKEN_TTL" envDefault:"5m"`

	// Remote image fetching. Zero keeps the transport default (no deadline).
	FetchTimeout time.Duration `env:"FETCH_TIMEOUT" envDefault:"0s"`

	// MaxUploadBytes bounds multipart bodies (cover uploads, backup restores).
	MaxUploadBytes int64 `env:"MAX_UPLOAD_BYTES" envDefault:"20971520"`

	// Cross-Origin Resource Sharing
	ExtraOrigins string `env:"EXTRA_ORIGINS"`
}

// # Configuration Loading

// Load parses environment variables into a [Config] struct.
func Load() (*Config, error) {

	// Initialize an empty config struct
	cfg := &Config{}

	// Use the 'env' package to map environment variables to struct fields.
	// This will fail if any field marked with 'required' is missing.
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse environment variables: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the cross-field requirements of the selected backends.
func (c *Config) Validate() error {
	switch c.KVBackend {
	case BackendMemory:
	case BackendSQLite:
		if strings.TrimSpace(c.SQLitePath) == "" {
			return fmt.Errorf("config: SQLITE_PATH is required when KV_BACKEND=%s", BackendSQLite)
		}
	case BackendPostgres:
		if strings.TrimSpace(c.DatabaseURL) == "" {
			return fmt.Errorf("config: DATABASE_URL is required when KV_BACKEND=%s", BackendPostgres)
		}
	default:
		return fmt.Errorf("config: unknown KV_BACKEND %q", c.KVBackend)
	}

	switch c.BlobBackend {
	case BackendMemory:
	case BackendBolt:
		if strings.TrimSpace(c.BoltPath) == "" {
			return fmt.Errorf("config: BOLT_PATH is required when BLOB_BACKEND=%s", BackendBolt)
		}
	case BackendRedis:
		if strings.TrimSpace(c.RedisURL) == "" {
			return fmt.Errorf("config: REDIS_URL is required when BLOB_BACKEND=%s", BackendRedis)
		}
	default:
		return fmt.Errorf("config: unknown BLOB_BACKEND %q", c.BlobBackend)
	}

	if strings.TrimSpace(c.BlobNamespace) == "" {
		return fmt.Errorf("config: BLOB_NAMESPACE must not be empty")
	}

	if c.AssetTokenTTL <= 0 {
		return fmt.Errorf("config: ASSET_TOKEN_TTL must be positive")
	}

	return nil
}

// IsDevelopment reports whether the server is running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction reports whether the server is running in production mode.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// AllowedOrigins returns the trimmed list of EXTRA_ORIGINS.
func (c *Config) AllowedOrigins() []string {
	var origins []string
	for _, origin := range strings.Split(c.ExtraOrigins, ",") {
		if clean := strings.TrimSpace(origin); clean != "" {
			origins = append(origins, clean)
		}
	}
	return origins
}
