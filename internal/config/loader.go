package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/okian/dietlens/internal/adapters/storage"
)

// Environment variables consulted outside the DIETLENS_ prefix mapping.
const (
	EnvPrefix         = "DIETLENS_"
	EnvConfigFile     = "DIETLENS_CONFIG"
	EnvAzureWebJobs   = "AzureWebJobsStorage"
	DefaultDotEnvFile = ".env"
)

// LoadOption applies a configuration option to Load.
type LoadOption func(*loadOptions)

type loadOptions struct {
	envFiles []string
}

// WithEnvFiles replaces the .env files read before the environment.
// Missing files are skipped.
func WithEnvFiles(paths ...string) LoadOption {
	return func(o *loadOptions) {
		o.envFiles = paths
	}
}

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New(ctx))
//  2. file (YAML) if DIETLENS_CONFIG is set
//  3. env (prefix DIETLENS_), including values from .env
func Load(ctx context.Context, opts ...LoadOption) (*Config, error) {
	o := loadOptions{envFiles: []string{DefaultDotEnvFile}}
	for _, opt := range opts {
		opt(&o)
	}

	// .env never overrides variables already set in the process.
	for _, path := range o.envFiles {
		if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: env file %s: %w", ErrLoadConfig, path, err)
		}
	}

	base := New(ctx)
	k := koanf.New(".")

	if path := os.Getenv(EnvConfigFile); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrLoadConfig, path, err)
		}
	}

	// Map env keys like DIETLENS_SAMPLE_LIMIT -> sample_limit (flat keys).
	envProvider := env.Provider(EnvPrefix, ".", func(s string) string {
		s = strings.ToLower(s)
		s = strings.TrimPrefix(s, strings.ToLower(EnvPrefix))
		return s
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %w", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if cfg.StorageConnectionString == "" {
		cfg.StorageConnectionString = os.Getenv(EnvAzureWebJobs)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Addr) == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.SampleLimit <= 0:
		return fmt.Errorf("%w: sample_limit must be positive, got %d", ErrInvalidConfig, c.SampleLimit)
	case c.MaxDatasetBytes <= 0:
		return fmt.Errorf("%w: max_dataset_bytes must be positive, got %d", ErrInvalidConfig, c.MaxDatasetBytes)
	case c.Container == "" || c.Blob == "":
		return fmt.Errorf("%w: container and blob must not be empty", ErrInvalidConfig)
	}

	switch storage.Backend(strings.ToLower(c.StorageBackend)) {
	case storage.BackendAzure, storage.BackendGCS, storage.BackendS3, storage.BackendFile:
	default:
		return fmt.Errorf("%w: unknown storage_backend %q", ErrInvalidConfig, c.StorageBackend)
	}

	switch strings.ToLower(c.LogFormat) {
	case "", "text", "json":
	default:
		return fmt.Errorf("%w: unknown log_format %q", ErrInvalidConfig, c.LogFormat)
	}
	return nil
}
