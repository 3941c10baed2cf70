// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New(ctx) to build a Config with defaults.
// - Load layers a YAML file, a .env file and environment variables on top.
// - External errors are wrapped with this package's sentinel errors.
package config

import (
	"context"

	"github.com/okian/dietlens/internal/adapters/storage"
	service "github.com/okian/dietlens/internal/app"
	"github.com/okian/dietlens/internal/domain/nutrition"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// StorageBackend selects where the dataset lives: azure, gcs, s3 or file.
	StorageBackend string `koanf:"storage_backend"`

	// StorageConnectionString is the Azure connection string. Falls back to
	// the AzureWebJobsStorage environment variable.
	StorageConnectionString string `koanf:"storage_connection_string"`

	// Container and Blob locate the dataset. For gcs and s3 the container is
	// the bucket; for file it is a directory under DataDir.
	Container string `koanf:"container"`
	Blob      string `koanf:"blob"`

	// GCSCredentialsFile is an optional service account key for gcs.
	GCSCredentialsFile string `koanf:"gcs_credentials_file"`

	// S3Region overrides the AWS region for s3.
	S3Region string `koanf:"s3_region"`

	// DataDir is the root of the file backend.
	DataDir string `koanf:"data_dir"`

	// SampleLimit caps the scatter sample.
	SampleLimit int `koanf:"sample_limit"`

	// MaxDatasetBytes caps the decoded dataset size.
	MaxDatasetBytes int64 `koanf:"max_dataset_bytes"`
}

// New creates a Config with defaults. Context is accepted first to satisfy
// the project-wide convention.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:        "info",
		LogFormat:       "text",
		Addr:            ":7071",
		StorageBackend:  string(storage.BackendAzure),
		Container:       service.DefaultContainer,
		Blob:            service.DefaultObject,
		DataDir:         storage.DefaultDataDir,
		SampleLimit:     nutrition.DefaultSampleLimit,
		MaxDatasetBytes: 256 << 20,
	}
}

// StorageOptions translates the storage settings into backend options.
func (c *Config) StorageOptions() []storage.Option {
	return []storage.Option{
		storage.WithConnectionString(c.StorageConnectionString),
		storage.WithCredentialsFile(c.GCSCredentialsFile),
		storage.WithRegion(c.S3Region),
		storage.WithDataDir(c.DataDir),
		storage.WithMaxBytes(c.MaxDatasetBytes),
	}
}
