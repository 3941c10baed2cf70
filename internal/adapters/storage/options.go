package storage

import "github.com/okian/dietlens/pkg/logger"

// Option applies a configuration option to a storage backend.
type Option func(*settings)

type settings struct {
	connectionString string
	credentialsFile  string
	region           string
	dataDir          string
	maxBytes         int64
	log              logger.Logger
}

func newSettings(opts []Option) settings {
	s := settings{
		dataDir: DefaultDataDir,
		log:     logger.Get().Named("storage"),
	}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// WithConnectionString sets the Azure storage connection string.
func WithConnectionString(conn string) Option {
	return func(s *settings) {
		s.connectionString = conn
	}
}

// WithCredentialsFile sets the service account key used by the GCS backend.
// Empty means application default credentials.
func WithCredentialsFile(path string) Option {
	return func(s *settings) {
		s.credentialsFile = path
	}
}

// WithRegion sets the AWS region used by the S3 backend.
func WithRegion(region string) Option {
	return func(s *settings) {
		s.region = region
	}
}

// WithDataDir sets the root directory of the file backend.
func WithDataDir(dir string) Option {
	return func(s *settings) {
		if dir != "" {
			s.dataDir = dir
		}
	}
}

// WithMaxBytes caps the decoded dataset size. Zero disables the cap.
func WithMaxBytes(n int64) Option {
	return func(s *settings) {
		if n >= 0 {
			s.maxBytes = n
		}
	}
}

// WithLogger sets the logger used by the backend.
func WithLogger(l logger.Logger) Option {
	return func(s *settings) {
		if l != nil {
			s.log = l
		}
	}
}
