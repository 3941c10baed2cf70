package storage

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/okian/dietlens/internal/domain/nutrition"
	"github.com/okian/dietlens/pkg/logger"
)

// GCSSource reads datasets from Google Cloud Storage. The container is the
// bucket name.
type GCSSource struct {
	cfg settings

	mu     sync.Mutex
	client *storage.Client
}

// NewGCS creates a GCSSource with configuration options.
func NewGCS(opts ...Option) *GCSSource {
	return &GCSSource{cfg: newSettings(opts)}
}

func (s *GCSSource) getClient(ctx context.Context) (*storage.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client != nil {
		return s.client, nil
	}

	var opts []option.ClientOption
	if s.cfg.credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(s.cfg.credentialsFile))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, err
	}
	s.client = client
	return client, nil
}

// Fetch downloads loc.Object from bucket loc.Container.
func (s *GCSSource) Fetch(ctx context.Context, loc nutrition.Location) ([]byte, error) {
	const op = "storage.gcs.fetch"

	client, err := s.getClient(ctx)
	if err != nil {
		return nil, nutrition.Wrap(op, nutrition.ErrConfiguration, fmt.Errorf("gcs client: %w", err))
	}

	r, err := client.Bucket(loc.Container).Object(loc.Object).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) || errors.Is(err, storage.ErrBucketNotExist) {
			s.cfg.log.Warn(ctx, "dataset object missing", logger.String("location", loc.String()))
			return nil, nutrition.Wrap(op, nutrition.ErrStorageUnavailable, fmt.Errorf("object %s not found: %w", loc, err))
		}
		return nil, nutrition.Wrap(op, nutrition.ErrStorageUnavailable, fmt.Errorf("open %s: %w", loc, err))
	}
	defer func() {
		if cerr := r.Close(); cerr != nil {
			s.cfg.log.Debug(ctx, "close object reader", logger.Error(cerr))
		}
	}()

	return readDataset(op, r, s.cfg.maxBytes)
}

// Close releases the underlying client.
func (s *GCSSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client == nil {
		return nil
	}
	err := s.client.Close()
	s.client = nil
	return err
}
