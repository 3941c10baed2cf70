package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/okian/dietlens/internal/domain/nutrition"
	"github.com/okian/dietlens/pkg/logger"
)

// S3Source reads datasets from Amazon S3. The container is the bucket name.
type S3Source struct {
	cfg settings

	mu         sync.Mutex
	downloader *manager.Downloader
}

// NewS3 creates an S3Source with configuration options.
func NewS3(opts ...Option) *S3Source {
	return &S3Source{cfg: newSettings(opts)}
}

func (s *S3Source) getDownloader(ctx context.Context) (*manager.Downloader, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.downloader != nil {
		return s.downloader, nil
	}

	var loadOpts []func(*awsconfig.LoadOptions) error
	if s.cfg.region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(s.cfg.region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, err
	}
	s.downloader = manager.NewDownloader(s3.NewFromConfig(cfg))
	return s.downloader, nil
}

// Fetch downloads loc.Object from bucket loc.Container.
func (s *S3Source) Fetch(ctx context.Context, loc nutrition.Location) ([]byte, error) {
	const op = "storage.s3.fetch"

	downloader, err := s.getDownloader(ctx)
	if err != nil {
		return nil, nutrition.Wrap(op, nutrition.ErrConfiguration, fmt.Errorf("aws config: %w", err))
	}

	buf := manager.NewWriteAtBuffer([]byte{})
	_, err = downloader.Download(ctx, buf, &s3.GetObjectInput{
		Bucket: aws.String(loc.Container),
		Key:    aws.String(loc.Object),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		var noBucket *types.NoSuchBucket
		if errors.As(err, &noKey) || errors.As(err, &noBucket) {
			s.cfg.log.Warn(ctx, "dataset object missing", logger.String("location", loc.String()))
			return nil, nutrition.Wrap(op, nutrition.ErrStorageUnavailable, fmt.Errorf("object %s not found: %w", loc, err))
		}
		return nil, nutrition.Wrap(op, nutrition.ErrStorageUnavailable, fmt.Errorf("download %s: %w", loc, err))
	}

	return readDataset(op, bytes.NewReader(buf.Bytes()), s.cfg.maxBytes)
}
