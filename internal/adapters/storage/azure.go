package storage

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"

	"github.com/okian/dietlens/internal/domain/nutrition"
	"github.com/okian/dietlens/pkg/logger"
)

var errMissingConnection = errors.New("AzureWebJobsStorage connection string is not configured")

// AzureSource reads datasets from Azure Blob Storage.
//
// The client is built on first use so a missing or malformed connection
// string fails requests, not startup.
type AzureSource struct {
	cfg settings

	once      sync.Once
	client    *azblob.Client
	clientErr error
}

// NewAzure creates an AzureSource with configuration options.
func NewAzure(opts ...Option) *AzureSource {
	return &AzureSource{cfg: newSettings(opts)}
}

func (s *AzureSource) getClient() (*azblob.Client, error) {
	s.once.Do(func() {
		if s.cfg.connectionString == "" {
			s.clientErr = errMissingConnection
			return
		}
		s.client, s.clientErr = azblob.NewClientFromConnectionString(s.cfg.connectionString, nil)
	})
	return s.client, s.clientErr
}

// Fetch downloads loc.Object from container loc.Container.
func (s *AzureSource) Fetch(ctx context.Context, loc nutrition.Location) ([]byte, error) {
	const op = "storage.azure.fetch"

	client, err := s.getClient()
	if err != nil {
		return nil, nutrition.Wrap(op, nutrition.ErrConfiguration, err)
	}

	resp, err := client.DownloadStream(ctx, loc.Container, loc.Object, nil)
	if err != nil {
		if bloberror.HasCode(err, bloberror.BlobNotFound, bloberror.ContainerNotFound) {
			s.cfg.log.Warn(ctx, "dataset blob missing", logger.String("location", loc.String()))
			return nil, nutrition.Wrap(op, nutrition.ErrStorageUnavailable, fmt.Errorf("blob %s not found: %w", loc, err))
		}
		return nil, nutrition.Wrap(op, nutrition.ErrStorageUnavailable, fmt.Errorf("download %s: %w", loc, err))
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			s.cfg.log.Debug(ctx, "close blob body", logger.Error(cerr))
		}
	}()

	return readDataset(op, resp.Body, s.cfg.maxBytes)
}
