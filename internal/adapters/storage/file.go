package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/okian/dietlens/internal/domain/nutrition"
	"github.com/okian/dietlens/pkg/logger"
)

// FileSource reads datasets from <dataDir>/<container>/<object>.
type FileSource struct {
	cfg settings
}

// NewFile creates a FileSource with configuration options.
func NewFile(opts ...Option) *FileSource {
	return &FileSource{cfg: newSettings(opts)}
}

// Path returns the file backing loc.
func (s *FileSource) Path(loc nutrition.Location) string {
	return filepath.Join(s.cfg.dataDir, filepath.Clean("/"+loc.Container), filepath.Clean("/"+loc.Object))
}

// Fetch reads the file backing loc.
func (s *FileSource) Fetch(ctx context.Context, loc nutrition.Location) ([]byte, error) {
	const op = "storage.file.fetch"
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path := s.Path(loc)
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			s.cfg.log.Warn(ctx, "dataset file missing", logger.String("path", path))
			return nil, nutrition.Wrap(op, nutrition.ErrStorageUnavailable, fmt.Errorf("blob %s not found: %w", loc, err))
		}
		return nil, nutrition.Wrap(op, nutrition.ErrStorageUnavailable, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			s.cfg.log.Debug(ctx, "close dataset file", logger.Error(cerr))
		}
	}()

	return readDataset(op, f, s.cfg.maxBytes)
}
