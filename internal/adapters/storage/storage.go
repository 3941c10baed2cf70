// Package storage provides the dataset sources behind the analysis
// service: Azure Blob Storage, Google Cloud Storage, Amazon S3 and a local
// directory.
package storage

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/gzip"

	"github.com/okian/dietlens/internal/domain/nutrition"
)

// Backend names a storage implementation.
type Backend string

const (
	BackendAzure Backend = "azure"
	BackendGCS   Backend = "gcs"
	BackendS3    Backend = "s3"
	BackendFile  Backend = "file"
)

// DefaultDataDir is the file backend root when none is configured.
const DefaultDataDir = "data"

// Open builds the Source for backend.
func Open(backend string, opts ...Option) (nutrition.Source, error) {
	switch Backend(strings.ToLower(strings.TrimSpace(backend))) {
	case BackendAzure, "":
		return NewAzure(opts...), nil
	case BackendGCS:
		return NewGCS(opts...), nil
	case BackendS3:
		return NewS3(opts...), nil
	case BackendFile:
		return NewFile(opts...), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, backend)
	}
}

var gzipMagic = []byte{0x1f, 0x8b}

// readDataset drains r, transparently decoding gzip, and enforces maxBytes
// on the decoded size.
func readDataset(op string, r io.Reader, maxBytes int64) ([]byte, error) {
	br := bufio.NewReader(r)
	var src io.Reader = br
	if head, err := br.Peek(len(gzipMagic)); err == nil && bytes.Equal(head, gzipMagic) {
		zr, err := gzip.NewReader(br)
		if err != nil {
			return nil, nutrition.Wrap(op, nutrition.ErrParseFailure, fmt.Errorf("gzip: %w", err))
		}
		defer zr.Close()
		src = zr
	}

	if maxBytes > 0 {
		src = io.LimitReader(src, maxBytes+1)
	}
	data, err := io.ReadAll(src)
	if err != nil {
		return nil, nutrition.Wrap(op, nutrition.ErrStorageUnavailable, fmt.Errorf("read dataset: %w", err))
	}
	if maxBytes > 0 && int64(len(data)) > maxBytes {
		return nil, nutrition.Wrap(op, nutrition.ErrParseFailure, fmt.Errorf("%w: %d bytes", ErrDatasetTooLarge, maxBytes))
	}
	return data, nil
}
