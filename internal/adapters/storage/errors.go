package storage

import "errors"

// Sentinel kinds for storage adapter errors.
var (
	ErrUnknownBackend  = errors.New("unknown storage backend")
	ErrDatasetTooLarge = errors.New("dataset exceeds size limit")
)
