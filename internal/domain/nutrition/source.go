package nutrition

import (
	"context"
	"fmt"
)

// Location names a dataset object inside a storage container.
type Location struct {
	Container string
	Object    string
}

func (l Location) String() string {
	return fmt.Sprintf("%s/%s", l.Container, l.Object)
}

// Source fetches the raw bytes of a dataset.
//
// Implementations classify failures with ErrConfiguration when the source
// cannot be set up and ErrStorageUnavailable when the object cannot be read.
type Source interface {
	Fetch(ctx context.Context, loc Location) ([]byte, error)
}
