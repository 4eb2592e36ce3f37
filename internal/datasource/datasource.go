// Package datasource defines the contract between the pipeline and the
// places raw bytes come from. Concrete sources live in subpackages.
package datasource

import (
	"context"
	"io"
)

// Source is anything the pipeline can pull raw input from. Open may be called
// more than once per value (e.g. repeated runs); each call returns a fresh
// reader. Implementations must honor context cancellation.
type Source interface {
	Open(ctx context.Context) (io.ReadCloser, error)
}
