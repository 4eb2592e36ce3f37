// Package file implements a local filesystem-backed record source.
package file

import (
	"context"
	"fmt"
	"io"
	"os"
)

// Local reads input from a single file on local disk. It satisfies
// datasource.Source.
type Local struct{ path string }

// NewLocal returns a Local bound to path. The value holds no open descriptor;
// each Open call opens the file fresh, so one Local can serve repeated runs.
func NewLocal(path string) *Local { return &Local{path: path} }

// Path returns the configured filesystem path (used for logging).
func (l *Local) Path() string { return l.path }

// Size returns the current byte size of the file, or -1 when it cannot be
// determined. Callers use it only as a progress hint.
func (l *Local) Size() int64 {
	fi, err := os.Stat(l.path)
	if err != nil {
		return -1
	}
	return fi.Size()
}

// Open opens the configured path for reading. A context that is already
// canceled short-circuits before any filesystem access. Filesystem errors are
// wrapped with the path but stay inspectable via errors.Is (e.g.
// os.ErrNotExist).
func (l *Local) Open(ctx context.Context) (io.ReadCloser, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	f, err := os.Open(l.path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", l.path, err)
	}
	return f, nil
}
