// Package storage contains storage-agnostic contracts and utilities: the
// Repository interface, a kind-keyed factory, the DDL bootstrap registry, and
// a generic batched loader. Concrete backends live in subpackages and register
// themselves at init time; importing storage/all enables every built-in kind.
package storage

import (
	"context"
	"fmt"
	"sync"
)

// Config carries everything a backend needs to open a Repository. Columns are
// the ordered destination columns; for schema-driven pipelines they come from
// schema.Columns() (declared fields plus the corrupt-record column when
// captured).
type Config struct {
	Kind    string
	DSN     string
	Table   string
	Columns []string
}

// Repository is the minimal sink contract the loader relies on. Backends
// implement CopyFrom with their most efficient bulk primitive (Postgres COPY,
// MSSQL bulk copy, multi-row INSERT elsewhere).
type Repository interface {
	// CopyFrom inserts rows aligned to 'columns' order and reports how many
	// rows the backend acknowledged.
	CopyFrom(ctx context.Context, columns []string, rows [][]any) (int64, error)
	// Exec runs an arbitrary statement, typically DDL.
	Exec(ctx context.Context, sql string) error
	// Close releases the underlying pool or connection.
	Close()
}

// Factory constructs a Repository for one storage kind.
type Factory func(ctx context.Context, cfg Config) (Repository, error)

var (
	factoryMu sync.RWMutex
	factories = map[string]Factory{}
)

// Register installs (or replaces) the factory for a storage kind. Backends
// call this from init().
func Register(kind string, fn Factory) {
	factoryMu.Lock()
	defer factoryMu.Unlock()
	factories[kind] = fn
}

// New opens a Repository for cfg.Kind. It fails when no backend with that
// kind has been registered (usually a missing storage/all import).
func New(ctx context.Context, cfg Config) (Repository, error) {
	factoryMu.RLock()
	fn, ok := factories[cfg.Kind]
	factoryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("no storage backend registered for kind=%q", cfg.Kind)
	}
	return fn(ctx, cfg)
}
