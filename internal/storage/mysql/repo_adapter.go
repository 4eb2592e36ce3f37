// This adapter wires the MySQL backend into the storage-agnostic factory and
// registers its DDL bootstrapper.
package mysql

import (
	"context"
	"fmt"

	"ingest/internal/config"
	"ingest/internal/storage"
)

// newRepository is a test hook that points to NewRepository by default.
// Tests may replace this variable to avoid real DB connections.
var newRepository = NewRepository

type wrappedRepo struct {
	*Repository
	closeFn func()
}

var _ storage.Repository = (*wrappedRepo)(nil)

func (w *wrappedRepo) Close() {
	if w.closeFn != nil {
		w.closeFn()
	}
}

func init() {
	storage.Register("mysql", func(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
		r, closeFn, err := newRepository(ctx, Config{
			DSN:     cfg.DSN,
			Table:   cfg.Table,
			Columns: cfg.Columns,
		})
		if err != nil {
			return nil, err
		}
		return &wrappedRepo{Repository: r, closeFn: closeFn}, nil
	})

	storage.RegisterDDL("mysql",
		func(ctx context.Context, repo storage.Repository, spec config.Pipeline) error {
			if err := repo.Exec(ctx, createTableSQL(spec.Storage.DB.Table, &spec.Schema)); err != nil {
				return fmt.Errorf("apply DDL: %w", err)
			}
			return nil
		})
}
