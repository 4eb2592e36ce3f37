// Package all wires all built-in storage backends into the storage factory.
//
// This package exists purely for side effects: importing it (even as a blank
// import) causes the init functions of each concrete storage backend to run,
// which in turn register their factories and DDL bootstrappers with the
// storage package.
//
// In other words, importing this package makes the following storage kinds
// available at runtime:
//
//   - "postgres" (ingest/internal/storage/postgres)
//   - "mysql"    (ingest/internal/storage/mysql)
//   - "mssql"    (ingest/internal/storage/mssql)
//   - "sqlite"   (ingest/internal/storage/sqlite)
//
// Typical usage (in cmd/ingest/main.go or a similar wiring layer):
//
//	import _ "ingest/internal/storage/all" // enable all built-in backends
//
//	repo, err := storage.New(ctx, storage.Config{
//	    Kind:    spec.Storage.Kind,
//	    DSN:     spec.Storage.DB.DSN,
//	    Table:   spec.Storage.DB.Table,
//	    Columns: spec.Schema.Columns(),
//	})
//
// Note: if you want a binary that supports only a subset of backends, define
// an alternative wiring package that imports only the required ones.
package all

import (
	_ "ingest/internal/storage/mssql"
	_ "ingest/internal/storage/mysql"
	_ "ingest/internal/storage/postgres"
	_ "ingest/internal/storage/sqlite"
)
