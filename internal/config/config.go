// Package config defines the canonical, JSON-serializable configuration
// model for an ingestion run. It is intentionally small, explicit, and
// dependency-free so that pipeline specs can be loaded from disk (or other
// sources) and passed through the program without additional glue code.
//
// Design goals:
//
//  1. Stability: changes to this package should be additive and backwards-
//     compatible whenever possible.
//  2. Clarity: field names in Go mirror the JSON structure used in pipeline
//     files.
//  3. Minimalism: no third-party config libraries; decoding is performed by
//     the standard library, with a light Options helper for typed access.
//
// Example (trimmed):
//
//	{
//	  "job":       "cities",
//	  "source":    { "kind": "file", "file": { "path": "cities.csv" } },
//	  "tokenizer": { "kind": "csv", "options": { "has_header": true } },
//	  "schema":    { "fields": [ { "name": "city", "type": "string", "nullable": true } ] },
//	  "mode":      "permissive",
//	  "storage":   { "kind": "sqlite", "db": { "dsn": "cities.db", "table": "cities" } }
//	}
package config

import (
	"encoding/json"

	"ingest/internal/schema"
)

// Pipeline describes one full ingestion run. It is the top-level object
// decoded from a pipeline file.
type Pipeline struct {
	// Job names the run; it labels logs and metrics.
	Job string `json:"job"`

	// Source describes where input data comes from (e.g., local file).
	Source Source `json:"source"`

	// Tokenizer configures how raw bytes become raw records (tokens plus the
	// verbatim line).
	Tokenizer Tokenizer `json:"tokenizer"`

	// Schema declares the expected record shape. It is validated before any
	// record is processed.
	Schema schema.Schema `json:"schema"`

	// Mode selects the malformed-record strategy:
	// "permissive" (default), "dropmalformed", or "failfast".
	Mode string `json:"mode"`

	// Storage describes where materialized rows are written.
	Storage Storage `json:"storage"`

	Runtime RuntimeConfig `json:"runtime"`
}

// RuntimeConfig controls concurrency, batching, and channel buffer sizes.
type RuntimeConfig struct {
	// ClassifierWorkers is the number of classify/policy partitions. The
	// default of 1 preserves strict file order, which FailFast's
	// first-malformed-record report depends on; higher values give partition
	// semantics with aggregated cancellation.
	ClassifierWorkers int `json:"classifier_workers"`
	LoaderWorkers     int `json:"loader_workers"`
	BatchSize         int `json:"batch_size"`
	ChannelBuffer     int `json:"channel_buffer"`
}

// Source identifies the data source. Additional kinds can be added over time.
type Source struct {
	// Kind selects the source implementation. Current value: "file".
	Kind string `json:"kind"`

	// File carries options for the "file" source kind.
	File SourceFile `json:"file"`
}

// SourceFile holds configuration for the "file" source kind.
type SourceFile struct {
	// Path is the local filesystem path to the input file.
	Path string `json:"path"`
}

// Tokenizer selects how the raw source is split into records and tokens.
type Tokenizer struct {
	// Kind selects the tokenizer implementation. Current value: "csv".
	Kind string `json:"kind"`

	// Options is a free-form map interpreted by the tokenizer. For CSV,
	// typical keys are: has_header (bool), comma (string), trim_space
	// (bool), lazy_quotes (bool), encoding (string).
	Options Options `json:"options"`
}

// Storage selects the sink used to persist materialized rows.
type Storage struct {
	// Kind selects the storage implementation:
	// "postgres", "sqlite", "mysql", or "mssql".
	Kind string `json:"kind"`

	DB DBConfig `json:"db"`
}

// DBConfig configures the database sink. Destination columns are derived
// from the declared schema (plus the corrupt-record column when captured),
// so they are not repeated here.
type DBConfig struct {
	// DSN is the backend-specific connection string.
	DSN string `json:"dsn"`

	// Table is the destination table name (fully qualified where the backend
	// supports it, e.g. "public.cities").
	Table string `json:"table"`

	// AutoCreateTable creates the destination table from the schema before
	// loading.
	AutoCreateTable bool `json:"auto_create_table"`
}

// Options is a small helper to fetch typed values from arbitrary JSON maps
// without introducing third-party configuration libraries. It performs only
// minimal type coercion and returns the provided default when a key is
// absent or of an unexpected type.
type Options map[string]any

// String returns the string value for key or def when missing or mistyped.
func (o Options) String(key, def string) string {
	if v, ok := o[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return def
}

// Bool returns the bool value for key or def when missing or mistyped.
func (o Options) Bool(key string, def bool) bool {
	if v, ok := o[key]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return def
}

// Int returns the int value for key or def. JSON numbers decode as float64,
// so float64 is accepted and cast.
func (o Options) Int(key string, def int) int {
	if v, ok := o[key]; ok {
		switch n := v.(type) {
		case float64:
			return int(n)
		case int:
			return n
		}
	}
	return def
}

// Rune returns the first rune of a string value for key, or def when missing
// or empty. Useful for single-character settings such as the delimiter.
func (o Options) Rune(key string, def rune) rune {
	if v, ok := o[key]; ok {
		if s, ok := v.(string); ok && len(s) > 0 {
			return []rune(s)[0]
		}
	}
	return def
}

// UnmarshalJSON makes a missing or null "options" object decode to a
// non-nil, empty Options map, removing nil checks at call sites.
func (o *Options) UnmarshalJSON(b []byte) error {
	var tmp map[string]any
	if len(b) == 0 || string(b) == "null" {
		*o = Options{}
		return nil
	}
	if err := json.Unmarshal(b, &tmp); err != nil {
		return err
	}
	*o = Options(tmp)
	return nil
}
