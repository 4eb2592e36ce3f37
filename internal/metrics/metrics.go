// Package metrics provides a small, backend-agnostic abstraction for recording
// operational metrics from an ingestion run.
//
// The package is intentionally minimal and opinionated:
//
//   - It exposes a narrow interface (Backend) focused on counters and timing
//     data.
//   - It provides a global, pluggable backend that defaults to a no-op
//     implementation, so metrics are always safe to call even when no real
//     backend is configured.
//   - It mirrors the storage abstraction pattern used elsewhere in the project
//     (storage.Repository), so the rest of the codebase depends only on this
//     interface while concrete metric systems stay isolated in subpackages.
//
// The primary use case is instrumentation of the pipeline stages (reader,
// classifier, loader) without coupling the core logic to a specific metrics
// system such as Prometheus.
package metrics

import "time"

// Labels are string key/value pairs attached to a metric.
type Labels map[string]string

// Record kinds used with RecordCount. They mirror the run summary fields.
const (
	KindRecords   = "records"   // raw records handed to the classifier
	KindClean     = "clean"     // records that coerced cleanly
	KindMalformed = "malformed" // records with a field-count or coercion failure
	KindDropped   = "dropped"   // malformed records suppressed by policy
	KindEmitted   = "emitted"   // rows handed to the loader
	KindInserted  = "inserted"  // rows acknowledged by the storage backend
	KindTokenize  = "tokenize_errors"
	KindAborts    = "aborts"
)

// Backend is the minimal interface for metrics backends.
// It is intentionally generic so we can plug in Prometheus, StatsD, etc.
type Backend interface {
	// IncCounter increments a counter by delta.
	IncCounter(name string, delta float64, labels Labels)
	// ObserveHistogram records a value in a latency/duration style metric.
	ObserveHistogram(name string, value float64, labels Labels)
	// Flush pushes or flushes metrics, if the backend needs it (e.g. Pushgateway).
	Flush() error
}

// nopBackend is used by default so metrics are optional.
type nopBackend struct{}

func (nopBackend) IncCounter(name string, delta float64, labels Labels)       {}
func (nopBackend) ObserveHistogram(name string, value float64, labels Labels) {}
func (nopBackend) Flush() error                                               { return nil }

var backend Backend = nopBackend{}

// SetBackend installs a concrete backend. Passing nil keeps the existing backend.
func SetBackend(b Backend) {
	if b == nil {
		return
	}
	backend = b
}

// Flush delegates to the current backend.
func Flush() error {
	return backend.Flush()
}

// RecordStage is a convenience for the common pattern:
// measure latency + success/failure per pipeline stage.
func RecordStage(job, stage string, err error, d time.Duration) {
	status := "success"
	if err != nil {
		status = "failure"
	}

	lbls := Labels{
		"job":    job,
		"stage":  stage,
		"status": status,
	}

	backend.IncCounter("ingest_stage_total", 1, lbls)
	backend.ObserveHistogram("ingest_stage_duration_seconds", d.Seconds(), lbls)
}

// RecordCount increments a record-level counter for the given job and kind
// (one of the Kind* constants).
func RecordCount(job, kind string, delta int64) {
	if delta <= 0 {
		return
	}
	backend.IncCounter("ingest_records_total", float64(delta), Labels{
		"job":  job,
		"kind": kind,
	})
}

// RecordBatches increments a batch-level counter for the given job.
func RecordBatches(job string, delta int64) {
	if delta <= 0 {
		return
	}
	backend.IncCounter("ingest_batches_total", float64(delta), Labels{
		"job": job,
	})
}
