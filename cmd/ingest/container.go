// This file wires the ingestion pipeline end-to-end: tokenize → classify →
// apply the malformed-record strategy → batched load into the configured
// storage backend, in a fully streaming fashion. The CLI layer stays thin: it
// depends only on storage-agnostic interfaces and never imports database
// drivers or backend-specific packages directly.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/zeebo/xxh3"
	"golang.org/x/sync/errgroup"

	"ingest/internal/classify"
	"ingest/internal/config"
	"ingest/internal/datasource"
	"ingest/internal/datasource/file"
	"ingest/internal/metrics"
	csvparser "ingest/internal/parser/csv"
	"ingest/internal/policy"
	"ingest/internal/row"
	"ingest/internal/storage"
)

const firstErrSamples = 3

// counters holds cross-goroutine statistics for the streaming pipeline.
//
// All fields are updated atomically.
type counters struct {
	records        atomic.Int64 // raw records handed to the classifier
	clean          atomic.Int64 // records that coerced cleanly
	malformed      atomic.Int64 // records with a field-count or coercion failure
	dropped        atomic.Int64 // malformed records suppressed by policy
	emitted        atomic.Int64 // rows handed to the loader
	inserted       atomic.Int64 // rows acknowledged by storage
	batches        atomic.Int64 // batches flushed
	tokenizeErrors atomic.Int64 // lines the tokenizer could not split
}

// runtimeConfig contains the resolved concurrency and buffering configuration
// for a streaming run. Values are derived from the pipeline spec with optional
// environment variable overrides (12-factor style).
type runtimeConfig struct {
	classifiers   int
	loaderWorkers int
	batchSize     int
	bufferSize    int
}

type Repository = storage.Repository

// Function variables used to introduce test seams.
// In production these point to real implementations; tests can override them.
var (
	newRepositoryFn = func(ctx context.Context, cfg storage.Config) (Repository, error) {
		return storage.New(ctx, cfg)
	}

	openSourceFn = openSource

	streamRecordsFn = csvparser.StreamRawRecords
)

// runStreamed executes a full tokenize → classify → policy → storage run in a
// streaming, batched, and concurrent fashion.
//
// Stats reported:
//
//   - records:         raw records handed to the classifier
//   - tokenize_errors: lines the tokenizer could not split
//   - clean:           records that coerced cleanly against the schema
//   - malformed:       records with a field-count or coercion failure
//   - dropped:         malformed records suppressed (dropmalformed mode)
//   - emitted:         rows handed to the loader (clean + permissive corrupt)
//   - inserted:        rows acknowledged by the storage backend
//   - batches:         number of batches flushed
//
// Concurrency model:
//
//	Reader (tokenizer; 1)
//	     → N classifier/policy partitions (each owns a Policy instance)
//	     → Loader(s) (bulk insert in batches)
//
// Back-pressure is enforced via bounded channels so that peak memory stays
// around O(batchSize + bufferSize).
//
// Cancellation runs on two levels. A fatal loader error cancels everything.
// A failfast abort cancels only the read side (reader and classifiers), so
// rows emitted before the first malformed record still reach storage before
// the abort error is returned. With classifiers=1 (the default) record order
// is exactly file order and the reported abort is the first malformed record
// in the file; higher worker counts trade that for throughput.
func runStreamed(ctx context.Context, spec config.Pipeline) (runErr error) {
	if err := spec.Schema.Validate(); err != nil {
		return fmt.Errorf("schema: %w", err)
	}
	mode, err := policy.ParseMode(spec.Mode)
	if err != nil {
		return err
	}

	rt := newRuntimeConfig(spec)
	runID := uuid.NewString()
	columns := spec.Schema.Columns()
	start := time.Now()
	defer func() {
		metrics.RecordStage(spec.Job, "run", runErr, time.Since(start))
	}()

	log.Printf(
		"run %s: mode=%s classifiers=%d loaders=%d batch=%d buffer=%d columns=%d",
		runID, mode, rt.classifiers, rt.loaderWorkers, rt.batchSize, rt.bufferSize, len(columns),
	)

	repo, err := initRepository(ctx, spec)
	if err != nil {
		return err
	}
	defer repo.Close()

	if spec.Storage.DB.AutoCreateTable {
		if err := storage.EnsureTableFromPipeline(ctx, spec, repo); err != nil {
			return fmt.Errorf("apply DDL: %w", err)
		}
	}

	// Abstract the bulk insert behind the repository for testability.
	copyFn := func(ctx context.Context, columns []string, rows [][]any) (int64, error) {
		return repo.CopyFrom(ctx, columns, rows)
	}

	// Cancellation: any fatal loader error cancels upstream work.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// readCtx stops the reader and classifiers on a failfast abort while the
	// loader keeps flushing rows that were emitted before the abort.
	readCtx, readCancel := context.WithCancel(ctx)
	defer readCancel()

	var stats counters
	tokenizeAgg := newErrAgg(firstErrSamples)
	malformedAgg := newErrAgg(firstErrSamples)

	var (
		abortMu  sync.Mutex
		abortErr error
	)
	recordAbort := func(err error) {
		abortMu.Lock()
		if abortErr == nil {
			abortErr = err
		}
		abortMu.Unlock()
		readCancel()
	}

	rawCh := make(chan classify.RawRecord, rt.bufferSize)
	rowCh := make(chan *row.Row, rt.bufferSize)

	// 1) Reader: source → raw records.
	readers, readersCtx := errgroup.WithContext(readCtx)
	readers.Go(func() error {
		onTokenizeErr := func(line int, err error) {
			if err == nil {
				return
			}
			stats.tokenizeErrors.Add(1)
			tokenizeAgg.add(fmt.Sprintf("line=%d: %v", line, err))
		}

		src, err := openSourceFn(readersCtx, spec)
		if err != nil {
			return fmt.Errorf("source open: %w", err)
		}
		return streamRecordsFn(readersCtx, src, spec.Tokenizer.Options, rawCh, onTokenizeErr)
	})

	readerDone := make(chan error, 1)
	go func() {
		readerDone <- readers.Wait()
		close(rawCh)
	}()

	// 2) Classifier/policy partitions. Each partition owns its Classifier and
	// Policy; the policies share the run-level strategy and, for failfast, the
	// read-side cancellation.
	var wgClassifiers sync.WaitGroup
	wgClassifiers.Add(rt.classifiers)
	for i := 0; i < rt.classifiers; i++ {
		go func() {
			defer wgClassifiers.Done()

			cl := classify.New(&spec.Schema)
			pol := policy.New(mode, &spec.Schema)

			for {
				select {
				case <-readCtx.Done():
					return
				case rec, ok := <-rawCh:
					if !ok {
						return
					}
					stats.records.Add(1)

					v := cl.Classify(rec)
					if v.Clean() {
						stats.clean.Add(1)
					} else {
						stats.malformed.Add(1)
						malformedAgg.add(v.Describe())
					}

					r, err := pol.Apply(v)
					if err != nil {
						// Only failfast produces an error here; it is terminal
						// for the whole read side.
						recordAbort(err)
						return
					}
					if r == nil {
						stats.dropped.Add(1)
						continue
					}

					select {
					case rowCh <- r:
						stats.emitted.Add(1)
					case <-ctx.Done():
						r.Free()
						return
					}
				}
			}
		}()
	}

	go func() {
		wgClassifiers.Wait()
		close(rowCh)
	}()

	// 3) Loader(s): batch rows and bulk-insert into storage, always freeing
	// pooled rows. A fatal storage error cancels everything and drains the
	// remaining rows to avoid leaks or deadlocks.
	var wgLoaders sync.WaitGroup
	wgLoaders.Add(rt.loaderWorkers)
	loaderErrCh := make(chan error, rt.loaderWorkers)
	for i := 0; i < rt.loaderWorkers; i++ {
		go func() {
			defer wgLoaders.Done()

			n, b, err := storage.LoadBatches(ctx, columns, rowCh, rt.batchSize, copyFn)
			stats.inserted.Add(n)
			stats.batches.Add(b)
			if err != nil && !errors.Is(err, context.Canceled) {
				loaderErrCh <- err
				cancel()
				for r := range rowCh {
					r.Free()
				}
			}
		}()
	}

	wgLoaders.Wait()
	close(loaderErrCh)
	readerErr := <-readerDone

	logErrSummary("tokenize errors", tokenizeAgg)
	logErrSummary("malformed records", malformedAgg)
	logGlobalSummary(runID, &stats)
	publishCounts(spec.Job, &stats)

	// Error precedence: failfast abort, then storage, then reader.
	abortMu.Lock()
	abort := abortErr
	abortMu.Unlock()
	if abort != nil {
		metrics.RecordCount(spec.Job, metrics.KindAborts, 1)
		return abort
	}
	if lerr, ok := <-loaderErrCh; ok && lerr != nil {
		return fmt.Errorf("loader: %w", lerr)
	}
	if readerErr != nil && !errors.Is(readerErr, context.Canceled) {
		return fmt.Errorf("reader: %w", readerErr)
	}
	return nil
}

// newRuntimeConfig resolves the runtime configuration for a streaming run
// using the pipeline spec and environment-variable fallbacks.
func newRuntimeConfig(spec config.Pipeline) runtimeConfig {
	return runtimeConfig{
		// One classifier preserves file order, which failfast reporting relies on.
		classifiers:   pickInt(spec.Runtime.ClassifierWorkers, getenvInt("INGEST_CLASSIFIER_WORKERS", 1)),
		loaderWorkers: pickInt(spec.Runtime.LoaderWorkers, getenvInt("INGEST_LOADER_WORKERS", 1)),
		batchSize:     pickInt(spec.Runtime.BatchSize, getenvInt("INGEST_BATCH_SIZE", 10000)),
		bufferSize:    pickInt(spec.Runtime.ChannelBuffer, getenvInt("INGEST_CH_BUFFER", 4096)),
	}
}

// initRepository constructs the storage repository from the pipeline spec and
// returns a backend-agnostic Repository.
func initRepository(ctx context.Context, spec config.Pipeline) (Repository, error) {
	repo, err := newRepositoryFn(ctx, storage.Config{
		Kind:    spec.Storage.Kind,
		DSN:     spec.Storage.DB.DSN,
		Table:   spec.Storage.DB.Table,
		Columns: spec.Schema.Columns(),
	})
	if err != nil {
		return nil, fmt.Errorf("init repo: %w", err)
	}
	return repo, nil
}

// openSource maps source configuration onto a concrete datasource.Source and
// opens it.
func openSource(ctx context.Context, spec config.Pipeline) (io.ReadCloser, error) {
	var src datasource.Source
	switch spec.Source.Kind {
	case "file":
		local := file.NewLocal(spec.Source.File.Path)
		if n := local.Size(); n >= 0 {
			log.Printf("source: path=%s bytes=%d", local.Path(), n)
		}
		src = local
	default:
		return nil, fmt.Errorf("unsupported source.kind=%s", spec.Source.Kind)
	}
	return src.Open(ctx)
}

// logErrSummary prints aggregated errors for one category. Only the first N
// unique messages are shown; the bucket count reports distinct messages.
func logErrSummary(what string, agg *errAgg) {
	if agg.count == 0 {
		return
	}
	log.Printf("%s: %d (%d distinct, showing first %d)", what, agg.count, len(agg.buckets), len(agg.first))
	for i, s := range agg.first {
		log.Printf("  #%03d: %s", i+1, s)
	}
}

// logGlobalSummary prints final aggregated statistics for the run.
//
// Invariants for data records (excluding header and blank lines) are:
//
//	records == clean + malformed
//	emitted == clean + (malformed - dropped)   (permissive)
//	emitted == clean                           (dropmalformed)
func logGlobalSummary(runID string, c *counters) {
	log.Printf(
		"run %s summary: records=%d tokenize_errors=%d clean=%d malformed=%d dropped=%d emitted=%d inserted=%d batches=%d",
		runID,
		c.records.Load(),
		c.tokenizeErrors.Load(),
		c.clean.Load(),
		c.malformed.Load(),
		c.dropped.Load(),
		c.emitted.Load(),
		c.inserted.Load(),
		c.batches.Load(),
	)
}

// publishCounts forwards the run counters to the metrics backend.
func publishCounts(job string, c *counters) {
	metrics.RecordCount(job, metrics.KindRecords, c.records.Load())
	metrics.RecordCount(job, metrics.KindTokenize, c.tokenizeErrors.Load())
	metrics.RecordCount(job, metrics.KindClean, c.clean.Load())
	metrics.RecordCount(job, metrics.KindMalformed, c.malformed.Load())
	metrics.RecordCount(job, metrics.KindDropped, c.dropped.Load())
	metrics.RecordCount(job, metrics.KindEmitted, c.emitted.Load())
	metrics.RecordCount(job, metrics.KindInserted, c.inserted.Load())
	metrics.RecordBatches(job, c.batches.Load())
}

// ----------------------------------------------------------------------------
// Small helpers
// ----------------------------------------------------------------------------

// getenvInt reads an int from environment, returning def when unset/invalid.
func getenvInt(k string, def int) int {
	if s := os.Getenv(k); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			return n
		}
	}
	return def
}

// pickInt chooses the first positive value 'a', otherwise returns 'b'.
func pickInt(a, b int) int {
	if a > 0 {
		return a
	}
	return b
}

// errAgg aggregates error messages: it keeps the first few verbatim for the
// summary log and counts the rest in hash buckets so memory stays bounded no
// matter how many distinct messages a bad input produces.
type errAgg struct {
	mu      sync.Mutex
	limit   int
	count   int
	first   []string
	buckets map[uint64]int
}

func newErrAgg(limit int) *errAgg {
	return &errAgg{limit: limit, buckets: make(map[uint64]int)}
}

func (a *errAgg) add(msg string) {
	a.mu.Lock()
	a.buckets[xxh3.HashString(msg)]++
	if a.count < a.limit {
		a.first = append(a.first, msg)
	}
	a.count++
	a.mu.Unlock()
}
