// This file implements a generic, batched loader that drains pooled rows from
// a channel and invokes a provided bulk-insert function (CopyFn) per batch.
// Rows are returned to the pool after each flush.
//
// Logging: on every successful flush, a concise progress line is emitted with
// running totals and instantaneous rows/sec since the previous flush.
package storage

import (
	"context"
	"fmt"
	"log"
	"time"

	"ingest/internal/row"
)

// CopyFn abstracts a backend's bulk insert capability. Implementations should
// insert the provided rows (aligned to 'columns' order) and return the number
// of rows reported as inserted. The function should be safe for repeated calls
// and cancel promptly when ctx is done.
type CopyFn func(ctx context.Context, columns []string, rows [][]any) (int64, error)

// LoadBatches drains pooled rows from 'in', groups them into batches of size
// 'batchSize', and calls 'copyFn' for each non-empty batch. Every drained row
// is freed back to the pool once its batch has been handed to copyFn, whether
// or not the flush succeeded. It returns the total number of rows reported by
// copyFn, the number of batches flushed, and the first error encountered.
//
// Cancellation: returns (total, batches, ctx.Err()) when canceled.
func LoadBatches(
	ctx context.Context,
	columns []string,
	in <-chan *row.Row,
	batchSize int,
	copyFn CopyFn,
) (int64, int64, error) {
	if batchSize <= 0 {
		return 0, 0, fmt.Errorf("batchSize must be > 0")
	}
	if copyFn == nil {
		return 0, 0, fmt.Errorf("copyFn must not be nil")
	}

	var (
		total       int64
		batches     int64
		batch       = make([]*row.Row, 0, batchSize)
		slab        = make([][]any, 0, batchSize)
		start       = time.Now()
		lastFlushTS = start
		lastTotal   int64
	)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		// Build the [][]any view without per-row alloc; reuse slab backing array.
		slab = slab[:0]
		for _, r := range batch {
			slab = append(slab, r.V)
		}
		n, err := copyFn(ctx, columns, slab)
		total += n
		for _, r := range batch {
			r.Free()
		}
		batch = batch[:0]

		if err != nil {
			log.Printf("loader: flush failed inserted=%d total=%d err=%v", n, total, err)
			return err
		}

		// Progress log per successful batch.
		batches++
		now := time.Now()
		sinceLast := now.Sub(lastFlushTS)
		insertedSinceLast := total - lastTotal
		rps := float64(0)
		if sinceLast > 0 {
			rps = float64(insertedSinceLast) / sinceLast.Seconds()
		}
		log.Printf(
			"batch #%d: rps=%.0f inserted=%d total_inserted=%d elapsed=%s since_last=%s",
			batches,
			rps,
			n,
			total,
			now.Sub(start).Truncate(time.Millisecond),
			sinceLast.Truncate(time.Millisecond),
		)
		lastFlushTS = now
		lastTotal = total

		return nil
	}

	for {
		select {
		case <-ctx.Done():
			return total, batches, ctx.Err()

		case r, ok := <-in:
			if !ok {
				// Channel closed: flush remaining rows.
				if err := flush(); err != nil {
					return total, batches, err
				}
				log.Printf("loader: input closed total_inserted=%d batches=%d", total, batches)
				return total, batches, nil
			}
			batch = append(batch, r)
			if len(batch) >= batchSize {
				if err := flush(); err != nil {
					return total, batches, err
				}
			}
		}
	}
}
