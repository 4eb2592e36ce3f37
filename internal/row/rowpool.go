// Package row defines the pooled output row that flows from the materializer
// through the mode policy to the storage loader. Pooling keeps heap churn low
// on large reads; the contract is strict ownership hand-off along the
// pipeline.
package row

import "sync"

// Row is a pooled container holding one materialized output row.
//
// Contract:
//   - The materializer fills r.V[0:width] once; the row is immutable after
//     that and is either emitted downstream or freed.
//   - After the row has been persisted (or dropped), the owning stage must
//     call r.Free() to return it to the pool.
//   - Do not retain references to r or r.V beyond the owning stage.
//
// V stays []any so pgx CopyFromRows and database/sql Exec can consume it
// directly.
type Row struct {
	V []any

	// Line is the 1-based source line the row was materialized from; used
	// for loader diagnostics only.
	Line int
}

var pool sync.Pool

// Get returns a pooled Row with length width and all elements cleared.
func Get(width int) *Row {
	if v := pool.Get(); v != nil {
		r := v.(*Row)
		if cap(r.V) < width {
			r.V = make([]any, width)
		}
		r.V = r.V[:width]
		for i := range r.V {
			r.V[i] = nil
		}
		r.Line = 0
		return r
	}
	return &Row{V: make([]any, width)}
}

// Free returns the Row to the pool. The caller must not use r after Free.
func (r *Row) Free() {
	pool.Put(r)
}
