package storage

import (
	"context"
	"errors"
	"testing"

	"ingest/internal/row"
)

func feedRows(values ...[]any) chan *row.Row {
	in := make(chan *row.Row, len(values))
	for _, v := range values {
		r := row.Get(len(v))
		copy(r.V, v)
		in <- r
	}
	close(in)
	return in
}

func TestLoadBatches_FlushesByBatchSizeAndOnClose(t *testing.T) {
	var calls [][]int // row counts per copyFn call
	copyFn := func(ctx context.Context, columns []string, rows [][]any) (int64, error) {
		calls = append(calls, []int{len(rows)})
		return int64(len(rows)), nil
	}

	in := feedRows(
		[]any{"a", int64(1)},
		[]any{"b", int64(2)},
		[]any{"c", int64(3)},
		[]any{"d", int64(4)},
		[]any{"e", int64(5)},
	)
	total, batches, err := LoadBatches(context.Background(), []string{"name", "n"}, in, 2, copyFn)
	if err != nil {
		t.Fatalf("LoadBatches: %v", err)
	}
	if total != 5 || batches != 3 {
		t.Fatalf("total=%d batches=%d; want 5/3", total, batches)
	}
	// 2 + 2 + final partial flush of 1.
	if len(calls) != 3 || calls[0][0] != 2 || calls[1][0] != 2 || calls[2][0] != 1 {
		t.Fatalf("flush sizes = %v; want [2 2 1]", calls)
	}
}

func TestLoadBatches_StopsOnCopyError(t *testing.T) {
	boom := errors.New("boom")
	calls := 0
	copyFn := func(ctx context.Context, columns []string, rows [][]any) (int64, error) {
		calls++
		return 0, boom
	}

	in := feedRows([]any{"a"}, []any{"b"}, []any{"c"})
	_, _, err := LoadBatches(context.Background(), []string{"name"}, in, 2, copyFn)
	if !errors.Is(err, boom) {
		t.Fatalf("err=%v; want boom", err)
	}
	if calls != 1 {
		t.Fatalf("copyFn calls=%d; want 1 (stop at first failure)", calls)
	}
}

func TestLoadBatches_InvalidArgs(t *testing.T) {
	in := make(chan *row.Row)
	close(in)

	if _, _, err := LoadBatches(context.Background(), nil, in, 0, func(context.Context, []string, [][]any) (int64, error) {
		return 0, nil
	}); err == nil {
		t.Fatal("want error for batchSize=0")
	}
	if _, _, err := LoadBatches(context.Background(), nil, in, 1, nil); err == nil {
		t.Fatal("want error for nil copyFn")
	}
}

func TestLoadBatches_ContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	in := make(chan *row.Row) // never fed
	_, _, err := LoadBatches(ctx, nil, in, 10, func(context.Context, []string, [][]any) (int64, error) {
		return 0, nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err=%v; want context.Canceled", err)
	}
}

func TestNewUnknownKind(t *testing.T) {
	if _, err := New(context.Background(), Config{Kind: "voidstore"}); err == nil {
		t.Fatal("want error for unregistered kind")
	}
}

func TestRegisterAndNew(t *testing.T) {
	Register("fake", func(ctx context.Context, cfg Config) (Repository, error) {
		return nil, errors.New("fake backend opened")
	})
	_, err := New(context.Background(), Config{Kind: "fake"})
	if err == nil || err.Error() != "fake backend opened" {
		t.Fatalf("err=%v; want factory to be invoked", err)
	}
}
