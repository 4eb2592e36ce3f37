package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"ingest/internal/config"
	"ingest/internal/policy"
	"ingest/internal/schema"
	"ingest/internal/storage"
)

// fakeRepo is an in-memory Repository capturing everything the pipeline
// writes. CopyFrom deep-copies row values because the loader returns pooled
// rows to the pool right after each flush.
type fakeRepo struct {
	mu      sync.Mutex
	rows    [][]any
	ddl     []string
	copyErr error
}

func (f *fakeRepo) CopyFrom(ctx context.Context, columns []string, rows [][]any) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.copyErr != nil {
		return 0, f.copyErr
	}
	for _, r := range rows {
		cp := make([]any, len(r))
		copy(cp, r)
		f.rows = append(f.rows, cp)
	}
	return int64(len(rows)), nil
}

func (f *fakeRepo) Exec(ctx context.Context, sql string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ddl = append(f.ddl, sql)
	return nil
}

func (f *fakeRepo) Close() {}

func (f *fakeRepo) snapshot() [][]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([][]any, len(f.rows))
	copy(out, f.rows)
	return out
}

// installFakeRepo swaps the repository seam for the duration of one test.
func installFakeRepo(t *testing.T, repo *fakeRepo) {
	t.Helper()
	orig := newRepositoryFn
	newRepositoryFn = func(ctx context.Context, cfg storage.Config) (Repository, error) {
		return repo, nil
	}
	t.Cleanup(func() { newRepositoryFn = orig })
}

const citiesCSV = `city,country,latitude,longitude,population
Tokyo,Japan,35.6895,139.69171,38001000
Shanghai,China,31.2304,121.4737,26317104,extra
São Paulo,Brazil,-23.5505,-46.6333
Mumbai,India, India,72.880838,21043000
`

// citiesPipeline builds a pipeline over a temp copy of citiesCSV. population
// is non-nullable, so the underfilled São Paulo line is malformed alongside
// the shifted Mumbai line; the first two lines are clean.
func citiesPipeline(t *testing.T, mode string) config.Pipeline {
	t.Helper()

	path := filepath.Join(t.TempDir(), "cities.csv")
	if err := os.WriteFile(path, []byte(citiesCSV), 0o644); err != nil {
		t.Fatalf("write input: %v", err)
	}

	return config.Pipeline{
		Job:       "cities-test",
		Source:    config.Source{Kind: "file", File: config.SourceFile{Path: path}},
		Tokenizer: config.Tokenizer{Kind: "csv", Options: config.Options{"has_header": true}},
		Schema: schema.Schema{
			Fields: []schema.Field{
				{Name: "city", Type: schema.TypeString, Nullable: true},
				{Name: "country", Type: schema.TypeString, Nullable: true},
				{Name: "latitude", Type: schema.TypeDouble, Nullable: true},
				{Name: "longitude", Type: schema.TypeDouble, Nullable: true},
				{Name: "population", Type: schema.TypeLong, Nullable: false},
			},
			CaptureCorruptRecord: true,
		},
		Mode:    mode,
		Storage: config.Storage{Kind: "sqlite", DB: config.DBConfig{DSN: ":memory:", Table: "cities"}},
		Runtime: config.RuntimeConfig{BatchSize: 2},
	}
}

func rowWithCity(rows [][]any, city string) []any {
	for _, r := range rows {
		if r[0] == city {
			return r
		}
	}
	return nil
}

func TestRunStreamed_Permissive(t *testing.T) {
	repo := &fakeRepo{}
	installFakeRepo(t, repo)

	if err := runStreamed(context.Background(), citiesPipeline(t, "permissive")); err != nil {
		t.Fatalf("runStreamed: %v", err)
	}

	rows := repo.snapshot()
	if len(rows) != 4 {
		t.Fatalf("rows=%d; want all 4 records under permissive", len(rows))
	}

	tokyo := rowWithCity(rows, "Tokyo")
	if tokyo == nil {
		t.Fatal("Tokyo row missing")
	}
	if tokyo[4] != int64(38001000) || tokyo[5] != nil {
		t.Fatalf("Tokyo=%#v; want typed population and NULL corrupt slot", tokyo)
	}

	// The extra trailing token on Shanghai is ignored; the record is clean.
	if shanghai := rowWithCity(rows, "Shanghai"); shanghai == nil || shanghai[5] != nil {
		t.Fatalf("Shanghai=%#v; want clean row", shanghai)
	}

	// Malformed records become all-NULL rows carrying the verbatim line.
	var corrupt []string
	for _, r := range rows {
		if r[0] != nil {
			continue
		}
		for i := 0; i < 5; i++ {
			if r[i] != nil {
				t.Fatalf("corrupt row=%#v; declared fields must be NULL", r)
			}
		}
		s, _ := r[5].(string)
		corrupt = append(corrupt, s)
	}
	if len(corrupt) != 2 {
		t.Fatalf("corrupt rows=%d; want 2", len(corrupt))
	}
	want := map[string]bool{
		"São Paulo,Brazil,-23.5505,-46.6333":      true,
		"Mumbai,India, India,72.880838,21043000": true,
	}
	for _, s := range corrupt {
		if !want[s] {
			t.Fatalf("unexpected corrupt payload %q", s)
		}
	}
}

func TestRunStreamed_DropMalformed(t *testing.T) {
	repo := &fakeRepo{}
	installFakeRepo(t, repo)

	if err := runStreamed(context.Background(), citiesPipeline(t, "dropmalformed")); err != nil {
		t.Fatalf("runStreamed: %v", err)
	}

	rows := repo.snapshot()
	if len(rows) != 2 {
		t.Fatalf("rows=%d; want only the 2 clean records", len(rows))
	}
	if rowWithCity(rows, "Tokyo") == nil || rowWithCity(rows, "Shanghai") == nil {
		t.Fatalf("rows=%#v; want Tokyo and Shanghai", rows)
	}
}

func TestRunStreamed_FailFast(t *testing.T) {
	repo := &fakeRepo{}
	installFakeRepo(t, repo)

	err := runStreamed(context.Background(), citiesPipeline(t, "failfast"))
	var abort *policy.AbortError
	if !errors.As(err, &abort) {
		t.Fatalf("err=%v; want *policy.AbortError", err)
	}
	if abort.Raw != "São Paulo,Brazil,-23.5505,-46.6333" {
		t.Fatalf("abort.Raw=%q; want the first malformed line", abort.Raw)
	}

	// Clean rows ahead of the abort are flushed, not retracted.
	rows := repo.snapshot()
	if len(rows) != 2 {
		t.Fatalf("rows=%d; want the 2 clean records before the abort", len(rows))
	}
}

func TestRunStreamed_LoaderFailure(t *testing.T) {
	repo := &fakeRepo{copyErr: errors.New("disk full")}
	installFakeRepo(t, repo)

	err := runStreamed(context.Background(), citiesPipeline(t, "permissive"))
	if err == nil || !errors.Is(err, repo.copyErr) {
		t.Fatalf("err=%v; want wrapped copy error", err)
	}
}

func TestRunStreamed_InvalidMode(t *testing.T) {
	repo := &fakeRepo{}
	installFakeRepo(t, repo)

	if err := runStreamed(context.Background(), citiesPipeline(t, "lenient")); err == nil {
		t.Fatal("want error for unknown mode")
	}
}

func TestNewRuntimeConfig_Defaults(t *testing.T) {
	rt := newRuntimeConfig(config.Pipeline{})
	if rt.classifiers != 1 || rt.loaderWorkers != 1 {
		t.Fatalf("rt=%+v; want single classifier and loader by default", rt)
	}
	if rt.batchSize <= 0 || rt.bufferSize <= 0 {
		t.Fatalf("rt=%+v; want positive batch and buffer", rt)
	}
}

func TestErrAgg(t *testing.T) {
	agg := newErrAgg(2)
	agg.add("a")
	agg.add("b")
	agg.add("c")
	agg.add("a")

	if agg.count != 4 {
		t.Fatalf("count=%d; want 4", agg.count)
	}
	if len(agg.first) != 2 || agg.first[0] != "a" || agg.first[1] != "b" {
		t.Fatalf("first=%v; want the first 2 verbatim", agg.first)
	}
	if len(agg.buckets) != 3 {
		t.Fatalf("buckets=%d; want 3 distinct", len(agg.buckets))
	}
}
