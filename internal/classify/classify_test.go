package classify

import (
	"reflect"
	"testing"

	"ingest/internal/schema"
)

// citySchema mirrors the motivating dataset: city, country, latitude,
// longitude, population, everything nullable.
func citySchema() *schema.Schema {
	return &schema.Schema{Fields: []schema.Field{
		{Name: "city", Type: schema.TypeString, Nullable: true},
		{Name: "country", Type: schema.TypeString, Nullable: true},
		{Name: "latitude", Type: schema.TypeDouble, Nullable: true},
		{Name: "longitude", Type: schema.TypeDouble, Nullable: true},
		{Name: "population", Type: schema.TypeLong, Nullable: true},
	}}
}

func rec(line string, tokens ...string) RawRecord {
	return RawRecord{Tokens: tokens, Line: line, Number: 1}
}

func TestClassify_CleanExactWidth(t *testing.T) {
	c := New(citySchema())
	v := c.Classify(rec("Tokyo,Japan,35.6895,139.69171,38001000",
		"Tokyo", "Japan", "35.6895", "139.69171", "38001000"))
	if !v.Clean() {
		t.Fatalf("verdict not clean: %s", v.Describe())
	}
	want := []any{"Tokyo", "Japan", 35.6895, 139.69171, int64(38001000)}
	if !reflect.DeepEqual(v.Values, want) {
		t.Fatalf("values=%#v; want %#v", v.Values, want)
	}
}

// One extra trailing token: the leading five fields parse as before and the
// excess is ignored rather than penalized.
func TestClassify_ExtraTrailingTokenIgnored(t *testing.T) {
	if !IgnoreExtraTokens {
		t.Fatal("IgnoreExtraTokens must be fixed on")
	}
	c := New(citySchema())
	v := c.Classify(rec("Shanghai,China,31.22,121.46,23741000,ABCDE",
		"Shanghai", "China", "31.22", "121.46", "23741000", "ABCDE"))
	if !v.Clean() {
		t.Fatalf("verdict not clean: %s", v.Describe())
	}
	want := []any{"Shanghai", "China", 31.22, 121.46, int64(23741000)}
	if !reflect.DeepEqual(v.Values, want) {
		t.Fatalf("values=%#v; want %#v", v.Values, want)
	}
	if v.Actual != 6 || v.Expected != 5 {
		t.Fatalf("actual=%d expected=%d", v.Actual, v.Expected)
	}
}

// Three tokens against five nullable declarations: the missing trailing
// positions pad to NULL and the record stays clean.
func TestClassify_UnderfilledNullablePads(t *testing.T) {
	c := New(citySchema())
	v := c.Classify(rec("São Paulo,Brazil,-23.55", "São Paulo", "Brazil", "-23.55"))
	if !v.Clean() {
		t.Fatalf("verdict not clean: %s", v.Describe())
	}
	want := []any{"São Paulo", "Brazil", -23.55, nil, nil}
	if !reflect.DeepEqual(v.Values, want) {
		t.Fatalf("values=%#v; want %#v", v.Values, want)
	}
}

// Same shape but population is non-nullable: the absent position reports a
// count mismatch carrying actual and expected widths.
func TestClassify_UnderfilledRequiredIsCountMismatch(t *testing.T) {
	s := citySchema()
	s.Fields[4].Nullable = false
	c := New(s)
	v := c.Classify(rec("São Paulo,Brazil,-23.55", "São Paulo", "Brazil", "-23.55"))
	if v.Clean() {
		t.Fatal("verdict clean; want malformed")
	}
	if v.Reason != FieldCountMismatch {
		t.Fatalf("reason=%v; want FieldCountMismatch", v.Reason)
	}
	if v.Cause != EmptyRequired {
		t.Fatalf("cause=%v; want EmptyRequired", v.Cause)
	}
	if v.Actual != 3 || v.Expected != 5 || v.Field != "population" {
		t.Fatalf("actual=%d expected=%d field=%q", v.Actual, v.Expected, v.Field)
	}
	if v.Raw != "São Paulo,Brazil,-23.55" {
		t.Fatalf("raw=%q", v.Raw)
	}
}

// A duplicated token shifts a string into the latitude position; the shift
// surfaces as a coercion failure on the first field whose value no longer
// fits. The verdict names the field and carries the offending token and the
// verbatim line.
func TestClassify_ShiftedFieldFailsCoercion(t *testing.T) {
	c := New(citySchema())
	raw := "Mumbai,India, India,72.880838,21043000"
	v := c.Classify(rec(raw, "Mumbai", "India", " India", "72.880838", "21043000"))
	if v.Clean() {
		t.Fatal("verdict clean; want malformed")
	}
	if v.Reason != FieldCoercionFailure || v.Cause != TypeMismatch {
		t.Fatalf("reason=%v cause=%v", v.Reason, v.Cause)
	}
	if v.Field != "latitude" || v.Token != " India" {
		t.Fatalf("field=%q token=%q", v.Field, v.Token)
	}
	if v.Raw != raw {
		t.Fatalf("raw=%q; want verbatim line", v.Raw)
	}
}

// An empty token on a non-nullable field is EmptyRequired, a distinct cause
// from TypeMismatch, and reported as a coercion failure because the token is
// physically present.
func TestClassify_EmptyRequiredDistinctCause(t *testing.T) {
	s := &schema.Schema{Fields: []schema.Field{
		{Name: "id", Type: schema.TypeLong},
		{Name: "name", Type: schema.TypeString, Nullable: true},
	}}
	c := New(s)
	v := c.Classify(rec(",x", "", "x"))
	if v.Clean() {
		t.Fatal("verdict clean; want malformed")
	}
	if v.Reason != FieldCoercionFailure || v.Cause != EmptyRequired {
		t.Fatalf("reason=%v cause=%v; want FieldCoercionFailure/EmptyRequired", v.Reason, v.Cause)
	}
	if v.Field != "id" {
		t.Fatalf("field=%q", v.Field)
	}
}

// Two failing fields: the leftmost one alone determines the verdict.
func TestClassify_FirstFailingFieldWins(t *testing.T) {
	if !StopAtFirstFailure {
		t.Fatal("StopAtFirstFailure must be fixed on")
	}
	c := New(citySchema())
	v := c.Classify(rec("Lima,Peru,abc,def,123", "Lima", "Peru", "abc", "def", "123"))
	if v.Field != "latitude" || v.Token != "abc" {
		t.Fatalf("field=%q token=%q; want first failure (latitude/abc)", v.Field, v.Token)
	}
}

// Classification is deterministic: the same record yields the same verdict.
func TestClassify_Deterministic(t *testing.T) {
	c := New(citySchema())
	r := rec("Lima,Peru,abc", "Lima", "Peru", "abc")
	a, b := c.Classify(r), c.Classify(r)
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("verdicts differ: %+v vs %+v", a, b)
	}
}
