package postgres

import (
	"testing"

	"ingest/internal/schema"
)

func TestCreateTableSQL(t *testing.T) {
	s := &schema.Schema{
		Fields: []schema.Field{
			{Name: "city", Type: schema.TypeString, Nullable: true},
			{Name: "latitude", Type: schema.TypeDouble, Nullable: true},
			{Name: "population", Type: schema.TypeLong, Nullable: false},
			{Name: "capital", Type: schema.TypeBool, Nullable: true},
			{Name: "founded", Type: schema.TypeDate, Nullable: true},
		},
		CaptureCorruptRecord: true,
	}

	got := createTableSQL("public.cities", s)
	want := `CREATE TABLE IF NOT EXISTS "public"."cities" ` +
		`("city" text, "latitude" double precision, "population" bigint, ` +
		`"capital" boolean, "founded" date, "_corrupt_record" text)`
	if got != want {
		t.Fatalf("ddl=%q\nwant %q", got, want)
	}
}

func TestSplitFQN(t *testing.T) {
	if id := splitFQN("public.cities"); len(id) != 2 || id[0] != "public" || id[1] != "cities" {
		t.Fatalf("splitFQN=%v", id)
	}
	if id := splitFQN("cities"); len(id) != 1 || id[0] != "cities" {
		t.Fatalf("splitFQN=%v", id)
	}
}
