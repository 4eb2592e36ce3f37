package mssql

import (
	"strings"
	"testing"

	"ingest/internal/schema"
)

func TestCreateTableSQL(t *testing.T) {
	s := &schema.Schema{
		Fields: []schema.Field{
			{Name: "city", Type: schema.TypeString, Nullable: true},
			{Name: "founded", Type: schema.TypeDate, Nullable: true},
		},
		CaptureCorruptRecord: true,
	}

	got := createTableSQL("dbo.cities", s)
	if !strings.HasPrefix(got, "IF OBJECT_ID(N'dbo.cities', N'U') IS NULL CREATE TABLE [dbo].[cities]") {
		t.Fatalf("ddl=%q; want guarded CREATE TABLE", got)
	}
	for _, frag := range []string{
		"[city] NVARCHAR(MAX) NULL",
		"[founded] DATE NULL",
		"[_corrupt_record] NVARCHAR(MAX) NULL",
	} {
		if !strings.Contains(got, frag) {
			t.Fatalf("ddl=%q; missing %q", got, frag)
		}
	}
}

func TestMsIdent(t *testing.T) {
	if got := msIdent("we]ird"); got != "[we]]ird]" {
		t.Fatalf("msIdent=%q", got)
	}
	if got := msFQN("dbo.cities"); got != "[dbo].[cities]" {
		t.Fatalf("msFQN=%q", got)
	}
}
