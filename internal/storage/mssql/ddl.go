package mssql

import (
	"fmt"
	"strings"

	"ingest/internal/schema"
)

// sqlType maps a declared field type onto its SQL Server column type.
func sqlType(t schema.FieldType) string {
	switch t {
	case schema.TypeLong:
		return "BIGINT"
	case schema.TypeDouble:
		return "FLOAT"
	case schema.TypeBool:
		return "BIT"
	case schema.TypeDate:
		return "DATE"
	default:
		return "NVARCHAR(MAX)"
	}
}

// createTableSQL renders idempotent CREATE TABLE DDL. SQL Server has no
// CREATE TABLE IF NOT EXISTS, so existence is checked via OBJECT_ID. Columns
// stay nullable so permissive-mode all-NULL rows can be stored.
func createTableSQL(table string, s *schema.Schema) string {
	var cols []string
	for _, f := range s.Fields {
		cols = append(cols, fmt.Sprintf("%s %s NULL", msIdent(f.Name), sqlType(f.Type)))
	}
	if s.CapturesCorruptRecord() {
		cols = append(cols, msIdent(schema.CorruptRecordColumn)+" NVARCHAR(MAX) NULL")
	}
	return fmt.Sprintf(
		"IF OBJECT_ID(N'%s', N'U') IS NULL CREATE TABLE %s (%s)",
		strings.ReplaceAll(table, "'", "''"),
		msFQN(table),
		strings.Join(cols, ", "),
	)
}
