package postgres

import (
	"fmt"
	"strings"

	"ingest/internal/schema"
)

// sqlType maps a declared field type onto its Postgres column type.
func sqlType(t schema.FieldType) string {
	switch t {
	case schema.TypeLong:
		return "bigint"
	case schema.TypeDouble:
		return "double precision"
	case schema.TypeBool:
		return "boolean"
	case schema.TypeDate:
		return "date"
	default:
		return "text"
	}
}

// createTableSQL renders CREATE TABLE IF NOT EXISTS for the declared schema.
// Every column is nullable regardless of the field's nullability: under the
// permissive strategy a malformed record stores NULL in every declared field,
// so NOT NULL constraints would reject exactly the rows that strategy exists
// to keep.
func createTableSQL(table string, s *schema.Schema) string {
	var cols []string
	for _, f := range s.Fields {
		cols = append(cols, fmt.Sprintf("%s %s", pgIdent(f.Name), sqlType(f.Type)))
	}
	if s.CapturesCorruptRecord() {
		cols = append(cols, pgIdent(schema.CorruptRecordColumn)+" text")
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", pgFQN(table), strings.Join(cols, ", "))
}
