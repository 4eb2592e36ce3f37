package sqlite

import (
	"fmt"
	"strings"

	"ingest/internal/schema"
)

// sqlType maps a declared field type onto its SQLite storage class. Dates are
// stored as TEXT (ISO-8601), booleans as INTEGER 0/1, per SQLite convention.
func sqlType(t schema.FieldType) string {
	switch t {
	case schema.TypeLong, schema.TypeBool:
		return "INTEGER"
	case schema.TypeDouble:
		return "REAL"
	default:
		return "TEXT"
	}
}

// createTableSQL renders CREATE TABLE IF NOT EXISTS for the declared schema.
// Columns stay nullable so permissive-mode all-NULL rows can be stored.
func createTableSQL(table string, s *schema.Schema) string {
	var cols []string
	for _, f := range s.Fields {
		cols = append(cols, fmt.Sprintf("%s %s", sqIdent(f.Name), sqlType(f.Type)))
	}
	if s.CapturesCorruptRecord() {
		cols = append(cols, sqIdent(schema.CorruptRecordColumn)+" TEXT")
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", sqIdent(table), strings.Join(cols, ", "))
}
