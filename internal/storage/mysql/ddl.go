package mysql

import (
	"fmt"
	"strings"

	"ingest/internal/schema"
)

// sqlType maps a declared field type onto its MySQL column type.
func sqlType(t schema.FieldType) string {
	switch t {
	case schema.TypeLong:
		return "BIGINT"
	case schema.TypeDouble:
		return "DOUBLE"
	case schema.TypeBool:
		return "TINYINT(1)"
	case schema.TypeDate:
		return "DATE"
	default:
		return "TEXT"
	}
}

// createTableSQL renders CREATE TABLE IF NOT EXISTS for the declared schema.
// Columns stay nullable so permissive-mode all-NULL rows can be stored.
func createTableSQL(table string, s *schema.Schema) string {
	var cols []string
	for _, f := range s.Fields {
		cols = append(cols, fmt.Sprintf("%s %s", myIdent(f.Name), sqlType(f.Type)))
	}
	if s.CapturesCorruptRecord() {
		cols = append(cols, myIdent(schema.CorruptRecordColumn)+" TEXT")
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", myIdent(table), strings.Join(cols, ", "))
}
