// Package schema defines the declared shape of ingested records: an ordered
// list of named, typed, nullable field declarations plus validation helpers.
//
// A Schema is pure data. It is built once per read operation, validated
// before any record is processed, and from then on shared read-only by the
// classifier and the row materializer; no synchronization is needed for
// concurrent partitions.
package schema

// FieldType enumerates the supported declared field types.
type FieldType string

const (
	TypeString FieldType = "string"
	TypeLong   FieldType = "long"
	TypeDouble FieldType = "double"
	TypeBool   FieldType = "bool"
	TypeDate   FieldType = "date"
)

// CorruptRecordColumn is the fixed name of the synthetic trailing column that
// receives the verbatim raw text of a malformed record when capture is
// enabled. It is always a nullable string column and is not counted in
// FieldCount.
const CorruptRecordColumn = "_corrupt_record"

// Field declares one named, typed column. Declaration order is significant:
// it determines positional alignment with raw tokens.
type Field struct {
	Name     string    `json:"name"`
	Type     FieldType `json:"type"`
	Nullable bool      `json:"nullable,omitempty"`

	// Layout is an optional date layout (Go reference time form) for
	// TypeDate fields. When empty, ISO "2006-01-02" is used.
	Layout string `json:"layout,omitempty"`

	// Truthy/Falsy are optional custom boolean vocabularies for TypeBool
	// fields. When empty, a broad default set is used.
	Truthy []string `json:"truthy,omitempty"`
	Falsy  []string `json:"falsy,omitempty"`
}

// Schema is an ordered sequence of field declarations with unique names.
type Schema struct {
	Fields []Field `json:"fields"`

	// CaptureCorruptRecord adds the synthetic corrupt-record column to
	// materialized rows. It is an output-shape option only; classification
	// is unaffected.
	CaptureCorruptRecord bool `json:"capture_corrupt_record,omitempty"`
}

// Error reports a malformed schema declaration. It is fatal: it surfaces
// before any record is processed and prevents the read.
type Error struct {
	Field  string // offending field name, "" for schema-level problems
	Reason string
}

func (e *Error) Error() string {
	if e.Field == "" {
		return "schema: " + e.Reason
	}
	return "schema: field " + e.Field + ": " + e.Reason
}

// Validate checks the declaration set: at least one field, unique names, a
// recognized type for every field, and no collision with the reserved
// corrupt-record column name. It has no side effects.
func (s *Schema) Validate() error {
	if len(s.Fields) == 0 {
		return &Error{Reason: "at least one field must be declared"}
	}
	seen := make(map[string]struct{}, len(s.Fields))
	for _, f := range s.Fields {
		if f.Name == "" {
			return &Error{Reason: "field name must not be empty"}
		}
		if f.Name == CorruptRecordColumn {
			return &Error{Field: f.Name, Reason: "name is reserved for corrupt-record capture"}
		}
		if _, dup := seen[f.Name]; dup {
			return &Error{Field: f.Name, Reason: "duplicate field name"}
		}
		seen[f.Name] = struct{}{}
		if !knownType(f.Type) {
			return &Error{Field: f.Name, Reason: "unknown type " + string(f.Type)}
		}
	}
	return nil
}

// FieldCount returns the number of declared fields. This is the expected
// token count N for positional alignment; the corrupt-record column is not
// included.
func (s *Schema) FieldCount() int { return len(s.Fields) }

// FieldAt returns the declaration at position i.
func (s *Schema) FieldAt(i int) Field { return s.Fields[i] }

// CapturesCorruptRecord reports whether materialized rows carry the synthetic
// corrupt-record column.
func (s *Schema) CapturesCorruptRecord() bool { return s.CaptureCorruptRecord }

// Columns returns the output column names in materialization order: the
// declared field names, plus the corrupt-record column when captured. This is
// the column list storage backends receive.
func (s *Schema) Columns() []string {
	cols := make([]string, 0, len(s.Fields)+1)
	for _, f := range s.Fields {
		cols = append(cols, f.Name)
	}
	if s.CaptureCorruptRecord {
		cols = append(cols, CorruptRecordColumn)
	}
	return cols
}

func knownType(t FieldType) bool {
	switch t {
	case TypeString, TypeLong, TypeDouble, TypeBool, TypeDate:
		return true
	}
	return false
}
