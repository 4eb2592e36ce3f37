package policy

import (
	"ingest/internal/classify"
	"ingest/internal/row"
	"ingest/internal/schema"
)

// Materializer assembles final typed output rows from verdicts. The policy
// decides a record's fate; the materializer's only independent
// responsibility is appending or omitting the corrupt-record slot
// consistently with the schema's capture flag.
type Materializer struct {
	schema  *schema.Schema
	width   int // declared fields plus the optional corrupt slot
	capture bool
}

// NewMaterializer builds a Materializer for a validated schema.
func NewMaterializer(s *schema.Schema) *Materializer {
	w := s.FieldCount()
	if s.CapturesCorruptRecord() {
		w++
	}
	return &Materializer{schema: s, width: w, capture: s.CapturesCorruptRecord()}
}

// Width returns the materialized row width.
func (m *Materializer) Width() int { return m.width }

// CleanRow materializes a clean verdict: the coerced values in schema order
// and, when captured, NULL in the corrupt-record slot.
func (m *Materializer) CleanRow(v classify.Verdict) *row.Row {
	r := row.Get(m.width)
	copy(r.V, v.Values)
	r.Line = v.Line
	return r
}

// CorruptRow materializes a malformed verdict under Permissive: every
// declared field NULL and, when captured, the verbatim original line text in
// the corrupt-record slot.
func (m *Materializer) CorruptRow(v classify.Verdict) *row.Row {
	r := row.Get(m.width) // all slots start NULL
	if m.capture {
		r.V[m.width-1] = v.Raw
	}
	r.Line = v.Line
	return r
}
