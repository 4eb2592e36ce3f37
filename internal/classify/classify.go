package classify

import (
	"fmt"

	"ingest/internal/schema"
)

// Classification constants. Both behaviors are fixed, not configurable; they
// are named so tests can target them directly rather than infer them from
// control flow.
const (
	// StopAtFirstFailure: fields are scanned left to right and the first
	// failing field alone determines the malformed reason, even when several
	// fields fail.
	StopAtFirstFailure = true

	// IgnoreExtraTokens: tokens beyond the declared field count are dropped
	// without penalizing the record. A row with extra trailing tokens whose
	// leading N tokens coerce cleanly is a clean row.
	IgnoreExtraTokens = true
)

// RawRecord is one tokenized input record as produced by the tokenizer
// collaborator: the ordered raw tokens plus the verbatim unparsed line text
// (original delimiters and spacing preserved, never re-joined from tokens).
type RawRecord struct {
	Tokens []string
	Line   string
	Number int // 1-based physical line number
}

// Reason tags why a record was classified malformed.
type Reason uint8

const (
	// FieldCountMismatch: the record has fewer tokens than declared fields
	// and an absent trailing position lands on a non-nullable field.
	FieldCountMismatch Reason = iota + 1

	// FieldCoercionFailure: a physically present token does not satisfy its
	// field's declared type or nullability.
	FieldCoercionFailure
)

func (r Reason) String() string {
	switch r {
	case FieldCountMismatch:
		return "field_count_mismatch"
	case FieldCoercionFailure:
		return "field_coercion_failure"
	default:
		return "clean"
	}
}

// Verdict is the per-record classification result. Exactly one reason is
// recorded even if multiple fields fail.
type Verdict struct {
	// Values holds the typed values aligned to schema order; nil unless the
	// record is clean.
	Values []any

	Reason Reason        // zero when clean
	Cause  FailureReason // coercion cause behind Reason (TypeMismatch or EmptyRequired)
	Field  string        // offending field name
	Token  string        // offending raw token; "" when the position was absent

	Actual   int // token count observed
	Expected int // schema.FieldCount()

	Raw  string // verbatim original line text
	Line int    // 1-based physical line number
}

// Clean reports whether the record passed classification.
func (v Verdict) Clean() bool { return v.Reason == 0 }

// Describe renders a short human-readable reason for logs and abort errors.
func (v Verdict) Describe() string {
	switch v.Reason {
	case FieldCountMismatch:
		return fmt.Sprintf("field count mismatch: got %d tokens, expected %d (field %q missing and not nullable)",
			v.Actual, v.Expected, v.Field)
	case FieldCoercionFailure:
		return fmt.Sprintf("field %q: %s for token %q", v.Field, v.Cause, v.Token)
	default:
		return "clean"
	}
}

// Classifier reconciles raw records against a declared schema. It is
// stateless beyond the shared read-only schema and safe for concurrent use
// across partitions.
type Classifier struct {
	schema *schema.Schema
}

// New returns a Classifier for a validated schema.
func New(s *schema.Schema) *Classifier { return &Classifier{schema: s} }

// Classify aligns the record's tokens to the schema strictly by position and
// coerces each field.
//
// Shape handling:
//   - Fewer tokens than fields: missing trailing positions are treated as
//     absent. The record stays clean when every absent position is nullable
//     (those fields become NULL); the first non-nullable absent position
//     yields FieldCountMismatch.
//   - More tokens than fields: the leading FieldCount tokens are taken and
//     the excess ignored (IgnoreExtraTokens).
//
// A record whose fields are shifted by an inserted mid-record token is not
// special-cased: alignment is strictly positional, so the shift surfaces as
// a coercion failure on the first shifted field whose value no longer fits
// its declared type. When every shifted value still coerces, the misalignment
// is undetectable here.
func (c *Classifier) Classify(rec RawRecord) Verdict {
	expected := c.schema.FieldCount()
	actual := len(rec.Tokens)

	values := make([]any, expected)
	for i := 0; i < expected; i++ {
		decl := c.schema.FieldAt(i)

		token, present := "", false
		if i < actual {
			token, present = rec.Tokens[i], true
		}

		out := Coerce(token, present, decl)
		if out.OK() {
			values[i] = out.Value
			continue
		}

		// First failing field wins (StopAtFirstFailure).
		v := Verdict{
			Cause:    out.Reason,
			Field:    decl.Name,
			Actual:   actual,
			Expected: expected,
			Raw:      rec.Line,
			Line:     rec.Number,
		}
		if !present {
			v.Reason = FieldCountMismatch
		} else {
			v.Reason = FieldCoercionFailure
			v.Token = token
		}
		return v
	}

	return Verdict{
		Values:   values,
		Actual:   actual,
		Expected: expected,
		Raw:      rec.Line,
		Line:     rec.Number,
	}
}
