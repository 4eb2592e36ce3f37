// Package classify reconciles raw delimited records against a declared
// schema. It converts field text into typed values and produces a per-record
// verdict (clean or malformed with a precise reason) that the mode policy
// layer consumes.
//
// Coercion and classification are pure, non-blocking computations over
// already-buffered tokens; the same inputs always yield the same outcome.
package classify

import (
	"strconv"
	"strings"
	"time"

	"ingest/internal/schema"
)

// FailureReason enumerates why a single field failed to coerce.
type FailureReason uint8

const (
	// TypeMismatch: the token text does not satisfy the declared type
	// (non-numeric text for a numeric field, a fractional value for a long,
	// an unrecognized boolean or date form).
	TypeMismatch FailureReason = iota + 1

	// EmptyRequired: the token is empty or the record ran out of tokens
	// before this position, and the field is not nullable.
	EmptyRequired
)

func (r FailureReason) String() string {
	switch r {
	case TypeMismatch:
		return "type_mismatch"
	case EmptyRequired:
		return "empty_required"
	default:
		return "ok"
	}
}

// Outcome is the result of coercing one raw token against one field
// declaration. Value holds the typed value (nil means NULL); Reason is zero
// on success.
type Outcome struct {
	Value  any
	Reason FailureReason
}

// OK reports whether the coercion succeeded.
func (o Outcome) OK() bool { return o.Reason == 0 }

// Coerce converts one raw token into a typed value per decl. present=false
// means the record ran out of tokens before this position. An absent or empty
// token coerces to NULL for nullable fields and fails with EmptyRequired
// otherwise; it is never a TypeMismatch.
//
// Each field coerces independently of its neighbors. The parse is
// locale-invariant: strconv forms only, no grouping separators.
func Coerce(token string, present bool, decl schema.Field) Outcome {
	if !present || token == "" {
		if decl.Nullable {
			return Outcome{}
		}
		return Outcome{Reason: EmptyRequired}
	}

	switch decl.Type {
	case schema.TypeString:
		// Verbatim; trimming is the tokenizer's concern.
		return Outcome{Value: token}

	case schema.TypeLong:
		// A fractional value must not silently truncate into a long.
		if i, err := strconv.ParseInt(token, 10, 64); err == nil {
			return Outcome{Value: i}
		}
		return Outcome{Reason: TypeMismatch}

	case schema.TypeDouble:
		if f, err := strconv.ParseFloat(token, 64); err == nil {
			return Outcome{Value: f}
		}
		return Outcome{Reason: TypeMismatch}

	case schema.TypeBool:
		if b, ok := toBool(token, decl.Truthy, decl.Falsy); ok {
			return Outcome{Value: b}
		}
		return Outcome{Reason: TypeMismatch}

	case schema.TypeDate:
		if t, ok := toDate(token, decl.Layout); ok {
			return Outcome{Value: t}
		}
		return Outcome{Reason: TypeMismatch}
	}

	// Unknown types are rejected by Schema.Validate before any record is
	// classified; reaching here means the schema was not validated.
	return Outcome{Reason: TypeMismatch}
}

// toBool resolves booleans with optional custom vocabularies. When both
// vocabularies are empty a broad default set is used.
func toBool(s string, truthy, falsy []string) (bool, bool) {
	ls := strings.ToLower(s)
	if len(truthy) > 0 || len(falsy) > 0 {
		for _, v := range truthy {
			if ls == strings.ToLower(v) {
				return true, true
			}
		}
		for _, v := range falsy {
			if ls == strings.ToLower(v) {
				return false, true
			}
		}
		return false, false
	}
	switch ls {
	case "1", "t", "true", "yes", "y":
		return true, true
	case "0", "f", "false", "no", "n":
		return false, true
	default:
		return false, false
	}
}

// toDate attempts the field layout first, then ISO "2006-01-02".
func toDate(s, layout string) (time.Time, bool) {
	if layout != "" {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, true
	}
	return time.Time{}, false
}
