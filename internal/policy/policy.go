// Package policy implements the configurable malformed-record strategies
// that decide, per verdict, whether a row is emitted, suppressed, or the
// whole read aborts. One Policy instance serves exactly one read operation
// (or one partition of a parallel read); instances are never shared.
package policy

import (
	"fmt"

	"ingest/internal/classify"
	"ingest/internal/row"
	"ingest/internal/schema"
)

// Mode selects the malformed-record recovery strategy.
type Mode uint8

const (
	// Permissive tolerates malformed records: every declared field is set to
	// NULL and, when the schema captures corrupt records, the verbatim raw
	// line is placed in the corrupt-record slot. The default.
	Permissive Mode = iota

	// DropMalformed suppresses malformed records; only clean rows are
	// emitted.
	DropMalformed

	// FailFast aborts the whole read at the first malformed record with a
	// terminal error carrying the offending raw text. Rows already emitted
	// are not retracted.
	FailFast
)

func (m Mode) String() string {
	switch m {
	case Permissive:
		return "permissive"
	case DropMalformed:
		return "dropmalformed"
	case FailFast:
		return "failfast"
	default:
		return fmt.Sprintf("mode(%d)", uint8(m))
	}
}

// ParseMode maps a configuration string onto a Mode. The empty string means
// Permissive.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "", "permissive":
		return Permissive, nil
	case "dropmalformed":
		return DropMalformed, nil
	case "failfast":
		return FailFast, nil
	default:
		return Permissive, fmt.Errorf("unknown mode %q (want permissive, dropmalformed, or failfast)", s)
	}
}

// AbortError terminates a FailFast read. It carries the raw text of the
// first malformed record encountered; no further records are processed.
type AbortError struct {
	Line   int
	Raw    string
	Detail string
}

func (e *AbortError) Error() string {
	return fmt.Sprintf("read aborted at line %d: %s (raw: %q)", e.Line, e.Detail, e.Raw)
}

// Policy is a per-read state machine consuming verdicts in input order.
// States are Running and Aborted; once aborted there is no way back and no
// further row is ever produced.
type Policy struct {
	mode    Mode
	mat     *Materializer
	aborted bool
}

// New builds a Policy over a validated schema.
func New(mode Mode, s *schema.Schema) *Policy {
	return &Policy{mode: mode, mat: NewMaterializer(s)}
}

// Mode returns the configured strategy.
func (p *Policy) Mode() Mode { return p.mode }

// Aborted reports whether a FailFast abort has occurred.
func (p *Policy) Aborted() bool { return p.aborted }

// Apply consumes one verdict and decides the record's fate: a non-nil row to
// emit, (nil, nil) to suppress, or a terminal *AbortError (FailFast only).
// The returned row is pooled; the consumer owns it and must Free it after
// use.
func (p *Policy) Apply(v classify.Verdict) (*row.Row, error) {
	if p.aborted {
		return nil, &AbortError{Line: v.Line, Detail: "record received after abort", Raw: v.Raw}
	}

	if v.Clean() {
		return p.mat.CleanRow(v), nil
	}

	switch p.mode {
	case DropMalformed:
		return nil, nil
	case FailFast:
		p.aborted = true
		return nil, &AbortError{Line: v.Line, Raw: v.Raw, Detail: v.Describe()}
	default: // Permissive
		return p.mat.CorruptRow(v), nil
	}
}
