// Package csv turns a delimited-text stream into raw records: the split
// tokens plus the verbatim original line. Records are emitted line by line so
// the untouched input text stays available downstream for corrupt-record
// capture and abort reporting; a quoted field therefore cannot span lines.
package csv

import (
	"bufio"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"ingest/internal/classify"
	"ingest/internal/config"
)

// Scanner limits. Lines longer than maxLineBytes are reported through onErr
// and terminate the stream (bufio.Scanner cannot resynchronize past them).
const (
	initialLineBytes = 64 * 1024
	maxLineBytes     = 1024 * 1024
)

// decoderFor maps an "encoding" option value onto a charset decoder.
// UTF-8 input needs no transformation and returns nil.
func decoderFor(name string) (*encoding.Decoder, error) {
	switch name {
	case "", "utf-8":
		return nil, nil
	case "latin1":
		return charmap.ISO8859_1.NewDecoder(), nil
	case "windows-1250":
		return charmap.Windows1250.NewDecoder(), nil
	case "windows-1252":
		return charmap.Windows1252.NewDecoder(), nil
	default:
		return nil, fmt.Errorf("unsupported encoding %q", name)
	}
}

// splitLine tokenizes a single physical line. LazyQuotes defaults to true so a
// stray quote inside a token degrades to a malformed record downstream instead
// of a hard read error here.
func splitLine(line string, comma rune, lazy bool) ([]string, error) {
	cr := csv.NewReader(strings.NewReader(line))
	cr.Comma = comma
	cr.LazyQuotes = lazy
	cr.FieldsPerRecord = -1
	rec, err := cr.Read()
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// StreamRawRecords streams delimited text into classify.RawRecord values on
// out. Each record carries both the split tokens and the verbatim line text;
// token count is NOT validated here, that is the classifier's job.
//
// Options (all optional):
//   - has_header (bool; default true) → skip the first non-empty line
//   - comma (string; first rune used; default ',')
//   - trim_space (bool; default false) → TrimSpace each token
//   - lazy_quotes (bool; default true) → csv.Reader.LazyQuotes per line
//   - encoding (string; default utf-8) → latin1 / windows-1250 / windows-1252
//
// Record numbers count data lines from 1, after the header. Physically empty
// lines are skipped and do not consume a record number. onErr(line, err)
// receives recoverable tokenization errors (soft-drop of that line).
func StreamRawRecords(
	ctx context.Context,
	src io.ReadCloser,
	opt config.Options,
	out chan<- classify.RawRecord,
	onErr func(line int, err error),
) error {
	defer src.Close()

	hasHeader := opt.Bool("has_header", true)
	comma := opt.Rune("comma", ',')
	trim := opt.Bool("trim_space", false)
	lazy := opt.Bool("lazy_quotes", true)

	dec, err := decoderFor(opt.String("encoding", ""))
	if err != nil {
		return err
	}
	var r io.Reader = src
	if dec != nil {
		r = transform.NewReader(src, dec)
	}

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, initialLineBytes), maxLineBytes)

	const logEveryN = 50_000
	physical := 0 // physical line counter, includes header and blanks
	number := 0   // data record counter
	headerSkipped := !hasHeader

	for sc.Scan() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		physical++
		line := sc.Text()
		if physical == 1 {
			line = strings.TrimPrefix(line, "\uFEFF") // strip BOM
		}
		if line == "" {
			continue
		}
		if !headerSkipped {
			headerSkipped = true
			continue
		}

		tokens, err := splitLine(line, comma, lazy)
		if err != nil {
			if onErr != nil {
				onErr(physical, fmt.Errorf("tokenize: %w", err))
			}
			continue
		}
		if trim {
			for i, tok := range tokens {
				tokens[i] = strings.TrimSpace(tok)
			}
		}

		number++
		select {
		case out <- classify.RawRecord{Tokens: tokens, Line: line, Number: number}:
			if number%logEveryN == 0 {
				log.Printf("reader: line=%d emitted=%d", physical, number)
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if err := sc.Err(); err != nil {
		if onErr != nil {
			onErr(physical+1, fmt.Errorf("scan: %w", err))
		}
		return err
	}
	return nil
}
