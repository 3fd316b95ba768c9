package condprob

import (
	"bytes"
	"strings"
	"unicode/utf8"

	"github.com/pkg/errors"
)

// Record is one input line along with where it came from.
type Record struct {
	Source  string
	Line    int
	Payload []byte
}

// Emitter turns lines into facts. For every whitespace delimited token of a line it emits
// one fact for the line's class and one for Total, each with count 1.
// An Emitter is not safe for concurrent use; each emission worker owns one.
type Emitter struct {
	schema Schema
	facts  []Fact
}

// NewEmitter returns an Emitter for schema.
func NewEmitter(schema Schema) (*Emitter, error) {
	if err := schema.Validate(); err != nil {
		return nil, err
	}
	return &Emitter{schema: schema}, nil
}

// Facts returns the facts for rec. The returned slice is reused by the next call.
func (e *Emitter) Facts(rec Record) ([]Fact, error) {
	if !utf8.Valid(rec.Payload) {
		return nil, &RecordFormatError{Source: rec.Source, Line: rec.Line, Reason: "payload is not valid UTF-8"}
	}
	if bytes.IndexByte(rec.Payload, 0) >= 0 {
		return nil, &RecordFormatError{Source: rec.Source, Line: rec.Line, Reason: "payload contains NUL bytes"}
	}

	line := string(rec.Payload)
	class, err := e.schema.ClassFor(line)
	if err != nil {
		return nil, errors.Wrapf(err, "%s:%d", rec.Source, rec.Line)
	}

	e.facts = e.facts[:0]
	for _, tok := range strings.Fields(line) {
		e.facts = append(e.facts,
			Fact{Token: tok, Class: class, Count: 1},
			Fact{Token: tok, Class: Total(), Count: 1},
		)
	}
	return e.facts, nil
}

// Emit sends the facts of rec to out, stopping at the first error.
func (e *Emitter) Emit(rec Record, out func(Fact) error) error {
	facts, err := e.Facts(rec)
	if err != nil {
		return err
	}
	for _, f := range facts {
		if err := out(f); err != nil {
			return err
		}
	}
	return nil
}
