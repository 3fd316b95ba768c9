package shuffle

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/kiteco/condprob/emr-pipelines/word-cond-prob/internal/condprob"
	"github.com/kiteco/condprob/kite-golib/awsutil"
	"github.com/pkg/errors"
)

// Intermediate records use the tagged EMR format: the token is the key, the class rank is
// the tag and the value is the JSON encoded count. Partitioning on the key and sorting on
// (key, numeric tag) therefore reproduces Partition and Compare.

// FactWriter encodes facts as tagged EMR records.
type FactWriter struct {
	w *awsutil.EMRWriter
}

// NewFactWriter returns a FactWriter writing to w.
func NewFactWriter(w io.Writer) *FactWriter {
	return &FactWriter{w: awsutil.NewEMRWriter(w)}
}

// Write encodes a single fact.
func (w *FactWriter) Write(f condprob.Fact) error {
	buf, err := json.Marshal(f.Count)
	if err != nil {
		return errors.Wrapf(err, "error marshaling count for %s", f.Key())
	}
	return w.w.EmitWithTag(f.Token, f.Class.Rank(), buf)
}

// Flush writes buffered records to the underlying writer.
func (w *FactWriter) Flush() error {
	return w.w.Flush()
}

// FactReader decodes tagged EMR records back into facts.
type FactReader struct {
	name string
	it   *awsutil.EMRIterator
	fact condprob.Fact
	err  error
}

// NewFactReader returns a FactReader over r; name identifies r in errors.
func NewFactReader(name string, r io.Reader) *FactReader {
	return &FactReader{name: name, it: awsutil.NewEMRIterator(r)}
}

// Next decodes the next fact, returning false at the end of input or on error.
func (r *FactReader) Next() bool {
	if r.err != nil {
		return false
	}
	if !r.it.Next() {
		if err := r.it.Err(); err != nil {
			r.err = errors.Wrapf(err, "error reading %s", r.name)
		}
		return false
	}

	class, err := condprob.ClassFromRank(r.it.Tag())
	if err != nil {
		r.err = r.errorf("%v", err)
		return false
	}
	var count float64
	if err := json.Unmarshal(r.it.Value(), &count); err != nil {
		r.err = r.errorf("bad count %q: %v", r.it.Value(), err)
		return false
	}
	r.fact = condprob.Fact{Token: r.it.Key(), Class: class, Count: count}
	return true
}

// Fact is the current fact.
func (r *FactReader) Fact() condprob.Fact { return r.fact }

// Err returns the first error encountered.
func (r *FactReader) Err() error { return r.err }

func (r *FactReader) errorf(format string, args ...interface{}) error {
	return errors.Errorf("%s:%d: %s", r.name, r.it.Line(), fmt.Sprintf(format, args...))
}
