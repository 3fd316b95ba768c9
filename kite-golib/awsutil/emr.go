package awsutil

import (
	"bufio"
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// maxEMRLineSize bounds a single encoded record.
const maxEMRLineSize = 64 << 20

// EMRWriter writes records in the format consumed by our Hadoop streaming jobs:
//   key \t base64(value) \n
// or, for tagged records,
//   key \t tag \t base64(value) \n
// The tag is a secondary sort field: streaming jobs are configured to partition on
// the key and sort on (key, numeric tag).
type EMRWriter struct {
	w   *bufio.Writer
	buf []byte
}

// NewEMRWriter returns an EMRWriter that writes to w.
func NewEMRWriter(w io.Writer) *EMRWriter {
	return &EMRWriter{w: bufio.NewWriter(w)}
}

// Emit writes an untagged record.
func (w *EMRWriter) Emit(key string, value []byte) error {
	if err := validateEMRKey(key); err != nil {
		return err
	}
	w.w.WriteString(key)
	w.w.WriteByte('\t')
	return w.writeValue(value)
}

// EmitWithTag writes a record with a non-negative tag.
func (w *EMRWriter) EmitWithTag(key string, tag int, value []byte) error {
	if err := validateEMRKey(key); err != nil {
		return err
	}
	if tag < 0 {
		return fmt.Errorf("emr tag for key '%s' must be non-negative, got %d", key, tag)
	}
	w.w.WriteString(key)
	w.w.WriteByte('\t')
	w.w.WriteString(strconv.Itoa(tag))
	w.w.WriteByte('\t')
	return w.writeValue(value)
}

func (w *EMRWriter) writeValue(value []byte) error {
	n := base64.StdEncoding.EncodedLen(len(value))
	if cap(w.buf) < n {
		w.buf = make([]byte, n)
	}
	w.buf = w.buf[:n]
	base64.StdEncoding.Encode(w.buf, value)
	w.w.Write(w.buf)
	return w.w.WriteByte('\n')
}

// Flush writes any buffered records to the underlying writer.
func (w *EMRWriter) Flush() error {
	return w.w.Flush()
}

// Close flushes the writer. It does not close the underlying writer.
func (w *EMRWriter) Close() error {
	return w.Flush()
}

func validateEMRKey(key string) error {
	if strings.ContainsAny(key, "\t\n") {
		return fmt.Errorf("emr key %q cannot contain tabs or newlines", key)
	}
	return nil
}

// --

// EMRReader reads records written by EMRWriter.
type EMRReader struct {
	s    *bufio.Scanner
	line int
}

// NewEMRReader returns an EMRReader that reads from r.
func NewEMRReader(r io.Reader) *EMRReader {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, 64*1024), maxEMRLineSize)
	return &EMRReader{s: s}
}

// Read returns the next key and value, or io.EOF once the input is exhausted.
func (r *EMRReader) Read() (string, []byte, error) {
	key, _, value, err := r.ReadWithTag()
	return key, value, err
}

// ReadWithTag returns the next key, tag and value. Untagged records have tag 0.
func (r *EMRReader) ReadWithTag() (string, int, []byte, error) {
	if !r.s.Scan() {
		if err := r.s.Err(); err != nil {
			return "", 0, nil, err
		}
		return "", 0, nil, io.EOF
	}
	r.line++
	return parseEMRLine(r.s.Bytes(), r.line)
}

func parseEMRLine(line []byte, lineno int) (string, int, []byte, error) {
	parts := bytes.Split(line, []byte{'\t'})

	var key, encoded []byte
	var tag int
	switch len(parts) {
	case 2:
		key, encoded = parts[0], parts[1]
	case 3:
		key, encoded = parts[0], parts[2]
		t, err := strconv.Atoi(string(parts[1]))
		if err != nil || t < 0 {
			return "", 0, nil, fmt.Errorf("line %d: invalid emr tag %q", lineno, parts[1])
		}
		tag = t
	default:
		return "", 0, nil, fmt.Errorf("line %d: expected 2 or 3 tab separated fields, got %d", lineno, len(parts))
	}

	value := make([]byte, base64.StdEncoding.DecodedLen(len(encoded)))
	n, err := base64.StdEncoding.Decode(value, encoded)
	if err != nil {
		return "", 0, nil, fmt.Errorf("line %d: error decoding value for key '%s': %v", lineno, key, err)
	}
	return string(key), tag, value[:n], nil
}

// --

// EMRIterator is a bufio.Scanner style wrapper around EMRReader.
type EMRIterator struct {
	r *EMRReader

	key   string
	tag   int
	value []byte
	err   error
}

// NewEMRIterator returns an EMRIterator reading from r.
func NewEMRIterator(r io.Reader) *EMRIterator {
	return &EMRIterator{r: NewEMRReader(r)}
}

// Next advances to the next record, returning false at the end of the input or on error.
func (it *EMRIterator) Next() bool {
	if it.err != nil {
		return false
	}
	key, tag, value, err := it.r.ReadWithTag()
	if err != nil {
		if err != io.EOF {
			it.err = err
		}
		return false
	}
	it.key, it.tag, it.value = key, tag, value
	return true
}

// Key of the current record.
func (it *EMRIterator) Key() string { return it.key }

// Tag of the current record, 0 if the record is untagged.
func (it *EMRIterator) Tag() int { return it.tag }

// Value of the current record.
func (it *EMRIterator) Value() []byte { return it.value }

// Line number of the current record.
func (it *EMRIterator) Line() int { return it.r.line }

// Err returns the first non-EOF error encountered.
func (it *EMRIterator) Err() error { return it.err }
