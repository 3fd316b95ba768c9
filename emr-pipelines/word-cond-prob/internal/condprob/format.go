package condprob

import (
	"math"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// String renders the result as an output line (without newline): "(token, label)\tvalue".
func (r Result) String() string {
	return r.Key().String() + "\t" + FormatValue(r.Value)
}

// FormatValue prints v in its shortest form, keeping a ".0" on integral values.
func FormatValue(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !math.IsInf(v, 0) && !math.IsNaN(v) && !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// ParseResult parses a line produced by Result.String.
func ParseResult(line string) (Result, error) {
	line = strings.TrimRight(line, "\r\n")
	if !strings.HasPrefix(line, "(") {
		return Result{}, errors.Errorf("result %q: missing '('", line)
	}
	sep := strings.Index(line, ", ")
	if sep < 0 {
		return Result{}, errors.Errorf("result %q: missing ', '", line)
	}
	rest := line[sep+2:]
	end := strings.Index(rest, ")\t")
	if end < 0 {
		return Result{}, errors.Errorf("result %q: missing ')\\t'", line)
	}

	class, err := ParseClass(rest[:end])
	if err != nil {
		return Result{}, errors.Wrapf(err, "result %q", line)
	}
	v, err := strconv.ParseFloat(rest[end+2:], 64)
	if err != nil {
		return Result{}, errors.Wrapf(err, "result %q", line)
	}
	return Result{Token: line[1:sep], Class: class, Value: v}, nil
}
