package job

import (
	"bufio"
	"context"
	"strings"

	"github.com/kiteco/condprob/emr-pipelines/word-cond-prob/internal/condprob"
	"github.com/kiteco/condprob/kite-golib/fileutil"
	"github.com/pkg/errors"
)

const maxLineSize = 64 << 20

// split is the input of a single map task: consecutive lines of one source.
type split struct {
	index   int
	records []condprob.Record
}

// expandInputs replaces directories with the files they contain.
func expandInputs(inputs []string) ([]string, error) {
	var files []string
	for _, in := range inputs {
		if !fileutil.IsDir(in) {
			files = append(files, in)
			continue
		}
		members, err := fileutil.ListDir(in)
		if err != nil {
			return nil, err
		}
		for _, m := range members {
			if strings.HasSuffix(m, DoneFilename) {
				continue
			}
			files = append(files, m)
		}
	}
	if len(files) == 0 {
		return nil, errors.New("no input files")
	}
	return files, nil
}

// readSplits reads every input and hands its lines to fn in splits of at most size
// lines. Trailing carriage returns are dropped. It returns the number of lines read.
func readSplits(ctx context.Context, inputs []string, size int, fn func(split) error) (int, error) {
	var lines, next int
	for _, in := range inputs {
		n, err := readSource(ctx, in, size, func(records []condprob.Record) error {
			s := split{index: next, records: records}
			next++
			return fn(s)
		})
		lines += n
		if err != nil {
			return lines, err
		}
	}
	return lines, nil
}

func readSource(ctx context.Context, path string, size int, fn func([]condprob.Record) error) (int, error) {
	r, err := fileutil.NewReader(path)
	if err != nil {
		return 0, errors.Wrapf(err, "error opening %s", path)
	}
	defer r.Close()

	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	var lines int
	records := make([]condprob.Record, 0, size)
	for s.Scan() {
		lines++
		payload := append([]byte(nil), strings.TrimSuffix(s.Text(), "\r")...)
		records = append(records, condprob.Record{Source: path, Line: lines, Payload: payload})
		if len(records) < size {
			continue
		}
		if err := ctx.Err(); err != nil {
			return lines, err
		}
		if err := fn(records); err != nil {
			return lines, err
		}
		records = make([]condprob.Record, 0, size)
	}
	if err := s.Err(); err != nil {
		return lines, errors.Wrapf(err, "error reading %s", path)
	}
	if len(records) > 0 {
		if err := ctx.Err(); err != nil {
			return lines, err
		}
		if err := fn(records); err != nil {
			return lines, err
		}
	}
	return lines, nil
}
