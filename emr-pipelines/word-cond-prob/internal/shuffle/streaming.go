package shuffle

import (
	"bufio"
	"context"
	"io"
	"strings"

	"github.com/kiteco/condprob/emr-pipelines/word-cond-prob/internal/condprob"
	"github.com/pkg/errors"
)

// MapOptions configure MapLines.
type MapOptions struct {
	// CombinerEntries bounds the combiner, 0 disables it.
	CombinerEntries int
	// SkipMalformed drops lines that are not text instead of failing.
	SkipMalformed bool
}

// MapStats counts what MapLines did.
type MapStats struct {
	Lines     int
	Malformed int
	Facts     int
}

// MapLines is the streaming map task: it reads text lines from r and writes their facts
// to w as tagged records, unsorted. Hadoop sorts them by (key, numeric tag) before the
// reducer reads them.
func MapLines(r io.Reader, w io.Writer, opts MapOptions) (MapStats, error) {
	var stats MapStats
	emitter, err := condprob.NewEmitter(condprob.EvenOrOddSchema())
	if err != nil {
		return stats, err
	}

	out := NewFactWriter(w)
	write := out.Write
	var combiner *condprob.Combiner
	if opts.CombinerEntries > 0 {
		combiner, err = condprob.NewCombiner(opts.CombinerEntries, out.Write)
		if err != nil {
			return stats, err
		}
		write = combiner.Add
	}
	count := func(f condprob.Fact) error {
		stats.Facts++
		return write(f)
	}

	in := bufio.NewScanner(r)
	in.Buffer(make([]byte, 0, 64*1024), 64<<20)
	for in.Scan() {
		stats.Lines++
		payload := []byte(strings.TrimSuffix(in.Text(), "\r"))
		err := emitter.Emit(condprob.Record{Source: "stdin", Line: stats.Lines, Payload: payload}, count)
		if err == nil {
			continue
		}
		var rf *condprob.RecordFormatError
		if opts.SkipMalformed && errors.As(err, &rf) {
			stats.Malformed++
			continue
		}
		return stats, err
	}
	if err := in.Err(); err != nil {
		return stats, errors.Wrap(err, "error reading input")
	}

	if combiner != nil {
		if err := combiner.Flush(); err != nil {
			return stats, errors.Wrap(err, "error flushing combiner")
		}
	}
	return stats, out.Flush()
}

// ReduceStream is the streaming reduce task for shard: it reads sorted tagged records
// from r and writes result lines to w. On error the output written so far is unusable.
func ReduceStream(ctx context.Context, r io.Reader, w io.Writer, shard int) (condprob.AggregateStats, error) {
	agg, err := condprob.NewAggregator(condprob.EvenOrOddSchema(), shard)
	if err != nil {
		return condprob.AggregateStats{}, err
	}

	out := bufio.NewWriter(w)
	err = agg.Aggregate(ctx, NewStreamGroups(r), func(res condprob.Result) error {
		out.WriteString(res.String())
		return out.WriteByte('\n')
	})
	if err != nil {
		return agg.Stats(), err
	}
	return agg.Stats(), out.Flush()
}
