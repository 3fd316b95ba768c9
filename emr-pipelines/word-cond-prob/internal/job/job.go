package job

import (
	"context"
	"fmt"
	"io/ioutil"
	"os"
	"sort"
	"sync"
	"time"

	humanize "github.com/dustin/go-humanize"
	"github.com/kiteco/condprob/emr-pipelines/word-cond-prob/internal/condprob"
	"github.com/kiteco/condprob/emr-pipelines/word-cond-prob/internal/shuffle"
	"github.com/kiteco/condprob/kite-golib/workerpool"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// ShardError is the failure of a single reduce shard. The shard wrote no output and can be
// re-run on its own.
type ShardError struct {
	Shard int
	Err   error
}

func (e *ShardError) Error() string {
	return fmt.Sprintf("shard %d failed: %v", e.Shard, e.Err)
}

// Cause implements the pkg/errors causer interface.
func (e *ShardError) Cause() error { return e.Err }

// Unwrap returns the shard's error.
func (e *ShardError) Unwrap() error { return e.Err }

// ShardSummary describes the reduce of one shard.
type ShardSummary struct {
	Shard    int
	Runs     int
	Path     string
	Results  int
	Stats    condprob.AggregateStats
	Duration time.Duration
	Err      error
}

// Summary describes a finished (or failed) job.
type Summary struct {
	Inputs    int
	Records   int
	Malformed int
	Splits    int
	Facts     int
	Spilled   int
	Shards    []ShardSummary

	MapDuration    time.Duration
	ReduceDuration time.Duration
}

// Results is the number of output records across all shards.
func (s Summary) Results() int {
	var n int
	for _, sh := range s.Shards {
		n += sh.Results
	}
	return n
}

type job struct {
	opts     Options
	schema   condprob.Schema
	logger   *zap.Logger
	spillDir string

	m         sync.Mutex
	runs      [][]string
	splits    int
	malformed int
	facts     int
	spilled   int
}

// Run computes P(class | token) over every line of inputs and writes one part file per
// shard to opts.Output, followed by a DONE marker. Inputs are local files, directories,
// .gz files or s3:// URIs.
func Run(ctx context.Context, opts Options, inputs []string, logger *zap.Logger) (Summary, error) {
	var summary Summary
	if err := opts.Validate(); err != nil {
		return summary, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	files, err := expandInputs(inputs)
	if err != nil {
		return summary, err
	}
	summary.Inputs = len(files)

	if opts.WorkDir != "" {
		if err := os.MkdirAll(opts.WorkDir, 0755); err != nil {
			return summary, errors.Wrapf(err, "error creating work dir %s", opts.WorkDir)
		}
	}
	spillDir, err := ioutil.TempDir(opts.WorkDir, "condprob-")
	if err != nil {
		return summary, errors.Wrap(err, "error creating spill dir")
	}
	if opts.KeepWorkDir {
		logger.Info("keeping spill dir", zap.String("dir", spillDir))
	} else {
		defer os.RemoveAll(spillDir)
	}

	if err := cleanOutput(opts.Output); err != nil {
		return summary, errors.Wrapf(err, "error removing earlier output in %s", opts.Output)
	}

	j := &job{
		opts:     opts,
		schema:   condprob.EvenOrOddSchema(),
		logger:   logger,
		spillDir: spillDir,
		runs:     make([][]string, opts.ShardCount),
	}

	start := time.Now()
	records, err := j.mapPhase(ctx, files)
	summary.Records = records
	summary.MapDuration = time.Since(start)
	summary.Splits, summary.Malformed, summary.Facts, summary.Spilled = j.splits, j.malformed, j.facts, j.spilled
	if err != nil {
		return summary, err
	}
	logger.Info("map phase done",
		zap.String("records", humanize.Comma(int64(records))),
		zap.String("malformed", humanize.Comma(int64(j.malformed))),
		zap.String("facts", humanize.Comma(int64(j.facts))),
		zap.String("spilled", humanize.Comma(int64(j.spilled))),
		zap.Int("splits", j.splits),
		zap.Duration("took", summary.MapDuration))

	start = time.Now()
	summary.Shards, err = j.reducePhase(ctx)
	summary.ReduceDuration = time.Since(start)
	if err != nil {
		return summary, err
	}

	if err := writeDoneFile(opts.Output); err != nil {
		return summary, errors.Wrapf(err, "error writing DONE file to %s", opts.Output)
	}
	logger.Info("reduce phase done",
		zap.String("results", humanize.Comma(int64(summary.Results()))),
		zap.Int("shards", len(summary.Shards)),
		zap.Duration("took", summary.ReduceDuration))
	return summary, nil
}

func (j *job) mapPhase(ctx context.Context, files []string) (int, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	pool := workerpool.New(j.opts.EmissionWorkers)
	defer pool.Stop()

	// bounds the number of splits held in memory
	slots := make(chan struct{}, 2*j.opts.EmissionWorkers)

	records, readErr := readSplits(ctx, files, j.opts.SplitLines, func(s split) error {
		select {
		case slots <- struct{}{}:
		case <-ctx.Done():
			return ctx.Err()
		}
		pool.AddJob(func() error {
			defer func() { <-slots }()
			err := j.mapSplit(ctx, s)
			if err != nil {
				cancel()
			}
			return err
		})
		return nil
	})

	if err := pool.Wait(); err != nil {
		return records, errors.Wrap(err, "map phase failed")
	}
	return records, readErr
}

func (j *job) mapSplit(ctx context.Context, s split) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	e, err := condprob.NewEmitter(j.schema)
	if err != nil {
		return err
	}
	sw, err := shuffle.NewSpillWriter(j.spillDir, s.index, j.opts.ShardCount, j.opts.CombinerEntries)
	if err != nil {
		return err
	}

	var malformed int
	for _, rec := range s.records {
		err := e.Emit(rec, sw.Add)
		if err == nil {
			continue
		}
		var rf *condprob.RecordFormatError
		if j.opts.SkipMalformed && errors.As(err, &rf) {
			malformed++
			j.logger.Debug("skipping malformed record",
				zap.String("source", rf.Source),
				zap.Int("line", rf.Line),
				zap.String("reason", rf.Reason))
			continue
		}
		return errors.Wrapf(err, "split %d", s.index)
	}

	runs, err := sw.Close()
	if err != nil {
		return err
	}

	j.m.Lock()
	defer j.m.Unlock()
	j.splits++
	j.malformed += malformed
	j.facts += sw.Added()
	for _, r := range runs {
		j.runs[r.Shard] = append(j.runs[r.Shard], r.Path)
		j.spilled += r.Facts
	}
	return nil
}

func (j *job) reducePhase(ctx context.Context) ([]ShardSummary, error) {
	summaries := make([]ShardSummary, j.opts.ShardCount)

	pool := workerpool.New(j.opts.ShardCount)
	defer pool.Stop()

	for shard := 0; shard < j.opts.ShardCount; shard++ {
		shard := shard
		pool.AddJob(func() error {
			start := time.Now()
			ss := j.reduceShard(ctx, shard)
			ss.Duration = time.Since(start)
			summaries[shard] = ss
			if ss.Err != nil {
				j.logger.Error("shard failed",
					zap.Int("shard", shard),
					zap.Int("missing_totals", ss.Stats.MissingTotals),
					zap.Error(ss.Err))
				return &ShardError{Shard: shard, Err: ss.Err}
			}
			j.logger.Debug("shard done",
				zap.Int("shard", shard),
				zap.String("results", humanize.Comma(int64(ss.Results))),
				zap.Duration("took", ss.Duration))
			return nil
		})
	}
	return summaries, pool.Wait()
}

func (j *job) reduceShard(ctx context.Context, shard int) ShardSummary {
	paths := append([]string(nil), j.runs[shard]...)
	sort.Strings(paths)

	ss := ShardSummary{Shard: shard, Runs: len(paths)}

	pw, err := newPartWriter(j.opts.Output, shard)
	if err != nil {
		ss.Err = err
		return ss
	}

	groups, err := shuffle.Merge(paths)
	if err != nil {
		pw.Abort()
		ss.Err = err
		return ss
	}
	defer groups.Close()

	agg, err := condprob.NewAggregator(j.schema, shard)
	if err != nil {
		pw.Abort()
		ss.Err = err
		return ss
	}

	err = agg.Aggregate(ctx, groups, pw.Write)
	ss.Stats = agg.Stats()
	if err != nil {
		pw.Abort()
		ss.Err = err
		return ss
	}
	if err := pw.Commit(); err != nil {
		ss.Err = err
		return ss
	}

	ss.Path = pw.final
	ss.Results = pw.results
	return ss
}

// ShardErrors extracts the per-shard failures from an error returned by Run.
func ShardErrors(err error) []*ShardError {
	var shardErrs []*ShardError
	for _, e := range multierr.Errors(err) {
		var se *ShardError
		if errors.As(e, &se) {
			shardErrs = append(shardErrs, se)
		}
	}
	return shardErrs
}
