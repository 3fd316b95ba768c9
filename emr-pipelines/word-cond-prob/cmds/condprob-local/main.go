package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	arg "github.com/alexflint/go-arg"
	humanize "github.com/dustin/go-humanize"
	"github.com/kiteco/condprob/emr-pipelines/word-cond-prob/internal/job"
	"github.com/kiteco/condprob/kite-golib/kitelog"
	"go.uber.org/zap"
)

// Runs the word conditional probability job on this machine, reading inputs from local
// disk or s3 and writing part files to a local directory or s3 prefix.
func main() {
	args := struct {
		Inputs          []string `arg:"positional,required" help:"input files, directories or s3 uris"`
		Config          string   `arg:"--config" help:"yaml job file"`
		Output          string   `arg:"--output" help:"output directory or s3 prefix"`
		Shards          int      `arg:"--shards" help:"number of reduce shards"`
		Workers         int      `arg:"--workers" help:"number of concurrent map tasks"`
		SplitLines      int      `arg:"--split-lines" help:"input lines per map task"`
		CombinerEntries int      `arg:"--combiner-entries" help:"combiner size, negative disables the combiner"`
		SkipMalformed   bool     `arg:"--skip-malformed" help:"drop lines that are not text"`
		WorkDir         string   `arg:"--workdir" help:"directory for intermediate runs"`
		KeepWorkDir     bool     `arg:"--keep-workdir" help:"do not delete intermediate runs"`
		Verbose         bool     `arg:"-v" help:"debug logging"`
		JSONLogs        bool     `arg:"--json-logs" help:"structured logs, errors to stderr and the rest to stdout"`
	}{}
	arg.MustParse(&args)

	logger := kitelog.NewConsole(args.Verbose)
	if args.JSONLogs {
		logger = kitelog.NewProduction()
	}
	defer logger.Sync()

	opts, err := job.DefaultOptions()
	if args.Config != "" {
		opts, err = job.LoadOptions(args.Config)
	}
	if err != nil {
		logger.Fatal("error loading options", zap.Error(err))
	}

	if args.Output != "" {
		opts.Output = args.Output
	}
	if args.Shards > 0 {
		opts.ShardCount = args.Shards
	}
	if args.Workers > 0 {
		opts.EmissionWorkers = args.Workers
	}
	if args.SplitLines > 0 {
		opts.SplitLines = args.SplitLines
	}
	switch {
	case args.CombinerEntries > 0:
		opts.CombinerEntries = args.CombinerEntries
	case args.CombinerEntries < 0:
		opts.CombinerEntries = 0
	}
	if args.SkipMalformed {
		opts.SkipMalformed = true
	}
	if args.WorkDir != "" {
		opts.WorkDir = args.WorkDir
	}
	if args.KeepWorkDir {
		opts.KeepWorkDir = true
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logger.Info("starting",
		zap.Strings("inputs", args.Inputs),
		zap.String("output", opts.Output),
		zap.Int("shards", opts.ShardCount),
		zap.Int("workers", opts.EmissionWorkers))

	summary, err := job.Run(ctx, opts, args.Inputs, logger)
	if err != nil {
		for _, se := range job.ShardErrors(err) {
			logger.Error("shard failed, re-run the job to retry it", zap.Int("shard", se.Shard), zap.Error(se.Err))
		}
		logger.Fatal("job failed", zap.Error(err))
	}

	logger.Info("done",
		zap.String("records", humanize.Comma(int64(summary.Records))),
		zap.String("results", humanize.Comma(int64(summary.Results()))),
		zap.Duration("map", summary.MapDuration),
		zap.Duration("reduce", summary.ReduceDuration))
}
