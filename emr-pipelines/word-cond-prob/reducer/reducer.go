package main

import (
	"context"
	"os"
	"time"

	"github.com/kiteco/condprob/emr-pipelines/word-cond-prob/internal/shuffle"
	"github.com/kiteco/condprob/kite-golib/envutil"
	"github.com/kiteco/condprob/kite-golib/kitelog"
	"go.uber.org/zap"
)

// Divides each class count by its token's total.
// Input: tagged EMR records from the mapper, sorted by token then tag.
// Output: "(token, label)\tvalue" lines, label "*" for the token's total count.
func main() {
	start := time.Now()
	logger := kitelog.NewStderr("word-cond-prob-reducer")
	defer logger.Sync()

	// set by hadoop streaming for every task
	shard, err := envutil.GetenvDefaultInt("mapreduce_task_partition", 0)
	if err != nil {
		logger.Fatal("bad partition", zap.Error(err))
	}
	logger = logger.With(zap.Int("shard", shard))

	stats, err := shuffle.ReduceStream(context.Background(), os.Stdin, os.Stdout, shard)
	if err != nil {
		// the task must fail so that its partial output is discarded
		logger.Fatal("error aggregating", zap.Error(err), zap.Int("missing_totals", stats.MissingTotals))
	}

	logger.Info("done",
		zap.Int("groups", stats.Groups),
		zap.Int("totals", stats.Totals),
		zap.Int("probabilities", stats.Probabilities),
		zap.Duration("took", time.Since(start)))
}
