package main

import (
	"os"
	"time"

	"github.com/kiteco/condprob/emr-pipelines/word-cond-prob/internal/shuffle"
	"github.com/kiteco/condprob/kite-golib/envutil"
	"github.com/kiteco/condprob/kite-golib/kitelog"
	"go.uber.org/zap"
)

// Emits one Total and one class fact per token of every input line.
// Input: text lines on stdin.
// Output: tagged EMR records, key = token, tag = class rank (0 for Total), value = count.
// CONDPROB_COMBINER_ENTRIES sizes the combiner (0 disables it) and CONDPROB_SKIP_MALFORMED
// drops lines that are not text instead of failing the task.
//
// Run with
//   -partitioner org.apache.hadoop.mapred.lib.KeyFieldBasedPartitioner
//   -D stream.num.map.output.key.fields=2
//   -D mapreduce.partition.keypartitioner.options=-k1,1
//   -D mapreduce.job.output.key.comparator.class=org.apache.hadoop.mapreduce.lib.partition.KeyFieldBasedComparator
//   -D mapreduce.partition.keycomparator.options="-k1,1 -k2,2n"
// so that a token's Total arrives at its reducer ahead of its classes.
func main() {
	start := time.Now()
	logger := kitelog.NewStderr("word-cond-prob-mapper")
	defer logger.Sync()

	combinerEntries, err := envutil.GetenvDefaultInt("CONDPROB_COMBINER_ENTRIES", 1<<16)
	if err != nil {
		logger.Fatal("bad combiner size", zap.Error(err))
	}
	skipMalformed, err := envutil.GetenvDefaultBool("CONDPROB_SKIP_MALFORMED", false)
	if err != nil {
		logger.Fatal("bad skip setting", zap.Error(err))
	}

	stats, err := shuffle.MapLines(os.Stdin, os.Stdout, shuffle.MapOptions{
		CombinerEntries: combinerEntries,
		SkipMalformed:   skipMalformed,
	})
	if err != nil {
		logger.Fatal("error mapping", zap.Int("lines", stats.Lines), zap.Error(err))
	}
	logger.Info("done",
		zap.Int("lines", stats.Lines),
		zap.Int("malformed", stats.Malformed),
		zap.Int("facts", stats.Facts),
		zap.Duration("took", time.Since(start)))
}
