package job

import (
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/kiteco/condprob/emr-pipelines/word-cond-prob/internal/condprob"
	"github.com/kiteco/condprob/emr-pipelines/word-cond-prob/internal/shuffle"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func testOptions(t *testing.T, shards, workers int) Options {
	return Options{
		ShardCount:      shards,
		EmissionWorkers: workers,
		SplitLines:      2,
		CombinerEntries: 16,
		WorkDir:         t.TempDir(),
		Output:          filepath.Join(t.TempDir(), "out"),
	}
}

func writeInput(t *testing.T, dir, name, contents string) string {
	path := filepath.Join(dir, name)
	require.NoError(t, ioutil.WriteFile(path, []byte(contents), 0644))
	return path
}

func sortedResults(t *testing.T, dir string) []condprob.Result {
	results, err := ReadResults(dir)
	require.NoError(t, err)
	sort.Slice(results, func(i, j int) bool {
		return condprob.Less(results[i].Key(), results[j].Key())
	})
	return results
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func TestRunExample(t *testing.T) {
	in := writeInput(t, t.TempDir(), "input.txt", "ab cd\nab\n")
	opts := testOptions(t, 3, 2)

	summary, err := Run(context.Background(), opts, []string{in}, zap.NewNop())
	require.NoError(t, err)

	assert.Equal(t, []condprob.Result{
		{Token: "ab", Class: condprob.Total(), Value: 2},
		{Token: "ab", Class: condprob.Category(0), Value: 0.5},
		{Token: "ab", Class: condprob.Category(1), Value: 0.5},
		{Token: "cd", Class: condprob.Total(), Value: 1},
		{Token: "cd", Class: condprob.Category(1), Value: 1},
	}, sortedResults(t, opts.Output))

	assert.Equal(t, 1, summary.Inputs)
	assert.Equal(t, 2, summary.Records)
	assert.Equal(t, 1, summary.Splits)
	assert.Equal(t, 6, summary.Facts)
	assert.Equal(t, 5, summary.Spilled)
	assert.Equal(t, 5, summary.Results())
	require.Len(t, summary.Shards, 3)

	for shard := 0; shard < 3; shard++ {
		assert.True(t, exists(filepath.Join(opts.Output, PartName(shard))), "shard %d", shard)
		assert.NoError(t, summary.Shards[shard].Err)
	}
	assert.True(t, exists(filepath.Join(opts.Output, DoneFilename)))

	// spill dirs are removed
	entries, err := ioutil.ReadDir(opts.WorkDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRunOutputFormat(t *testing.T) {
	in := writeInput(t, t.TempDir(), "input.txt", "admirable\n")
	opts := testOptions(t, 1, 1)

	_, err := Run(context.Background(), opts, []string{in}, nil)
	require.NoError(t, err)

	buf, err := ioutil.ReadFile(filepath.Join(opts.Output, PartName(0)))
	require.NoError(t, err)
	assert.Equal(t, "(admirable, *)\t1.0\n(admirable, 1)\t1.0\n", string(buf))
}

func TestRunIndependentOfParallelism(t *testing.T) {
	dir := t.TempDir()
	corpus := []string{
		"to be or not to be",
		"that is the question",
		"whether tis nobler in the mind to suffer",
		"the slings and arrows of outrageous fortune",
		"or to take arms against a sea of troubles",
		"and by opposing end them",
		"to die to sleep",
		"no more and by a sleep to say we end",
	}
	in1 := writeInput(t, dir, "a.txt", strings.Join(corpus[:5], "\n"))

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	_, err := gz.Write([]byte(strings.Join(corpus[5:], "\r\n") + "\r\n"))
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	in2 := writeInput(t, dir, "b.txt.gz", buf.String())

	var expected []condprob.Result
	for _, cfg := range []struct{ shards, workers, split, combiner int }{
		{1, 1, 100, 0},
		{2, 4, 1, 0},
		{7, 3, 3, 2},
		{10, 8, 2, 1 << 16},
	} {
		t.Run(fmt.Sprintf("%+v", cfg), func(t *testing.T) {
			opts := testOptions(t, cfg.shards, cfg.workers)
			opts.SplitLines = cfg.split
			opts.CombinerEntries = cfg.combiner

			summary, err := Run(context.Background(), opts, []string{in1, in2}, zap.NewNop())
			require.NoError(t, err)
			assert.Equal(t, len(corpus), summary.Records)

			results := sortedResults(t, opts.Output)
			if expected == nil {
				expected = results
				return
			}
			assert.Equal(t, expected, results)
		})
	}

	require.NotEmpty(t, expected)
	sums := make(map[string]float64)
	for _, r := range expected {
		if !r.Class.IsTotal() {
			sums[r.Token] += r.Value
		}
	}
	for tok, sum := range sums {
		assert.InDelta(t, 1.0, sum, 1e-9, tok)
	}
}

func TestRunDirectoryInput(t *testing.T) {
	dir := t.TempDir()
	writeInput(t, dir, "a.txt", "ab cd\n")
	writeInput(t, dir, "b.txt", "ab\n")
	opts := testOptions(t, 2, 2)

	summary, err := Run(context.Background(), opts, []string{dir}, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Inputs)
	assert.Len(t, sortedResults(t, opts.Output), 5)
}

func TestRunCarriageReturns(t *testing.T) {
	in := writeInput(t, t.TempDir(), "input.txt", "ab\r\n")
	opts := testOptions(t, 1, 1)

	_, err := Run(context.Background(), opts, []string{in}, zap.NewNop())
	require.NoError(t, err)

	// "ab" has even length once the \r is dropped
	assert.Equal(t, []condprob.Result{
		{Token: "ab", Class: condprob.Total(), Value: 1},
		{Token: "ab", Class: condprob.Category(0), Value: 1},
	}, sortedResults(t, opts.Output))
}

func TestRunMalformed(t *testing.T) {
	in := writeInput(t, t.TempDir(), "input.txt", "ab\n\xff\xfe\nab cd\n")

	opts := testOptions(t, 2, 2)
	_, err := Run(context.Background(), opts, []string{in}, zap.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "input.txt:2")
	assert.False(t, exists(filepath.Join(opts.Output, DoneFilename)))

	opts = testOptions(t, 2, 2)
	opts.SkipMalformed = true
	summary, err := Run(context.Background(), opts, []string{in}, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Records)
	assert.Equal(t, 1, summary.Malformed)
	assert.Len(t, sortedResults(t, opts.Output), 5)
}

func TestRunCancelled(t *testing.T) {
	in := writeInput(t, t.TempDir(), "input.txt", "ab cd\nab\nef\n")
	opts := testOptions(t, 2, 1)
	opts.SplitLines = 1

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Run(ctx, opts, []string{in}, zap.NewNop())
	require.Error(t, err)
	assert.False(t, exists(filepath.Join(opts.Output, DoneFilename)))
}

func TestRunKeepWorkDir(t *testing.T) {
	in := writeInput(t, t.TempDir(), "input.txt", "ab cd\nab\n")
	opts := testOptions(t, 2, 1)
	opts.KeepWorkDir = true

	_, err := Run(context.Background(), opts, []string{in}, zap.NewNop())
	require.NoError(t, err)

	runs, err := filepath.Glob(filepath.Join(opts.WorkDir, "condprob-*", "*.run"))
	require.NoError(t, err)
	assert.NotEmpty(t, runs)
}

func TestRunNoInputs(t *testing.T) {
	_, err := Run(context.Background(), testOptions(t, 1, 1), []string{t.TempDir()}, zap.NewNop())
	assert.Error(t, err)
}

func TestReduceShardFailure(t *testing.T) {
	out := filepath.Join(t.TempDir(), "out")
	bad := writeInput(t, t.TempDir(), "bad.run", "this is not snappy")

	// a part from an earlier attempt
	require.NoError(t, os.MkdirAll(out, 0755))
	writeInput(t, out, PartName(0), "(stale, *)\t1.0\n")

	j := &job{
		opts:   Options{ShardCount: 2, Output: out},
		schema: condprob.EvenOrOddSchema(),
		logger: zap.NewNop(),
		runs:   [][]string{{bad}, nil},
	}

	summaries, err := j.reducePhase(context.Background())
	require.Error(t, err)

	shardErrs := ShardErrors(err)
	require.Len(t, shardErrs, 1)
	assert.Equal(t, 0, shardErrs[0].Shard)

	assert.Error(t, summaries[0].Err)
	assert.NoError(t, summaries[1].Err)
	assert.False(t, exists(filepath.Join(out, PartName(0))))
	assert.False(t, exists(filepath.Join(out, PartName(0)+".tmp")))
	assert.True(t, exists(filepath.Join(out, PartName(1))))
}

func TestRunReplacesEarlierOutput(t *testing.T) {
	in := writeInput(t, t.TempDir(), "input.txt", "ab cd\nab\n")
	out := filepath.Join(t.TempDir(), "out")

	opts := testOptions(t, 8, 2)
	opts.Output = out
	_, err := Run(context.Background(), opts, []string{in}, zap.NewNop())
	require.NoError(t, err)

	// an unfinished part from a crashed attempt
	writeInput(t, out, PartName(5)+".tmp", "(ab, *)\t9.0\n")

	opts = testOptions(t, 1, 2)
	opts.Output = out
	_, err = Run(context.Background(), opts, []string{in}, zap.NewNop())
	require.NoError(t, err)

	files, err := filepath.Glob(filepath.Join(out, "*"))
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{
		filepath.Join(out, PartName(0)),
		filepath.Join(out, DoneFilename),
	}, files)

	seen := make(map[condprob.GroupKey]int)
	for _, r := range sortedResults(t, out) {
		seen[r.Key()]++
	}
	assert.Len(t, seen, 5)
	for key, n := range seen {
		assert.Equal(t, 1, n, "%s", key)
	}
}

func TestFailedRunLeavesNoEarlierOutput(t *testing.T) {
	dir := t.TempDir()
	good := writeInput(t, dir, "good.txt", "ab cd\nab\n")
	bad := writeInput(t, dir, "bad.txt", "ab\n\xff\n")
	out := filepath.Join(t.TempDir(), "out")

	opts := testOptions(t, 3, 2)
	opts.Output = out
	_, err := Run(context.Background(), opts, []string{good}, zap.NewNop())
	require.NoError(t, err)

	_, err = Run(context.Background(), opts, []string{bad}, zap.NewNop())
	require.Error(t, err)

	files, err := filepath.Glob(filepath.Join(out, "*"))
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestReduceShardMissingTotals(t *testing.T) {
	sw, err := shuffle.NewSpillWriter(t.TempDir(), 0, 1, 0)
	require.NoError(t, err)
	for _, f := range []condprob.Fact{
		{Token: "lost", Class: condprob.Category(0), Count: 1},
		{Token: "lost", Class: condprob.Category(1), Count: 2},
	} {
		require.NoError(t, sw.Add(f))
	}
	runs, err := sw.Close()
	require.NoError(t, err)
	require.Len(t, runs, 1)

	core, logs := observer.New(zapcore.InfoLevel)
	j := &job{
		opts:   Options{ShardCount: 1, Output: filepath.Join(t.TempDir(), "out")},
		schema: condprob.EvenOrOddSchema(),
		logger: zap.New(core),
		runs:   [][]string{{runs[0].Path}},
	}

	summaries, err := j.reducePhase(context.Background())
	require.Error(t, err)
	require.Len(t, ShardErrors(err), 1)
	assert.Equal(t, 2, summaries[0].Stats.MissingTotals)

	entries := logs.FilterMessage("shard failed").All()
	require.Len(t, entries, 1)
	assert.EqualValues(t, 2, entries[0].ContextMap()["missing_totals"])
}
