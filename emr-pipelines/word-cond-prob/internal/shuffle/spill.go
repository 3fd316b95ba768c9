package shuffle

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/golang/snappy"
	"github.com/kiteco/condprob/emr-pipelines/word-cond-prob/internal/condprob"
	"github.com/pkg/errors"
)

// RunFileName is the name of the run file a map task writes for a shard.
func RunFileName(task, shard int) string {
	return fmt.Sprintf("task-%05d-shard-%05d.run", task, shard)
}

// Run is a sorted, snappy compressed file of facts for a single shard.
type Run struct {
	Task  int
	Shard int
	Path  string
	Facts int
}

// SpillWriter collects the facts of one map task, routes them to shards and writes one
// sorted run per non-empty shard on Close.
type SpillWriter struct {
	dir    string
	task   int
	shards int

	combiner *condprob.Combiner
	buffers  [][]condprob.Fact
	added    int
	closed   bool
}

// NewSpillWriter returns a SpillWriter for task. If combinerEntries is positive, facts are
// first summed per key in a combiner of that many entries.
func NewSpillWriter(dir string, task, shards, combinerEntries int) (*SpillWriter, error) {
	if shards <= 0 {
		return nil, errors.Errorf("shard count must be positive, got %d", shards)
	}
	s := &SpillWriter{
		dir:     dir,
		task:    task,
		shards:  shards,
		buffers: make([][]condprob.Fact, shards),
	}
	if combinerEntries > 0 {
		c, err := condprob.NewCombiner(combinerEntries, s.route)
		if err != nil {
			return nil, err
		}
		s.combiner = c
	}
	return s, nil
}

// Add accepts a fact emitted by the task.
func (s *SpillWriter) Add(f condprob.Fact) error {
	if s.closed {
		return errors.Errorf("task %d: spill writer is closed", s.task)
	}
	s.added++
	if s.combiner != nil {
		return s.combiner.Add(f)
	}
	return s.route(f)
}

// Added is the number of facts passed to Add.
func (s *SpillWriter) Added() int {
	return s.added
}

func (s *SpillWriter) route(f condprob.Fact) error {
	shard := condprob.Partition(f.Key(), s.shards)
	s.buffers[shard] = append(s.buffers[shard], f)
	return nil
}

// Close flushes the combiner and writes the runs, returning them in shard order.
func (s *SpillWriter) Close() ([]Run, error) {
	if s.closed {
		return nil, errors.Errorf("task %d: spill writer already closed", s.task)
	}
	s.closed = true

	if s.combiner != nil {
		if err := s.combiner.Flush(); err != nil {
			return nil, errors.Wrapf(err, "task %d: error flushing combiner", s.task)
		}
	}

	var runs []Run
	for shard, facts := range s.buffers {
		if len(facts) == 0 {
			continue
		}
		condprob.SortFacts(facts)

		path := filepath.Join(s.dir, RunFileName(s.task, shard))
		if err := writeRun(path, facts); err != nil {
			return nil, errors.Wrapf(err, "task %d: error writing run for shard %d", s.task, shard)
		}
		runs = append(runs, Run{Task: s.task, Shard: shard, Path: path, Facts: len(facts)})
		s.buffers[shard] = nil
	}
	return runs, nil
}

func writeRun(path string, facts []condprob.Fact) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	sw := snappy.NewBufferedWriter(f)
	fw := NewFactWriter(sw)
	for _, fact := range facts {
		if err := fw.Write(fact); err != nil {
			return err
		}
	}
	if err := fw.Flush(); err != nil {
		return err
	}
	if err := sw.Close(); err != nil {
		return err
	}
	return f.Close()
}
