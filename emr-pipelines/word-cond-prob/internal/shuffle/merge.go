package shuffle

import (
	"container/heap"
	"os"

	"github.com/golang/snappy"
	"github.com/kiteco/condprob/emr-pipelines/word-cond-prob/internal/condprob"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

// runCursor reads one run file and checks that it is sorted.
type runCursor struct {
	index  int
	file   *os.File
	reader *FactReader

	fact    condprob.Fact
	hasPrev bool
}

func (c *runCursor) advance() (bool, error) {
	prev := c.fact
	if !c.reader.Next() {
		return false, c.reader.Err()
	}
	c.fact = c.reader.Fact()
	if c.hasPrev && condprob.Compare(prev.Key(), c.fact.Key()) > 0 {
		return false, errors.Errorf("%s: %s sorted after %s", c.file.Name(), c.fact.Key(), prev.Key())
	}
	c.hasPrev = true
	return true, nil
}

type cursorHeap []*runCursor

func (h cursorHeap) Len() int { return len(h) }

func (h cursorHeap) Less(i, j int) bool {
	if c := condprob.Compare(h[i].fact.Key(), h[j].fact.Key()); c != 0 {
		return c < 0
	}
	return h[i].index < h[j].index
}

func (h cursorHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *cursorHeap) Push(x interface{}) { *h = append(*h, x.(*runCursor)) }

func (h *cursorHeap) Pop() interface{} {
	old := *h
	c := old[len(old)-1]
	old[len(old)-1] = nil
	*h = old[:len(old)-1]
	return c
}

// merger yields the facts of several sorted runs in Compare order.
type merger struct {
	cursors []*runCursor
	heap    cursorHeap
	started bool

	fact condprob.Fact
	err  error
}

func (m *merger) Next() bool {
	if m.err != nil {
		return false
	}
	if !m.started {
		m.started = true
		for _, c := range m.cursors {
			ok, err := c.advance()
			if err != nil {
				m.err = err
				return false
			}
			if ok {
				m.heap = append(m.heap, c)
			}
		}
		heap.Init(&m.heap)
	}
	if len(m.heap) == 0 {
		return false
	}

	c := m.heap[0]
	m.fact = c.fact
	ok, err := c.advance()
	switch {
	case err != nil:
		m.err = err
		return false
	case ok:
		heap.Fix(&m.heap, 0)
	default:
		heap.Pop(&m.heap)
	}
	return true
}

func (m *merger) Fact() condprob.Fact { return m.fact }

func (m *merger) Err() error { return m.err }

// MergedGroups is the group stream of a shard, merged from its runs.
type MergedGroups struct {
	*groups
	m *merger
}

// Merge opens the runs of a shard and merges them into a single stream of groups. The
// caller must Close the result.
func Merge(paths []string) (*MergedGroups, error) {
	m := &merger{}
	for i, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			for _, c := range m.cursors {
				c.file.Close()
			}
			return nil, errors.Wrapf(err, "error opening run %s", path)
		}
		m.cursors = append(m.cursors, &runCursor{
			index:  i,
			file:   f,
			reader: NewFactReader(path, snappy.NewReader(f)),
		})
	}
	return &MergedGroups{groups: newGroups(m), m: m}, nil
}

// Close releases the run files.
func (g *MergedGroups) Close() error {
	var err error
	for _, c := range g.m.cursors {
		err = multierr.Append(err, c.file.Close())
	}
	return err
}
