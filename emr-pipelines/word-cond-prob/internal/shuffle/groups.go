package shuffle

import (
	"io"

	"github.com/kiteco/condprob/emr-pipelines/word-cond-prob/internal/condprob"
)

type factSource interface {
	Next() bool
	Fact() condprob.Fact
	Err() error
}

// groups collects consecutive facts with equal keys into a single group.
type groups struct {
	src factSource

	group      condprob.Group
	pending    condprob.Fact
	hasPending bool
	err        error
}

func newGroups(src factSource) *groups {
	return &groups{src: src}
}

// NewStreamGroups groups a stream of tagged EMR records that is already sorted by key and
// tag, as a Hadoop streaming reducer receives it on stdin.
func NewStreamGroups(r io.Reader) condprob.GroupIterator {
	return newGroups(NewFactReader("stdin", r))
}

func (g *groups) Next() bool {
	if g.err != nil {
		return false
	}
	if !g.hasPending {
		if !g.src.Next() {
			g.err = g.src.Err()
			return false
		}
		g.pending = g.src.Fact()
	}
	g.hasPending = false

	key := g.pending.Key()
	g.group = condprob.Group{Key: key, Counts: []float64{g.pending.Count}}
	for g.src.Next() {
		f := g.src.Fact()
		if f.Key() != key {
			g.pending, g.hasPending = f, true
			return true
		}
		g.group.Counts = append(g.group.Counts, f.Count)
	}
	if err := g.src.Err(); err != nil {
		// never hand out a group that may be missing counts
		g.err = err
		return false
	}
	return true
}

func (g *groups) Group() condprob.Group { return g.group }

func (g *groups) Err() error { return g.err }
