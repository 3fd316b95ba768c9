package condprob

import (
	"context"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

// Group is every count contributed to one key, as delivered by the shard stream.
type Group struct {
	Key    GroupKey
	Counts []float64
}

// Sum of the group's counts.
func (g Group) Sum() float64 {
	var sum float64
	for _, c := range g.Counts {
		sum += c
	}
	return sum
}

// GroupIterator yields a shard's groups in Compare order.
type GroupIterator interface {
	Next() bool
	Group() Group
	Err() error
}

// Result is one output record: a token's total count, or P(class | token).
type Result struct {
	Token string
	Class ClassTag
	Value float64
}

// Key of the result.
func (r Result) Key() GroupKey {
	return GroupKey{Token: r.Token, Class: r.Class}
}

// AggregateStats counts what an Aggregator did.
type AggregateStats struct {
	Groups        int
	Totals        int
	Probabilities int
	MissingTotals int
}

// Aggregator resolves one shard's ordered group stream into results. It moves through
// two states per token: awaiting the Total group, then holding the total while the
// token's class groups are divided by it. An Aggregator processes a single shard, once.
type Aggregator struct {
	schema Schema
	shard  int
	totals *RunningTotal

	prev    GroupKey
	hasPrev bool
	used    bool

	stats AggregateStats
}

// NewAggregator returns the Aggregator for shard.
func NewAggregator(schema Schema, shard int) (*Aggregator, error) {
	if err := schema.Validate(); err != nil {
		return nil, err
	}
	return &Aggregator{
		schema: schema,
		shard:  shard,
		totals: NewRunningTotal(),
	}, nil
}

// Stats returns counters for the groups seen so far.
func (a *Aggregator) Stats() AggregateStats {
	return a.stats
}

// Aggregate consumes groups and sends a Result for each resolvable group to emit.
//
// A MissingTotalError is recorded for every class group without a total and processing
// continues, so unrelated tokens still produce results. Ordering violations, zero totals,
// unknown classes, iterator or emit failures, and context cancellation stop processing;
// the shard must then be re-run from the start. All errors are returned combined.
func (a *Aggregator) Aggregate(ctx context.Context, groups GroupIterator, emit func(Result) error) error {
	if a.used {
		return errors.Errorf("shard %d: aggregator already used", a.shard)
	}
	a.used = true

	var errs error
	for groups.Next() {
		if err := ctx.Err(); err != nil {
			return multierr.Append(errs, err)
		}

		res, err := a.Reduce(groups.Group())
		if err != nil {
			var missing *MissingTotalError
			if errors.As(err, &missing) {
				errs = multierr.Append(errs, err)
				continue
			}
			return multierr.Append(errs, err)
		}

		if err := emit(res); err != nil {
			return multierr.Append(errs, errors.Wrapf(err, "shard %d: error emitting %s", a.shard, res.Key()))
		}
	}
	if err := groups.Err(); err != nil {
		return multierr.Append(errs, errors.Wrapf(err, "shard %d: error reading groups", a.shard))
	}
	return errs
}

// Reduce resolves a single group. Groups must be passed in Compare order.
func (a *Aggregator) Reduce(g Group) (Result, error) {
	key := g.Key
	if a.hasPrev && Compare(a.prev, key) >= 0 {
		return Result{}, &OrderingViolationError{Shard: a.shard, Prev: a.prev, Key: key}
	}
	if a.hasPrev && a.prev.Token != key.Token {
		a.totals.Evict(a.prev.Token)
	}
	a.prev, a.hasPrev = key, true
	a.stats.Groups++

	if !a.schema.Allows(key.Class) {
		return Result{}, &UnknownClassError{Shard: a.shard, Key: key, Schema: a.schema.Name}
	}

	sum := g.Sum()
	if key.Class.IsTotal() {
		if err := a.totals.Put(key.Token, sum); err != nil {
			return Result{}, errors.Wrapf(err, "shard %d", a.shard)
		}
		a.stats.Totals++
		return Result{Token: key.Token, Class: key.Class, Value: sum}, nil
	}

	total, ok := a.totals.Get(key.Token)
	if !ok {
		a.stats.MissingTotals++
		return Result{}, &MissingTotalError{Shard: a.shard, Key: key}
	}
	if total == 0 {
		return Result{}, &DivideByZeroAnomaly{Shard: a.shard, Key: key, Count: sum}
	}

	a.stats.Probabilities++
	return Result{Token: key.Token, Class: key.Class, Value: sum / total}, nil
}

// --

type sliceGroups struct {
	groups []Group
	i      int
}

// NewSliceGroups iterates over groups held in memory, in the order given.
func NewSliceGroups(groups []Group) GroupIterator {
	return &sliceGroups{groups: groups, i: -1}
}

func (s *sliceGroups) Next() bool {
	if s.i+1 >= len(s.groups) {
		return false
	}
	s.i++
	return true
}

func (s *sliceGroups) Group() Group { return s.groups[s.i] }

func (s *sliceGroups) Err() error { return nil }

// GroupFacts sorts facts by Compare and collects the counts of equal keys into groups.
// It is the in-memory equivalent of a shard's sort and group step.
func GroupFacts(facts []Fact) []Group {
	sorted := append([]Fact(nil), facts...)
	SortFacts(sorted)

	var groups []Group
	for _, f := range sorted {
		if n := len(groups); n > 0 && groups[n-1].Key == f.Key() {
			groups[n-1].Counts = append(groups[n-1].Counts, f.Count)
			continue
		}
		groups = append(groups, Group{Key: f.Key(), Counts: []float64{f.Count}})
	}
	return groups
}
