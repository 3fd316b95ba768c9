package condprob

import "github.com/pkg/errors"

// RunningTotal holds the totals of the tokens a shard's Aggregator has resolved. It belongs
// to exactly one Aggregator and is discarded with it; tokens carry no shard information, so
// one instance must never serve two shards.
type RunningTotal struct {
	totals map[string]float64
}

// NewRunningTotal returns an empty RunningTotal.
func NewRunningTotal() *RunningTotal {
	return &RunningTotal{totals: make(map[string]float64)}
}

// Put records the total of token. A token's total is recorded once.
func (r *RunningTotal) Put(token string, total float64) error {
	if _, ok := r.totals[token]; ok {
		return errors.Errorf("total for %q recorded twice", token)
	}
	r.totals[token] = total
	return nil
}

// Get returns the total of token.
func (r *RunningTotal) Get(token string) (float64, bool) {
	t, ok := r.totals[token]
	return t, ok
}

// Evict drops token once no more of its class groups can arrive.
func (r *RunningTotal) Evict(token string) {
	delete(r.totals, token)
}

// Len is the number of totals held.
func (r *RunningTotal) Len() int {
	return len(r.totals)
}
