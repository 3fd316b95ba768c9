package condprob

import (
	lru "github.com/hashicorp/golang-lru"
	"github.com/pkg/errors"
)

// Combiner pre-aggregates facts in a bounded LRU before they leave a map task. It only
// sums counts of identical keys; it never divides, since a token's total is not known
// until every map task has reported.
type Combiner struct {
	cache *lru.Cache
	out   func(Fact) error
	err   error
}

// NewCombiner returns a Combiner holding at most size keys. Entries pushed out of the
// cache, and all entries on Flush, are sent to out.
func NewCombiner(size int, out func(Fact) error) (*Combiner, error) {
	c := &Combiner{out: out}
	cache, err := lru.NewWithEvict(size, func(k, v interface{}) {
		if c.err != nil {
			return
		}
		key := k.(GroupKey)
		c.err = c.out(Fact{Token: key.Token, Class: key.Class, Count: v.(float64)})
	})
	if err != nil {
		return nil, errors.Wrapf(err, "error creating combiner of size %d", size)
	}
	c.cache = cache
	return c, nil
}

// Add merges f into the combiner.
func (c *Combiner) Add(f Fact) error {
	if c.err != nil {
		return c.err
	}
	key := f.Key()
	count := f.Count
	if prev, ok := c.cache.Get(key); ok {
		count += prev.(float64)
	}
	c.cache.Add(key, count)
	return c.err
}

// Len is the number of keys currently held.
func (c *Combiner) Len() int {
	return c.cache.Len()
}

// Flush sends every held entry downstream and empties the combiner.
func (c *Combiner) Flush() error {
	c.cache.Purge()
	return c.err
}
