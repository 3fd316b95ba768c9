package condprob

import (
	"sort"
	"strings"
)

// Compare orders keys by token, then by class rank, so that within a token the Total
// group comes before every class group. Shard streams must be sorted by Compare;
// the Aggregator relies on it to divide by a total it has already seen.
func Compare(a, b GroupKey) int {
	if c := strings.Compare(a.Token, b.Token); c != 0 {
		return c
	}
	switch ra, rb := a.Class.Rank(), b.Class.Rank(); {
	case ra < rb:
		return -1
	case ra > rb:
		return 1
	}
	return 0
}

// Less reports whether a sorts before b.
func Less(a, b GroupKey) bool {
	return Compare(a, b) < 0
}

// SortKeys sorts keys by Compare.
func SortKeys(keys []GroupKey) {
	sort.Slice(keys, func(i, j int) bool {
		return Less(keys[i], keys[j])
	})
}

// SortFacts sorts facts by the Compare order of their keys.
func SortFacts(facts []Fact) {
	sort.SliceStable(facts, func(i, j int) bool {
		return Less(facts[i].Key(), facts[j].Key())
	})
}
