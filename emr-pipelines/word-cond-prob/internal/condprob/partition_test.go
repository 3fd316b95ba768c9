package condprob

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPartitionIgnoresClass(t *testing.T) {
	tokens := []string{"", "a", "ab", "admirable", "admiral", "Émile", "x,y", "the"}
	for i := 0; i < 200; i++ {
		tokens = append(tokens, fmt.Sprintf("token-%d", i))
	}

	for _, shards := range []int{1, 2, 3, 10, 64, 1000} {
		for _, tok := range tokens {
			p := Partition(TotalKey(tok), shards)
			assert.True(t, p >= 0 && p < shards)
			assert.Equal(t, p, Partition(CategoryKey(tok, 0), shards), "token %q shards %d", tok, shards)
			assert.Equal(t, p, Partition(CategoryKey(tok, 1), shards), "token %q shards %d", tok, shards)
			assert.Equal(t, p, PartitionToken(tok, shards))
		}
	}
}

func TestPartitionStable(t *testing.T) {
	// spooky hashes are fixed across processes, so shard assignments are too
	a := Partition(TotalKey("admirable"), 10)
	for i := 0; i < 10; i++ {
		assert.Equal(t, a, Partition(CategoryKey("admirable", i%2), 10))
	}
}

func TestPartitionSpreads(t *testing.T) {
	counts := make(map[int]int)
	for i := 0; i < 1000; i++ {
		counts[PartitionToken(fmt.Sprintf("w%d", i), 4)]++
	}
	assert.Len(t, counts, 4)
}

func TestPartitionBadShards(t *testing.T) {
	assert.Panics(t, func() { Partition(TotalKey("a"), 0) })
}
