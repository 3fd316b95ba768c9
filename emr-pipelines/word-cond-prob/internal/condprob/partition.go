package condprob

import (
	"strconv"

	spooky "github.com/dgryski/go-spooky"
)

// Partition maps key to a shard in [0, shards). Only the token is hashed, so a token's
// Total group and all of its class groups land in the same shard. The hash is spooky,
// which is stable across processes and machines.
func Partition(key GroupKey, shards int) int {
	return PartitionToken(key.Token, shards)
}

// PartitionToken is Partition for a bare token.
func PartitionToken(token string, shards int) int {
	if shards <= 0 {
		panic("condprob: shard count must be positive, got " + strconv.Itoa(shards))
	}
	return int(spooky.Hash64([]byte(token)) % uint64(shards))
}
