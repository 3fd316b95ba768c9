package condprob

import "fmt"

// RecordFormatError is returned by the Emitter for a record that is not text.
type RecordFormatError struct {
	Source string
	Line   int
	Reason string
}

func (e *RecordFormatError) Error() string {
	return fmt.Sprintf("malformed record %s:%d: %s", e.Source, e.Line, e.Reason)
}

// OrderingViolationError means a group arrived at or before the position of the group
// preceding it in the shard stream, e.g. a class group ahead of its token's Total group.
// The shard's output is unusable.
type OrderingViolationError struct {
	Shard int
	Prev  GroupKey
	Key   GroupKey
}

func (e *OrderingViolationError) Error() string {
	return fmt.Sprintf("shard %d: group %s arrived after %s", e.Shard, e.Key, e.Prev)
}

// MissingTotalError means a class group has no Total group anywhere before it in the shard
// stream, which points at routing (the total went to another shard or was never emitted).
type MissingTotalError struct {
	Shard int
	Key   GroupKey
}

func (e *MissingTotalError) Error() string {
	return fmt.Sprintf("shard %d: no total for %s", e.Shard, e.Key)
}

// DivideByZeroAnomaly means a token's total is zero although a class group exists for it.
type DivideByZeroAnomaly struct {
	Shard int
	Key   GroupKey
	Count float64
}

func (e *DivideByZeroAnomaly) Error() string {
	return fmt.Sprintf("shard %d: total for %s is zero with class count %v", e.Shard, e.Key, e.Count)
}

// UnknownClassError means a group carries a category the schema does not define.
type UnknownClassError struct {
	Shard  int
	Key    GroupKey
	Schema string
}

func (e *UnknownClassError) Error() string {
	return fmt.Sprintf("shard %d: class of %s is not defined by schema %s", e.Shard, e.Key, e.Schema)
}
