package condprob

import "fmt"

// GroupKey identifies an aggregation group. Equality covers both fields, partitioning
// only looks at Token.
type GroupKey struct {
	Token string
	Class ClassTag
}

// TotalKey is the wildcard key for token.
func TotalKey(token string) GroupKey {
	return GroupKey{Token: token, Class: Total()}
}

// CategoryKey is the key for token and a concrete class value.
func CategoryKey(token string, v int) GroupKey {
	return GroupKey{Token: token, Class: Category(v)}
}

// String renders the key as "(token, label)".
func (k GroupKey) String() string {
	return fmt.Sprintf("(%s, %s)", k.Token, k.Class)
}

// Fact is one count contribution for a key.
type Fact struct {
	Token string
	Class ClassTag
	Count float64
}

// Key returns the grouping key of the fact.
func (f Fact) Key() GroupKey {
	return GroupKey{Token: f.Token, Class: f.Class}
}
