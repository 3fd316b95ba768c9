package condprob

import (
	"strconv"

	"github.com/pkg/errors"
)

// TotalLabel is how the Total wildcard is rendered in keys and output.
const TotalLabel = "*"

// ClassTag is the class component of a GroupKey. It is either the Total wildcard,
// standing for all classes of a token combined, or a concrete non-negative category.
// The zero value is Total.
type ClassTag struct {
	// rank is 0 for Total and category+1 otherwise, so the natural order of ranks
	// puts Total before every category.
	rank int
}

// Total returns the wildcard tag.
func Total() ClassTag {
	return ClassTag{}
}

// Category returns the tag for a concrete class value, v must be non-negative.
func Category(v int) ClassTag {
	if v < 0 {
		panic("condprob: negative category " + strconv.Itoa(v))
	}
	return ClassTag{rank: v + 1}
}

// ClassFromRank inverts Rank.
func ClassFromRank(rank int) (ClassTag, error) {
	if rank < 0 {
		return ClassTag{}, errors.Errorf("invalid class rank %d", rank)
	}
	return ClassTag{rank: rank}, nil
}

// ParseClass parses the rendered form of a tag (see String).
func ParseClass(label string) (ClassTag, error) {
	if label == TotalLabel {
		return Total(), nil
	}
	v, err := strconv.Atoi(label)
	if err != nil || v < 0 {
		return ClassTag{}, errors.Errorf("invalid class label %q", label)
	}
	return Category(v), nil
}

// IsTotal reports whether c is the wildcard.
func (c ClassTag) IsTotal() bool {
	return c.rank == 0
}

// Value returns the category value; ok is false for Total.
func (c ClassTag) Value() (v int, ok bool) {
	if c.IsTotal() {
		return 0, false
	}
	return c.rank - 1, true
}

// Rank is the sort position of the tag within a token: Total is 0, Category(v) is v+1.
func (c ClassTag) Rank() int {
	return c.rank
}

// String renders Total as "*" and categories as their decimal value.
func (c ClassTag) String() string {
	if v, ok := c.Value(); ok {
		return strconv.Itoa(v)
	}
	return TotalLabel
}
