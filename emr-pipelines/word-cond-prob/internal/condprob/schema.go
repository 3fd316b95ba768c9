package condprob

import (
	"unicode/utf8"

	"github.com/pkg/errors"
)

// Schema describes the key being aggregated: which field holds the token, which holds the
// class, the legal class values, and how a line is assigned a class. A Schema is built once
// at startup and handed to the Emitter and every Aggregator.
type Schema struct {
	Name       string
	TokenField string
	ClassField string
	// Classes lists every legal category value.
	Classes []int
	// ClassOf assigns a category to a line.
	ClassOf func(line string) int
}

// EvenOrOddSchema classifies lines by the parity of their length in characters.
func EvenOrOddSchema() Schema {
	return Schema{
		Name:       "EvenOrOdd",
		TokenField: "Token",
		ClassField: "EvenOrOdd",
		Classes:    []int{0, 1},
		ClassOf: func(line string) int {
			return utf8.RuneCountInString(line) % 2
		},
	}
}

// Validate checks that the schema can be used.
func (s Schema) Validate() error {
	if s.ClassOf == nil {
		return errors.Errorf("schema %s: ClassOf is required", s.Name)
	}
	if len(s.Classes) == 0 {
		return errors.Errorf("schema %s: no classes", s.Name)
	}
	seen := make(map[int]bool, len(s.Classes))
	for _, c := range s.Classes {
		if c < 0 {
			return errors.Errorf("schema %s: class %d is negative", s.Name, c)
		}
		if seen[c] {
			return errors.Errorf("schema %s: class %d listed twice", s.Name, c)
		}
		seen[c] = true
	}
	return nil
}

// Allows reports whether tag is Total or one of the schema's classes.
func (s Schema) Allows(tag ClassTag) bool {
	v, ok := tag.Value()
	if !ok {
		return true
	}
	for _, c := range s.Classes {
		if c == v {
			return true
		}
	}
	return false
}

// ClassFor returns the class of a line.
func (s Schema) ClassFor(line string) (ClassTag, error) {
	v := s.ClassOf(line)
	if v < 0 {
		return ClassTag{}, errors.Errorf("schema %s: line assigned negative class %d", s.Name, v)
	}
	tag := Category(v)
	if !s.Allows(tag) {
		return ClassTag{}, errors.Errorf("schema %s: line assigned unknown class %d", s.Name, v)
	}
	return tag, nil
}
