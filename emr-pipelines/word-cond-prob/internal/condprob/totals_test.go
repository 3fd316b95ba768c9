package condprob

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunningTotal(t *testing.T) {
	rt := NewRunningTotal()

	_, ok := rt.Get("ab")
	assert.False(t, ok)

	require.NoError(t, rt.Put("ab", 2))
	assert.Error(t, rt.Put("ab", 3))

	v, ok := rt.Get("ab")
	assert.True(t, ok)
	assert.Equal(t, 2.0, v)
	assert.Equal(t, 1, rt.Len())

	rt.Evict("ab")
	assert.Equal(t, 0, rt.Len())
	rt.Evict("missing")
}
