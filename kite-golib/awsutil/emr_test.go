package awsutil

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEMRWriterReader(t *testing.T) {
	numRecords := 3

	var b bytes.Buffer
	w := NewEMRWriter(&b)
	for i := 0; i < numRecords; i++ {
		err := w.Emit(fmt.Sprintf("%d", i), []byte(fmt.Sprintf("hello %d", i)))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	var i int
	r := NewEMRReader(&b)
	for {
		key, value, err := r.Read()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprintf("%d", i), key, "key mismatch")
		assert.Equal(t, fmt.Sprintf("hello %d", i), string(value), "value mismatch")
		i++
	}

	assert.Equal(t, numRecords, i, "record count mismatch")
}

func TestEMRIteratorWithTag(t *testing.T) {
	var b bytes.Buffer
	w := NewEMRWriter(&b)
	require.NoError(t, w.EmitWithTag("ab", 0, []byte("2")))
	require.NoError(t, w.EmitWithTag("ab", 2, []byte("1")))
	require.NoError(t, w.Emit("cd", []byte("untagged")))
	require.NoError(t, w.Close())

	r := NewEMRIterator(&b)

	require.True(t, r.Next())
	assert.Equal(t, "ab", r.Key())
	assert.Equal(t, 0, r.Tag())
	assert.Equal(t, "2", string(r.Value()))

	require.True(t, r.Next())
	assert.Equal(t, 2, r.Tag())
	assert.Equal(t, 2, r.Line())

	require.True(t, r.Next())
	assert.Equal(t, "cd", r.Key())
	assert.Equal(t, 0, r.Tag())
	assert.Equal(t, "untagged", string(r.Value()))

	assert.False(t, r.Next())
	assert.NoError(t, r.Err())
}

func TestEMRWriterRejectsBadKeys(t *testing.T) {
	w := NewEMRWriter(io.Discard)
	assert.Error(t, w.Emit("a\tb", nil))
	assert.Error(t, w.EmitWithTag("a\nb", 1, nil))
	assert.Error(t, w.EmitWithTag("ab", -1, nil))
}

func TestEMRIteratorMalformed(t *testing.T) {
	for _, in := range []string{
		"no-tabs-here\n",
		"key\tx\tdmFsdWU=\n",
		"key\t1\t!!notbase64\n",
		"a\tb\tc\td\n",
	} {
		r := NewEMRIterator(strings.NewReader(in))
		assert.False(t, r.Next(), in)
		assert.Error(t, r.Err(), in)
	}
}
