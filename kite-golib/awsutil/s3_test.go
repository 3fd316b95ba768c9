package awsutil

import (
	"flag"
	"io/ioutil"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Tests that need network access and AWS credentials are skipped unless "go test -aws" is used.
var awsTests bool

func init() {
	flag.BoolVar(&awsTests, "aws", false, "run tests that rely on AWS connectivity and credentials")
}

func TestIsS3URI(t *testing.T) {
	assert.True(t, IsS3URI("s3://bucket/corpus/part-00000"))
	assert.False(t, IsS3URI("/data/corpus.txt"))
	assert.False(t, IsS3URI("corpus.txt.gz"))
}

func TestValidateURI(t *testing.T) {
	u, err := ValidateURI("s3://bucket/corpus/part-00000")
	require.NoError(t, err)
	assert.Equal(t, "bucket", u.Host)
	assert.Equal(t, "/corpus/part-00000", u.Path)

	_, err = ValidateURI("https://bucket/corpus")
	assert.Error(t, err)

	_, err = ValidateURI("s3:///corpus")
	assert.Error(t, err)
}

func TestSplitURI(t *testing.T) {
	bucket, key, err := splitURI("s3://bucket/corpus/part-00000")
	require.NoError(t, err)
	assert.Equal(t, "bucket", bucket)
	assert.Equal(t, "corpus/part-00000", key)

	bucket, key, err = splitURI("s3://bucket")
	require.NoError(t, err)
	assert.Equal(t, "bucket", bucket)
	assert.Equal(t, "", key)

	_, _, err = splitURI("/corpus")
	assert.Error(t, err)
}

func TestNewS3Reader(t *testing.T) {
	if !awsTests {
		t.Skip(`Use "go test -aws" to run tests that rely on AWS connectivity`)
	}

	r, err := NewS3Reader("s3://kite-data/experiments/testdata/abc.txt")
	require.NoError(t, err)
	defer r.Close()

	buf, err := ioutil.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "abc", string(buf))
}
