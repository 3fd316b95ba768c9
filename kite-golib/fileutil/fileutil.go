package fileutil

import (
	"compress/gzip"
	"fmt"
	"io"
	"io/ioutil"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/kiteco/condprob/kite-golib/awsutil"
	"github.com/pkg/errors"
)

// NewReader opens a local or remote path for reading. If the path looks like
// "s3://bucket/path/to/object" then this will read an object from S3. Otherwise, this
// will read a path from the local filesystem. Paths ending in ".gz" are decompressed.
func NewReader(path string) (io.ReadCloser, error) {
	var r io.ReadCloser
	var err error
	if awsutil.IsS3URI(path) {
		r, err = awsutil.NewS3Reader(path)
	} else {
		r, err = os.Open(path)
	}
	if err != nil {
		return nil, err
	}

	if !strings.HasSuffix(path, ".gz") {
		return r, nil
	}

	gz, err := gzip.NewReader(r)
	if err != nil {
		r.Close()
		return nil, errors.Wrapf(err, "error opening gzip reader for %s", path)
	}
	return &gzipReadCloser{gz: gz, under: r}, nil
}

type gzipReadCloser struct {
	gz    *gzip.Reader
	under io.Closer
}

func (g *gzipReadCloser) Read(p []byte) (int, error) {
	return g.gz.Read(p)
}

func (g *gzipReadCloser) Close() error {
	err := g.gz.Close()
	if cerr := g.under.Close(); err == nil {
		err = cerr
	}
	return err
}

// NamedWriteCloser is a file-like object extending io.WriteCloser with a string Name() similar to os.File.Name()
type NamedWriteCloser = awsutil.NamedWriteCloser

// NewBufferedWriter opens a local or remote path for writing. If the path starts with
// "s3://", then this will write to a local buffer, copying to s3 on close. Otherwise,
// this will write to the local FS.
func NewBufferedWriter(path string) (NamedWriteCloser, error) {
	if awsutil.IsS3URI(path) {
		return awsutil.NewBufferedS3Writer(path)
	}
	err := os.MkdirAll(filepath.Dir(path), 0755)
	if err != nil {
		return nil, err
	}
	return os.Create(path)
}

// Rename moves a completed local file into place. Remote paths are written in place
// by NewBufferedWriter, so renaming them is a no-op.
func Rename(from, to string) error {
	if awsutil.IsS3URI(from) || awsutil.IsS3URI(to) {
		if from != to {
			return fmt.Errorf("cannot rename remote path %s to %s", from, to)
		}
		return nil
	}
	return os.Rename(from, to)
}

// Remove deletes a local file or an s3 object.
func Remove(path string) error {
	if awsutil.IsS3URI(path) {
		return awsutil.S3DeleteObject(path)
	}
	return os.Remove(path)
}

// ListDir returns the fully qualified names for the members
// of the provided directory, sorted. If the directory is local these
// will simply be the paths, if the directory is on s3 then
// these will be the uris of the objects under the prefix.
func ListDir(path string) ([]string, error) {
	if awsutil.IsS3URI(path) {
		uris, err := awsutil.S3ListObjects(strings.TrimSuffix(path, "/") + "/")
		if err != nil {
			return nil, fmt.Errorf("error reading from s3 path %s: %v", path, err)
		}
		sort.Strings(uris)
		return uris, nil
	}

	entries, err := ioutil.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("error reading dir %s: %v", path, err)
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		paths = append(paths, Join(path, entry.Name()))
	}
	return paths, nil
}

// IsDir returns true if path is a local directory or an s3 prefix ending in "/".
func IsDir(path string) bool {
	if awsutil.IsS3URI(path) {
		return strings.HasSuffix(path, "/")
	}
	fi, err := os.Stat(path)
	return err == nil && fi.IsDir()
}
