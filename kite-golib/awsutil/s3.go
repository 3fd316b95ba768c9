package awsutil

import (
	"io"
	"io/ioutil"
	"net/url"
	"os"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/pkg/errors"
)

// IsS3URI returns true if the path is an s3 uri.
func IsS3URI(path string) bool {
	return strings.HasPrefix(path, "s3://")
}

// ValidateURI checks whether the given uri points to S3.
func ValidateURI(uri string) (*url.URL, error) {
	s3url, err := url.Parse(uri)
	if err != nil {
		return nil, err
	}
	if s3url.Scheme != "s3" {
		return nil, errors.Errorf("url %s is not a s3 path", uri)
	}
	if s3url.Host == "" {
		return nil, errors.Errorf("url %s has no bucket", uri)
	}
	return s3url, nil
}

// NewS3Reader opens the object at uri, of the form s3://bucket-name/path/to/object.
func NewS3Reader(uri string) (io.ReadCloser, error) {
	bucket, key, err := splitURI(uri)
	if err != nil {
		return nil, err
	}
	client, err := clientFor(bucket)
	if err != nil {
		return nil, err
	}

	out, err := client.GetObject(&s3.GetObjectInput{Bucket: aws.String(bucket), Key: aws.String(key)})
	if err != nil {
		return nil, errors.Wrapf(err, "error getting %s", uri)
	}
	return out.Body, nil
}

// S3ListObjects returns the uris of the objects under the prefix uri. Empty objects are
// skipped, they usually stand for directories.
func S3ListObjects(uri string) ([]string, error) {
	bucket, prefix, err := splitURI(uri)
	if err != nil {
		return nil, err
	}
	client, err := clientFor(bucket)
	if err != nil {
		return nil, err
	}

	var uris []string
	input := &s3.ListObjectsV2Input{Bucket: aws.String(bucket), Prefix: aws.String(prefix)}
	err = client.ListObjectsV2Pages(input, func(page *s3.ListObjectsV2Output, last bool) bool {
		for _, obj := range page.Contents {
			if aws.Int64Value(obj.Size) == 0 {
				continue
			}
			uris = append(uris, "s3://"+bucket+"/"+aws.StringValue(obj.Key))
		}
		return true
	})
	if err != nil {
		return nil, errors.Wrapf(err, "error listing objects in %s", uri)
	}
	return uris, nil
}

// S3DeleteObject removes the object at uri.
func S3DeleteObject(uri string) error {
	bucket, key, err := splitURI(uri)
	if err != nil {
		return err
	}
	client, err := clientFor(bucket)
	if err != nil {
		return err
	}

	_, err = client.DeleteObject(&s3.DeleteObjectInput{Bucket: aws.String(bucket), Key: aws.String(key)})
	return errors.Wrapf(err, "error deleting %s", uri)
}

func splitURI(uri string) (string, string, error) {
	u, err := ValidateURI(uri)
	if err != nil {
		return "", "", err
	}
	return u.Host, strings.TrimPrefix(u.Path, "/"), nil
}

// NamedWriteCloser is a file-like object extending io.WriteCloser with a string Name() similar to os.File.Name()
type NamedWriteCloser interface {
	io.WriteCloser
	Name() string
}

// Discarder is implemented by writers that can abandon their output instead of
// publishing it on Close.
type Discarder interface {
	Discard() error
}

// bufferedS3Writer spools to a local temporary file and uploads it on Close.
type bufferedS3Writer struct {
	f      *os.File
	uri    string
	bucket string
	key    string
}

// NewBufferedS3Writer returns a writer for the object at uri. Nothing is uploaded until
// Close.
func NewBufferedS3Writer(uri string) (NamedWriteCloser, error) {
	bucket, key, err := splitURI(uri)
	if err != nil {
		return nil, err
	}

	f, err := ioutil.TempFile("", "s3buffer")
	if err != nil {
		return nil, errors.Wrapf(err, "error creating buffer for %s", uri)
	}
	return bufferedS3Writer{f: f, uri: uri, bucket: bucket, key: key}, nil
}

func (w bufferedS3Writer) Write(p []byte) (int, error) {
	return w.f.Write(p)
}

// Close uploads the buffered data and removes the local buffer.
func (w bufferedS3Writer) Close() error {
	defer os.Remove(w.f.Name())
	defer w.f.Close()

	if _, err := w.f.Seek(0, io.SeekStart); err != nil {
		return err
	}
	client, err := clientFor(w.bucket)
	if err != nil {
		return err
	}

	_, err = client.PutObject(&s3.PutObjectInput{
		Bucket: aws.String(w.bucket),
		Key:    aws.String(w.key),
		Body:   w.f,
	})
	return errors.Wrapf(err, "error uploading %s", w.uri)
}

// Discard drops the buffered data without uploading it.
func (w bufferedS3Writer) Discard() error {
	defer os.Remove(w.f.Name())
	return w.f.Close()
}

func (w bufferedS3Writer) Name() string {
	return w.uri
}

// --

var (
	clientsMu sync.Mutex
	clients   = make(map[string]*s3.S3)
)

// clientFor returns a client for the region the bucket lives in. Clients are cached per
// bucket.
func clientFor(bucket string) (*s3.S3, error) {
	clientsMu.Lock()
	defer clientsMu.Unlock()
	if c, ok := clients[bucket]; ok {
		return c, nil
	}

	sess, err := session.NewSession()
	if err != nil {
		return nil, errors.Wrap(err, "error creating aws session")
	}
	loc, err := s3.New(sess, aws.NewConfig().WithRegion("us-west-1")).GetBucketLocation(&s3.GetBucketLocationInput{
		Bucket: aws.String(bucket),
	})
	if err != nil {
		return nil, errors.Wrapf(err, "unable to determine region for bucket %s", bucket)
	}

	// an empty constraint means us-east-1
	region := aws.StringValue(loc.LocationConstraint)
	if region == "" {
		region = "us-east-1"
	}
	c := s3.New(sess, aws.NewConfig().WithRegion(region))
	clients[bucket] = c
	return c, nil
}
