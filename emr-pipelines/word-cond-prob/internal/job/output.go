package job

import (
	"bufio"
	"fmt"
	"os"
	"path"
	"strings"

	"github.com/kiteco/condprob/emr-pipelines/word-cond-prob/internal/condprob"
	"github.com/kiteco/condprob/kite-golib/awsutil"
	"github.com/kiteco/condprob/kite-golib/fileutil"
	"github.com/pkg/errors"
)

const (
	// DoneFilename is the marker placed in the output directory once every shard
	// has been written.
	DoneFilename = "DONE"
)

// PartName is the output file of a shard.
func PartName(shard int) string {
	return fmt.Sprintf("part-%05d", shard)
}

// partWriter writes the results of a shard. Local parts are written to a ".tmp" file and
// renamed on Commit, remote parts are only uploaded on Commit, so a failed shard never
// leaves a part behind.
type partWriter struct {
	path  string
	final string
	wc    fileutil.NamedWriteCloser
	w     *bufio.Writer

	results int
}

func newPartWriter(dir string, shard int) (*partWriter, error) {
	final := fileutil.Join(dir, PartName(shard))
	path := final
	if !awsutil.IsS3URI(dir) {
		path += ".tmp"
		// a part left by an earlier attempt must not survive a failure of this one
		if err := os.Remove(final); err != nil && !os.IsNotExist(err) {
			return nil, errors.Wrapf(err, "error removing stale part %s", final)
		}
	}

	wc, err := fileutil.NewBufferedWriter(path)
	if err != nil {
		return nil, errors.Wrapf(err, "error creating writer '%s'", path)
	}
	return &partWriter{
		path:  path,
		final: final,
		wc:    wc,
		w:     bufio.NewWriter(wc),
	}, nil
}

func (p *partWriter) Write(r condprob.Result) error {
	p.w.WriteString(r.String())
	p.results++
	return p.w.WriteByte('\n')
}

func (p *partWriter) Commit() error {
	if err := p.w.Flush(); err != nil {
		p.Abort()
		return errors.Wrapf(err, "error writing %s", p.path)
	}
	if err := p.wc.Close(); err != nil {
		return errors.Errorf("error closing writer for '%s': %v", p.path, err)
	}
	if strings.HasSuffix(p.path, ".tmp") {
		if err := fileutil.Rename(p.path, p.final); err != nil {
			return errors.Errorf("unable to rename %s -> %s: %v", p.path, p.final, err)
		}
	}
	return nil
}

func (p *partWriter) Abort() {
	if d, ok := p.wc.(awsutil.Discarder); ok {
		d.Discard()
		return
	}
	p.wc.Close()
	os.Remove(p.path)
}

// cleanOutput removes the DONE marker and every part file, finished or not, left in dir
// by an earlier run. The marker goes first so that it never covers a partial clean.
func cleanOutput(dir string) error {
	if !awsutil.IsS3URI(dir) && !fileutil.IsDir(dir) {
		return nil
	}
	files, err := fileutil.ListDir(dir)
	if err != nil {
		return err
	}

	var parts []string
	for _, f := range files {
		name := path.Base(f)
		switch {
		case name == DoneFilename:
			if err := fileutil.Remove(f); err != nil {
				return errors.Wrapf(err, "error removing %s", f)
			}
		case strings.HasPrefix(name, "part-"):
			parts = append(parts, f)
		}
	}
	for _, f := range parts {
		if err := fileutil.Remove(f); err != nil {
			return errors.Wrapf(err, "error removing %s", f)
		}
	}
	return nil
}

func writeDoneFile(dir string) error {
	outf, err := fileutil.NewBufferedWriter(fileutil.Join(dir, DoneFilename))
	if err != nil {
		return err
	}

	if _, err := outf.Write([]byte("done")); err != nil {
		outf.Close()
		return err
	}
	return outf.Close()
}

// ReadResults reads every part file in dir, skipping the DONE marker.
func ReadResults(dir string) ([]condprob.Result, error) {
	files, err := fileutil.ListDir(dir)
	if err != nil {
		return nil, err
	}

	var results []condprob.Result
	for _, f := range files {
		if strings.HasSuffix(f, DoneFilename) || strings.HasSuffix(f, ".tmp") {
			continue
		}
		rs, err := readPart(f)
		if err != nil {
			return nil, err
		}
		results = append(results, rs...)
	}
	return results, nil
}

func readPart(path string) ([]condprob.Result, error) {
	r, err := fileutil.NewReader(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	var results []condprob.Result
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for s.Scan() {
		res, err := condprob.ParseResult(s.Text())
		if err != nil {
			return nil, errors.Wrapf(err, "error parsing %s", path)
		}
		results = append(results, res)
	}
	return results, s.Err()
}
