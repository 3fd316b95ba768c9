package job

import (
	"io/ioutil"
	"runtime"

	"github.com/kiteco/condprob/kite-golib/envutil"
	"github.com/kiteco/condprob/kite-golib/fileutil"
	"github.com/pkg/errors"
	yaml "gopkg.in/yaml.v2"
)

const (
	// ShardsEnv overrides the default shard count.
	ShardsEnv = "CONDPROB_SHARDS"
	// WorkersEnv overrides the default number of emission workers.
	WorkersEnv = "CONDPROB_WORKERS"
)

// Options configure a job.
type Options struct {
	// ShardCount is the number of reduce shards, and output part files.
	ShardCount int `yaml:"shard_count"`
	// EmissionWorkers is the number of map tasks run at once.
	EmissionWorkers int `yaml:"emission_workers"`
	// SplitLines is the number of input lines per map task.
	SplitLines int `yaml:"split_lines"`
	// CombinerEntries bounds the in-mapper combiner, 0 disables it.
	CombinerEntries int `yaml:"combiner_entries"`
	// SkipMalformed drops lines that are not text instead of failing the job.
	SkipMalformed bool `yaml:"skip_malformed"`
	// WorkDir holds the spilled runs; a temporary directory is used if empty.
	WorkDir     string `yaml:"work_dir"`
	KeepWorkDir bool   `yaml:"keep_work_dir"`
	// Output is a local directory or an s3:// prefix.
	Output string `yaml:"output"`
}

// DefaultOptions returns the defaults, taking the shard and worker counts from the
// environment when set.
func DefaultOptions() (Options, error) {
	shards, err := envutil.GetenvDefaultInt(ShardsEnv, 10)
	if err != nil {
		return Options{}, err
	}
	workers, err := envutil.GetenvDefaultInt(WorkersEnv, runtime.NumCPU())
	if err != nil {
		return Options{}, err
	}
	return Options{
		ShardCount:      shards,
		EmissionWorkers: workers,
		SplitLines:      100000,
		CombinerEntries: 1 << 16,
	}, nil
}

// LoadOptions reads a yaml job file (local or s3) over the defaults.
func LoadOptions(path string) (Options, error) {
	opts, err := DefaultOptions()
	if err != nil {
		return Options{}, err
	}

	r, err := fileutil.NewReader(path)
	if err != nil {
		return Options{}, errors.Wrapf(err, "error opening job file %s", path)
	}
	defer r.Close()

	buf, err := ioutil.ReadAll(r)
	if err != nil {
		return Options{}, errors.Wrapf(err, "error reading job file %s", path)
	}
	if err := yaml.UnmarshalStrict(buf, &opts); err != nil {
		return Options{}, errors.Wrapf(err, "error parsing job file %s", path)
	}
	return opts, nil
}

// Validate checks the options before a job starts.
func (o Options) Validate() error {
	switch {
	case o.ShardCount <= 0:
		return errors.Errorf("shard count must be positive, got %d", o.ShardCount)
	case o.EmissionWorkers <= 0:
		return errors.Errorf("emission workers must be positive, got %d", o.EmissionWorkers)
	case o.SplitLines <= 0:
		return errors.Errorf("split lines must be positive, got %d", o.SplitLines)
	case o.CombinerEntries < 0:
		return errors.Errorf("combiner entries cannot be negative, got %d", o.CombinerEntries)
	case o.Output == "":
		return errors.New("output is required")
	}
	return nil
}
