package jsarray

import (
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/mstoykov/envconfig"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"gopkg.in/guregu/null.v3"
)

// Config holds the user-facing settings. Unset fields keep the defaults, so
// several sources can be layered with Apply.
type Config struct {
	MinSparseIndex       null.Int `json:"minSparseIndex" envconfig:"JSARRAY_MIN_SPARSE_INDEX"`
	MaxVectorLength      null.Int `json:"maxVectorLength" envconfig:"JSARRAY_MAX_VECTOR_LENGTH"`
	BaseVectorLength     null.Int `json:"baseVectorLength" envconfig:"JSARRAY_BASE_VECTOR_LENGTH"`
	MinDensityMultiplier null.Int `json:"minDensityMultiplier" envconfig:"JSARRAY_MIN_DENSITY_MULTIPLIER"`
	ShiftThreshold       null.Int `json:"shiftThreshold" envconfig:"JSARRAY_SHIFT_THRESHOLD"`

	SortMinRun     null.Int `json:"sortMinRun" envconfig:"JSARRAY_SORT_MIN_RUN"`
	SortRunCutoff  null.Int `json:"sortRunCutoff" envconfig:"JSARRAY_SORT_RUN_CUTOFF"`
	BucketCutoff   null.Int `json:"bucketCutoff" envconfig:"JSARRAY_BUCKET_CUTOFF"`
	BucketMaxDepth null.Int `json:"bucketMaxDepth" envconfig:"JSARRAY_BUCKET_MAX_DEPTH"`

	MaxRecursionDepth null.Int `json:"maxRecursionDepth" envconfig:"JSARRAY_MAX_RECURSION_DEPTH"`

	FastPaths null.Bool   `json:"fastPaths" envconfig:"JSARRAY_FAST_PATHS"`
	LogLevel  null.String `json:"logLevel" envconfig:"JSARRAY_LOG_LEVEL"`
}

// NewConfig returns the default configuration. None of the defaults are
// marked valid, so they never override anything in Apply.
func NewConfig() Config {
	d := DefaultLimits()
	return Config{
		MinSparseIndex:       null.NewInt(int64(d.MinSparseIndex), false),
		MaxVectorLength:      null.NewInt(int64(d.MaxVectorLength), false),
		BaseVectorLength:     null.NewInt(int64(d.BaseVectorLength), false),
		MinDensityMultiplier: null.NewInt(int64(d.MinDensityMultiplier), false),
		ShiftThreshold:       null.NewInt(int64(d.ShiftThreshold), false),
		SortMinRun:           null.NewInt(int64(d.SortMinRun), false),
		SortRunCutoff:        null.NewInt(int64(d.SortRunCutoff), false),
		BucketCutoff:         null.NewInt(int64(d.BucketCutoff), false),
		BucketMaxDepth:       null.NewInt(int64(d.BucketMaxDepth), false),
		MaxRecursionDepth:    null.NewInt(int64(d.MaxRecursionDepth), false),
		FastPaths:            null.NewBool(true, false),
		LogLevel:             null.NewString("warning", false),
	}
}

// Apply overwrites c with every valid field of cfg.
func (c Config) Apply(cfg Config) Config {
	if cfg.MinSparseIndex.Valid {
		c.MinSparseIndex = cfg.MinSparseIndex
	}
	if cfg.MaxVectorLength.Valid {
		c.MaxVectorLength = cfg.MaxVectorLength
	}
	if cfg.BaseVectorLength.Valid {
		c.BaseVectorLength = cfg.BaseVectorLength
	}
	if cfg.MinDensityMultiplier.Valid {
		c.MinDensityMultiplier = cfg.MinDensityMultiplier
	}
	if cfg.ShiftThreshold.Valid {
		c.ShiftThreshold = cfg.ShiftThreshold
	}
	if cfg.SortMinRun.Valid {
		c.SortMinRun = cfg.SortMinRun
	}
	if cfg.SortRunCutoff.Valid {
		c.SortRunCutoff = cfg.SortRunCutoff
	}
	if cfg.BucketCutoff.Valid {
		c.BucketCutoff = cfg.BucketCutoff
	}
	if cfg.BucketMaxDepth.Valid {
		c.BucketMaxDepth = cfg.BucketMaxDepth
	}
	if cfg.MaxRecursionDepth.Valid {
		c.MaxRecursionDepth = cfg.MaxRecursionDepth
	}
	if cfg.FastPaths.Valid {
		c.FastPaths = cfg.FastPaths
	}
	if cfg.LogLevel.Valid {
		c.LogLevel = cfg.LogLevel
	}
	return c
}

// tomlConfig mirrors Config with plain pointer fields; a missing key stays nil.
type tomlConfig struct {
	MinSparseIndex       *int64  `toml:"min_sparse_index"`
	MaxVectorLength      *int64  `toml:"max_vector_length"`
	BaseVectorLength     *int64  `toml:"base_vector_length"`
	MinDensityMultiplier *int64  `toml:"min_density_multiplier"`
	ShiftThreshold       *int64  `toml:"shift_threshold"`
	SortMinRun           *int64  `toml:"sort_min_run"`
	SortRunCutoff        *int64  `toml:"sort_run_cutoff"`
	BucketCutoff         *int64  `toml:"bucket_cutoff"`
	BucketMaxDepth       *int64  `toml:"bucket_max_depth"`
	MaxRecursionDepth    *int64  `toml:"max_recursion_depth"`
	FastPaths            *bool   `toml:"fast_paths"`
	LogLevel             *string `toml:"log_level"`
}

func (t tomlConfig) config() Config {
	return Config{
		MinSparseIndex:       null.IntFromPtr(t.MinSparseIndex),
		MaxVectorLength:      null.IntFromPtr(t.MaxVectorLength),
		BaseVectorLength:     null.IntFromPtr(t.BaseVectorLength),
		MinDensityMultiplier: null.IntFromPtr(t.MinDensityMultiplier),
		ShiftThreshold:       null.IntFromPtr(t.ShiftThreshold),
		SortMinRun:           null.IntFromPtr(t.SortMinRun),
		SortRunCutoff:        null.IntFromPtr(t.SortRunCutoff),
		BucketCutoff:         null.IntFromPtr(t.BucketCutoff),
		BucketMaxDepth:       null.IntFromPtr(t.BucketMaxDepth),
		MaxRecursionDepth:    null.IntFromPtr(t.MaxRecursionDepth),
		FastPaths:            null.BoolFromPtr(t.FastPaths),
		LogLevel:             null.StringFromPtr(t.LogLevel),
	}
}

// ReadConfigFile parses a TOML configuration file from fs.
func ReadConfigFile(fs afero.Fs, path string) (Config, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return Config{}, errors.Wrapf(err, "cannot read config %s", path)
	}
	var tc tomlConfig
	md, err := toml.Decode(string(data), &tc)
	if err != nil {
		return Config{}, errors.Wrapf(err, "parse error in %s", path)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return Config{}, errors.Errorf("unknown key %q in %s", undecoded[0].String(), path)
	}
	return tc.config(), nil
}

// GetConsolidatedConfig layers the defaults, the config file (if path is not
// empty) and the environment, in that order.
func GetConsolidatedConfig(fs afero.Fs, path string, env map[string]string) (Config, error) {
	result := NewConfig()
	if path != "" {
		fileConf, err := ReadConfigFile(fs, path)
		if err != nil {
			return result, err
		}
		result = result.Apply(fileConf)
	}

	envConfig := Config{}
	if err := envconfig.Process("", &envConfig, func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}); err != nil {
		return result, errors.Wrap(err, "invalid environment")
	}
	return result.Apply(envConfig), nil
}

// EnvMap returns the process environment in the form GetConsolidatedConfig expects.
func EnvMap() map[string]string {
	env := make(map[string]string)
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok {
			env[k] = v
		}
	}
	return env
}

// Limits validates the numeric settings and converts them.
func (c Config) Limits() (Limits, error) {
	l := Limits{
		MinSparseIndex:       uint32(c.MinSparseIndex.Int64),
		MaxVectorLength:      uint32(c.MaxVectorLength.Int64),
		BaseVectorLength:     uint32(c.BaseVectorLength.Int64),
		MinDensityMultiplier: uint32(c.MinDensityMultiplier.Int64),
		ShiftThreshold:       uint32(c.ShiftThreshold.Int64),
		SortMinRun:           int(c.SortMinRun.Int64),
		SortRunCutoff:        int(c.SortRunCutoff.Int64),
		BucketCutoff:         int(c.BucketCutoff.Int64),
		BucketMaxDepth:       int(c.BucketMaxDepth.Int64),
		MaxRecursionDepth:    int(c.MaxRecursionDepth.Int64),
	}
	checks := []struct {
		name     string
		v        int64
		min, max int64
	}{
		{"minSparseIndex", c.MinSparseIndex.Int64, 1, MaxArrayLength},
		{"maxVectorLength", c.MaxVectorLength.Int64, 1, 1 << 31},
		{"baseVectorLength", c.BaseVectorLength.Int64, 1, 1 << 16},
		{"minDensityMultiplier", c.MinDensityMultiplier.Int64, 1, 1 << 16},
		{"shiftThreshold", c.ShiftThreshold.Int64, 0, MaxArrayLength},
		{"sortMinRun", c.SortMinRun.Int64, 1, 1 << 16},
		{"sortRunCutoff", c.SortRunCutoff.Int64, 1, 1 << 16},
		{"bucketCutoff", c.BucketCutoff.Int64, 1, 1 << 20},
		{"bucketMaxDepth", c.BucketMaxDepth.Int64, 0, 1 << 16},
		{"maxRecursionDepth", c.MaxRecursionDepth.Int64, 1, 1 << 24},
	}
	for _, ch := range checks {
		if ch.v < ch.min || ch.v > ch.max {
			return Limits{}, errors.Errorf("%s must be in [%d, %d], got %d", ch.name, ch.min, ch.max, ch.v)
		}
	}
	if l.SortRunCutoff > l.SortMinRun {
		return Limits{}, errors.Errorf("sortRunCutoff (%d) must not exceed sortMinRun (%d)", l.SortRunCutoff, l.SortMinRun)
	}
	return l, nil
}

// Level parses the configured log level.
func (c Config) Level() (logrus.Level, error) {
	lvl, err := logrus.ParseLevel(c.LogLevel.String)
	if err != nil {
		return 0, errors.Wrap(err, "invalid log level")
	}
	return lvl, nil
}

// Options converts the configuration into runtime options.
func (c Config) Options() ([]Option, error) {
	limits, err := c.Limits()
	if err != nil {
		return nil, err
	}
	return []Option{WithLimits(limits), WithFastPaths(c.FastPaths.Bool)}, nil
}
