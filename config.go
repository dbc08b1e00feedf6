package lazyframe

import (
	"io/ioutil"
	"os"

	"github.com/spf13/cast"
	errors "gopkg.in/src-d/go-errors.v1"
	yaml "gopkg.in/yaml.v2"
)

// Environment variables overriding the configuration.
const (
	StrictOrderingEnvKey     = "LAZYFRAME_STRICT_ORDERING"
	MultiQueryEnvKey         = "LAZYFRAME_MULTI_QUERY"
	MaximumBytesBilledEnvKey = "LAZYFRAME_MAX_BYTES_BILLED"
	CacheSizeEnvKey          = "LAZYFRAME_CACHE_SIZE"
	DebugEnvKey              = "LAZYFRAME_DEBUG"
)

// ErrInvalidConfig is returned when a configuration value is not valid.
var ErrInvalidConfig = errors.NewKind("invalid configuration value for %s: %v")

// Config of an Executor.
type Config struct {
	// StrictOrdering guarantees a reproducible row order for every result.
	// When disabled, plans may be executed without ordering them.
	StrictOrdering bool `yaml:"strict_ordering"`
	// EnableMultiQueryExecution allows the executor to split a complex plan
	// into several queries by materializing some of its subtrees.
	EnableMultiQueryExecution bool `yaml:"multi_query_execution"`
	// MaximumBytesBilled limits the bytes a single job may bill. Nil means
	// no limit.
	MaximumBytesBilled *int64 `yaml:"maximum_bytes_billed"`
	// QueryComplexityLimit is the planning complexity above which a plan is
	// factored when multi-query execution is enabled.
	QueryComplexityLimit int64 `yaml:"query_complexity_limit"`
	// MaxSubtreeFactorings bounds the materializations done to simplify a
	// single plan.
	MaxSubtreeFactorings int `yaml:"max_subtree_factorings"`
	// MaxClusterColumns is the maximum number of cluster columns of a
	// materialized table.
	MaxClusterColumns int `yaml:"max_cluster_columns"`
	// CacheSize is the number of materializations remembered.
	CacheSize int `yaml:"cache_size"`
	// Debug logs executor decisions at info level.
	Debug bool `yaml:"debug"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		StrictOrdering:       true,
		QueryComplexityLimit: 1e7,
		MaxSubtreeFactorings: 5,
		MaxClusterColumns:    4,
		CacheSize:            4096,
	}
}

// Validate checks every value of the configuration.
func (c Config) Validate() error {
	switch {
	case c.QueryComplexityLimit <= 0:
		return ErrInvalidConfig.New("query_complexity_limit", c.QueryComplexityLimit)
	case c.MaxSubtreeFactorings < 0:
		return ErrInvalidConfig.New("max_subtree_factorings", c.MaxSubtreeFactorings)
	case c.MaxClusterColumns < 0:
		return ErrInvalidConfig.New("max_cluster_columns", c.MaxClusterColumns)
	case c.CacheSize <= 0:
		return ErrInvalidConfig.New("cache_size", c.CacheSize)
	case c.MaximumBytesBilled != nil && *c.MaximumBytesBilled <= 0:
		return ErrInvalidConfig.New("maximum_bytes_billed", *c.MaximumBytesBilled)
	}
	return nil
}

// ReadConfigFile reads a YAML configuration. Missing values keep their
// defaults.
func ReadConfigFile(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := ioutil.ReadFile(path)
	if err != nil {
		return cfg, err
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}

	return cfg, cfg.Validate()
}

// WriteConfigFile writes the configuration as YAML.
func WriteConfigFile(path string, cfg Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	return ioutil.WriteFile(path, data, 0640)
}

// LoadConfig returns the defaults, overridden by the given file if the path
// is not empty and then by the environment.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		var err error
		cfg, err = ReadConfigFile(path)
		if err != nil {
			return cfg, err
		}
	}

	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return cfg, err
	}

	return cfg, cfg.Validate()
}

// ApplyEnv overrides the configuration with the environment variables found
// by lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(StrictOrderingEnvKey); ok {
		b, err := cast.ToBoolE(v)
		if err != nil {
			return ErrInvalidConfig.Wrap(err, StrictOrderingEnvKey, v)
		}
		c.StrictOrdering = b
	}

	if v, ok := lookup(MultiQueryEnvKey); ok {
		b, err := cast.ToBoolE(v)
		if err != nil {
			return ErrInvalidConfig.Wrap(err, MultiQueryEnvKey, v)
		}
		c.EnableMultiQueryExecution = b
	}

	if v, ok := lookup(MaximumBytesBilledEnvKey); ok {
		n, err := cast.ToInt64E(v)
		if err != nil {
			return ErrInvalidConfig.Wrap(err, MaximumBytesBilledEnvKey, v)
		}
		c.MaximumBytesBilled = &n
	}

	if v, ok := lookup(CacheSizeEnvKey); ok {
		n, err := cast.ToIntE(v)
		if err != nil {
			return ErrInvalidConfig.Wrap(err, CacheSizeEnvKey, v)
		}
		c.CacheSize = n
	}

	if v, ok := lookup(DebugEnvKey); ok {
		b, err := cast.ToBoolE(v)
		if err != nil {
			return ErrInvalidConfig.Wrap(err, DebugEnvKey, v)
		}
		c.Debug = b
	}

	return nil
}
