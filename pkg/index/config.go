package index

import (
	"errors"
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/grafana/blockfilter/pkg/expr/fold"
)

// Config configures building and loading of file filters.
type Config struct {
	Enabled       bool   `yaml:"enabled"`
	StoragePrefix string `yaml:"storage_prefix"`
	CacheSize     int    `yaml:"cache_size"`
	Timezone      string `yaml:"timezone"`
}

// RegisterFlags registers flags.
func (cfg *Config) RegisterFlags(f *flag.FlagSet) {
	cfg.RegisterFlagsWithPrefix("blockfilter.", f)
}

// RegisterFlagsWithPrefix registers flags with prefix.
func (cfg *Config) RegisterFlagsWithPrefix(prefix string, f *flag.FlagSet) {
	f.BoolVar(&cfg.Enabled, prefix+"enabled", true, "Build filters when writing files and use them to skip files when reading.")
	f.StringVar(&cfg.StoragePrefix, prefix+"storage-prefix", "filters/v1/", "A prefix to use for storing filter objects in object storage.")
	f.IntVar(&cfg.CacheSize, prefix+"cache-size", 1024, "Number of loaded file filters to keep in memory. 0 disables the cache.")
	f.StringVar(&cfg.Timezone, prefix+"timezone", "UTC", "Timezone used to interpret dates and timestamps in predicates.")
}

func (cfg *Config) Validate() error {
	if cfg.CacheSize < 0 {
		return errors.New("cache size must not be negative")
	}
	if cfg.StoragePrefix != "" && !strings.HasSuffix(cfg.StoragePrefix, "/") {
		return fmt.Errorf("storage prefix %q must end with a slash", cfg.StoragePrefix)
	}
	if _, err := time.LoadLocation(cfg.Timezone); err != nil {
		return fmt.Errorf("invalid timezone: %w", err)
	}
	return nil
}

// FunctionContext returns the function context configured by cfg.
func (cfg *Config) FunctionContext() (fold.FunctionContext, error) {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return fold.FunctionContext{}, fmt.Errorf("invalid timezone: %w", err)
	}
	return fold.FunctionContext{Timezone: loc}, nil
}
