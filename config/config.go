// Package config holds the parameters of a top-K run and turns them into the
// pieces the executor needs.
package config

import (
	"log/slog"
	"os"
	"strings"

	"github.com/goccy/go-yaml"

	"github.com/robot-dreams/ztopk"
	"github.com/robot-dreams/ztopk/encoding/stream"
	"github.com/robot-dreams/ztopk/executor"
)

type Config struct {
	// Number of entries to report.
	K int `yaml:"k"`
	// Number of shards (M).  See MinShardCount for sizing.
	Shards int `yaml:"shards"`
	// Path of the value file; "-" reads standard input.
	Source string `yaml:"source"`
	// Directory for shard files.  A fresh temporary directory is used when
	// empty.
	ShardDir    string `yaml:"shard_dir"`
	Eviction    string `yaml:"eviction"`
	Workers     int    `yaml:"workers"`
	Compression string `yaml:"compression"`
	BloomBits   uint   `yaml:"bloom_bits"`

	// Memory available for one shard's frequency table, and the number of
	// distinct values the input may contain.  Both only drive warnings.
	MemoryBudgetBytes uint64 `yaml:"memory_budget_bytes"`
	ValueDomain       uint64 `yaml:"value_domain"`

	Logger LoggerConfig `yaml:"logger"`
}

type LoggerConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

func Default() Config {
	return Config{
		K:                 10,
		Shards:            1024,
		Eviction:          executor.EvictMinimum.String(),
		Workers:           1,
		Compression:       string(stream.None),
		BloomBits:         1 << 24,
		MemoryBudgetBytes: 1 << 30,
		ValueDomain:       1 << 32,
		Logger: LoggerConfig{
			Level: "info",
		},
	}
}

// Load reads a YAML config file on top of Default().  A missing file is not
// an error; the defaults are returned.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			slog.Info("config file not found, using default config", "path", path)
			return cfg, nil
		}
		return cfg, ztopk.NewIOError("read", path, err)
	}
	err = yaml.Unmarshal(data, &cfg)
	if err != nil {
		return cfg, ztopk.NewConfigurationError("config", "%s: %v", path, err)
	}
	return cfg, nil
}

// Validate rejects the config before any I/O takes place.
func (c *Config) Validate() error {
	if c.K < 1 {
		return ztopk.NewConfigurationError("k", "must be >= 1; got %d", c.K)
	}
	if c.Shards < 1 {
		return ztopk.NewConfigurationError(
			"shards", "must be >= 1; got %d", c.Shards)
	}
	if c.Workers < 1 {
		return ztopk.NewConfigurationError(
			"workers", "must be >= 1; got %d", c.Workers)
	}
	if c.Source == "" {
		return ztopk.NewConfigurationError("source", "must be set")
	}
	_, err := executor.ParseEvictionPolicy(c.Eviction)
	if err != nil {
		return err
	}
	_, err = stream.ParseCompression(c.Compression)
	if err != nil {
		return err
	}
	_, err = ParseLevel(c.Logger.Level)
	if err != nil {
		return err
	}
	return nil
}

// Options converts the config for executor.NewTopK.
func (c *Config) Options(logger *slog.Logger) (executor.Options, error) {
	err := c.Validate()
	if err != nil {
		return executor.Options{}, err
	}
	policy, _ := executor.ParseEvictionPolicy(c.Eviction)
	return executor.Options{
		K:                   c.K,
		Shards:              c.Shards,
		Eviction:            policy,
		Workers:             c.Workers,
		BloomBits:           c.BloomBits,
		MaxDistinctPerShard: MaxDistinctPerShard(c.MemoryBudgetBytes),
		Logger:              logger,
	}, nil
}

// NewStore creates the shard directory (a temporary one if ShardDir is
// empty) and returns a store writing shards named after the source.
func (c *Config) NewStore() (*stream.DirStore, error) {
	compression, err := stream.ParseCompression(c.Compression)
	if err != nil {
		return nil, err
	}
	prefix := stream.ShardPrefix(c.Source)
	if c.ShardDir == "" {
		return stream.NewTempDirStore(prefix, compression)
	}
	return stream.NewDirStore(c.ShardDir, prefix, compression)
}

func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, ztopk.NewConfigurationError(
			"logger.level", "unknown level %q", s)
	}
}

// NewLogger builds a text or JSON logger writing to stderr.
func (c *Config) NewLogger() (*slog.Logger, error) {
	level, err := ParseLevel(c.Logger.Level)
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if c.Logger.JSON {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	return slog.New(handler), nil
}
