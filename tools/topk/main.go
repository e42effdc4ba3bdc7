package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"github.com/robot-dreams/ztopk"
	"github.com/robot-dreams/ztopk/config"
	"github.com/robot-dreams/ztopk/encoding/stream"
	"github.com/robot-dreams/ztopk/executor"
)

const (
	exitFailed        = 1
	exitConfiguration = 2
)

func main() {
	os.Exit(run())
}

func run() int {
	var flagConfig string
	var flagKeepShards bool
	defaults := config.Default()
	flag.StringVar(&flagConfig, "config", "", "path to a YAML config file")
	flag.Int("k", defaults.K, "number of most frequent values to report")
	flag.Int("shards", defaults.Shards, "number of shards the source is split into")
	flag.String("source", "", "file with one integer per line; - reads stdin")
	flag.String("shard_dir", "", "directory for shard files (default: a new temporary directory)")
	flag.String("eviction", defaults.Eviction, "evict-minimum (top K) or evict-maximum (bottom K)")
	flag.Int("workers", defaults.Workers, "number of shards counted concurrently")
	flag.String("compression", defaults.Compression, "shard compression: none, zstd or lz4")
	flag.Uint("bloom_bits", defaults.BloomBits, "bits of the distinct-value filter; 0 disables it")
	flag.String("log_level", defaults.Logger.Level, "debug, info, warn or error")
	flag.Bool("log_json", defaults.Logger.JSON, "log in JSON instead of text")
	flag.BoolVar(&flagKeepShards, "keep_shards", false, "keep shard files after a successful run")
	flag.Parse()

	cfg, err := config.Load(flagConfig)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitCode(err)
	}
	applyFlags(&cfg)
	if cfg.Source == "" && flag.NArg() > 0 {
		cfg.Source = flag.Arg(0)
	}
	err = cfg.Validate()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitConfiguration
	}
	logger, err := cfg.NewLogger()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitConfiguration
	}
	minShards := config.MinShardCount(cfg.ValueDomain, cfg.MemoryBudgetBytes)
	if uint64(cfg.Shards) < minShards {
		logger.Warn(
			"too few shards for the memory budget",
			"shards", cfg.Shards,
			"min_shards", minShards,
			"value_domain", cfg.ValueDomain,
			"memory_budget_bytes", cfg.MemoryBudgetBytes)
	}

	opts, err := cfg.Options(logger)
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		return exitConfiguration
	}
	// Reject bad parameters before the shard directory is created.
	err = opts.Validate()
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		return exitConfiguration
	}
	store, err := cfg.NewStore()
	if err != nil {
		logger.Error("cannot create shard directory", "error", err)
		return exitCode(err)
	}
	t, err := executor.NewTopK(opts, store)
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		return exitCode(err)
	}

	src, err := openSource(cfg.Source)
	if err != nil {
		logger.Error("cannot open source", "source", cfg.Source, "error", err)
		return exitCode(err)
	}
	defer src.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	logger.Info(
		"starting run",
		"source", cfg.Source,
		"k", cfg.K,
		"shards", cfg.Shards,
		"shard_dir", store.Dir())
	result, err := t.Run(ctx, src)
	if err != nil {
		logger.Error(
			"run failed; shard files were left in place",
			"state", t.State(),
			"shard_dir", store.Dir(),
			"error", err)
		return exitCode(err)
	}

	err = executor.WriteResult(os.Stdout, result.Entries)
	if err != nil {
		logger.Error("cannot write result", "error", err)
		return exitFailed
	}
	if !flagKeepShards {
		err = removeShards(store, result)
		if err != nil {
			logger.Warn("cannot remove shard files", "shard_dir", store.Dir(), "error", err)
		}
	}
	return 0
}

// removeShards deletes the shard files of a finished run.
func removeShards(store *stream.DirStore, result *executor.RunResult) error {
	shards := make([]int, 0, len(result.Shards))
	for _, shard := range result.Shards {
		shards = append(shards, shard.Index)
	}
	return store.Cleanup(shards)
}

// applyFlags overrides config file values with the flags that were set
// explicitly on the command line.
func applyFlags(cfg *config.Config) {
	flag.Visit(func(f *flag.Flag) {
		getter := f.Value.(flag.Getter)
		switch f.Name {
		case "k":
			cfg.K = getter.Get().(int)
		case "shards":
			cfg.Shards = getter.Get().(int)
		case "source":
			cfg.Source = getter.Get().(string)
		case "shard_dir":
			cfg.ShardDir = getter.Get().(string)
		case "eviction":
			cfg.Eviction = getter.Get().(string)
		case "workers":
			cfg.Workers = getter.Get().(int)
		case "compression":
			cfg.Compression = getter.Get().(string)
		case "bloom_bits":
			cfg.BloomBits = getter.Get().(uint)
		case "log_level":
			cfg.Logger.Level = getter.Get().(string)
		case "log_json":
			cfg.Logger.JSON = getter.Get().(bool)
		}
	})
}

func openSource(source string) (ztopk.Iterator, error) {
	if source == "-" {
		return stream.NewReaderScan("stdin", os.Stdin), nil
	}
	return stream.NewScan(source, stream.None)
}

func exitCode(err error) int {
	if ztopk.IsConfiguration(err) {
		return exitConfiguration
	}
	return exitFailed
}
