package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"net/http"
	_ "net/http/pprof"

	"github.com/dropbox/godropbox/math2/rand2"

	"github.com/robot-dreams/ztopk/config"
	"github.com/robot-dreams/ztopk/encoding/stream"
	"github.com/robot-dreams/ztopk/executor"
)

func main() {
	go func() {
		log.Println(http.ListenAndServe("localhost:6060", nil))
	}()
	var flagNumRecords int
	var flagValueRange int
	cfg := config.Default()
	flag.IntVar(&flagNumRecords, "num_records", 10000000, "number of random values to generate")
	flag.IntVar(&flagValueRange, "value_range", 1000000, "values are drawn from [0, value_range)")
	flag.IntVar(&cfg.K, "k", cfg.K, "number of most frequent values to report")
	flag.IntVar(&cfg.Shards, "shards", cfg.Shards, "number of shards")
	flag.IntVar(&cfg.Workers, "workers", cfg.Workers, "number of shards counted concurrently")
	flag.StringVar(&cfg.Compression, "compression", cfg.Compression, "shard compression: none, zstd or lz4")
	flag.Parse()

	dir, err := os.MkdirTemp("", "")
	if err != nil {
		log.Fatal(err)
	}
	defer func() {
		_ = os.RemoveAll(dir)
	}()

	// The random algorithm is evenly distributed, so most values appear about
	// num_records / value_range times.
	start := time.Now()
	cfg.Source = dir + "/very_big_file.txt"
	cfg.ShardDir = dir + "/shards"
	w, err := stream.NewWrite(cfg.Source, stream.None)
	if err != nil {
		log.Fatal(err)
	}
	for i := 0; i < flagNumRecords; i++ {
		err = w.WriteValue(int64(rand2.Intn(flagValueRange)))
		if err != nil {
			log.Fatal(err)
		}
	}
	err = w.Close()
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("Done writing %v random values after %v\n", flagNumRecords, time.Since(start))

	opts, err := cfg.Options(nil)
	if err != nil {
		log.Fatal(err)
	}
	store, err := cfg.NewStore()
	if err != nil {
		log.Fatal(err)
	}
	t, err := executor.NewTopK(opts, store)
	if err != nil {
		log.Fatal(err)
	}
	src, err := stream.NewScan(cfg.Source, stream.None)
	if err != nil {
		log.Fatal(err)
	}
	defer src.Close()

	start = time.Now()
	result, err := t.Run(context.Background(), src)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf(
		"Done computing top %v over %v shards after %v\n",
		cfg.K,
		len(result.Shards),
		time.Since(start))
	err = executor.WriteResult(os.Stdout, result.Entries)
	if err != nil {
		log.Fatal(err)
	}
}
