package executor

import (
	"bufio"
	"context"
	"io"
	"log/slog"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dropbox/godropbox/errors"

	"github.com/robot-dreams/ztopk"
	"github.com/robot-dreams/ztopk/encoding"
)

// State is a stage of a top-K run.  Stages never overlap.
type State int

const (
	Init State = iota
	Partitioning
	Counting
	Reporting
	Done
	Failed
)

func (s State) String() string {
	switch s {
	case Init:
		return "INIT"
	case Partitioning:
		return "PARTITION"
	case Counting:
		return "COUNT"
	case Reporting:
		return "REPORT"
	case Done:
		return "DONE"
	case Failed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

type Options struct {
	// Number of entries to report.
	K int

	// Number of shards the source is split into.
	Shards int

	Eviction EvictionPolicy

	// Number of shards counted concurrently; 1 counts them one at a time.
	Workers int

	// Size in bits of the filter used to estimate distinct values per shard;
	// 0 disables the estimate.
	BloomBits uint

	// A warning is logged for any shard whose estimated number of distinct
	// values exceeds this; 0 disables the check.
	MaxDistinctPerShard uint64

	Logger *slog.Logger
}

type RunResult struct {
	// Entries by descending count.
	Entries []ztopk.Entry

	// Non-empty shards in ascending index order.
	Shards []Shard

	// Number of records read from the source.
	Records uint64
}

// topK runs the pipeline PARTITION -> COUNT (with ranking folded in) ->
// REPORT.  A topK instance runs at most once; a failed run has to be
// restarted with a new instance.
type topK struct {
	opts  Options
	store ztopk.ShardStore
	log   *slog.Logger
	state State
	err   error
}

// Validate checks the options without touching any store.
func (opts *Options) Validate() error {
	if opts.K < 1 {
		return ztopk.NewConfigurationError("k", "must be >= 1; got %d", opts.K)
	}
	if opts.Shards < 1 || opts.Shards > maxShards {
		return ztopk.NewConfigurationError(
			"shards", "must be in [1, %d]; got %d", maxShards, opts.Shards)
	}
	if opts.Workers < 1 {
		return ztopk.NewConfigurationError(
			"workers", "must be >= 1; got %d", opts.Workers)
	}
	if opts.Eviction != EvictMinimum && opts.Eviction != EvictMaximum {
		return ztopk.NewConfigurationError(
			"eviction", "unknown policy %d", int(opts.Eviction))
	}
	return nil
}

func NewTopK(opts Options, store ztopk.ShardStore) (*topK, error) {
	err := opts.Validate()
	if err != nil {
		return nil, err
	}
	if store == nil {
		return nil, errors.New("store must not be nil")
	}
	log := opts.Logger
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &topK{
		opts:  opts,
		store: store,
		log:   log,
		state: Init,
	}, nil
}

func (t *topK) State() State {
	return t.state
}

// Err returns the reason a run failed, or nil.
func (t *topK) Err() error {
	return t.err
}

func (t *topK) transition(state State) {
	t.log.Debug("state transition", "from", t.state, "to", state)
	t.state = state
}

func (t *topK) fail(err error) (*RunResult, error) {
	t.log.Error("run failed", "state", t.state, "error", err)
	t.state = Failed
	t.err = err
	return nil, err
}

// Run computes the top-K entries of src.  The caller keeps ownership of src.
// On failure no partial result is returned and shards already written are
// left in the store.
func (t *topK) Run(ctx context.Context, src ztopk.Iterator) (*RunResult, error) {
	if t.state != Init {
		return nil, errors.Newf("Run called in state %v", t.state)
	}
	start := time.Now()
	err := ctx.Err()
	if err != nil {
		return t.fail(err)
	}

	t.transition(Partitioning)
	p, err := NewPartitioner(t.opts.Shards, t.store, t.opts.BloomBits)
	if err != nil {
		return t.fail(err)
	}
	shards, records, err := p.Partition(src)
	if err != nil {
		return t.fail(err)
	}
	t.log.Info(
		"partitioned source",
		"records", records,
		"shards", len(shards),
		"elapsed", time.Since(start))
	t.checkCapacity(shards)

	t.transition(Counting)
	countStart := time.Now()
	r, err := NewRankAccumulator(t.opts.K, t.opts.Eviction)
	if err != nil {
		return t.fail(err)
	}
	var acc Accumulator = r
	if t.opts.Workers > 1 {
		acc = NewSyncAccumulator(r)
	}
	err = t.countShards(ctx, shards, acc)
	if err != nil {
		return t.fail(err)
	}
	t.log.Info(
		"counted shards",
		"shards", len(shards),
		"workers", t.opts.Workers,
		"elapsed", time.Since(countStart))

	t.transition(Reporting)
	result := &RunResult{
		Entries: acc.Drain(),
		Shards:  shards,
		Records: records,
	}
	t.transition(Done)
	t.log.Info(
		"run completed",
		"k", t.opts.K,
		"entries", len(result.Entries),
		"eviction", t.opts.Eviction,
		"elapsed", time.Since(start))
	return result, nil
}

func (t *topK) checkCapacity(shards []Shard) {
	if t.opts.MaxDistinctPerShard == 0 || t.opts.BloomBits == 0 {
		return
	}
	for _, shard := range shards {
		if shard.ApproxDistinct > t.opts.MaxDistinctPerShard {
			t.log.Warn(
				"shard exceeds memory budget; consider more shards",
				"shard", shard.Index,
				"approx_distinct", shard.ApproxDistinct,
				"max_distinct", t.opts.MaxDistinctPerShard)
		}
	}
}

func (t *topK) countShards(
	ctx context.Context,
	shards []Shard,
	acc Accumulator,
) error {
	if t.opts.Workers == 1 {
		for _, shard := range shards {
			err := ctx.Err()
			if err != nil {
				return err
			}
			err = t.countShard(shard, acc)
			if err != nil {
				return err
			}
		}
		return nil
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(t.opts.Workers)
	for _, shard := range shards {
		shard := shard
		g.Go(func() error {
			err := ctx.Err()
			if err != nil {
				return err
			}
			return t.countShard(shard, acc)
		})
	}
	return g.Wait()
}

// countShard builds the frequency table of one shard and folds it into acc;
// the table is garbage as soon as countShard returns.
func (t *topK) countShard(shard Shard, acc Accumulator) error {
	counts, err := countStoredShard(t.store, shard.Index)
	if err != nil {
		return err
	}
	total := counts.Total()
	if total != shard.Records {
		return errors.Newf(
			"shard %d (%s): counted %d records but %d were partitioned",
			shard.Index,
			t.store.Location(shard.Index),
			total,
			shard.Records)
	}
	acc.Fold(counts)
	t.log.Debug(
		"counted shard",
		"shard", shard.Index,
		"records", total,
		"distinct", len(counts))
	return nil
}

// WriteResult writes one "value count" pair per line.
func WriteResult(w io.Writer, entries []ztopk.Entry) error {
	bw := bufio.NewWriter(w)
	for _, entry := range entries {
		_, err := bw.WriteString(encoding.FormatValue(entry.Value))
		if err != nil {
			return err
		}
		err = bw.WriteByte(' ')
		if err != nil {
			return err
		}
		_, err = bw.WriteString(strconv.FormatUint(entry.Count, 10))
		if err != nil {
			return err
		}
		err = bw.WriteByte('\n')
		if err != nil {
			return err
		}
	}
	return bw.Flush()
}
