package executor

import (
	"io"

	"github.com/willf/bloom"

	"github.com/robot-dreams/ztopk"
	"github.com/robot-dreams/ztopk/encoding"
	"github.com/robot-dreams/ztopk/encoding/stream"
)

const (
	// Number of hash functions for the distinct-value filter.
	bloomHashes = 3

	// If you ask for more than this many shards, you will run out of file
	// descriptors long before you run out of memory.
	maxShards = 1 << 20
)

// Shard describes one non-empty partition produced by the partitioner.
type Shard struct {
	Index   int
	Records uint64
	// ApproxDistinct estimates the number of distinct values routed to the
	// shard; it never exceeds the true count.  Zero when estimation is off.
	ApproxDistinct uint64
}

// partitioner routes every value of a stream to shard ShardIndex(v, M).  All
// occurrences of a value end up in the same shard, which is what allows each
// shard to be counted exactly in isolation.
type partitioner struct {
	numShards int
	store     ztopk.ShardStore

	// Every value is tested against (and added to) a single filter; since a
	// value always lands in the same shard, a miss means the shard has gained a
	// new distinct value.  nil when estimation is disabled.
	distinct *bloom.BloomFilter
}

// NewPartitioner returns a partitioner writing numShards shards to store.
// bloomBits sizes the distinct-value filter; 0 disables it.
func NewPartitioner(
	numShards int,
	store ztopk.ShardStore,
	bloomBits uint,
) (*partitioner, error) {
	if numShards <= 0 || numShards > maxShards {
		return nil, ztopk.NewConfigurationError(
			"shards",
			"must be in [1, %d]; got %d",
			maxShards,
			numShards)
	}
	p := &partitioner{
		numShards: numShards,
		store:     store,
	}
	if bloomBits > 0 {
		p.distinct = bloom.New(bloomBits, bloomHashes)
	}
	return p, nil
}

// Partition reads src to the end.  The returned shards are the non-empty ones
// in ascending index order, along with the total number of records read.
// Every sink is closed before Partition returns, including on failure; src is
// left open for the caller.
func (p *partitioner) Partition(src ztopk.Iterator) ([]Shard, uint64, error) {
	w, err := stream.NewPartitionedWrite(p.store, p.numShards)
	if err != nil {
		return nil, 0, err
	}
	distinct := make(map[int]uint64)
	var records uint64
	for {
		v, err := src.Next()
		if err == io.EOF {
			break
		} else if err != nil {
			_ = w.Close()
			return nil, 0, err
		}
		shard := ztopk.ShardIndex(v, p.numShards)
		err = w.WriteValueToPartition(v, shard)
		if err != nil {
			_ = w.Close()
			return nil, 0, err
		}
		if p.distinct != nil && !p.distinct.TestAndAdd(encoding.SerializeValue(v)) {
			distinct[shard]++
		}
		records++
	}
	err = w.Close()
	if err != nil {
		return nil, 0, err
	}

	partitions := w.Partitions()
	shards := make([]Shard, len(partitions))
	for i, index := range partitions {
		shards[i] = Shard{
			Index:          index,
			Records:        w.Count(index),
			ApproxDistinct: distinct[index],
		}
	}
	return shards, records, nil
}
