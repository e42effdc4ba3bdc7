package stream

import (
	"sort"

	"github.com/dropbox/godropbox/errors"

	"github.com/robot-dreams/ztopk"
)

// partitionedWrite routes values to per-partition sinks.  A sink is only
// created once its partition receives a value, so empty partitions leave
// nothing behind in the store.
type partitionedWrite struct {
	store         ztopk.ShardStore
	numPartitions int
	ws            map[int]ztopk.Sink
	counts        map[int]uint64
	closed        bool
}

func NewPartitionedWrite(
	store ztopk.ShardStore,
	numPartitions int,
) (*partitionedWrite, error) {
	if numPartitions <= 0 {
		return nil, ztopk.NewConfigurationError(
			"shards", "must be >= 1; got %d", numPartitions)
	}
	return &partitionedWrite{
		store:         store,
		numPartitions: numPartitions,
		ws:            make(map[int]ztopk.Sink),
		counts:        make(map[int]uint64),
	}, nil
}

func (p *partitionedWrite) WriteValueToPartition(v int64, partition int) error {
	if p.closed {
		return errors.New("Cannot write after partitionedWrite was closed")
	}
	if partition < 0 || partition >= p.numPartitions {
		return errors.Newf("Invalid partition %d", partition)
	}
	w, ok := p.ws[partition]
	if !ok {
		var err error
		w, err = p.store.Create(partition)
		if err != nil {
			return err
		}
		p.ws[partition] = w
	}
	err := w.WriteValue(v)
	if err != nil {
		return err
	}
	p.counts[partition]++
	return nil
}

// Partitions returns the non-empty partitions in ascending order.
func (p *partitionedWrite) Partitions() []int {
	result := make([]int, 0, len(p.ws))
	for partition := range p.ws {
		result = append(result, partition)
	}
	sort.Ints(result)
	return result
}

// Count returns the number of values written to partition.
func (p *partitionedWrite) Count(partition int) uint64 {
	return p.counts[partition]
}

// Close closes every sink, even after a failure; the first error is returned.
func (p *partitionedWrite) Close() error {
	if p.closed {
		return nil
	}
	defer func() {
		p.closed = true
	}()
	var firstErr error
	for _, partition := range p.Partitions() {
		err := p.ws[partition].Close()
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
