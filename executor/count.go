package executor

import (
	"io"

	"github.com/robot-dreams/ztopk"
)

// CountShard scans iter exactly once and returns the number of occurrences of
// every distinct value in it.  Memory grows with the number of distinct
// values, not with the length of the shard.
func CountShard(iter ztopk.Iterator) (ztopk.FrequencyTable, error) {
	counts := make(ztopk.FrequencyTable)
	for {
		v, err := iter.Next()
		if err == io.EOF {
			return counts, nil
		} else if err != nil {
			return nil, err
		}
		counts[v]++
	}
}

// countStoredShard reopens a closed shard from store and counts it.
func countStoredShard(
	store ztopk.ShardStore,
	shard int,
) (ztopk.FrequencyTable, error) {
	iter, err := store.Open(shard)
	if err != nil {
		return nil, err
	}
	counts, err := CountShard(iter)
	if err != nil {
		_ = iter.Close()
		return nil, err
	}
	err = iter.Close()
	if err != nil {
		return nil, err
	}
	return counts, nil
}
