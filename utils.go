package ztopk

import (
	"io"
)

// ShardIndex routes v to a shard in [0, numShards).  Negative values are
// normalized so the result is never negative.
func ShardIndex(v int64, numShards int) int {
	m := int64(numShards)
	return int(((v % m) + m) % m)
}

func ReadAll(iter Iterator) ([]int64, error) {
	var values []int64
	for {
		v, err := iter.Next()
		if err == io.EOF {
			break
		} else if err != nil {
			return nil, err
		} else {
			values = append(values, v)
		}
	}
	if len(values) == 0 {
		return nil, io.EOF
	} else {
		return values, nil
	}
}

// Total returns the sum of all counts in the table.
func (t FrequencyTable) Total() uint64 {
	var total uint64
	for _, count := range t {
		total += count
	}
	return total
}
