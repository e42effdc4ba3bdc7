package config

// Sizing the number of shards
//
// A shard's frequency table holds one entry per distinct value routed to the
// shard, no matter how often each value repeats, so the record count of the
// source is irrelevant: an adversarial stream can repeat one value forever
// without growing any table.  What matters is the value domain.  With values
// routed by v mod M, one shard can receive at most ValueDomain / M distinct
// values, and its table must fit in the memory budget:
//
//     ValueDomain / M * BytesPerEntry <= MemoryBudgetBytes
//
// For 32-bit values (a domain of 2^32), a 1 GiB budget and 48 bytes per entry,
// one shard may hold about 2^24.4 entries and M must be at least 193.  The
// default of 1024 shards leaves room for several workers counting at once.

// BytesPerEntry is the approximate memory cost of one entry in a
// map[int64]uint64, including Go's bucket overhead.
const BytesPerEntry = 48

// MaxDistinctPerShard returns how many distinct values fit in one shard's
// frequency table within budget bytes.  0 means no limit is known.
func MaxDistinctPerShard(budget uint64) uint64 {
	return budget / BytesPerEntry
}

// MinShardCount returns the smallest M for which no shard can exceed budget,
// whatever the distribution of the values.  It returns 0 if either argument
// is 0 or if budget can't hold a single entry.
func MinShardCount(domain uint64, budget uint64) uint64 {
	perShard := MaxDistinctPerShard(budget)
	if domain == 0 || perShard == 0 {
		return 0
	}
	m := domain / perShard
	if domain%perShard != 0 {
		m++
	}
	return m
}
