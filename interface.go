package ztopk

// Entry pairs a value with the number of times it occurred.
type Entry struct {
	Value int64
	Count uint64
}

// FrequencyTable maps each distinct value of one shard to its exact count.
type FrequencyTable map[int64]uint64

// Iterator is a read-once stream of values; Next returns io.EOF once the
// stream is exhausted.
type Iterator interface {
	Next() (int64, error)
	Close() error
}

// Sink receives the values routed to one shard.
type Sink interface {
	WriteValue(v int64) error
	Close() error
}

// ShardStore creates the sink for a shard during partitioning and reopens
// it for counting once it has been closed.
type ShardStore interface {
	Create(shard int) (Sink, error)
	Open(shard int) (Iterator, error)
	// Location describes where the shard lives, for logging and errors.
	Location(shard int) string
}
