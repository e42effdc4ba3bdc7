package ztopk

import (
	"strconv"
	"sync"

	"github.com/dropbox/godropbox/errors"
)

// InMemoryStore keeps shards in memory.  It lets the pipeline stages run
// against synthetic data without touching the filesystem.
type InMemoryStore struct {
	mu     sync.Mutex
	shards map[int][]int64
	open   map[int]bool
}

var _ ShardStore = (*InMemoryStore)(nil)

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		shards: make(map[int][]int64),
		open:   make(map[int]bool),
	}
}

func (s *InMemoryStore) Create(shard int) (Sink, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.shards[shard]; ok {
		return nil, errors.Newf("shard %d already exists", shard)
	}
	s.shards[shard] = nil
	s.open[shard] = true
	return &inMemorySink{store: s, shard: shard}, nil
}

func (s *InMemoryStore) Open(shard int) (Iterator, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	values, ok := s.shards[shard]
	if !ok {
		return nil, NewIOError("open", s.Location(shard), nil)
	}
	if s.open[shard] {
		return nil, errors.Newf("shard %d is still being written", shard)
	}
	copied := make([]int64, len(values))
	copy(copied, values)
	return NewInMemoryScan(copied), nil
}

func (s *InMemoryStore) Location(shard int) string {
	return "memory:" + strconv.Itoa(shard)
}

// Shards returns the indexes of all shards that were created.
func (s *InMemoryStore) Shards() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	result := make([]int, 0, len(s.shards))
	for shard := range s.shards {
		result = append(result, shard)
	}
	return result
}

// Values returns a copy of the values written to shard.
func (s *InMemoryStore) Values(shard int) []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	values := s.shards[shard]
	copied := make([]int64, len(values))
	copy(copied, values)
	return copied
}

type inMemorySink struct {
	store  *InMemoryStore
	shard  int
	closed bool
}

func (w *inMemorySink) WriteValue(v int64) error {
	if w.closed {
		return errors.Newf("write to closed shard %d", w.shard)
	}
	w.store.mu.Lock()
	defer w.store.mu.Unlock()
	w.store.shards[w.shard] = append(w.store.shards[w.shard], v)
	return nil
}

func (w *inMemorySink) Close() error {
	if w.closed {
		return nil
	}
	w.store.mu.Lock()
	defer w.store.mu.Unlock()
	w.closed = true
	w.store.open[w.shard] = false
	return nil
}
