package executor

import (
	"container/heap"
	"sort"
	"sync"

	"github.com/robot-dreams/ztopk"
)

// EvictionPolicy decides which held entry a full RankAccumulator gives up when
// a new entry is admitted.
type EvictionPolicy int

const (
	// EvictMinimum drops the smallest count, so the accumulator retains the K
	// most frequent values.
	EvictMinimum EvictionPolicy = iota

	// EvictMaximum drops the largest count, so the accumulator retains the K
	// least frequent values.
	EvictMaximum
)

func (p EvictionPolicy) String() string {
	switch p {
	case EvictMinimum:
		return "evict-minimum"
	case EvictMaximum:
		return "evict-maximum"
	default:
		return "unknown"
	}
}

func ParseEvictionPolicy(s string) (EvictionPolicy, error) {
	switch s {
	case "", "evict-minimum":
		return EvictMinimum, nil
	case "evict-maximum":
		return EvictMaximum, nil
	default:
		return 0, ztopk.NewConfigurationError(
			"eviction",
			"unknown policy %q (want evict-minimum or evict-maximum)",
			s)
	}
}

// Accumulator is the contract shared by RankAccumulator and SyncAccumulator.
type Accumulator interface {
	Admit(entry ztopk.Entry) (ztopk.Entry, bool)
	Fold(table ztopk.FrequencyTable)
	Len() int
	Drain() []ztopk.Entry
}

// rankHeap keeps the entry that should be evicted next at the root.
type rankHeap struct {
	policy  EvictionPolicy
	entries []ztopk.Entry
}

var _ heap.Interface = (*rankHeap)(nil)

func (h *rankHeap) Len() int {
	return len(h.entries)
}

func (h *rankHeap) Swap(i, j int) {
	h.entries[i], h.entries[j] = h.entries[j], h.entries[i]
}

// Less reports whether entry i should be evicted before entry j.  Equal
// counts are ordered by value so that the retained set doesn't depend on the
// order in which entries are admitted.
func (h *rankHeap) Less(i, j int) bool {
	e1 := h.entries[i]
	e2 := h.entries[j]
	if h.policy == EvictMaximum {
		if e1.Count != e2.Count {
			return e1.Count > e2.Count
		}
		return e1.Value < e2.Value
	}
	if e1.Count != e2.Count {
		return e1.Count < e2.Count
	}
	return e1.Value > e2.Value
}

func (h *rankHeap) Push(x interface{}) {
	h.entries = append(h.entries, x.(ztopk.Entry))
}

func (h *rankHeap) Pop() interface{} {
	i := len(h.entries) - 1
	result := h.entries[i]
	h.entries = h.entries[:i]
	return result
}

// RankAccumulator holds at most k entries.  Admit is its only mutator besides
// Drain; it is not safe for concurrent use, see SyncAccumulator.
type RankAccumulator struct {
	k int
	h *rankHeap
}

var _ Accumulator = (*RankAccumulator)(nil)

func NewRankAccumulator(k int, policy EvictionPolicy) (*RankAccumulator, error) {
	if k < 1 {
		return nil, ztopk.NewConfigurationError("k", "must be >= 1; got %d", k)
	}
	if policy != EvictMinimum && policy != EvictMaximum {
		return nil, ztopk.NewConfigurationError(
			"eviction", "unknown policy %d", int(policy))
	}
	// Not preallocated: k may exceed the number of distinct values.
	return &RankAccumulator{
		k: k,
		h: &rankHeap{policy: policy},
	}, nil
}

// Admit inserts entry.  If the accumulator was already full, exactly one entry
// (possibly entry itself) is evicted and returned with ok set.
func (r *RankAccumulator) Admit(entry ztopk.Entry) (evicted ztopk.Entry, ok bool) {
	heap.Push(r.h, entry)
	if r.h.Len() <= r.k {
		return ztopk.Entry{}, false
	}
	return heap.Pop(r.h).(ztopk.Entry), true
}

// Fold admits every entry of table.
func (r *RankAccumulator) Fold(table ztopk.FrequencyTable) {
	for value, count := range table {
		r.Admit(ztopk.Entry{Value: value, Count: count})
	}
}

func (r *RankAccumulator) Len() int {
	return r.h.Len()
}

func (r *RankAccumulator) Cap() int {
	return r.k
}

func (r *RankAccumulator) Policy() EvictionPolicy {
	return r.h.policy
}

// Drain removes every held entry and returns them by descending count; equal
// counts are ordered by ascending value.
func (r *RankAccumulator) Drain() []ztopk.Entry {
	entries := r.h.entries
	r.h.entries = nil
	sort.Sort(byRank(entries))
	return entries
}

type byRank []ztopk.Entry

var _ sort.Interface = (byRank)(nil)

func (b byRank) Len() int {
	return len(b)
}

func (b byRank) Swap(i, j int) {
	b[i], b[j] = b[j], b[i]
}

func (b byRank) Less(i, j int) bool {
	if b[i].Count != b[j].Count {
		return b[i].Count > b[j].Count
	}
	return b[i].Value < b[j].Value
}

// SyncAccumulator serializes access to a RankAccumulator so that several
// shards can be folded into it concurrently.
type SyncAccumulator struct {
	mu sync.Mutex
	r  *RankAccumulator
}

var _ Accumulator = (*SyncAccumulator)(nil)

func NewSyncAccumulator(r *RankAccumulator) *SyncAccumulator {
	return &SyncAccumulator{r: r}
}

func (s *SyncAccumulator) Admit(entry ztopk.Entry) (ztopk.Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.r.Admit(entry)
}

// Fold holds the lock for the whole table, so a table is never interleaved
// with another shard's entries.
func (s *SyncAccumulator) Fold(table ztopk.FrequencyTable) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.r.Fold(table)
}

func (s *SyncAccumulator) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.r.Len()
}

func (s *SyncAccumulator) Drain() []ztopk.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.r.Drain()
}
