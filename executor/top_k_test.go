package executor

import (
	"bytes"
	"context"
	"os"
	"sort"
	"strings"

	. "gopkg.in/check.v1"

	. "github.com/dropbox/godropbox/gocheck2"
	"github.com/dropbox/godropbox/math2/rand2"
	"github.com/robot-dreams/ztopk"
	"github.com/robot-dreams/ztopk/encoding/stream"
)

type TopKSuite struct{}

var _ = Suite(&TopKSuite{})

func defaultOptions(k, shards int) Options {
	return Options{
		K:         k,
		Shards:    shards,
		Eviction:  EvictMinimum,
		Workers:   1,
		BloomBits: 1 << 16,
	}
}

func runTopK(c *C, opts Options, values []int64) *RunResult {
	t, err := NewTopK(opts, ztopk.NewInMemoryStore())
	c.Assert(err, IsNil)
	c.Assert(t.State(), Equals, Init)
	result, err := t.Run(context.Background(), ztopk.NewInMemoryScan(values))
	c.Assert(err, IsNil)
	c.Assert(t.State(), Equals, Done)
	c.Assert(t.Err(), IsNil)
	return result
}

func (s *TopKSuite) TestScenario(c *C) {
	values := []int64{5, 3, 5, 7, 3, 5}
	result := runTopK(c, defaultOptions(2, 1), values)
	c.Assert(result.Entries, DeepEquals, []ztopk.Entry{{Value: 5, Count: 3}, {Value: 3, Count: 2}})
	c.Assert(result.Records, Equals, uint64(6))
	c.Assert(result.Shards, DeepEquals, []Shard{{Index: 0, Records: 6, ApproxDistinct: 3}})

	opts := defaultOptions(2, 1)
	opts.Eviction = EvictMaximum
	result = runTopK(c, opts, values)
	c.Assert(result.Entries, DeepEquals, []ztopk.Entry{{Value: 3, Count: 2}, {Value: 7, Count: 1}})
}

func (s *TopKSuite) TestKLargerThanDistinct(c *C) {
	result := runTopK(c, defaultOptions(10, 4), []int64{1, 2, 2, 3, 3, 3})
	c.Assert(result.Entries, DeepEquals, []ztopk.Entry{{Value: 3, Count: 3}, {Value: 2, Count: 2}, {Value: 1, Count: 1}})
}

func (s *TopKSuite) TestSingleDistinctValue(c *C) {
	var values []int64
	for i := 0; i < 1000; i++ {
		values = append(values, 42)
	}
	result := runTopK(c, defaultOptions(3, 8), values)
	c.Assert(result.Entries, DeepEquals, []ztopk.Entry{{Value: 42, Count: 1000}})
	c.Assert(result.Shards, HasLen, 1)
}

func (s *TopKSuite) TestEmptySource(c *C) {
	result := runTopK(c, defaultOptions(3, 8), nil)
	c.Assert(result.Entries, HasLen, 0)
	c.Assert(result.Shards, HasLen, 0)
	c.Assert(result.Records, Equals, uint64(0))
}

func (s *TopKSuite) TestMatchesBruteForce(c *C) {
	var values []int64
	for i := 0; i < 20000; i++ {
		// Skew the distribution so the top entries are well separated from
		// the tail.
		v := int64(rand2.Intn(1000))
		if rand2.Intn(4) == 0 {
			v = int64(rand2.Intn(10))
		}
		values = append(values, v-500)
	}
	counts := bruteForceCounts(values)
	var expected []ztopk.Entry
	for value, count := range counts {
		expected = append(expected, ztopk.Entry{Value: value, Count: count})
	}
	sort.Sort(byRank(expected))
	expected = expected[:20]

	for _, shards := range []int{1, 7, 64} {
		for _, workers := range []int{1, 4} {
			opts := defaultOptions(20, shards)
			opts.Workers = workers
			result := runTopK(c, opts, values)
			c.Assert(result.Entries, DeepEquals, expected)

			var total uint64
			for _, shard := range result.Shards {
				total += shard.Records
			}
			c.Assert(total, Equals, uint64(len(values)))
		}
	}
}

func (s *TopKSuite) TestIdempotent(c *C) {
	path := c.MkDir() + "/values.txt"
	var values []int64
	for i := 0; i < 5000; i++ {
		values = append(values, int64(rand2.Intn(300)))
	}
	c.Assert(stream.WriteAll(path, stream.None, values), IsNil)

	var results [][]ztopk.Entry
	for run := 0; run < 2; run++ {
		store, err := stream.NewDirStore(c.MkDir(), stream.ShardPrefix(path), stream.LZ4)
		c.Assert(err, IsNil)
		t, err := NewTopK(defaultOptions(15, 32), store)
		c.Assert(err, IsNil)
		src, err := stream.NewScan(path, stream.None)
		c.Assert(err, IsNil)
		result, err := t.Run(context.Background(), src)
		c.Assert(err, IsNil)
		c.Assert(src.Close(), IsNil)
		results = append(results, result.Entries)
	}
	c.Assert(results[0], HasLen, 15)
	c.Assert(results[0], DeepEquals, results[1])
}

func (s *TopKSuite) TestMalformedInputFails(c *C) {
	dir := c.MkDir()
	store, err := stream.NewDirStore(dir, "values", stream.None)
	c.Assert(err, IsNil)
	t, err := NewTopK(defaultOptions(2, 4), store)
	c.Assert(err, IsNil)
	src := stream.NewReaderScan("values.txt", strings.NewReader("5\n3\nabc\n7\n"))
	result, err := t.Run(context.Background(), src)
	c.Assert(result, IsNil)
	c.Assert(ztopk.IsMalformedInput(err), IsTrue)
	c.Assert(t.State(), Equals, Failed)
	c.Assert(t.Err(), Equals, err)

	// Shards written before the failure are left behind.
	entries, err := os.ReadDir(dir)
	c.Assert(err, IsNil)
	c.Assert(len(entries) > 0, IsTrue)

	// A finished run can't be restarted.
	_, err = t.Run(context.Background(), ztopk.NewInMemoryScan(nil))
	c.Assert(err, NotNil)
}

func (s *TopKSuite) TestMalformedShardFails(c *C) {
	// Corrupt a shard between partitioning and counting.
	store := &corruptingStore{InMemoryStore: ztopk.NewInMemoryStore()}
	t, err := NewTopK(defaultOptions(2, 2), store)
	c.Assert(err, IsNil)
	_, err = t.Run(context.Background(), ztopk.NewInMemoryScan([]int64{1, 2, 3}))
	c.Assert(ztopk.IsMalformedInput(err), IsTrue)
	c.Assert(t.State(), Equals, Failed)
}

func (s *TopKSuite) TestIOErrorFails(c *C) {
	t, err := NewTopK(defaultOptions(2, 4), newFailingStore(0))
	c.Assert(err, IsNil)
	_, err = t.Run(context.Background(), ztopk.NewInMemoryScan([]int64{1}))
	c.Assert(ztopk.IsIO(err), IsTrue)
	c.Assert(t.State(), Equals, Failed)
}

func (s *TopKSuite) TestConfigurationErrors(c *C) {
	store := newFailingStore(100)
	for _, opts := range []Options{
		{K: 0, Shards: 1, Workers: 1},
		{K: 1, Shards: 0, Workers: 1},
		{K: 1, Shards: 1, Workers: 0},
		{K: 1, Shards: 1, Workers: 1, Eviction: EvictionPolicy(9)},
	} {
		_, err := NewTopK(opts, store)
		c.Assert(ztopk.IsConfiguration(err), IsTrue)
	}
	// Nothing was created before the parameters were rejected.
	c.Assert(store.touched, IsFalse)
}

func (s *TopKSuite) TestCanceledContext(c *C) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	store := newFailingStore(100)
	t, err := NewTopK(defaultOptions(2, 4), store)
	c.Assert(err, IsNil)
	_, err = t.Run(ctx, ztopk.NewInMemoryScan([]int64{1, 2}))
	c.Assert(err, Equals, context.Canceled)
	c.Assert(t.State(), Equals, Failed)
	c.Assert(store.touched, IsFalse)
}

func (s *TopKSuite) TestWriteResult(c *C) {
	var buf bytes.Buffer
	err := WriteResult(&buf, []ztopk.Entry{{Value: 5, Count: 3}, {Value: -3, Count: 2}})
	c.Assert(err, IsNil)
	c.Assert(buf.String(), Equals, "5 3\n-3 2\n")
}

func (s *TopKSuite) TestStateString(c *C) {
	c.Assert(Init.String(), Equals, "INIT")
	c.Assert(Partitioning.String(), Equals, "PARTITION")
	c.Assert(Counting.String(), Equals, "COUNT")
	c.Assert(Reporting.String(), Equals, "REPORT")
	c.Assert(Done.String(), Equals, "DONE")
	c.Assert(Failed.String(), Equals, "FAILED")
}

// corruptingStore hands out a shard containing a non-integer record.
type corruptingStore struct {
	*ztopk.InMemoryStore
}

func (s *corruptingStore) Open(shard int) (ztopk.Iterator, error) {
	return stream.NewReaderScan(s.Location(shard), strings.NewReader("1\nxyz\n")), nil
}
