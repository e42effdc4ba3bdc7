package ztopk

import (
	. "gopkg.in/check.v1"

	. "github.com/dropbox/godropbox/gocheck2"
)

type InMemorySuite struct{}

var _ = Suite(&InMemorySuite{})

func (s *InMemorySuite) TestInMemoryScan(c *C) {
	values := []int64{5, 3, 5, 7, 3, 5}
	CheckIterator(c, NewInMemoryScan(values), values)
	CheckIterator(c, NewInMemoryScan(nil), nil)
}

func (s *InMemorySuite) TestInMemoryStore(c *C) {
	store := NewInMemoryStore()
	w, err := store.Create(2)
	c.Assert(err, IsNil)
	for _, v := range []int64{2, 12, 22} {
		c.Assert(w.WriteValue(v), IsNil)
	}

	// A shard can't be read back while it is still open.
	_, err = store.Open(2)
	c.Assert(err, NotNil)

	c.Assert(w.Close(), IsNil)
	c.Assert(w.Close(), IsNil)
	c.Assert(w.WriteValue(32), NotNil)

	iter, err := store.Open(2)
	c.Assert(err, IsNil)
	CheckIterator(c, iter, []int64{2, 12, 22})

	// Creating the same shard twice is an error.
	_, err = store.Create(2)
	c.Assert(err, NotNil)

	// Shards that were never created can't be opened.
	_, err = store.Open(3)
	c.Assert(err, NotNil)
	c.Assert(IsIO(err), IsTrue)

	c.Assert(store.Shards(), DeepEquals, []int{2})
	c.Assert(store.Values(2), DeepEquals, []int64{2, 12, 22})
}
