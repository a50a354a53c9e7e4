// Copyright 2026 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package sqlbind_test

import (
	"encoding/json"
	"errors"

	. "gopkg.in/check.v1"

	"github.com/canonical/sqlbind"
)

type RecordSuite struct{}

var _ = Suite(&RecordSuite{})

type Address struct {
	Street   string `db:"street"`
	District string
}

type Person struct {
	Address
	ID       int
	Fullname string `db:"name"`
	Secret   string `db:"-"`
	age      int
}

func (s *RecordSuite) TestSetAndGet(c *C) {
	r := sqlbind.NewRecord()
	r.Set("Name", "Fred")
	r.Set("id", 1)
	r.Set("NAME", "Mark")

	c.Check(r.Len(), Equals, 2)
	c.Check(r.Keys(), DeepEquals, []string{"Name", "id"})
	v, err := r.Get("name")
	c.Assert(err, IsNil)
	c.Check(v, Equals, "Mark")

	_, err = r.Get("missing")
	c.Check(errors.Is(err, sqlbind.ErrKeyNotFound), Equals, true)
	c.Check(err, ErrorMatches, `sqlbind.Record.Get: key not found \(missing\)`)
}

func (s *RecordSuite) TestUnicodeFolding(c *C) {
	r := sqlbind.NewRecord()
	r.Set("Straße", 1)
	r.Set("STRASSE", 2)
	c.Check(r.Len(), Equals, 1)
	v, err := r.Get("strasse")
	c.Assert(err, IsNil)
	c.Check(v, Equals, 2)
}

func (s *RecordSuite) TestHasAndDelete(c *C) {
	r := sqlbind.NewRecord()
	r.Set("a", 1)
	r.Set("b", 2)
	r.Set("c", 3)

	c.Check(r.Has("B"), Equals, true)
	c.Check(r.Delete("B"), Equals, true)
	c.Check(r.Delete("B"), Equals, false)
	c.Check(r.Has("b"), Equals, false)
	c.Check(r.Keys(), DeepEquals, []string{"a", "c"})

	// Positions after the deleted field are still found.
	v, err := r.Get("c")
	c.Assert(err, IsNil)
	c.Check(v, Equals, 3)
	r.Set("b", 4)
	c.Check(r.Values(), DeepEquals, []any{1, 3, 4})
}

func (s *RecordSuite) TestRecordFromStruct(c *C) {
	r, err := sqlbind.RecordFrom(&Person{
		Address:  Address{Street: "Main", District: "North"},
		ID:       7,
		Fullname: "Fred",
		Secret:   "x",
		age:      30,
	})
	c.Assert(err, IsNil)
	c.Check(r.Keys(), DeepEquals, []string{"street", "District", "ID", "name"})
	c.Check(r.Values(), DeepEquals, []any{"Main", "North", 7, "Fred"})
}

func (s *RecordSuite) TestRecordFromMap(c *C) {
	r, err := sqlbind.RecordFrom(map[string]any{"b": 2, "a": 1})
	c.Assert(err, IsNil)
	c.Check(r.Keys(), DeepEquals, []string{"a", "b"})

	c2, err := sqlbind.RecordFrom(r)
	c.Assert(err, IsNil)
	c2.Set("a", 5)
	v, _ := r.Get("a")
	c.Check(v, Equals, 1)
}

func (s *RecordSuite) TestRecordFromUnsupported(c *C) {
	for _, source := range []any{nil, 5, (*Person)(nil), struct{ hidden int }{}} {
		_, err := sqlbind.RecordFrom(source)
		c.Check(errors.Is(err, sqlbind.ErrUnsupportedSource), Equals, true, Commentf("source %#v", source))
	}
}

func (s *RecordSuite) TestExpand(c *C) {
	r := sqlbind.NewRecord()
	r.Set("id", 1)
	r.Set("name", "Fred")

	e, err := r.Expand(map[string]any{"NAME": "Mark", "team": "red"})
	c.Assert(err, IsNil)
	c.Check(e.Keys(), DeepEquals, []string{"id", "name", "team"})
	c.Check(e.Values(), DeepEquals, []any{1, "Mark", "red"})

	// The receiver is unchanged.
	c.Check(r.Len(), Equals, 2)
	v, _ := r.Get("name")
	c.Check(v, Equals, "Fred")

	// Later expansions win.
	e, err = r.Expand(struct{ Name string }{"A"})
	c.Assert(err, IsNil)
	e, err = e.Expand(map[string]any{"name": "B"})
	c.Assert(err, IsNil)
	v, _ = e.Get("name")
	c.Check(v, Equals, "B")

	_, err = r.Expand(nil)
	c.Check(errors.Is(err, sqlbind.ErrUnsupportedSource), Equals, true)
}

func (s *RecordSuite) TestExpandKeepsReferences(c *C) {
	shared := []int{1}
	r, err := sqlbind.NewRecord().Expand(map[string]any{"s": shared})
	c.Assert(err, IsNil)
	shared[0] = 2
	v, _ := r.Get("s")
	c.Check(v, DeepEquals, []int{2})
}

func (s *RecordSuite) TestMarshalJSON(c *C) {
	r := sqlbind.NewRecord()
	r.Set("z", 1)
	r.Set("a", "x")
	r.Set("m", nil)
	b, err := json.Marshal(r)
	c.Assert(err, IsNil)
	c.Check(string(b), Equals, `{"z":1,"a":"x","m":null}`)
	c.Check(r.String(), Equals, "{z: 1, a: x, m: <nil>}")
	c.Check(r.Map(), DeepEquals, map[string]any{"z": 1, "a": "x", "m": nil})
}

func (s *RecordSuite) TestNilRecord(c *C) {
	var r *sqlbind.Record
	c.Check(r.Len(), Equals, 0)
	names, values := r.Fields()
	c.Check(names, HasLen, 0)
	c.Check(values, HasLen, 0)
	c.Check(r.Has("a"), Equals, false)
}
