// Copyright 2026 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package typeinfo

import (
	"testing"

	. "gopkg.in/check.v1"
)

func TestTypeInfo(t *testing.T) { TestingT(t) }

type fieldsSuite struct{}

var _ = Suite(&fieldsSuite{})

type orderedSource struct {
	names  []string
	values []any
}

func (s orderedSource) Fields() ([]string, []any) {
	return s.names, s.values
}

type Base struct {
	ID      int
	Created string `db:"created_at"`
}

type Derived struct {
	Base
	Name    string
	Ignored string `db:"-"`
	private int
	Extra   *string
}

func (s *fieldsSuite) TestStructFieldsInDeclarationOrder(c *C) {
	extra := "x"
	fields, err := Fields(Derived{Base: Base{ID: 7, Created: "now"}, Name: "fred", private: 1, Extra: &extra})
	c.Assert(err, IsNil)
	c.Assert(fields, HasLen, 4)
	c.Check(fields[0], DeepEquals, Field{Name: "ID", Value: 7})
	c.Check(fields[1], DeepEquals, Field{Name: "created_at", Value: "now"})
	c.Check(fields[2], DeepEquals, Field{Name: "Name", Value: "fred"})
	c.Check(fields[3].Name, Equals, "Extra")
	c.Check(fields[3].Value, Equals, &extra)
}

func (s *fieldsSuite) TestAnonymousStruct(c *C) {
	fields, err := Fields(struct {
		Int  int
		Text string
	}{Int: 1, Text: "foo"})
	c.Assert(err, IsNil)
	c.Check(fields, DeepEquals, []Field{{Name: "Int", Value: 1}, {Name: "Text", Value: "foo"}})
}

func (s *fieldsSuite) TestPointerToStruct(c *C) {
	fields, err := Fields(&Base{ID: 3})
	c.Assert(err, IsNil)
	c.Check(fields, HasLen, 2)
}

func (s *fieldsSuite) TestNilEmbeddedPointerSkipsPromotedFields(c *C) {
	type outer struct {
		*Base
		Name string
	}
	fields, err := Fields(outer{Name: "n"})
	c.Assert(err, IsNil)
	c.Check(fields, DeepEquals, []Field{{Name: "Name", Value: "n"}})
}

func (s *fieldsSuite) TestMapFieldsAreSorted(c *C) {
	type M map[string]any
	fields, err := Fields(M{"b": 2, "a": 1, "c": nil})
	c.Assert(err, IsNil)
	c.Check(fields, DeepEquals, []Field{{Name: "a", Value: 1}, {Name: "b", Value: 2}, {Name: "c", Value: nil}})
}

func (s *fieldsSuite) TestFieldSource(c *C) {
	fields, err := Fields(orderedSource{names: []string{"z", "a"}, values: []any{1, 2}})
	c.Assert(err, IsNil)
	c.Check(fields, DeepEquals, []Field{{Name: "z", Value: 1}, {Name: "a", Value: 2}})

	_, err = Fields(orderedSource{names: []string{"z"}})
	c.Check(err, ErrorMatches, `internal error: field source .* returned 1 names and 0 values`)
}

func (s *fieldsSuite) TestUnsupportedSources(c *C) {
	var nilBase *Base
	tests := []struct {
		src any
		err string
	}{{
		src: nil,
		err: "need struct, map or field source, got nil",
	}, {
		src: nilBase,
		err: `need struct, map or field source, got nil \*typeinfo.Base`,
	}, {
		src: 5,
		err: "need struct, map or field source, got int",
	}, {
		src: map[int]any{1: 1},
		err: "map type map\\[int\\]interface \\{\\} must have key type string, found type int",
	}, {
		src: []string{"a"},
		err: "need struct, map or field source, got slice",
	}}
	for i, t := range tests {
		_, err := Fields(t.src)
		c.Check(err, ErrorMatches, t.err, Commentf("test %d", i))
	}
}

func (s *fieldsSuite) TestDuplicateNames(c *C) {
	type dupe struct {
		ID int
		Id int `db:"id"`
	}
	_, err := Fields(dupe{})
	c.Check(err, ErrorMatches, `fields "ID" and "Id" of struct dupe have the same name`)
}

func (s *fieldsSuite) TestKindOf(c *C) {
	var nilMap map[string]int
	c.Check(KindOf(nil), Equals, Unsupported)
	c.Check(KindOf(orderedSource{}), Equals, SourceKind)
	c.Check(KindOf(map[string]int{}), Equals, MapKind)
	c.Check(KindOf(nilMap), Equals, MapKind)
	c.Check(KindOf(&Base{}), Equals, StructKind)
	c.Check(KindOf(3.5), Equals, Unsupported)
}

func (s *fieldsSuite) TestFold(c *C) {
	c.Check(SameName("Text", "TEXT"), Equals, true)
	c.Check(SameName("id", "ID"), Equals, true)
	c.Check(SameName("id", "idx"), Equals, false)
}
