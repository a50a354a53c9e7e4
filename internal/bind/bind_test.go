// Copyright 2026 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package bind_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	. "gopkg.in/check.v1"

	"github.com/canonical/sqlbind/internal/bind"
	"github.com/canonical/sqlbind/provider"
)

func TestBind(t *testing.T) { TestingT(t) }

type bindSuite struct{}

var _ = Suite(&bindSuite{})

// testProvider classifies parameters with type name "xml" as XML and sends
// GUIDs as strings.
type testProvider struct {
	provider.Provider
}

func (testProvider) IsXMLParameter(cmd *provider.Command, p *provider.Parameter) (bool, error) {
	return strings.EqualFold(p.TypeName, "xml") || provider.IsXMLValue(p.Value), nil
}

func (testProvider) NormalizeValue(p *provider.Parameter, v any) (any, error) {
	if id, ok := v.(uuid.UUID); ok {
		return id.String(), nil
	}
	return v, nil
}

type person struct {
	ID    int
	Name  string `db:"full_name"`
	Email *string
	Age   int
}

func procedure(params ...*provider.Parameter) *provider.Command {
	return &provider.Command{Text: "update_person", Type: provider.StoredProcedure, Parameters: params, Derived: true}
}

func (s *bindSuite) TestTextCommandFromStruct(c *C) {
	cmd := &provider.Command{Text: "SELECT * FROM person WHERE id = @id AND full_name = @Full_Name OR email = @email"}
	err := bind.Materialize(person{ID: 7, Name: "Fred", Age: 30}, cmd, testProvider{}, bind.Options{})
	c.Assert(err, IsNil)

	c.Assert(cmd.Parameters, HasLen, 3)
	var names []string
	for _, p := range cmd.Parameters {
		names = append(names, p.Name)
		c.Check(p.Direction, Equals, provider.Input)
		c.Check(p.Bound, Equals, true)
	}
	// Source order, not placeholder order.
	c.Check(names, DeepEquals, []string{"ID", "full_name", "Email"})
	c.Check(cmd.Parameters[0].DBType, Equals, provider.Int64)
	c.Check(cmd.Parameters[0].Value, Equals, 7)
	c.Check(cmd.Parameters[1].DBType, Equals, provider.String)
	c.Check(cmd.Parameters[2].Value, IsNil)
}

func (s *bindSuite) TestTextCommandIsDeterministic(c *C) {
	source := map[string]any{"b": 2, "a": 1, "c": nil, "unused": true}
	text := "SELECT @a, @b, @c"
	var runs [][]string
	for i := 0; i < 2; i++ {
		cmd := &provider.Command{Text: text}
		c.Assert(bind.Materialize(source, cmd, testProvider{}, bind.Options{}), IsNil)
		var names []string
		for _, p := range cmd.Parameters {
			names = append(names, p.Name)
		}
		runs = append(runs, names)
	}
	c.Check(runs[0], DeepEquals, []string{"a", "b", "c"})
	c.Check(runs[1], DeepEquals, runs[0])
}

func (s *bindSuite) TestTextCommandNilSource(c *C) {
	cmd := &provider.Command{Text: "SELECT 1", Parameters: []*provider.Parameter{{Name: "old"}}}
	c.Assert(bind.Materialize(nil, cmd, testProvider{}, bind.Options{}), IsNil)
	c.Check(cmd.Parameters, HasLen, 0)
}

func (s *bindSuite) TestTextCommandGUID(c *C) {
	id := uuid.New()
	cmd := &provider.Command{Text: "SELECT @key"}
	c.Assert(bind.Materialize(map[string]any{"key": id}, cmd, testProvider{}, bind.Options{}), IsNil)
	c.Check(cmd.Parameters[0].DBType, Equals, provider.GUID)
	c.Check(cmd.Parameters[0].Value, Equals, id.String())
}

func (s *bindSuite) TestTextCommandDuplicateMapKeys(c *C) {
	cmd := &provider.Command{Text: "SELECT @id"}
	err := bind.Materialize(map[string]any{"id": 1, "ID": 2}, cmd, testProvider{}, bind.Options{})
	c.Check(err, ErrorMatches, `bind.bindText: fields ID and id bind the same placeholder \(id\)`)
	c.Check(errors.Is(err, provider.ErrParameterBinding), Equals, true)
}

func (s *bindSuite) TestUnsupportedSource(c *C) {
	var nilPerson *person
	for _, source := range []any{42, "text", []int{1}, map[int]any{1: 1}, nilPerson} {
		cmd := &provider.Command{Text: "SELECT @a"}
		err := bind.Materialize(source, cmd, testProvider{}, bind.Options{})
		c.Check(errors.Is(err, provider.ErrUnsupportedParameterSource), Equals, true, Commentf("source %#v", source))
	}
}

func (s *bindSuite) TestNilArguments(c *C) {
	err := bind.Materialize(nil, nil, testProvider{}, bind.Options{})
	c.Check(errors.Is(err, provider.ErrArgumentNull), Equals, true)
	err = bind.Materialize(nil, &provider.Command{}, nil, bind.Options{})
	c.Check(errors.Is(err, provider.ErrArgumentNull), Equals, true)
}

func (s *bindSuite) TestProcedureBindsDerivedParameters(c *C) {
	cmd := procedure(
		&provider.Parameter{Name: "@p_id", DBType: provider.Int32, Direction: provider.Input, Position: 1},
		&provider.Parameter{Name: "@p_name", DBType: provider.String, Direction: provider.Input, Position: 2, HasDefault: true},
		&provider.Parameter{Name: "@p_email", DBType: provider.String, Direction: provider.Input, Position: 3},
		&provider.Parameter{Name: "@p_count", DBType: provider.Int64, Direction: provider.InputOutput, Position: 4},
	)
	source := map[string]any{"P_ID": "12", "p_email": nil, "p_count": int16(3)}
	c.Assert(bind.Materialize(source, cmd, testProvider{}, bind.Options{}), IsNil)

	id, name, email, count := cmd.Parameters[0], cmd.Parameters[1], cmd.Parameters[2], cmd.Parameters[3]
	c.Check(id.Bound, Equals, true)
	c.Check(id.Value, Equals, int32(12))
	// Absent, so the declared default applies.
	c.Check(name.Bound, Equals, false)
	// Explicit NULL.
	c.Check(email.Bound, Equals, true)
	c.Check(email.Value, IsNil)
	c.Check(count.Value, Equals, int64(3))
	c.Check(count.Direction, Equals, provider.InputOutput)
}

func (s *bindSuite) TestProcedureXMLParameter(c *C) {
	type doc struct {
		Title string `xml:"title"`
	}
	cmd := procedure(&provider.Parameter{Name: "body", TypeName: "xml", DBType: provider.String})
	c.Assert(bind.Materialize(map[string]any{"body": doc{Title: "t"}}, cmd, testProvider{}, bind.Options{}), IsNil)
	c.Check(cmd.Parameters[0].Value, Equals, "<doc><title>t</title></doc>")

	cmd = procedure(&provider.Parameter{Name: "body", TypeName: "xml", DBType: provider.String})
	c.Assert(bind.Materialize(map[string]any{"body": "<raw/>"}, cmd, testProvider{}, bind.Options{}), IsNil)
	c.Check(cmd.Parameters[0].Value, Equals, "<raw/>")
}

func (s *bindSuite) TestProcedureUnmatchedField(c *C) {
	source := map[string]any{"id": 1, "extra": 2}
	cmd := procedure(&provider.Parameter{Name: "id", DBType: provider.Int64})
	c.Assert(bind.Materialize(source, cmd, testProvider{}, bind.Options{}), IsNil)
	c.Check(cmd.Parameters[0].Value, Equals, 1)

	cmd = procedure(&provider.Parameter{Name: "id", DBType: provider.Int64})
	err := bind.Materialize(source, cmd, testProvider{}, bind.Options{StrictProcedureBinding: true})
	c.Check(errors.Is(err, provider.ErrParameterBinding), Equals, true)
	c.Check(err, ErrorMatches, `.*\(extra\)`)
}

func (s *bindSuite) TestProcedureReturnValueIsNotBound(c *C) {
	cmd := procedure(&provider.Parameter{Name: "ret", Direction: provider.ReturnValue})
	err := bind.Materialize(map[string]any{"ret": 1}, cmd, testProvider{}, bind.Options{StrictProcedureBinding: true})
	c.Check(errors.Is(err, provider.ErrParameterBinding), Equals, true)
}

func (s *bindSuite) TestProcedureMustBeDerived(c *C) {
	cmd := &provider.Command{Text: "proc", Type: provider.StoredProcedure}
	err := bind.Materialize(nil, cmd, testProvider{}, bind.Options{})
	c.Check(errors.Is(err, provider.ErrParameterBinding), Equals, true)
}

func (s *bindSuite) TestProcedureConversionError(c *C) {
	cmd := procedure(&provider.Parameter{Name: "id", DBType: provider.Int32})
	err := bind.Materialize(map[string]any{"id": "abc"}, cmd, testProvider{}, bind.Options{})
	c.Check(errors.Is(err, provider.ErrParameterBinding), Equals, true)
	c.Check(err, ErrorMatches, `bind.bindProcedure: parameter binding error \(id\): .*`)
}

func (s *bindSuite) TestProcedureValueOutOfRange(c *C) {
	cmd := procedure(&provider.Parameter{Name: "qty", DBType: provider.Int16})
	err := bind.Materialize(map[string]any{"qty": 70000}, cmd, testProvider{}, bind.Options{})
	c.Check(errors.Is(err, provider.ErrParameterBinding), Equals, true)
	c.Check(err, ErrorMatches, `.*\(qty\): .*70000 out of range.*`)
	c.Check(cmd.Parameters[0].Bound, Equals, false)
}
