// Copyright 2026 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package provider

import (
	"strings"

	"github.com/canonical/sqlbind/internal/typeinfo"
)

// CommandType says how the Text of a Command is interpreted.
type CommandType int

const (
	// Text commands hold SQL with @name placeholders.
	Text CommandType = iota
	// StoredProcedure commands hold the name of a procedure.
	StoredProcedure
)

func (t CommandType) String() string {
	if t == StoredProcedure {
		return "stored procedure"
	}
	return "text"
}

// Command is a SQL statement or procedure call together with its parameters.
// A Command is used by one call at a time.
type Command struct {
	Text       string
	Type       CommandType
	Parameters []*Parameter
	// Derived is true once the parameters of a stored procedure have been
	// read from the catalog.
	Derived bool
	// Routine is the kind of routine read from the catalog, e.g. "FUNCTION"
	// or "PROCEDURE", where the database calls them differently.
	Routine string
}

// Parameter returns the parameter named name, ignoring case and any leading
// @, : or $.
func (c *Command) Parameter(name string) (*Parameter, bool) {
	folded := typeinfo.Fold(TrimPrefix(name))
	for _, p := range c.Parameters {
		if typeinfo.Fold(TrimPrefix(p.Name)) == folded {
			return p, true
		}
	}
	return nil, false
}

// TrimPrefix removes a leading parameter marker from name.
func TrimPrefix(name string) string {
	return strings.TrimLeft(name, "@:$")
}

// Direction of a parameter.
type Direction int

const (
	Input Direction = iota
	InputOutput
	Output
	ReturnValue
)

func (d Direction) String() string {
	switch d {
	case InputOutput:
		return "inout"
	case Output:
		return "out"
	case ReturnValue:
		return "return"
	}
	return "in"
}

// Parameter is a named, typed command parameter.
type Parameter struct {
	Name string
	// DBType is inferred from the bound value for text commands and mapped
	// from TypeName for derived procedure parameters.
	DBType DBType
	// TypeName is the backend's own name for the type, if known.
	TypeName  string
	Direction Direction
	Size      int64
	Precision int64
	Scale     int64
	// HasDefault is true if the catalog declares a default value.
	HasDefault bool
	// Position is the 1-based ordinal of a derived parameter.
	Position int
	Value    any
	// Bound is false for a derived parameter no value was supplied for. An
	// unbound input parameter is left out of the call so that its declared
	// default applies. A bound parameter with a nil Value is NULL.
	Bound bool
}

// Clone returns a copy of p. Byte slice values are copied.
func (p *Parameter) Clone() *Parameter {
	c := *p
	if b, ok := p.Value.([]byte); ok && b != nil {
		c.Value = append([]byte(nil), b...)
	}
	return &c
}

// IsInput reports whether a value is sent to the database for p.
func (p *Parameter) IsInput() bool {
	return p.Direction == Input || p.Direction == InputOutput
}

// IsOutput reports whether the database sends back a value for p.
func (p *Parameter) IsOutput() bool {
	return p.Direction == InputOutput || p.Direction == Output || p.Direction == ReturnValue
}

// CallParameters returns the parameters of a procedure call in order,
// leaving out unbound input parameters and return values.
func CallParameters(cmd *Command) []*Parameter {
	var ps []*Parameter
	for _, p := range cmd.Parameters {
		switch {
		case p.Direction == ReturnValue:
		case p.Direction == Input && !p.Bound:
		default:
			ps = append(ps, p)
		}
	}
	return ps
}
