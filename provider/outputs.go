// Copyright 2026 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package provider

import (
	"database/sql"
	"database/sql/driver"
	"fmt"
	"reflect"
)

// OutDest returns a destination for the value the database sends back for
// an output parameter. For a bound InputOutput parameter the destination
// holds the bound value on return. It fails if that value cannot be stored
// in a destination of the parameter's DBType.
func OutDest(p *Parameter) (any, error) {
	var dest any
	switch p.DBType {
	case Boolean:
		dest = &sql.NullBool{}
	case Int16:
		dest = &sql.NullInt16{}
	case Int32:
		dest = &sql.NullInt32{}
	case Int64:
		dest = &sql.NullInt64{}
	case Single, Double, Decimal:
		dest = &sql.NullFloat64{}
	case Date, DateTime:
		dest = &sql.NullTime{}
	case Binary:
		b := []byte(nil)
		if sendsValue(p) {
			v, ok := p.Value.([]byte)
			if !ok {
				return nil, fmt.Errorf("cannot send %T as %s for parameter %q", p.Value, p.DBType, p.Name)
			}
			b = append(b, v...)
		}
		return &b, nil
	default:
		dest = &sql.NullString{}
	}
	if sendsValue(p) {
		if err := dest.(sql.Scanner).Scan(p.Value); err != nil {
			return nil, fmt.Errorf("cannot send %T as %s for parameter %q: %w", p.Value, p.DBType, p.Name, err)
		}
	}
	return dest, nil
}

// sendsValue reports whether p is an InputOutput parameter with a non-NULL
// bound value.
func sendsValue(p *Parameter) bool {
	return p.Direction == InputOutput && p.Bound && p.Value != nil
}

// Out returns the named argument binding p as an output parameter. An
// InputOutput parameter sends its value only if bound.
func Out(name string, p *Parameter) (sql.NamedArg, error) {
	dest, err := OutDest(p)
	if err != nil {
		return sql.NamedArg{}, err
	}
	return sql.Named(name, sql.Out{Dest: dest, In: p.Direction == InputOutput && p.Bound}), nil
}

// CopyOutputs copies values sent back by the database for the output
// parameters of cmd from the arguments returned by Render. An output
// parameter is bound to a named sql.Out argument. A return value may also be
// bound to a named pointer argument.
func CopyOutputs(cmd *Command, args []any) {
	for _, arg := range args {
		na, ok := arg.(sql.NamedArg)
		if !ok {
			continue
		}
		p, ok := cmd.Parameter(na.Name)
		if !ok || !p.IsOutput() {
			continue
		}
		var dest any
		switch v := na.Value.(type) {
		case sql.Out:
			dest = v.Dest
		default:
			if p.Direction != ReturnValue {
				continue
			}
			dest = v
		}
		p.Value = outValue(dest)
		p.Bound = true
	}
}

// outValue dereferences dest, unwrapping sql.Null types to nil or their
// value.
func outValue(dest any) any {
	rv := reflect.ValueOf(dest)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return dest
	}
	v := rv.Elem().Interface()
	if valuer, ok := v.(driver.Valuer); ok {
		out, err := valuer.Value()
		if err != nil {
			return v
		}
		return out
	}
	switch rv.Elem().Kind() {
	case reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Elem().Int()
	}
	return v
}
