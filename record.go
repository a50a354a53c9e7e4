// Copyright 2026 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package sqlbind

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/canonical/sqlbind/internal/errors"
	"github.com/canonical/sqlbind/internal/typeinfo"
)

// Record is an ordered set of named values. Names are compared ignoring
// case. Setting a name already in the record replaces its value in place,
// keeping the original spelling and position of the name. Setting a new name
// appends it.
//
// A Record can be used as a parameter source and is the type rows are read
// into. It is not safe for concurrent mutation.
type Record struct {
	names  []string
	values []any
	// index maps folded names to positions.
	index map[string]int
}

// NewRecord returns an empty record.
func NewRecord() *Record {
	return &Record{index: map[string]int{}}
}

// RecordFrom returns a record holding the fields of source in order. source
// may be a struct or a pointer to one, a map with string keys, a *Record or
// any other value with a Fields method. Struct fields are read as they are
// for parameters: exported fields including promoted ones, renamed by a
// `db:"name"` tag and skipped with `db:"-"`. Map keys are sorted.
func RecordFrom(source any) (*Record, error) {
	r := NewRecord()
	if err := r.merge("sqlbind.RecordFrom", source); err != nil {
		return nil, err
	}
	return r, nil
}

// merge sets every field of source on r.
func (r *Record) merge(op errors.Op, source any) error {
	if typeinfo.KindOf(source) == typeinfo.Unsupported {
		return errors.New(errors.UnsupportedSource, op, fmt.Sprintf("need struct, map or field source, got %T", source))
	}
	fields, err := typeinfo.Fields(source)
	if err != nil {
		return errors.Wrap(err, errors.UnsupportedSource, op, "")
	}
	if len(fields) == 0 && typeinfo.KindOf(source) == typeinfo.StructKind {
		return errors.New(errors.UnsupportedSource, op, fmt.Sprintf("%T has no readable fields", source))
	}
	for _, f := range fields {
		r.Set(f.Name, f.Value)
	}
	return nil
}

// Expand returns a copy of r with the fields of other set on it. Neither r
// nor other is changed. other may be any value accepted by RecordFrom.
func (r *Record) Expand(other any) (*Record, error) {
	c := r.Clone()
	if err := c.merge("sqlbind.Record.Expand", other); err != nil {
		return nil, err
	}
	return c, nil
}

// Get returns the value of name. It returns an error matching
// ErrKeyNotFound if the record has no such name.
func (r *Record) Get(name string) (any, error) {
	if i, ok := r.lookup(name); ok {
		return r.values[i], nil
	}
	return nil, errors.New(errors.KeyNotFound, "sqlbind.Record.Get", "", errors.WithName(name))
}

// Set sets the value of name.
func (r *Record) Set(name string, value any) {
	if r.index == nil {
		r.index = map[string]int{}
	}
	key := typeinfo.Fold(name)
	if i, ok := r.index[key]; ok {
		r.values[i] = value
		return
	}
	r.index[key] = len(r.names)
	r.names = append(r.names, name)
	r.values = append(r.values, value)
}

// Has reports whether the record holds name.
func (r *Record) Has(name string) bool {
	_, ok := r.lookup(name)
	return ok
}

// Delete removes name from the record. It reports whether name was present.
func (r *Record) Delete(name string) bool {
	i, ok := r.lookup(name)
	if !ok {
		return false
	}
	r.names = append(r.names[:i], r.names[i+1:]...)
	r.values = append(r.values[:i], r.values[i+1:]...)
	delete(r.index, typeinfo.Fold(name))
	for j := i; j < len(r.names); j++ {
		r.index[typeinfo.Fold(r.names[j])] = j
	}
	return true
}

func (r *Record) lookup(name string) (int, bool) {
	if r == nil || r.index == nil {
		return 0, false
	}
	i, ok := r.index[typeinfo.Fold(name)]
	return i, ok
}

// Len returns the number of fields in the record.
func (r *Record) Len() int {
	if r == nil {
		return 0
	}
	return len(r.names)
}

// Keys returns the names in the record in order.
func (r *Record) Keys() []string {
	if r == nil {
		return nil
	}
	return append([]string(nil), r.names...)
}

// Values returns the values in the record in order.
func (r *Record) Values() []any {
	if r == nil {
		return nil
	}
	return append([]any(nil), r.values...)
}

// Fields returns the names and values in the record in order. It makes a
// Record a parameter source.
func (r *Record) Fields() ([]string, []any) {
	return r.Keys(), r.Values()
}

// Map returns the fields of the record as a map.
func (r *Record) Map() map[string]any {
	m := make(map[string]any, r.Len())
	for i := 0; i < r.Len(); i++ {
		m[r.names[i]] = r.values[i]
	}
	return m
}

// Clone returns a copy of the record. Values are not copied.
func (r *Record) Clone() *Record {
	c := NewRecord()
	for i := 0; i < r.Len(); i++ {
		c.Set(r.names[i], r.values[i])
	}
	return c
}

// MarshalJSON encodes the record as a JSON object with keys in record order.
func (r *Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i := 0; i < r.Len(); i++ {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(r.names[i])
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(r.values[i])
		if err != nil {
			return nil, fmt.Errorf("cannot marshal field %q: %w", r.names[i], err)
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (r *Record) String() string {
	var sb strings.Builder
	sb.WriteByte('{')
	for i := 0; i < r.Len(); i++ {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "%s: %v", r.names[i], r.values[i])
	}
	sb.WriteByte('}')
	return sb.String()
}
