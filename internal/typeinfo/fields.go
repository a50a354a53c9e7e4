// Copyright 2026 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package typeinfo

import (
	"fmt"
	"reflect"
	"sort"
)

// FieldSource is implemented by values that expose their own ordered
// sequence of named fields, such as sqlbind.Record.
type FieldSource interface {
	Fields() (names []string, values []any)
}

// Field is a single named value taken from a source.
type Field struct {
	Name  string
	Value any
}

// Kind is the shape of a source value.
type Kind int

const (
	Unsupported Kind = iota
	SourceKind
	MapKind
	StructKind
)

func (k Kind) String() string {
	switch k {
	case SourceKind:
		return "field source"
	case MapKind:
		return "map"
	case StructKind:
		return "struct"
	}
	return "unsupported"
}

// KindOf returns the shape of src. Pointers to structs and maps are
// dereferenced.
func KindOf(src any) Kind {
	if src == nil {
		return Unsupported
	}
	if _, ok := src.(FieldSource); ok {
		return SourceKind
	}
	v := reflect.ValueOf(src)
	for v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return Unsupported
		}
		v = v.Elem()
	}
	switch v.Kind() {
	case reflect.Map:
		if v.Type().Key().Kind() == reflect.String {
			return MapKind
		}
	case reflect.Struct:
		return StructKind
	}
	return Unsupported
}

// Fields returns the named fields of src in its natural order: the order of
// a FieldSource, declaration order for structs (promoted fields of embedded
// structs follow at the position of the embedding) and sorted key order for
// maps, so that two calls on the same value always agree.
func Fields(src any) ([]Field, error) {
	if src == nil {
		return nil, fmt.Errorf("need struct, map or field source, got nil")
	}
	if fs, ok := src.(FieldSource); ok {
		names, values := fs.Fields()
		if len(names) != len(values) {
			return nil, fmt.Errorf("internal error: field source %T returned %d names and %d values", src, len(names), len(values))
		}
		fields := make([]Field, len(names))
		for i := range names {
			fields[i] = Field{Name: names[i], Value: values[i]}
		}
		return fields, nil
	}

	v := reflect.ValueOf(src)
	for v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return nil, fmt.Errorf("need struct, map or field source, got nil %s", v.Type())
		}
		v = v.Elem()
	}

	switch v.Kind() {
	case reflect.Map:
		return mapFields(v)
	case reflect.Struct:
		return structFields(v)
	}
	return nil, fmt.Errorf("need struct, map or field source, got %s", v.Kind())
}

func mapFields(v reflect.Value) ([]Field, error) {
	t := v.Type()
	if t.Key().Kind() != reflect.String {
		return nil, fmt.Errorf("map type %s must have key type string, found type %s", t, t.Key().Kind())
	}
	if v.IsNil() {
		return nil, nil
	}
	keys := v.MapKeys()
	sort.Slice(keys, func(i, j int) bool {
		return keys[i].String() < keys[j].String()
	})
	fields := make([]Field, 0, len(keys))
	for _, k := range keys {
		fields = append(fields, Field{Name: k.String(), Value: v.MapIndex(k).Interface()})
	}
	return fields, nil
}

func structFields(v reflect.Value) ([]Field, error) {
	info, err := getStructInfo(v.Type())
	if err != nil {
		return nil, err
	}
	fields := make([]Field, 0, len(info.fields))
	for _, sf := range info.fields {
		fv, err := v.FieldByIndexErr(sf.index)
		if err != nil {
			// The field is promoted through a nil embedded pointer, there is
			// nothing to read.
			continue
		}
		fields = append(fields, Field{Name: sf.name, Value: fv.Interface()})
	}
	return fields, nil
}
