// Copyright 2023 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package typeinfo

import (
	"fmt"
	"reflect"
	"strings"
	"sync"
)

// structField represents reflection information about a readable field of a
// particular struct type.
type structField struct {
	// name is the field name, or the name from its "db" tag.
	name string

	// index for Value.FieldByIndexErr. Promoted fields of embedded structs
	// have an index path longer than one.
	index []int
}

// structInfo stores the readable fields of a struct type in declaration
// order.
type structInfo struct {
	structType reflect.Type
	fields     []structField
}

// structInfoCache caches type reflection information across calls.
var structInfoCacheMutex sync.RWMutex
var structInfoCache = make(map[reflect.Type]*structInfo)

// getStructInfo returns the readable fields of the struct type t, generating
// and caching them as required.
func getStructInfo(t reflect.Type) (*structInfo, error) {
	structInfoCacheMutex.RLock()
	info, found := structInfoCache[t]
	structInfoCacheMutex.RUnlock()
	if found {
		return info, nil
	}

	info = &structInfo{structType: t}
	seen := map[string]string{}
	for _, f := range reflect.VisibleFields(t) {
		if !f.IsExported() {
			continue
		}
		// The promoted fields of an embedded struct follow it directly in
		// VisibleFields, the struct itself is not a field.
		if f.Anonymous && indirectType(f.Type).Kind() == reflect.Struct {
			continue
		}
		name, skip := parseTag(f.Tag.Get("db"))
		if skip {
			continue
		}
		if name == "" {
			name = f.Name
		}
		folded := Fold(name)
		if other, ok := seen[folded]; ok {
			return nil, fmt.Errorf("fields %q and %q of struct %s have the same name", other, f.Name, typeName(t))
		}
		seen[folded] = f.Name
		info.fields = append(info.fields, structField{name: name, index: f.Index})
	}

	structInfoCacheMutex.Lock()
	structInfoCache[t] = info
	structInfoCacheMutex.Unlock()

	return info, nil
}

// parseTag returns the column name in a "db" tag. Options following a comma
// are ignored. skip is true for the tag "-".
func parseTag(tag string) (name string, skip bool) {
	if tag == "-" {
		return "", true
	}
	name, _, _ = strings.Cut(tag, ",")
	return strings.TrimSpace(name), false
}

func indirectType(t reflect.Type) reflect.Type {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t
}

func typeName(t reflect.Type) string {
	if t.Name() == "" {
		return "(anonymous)"
	}
	return t.Name()
}
