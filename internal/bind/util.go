// Copyright 2026 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package bind

import "reflect"

func typeName(v any) string {
	t := reflect.TypeOf(v)
	if t == nil {
		return "nil"
	}
	if t.Kind() == reflect.Pointer && reflect.ValueOf(v).IsNil() {
		return "nil " + t.String()
	}
	return t.String()
}
