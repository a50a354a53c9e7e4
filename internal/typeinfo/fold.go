// Copyright 2026 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package typeinfo

import (
	"golang.org/x/text/cases"
)

// Fold returns the case folded form of a field, column or parameter name.
// Two names are the same name when their folded forms are equal.
//
// A cases.Caser is stateful so a new one is made for every call.
func Fold(name string) string {
	return cases.Fold().String(name)
}

// SameName reports whether a and b name the same field.
func SameName(a, b string) bool {
	return Fold(a) == Fold(b)
}
