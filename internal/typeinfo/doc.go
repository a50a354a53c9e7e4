// Copyright 2024 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

/*
Package typeinfo contains code relating to Go types and their processing in
sqlbind. As much as possible, reflection code is limited to this package. It
turns the values passed by the user (structs, string keyed maps and field
sources such as sqlbind.Record) into a normalised, ordered list of named
fields. Nothing outside this package looks at the original value's type.
*/
package typeinfo
