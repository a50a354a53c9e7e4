// Copyright 2026 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

/*
Package sqlbind runs parameterized SQL, either ad-hoc text or stored
procedures, taking parameter values from ordinary Go values and returning rows
as [Record] values.

# Parameters

SQL text names its parameters with @name placeholders:

	q := sqlbind.SQL("SELECT id, name FROM person WHERE team = @team")
	rs, err := db.Query(ctx, q, map[string]any{"team": "red"}).Records()

The parameter source may be a struct (or a pointer to one), a map with string
keys, or a [Record]. Struct fields are named by their `db` tag if present,
otherwise by their Go name; `db:"-"` skips a field. Names are matched to
placeholders ignoring case. Fields that match no placeholder are ignored, and a
placeholder with no matching field is an error. A nil value binds NULL.

The placeholders are rewritten into the form the database driver expects, so
the same text runs on every supported database.

# Stored procedures

The parameters of a stored procedure are read from the database catalog the
first time it is called on a [DB] and cached:

	p := sqlbind.Procedure("hr.add_person")
	var outcome sqlbind.Outcome
	err := db.Query(ctx, p, Person{Name: "Fred"}).Get(&outcome)
	id, err := outcome.Outputs().Get("id")

Values are converted to the declared parameter types. A parameter with no
matching field is left out of the call so that the procedure's default
applies, while a field holding nil passes NULL. By default fields that match no
parameter are skipped; [WithStrictProcedureBinding] makes them an error.

# Results

Rows are read into a [Record], an ordered set of fields whose names are
compared ignoring case, or into a map[string]any. Columns the database
declares as XML are returned as [provider.XML] values.

# Providers

Each supported database has a provider, in a package under provider/, which
registers itself when imported. [NewDB] chooses the provider by the type of
the database driver. Import provider/all to register every provider.

	import _ "github.com/canonical/sqlbind/provider/all"

Providers also expose the native bulk-load mechanism of each database through
[DB.BulkCopy].
*/
package sqlbind
