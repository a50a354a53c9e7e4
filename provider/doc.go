// Copyright 2026 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

/*
Package provider defines the contract every database backend adapter
implements, and the types that flow through it: commands, parameters,
result column schemas and bulk-load row sources.

An adapter normalises the behaviour of one backend: how procedure parameters
are discovered from its catalog, which parameters and columns are XML, how
a command is rendered into driver SQL and arguments, and how rows are bulk
loaded. Code that binds parameters and maps results only ever talks to the
Provider interface.

# Registration

Adapters register themselves with the default Registry from an init
function, claiming the concrete driver types they support:

	import _ "github.com/canonical/sqlbind/provider/postgres"

The first adapter claiming the runtime type of a driver, connector or driver
connection is selected. Lookups are cached per type. Two adapters claiming
the same type is a programming error and panics at registration.
*/
package provider
