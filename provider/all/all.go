// Copyright 2026 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

// Package all registers every provider shipped with sqlbind in the default
// registry.
//
//	import _ "github.com/canonical/sqlbind/provider/all"
package all

import (
	_ "github.com/canonical/sqlbind/provider/mysql"
	_ "github.com/canonical/sqlbind/provider/oracle"
	_ "github.com/canonical/sqlbind/provider/postgres"
	_ "github.com/canonical/sqlbind/provider/sqlite"
	_ "github.com/canonical/sqlbind/provider/sqlserver"
)
