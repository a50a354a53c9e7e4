// Copyright 2026 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package provider

import (
	"context"
	"database/sql"
	"reflect"
)

// Querier is implemented by *sql.DB, *sql.Tx, *sql.Conn, and any wrapper
// that can execute a query returning rows.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// ConfigureFunc is called with the backend's native bulk-load handle before
// the first row is copied. The concrete handle type is documented by each
// adapter.
type ConfigureFunc func(handle any) error

// Provider is implemented by each backend adapter. Providers are stateless
// and safe for concurrent use.
type Provider interface {
	// Name returns a short name for the backend, e.g. "postgres".
	Name() string

	// SupportedTypes returns the concrete driver, connector and driver
	// connection types handled by this provider.
	SupportedTypes() []reflect.Type

	// Open returns a new database handle for the backend's driver. No
	// connection is made until the handle is first used.
	Open(dsn string) (*sql.DB, error)

	// DeriveParameters replaces the parameters of the stored procedure
	// command with those declared in the backend's catalog. It returns an
	// error matching ErrProcedureNotFound if the procedure has no catalog
	// entry.
	DeriveParameters(ctx context.Context, q Querier, cmd *Command) error

	// CloneParameter returns a copy of p that can be bound on another command
	// without affecting p.
	CloneParameter(cmd *Command, p *Parameter) (*Parameter, error)

	// GenerateEmptySQL returns SQL that selects no rows but has the result
	// shape of cmd.
	GenerateEmptySQL(cmd *Command) (string, error)

	// IsXMLParameter reports whether p holds XML content.
	IsXMLParameter(cmd *Command, p *Parameter) (bool, error)

	// IsXMLColumn reports whether the column at index of a result schema
	// holds XML content.
	IsXMLColumn(cmd *Command, schema []Column, index int) (bool, error)

	// TableSchemaSQL returns SQL that selects no rows from table but has
	// all of its columns.
	TableSchemaSQL(table string) (string, error)

	// BulkCopy streams rows into table using the backend's native bulk-load
	// mechanism. If tx is not nil the copy runs in that transaction, or fails
	// with ErrUnsupportedOperation before any row is read if the backend
	// cannot load under an external transaction.
	BulkCopy(ctx context.Context, db *sql.DB, table string, rows RowSource, configure ConfigureFunc, opts BulkOptions, tx *sql.Tx) error

	// NormalizeValue converts v to the representation the backend's driver
	// expects for p.
	NormalizeValue(p *Parameter, v any) (any, error)

	// Render returns the driver SQL and arguments that execute cmd.
	Render(cmd *Command) (string, []any, error)
}
