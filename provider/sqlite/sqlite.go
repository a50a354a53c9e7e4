// Copyright 2026 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

// Package sqlite is the provider for github.com/mattn/go-sqlite3.
//
// SQLite has no stored procedures, so deriving parameters always fails with
// provider.ErrProcedureNotFound. Placeholders are bound by name. Columns and
// parameters declared with type XML hold XML content.
//
// BulkCopy inserts rows with one prepared statement inside a transaction.
// The configure callback receives a *BulkCopy.
package sqlite

import (
	"context"
	"database/sql"
	"reflect"
	"strings"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/mattn/go-sqlite3"

	"github.com/canonical/sqlbind/internal/errors"
	"github.com/canonical/sqlbind/provider"
)

// DriverName is the database/sql driver name registered by go-sqlite3.
const DriverName = "sqlite3"

func init() {
	provider.Register(Provider)
}

// Provider is the SQLite provider.
var Provider provider.Provider = sqliteProvider{}

type sqliteProvider struct{}

// BulkCopy is passed to the configure callback of a bulk copy. Changes made
// by the callback are used for the copy.
type BulkCopy struct {
	Table   string
	Columns []string
	// BatchSize is the number of rows committed per transaction when the
	// copy runs in its own transaction. Zero commits once at the end.
	BatchSize int
}

func (sqliteProvider) Name() string {
	return "sqlite"
}

func (sqliteProvider) SupportedTypes() []reflect.Type {
	return []reflect.Type{
		reflect.TypeOf(&sqlite3.SQLiteDriver{}),
		reflect.TypeOf(&sqlite3.SQLiteConn{}),
	}
}

func (sqliteProvider) Open(dsn string) (*sql.DB, error) {
	return sql.Open(DriverName, dsn)
}

func (sqliteProvider) DeriveParameters(ctx context.Context, q provider.Querier, cmd *provider.Command) error {
	const op = "sqlite.DeriveParameters"
	if err := provider.CheckCommand(op, cmd); err != nil {
		return err
	}
	return provider.ProcedureNotFound(op, cmd.Text)
}

func (sqliteProvider) CloneParameter(cmd *provider.Command, p *provider.Parameter) (*provider.Parameter, error) {
	if err := provider.CheckParameter("sqlite.CloneParameter", cmd, p); err != nil {
		return nil, err
	}
	return p.Clone(), nil
}

func (sqliteProvider) GenerateEmptySQL(cmd *provider.Command) (string, error) {
	const op = "sqlite.GenerateEmptySQL"
	if err := provider.CheckCommand(op, cmd); err != nil {
		return "", err
	}
	if cmd.Type == provider.StoredProcedure {
		return "", provider.ProcedureNotFound(op, cmd.Text)
	}
	return provider.EmptyQuery(cmd.Text), nil
}

func (sqliteProvider) IsXMLParameter(cmd *provider.Command, p *provider.Parameter) (bool, error) {
	if err := provider.CheckParameter("sqlite.IsXMLParameter", cmd, p); err != nil {
		return false, err
	}
	return p.DBType == provider.XMLType || strings.EqualFold(p.TypeName, "XML") || provider.IsXMLValue(p.Value), nil
}

func (sqliteProvider) IsXMLColumn(cmd *provider.Command, schema []provider.Column, index int) (bool, error) {
	if err := provider.CheckColumn("sqlite.IsXMLColumn", cmd, schema, index); err != nil {
		return false, err
	}
	return strings.EqualFold(schema[index].DatabaseType, "XML"), nil
}

func (sqliteProvider) TableSchemaSQL(table string) (string, error) {
	if table == "" {
		return "", errors.New(errors.ArgumentNull, "sqlite.TableSchemaSQL", "table name is empty", errors.WithName("table"))
	}
	return "SELECT * FROM " + quote(table) + " WHERE 1 = 0", nil
}

func (sqliteProvider) NormalizeValue(p *provider.Parameter, v any) (any, error) {
	return normalize(v), nil
}

func normalize(v any) any {
	switch v := v.(type) {
	case uuid.UUID:
		return v.String()
	case provider.XML:
		return string(v)
	}
	return v
}

func (sqliteProvider) Render(cmd *provider.Command) (string, []any, error) {
	const op = "sqlite.Render"
	if err := provider.CheckCommand(op, cmd); err != nil {
		return "", nil, err
	}
	if cmd.Type == provider.StoredProcedure {
		return "", nil, provider.ProcedureNotFound(op, cmd.Text)
	}
	return provider.RenderText(cmd, provider.AtNamed)
}

func (sqliteProvider) BulkCopy(ctx context.Context, db *sql.DB, table string, rows provider.RowSource, configure provider.ConfigureFunc, opts provider.BulkOptions, tx *sql.Tx) (err error) {
	const op = "sqlite.BulkCopy"
	if db == nil && tx == nil {
		return errors.New(errors.ArgumentNull, op, "database is nil", errors.WithName("db"))
	}
	if table == "" {
		return errors.New(errors.ArgumentNull, op, "table name is empty", errors.WithName("table"))
	}
	columns, err := provider.DestinationColumns(op, rows, opts)
	if err != nil {
		return err
	}
	bc := &BulkCopy{Table: table, Columns: columns, BatchSize: opts.BatchSize}
	if err := provider.Configure(op, configure, bc); err != nil {
		return err
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(bc.Columns)), ", ")
	quoted := make([]string, len(bc.Columns))
	for i, c := range bc.Columns {
		quoted[i] = quote(c)
	}
	insert := "INSERT INTO " + quote(bc.Table) + " (" + strings.Join(quoted, ", ") + ") VALUES (" + placeholders + ")"

	if tx != nil {
		_, err := copyRows(ctx, tx, insert, rows, len(bc.Columns), 0)
		return err
	}

	conn, err := db.Conn(ctx)
	if err != nil {
		return errors.Wrap(err, errors.Unknown, op, "cannot get connection")
	}
	defer func() {
		if cerr := conn.Close(); cerr != nil {
			err = multierror.Append(err, cerr)
		}
	}()
	for {
		own, err := conn.BeginTx(ctx, nil)
		if err != nil {
			return errors.Wrap(err, errors.Unknown, op, "cannot begin transaction")
		}
		more, err := copyRows(ctx, own, insert, rows, len(bc.Columns), bc.BatchSize)
		if err != nil {
			if rerr := own.Rollback(); rerr != nil {
				err = multierror.Append(err, rerr)
			}
			return err
		}
		if err := own.Commit(); err != nil {
			return errors.Wrap(err, errors.Unknown, op, "cannot commit")
		}
		if !more {
			return nil
		}
	}
}

// copyRows inserts up to limit rows, or all rows if limit is zero. It
// reports whether rows may remain.
func copyRows(ctx context.Context, tx *sql.Tx, insert string, rows provider.RowSource, n, limit int) (bool, error) {
	const op = "sqlite.BulkCopy"
	stmt, err := tx.PrepareContext(ctx, insert)
	if err != nil {
		return false, errors.Wrap(err, errors.Unknown, op, "cannot prepare insert")
	}
	defer stmt.Close()
	src := rows
	if limit > 0 {
		src = &limitRows{RowSource: rows, limit: limit}
	}
	count, err := provider.CopyRows(op, src, n, func(values []any) error {
		for i, v := range values {
			values[i] = normalize(v)
		}
		if _, err := stmt.ExecContext(ctx, values...); err != nil {
			return errors.Wrap(err, errors.Unknown, op, "cannot insert row")
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return limit > 0 && count == int64(limit), nil
}

// limitRows stops after limit rows.
type limitRows struct {
	provider.RowSource
	limit int
	n     int
}

func (l *limitRows) Next() bool {
	if l.n >= l.limit {
		return false
	}
	l.n++
	return l.RowSource.Next()
}

func quote(name string) string {
	return provider.QuoteIdentifier(name, `"`, `"`)
}
