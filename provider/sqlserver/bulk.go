// Copyright 2026 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package sqlserver

import (
	"context"
	"database/sql"

	"github.com/hashicorp/go-multierror"
	mssql "github.com/microsoft/go-mssqldb"

	"github.com/canonical/sqlbind/internal/errors"
	"github.com/canonical/sqlbind/provider"
)

type preparer interface {
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
}

func (sqlserverProvider) BulkCopy(ctx context.Context, db *sql.DB, table string, rows provider.RowSource, configure provider.ConfigureFunc, opts provider.BulkOptions, tx *sql.Tx) (err error) {
	const op = "sqlserver.BulkCopy"
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
	bulk := &mssql.BulkOptions{RowsPerBatch: opts.BatchSize}
	if err := provider.Configure(op, configure, bulk); err != nil {
		return err
	}
	query := mssql.CopyIn(table, *bulk, columns...)

	if tx != nil {
		return copyIn(ctx, tx, query, rows, len(columns))
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
	return copyIn(ctx, conn, query, rows, len(columns))
}

func copyIn(ctx context.Context, p preparer, query string, rows provider.RowSource, n int) (err error) {
	const op = "sqlserver.BulkCopy"
	stmt, err := p.PrepareContext(ctx, query)
	if err != nil {
		return errors.Wrap(err, errors.Unknown, op, "cannot prepare bulk copy")
	}
	defer func() {
		if cerr := stmt.Close(); cerr != nil {
			err = multierror.Append(err, cerr)
		}
	}()
	_, err = provider.CopyRows(op, rows, n, func(values []any) error {
		for i, v := range values {
			values[i] = normalize(v)
		}
		if _, err := stmt.ExecContext(ctx, values...); err != nil {
			return errors.Wrap(err, errors.Unknown, op, "cannot copy row")
		}
		return nil
	})
	if err != nil {
		return err
	}
	// An Exec with no arguments completes the copy.
	if _, err := stmt.ExecContext(ctx); err != nil {
		return errors.Wrap(err, errors.Unknown, op, "cannot complete bulk copy")
	}
	return nil
}
