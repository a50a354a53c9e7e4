// Copyright 2026 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hashicorp/go-multierror"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/lib/pq"

	"github.com/canonical/sqlbind/internal/errors"
	"github.com/canonical/sqlbind/provider"
)

// Copy is passed to the configure callback of a bulk copy. Changes made by
// the callback are used for the copy.
type Copy struct {
	Schema  string
	Table   string
	Columns []string
}

func (postgresProvider) BulkCopy(ctx context.Context, db *sql.DB, table string, rows provider.RowSource, configure provider.ConfigureFunc, opts provider.BulkOptions, tx *sql.Tx) (err error) {
	const op = "postgres.BulkCopy"
	if db == nil {
		return errors.New(errors.ArgumentNull, op, "database is nil", errors.WithName("db"))
	}
	if table == "" {
		return errors.New(errors.ArgumentNull, op, "table name is empty", errors.WithName("table"))
	}
	_, isPgx := db.Driver().(*stdlib.Driver)
	if isPgx {
		if err := provider.RejectExternalTx(op, "pgx", tx); err != nil {
			return err
		}
	}
	columns, err := provider.DestinationColumns(op, rows, opts)
	if err != nil {
		return err
	}
	schema, name := splitName(table)
	cp := &Copy{Schema: schema, Table: name, Columns: columns}
	if err := provider.Configure(op, configure, cp); err != nil {
		return err
	}

	if tx != nil {
		return copyIn(ctx, tx, cp, rows)
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
	if isPgx {
		return conn.Raw(func(dc any) error {
			return copyFrom(ctx, dc.(*stdlib.Conn).Conn(), cp, rows)
		})
	}

	own, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, errors.Unknown, op, "cannot begin transaction")
	}
	if err := copyIn(ctx, own, cp, rows); err != nil {
		if rerr := own.Rollback(); rerr != nil {
			err = multierror.Append(err, rerr)
		}
		return err
	}
	if err := own.Commit(); err != nil {
		return errors.Wrap(err, errors.Unknown, op, "cannot commit")
	}
	return nil
}

// copyIn streams rows through lib/pq's COPY support.
func copyIn(ctx context.Context, tx *sql.Tx, cp *Copy, rows provider.RowSource) error {
	const op = "postgres.copyIn"
	query := pq.CopyIn(cp.Table, cp.Columns...)
	if cp.Schema != "" {
		query = pq.CopyInSchema(cp.Schema, cp.Table, cp.Columns...)
	}
	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return errors.Wrap(err, errors.Unknown, op, "cannot prepare copy")
	}
	_, err = provider.CopyRows(op, rows, len(cp.Columns), func(values []any) error {
		for i, v := range values {
			values[i] = normalize(v)
		}
		if _, err := stmt.ExecContext(ctx, values...); err != nil {
			return errors.Wrap(err, errors.Unknown, op, "cannot copy row")
		}
		return nil
	})
	if err == nil {
		// An Exec with no arguments flushes the copy.
		if _, ferr := stmt.ExecContext(ctx); ferr != nil {
			err = errors.Wrap(ferr, errors.Unknown, op, "cannot complete copy")
		}
	}
	if cerr := stmt.Close(); cerr != nil && err == nil {
		err = errors.Wrap(cerr, errors.Unknown, op, "cannot complete copy")
	}
	return err
}

// copyFrom streams rows through pgx's COPY support.
func copyFrom(ctx context.Context, conn *pgx.Conn, cp *Copy, rows provider.RowSource) error {
	const op = "postgres.copyFrom"
	ident := pgx.Identifier{cp.Table}
	if cp.Schema != "" {
		ident = pgx.Identifier{cp.Schema, cp.Table}
	}
	src := &copySource{rows: rows, n: len(cp.Columns)}
	if _, err := conn.CopyFrom(ctx, ident, cp.Columns, src); err != nil {
		return errors.Wrap(err, errors.Unknown, op, "cannot copy rows")
	}
	return nil
}

// copySource adapts a RowSource to pgx.CopyFromSource.
type copySource struct {
	rows provider.RowSource
	n    int
	row  int
}

func (s *copySource) Next() bool {
	s.row++
	return s.rows.Next()
}

func (s *copySource) Values() ([]any, error) {
	values, err := s.rows.Values()
	if err != nil {
		return nil, err
	}
	if len(values) != s.n {
		return nil, errors.New(errors.UnsupportedSource, "postgres.copyFrom", fmt.Sprintf("row %d has %d values, expected %d", s.row, len(values), s.n))
	}
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = normalize(v)
	}
	return out, nil
}

func (s *copySource) Err() error {
	return s.rows.Err()
}
