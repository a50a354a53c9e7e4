// Copyright 2026 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package oracle

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/cast"

	"github.com/canonical/sqlbind/internal/errors"
	"github.com/canonical/sqlbind/provider"
)

const defaultBatchSize = 1000

// ArrayInsert is passed to the BulkCopy configure callback.
type ArrayInsert struct {
	// Table is the quoted destination table.
	Table string
	// Columns are the destination columns.
	Columns []string
	// BatchSize is the number of rows bound per execution.
	BatchSize int
}

// Statement returns the INSERT statement executed for each batch.
func (a *ArrayInsert) Statement() string {
	cols := make([]string, len(a.Columns))
	binds := make([]string, len(a.Columns))
	for i, c := range a.Columns {
		cols[i] = quote(unquote(c))
		binds[i] = ":" + strconv.Itoa(i+1)
	}
	return "INSERT INTO " + a.Table + " (" + strings.Join(cols, ", ") + ") VALUES (" + strings.Join(binds, ", ") + ")"
}

func (oracleProvider) BulkCopy(ctx context.Context, db *sql.DB, table string, rows provider.RowSource, configure provider.ConfigureFunc, opts provider.BulkOptions, tx *sql.Tx) (err error) {
	const op = "oracle.BulkCopy"
	if err := provider.RejectExternalTx(op, "oracle", tx); err != nil {
		return err
	}
	if db == nil {
		return errors.New(errors.ArgumentNull, op, "database is nil", errors.WithName("db"))
	}
	if table == "" {
		return errors.New(errors.ArgumentNull, op, "table name is empty", errors.WithName("table"))
	}
	columns, err := provider.DestinationColumns(op, rows, opts)
	if err != nil {
		return err
	}
	insert := &ArrayInsert{
		Table:     quoteName(table),
		Columns:   columns,
		BatchSize: provider.BatchSize(opts.BatchSize, defaultBatchSize),
	}
	if err := provider.Configure(op, configure, insert); err != nil {
		return err
	}

	own, err := db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, errors.Unknown, op, "cannot begin transaction")
	}
	defer func() {
		if err == nil {
			return
		}
		if rerr := own.Rollback(); rerr != nil {
			err = multierror.Append(err, rerr)
		}
	}()
	stmt, err := own.PrepareContext(ctx, insert.Statement())
	if err != nil {
		return errors.Wrap(err, errors.Unknown, op, "cannot prepare insert")
	}
	defer func() {
		if cerr := stmt.Close(); cerr != nil {
			err = multierror.Append(err, cerr)
		}
	}()

	var batch [][]any
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		arrays, err := columnArrays(batch, columns)
		if err != nil {
			return errors.Wrap(err, errors.ParameterBinding, op, "")
		}
		if _, err := stmt.ExecContext(ctx, arrays...); err != nil {
			return errors.Wrap(err, errors.Unknown, op, "cannot insert batch")
		}
		batch = batch[:0]
		return nil
	}
	_, err = provider.CopyRows(op, rows, len(columns), func(values []any) error {
		row := make([]any, len(values))
		for i, v := range values {
			row[i] = normalize(v)
		}
		batch = append(batch, row)
		if len(batch) < insert.BatchSize {
			return nil
		}
		return flush()
	})
	if err != nil {
		return err
	}
	if err = flush(); err != nil {
		return err
	}
	if err = own.Commit(); err != nil {
		return errors.Wrap(err, errors.Unknown, op, "cannot commit bulk copy")
	}
	return nil
}

// columnArrays transposes a batch of rows into one typed array per column,
// the form go-ora binds as an array DML.
func columnArrays(batch [][]any, columns []string) ([]any, error) {
	arrays := make([]any, len(columns))
	column := make([]any, len(batch))
	for i := range columns {
		for j, row := range batch {
			column[j] = row[i]
		}
		a, err := columnArray(column)
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", columns[i], err)
		}
		arrays[i] = a
	}
	return arrays, nil
}

func columnArray(values []any) (any, error) {
	switch kindOf(values) {
	case "int":
		a := make([]sql.NullInt64, len(values))
		for i, v := range values {
			if v == nil {
				continue
			}
			n, err := cast.ToInt64E(v)
			if err != nil {
				return nil, err
			}
			a[i] = sql.NullInt64{Int64: n, Valid: true}
		}
		return a, nil
	case "float":
		a := make([]sql.NullFloat64, len(values))
		for i, v := range values {
			if v == nil {
				continue
			}
			f, err := cast.ToFloat64E(v)
			if err != nil {
				return nil, err
			}
			a[i] = sql.NullFloat64{Float64: f, Valid: true}
		}
		return a, nil
	case "time":
		a := make([]sql.NullTime, len(values))
		for i, v := range values {
			if v != nil {
				a[i] = sql.NullTime{Time: v.(time.Time), Valid: true}
			}
		}
		return a, nil
	case "bytes":
		a := make([][]byte, len(values))
		for i, v := range values {
			if v != nil {
				a[i] = v.([]byte)
			}
		}
		return a, nil
	}
	a := make([]sql.NullString, len(values))
	for i, v := range values {
		if v == nil {
			continue
		}
		str, err := cast.ToStringE(v)
		if err != nil {
			return nil, err
		}
		a[i] = sql.NullString{String: str, Valid: true}
	}
	return a, nil
}

// kindOf classifies a column by its values. Columns mixing kinds, or with
// no non-nil value, are sent as strings.
func kindOf(values []any) string {
	kind := ""
	for _, v := range values {
		var k string
		switch v.(type) {
		case nil:
			continue
		case int, int8, int16, int32, int64, uint8, uint16, uint32:
			k = "int"
		case float32, float64:
			k = "float"
		case time.Time:
			k = "time"
		case []byte:
			k = "bytes"
		default:
			k = "string"
		}
		if kind != "" && kind != k {
			return "string"
		}
		kind = k
	}
	return kind
}
