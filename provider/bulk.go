// Copyright 2026 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package provider

import (
	"fmt"

	"github.com/canonical/sqlbind/internal/errors"
)

// BulkOptions tunes a bulk copy.
type BulkOptions struct {
	// Columns are the destination columns. If empty the row source column
	// names are used.
	Columns []string
	// BatchSize is the number of rows sent per batch where the backend
	// supports batching. Zero means the backend default.
	BatchSize int
}

// DestinationColumns returns the columns a bulk copy writes to.
func DestinationColumns(op errors.Op, rows RowSource, opts BulkOptions) ([]string, error) {
	if rows == nil {
		return nil, errors.New(errors.ArgumentNull, op, "row source is nil", errors.WithName("rows"))
	}
	if len(opts.Columns) > 0 {
		return opts.Columns, nil
	}
	cols, err := rows.Columns()
	if err != nil {
		return nil, errors.Wrap(err, errors.UnsupportedSource, op, "cannot read row source columns")
	}
	if len(cols) == 0 {
		return nil, errors.New(errors.UnsupportedSource, op, "row source has no columns")
	}
	return cols, nil
}

// Configure calls configure with handle if configure is not nil.
func Configure(op errors.Op, configure ConfigureFunc, handle any) error {
	if configure == nil {
		return nil
	}
	if err := configure(handle); err != nil {
		return errors.Wrap(err, errors.UnsupportedOperation, op, "bulk copy configuration failed")
	}
	return nil
}

// BatchSize returns n, or def if n is not positive.
func BatchSize(n, def int) int {
	if n > 0 {
		return n
	}
	return def
}

// CopyRows reads every row of rows, checks that it has n values and passes
// it to fn. It returns the number of rows copied.
func CopyRows(op errors.Op, rows RowSource, n int, fn func(values []any) error) (int64, error) {
	var count int64
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return count, errors.Wrap(err, errors.UnsupportedSource, op, "cannot read row")
		}
		if len(values) != n {
			return count, errors.New(errors.UnsupportedSource, op, fmt.Sprintf("row %d has %d values, expected %d", count+1, len(values), n))
		}
		if err := fn(values); err != nil {
			return count, err
		}
		count++
	}
	if err := rows.Err(); err != nil {
		return count, errors.Wrap(err, errors.UnsupportedSource, op, "cannot read rows")
	}
	return count, nil
}
