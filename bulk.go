// Copyright 2026 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package sqlbind

import (
	"context"
	"database/sql"
	"sync/atomic"

	"github.com/canonical/sqlbind/provider"
)

// BulkCopy loads rows into table with the provider's native bulk-load
// mechanism. configure, if not nil, is passed the provider's bulk handle
// before the first row is copied; its type is documented by each provider.
func (db *DB) BulkCopy(ctx context.Context, table string, rows provider.RowSource, configure provider.ConfigureFunc, opts provider.BulkOptions) error {
	return db.bulkCopy(ctx, table, rows, configure, opts, nil)
}

// BulkCopy loads rows into table within the transaction. It returns an error
// matching ErrUnsupportedOperation, without reading any row, if the provider
// cannot bulk load under an external transaction.
func (tx *TX) BulkCopy(ctx context.Context, table string, rows provider.RowSource, configure provider.ConfigureFunc, opts provider.BulkOptions) error {
	if tx.isDone() {
		return ErrTXDone
	}
	return tx.db.bulkCopy(ctx, table, rows, configure, opts, tx.sqltx)
}

func (db *DB) bulkCopy(ctx context.Context, table string, rows provider.RowSource, configure provider.ConfigureFunc, opts provider.BulkOptions, tx *sql.Tx) error {
	if ctx == nil {
		ctx = context.Background()
	}
	var counted provider.RowSource
	cr := &countingRows{RowSource: rows}
	if rows != nil {
		counted = cr
	}
	log := db.opts.logger.With("provider", db.provider.Name(), "table", table)
	log.Debug("bulk copy starting", "transaction", tx != nil)
	err := db.provider.BulkCopy(ctx, db.sqldb, table, counted, configure, opts, tx)
	if err != nil {
		log.Debug("bulk copy failed", "rows", cr.count(), "error", err)
		return err
	}
	log.Debug("bulk copy finished", "rows", cr.count())
	return nil
}

// countingRows counts the rows read from a row source.
type countingRows struct {
	provider.RowSource
	n int64
}

func (c *countingRows) Next() bool {
	if c.RowSource.Next() {
		atomic.AddInt64(&c.n, 1)
		return true
	}
	return false
}

func (c *countingRows) count() int64 {
	return atomic.LoadInt64(&c.n)
}
