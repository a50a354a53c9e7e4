// Copyright 2026 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package sqlbind

import (
	"context"

	"github.com/canonical/sqlbind/internal/errors"
	"github.com/canonical/sqlbind/internal/typeinfo"
	"github.com/canonical/sqlbind/provider"
)

// TableSchema returns the columns of table.
func (db *DB) TableSchema(ctx context.Context, table string) ([]provider.Column, error) {
	query, err := db.provider.TableSchemaSQL(table)
	if err != nil {
		return nil, err
	}
	return db.columns(ctx, query, nil)
}

// Shape returns the columns of the result of cmd without running it. Every
// parameter is bound to NULL. Not every provider can select the result shape
// of a stored procedure.
func (db *DB) Shape(ctx context.Context, cmd *Command) ([]provider.Column, error) {
	const op = "sqlbind.DB.Shape"
	if ctx == nil {
		ctx = context.Background()
	}
	c, err := db.bound(ctx, db.sqldb, cmd, nil)
	if err != nil {
		return nil, err
	}
	for _, p := range c.Parameters {
		if p.IsInput() && !p.Bound {
			p.Bound = true
		}
	}
	text, err := db.provider.GenerateEmptySQL(c)
	if err != nil {
		return nil, err
	}

	// The empty query is a text command with the parameters of c.
	ps, err := provider.Parse(text)
	if err != nil {
		return nil, errors.Wrap(err, errors.ParameterBinding, op, "")
	}
	empty := &provider.Command{Text: text, Type: provider.Text}
	for _, name := range ps.Placeholders() {
		p := &provider.Parameter{Name: name, Direction: provider.Input, Bound: true}
		for _, cp := range c.Parameters {
			if typeinfo.SameName(provider.TrimPrefix(cp.Name), name) {
				p.DBType, p.Value = cp.DBType, cp.Value
			}
		}
		empty.Parameters = append(empty.Parameters, p)
	}
	query, args, err := db.provider.Render(empty)
	if err != nil {
		return nil, err
	}
	return db.columns(ctx, query, args)
}

func (db *DB) columns(ctx context.Context, query string, args []any) (cols []provider.Column, err error) {
	if ctx == nil {
		ctx = context.Background()
	}
	rows, err := db.sqldb.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); err == nil {
			err = cerr
		}
	}()
	types, err := rows.ColumnTypes()
	if err != nil {
		return nil, err
	}
	return provider.ColumnsFromTypes(types), nil
}
