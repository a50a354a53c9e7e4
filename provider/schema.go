// Copyright 2026 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package provider

import (
	"database/sql"
	"fmt"
	"reflect"

	"github.com/canonical/sqlbind/internal/errors"
)

// Column describes one column of a result schema.
type Column struct {
	Name string
	// DatabaseType is the driver's name for the column type, e.g. "VARCHAR".
	DatabaseType string
	// ScanType is the Go type the driver scans the column into, if known.
	ScanType  reflect.Type
	Nullable  bool
	HasLength bool
	Length    int64
	Precision int64
	Scale     int64
}

// ColumnsFromTypes converts the column types of a result set.
func ColumnsFromTypes(types []*sql.ColumnType) []Column {
	cols := make([]Column, 0, len(types))
	for _, ct := range types {
		col := Column{
			Name:         ct.Name(),
			DatabaseType: ct.DatabaseTypeName(),
			ScanType:     ct.ScanType(),
		}
		col.Nullable, _ = ct.Nullable()
		col.Length, col.HasLength = ct.Length()
		col.Precision, col.Scale, _ = ct.DecimalSize()
		cols = append(cols, col)
	}
	return cols
}

// CheckColumn returns ErrArgumentNull for a nil command or schema, and an
// error if index is out of range.
func CheckColumn(op errors.Op, cmd *Command, schema []Column, index int) error {
	if err := CheckCommand(op, cmd); err != nil {
		return err
	}
	if schema == nil {
		return errors.New(errors.ArgumentNull, op, "schema is nil", errors.WithName("schema"))
	}
	if index < 0 || index >= len(schema) {
		return fmt.Errorf("%s: column index %d out of range [0, %d)", op, index, len(schema))
	}
	return nil
}
