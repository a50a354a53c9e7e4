// Copyright 2026 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package provider

import (
	"database/sql"
	"fmt"
)

// RowSource is a forward-only sequence of rows read by BulkCopy.
type RowSource interface {
	// Columns returns the names of the columns of each row.
	Columns() ([]string, error)
	// Next advances to the next row and reports whether there is one.
	Next() bool
	// Values returns the values of the current row in column order.
	Values() ([]any, error)
	// Err returns the error, if any, that stopped iteration.
	Err() error
}

// SliceRows is a RowSource over rows held in memory.
type SliceRows struct {
	columns []string
	rows    [][]any
	pos     int
}

// NewSliceRows returns a RowSource that yields rows in order. Every row must
// have one value per column.
func NewSliceRows(columns []string, rows [][]any) *SliceRows {
	return &SliceRows{columns: columns, rows: rows}
}

func (s *SliceRows) Columns() ([]string, error) {
	return s.columns, nil
}

func (s *SliceRows) Next() bool {
	if s.pos >= len(s.rows) {
		return false
	}
	s.pos++
	return true
}

func (s *SliceRows) Values() ([]any, error) {
	if s.pos == 0 || s.pos > len(s.rows) {
		return nil, fmt.Errorf("no current row")
	}
	row := s.rows[s.pos-1]
	if len(row) != len(s.columns) {
		return nil, fmt.Errorf("row %d has %d values, expected %d", s.pos, len(row), len(s.columns))
	}
	return row, nil
}

func (s *SliceRows) Err() error {
	return nil
}

// SQLRows adapts *sql.Rows to a RowSource so the result of one query can be
// copied into another table.
type SQLRows struct {
	rows *sql.Rows
}

// NewSQLRows returns a RowSource reading from rows. The caller closes rows.
func NewSQLRows(rows *sql.Rows) *SQLRows {
	return &SQLRows{rows: rows}
}

func (s *SQLRows) Columns() ([]string, error) {
	return s.rows.Columns()
}

func (s *SQLRows) Next() bool {
	return s.rows.Next()
}

func (s *SQLRows) Values() ([]any, error) {
	cols, err := s.rows.Columns()
	if err != nil {
		return nil, err
	}
	vals := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range vals {
		ptrs[i] = &vals[i]
	}
	if err := s.rows.Scan(ptrs...); err != nil {
		return nil, err
	}
	return vals, nil
}

func (s *SQLRows) Err() error {
	return s.rows.Err()
}
