// Copyright 2026 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package mysql

var WriteCSV = writeCSV

func (l *Load) Statement(reader string) string {
	return l.statement(reader)
}
