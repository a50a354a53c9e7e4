// Copyright 2026 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package commands

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/pterm/pterm"
)

var successColor = color.New(color.FgGreen, color.Bold)

// printSuccess prints a success message.
func printSuccess(w io.Writer, format string, args ...any) {
	successColor.Fprintf(w, "✓ %s\n", fmt.Sprintf(format, args...))
}

// printTable prints a table with a header row.
func printTable(w io.Writer, headers []string, rows [][]string) error {
	data := pterm.TableData{headers}
	data = append(data, rows...)
	return pterm.DefaultTable.WithHasHeader().WithWriter(w).WithData(data).Render()
}

func cell(v any) string {
	if v == nil {
		return "NULL"
	}
	if b, ok := v.([]byte); ok {
		return fmt.Sprintf("0x%x", b)
	}
	return fmt.Sprint(v)
}
