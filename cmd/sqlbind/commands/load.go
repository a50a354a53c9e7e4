// Copyright 2026 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package commands

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/canonical/sqlbind/provider"
)

func newLoadCSVCommand(a *app) *cobra.Command {
	var (
		columns   []string
		batchSize int
		delimiter string
		emptyNull bool
	)
	cmd := &cobra.Command{
		Use:   "load-csv TABLE FILE",
		Short: "Bulk load a CSV file into a table",
		Long: `Bulk load a CSV file into a table using the database's native bulk-load
mechanism. The first record of the file names the columns unless --columns is
given. Use - as FILE to read standard input.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			table, file := args[0], args[1]
			var in io.Reader = cmd.InOrStdin()
			if file != "-" {
				f, err := os.Open(file)
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}
			if len([]rune(delimiter)) != 1 {
				return fmt.Errorf("delimiter must be a single character, got %q", delimiter)
			}
			r := csv.NewReader(in)
			r.Comma = []rune(delimiter)[0]
			rows := newCSVRows(r, columns, emptyNull)

			db, err := a.open()
			if err != nil {
				return err
			}
			defer db.Close()

			err = db.BulkCopy(cmd.Context(), table, rows, nil, provider.BulkOptions{
				Columns:   columns,
				BatchSize: batchSize,
			})
			if err != nil {
				return err
			}
			printSuccess(cmd.OutOrStdout(), "loaded %d rows into %s", rows.count, table)
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&columns, "columns", nil, "destination columns, if the file has no header")
	cmd.Flags().IntVar(&batchSize, "batch-size", 0, "rows per batch (default is the provider's)")
	cmd.Flags().StringVar(&delimiter, "delimiter", ",", "field delimiter")
	cmd.Flags().BoolVar(&emptyNull, "empty-null", true, "load empty fields as NULL")
	return cmd
}

// csvRows is a provider.RowSource reading a CSV file.
type csvRows struct {
	r         *csv.Reader
	header    []string
	emptyNull bool
	values    []any
	count     int64
	err       error
}

// newCSVRows returns a row source for r. If columns is empty the first
// record names the columns.
func newCSVRows(r *csv.Reader, columns []string, emptyNull bool) *csvRows {
	return &csvRows{r: r, header: columns, emptyNull: emptyNull}
}

func (c *csvRows) Columns() ([]string, error) {
	if c.header == nil {
		record, err := c.r.Read()
		if err == io.EOF {
			return nil, fmt.Errorf("file is empty")
		} else if err != nil {
			return nil, err
		}
		c.header = record
	}
	return c.header, nil
}

func (c *csvRows) Next() bool {
	c.values = nil
	if c.err != nil {
		return false
	}
	if c.header == nil {
		if _, c.err = c.Columns(); c.err != nil {
			return false
		}
	}
	record, err := c.r.Read()
	if err != nil {
		if err != io.EOF {
			c.err = err
		}
		return false
	}
	c.values = make([]any, len(record))
	for i, field := range record {
		if field == "" && c.emptyNull {
			continue
		}
		c.values[i] = field
	}
	c.count++
	return true
}

func (c *csvRows) Values() ([]any, error) {
	if c.values == nil {
		return nil, fmt.Errorf("no current row")
	}
	return c.values, nil
}

func (c *csvRows) Err() error {
	return c.err
}
