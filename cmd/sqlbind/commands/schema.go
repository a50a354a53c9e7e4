// Copyright 2026 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package commands

import (
	"encoding/json"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/canonical/sqlbind"
	"github.com/canonical/sqlbind/provider"
)

func newSchemaCommand(a *app) *cobra.Command {
	var query bool
	cmd := &cobra.Command{
		Use:   "schema TABLE|SQL",
		Short: "Show the columns of a table or of the result of a query",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := a.open()
			if err != nil {
				return err
			}
			defer db.Close()

			var cols []provider.Column
			if query {
				cols, err = db.Shape(cmd.Context(), sqlbind.SQL(args[0]))
			} else {
				cols, err = db.TableSchema(cmd.Context(), args[0])
			}
			if err != nil {
				return err
			}
			if a.cfg.Output == "json" {
				type column struct {
					Name     string `json:"name"`
					Type     string `json:"type"`
					Nullable bool   `json:"nullable"`
					Length   *int64 `json:"length,omitempty"`
				}
				out := make([]column, 0, len(cols))
				for _, c := range cols {
					col := column{Name: c.Name, Type: c.DatabaseType, Nullable: c.Nullable}
					if c.HasLength {
						length := c.Length
						col.Length = &length
					}
					out = append(out, col)
				}
				return json.NewEncoder(cmd.OutOrStdout()).Encode(out)
			}
			rows := make([][]string, 0, len(cols))
			for _, c := range cols {
				length := ""
				if c.HasLength {
					length = strconv.FormatInt(c.Length, 10)
				}
				rows = append(rows, []string{c.Name, c.DatabaseType, strconv.FormatBool(c.Nullable), length})
			}
			return printTable(cmd.OutOrStdout(), []string{"Name", "Type", "Nullable", "Length"}, rows)
		},
	}
	cmd.Flags().BoolVar(&query, "query", false, "treat the argument as a SQL query")
	return cmd
}
