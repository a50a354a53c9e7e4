// Copyright 2026 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/canonical/sqlbind"
)

func newQueryCommand(a *app) *cobra.Command {
	var (
		params []string
		nulls  []string
		proc   bool
		exec   bool
	)
	cmd := &cobra.Command{
		Use:   "query SQL|PROCEDURE",
		Short: "Run SQL or call a stored procedure",
		Long: `Run SQL text with @name placeholders, or call a stored procedure with
--proc. Parameter values are given with --param name=value and are converted
to the declared type of procedure parameters. Procedure parameters that are
not given take their default.`,
		Example: `  sqlbind query "SELECT * FROM person WHERE team = @team" --param team=red
  sqlbind query --proc hr.add_person --param name=Fred --null email`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			source := sqlbind.NewRecord()
			for _, p := range params {
				name, value, ok := strings.Cut(p, "=")
				if !ok || name == "" {
					return fmt.Errorf("parameter %q must be name=value", p)
				}
				source.Set(name, value)
			}
			for _, name := range nulls {
				source.Set(name, nil)
			}
			command := sqlbind.SQL(args[0])
			if proc {
				command = sqlbind.Procedure(args[0])
			}

			db, err := a.open()
			if err != nil {
				return err
			}
			defer db.Close()

			var (
				outcome sqlbind.Outcome
				records []*sqlbind.Record
			)
			q := db.Query(cmd.Context(), command, source)
			if exec {
				err = q.Get(&outcome)
			} else {
				err = q.GetAll(&outcome, &records)
			}
			if err != nil && !errors.Is(err, sqlbind.ErrNoRows) {
				return err
			}
			return a.printResult(cmd, records, &outcome, exec)
		},
	}
	cmd.Flags().StringArrayVarP(&params, "param", "p", nil, "parameter as name=value, may be repeated")
	cmd.Flags().StringArrayVar(&nulls, "null", nil, "parameter to set to NULL, may be repeated")
	cmd.Flags().BoolVar(&proc, "proc", false, "call the named stored procedure")
	cmd.Flags().BoolVar(&exec, "exec", false, "run as a statement and report the rows affected")
	return cmd
}

func (a *app) printResult(cmd *cobra.Command, records []*sqlbind.Record, outcome *sqlbind.Outcome, exec bool) error {
	w := cmd.OutOrStdout()
	outputs := outcome.Outputs()
	if a.cfg.Output == "json" {
		if records == nil {
			records = []*sqlbind.Record{}
		}
		return json.NewEncoder(w).Encode(struct {
			Rows    []*sqlbind.Record `json:"rows"`
			Outputs *sqlbind.Record   `json:"outputs,omitempty"`
		}{Rows: records, Outputs: nonEmpty(outputs)})
	}

	if exec {
		if result := outcome.Result(); result != nil {
			if n, err := result.RowsAffected(); err == nil {
				printSuccess(w, "%d rows affected", n)
			}
		}
	} else if len(records) > 0 {
		headers := records[0].Keys()
		rows := make([][]string, 0, len(records))
		for _, r := range records {
			row := make([]string, 0, r.Len())
			for _, v := range r.Values() {
				row = append(row, cell(v))
			}
			rows = append(rows, row)
		}
		if err := printTable(w, headers, rows); err != nil {
			return err
		}
	} else {
		printSuccess(w, "no rows")
	}

	if outputs.Len() > 0 {
		rows := make([][]string, 0, outputs.Len())
		names, values := outputs.Fields()
		for i := range names {
			rows = append(rows, []string{names[i], cell(values[i])})
		}
		return printTable(w, []string{"Output", "Value"}, rows)
	}
	return nil
}

func nonEmpty(r *sqlbind.Record) *sqlbind.Record {
	if r.Len() == 0 {
		return nil
	}
	return r
}
