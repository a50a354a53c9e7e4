// Copyright 2026 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package commands

import (
	"encoding/json"
	"strconv"

	"github.com/spf13/cobra"
)

func newDescribeProcCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "describe-proc NAME",
		Short: "Show the parameters of a stored procedure",
		Long: `Show the parameters of a stored procedure as read from the database
catalog. Parameters with a default may be left out of a call.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := a.open()
			if err != nil {
				return err
			}
			defer db.Close()

			params, err := db.Parameters(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if a.cfg.Output == "json" {
				type param struct {
					Position   int    `json:"position"`
					Name       string `json:"name"`
					Direction  string `json:"direction"`
					Type       string `json:"type"`
					Size       int64  `json:"size,omitempty"`
					HasDefault bool   `json:"has_default"`
				}
				out := make([]param, 0, len(params))
				for _, p := range params {
					out = append(out, param{p.Position, p.Name, p.Direction.String(), p.TypeName, p.Size, p.HasDefault})
				}
				return json.NewEncoder(cmd.OutOrStdout()).Encode(out)
			}
			rows := make([][]string, 0, len(params))
			for _, p := range params {
				rows = append(rows, []string{
					strconv.Itoa(p.Position),
					p.Name,
					p.Direction.String(),
					p.TypeName,
					p.DBType.String(),
					strconv.FormatInt(p.Size, 10),
					strconv.FormatBool(p.HasDefault),
				})
			}
			return printTable(cmd.OutOrStdout(), []string{"Position", "Name", "Direction", "Type", "DBType", "Size", "Default"}, rows)
		},
	}
}
