// Copyright 2026 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

// Package commands implements the sqlbind CLI commands.
package commands

import (
	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/canonical/sqlbind"
	_ "github.com/canonical/sqlbind/provider/all"
)

// app is shared by the commands of one invocation.
type app struct {
	v      *viper.Viper
	cfg    *Config
	logger hclog.Logger
}

// NewRootCommand creates the sqlbind command.
func NewRootCommand(version string) *cobra.Command {
	a := &app{v: viper.New()}
	var configFile string

	root := &cobra.Command{
		Use:           "sqlbind",
		Short:         "Inspect databases and run parameterized SQL",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(a.v, configFile)
			if err != nil {
				return err
			}
			a.cfg = cfg
			a.logger = cfg.logger(&hclog.LoggerOptions{Output: cmd.ErrOrStderr()})
			return nil
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&configFile, "config", "", "config file (default is .sqlbind.yaml in the working or home directory)")
	flags.String("driver", "", "provider or database/sql driver name")
	flags.String("dsn", "", "data source name")
	flags.String("log-level", "", "log level: trace, debug, info, warn or error")
	flags.StringP("output", "o", "", "output format: table or json")
	for _, name := range []string{"driver", "dsn", "log-level", "output"} {
		// Lookup cannot fail for a flag defined above.
		_ = a.v.BindPFlag(name, flags.Lookup(name))
	}

	root.AddCommand(newDescribeProcCommand(a))
	root.AddCommand(newSchemaCommand(a))
	root.AddCommand(newLoadCSVCommand(a))
	root.AddCommand(newQueryCommand(a))
	return root
}

func (a *app) open() (*sqlbind.DB, error) {
	return a.cfg.open(a.logger)
}
