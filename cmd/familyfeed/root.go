package main

import (
	"github.com/spf13/cobra"

	"github.com/dukerupert/familyfeed/internal/config"
)

type rootOptions struct {
	configFile string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "familyfeed",
		Short: "Family member records kept in sync with SQLite and S3",
		Long: `familyfeed serves a JSON API over each user's family members, their
important dates and birth charts.

Settings come from defaults, an optional config file (--config) and
FAMILYFEED_* environment variables, e.g. FAMILYFEED_SERVER_ADDR=:9000.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVarP(&opts.configFile, "config", "c", "", "path to a yaml or toml config file")

	cmd.AddCommand(newServeCmd(opts), newMigrateCmd(opts), newMembersCmd(opts), newBackupCmd(opts))
	return cmd
}

func (o *rootOptions) load() (config.Config, error) {
	return config.Load(o.configFile)
}
