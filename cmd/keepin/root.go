package main

import (
	"github.com/spf13/cobra"

	"github.com/goliatone/go-keepin-auth/config"
)

// Global flags available to all subcommands.
var configFile string

// NewRootCmd creates the root command for the keepin CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "keepin",
		Short:         "keepin journal account and token service",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path")
	config.BindFlags(cmd.PersistentFlags())

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())

	return cmd
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	return config.Load(configFile, cmd.Flags())
}
