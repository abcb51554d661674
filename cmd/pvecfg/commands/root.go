// Package commands defines the CLI command structure and flag bindings.
//
// This package contains cobra command definitions that handle argument parsing,
// flag binding, and validation. Command execution is delegated to handler
// functions in the handlers package.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/pvecfg/cmd/pvecfg/handlers"
)

// Root returns the root command for the pvecfg CLI.
func Root() *cobra.Command {
	var opts handlers.GlobalOptions

	cmd := &cobra.Command{
		Use:           "pvecfg",
		Short:         "Configure Proxmox VE clusters declaratively over SSH",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.SetupLogging(cmd.ErrOrStderr(), opts.LogLevel, opts.LogJSON)
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "Path to configuration file (default: pvecfg.yaml)")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "info", "Log level: debug, info, warn, error")
	cmd.PersistentFlags().BoolVar(&opts.LogJSON, "log-json", false, "Write logs as JSON instead of console output")
	cmd.PersistentFlags().StringVar(&opts.MetricsFile, "metrics-file", "", "Write Prometheus metrics to this file after the pass")

	cmd.AddCommand(Apply(&opts))
	cmd.AddCommand(Plan(&opts))
	cmd.AddCommand(Destroy(&opts))
	cmd.AddCommand(State(&opts))
	cmd.AddCommand(Doctor(&opts))
	cmd.AddCommand(Version())

	return cmd
}
