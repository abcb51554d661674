package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/pvecfg/cmd/pvecfg/handlers"
)

// Apply returns the command that runs one reconciliation pass.
//
// Optional flags:
//
//	--refresh: probe resources that are unchanged since the last pass
func Apply(global *handlers.GlobalOptions) *cobra.Command {
	var refresh bool

	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Reconcile the cluster with the configuration",
		Long: `Run one reconciliation pass.

Resources removed from the configuration are destroyed first, in reverse
dependency order. Declared resources are then probed and created or
converged tier by tier: cluster, joins, HA groups, corosync and storage,
then backup jobs and containers. A failed resource blocks the resources
that depend on it; the rest of its tier carries on.

Resources that are unchanged since a successful pass are not probed again
unless --refresh is given.

Examples:
  # Apply pvecfg.yaml in the current directory
  pvecfg apply

  # Apply a specific file and detect drift
  pvecfg apply -c lab.yaml --refresh`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Apply(cmd.Context(), *global, refresh)
		},
	}

	cmd.Flags().BoolVar(&refresh, "refresh", false, "Probe unchanged resources and converge drift")

	return cmd
}
