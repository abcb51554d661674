package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/pvecfg/cmd/pvecfg/handlers"
)

// State returns the command group for inspecting reconciliation records.
func State(global *handlers.GlobalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "state",
		Short: "Inspect and edit reconciliation records",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List reconciliation records",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.StateList(cmd.Context(), *global)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "rm KIND/ID...",
		Short: "Forget records without touching the cluster",
		Long: `Remove records from the state store. The resources stay on the
cluster; the next apply treats them as new and probes them again.

Example:
  pvecfg state rm storage_nfs/backups container/200`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return handlers.StateRemove(cmd.Context(), *global, args)
		},
	})

	return cmd
}
