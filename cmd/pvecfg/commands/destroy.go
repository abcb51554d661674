package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/pvecfg/cmd/pvecfg/handlers"
)

// Destroy returns the destroy command.
//
// The destroy command removes every resource recorded in the state store,
// in reverse dependency order: containers and backup jobs, storage, HA groups
// and corosync options, node memberships, and finally the cluster.
func Destroy(global *handlers.GlobalOptions) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "destroy",
		Short: "Remove every resource pvecfg has recorded",
		Long: `Destroy removes every resource recorded in the state store.

Teardown is best effort: a resource that cannot be removed is reported
and keeps its record, and the remaining resources are still removed.
Resources found in a state pvecfg did not create are left alone.

Example:
  pvecfg destroy -c pvecfg.yaml --yes

WARNING: containers are destroyed with their volumes.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Destroy(cmd.Context(), *global, yes)
		},
	}

	cmd.Flags().BoolVar(&yes, "yes", false, "Confirm the teardown")

	return cmd
}
