package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/pvecfg/cmd/pvecfg/handlers"
)

// Doctor returns the command that checks every node for the Proxmox VE tools.
func Doctor(global *handlers.GlobalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check that every node is reachable and has the Proxmox VE tools",
		Long: `Connect to every node in the configuration and look up the
commands pvecfg issues (pvecm, pvesm, pvesh, ha-manager, pct).
Nothing is changed on the nodes.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Doctor(cmd.Context(), *global)
		},
	}
}
