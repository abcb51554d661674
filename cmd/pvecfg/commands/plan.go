package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/pvecfg/cmd/pvecfg/handlers"
)

// Plan returns the read-only planning command.
func Plan(global *handlers.GlobalOptions) *cobra.Command {
	var refresh bool

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Show what apply would do",
		Long: `Probe the cluster and report the action apply would take for every
resource. Only read-only commands are issued and the state store is not
written.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Plan(cmd.Context(), *global, refresh)
		},
	}

	cmd.Flags().BoolVar(&refresh, "refresh", false, "Probe unchanged resources too")

	return cmd
}
