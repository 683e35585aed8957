package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func healthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Show service and chain status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := client.Health(cmd.Context())
			if err != nil {
				return err
			}
			if err := printJSON(cmd.OutOrStdout(), h); err != nil {
				return err
			}
			if h.Status != "ok" {
				return fmt.Errorf("service degraded: %s", h.Error)
			}
			return nil
		},
	}
}
