package commands

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

func historyCmd() *cobra.Command {
	var (
		user   string
		limit  int
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent command outcomes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			list, err := client.History(cmd.Context(), user, limit)
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(cmd.OutOrStdout(), list)
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "TIME\tUSER\tCOMMAND\tFAILED\tSTAGE")
			for _, o := range list {
				fmt.Fprintf(w, "%s\t%s\t%s\t%t\t%s\n", o.OccurredAt.Format(time.RFC3339), o.UserID, o.Command, o.Failed, o.Stage)
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&user, "user", "", "only show outcomes for this sender id")
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of entries")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of a table")
	return cmd
}
