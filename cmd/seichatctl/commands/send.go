package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"SeiChat-Agent/sdk/go/seichat"
)

func sendCmd() *cobra.Command {
	var (
		sender string
		chat   string
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "send <text...>",
		Short: "Send a chat message and print the bot reply",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reply, err := client.Send(cmd.Context(), seichat.Message{
				Text:     strings.Join(args, " "),
				SenderID: sender,
				ChatID:   chat,
			})
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(cmd.OutOrStdout(), reply)
			}
			if reply.Reply == "" {
				return nil
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), reply.Reply)
			return err
		},
	}
	cmd.Flags().StringVar(&sender, "sender", "cli", "sender id used for wallet lookups")
	cmd.Flags().StringVar(&chat, "chat", "", "chat id")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the full reply as JSON")
	return cmd
}
