package commands

import (
	"encoding/json"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"SeiChat-Agent/sdk/go/seichat"
)

var (
	baseURL string
	timeout time.Duration
	token   string
	client  *seichat.Client
)

// Execute 构建根命令并运行。
func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "seichatctl",
		Short:         "Talk to a running seichatd over its HTTP API",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if baseURL == "" {
				baseURL = os.Getenv("SEICHAT_API")
			}
			if baseURL == "" {
				baseURL = "http://127.0.0.1:8080"
			}
			if token == "" {
				token = os.Getenv("SEICHAT_API_TOKEN")
			}
			c, err := seichat.NewClient(baseURL, &http.Client{Timeout: timeout}, seichat.WithToken(token))
			if err != nil {
				return err
			}
			client = c
			return nil
		},
	}

	root.PersistentFlags().StringVar(&baseURL, "api", "", "seichatd base URL (default $SEICHAT_API or http://127.0.0.1:8080)")
	root.PersistentFlags().StringVar(&token, "token", "", "bearer token for /api/v1 (default $SEICHAT_API_TOKEN)")
	root.PersistentFlags().DurationVar(&timeout, "timeout", seichat.DefaultHTTPTimeout, "HTTP request timeout")

	root.AddCommand(sendCmd(), historyCmd(), healthCmd())
	return root
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
