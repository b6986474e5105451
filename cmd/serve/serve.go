package serve

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tphakala/plantclef-go/internal/conf"
	"github.com/tphakala/plantclef-go/internal/explorer"
)

// Command creates the serve command, which runs the dashboard.
func Command(ctx *conf.Context) *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the dataset dashboard",
		Long:  `Load the training metadata and optional embeddings, then serve the dashboard, the JSON API and Prometheus metrics.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if listen != "" {
				ctx.Settings.WebServer.Listen = listen
			}

			sigCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return explorer.Serve(sigCtx, ctx.Settings, ctx.Build)
		},
	}

	cmd.Flags().StringVarP(&listen, "listen", "l", "", "Listen address, overrides webserver.listen")

	return cmd
}
