package cmd

import (
	"github.com/spf13/cobra"

	"github.com/JakeFAU/kanka-search/internal/api"
	"github.com/JakeFAU/kanka-search/internal/server"
)

// newServeCmd creates the 'serve' subcommand.
func newServeCmd() *cobra.Command {
	var port int
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the search API over HTTP",
		Long: `Starts an HTTP server exposing /v1/search, /v1/refresh, /healthz and
/metrics. It runs until interrupted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			cfg := appInstance.Config()
			if port <= 0 {
				port = cfg.Server.Port
			}
			handler := api.NewServer(appInstance.Service(), cfg, appInstance.Logger()).Handler()
			return server.Run(cmd.Context(), port, handler, appInstance.Logger())
		},
	}
	cmd.Flags().IntVar(&port, "port", 0, "listen port (defaults to server.port)")
	return cmd
}
