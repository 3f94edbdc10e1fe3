package cli

import (
	"github.com/spf13/cobra"

	"github.com/five82/sheetsync/internal/app"
)

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the grid API server",
		Long: `Run the grid API backed by a SQLite database. Prometheus metrics are
exposed on /metrics.

Examples:
  sheetsync serve
  sheetsync serve --listen :9090`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := rootOpts.Config
			if listen != "" {
				cfg.Server.Listen = listen
			}
			return app.Serve(cmd.Context(), cfg)
		},
	}

	cmd.Flags().StringVar(&listen, "listen", "", "listen address (overrides server.listen)")

	return cmd
}
