package commands

import (
	"github.com/spf13/cobra"

	"github.com/appri/incidentdb/internal/api"
	"github.com/appri/incidentdb/internal/ui"
	"github.com/appri/incidentdb/internal/version"
)

// NewServeCommand creates the serve command.
func NewServeCommand(a *App) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP query server",
		Long: `Start the HTTP server exposing /api/schema, /api/query,
/api/download and /api/explain. The server stops gracefully on SIGINT or SIGTERM.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.Connect(cmd.Context())
			if err != nil {
				return err
			}
			srv := c.Config().Server
			if addr != "" {
				srv.Addr = addr
			}

			ui.PrintHeader("incidentdb", version.Get().String())
			ui.PrintInfo("Listening on %s (%s)", srv.Addr, c.Config().Database.Provider)
			server := api.NewServer(c.QueryService(), api.Options{
				Addr:            srv.Addr,
				AllowedOrigins:  srv.AllowedOrigins,
				ShutdownTimeout: srv.ShutdownTimeout,
			})
			return server.Run(cmd.Context())
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides server.addr)")

	return cmd
}
