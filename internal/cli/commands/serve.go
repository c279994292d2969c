package commands

import (
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapview/internal/server"
)

// NewServeCommand creates the serve command.
func NewServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the editor API server",
		Long: `Start the HTTP API that editors use to inspect and edit interfaces.

Sessions open on the first request for an interface and stay open until the
server stops. With --watch, workspace documents are watched and every open
session is recompiled when one changes. Prometheus metrics are served at
/metrics and change events stream from /api/events.`,
		Example: `  # Start on the default port
  leapview serve

  # Custom port, no file watching
  leapview serve --port 9000 --watch=false`,
		RunE: runServe,
	}

	cmd.Flags().Int("port", server.DefaultPort, "Port to listen on")
	cmd.Flags().Bool("watch", true, "Watch workspace documents and recompile on change")

	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	cc, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	srv := server.New(server.Config{
		Manager:   cc.Manager,
		Workspace: cc.Workspace,
		Gatherer:  cc.Registry,
		Port:      cc.Cfg.Server.Port,
		Watch:     cc.Cfg.Server.Watch,
		Logger:    cc.Logger,
	})
	cc.Manager.SetOnChange(srv.Broadcast)

	return srv.Serve(cmd.Context())
}
