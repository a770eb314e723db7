package cmd

import (
	"log/slog"

	"github.com/spf13/cobra"

	"pragent/internal/bootstrap/logging"
	"pragent/internal/errs"
	"pragent/internal/mcpserver"
)

const appVersion = "0.1.0"

// mcpCmd serves the MCP tool surface over stdio for agent clients.
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve MCP tools over stdio",
	RunE: withApp(func(cmd *cobra.Command, deps appDeps) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))
		logging.Info(ctx, "mcp server starting")

		server := mcpserver.NewServer(deps.Service, appVersion)
		if err := server.Run(ctx); err != nil {
			logging.Error(ctx, "mcp server failed", slog.Any("err", errs.Loggable(err)))
			return errs.Wrap(err, "serve mcp")
		}
		return nil
	}),
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
