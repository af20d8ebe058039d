package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dshills/docdrift-mcp/internal/app"
	"github.com/dshills/docdrift-mcp/internal/logging"
	"github.com/dshills/docdrift-mcp/internal/mcp"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the MCP server on stdio",
	Long: `Runs the Model Context Protocol server on stdin and stdout.
Logs go to stderr because stdout carries the protocol.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	logging.Infof("docdrift MCP Server v%s starting...", version)

	return withApp(func(a *app.App) error {
		info := a.Info()
		logging.Infof("Build Mode: %s, Driver: %s, Vector Extension: %v",
			info.BuildMode, info.Driver, info.VectorExtension)
		logging.Infof("Database: %s, Embedder: %s/%s", a.Config.DBPath(), info.EmbedderProvider, info.EmbedderModel)

		server := mcp.NewServer(a)
		logging.Infof("MCP server ready, listening on stdio...")

		err := server.Serve(cmd.Context())
		if err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("server error: %w", err)
		}
		logging.Infof("Server stopped")
		return nil
	})
}
