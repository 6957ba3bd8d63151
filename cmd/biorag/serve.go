package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"biorag/internal/mcpserver"
	"biorag/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Serves POST /api/v1/ask, POST /api/v1/search, GET /api/v1/status and
GET /health on the configured host and port.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP server over stdio",
	Long: `Starts a Model Context Protocol server exposing the recommend_tools and
search_tools tools, for use by MCP-compatible assistants.

Example client configuration:
  {
    "mcpServers": {
      "biorag": {
        "command": "/path/to/biorag",
        "args": ["mcp"]
      }
    }
  }`,
	Args: cobra.NoArgs,
	RunE: runMCP,
}

func init() {
	rootCmd.AddCommand(serveCmd, mcpCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}
	defer closeApp(a)

	srv := server.NewServer(a.Pipeline, a.Store, &a.Config.Server, a.Logger.Named("http"))
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-cmd.Context().Done():
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Stop(ctx)
	}
}

func runMCP(cmd *cobra.Command, _ []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}
	defer closeApp(a)

	s, err := mcpserver.NewServer(a.Pipeline, a.Logger.Named("mcp"))
	if err != nil {
		return err
	}
	return s.Run(cmd.Context())
}
