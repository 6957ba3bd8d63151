// Package mcpserver exposes tool recommendation over the Model Context Protocol.
package mcpserver

import (
	"context"
	"errors"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"biorag/internal/logging"
	"biorag/internal/server"
)

// Version is the MCP server version.
const Version = "0.1.0"

// Server is the MCP server for biorag.
type Server struct {
	pipeline server.Querier
	logger   *zap.Logger
	server   *mcp.Server
}

// NewServer creates an MCP server backed by the query pipeline.
func NewServer(pipeline server.Querier, logger *zap.Logger) (*Server, error) {
	if pipeline == nil {
		return nil, errors.New("query pipeline is required")
	}
	s := &Server{
		pipeline: pipeline,
		logger:   logging.OrNop(logger),
		server: mcp.NewServer(&mcp.Implementation{
			Name:    "biorag",
			Version: Version,
		}, nil),
	}
	s.registerTools()
	return s, nil
}

// Run serves over stdio until ctx is cancelled or the client disconnects.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}
