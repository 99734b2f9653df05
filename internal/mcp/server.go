// ABOUTME: MCP server setup for the local health store.
// ABOUTME: Wraps the MCP server around a Repository so assistants can log and read records.
package mcp

import (
	"context"
	"time"

	"github.com/harperreed/healthlink/internal/repository"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Server wraps the MCP server with repository access.
type Server struct {
	mcpServer *mcp.Server
	repo      *repository.Repository
	now       func() time.Time
}

// NewServer creates a new MCP server over repo.
func NewServer(repo *repository.Repository) (*Server, error) {
	mcpServer := mcp.NewServer(
		&mcp.Implementation{
			Name:    "health",
			Version: "2.0.0",
		},
		nil,
	)

	s := &Server{
		mcpServer: mcpServer,
		repo:      repo,
		now:       time.Now,
	}

	s.registerTools()
	s.registerResources()

	return s, nil
}

// Serve starts the MCP server using stdio transport.
func (s *Server) Serve(ctx context.Context) error {
	return s.mcpServer.Run(ctx, &mcp.StdioTransport{})
}
