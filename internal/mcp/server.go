package mcp

import (
	"context"
	"log"
	"os"

	"github.com/mark3labs/mcp-go/server"

	"github.com/dshills/docdrift-mcp/internal/app"
)

const (
	// ServerName is the MCP server name
	ServerName = "docdrift-mcp"
	// ServerVersion is the current server version
	ServerVersion = "1.0.0"
)

// Server wraps the MCP server with application dependencies
type Server struct {
	mcp *server.MCPServer
	app *app.App
}

// NewServer creates a new MCP server instance over the shared components
func NewServer(a *app.App) *Server {
	mcpServer := server.NewMCPServer(
		ServerName,
		ServerVersion,
		server.WithToolCapabilities(false),
		server.WithLogging(),
	)

	s := &Server{
		mcp: mcpServer,
		app: a,
	}
	s.registerTools()
	return s
}

// Serve runs the MCP protocol on stdio until ctx is cancelled or stdin closes
func (s *Server) Serve(ctx context.Context) error {
	stdio := server.NewStdioServer(s.mcp)
	stdio.SetErrorLogger(log.New(os.Stderr, "", log.LstdFlags))
	return stdio.Listen(ctx, os.Stdin, os.Stdout)
}

// registerTools registers all MCP tools
func (s *Server) registerTools() {
	s.mcp.AddTool(indexDocumentationTool(), s.handleIndexDocumentation)
	s.mcp.AddTool(checkDocsTool(), s.handleCheckDocs)
	s.mcp.AddTool(searchDocumentationTool(), s.handleSearchDocumentation)
	s.mcp.AddTool(listCollectionsTool(), s.handleListCollections)
	s.mcp.AddTool(deleteCollectionTool(), s.handleDeleteCollection)
	s.mcp.AddTool(indexGitDiffTool(), s.handleIndexGitDiff)
}
