// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes Gebo snippet tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/gebo/internal/apperr"
	"github.com/starford/gebo/internal/snippetservice"
)

// Server wraps the MCP server with Gebo tools.
type Server struct {
	mcp      *server.MCPServer
	snippets *snippetservice.Service
}

// New creates a new MCP server with all snippet tools registered.
func New(snippets *snippetservice.Service) *Server {
	s := &Server{snippets: snippets}

	s.mcp = server.NewMCPServer(
		"Gebo",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("search_snippets",
		mcp.WithDescription("Free-text search across snippet titles and text. "+
			"An empty query returns the most recent snippets."),
		mcp.WithString("query", mcp.Description("Search query string")),
	), s.searchSnippets)

	s.mcp.AddTool(mcp.NewTool("read_snippet",
		mcp.WithDescription("Read one snippet by id, including its full Markdown text."),
		mcp.WithNumber("id", mcp.Required(), mcp.Description("Snippet id")),
	), s.readSnippet)

	s.mcp.AddTool(mcp.NewTool("create_snippet",
		mcp.WithDescription("Create a new snippet. Title and text are both required; "+
			"text is Markdown."),
		mcp.WithString("title", mcp.Required(), mcp.Description("Snippet title")),
		mcp.WithString("text", mcp.Required(), mcp.Description("Markdown text")),
	), s.createSnippet)

	s.mcp.AddTool(mcp.NewTool("delete_snippet",
		mcp.WithDescription("Delete a snippet by id. The search index entry is removed with it."),
		mcp.WithNumber("id", mcp.Required(), mcp.Description("Snippet id")),
	), s.deleteSnippet)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) searchSnippets(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query := req.GetString("query", "")
	results, err := s.snippets.Search(ctx, query)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(results, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) readSnippet(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireInt("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	sn, err := s.snippets.Get(ctx, int64(id))
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return mcp.NewToolResultError(fmt.Sprintf("no snippet with id %d", id)), nil
		}
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(sn, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) createSnippet(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	title, err := req.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	text, err := req.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	sn, err := s.snippets.Create(ctx, title, text)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("created snippet %d: %s", sn.ID, sn.Title)), nil
}

func (s *Server) deleteSnippet(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireInt("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.snippets.Delete(ctx, int64(id)); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return mcp.NewToolResultError(fmt.Sprintf("no snippet with id %d", id)), nil
		}
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("deleted snippet %d", id)), nil
}
