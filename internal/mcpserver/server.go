// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes read-only snapshot tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/ansuz/internal/apperr"
	"github.com/starford/ansuz/internal/noteservice"
	"github.com/starford/ansuz/internal/parser"
)

const defaultListLimit = 50

// Server wraps the MCP server with the note tools.
type Server struct {
	mcp *server.MCPServer
	svc *noteservice.Service
}

// New creates a new MCP server with all tools registered.
func New(svc *noteservice.Service, version string) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"Ansuz",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_notes",
		mcp.WithDescription("List notes newest first, optionally restricted to one category."),
		mcp.WithString("category", mcp.Description("Category (first folder below the content root); empty for all")),
		mcp.WithNumber("limit", mcp.Description("Maximum number of notes (default 50, 0 for all)")),
		mcp.WithNumber("offset", mcp.Description("Number of notes to skip")),
	), s.listNotes)

	s.mcp.AddTool(mcp.NewTool("read_note",
		mcp.WithDescription("Read a note with its content, raw links and graph neighbors. "+
			"Identify it by id, or by absolute path."),
		mcp.WithString("id", mcp.Description("Note id as returned by list_notes")),
		mcp.WithString("path", mcp.Description("Absolute path of the note file")),
	), s.readNote)

	s.mcp.AddTool(mcp.NewTool("list_categories",
		mcp.WithDescription("List categories with their note counts."),
	), s.listCategories)

	s.mcp.AddTool(mcp.NewTool("get_graph",
		mcp.WithDescription("Return the undirected reference graph: nodes and links by note id."),
	), s.getGraph)

	s.mcp.AddTool(mcp.NewTool("get_journal",
		mcp.WithDescription("List journal entries newest first."),
		mcp.WithNumber("limit", mcp.Description("Maximum number of entries (0 for all)")),
	), s.getJournal)

	s.mcp.AddTool(mcp.NewTool("get_neighbors",
		mcp.WithDescription("List the notes connected to a note in the reference graph."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Note id")),
	), s.getNeighbors)

	s.mcp.AddTool(mcp.NewTool("get_note_conventions",
		mcp.WithDescription("Explain how titles, categories, links and journal entries are derived from note files."),
	), s.getNoteConventions)

	s.mcp.AddResource(
		mcp.NewResource(ConventionsURI, "Note Conventions",
			mcp.WithResourceDescription("How notes are interpreted by the indexer."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readConventionsResource,
	)

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

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func errorResult(err error) *mcp.CallToolResult {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		return mcp.NewToolResultError("note not found")
	case errors.Is(err, apperr.ErrInvalidID):
		return mcp.NewToolResultError("invalid note id")
	default:
		return mcp.NewToolResultError(err.Error())
	}
}

func (s *Server) listNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	items, total, err := s.svc.List(ctx, noteservice.ListOptions{
		Category: req.GetString("category", ""),
		Limit:    req.GetInt("limit", defaultListLimit),
		Offset:   req.GetInt("offset", 0),
	})
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(map[string]any{"notes": items, "total": total})
}

func (s *Server) readNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetString("id", "")
	if id == "" {
		path := req.GetString("path", "")
		if path == "" {
			return mcp.NewToolResultError("id or path is required"), nil
		}
		if !filepath.IsAbs(path) {
			return mcp.NewToolResultError(fmt.Sprintf("path must be absolute: %s", path)), nil
		}
		id = parser.EncodeID(filepath.Clean(path))
	}
	note, err := s.svc.Get(ctx, id)
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(note)
}

func (s *Server) listCategories(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cats, err := s.svc.Categories(ctx)
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(cats)
}

func (s *Server) getGraph(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	g, err := s.svc.Graph(ctx)
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(g)
}

func (s *Server) getJournal(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	items, err := s.svc.Journal(ctx, req.GetInt("limit", 0))
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(items)
}

func (s *Server) getNeighbors(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	items, err := s.svc.Neighbors(ctx, id)
	if err != nil {
		return errorResult(err), nil
	}
	if len(items) == 0 {
		return mcp.NewToolResultText("no neighbors found"), nil
	}
	return jsonResult(items)
}

func (s *Server) getNoteConventions(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(NoteConventions), nil
}

func (s *Server) readConventionsResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      ConventionsURI,
			MIMEType: "text/markdown",
			Text:     NoteConventions,
		},
	}, nil
}
