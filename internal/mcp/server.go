// Package mcp exposes the bookmark service over the Model Context Protocol
// (stdio transport), so agent clients can add and search bookmarks.
package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// toolEntry pairs a tool definition with a handler factory.
type toolEntry struct {
	def     mcp.Tool
	handler func(*Handlers) server.ToolHandlerFunc
}

var toolRegistry = map[string]toolEntry{
	"bookmark_add": {
		def: mcp.NewTool("bookmark_add",
			mcp.WithDescription("Save a URL as a bookmark; content, title and embedding are generated in the background"),
			mcp.WithString("url", mcp.Required(), mcp.Description("Absolute URL to bookmark")),
			mcp.WithString("token", mcp.Description("Bearer token, required when the server enforces auth")),
		),
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleAdd },
	},
	"bookmark_search": {
		def: mcp.NewTool("bookmark_search",
			mcp.WithDescription("Semantic search over completed bookmarks; an empty query lists all of them"),
			mcp.WithString("query", mcp.Description("Search query; leave empty to list every completed bookmark")),
			mcp.WithNumber("limit", mcp.Description("Maximum number of results (default 10 when a query is given)")),
		),
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleSearch },
	},
	"bookmark_list": {
		def: mcp.NewTool("bookmark_list",
			mcp.WithDescription("List all completed bookmarks"),
		),
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleList },
	},
	"bookmark_stuck": {
		def: mcp.NewTool("bookmark_stuck",
			mcp.WithDescription("List bookmarks stuck in pending or processing, oldest first"),
		),
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleStuck },
	},
	"bookmark_reprocess": {
		def: mcp.NewTool("bookmark_reprocess",
			mcp.WithDescription("Re-run the enrichment pipeline for one bookmark"),
			mcp.WithString("id", mcp.Required(), mcp.Description("Bookmark id")),
		),
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleReprocess },
	},
}

// NewServer creates the MCP server with all bookmark tools registered.
func NewServer(h *Handlers, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"bookmarks",
		version,
		server.WithToolCapabilities(true),
	)
	for _, entry := range toolRegistry {
		s.AddTool(entry.def, entry.handler(h))
	}
	return s
}

// Run serves MCP over stdio until the client disconnects.
func Run(h *Handlers, version string) error {
	return server.ServeStdio(NewServer(h, version))
}
