package mcp

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/fTrestour/bookmarks/features/bookmark"
	"github.com/fTrestour/bookmarks/features/search"
	"github.com/fTrestour/bookmarks/internal/auth"
)

// Handlers holds dependencies for the MCP tool handlers.
type Handlers struct {
	bookmarks   *bookmark.Service
	pipeline    *bookmark.Pipeline
	search      *search.Service
	tokens      auth.Validator
	requireAuth bool
}

func NewHandlers(bookmarks *bookmark.Service, pipeline *bookmark.Pipeline, search *search.Service, tokens auth.Validator, requireAuth bool) *Handlers {
	return &Handlers{
		bookmarks:   bookmarks,
		pipeline:    pipeline,
		search:      search,
		tokens:      tokens,
		requireAuth: requireAuth,
	}
}

// AddRequest represents the arguments for bookmark_add.
type AddRequest struct {
	URL   string `json:"url"`
	Token string `json:"token,omitempty"`
}

// SearchRequest represents the arguments for bookmark_search.
type SearchRequest struct {
	Query string `json:"query,omitempty"`
	Limit int    `json:"limit,omitempty"`
}

// ReprocessRequest represents the arguments for bookmark_reprocess.
type ReprocessRequest struct {
	ID string `json:"id"`
}

func (h *Handlers) HandleAdd(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[AddRequest](req)
	if err != nil {
		return errorResult(err), nil
	}

	if h.requireAuth {
		ok, err := h.tokens.IsValid(ctx, input.Token)
		if err != nil {
			return errorResult(err), nil
		}
		if !ok {
			return errorResult(errors.New("unauthorized")), nil
		}
	}

	result, err := h.bookmarks.Submit(ctx, input.URL)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

func (h *Handlers) HandleSearch(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[SearchRequest](req)
	if err != nil {
		return errorResult(err), nil
	}

	results, err := h.search.Search(ctx, input.Query, input.Limit)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(results)
}

func (h *Handlers) HandleList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	results, err := h.search.Search(ctx, "", 0)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(results)
}

func (h *Handlers) HandleStuck(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	stuck, err := h.pipeline.ListStuck(ctx)
	if err != nil {
		return errorResult(err), nil
	}
	if stuck == nil {
		stuck = []bookmark.Bookmark{}
	}
	return successResult(stuck)
}

func (h *Handlers) HandleReprocess(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ReprocessRequest](req)
	if err != nil {
		return errorResult(err), nil
	}
	if input.ID == "" {
		return errorResult(errors.New("id is required")), nil
	}

	if err := h.pipeline.Reprocess(ctx, input.ID); err != nil {
		return errorResult(err), nil
	}
	return successResult(map[string]string{"status": "ok"})
}

// decode unmarshals MCP request arguments into a typed struct.
func decode[T any](req mcp.CallToolRequest) (T, error) {
	var result T
	b, err := json.Marshal(req.GetArguments())
	if err != nil {
		return result, err
	}
	if err := json.Unmarshal(b, &result); err != nil {
		return result, err
	}
	return result, nil
}

func errorResult(err error) *mcp.CallToolResult {
	payload, _ := json.Marshal(map[string]any{
		"error": err.Error(),
	})
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(payload)}},
		IsError: true,
	}
}

func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}
