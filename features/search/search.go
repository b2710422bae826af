package search

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/fTrestour/bookmarks/features/bookmark"
)

// Result is one search hit. Description is "" when no query was given or
// when description generation failed for the row.
type Result struct {
	ID          string `json:"id"`
	URL         string `json:"url"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Describer produces a one-sentence explanation of how a bookmark's content
// relates to a search query.
type Describer interface {
	Describe(ctx context.Context, query, content string) (string, error)
}

type Repository interface {
	ListCompleted(ctx context.Context, limit int) ([]bookmark.Bookmark, error)
	SearchByEmbedding(ctx context.Context, embedding []float32, limit int) ([]bookmark.Bookmark, error)
}

// Service ranks completed bookmarks by cosine distance to a query embedding.
type Service struct {
	repo     Repository
	embedder Embedder
	desc     Describer
	limit    int
}

// NewService builds the retrieval engine. defaultLimit caps ranked result
// lists when the caller does not pass one; unranked listings are unbounded.
func NewService(repo Repository, embedder Embedder, desc Describer, defaultLimit int) *Service {
	if defaultLimit <= 0 {
		defaultLimit = 10
	}
	return &Service{repo: repo, embedder: embedder, desc: desc, limit: defaultLimit}
}

// Search returns completed bookmarks ranked by relevance to query. A blank
// query lists every completed bookmark unranked. An embedding failure is a
// retrieval failure; there is no silent fallback to unranked results.
func (s *Service) Search(ctx context.Context, query string, limit int) ([]Result, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		rows, err := s.repo.ListCompleted(ctx, limit)
		if err != nil {
			return nil, err
		}
		return toResults(rows), nil
	}

	vec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	if limit <= 0 {
		limit = s.limit
	}
	rows, err := s.repo.SearchByEmbedding(ctx, vec, limit)
	if err != nil {
		return nil, err
	}

	results := toResults(rows)
	for i, row := range rows {
		if !row.HasContent() {
			continue
		}
		description, err := s.desc.Describe(ctx, query, *row.Content)
		if err != nil {
			// Ranking integrity matters more than per-row annotation.
			slog.WarnContext(ctx, "description generation failed", "id", row.ID, "error", err)
			continue
		}
		results[i].Description = description
	}
	return results, nil
}

func toResults(rows []bookmark.Bookmark) []Result {
	results := make([]Result, len(rows))
	for i, b := range rows {
		title := ""
		if b.Title != nil {
			title = *b.Title
		}
		results[i] = Result{ID: b.ID, URL: b.URL, Title: title}
	}
	return results
}
