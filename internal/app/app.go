package app

import (
	"database/sql"

	"github.com/fTrestour/bookmarks/features/bookmark"
	"github.com/fTrestour/bookmarks/features/search"
	"github.com/fTrestour/bookmarks/internal/auth"
	"github.com/fTrestour/bookmarks/internal/config"
	"github.com/fTrestour/bookmarks/internal/queue"
)

// Collaborators are the external services the core depends on. They are
// interfaces here so tests can swap them out.
type Collaborators struct {
	Fetcher    bookmark.Fetcher
	Summarizer bookmark.Summarizer
	Embedder   bookmark.Embedder
	Describer  search.Describer
}

type App struct {
	Bookmarks *bookmark.Service
	Pipeline  *bookmark.Pipeline
	Search    *search.Service
	Tokens    auth.Validator

	// Pool is the in-process task queue; nil when an external publisher
	// (NSQ) was supplied.
	Pool *queue.Pool
}

// New wires the record store, pipeline, facade and retrieval engine. When
// pub is nil an in-process worker pool is created and used as the publisher.
func New(cfg *config.Config, db *sql.DB, col Collaborators, pub bookmark.TaskPublisher) *App {
	repo := bookmark.NewPostgresRepo(db, cfg.EmbeddingDim)
	pipeline := bookmark.NewPipeline(repo, col.Fetcher, col.Summarizer, col.Embedder)

	var pool *queue.Pool
	if pub == nil {
		pool = queue.NewPool(pipeline, cfg.WorkerCount, cfg.QueueSize)
		pub = pool
	}

	return &App{
		Bookmarks: bookmark.NewService(repo, pub),
		Pipeline:  pipeline,
		Search:    search.NewService(repo, col.Embedder, col.Describer, cfg.SearchLimit),
		Tokens:    auth.NewPostgresTokens(db),
		Pool:      pool,
	}
}
