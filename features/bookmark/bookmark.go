package bookmark

import (
	"context"
	"errors"
	"time"
)

// Status is the enrichment lifecycle state of a bookmark. It is a closed
// enumeration; every switch over it handles all four values.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Valid reports whether s is one of the known states.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// Terminal reports whether s ends a processing run. A failed bookmark can
// still be reprocessed, but the run that produced the status is over.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed:
		return true
	case StatusPending, StatusProcessing:
		return false
	}
	return false
}

// Bookmark is one saved URL and its enrichment state. Title, Content and
// Embedding are nil until enrichment succeeds, then all three are set; the
// store never persists a partial mix.
type Bookmark struct {
	ID           string     `json:"id"`
	URL          string     `json:"url"`
	Title        *string    `json:"title"`
	Content      *string    `json:"content"`
	Embedding    []float32  `json:"-"`
	Status       Status     `json:"status"`
	ErrorMessage *string    `json:"error_message,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	ProcessedAt  *time.Time `json:"processed_at,omitempty"`
}

// HasContent reports whether the bookmark carries reindexable content.
func (b *Bookmark) HasContent() bool {
	return b.Content != nil && *b.Content != ""
}

var (
	ErrInvalidURL   = errors.New("invalid url")
	ErrDuplicateURL = errors.New("url already bookmarked")
	ErrNotFound     = errors.New("bookmark not found")
	ErrNoContent    = errors.New("bookmark has no content")
	ErrBadDimension = errors.New("embedding has wrong dimension")
)

// SubmitResult reports the synchronous outcome of a submit call. It reflects
// whether the record was accepted, never the eventual enrichment outcome.
type SubmitResult struct {
	ProcessedCount int `json:"processedCount"`
	SuccessCount   int `json:"successCount"`
	FailedCount    int `json:"failedCount"`
}

type Repository interface {
	Insert(ctx context.Context, b *Bookmark) error
	Get(ctx context.Context, id string) (*Bookmark, error)
	ListAll(ctx context.Context) ([]Bookmark, error)
	ListStuck(ctx context.Context) ([]Bookmark, error)
	ListCompleted(ctx context.Context, limit int) ([]Bookmark, error)
	SearchByEmbedding(ctx context.Context, embedding []float32, limit int) ([]Bookmark, error)
	UpdateStatus(ctx context.Context, id string, status Status, errMsg string) error
	UpdateEnrichment(ctx context.Context, id, content, title string, embedding []float32) error
}
