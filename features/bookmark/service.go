package bookmark

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/google/uuid"

	"github.com/fTrestour/bookmarks/internal/logctx"
)

// TopicEnrich is the task topic for background enrichment. Both the
// in-process pool and the NSQ producer publish to it.
const TopicEnrich = "bookmarks.enrich"

// EnrichTask is the payload handed to the enrichment workers.
type EnrichTask struct {
	ID            string `json:"id"`
	CorrelationID string `json:"correlation_id,omitempty"`
}

type TaskPublisher interface {
	Publish(topic string, body []byte) error
}

// Service is the synchronous ingestion fast path: it validates the URL,
// inserts the pending row and hands the id to the background workers. It
// never waits for enrichment.
type Service struct {
	repo Repository
	pub  TaskPublisher
}

func NewService(repo Repository, pub TaskPublisher) *Service {
	return &Service{repo: repo, pub: pub}
}

// Submit accepts a URL for ingestion. The returned counts reflect only the
// synchronous part of the call: whether the pending record was created.
func (s *Service) Submit(ctx context.Context, rawURL string) (SubmitResult, error) {
	rejected := SubmitResult{ProcessedCount: 1, FailedCount: 1}

	if err := validateURL(rawURL); err != nil {
		return rejected, err
	}

	b := &Bookmark{
		ID:     uuid.New().String(),
		URL:    rawURL,
		Status: StatusPending,
	}
	if err := s.repo.Insert(ctx, b); err != nil {
		return rejected, err
	}

	payload, _ := json.Marshal(EnrichTask{
		ID:            b.ID,
		CorrelationID: logctx.CorrelationID(ctx),
	})
	if err := s.pub.Publish(TopicEnrich, payload); err != nil {
		// The row is durable; a dropped task is picked up by the stuck scan.
		slog.ErrorContext(ctx, "failed to publish enrich task", "error", err, "id", b.ID)
	} else {
		slog.InfoContext(ctx, "published enrich task", "id", b.ID, "url", b.URL)
	}

	return SubmitResult{ProcessedCount: 1, SuccessCount: 1}, nil
}

func validateURL(rawURL string) error {
	u, err := url.ParseRequestURI(rawURL)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidURL, rawURL)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: %s", ErrInvalidURL, rawURL)
	}
	return nil
}
