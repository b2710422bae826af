package bookmark

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// Fetcher renders a URL into raw page content.
type Fetcher interface {
	Render(ctx context.Context, url string) (string, error)
}

// Summarizer turns raw page content into clean text and a title.
type Summarizer interface {
	Summarize(ctx context.Context, content string) (title, cleanText string, err error)
}

type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Pipeline drives a bookmark through fetch, summarize, embed and persist,
// updating the row's status at each boundary. Stage failures are recorded on
// the row; the returned error exists only so workers can log it. Nothing is
// ever propagated back to the submitter.
type Pipeline struct {
	repo       Repository
	fetcher    Fetcher
	summarizer Summarizer
	embedder   Embedder
}

func NewPipeline(repo Repository, f Fetcher, s Summarizer, e Embedder) *Pipeline {
	return &Pipeline{repo: repo, fetcher: f, summarizer: s, embedder: e}
}

// Process runs the full enrichment state machine for one bookmark. Marking
// the row processing is legal from any prior status, which is what makes
// reprocessing safe after a crash mid-flight.
func (p *Pipeline) Process(ctx context.Context, id string) error {
	if err := p.repo.UpdateStatus(ctx, id, StatusProcessing, ""); err != nil {
		return err
	}

	// A load failure leaves the row in processing; the stuck scan retries it.
	b, err := p.repo.Get(ctx, id)
	if err != nil {
		return err
	}

	raw, err := p.fetcher.Render(ctx, b.URL)
	if err != nil {
		return p.fail(ctx, id, fmt.Errorf("fetch: %w", err))
	}

	// Summarization and embedding are independent reads of the same input.
	var (
		wg               sync.WaitGroup
		title, cleanText string
		embedding        []float32
		sumErr, embedErr error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		title, cleanText, sumErr = p.summarizer.Summarize(ctx, raw)
	}()
	go func() {
		defer wg.Done()
		embedding, embedErr = p.embedder.Embed(ctx, raw)
	}()
	wg.Wait()

	// When both stages fail the embedding error is the one recorded.
	if embedErr != nil {
		return p.fail(ctx, id, fmt.Errorf("embed: %w", embedErr))
	}
	if sumErr != nil {
		return p.fail(ctx, id, fmt.Errorf("summarize: %w", sumErr))
	}

	if err := p.repo.UpdateEnrichment(ctx, id, cleanText, title, embedding); err != nil {
		return p.fail(ctx, id, fmt.Errorf("persist: %w", err))
	}

	if err := p.repo.UpdateStatus(ctx, id, StatusCompleted, ""); err != nil {
		return err
	}
	slog.InfoContext(ctx, "bookmark enriched", "id", id, "url", b.URL)
	return nil
}

// Reprocess re-runs the full pipeline for an existing bookmark. It is the
// system's sole retry mechanism; callers trigger it explicitly.
func (p *Pipeline) Reprocess(ctx context.Context, id string) error {
	return p.Process(ctx, id)
}

// Reindex regenerates only the embedding from already-stored content and
// rewrites the enrichment triple. The row's status is left untouched.
func (p *Pipeline) Reindex(ctx context.Context, id string) error {
	b, err := p.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if !b.HasContent() {
		return fmt.Errorf("%w: %s", ErrNoContent, id)
	}

	embedding, err := p.embedder.Embed(ctx, *b.Content)
	if err != nil {
		return fmt.Errorf("embed: %w", err)
	}

	title := ""
	if b.Title != nil {
		title = *b.Title
	}
	return p.repo.UpdateEnrichment(ctx, id, *b.Content, title, embedding)
}

func (p *Pipeline) fail(ctx context.Context, id string, stageErr error) error {
	slog.WarnContext(ctx, "enrichment failed", "id", id, "error", stageErr)
	if err := p.repo.UpdateStatus(ctx, id, StatusFailed, stageErr.Error()); err != nil {
		slog.ErrorContext(ctx, "failed to record failure", "id", id, "error", err)
		return err
	}
	return stageErr
}

// ListStuck returns bookmarks left in pending or processing, oldest first.
// These are the candidates for Reprocess after a crash or restart.
func (p *Pipeline) ListStuck(ctx context.Context) ([]Bookmark, error) {
	return p.repo.ListStuck(ctx)
}

// BatchReport aggregates per-item outcomes of a batched operation.
type BatchReport struct {
	Processed int `json:"processed"`
	Succeeded int `json:"succeeded"`
	Skipped   int `json:"skipped"`
	Failed    int `json:"failed"`
}

type batchOutcome int

const (
	outcomeSucceeded batchOutcome = iota
	outcomeSkipped
	outcomeFailed
)

// ReprocessStuck re-runs the pipeline for every stuck bookmark, width items
// at a time so the fetch and embedding collaborators are not overwhelmed.
func (p *Pipeline) ReprocessStuck(ctx context.Context, width int) (BatchReport, error) {
	stuck, err := p.repo.ListStuck(ctx)
	if err != nil {
		return BatchReport{}, err
	}
	return p.runBatches(ctx, stuck, width, func(ctx context.Context, b Bookmark) batchOutcome {
		if err := p.Process(ctx, b.ID); err != nil {
			slog.WarnContext(ctx, "reprocess failed", "id", b.ID, "error", err)
			return outcomeFailed
		}
		return outcomeSucceeded
	}), nil
}

// ReindexAll re-embeds every bookmark that has content, width items at a
// time. Bookmarks without content are skipped, not failed.
func (p *Pipeline) ReindexAll(ctx context.Context, width int) (BatchReport, error) {
	all, err := p.repo.ListAll(ctx)
	if err != nil {
		return BatchReport{}, err
	}
	return p.runBatches(ctx, all, width, func(ctx context.Context, b Bookmark) batchOutcome {
		if !b.HasContent() {
			slog.InfoContext(ctx, "skipping bookmark without content", "id", b.ID)
			return outcomeSkipped
		}
		if err := p.Reindex(ctx, b.ID); err != nil {
			slog.WarnContext(ctx, "reindex failed", "id", b.ID, "error", err)
			return outcomeFailed
		}
		return outcomeSucceeded
	}), nil
}

func (p *Pipeline) runBatches(ctx context.Context, items []Bookmark, width int, fn func(context.Context, Bookmark) batchOutcome) BatchReport {
	if width < 1 {
		width = 1
	}

	var report BatchReport
	total := len(items)
	for start := 0; start < total; start += width {
		end := start + width
		if end > total {
			end = total
		}
		batch := items[start:end]

		outcomes := make([]batchOutcome, len(batch))
		var wg sync.WaitGroup
		for i, b := range batch {
			wg.Add(1)
			go func(i int, b Bookmark) {
				defer wg.Done()
				outcomes[i] = fn(ctx, b)
			}(i, b)
		}
		wg.Wait()

		for _, o := range outcomes {
			report.Processed++
			switch o {
			case outcomeSucceeded:
				report.Succeeded++
			case outcomeSkipped:
				report.Skipped++
			case outcomeFailed:
				report.Failed++
			}
		}
		slog.InfoContext(ctx, "batch progress",
			"processed", report.Processed, "total", total,
			"succeeded", report.Succeeded, "skipped", report.Skipped, "failed", report.Failed)
	}
	return report
}
