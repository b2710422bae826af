// Package queue hands enrichment tasks from the ingestion facade to the
// background workers. The default transport is an in-process buffered channel
// drained by a fixed pool of workers; an NSQ-backed variant with the same
// payload is available for distributed deployments.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"

	"github.com/fTrestour/bookmarks/features/bookmark"
	"github.com/fTrestour/bookmarks/internal/logctx"
)

var ErrQueueFull = errors.New("enrich queue full")

// Processor runs a bookmark through the enrichment pipeline.
type Processor interface {
	Process(ctx context.Context, id string) error
}

type task struct {
	topic string
	body  []byte
}

// Pool is a fixed-width worker pool fed by a buffered channel. Publish never
// blocks the caller: when the buffer is full the task is dropped (the pending
// row stays behind for the stuck scan).
type Pool struct {
	proc    Processor
	tasks   chan task
	workers int

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

func NewPool(proc Processor, workers, size int) *Pool {
	if workers < 1 {
		workers = 1
	}
	if size < 1 {
		size = 1
	}
	return &Pool{proc: proc, tasks: make(chan task, size), workers: workers}
}

// Publish enqueues a task for the workers. It satisfies the same contract as
// the NSQ producer so services stay transport-agnostic.
func (p *Pool) Publish(topic string, body []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return errors.New("queue stopped")
	}
	select {
	case p.tasks <- task{topic: topic, body: body}:
		return nil
	default:
		return ErrQueueFull
	}
}

// Start launches the workers. ctx is the base context for every task run;
// cancelling it does not abort in-flight enrichment, which always runs to a
// terminal status.
func (p *Pool) Start(ctx context.Context) {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for t := range p.tasks {
				p.handle(ctx, t)
			}
		}()
	}
}

// Stop closes the queue and waits for in-flight tasks to finish. Tests use
// this as a deterministic join point.
func (p *Pool) Stop() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.tasks)
	p.mu.Unlock()
	p.wg.Wait()
}

func (p *Pool) handle(ctx context.Context, t task) {
	if t.topic != bookmark.TopicEnrich {
		slog.Warn("dropping task for unknown topic", "topic", t.topic)
		return
	}
	var payload bookmark.EnrichTask
	if err := json.Unmarshal(t.body, &payload); err != nil {
		slog.Error("invalid enrich task payload", "error", err)
		return
	}
	if payload.ID == "" {
		slog.Error("enrich task missing id")
		return
	}

	ctx = logctx.EnsureCorrelationID(logctx.WithCorrelationID(ctx, payload.CorrelationID))
	if err := p.proc.Process(ctx, payload.ID); err != nil {
		// The row already carries the failure; this is the worker's log line.
		slog.ErrorContext(ctx, "enrichment run failed", "id", payload.ID, "error", err)
	}
}
