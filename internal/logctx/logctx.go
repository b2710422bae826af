// Package logctx carries a correlation id through context and stamps it onto
// every slog record, so log lines from a background enrichment run can be
// tied back to the submit call that started it.
package logctx

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

type key int

const correlationKey key = 0

func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationKey, id)
}

// CorrelationID returns the id carried by ctx, or "" when none is set.
func CorrelationID(ctx context.Context) string {
	if id, ok := ctx.Value(correlationKey).(string); ok {
		return id
	}
	return ""
}

// EnsureCorrelationID returns ctx unchanged when it already carries an id,
// otherwise attaches a fresh one.
func EnsureCorrelationID(ctx context.Context) context.Context {
	if CorrelationID(ctx) != "" {
		return ctx
	}
	return WithCorrelationID(ctx, uuid.New().String())
}

// Handler decorates a slog.Handler with the context's correlation id.
type Handler struct {
	slog.Handler
}

func NewHandler(h slog.Handler) *Handler {
	return &Handler{Handler: h}
}

func (h *Handler) Handle(ctx context.Context, r slog.Record) error {
	if id := CorrelationID(ctx); id != "" {
		r.AddAttrs(slog.String("correlation_id", id))
	}
	return h.Handler.Handle(ctx, r)
}
