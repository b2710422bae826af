package queue

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/nsqio/go-nsq"

	"github.com/fTrestour/bookmarks/features/bookmark"
	"github.com/fTrestour/bookmarks/internal/logctx"
)

// NSQPublisher publishes enrich tasks to nsqd. It carries the same payload
// as the in-process pool, so the consumer side is interchangeable.
type NSQPublisher struct {
	producer *nsq.Producer
}

func NewNSQPublisher(nsqdAddr string) (*NSQPublisher, error) {
	producer, err := nsq.NewProducer(nsqdAddr, nsq.NewConfig())
	if err != nil {
		return nil, err
	}
	return &NSQPublisher{producer: producer}, nil
}

func (p *NSQPublisher) Publish(topic string, body []byte) error {
	return p.producer.Publish(topic, body)
}

func (p *NSQPublisher) Stop() {
	p.producer.Stop()
}

// StartConsumer subscribes to the enrich topic and feeds tasks to proc.
// Messages are never requeued: a failed run is already recorded on the row
// and recovery goes through the stuck scan, not broker redelivery.
func StartConsumer(lookupdAddr string, proc Processor) (*nsq.Consumer, error) {
	consumer, err := nsq.NewConsumer(bookmark.TopicEnrich, "enricher", nsq.NewConfig())
	if err != nil {
		return nil, err
	}

	consumer.AddHandler(nsq.HandlerFunc(func(m *nsq.Message) error {
		if len(m.Body) == 0 {
			return nil
		}
		var payload bookmark.EnrichTask
		if err := json.Unmarshal(m.Body, &payload); err != nil {
			slog.Error("invalid enrich message, dropping", "error", err)
			return nil
		}
		if payload.ID == "" {
			slog.Error("enrich message missing id, dropping")
			return nil
		}

		ctx := logctx.EnsureCorrelationID(logctx.WithCorrelationID(context.Background(), payload.CorrelationID))
		if err := proc.Process(ctx, payload.ID); err != nil {
			slog.ErrorContext(ctx, "enrichment run failed", "id", payload.ID, "error", err)
		}
		return nil
	}))

	if err := consumer.ConnectToNSQLookupd(lookupdAddr); err != nil {
		return nil, err
	}
	return consumer, nil
}
