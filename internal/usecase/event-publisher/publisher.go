package eventpublisher

import (
	"context"

	eventv1 "github.com/funbux/exchange/internal/domain/event/v1"
	"github.com/funbux/exchange/pkg/config"
	"github.com/funbux/exchange/pkg/errors"
	"github.com/funbux/exchange/pkg/logger"
	"github.com/segmentio/kafka-go"
)

// Publisher represents a Kafka Publisher for fanning out book events.
type Publisher struct {
	kafkaWriter *kafka.Writer
	logger      logger.Interface
}

// NewPublisher creates a new Kafka publisher for book events.
func NewPublisher(cfg config.EventPublisherConfig, log logger.Interface) *Publisher {
	kafkaWriter := kafka.NewWriter(kafka.WriterConfig{
		Brokers: cfg.Brokers,
		Topic:   cfg.Topic,
	})

	return &Publisher{
		kafkaWriter: kafkaWriter,
		logger:      log,
	}
}

// Publish publishes a single book event to the event topic.
func (p *Publisher) Publish(ctx context.Context, event eventv1.Event) error {
	msg := kafka.Message{
		Key:   []byte(event.Type),
		Value: eventv1.ToBytes(event),
	}

	if err := p.kafkaWriter.WriteMessages(ctx, msg); err != nil {
		p.logger.Error(err,
			logger.Field{Key: "operation", Value: "Publish"},
			logger.Field{Key: "eventType", Value: event.Type},
		)
		return errors.NewTracer(string(errors.ErrEventPublish)).Wrap(err)
	}
	return nil
}

// Run drains events until the channel closes or the context is
// cancelled. Delivery is best effort: a failed write is logged and
// skipped, never retried.
func (p *Publisher) Run(ctx context.Context, events <-chan eventv1.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			_ = p.Publish(ctx, event)
		}
	}
}

// Close properly closes the Kafka writer.
func (p *Publisher) Close() error {
	return p.kafkaWriter.Close()
}
