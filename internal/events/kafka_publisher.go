package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-kafka/v2/pkg/kafka"
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/maktabhub/assessment-service/internal/models"
)

// KafkaEventPublisher publishes domain events to a single Kafka topic via
// watermill. It satisfies services.EventPublisher.
type KafkaEventPublisher struct {
	publisher message.Publisher
	topic     string
	logger    *slog.Logger
}

// NewKafkaEventPublisher connects to the given brokers. The returned
// publisher must be closed on shutdown.
func NewKafkaEventPublisher(brokers []string, topic string, logger *slog.Logger) (*KafkaEventPublisher, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("no kafka brokers configured")
	}

	publisher, err := kafka.NewPublisher(
		kafka.PublisherConfig{
			Brokers:   brokers,
			Marshaler: kafka.DefaultMarshaler{},
		},
		watermill.NewSlogLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka publisher: %w", err)
	}

	return &KafkaEventPublisher{
		publisher: publisher,
		topic:     topic,
		logger:    logger,
	}, nil
}

// NewEventPublisher wraps an existing watermill publisher. Used in tests with
// a gochannel pub/sub.
func NewEventPublisher(publisher message.Publisher, topic string, logger *slog.Logger) *KafkaEventPublisher {
	return &KafkaEventPublisher{
		publisher: publisher,
		topic:     topic,
		logger:    logger,
	}
}

func (p *KafkaEventPublisher) PublishAttemptSubmitted(ctx context.Context, attempt *models.ExamAttempt) error {
	return p.publish(ctx, TypeAttemptSubmitted, attemptPayload(attempt))
}

func (p *KafkaEventPublisher) PublishQuizSubmitted(ctx context.Context, result *models.QuizResult) error {
	return p.publish(ctx, TypeQuizSubmitted, quizPayload(result))
}

func (p *KafkaEventPublisher) Close() error {
	return p.publisher.Close()
}

func (p *KafkaEventPublisher) publish(ctx context.Context, eventType string, payload interface{}) error {
	envelope := Envelope{
		ID:         watermill.NewUUID(),
		Type:       eventType,
		OccurredAt: time.Now().UTC(),
		Payload:    payload,
	}

	data, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("failed to marshal event %s: %w", eventType, err)
	}

	msg := message.NewMessage(envelope.ID, data)
	msg.SetContext(ctx)
	msg.Metadata.Set("event_type", eventType)

	if err := p.publisher.Publish(p.topic, msg); err != nil {
		return fmt.Errorf("failed to publish event %s: %w", eventType, err)
	}

	p.logger.Debug("Published event",
		"event_id", envelope.ID,
		"event_type", eventType,
		"topic", p.topic)

	return nil
}
