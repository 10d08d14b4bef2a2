package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"

	"github.com/sp3dr4/tern/internal/domain"
)

const (
	EventMappingCreated = "mapping.created"
	EventMappingDeleted = "mapping.deleted"
)

// Event is the envelope written to the mappings topic, keyed by short code.
type Event struct {
	EventType string       `json:"event_type"`
	Timestamp time.Time    `json:"timestamp"`
	Data      EventPayload `json:"data"`
}

type EventPayload struct {
	ID        string    `json:"id"`
	ShortCode string    `json:"short_code"`
	LongURL   string    `json:"long_url"`
	CreatedAt time.Time `json:"created_at"`
}

type Publisher struct {
	producer sarama.SyncProducer
	topic    string
}

func NewPublisher(brokers []string, topic string) (*Publisher, error) {
	config := sarama.NewConfig()
	config.Producer.Return.Successes = true
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 5

	producer, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create producer: %w", err)
	}

	return NewPublisherWithProducer(producer, topic), nil
}

func NewPublisherWithProducer(producer sarama.SyncProducer, topic string) *Publisher {
	return &Publisher{producer: producer, topic: topic}
}

func (p *Publisher) PublishMappingCreated(ctx context.Context, mapping *domain.Mapping) error {
	return p.publish(ctx, EventMappingCreated, mapping)
}

func (p *Publisher) PublishMappingDeleted(ctx context.Context, mapping *domain.Mapping) error {
	return p.publish(ctx, EventMappingDeleted, mapping)
}

func (p *Publisher) publish(ctx context.Context, eventType string, mapping *domain.Mapping) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(Event{
		EventType: eventType,
		Timestamp: time.Now().UTC(),
		Data: EventPayload{
			ID:        mapping.ID,
			ShortCode: mapping.ShortCode,
			LongURL:   mapping.LongURL,
			CreatedAt: mapping.CreatedAt,
		},
	})
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(mapping.ShortCode),
		Value: sarama.ByteEncoder(data),
	}

	if _, _, err := p.producer.SendMessage(msg); err != nil {
		return fmt.Errorf("failed to send %s event: %w", eventType, err)
	}

	return nil
}

func (p *Publisher) Close() error {
	return p.producer.Close()
}

// NoOpPublisher drops every event. Used when events are disabled.
type NoOpPublisher struct{}

func NewNoOpPublisher() *NoOpPublisher {
	return &NoOpPublisher{}
}

func (NoOpPublisher) PublishMappingCreated(context.Context, *domain.Mapping) error { return nil }
func (NoOpPublisher) PublishMappingDeleted(context.Context, *domain.Mapping) error { return nil }
func (NoOpPublisher) Close() error                                                 { return nil }
