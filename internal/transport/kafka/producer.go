package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/IBM/sarama"

	"trucking-dispatch-core/internal/domain"
)

var newSyncProducer = sarama.NewSyncProducer

// Producer publishes outbox notifications to a Kafka topic.
type Producer struct {
	producer sarama.SyncProducer
	topic    string
}

// NewProducer creates a new Producer. It returns nil, nil when Kafka is not configured.
func NewProducer(brokers []string, topic string) (*Producer, error) {
	if len(brokers) == 0 || strings.TrimSpace(topic) == "" {
		return nil, nil
	}

	cfg := sarama.NewConfig()
	cfg.Producer.Return.Successes = true
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = 3

	p, err := newSyncProducer(brokers, cfg)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return NewProducerWith(p, topic), nil
}

// NewProducerWith wraps an existing sarama producer.
func NewProducerWith(p sarama.SyncProducer, topic string) *Producer {
	return &Producer{producer: p, topic: topic}
}

// Publish sends n keyed by its entity so one entity's notifications stay ordered.
func (p *Producer) Publish(ctx context.Context, n domain.Notification) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	payload, err := json.Marshal(n)
	if err != nil {
		return Permanent(fmt.Errorf("encode notification %s: %w", n.ID, err))
	}

	_, _, err = p.producer.SendMessage(&sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(n.Ref.ID.String()),
		Value: sarama.ByteEncoder(payload),
		Headers: []sarama.RecordHeader{
			{Key: []byte("tenant_id"), Value: []byte(n.TenantID.String())},
			{Key: []byte("priority"), Value: []byte(n.Priority)},
		},
	})
	if err != nil {
		return fmt.Errorf("send notification %s: %w", n.ID, err)
	}
	return nil
}

// Close closes the underlying producer.
func (p *Producer) Close() error {
	if p == nil {
		return nil
	}
	return p.producer.Close()
}
