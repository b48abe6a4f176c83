package producers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/segmentio/kafka-go"

	"github.com/transfer-antifraud-saga/internal/config"
)

// EventProducer publishes domain events. Messages are partitioned by key hash,
// so every event of one transaction lands on the same partition in order.
type EventProducer struct {
	logger *slog.Logger
	writer KafkaWriter
}

// NewEventProducer ensures the given topics exist and returns a synchronous
// writer that waits for all in-sync replicas.
func NewEventProducer(logger *slog.Logger, cfg *config.KafkaConfig, topics ...string) (*EventProducer, error) {
	brokers := cfg.BrokerList()
	if len(brokers) == 0 {
		return nil, errors.New("kafka brokers are not configured")
	}

	if err := EnsureTopics(logger, cfg, topics...); err != nil {
		return nil, err
	}

	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		Async:                  false,
		WriteTimeout:           cfg.MaxWait,
		AllowAutoTopicCreation: false,
	}

	return &EventProducer{
		logger: logger,
		writer: writer,
	}, nil
}

func (p *EventProducer) Publish(ctx context.Context, topic string, key string, payload []byte) error {
	if topic == "" {
		return errors.New("event topic is empty")
	}

	msg := kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: payload,
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("Failed to publish event",
			"topic", topic,
			"key", key,
			"error", err,
		)
		return fmt.Errorf("failed to publish event to %s: %w", topic, err)
	}

	p.logger.Debug("Published event", "topic", topic, "key", key)
	return nil
}

func (p *EventProducer) Close() error {
	p.logger.Info("Closing Kafka event producer")
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("failed to close kafka event writer: %w", err)
	}
	return nil
}
