package consumers

import (
	"context"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/transfer-antifraud-saga/internal/config"
)

// dlqRetryCap bounds the pause between attempts to reach the dead-letter topic
const dlqRetryCap = 30 * time.Second

// MessageHandler processes one message and classifies the result
type MessageHandler func(ctx context.Context, key []byte, value []byte) Result

// Consumer defines the message queue consumer interface
type Consumer interface {
	Subscribe(ctx context.Context, handler MessageHandler) error
	Close() error
}

// MessageReader is the subset of kafka.Reader used by the consumer
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// DeadLetterSink receives messages that will never be applied
type DeadLetterSink interface {
	PublishToDLQ(ctx context.Context, key []byte, originalValue []byte, reason string) error
}

// OutcomeRecorder observes the final outcome of every message
type OutcomeRecorder interface {
	ObserveOutcome(topic string, outcome Outcome)
}

// KafkaConsumer implements Consumer using a Kafka consumer group. An offset is
// committed only once the message was applied, found to be a duplicate, or
// handed to the dead-letter topic.
type KafkaConsumer struct {
	reader      MessageReader
	dlq         DeadLetterSink
	recorder    OutcomeRecorder
	logger      *slog.Logger
	topic       string
	groupID     string
	maxAttempts int
	backoff     time.Duration
}

// NewKafkaConsumer builds a group reader for topic
func NewKafkaConsumer(logger *slog.Logger, cfg *config.KafkaConfig, topic string, dlq DeadLetterSink, recorder OutcomeRecorder) *KafkaConsumer {
	startOffset := kafka.FirstOffset
	if cfg.StartOffset == kafka.LastOffset {
		startOffset = kafka.LastOffset
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.BrokerList(),
		Topic:       topic,
		GroupID:     cfg.ConsumerGroup,
		MinBytes:    cfg.MinBytes,
		MaxBytes:    cfg.MaxBytes,
		MaxWait:     cfg.MaxWait,
		StartOffset: startOffset,
	})

	return newKafkaConsumer(logger, reader, dlq, recorder, topic, cfg.ConsumerGroup, cfg.HandlerMaxAttempts, cfg.HandlerBackoff)
}

func newKafkaConsumer(logger *slog.Logger, reader MessageReader, dlq DeadLetterSink, recorder OutcomeRecorder, topic, groupID string, maxAttempts int, backoff time.Duration) *KafkaConsumer {
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	return &KafkaConsumer{
		reader:      reader,
		dlq:         dlq,
		recorder:    recorder,
		logger:      logger.With("topic", topic, "group_id", groupID),
		topic:       topic,
		groupID:     groupID,
		maxAttempts: maxAttempts,
		backoff:     backoff,
	}
}

// Subscribe starts the fetch loop in its own goroutine
func (c *KafkaConsumer) Subscribe(ctx context.Context, handler MessageHandler) error {
	c.logger.Info("Subscribed to Kafka topic")

	go c.run(ctx, handler)

	return nil
}

func (c *KafkaConsumer) run(ctx context.Context, handler MessageHandler) {
	for {
		if ctx.Err() != nil {
			c.logger.Info("Context canceled, stopping consumer")
			return
		}

		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.logger.Info("Context canceled, stopping consumer")
				return
			}
			c.logger.Error("Failed to fetch message from Kafka", "error", err)
			if !sleepCtx(ctx, time.Second) {
				return
			}
			continue
		}

		c.processMessage(ctx, msg, handler)
	}
}

// processMessage drives one message to a committable outcome. It returns
// without committing only when ctx ends, leaving the message for redelivery.
func (c *KafkaConsumer) processMessage(ctx context.Context, msg kafka.Message, handler MessageHandler) {
	log := c.logger.With(
		"partition", msg.Partition,
		"offset", msg.Offset,
		"key", string(msg.Key),
	)
	log.Debug("Received message from Kafka")

	var result Result
	wait := c.backoff
	for attempt := 1; ; attempt++ {
		result = handler(ctx, msg.Key, msg.Value)
		if result.Outcome != Retryable {
			break
		}
		if ctx.Err() != nil {
			log.Warn("Context canceled during retry, message left uncommitted", "error", result.Err)
			return
		}
		if attempt >= c.maxAttempts {
			log.Error("Retry attempts exhausted, dead-lettering message",
				"attempts", attempt,
				"error", result.Err,
			)
			break
		}
		log.Warn("Retryable failure, retrying message",
			"attempt", attempt,
			"backoff", wait,
			"error", result.Err,
		)
		if !sleepCtx(ctx, wait) {
			return
		}
		wait *= 2
	}

	switch result.Outcome {
	case Applied:
		log.Debug("Message applied")
	case Duplicate:
		log.Info("Duplicate message absorbed")
	default:
		reason := "unknown failure"
		if result.Err != nil {
			reason = result.Err.Error()
		}
		if !c.deadLetter(ctx, log, msg, reason) {
			return
		}
	}

	if c.recorder != nil {
		c.recorder.ObserveOutcome(c.topic, result.Outcome)
	}

	if err := c.reader.CommitMessages(ctx, msg); err != nil {
		log.Error("Failed to commit message", "error", err)
		return
	}
	log.Debug("Message committed successfully")
}

// deadLetter keeps trying until the DLQ accepts the message or ctx ends
func (c *KafkaConsumer) deadLetter(ctx context.Context, log *slog.Logger, msg kafka.Message, reason string) bool {
	wait := c.backoff
	if wait <= 0 {
		wait = time.Second
	}
	for {
		err := c.dlq.PublishToDLQ(ctx, msg.Key, msg.Value, reason)
		if err == nil {
			log.Warn("Message sent to DLQ", "reason", reason)
			return true
		}
		log.Error("Failed to send message to DLQ, will retry", "error", err)
		if !sleepCtx(ctx, wait) {
			return false
		}
		wait = min(wait*2, dlqRetryCap)
	}
}

func (c *KafkaConsumer) Close() error {
	if c.reader != nil {
		return c.reader.Close()
	}
	return nil
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
