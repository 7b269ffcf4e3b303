package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"polaris/internal/shared/events"
)

// Kafka publishes and consumes event envelopes through a Kafka cluster.
// Envelopes are JSON-encoded; the partition key becomes the message key so
// events for one policy stay ordered.
type Kafka struct {
	mu      sync.Mutex
	brokers []string
	writers map[string]*kafka.Writer
	logger  *slog.Logger
}

func NewKafka(brokers []string, logger *slog.Logger) (*Kafka, error) {
	cleaned := make([]string, 0, len(brokers))
	for _, broker := range brokers {
		trimmed := strings.TrimSpace(broker)
		if trimmed != "" {
			cleaned = append(cleaned, trimmed)
		}
	}
	if len(cleaned) == 0 {
		return nil, errors.New("kafka brokers required")
	}
	return &Kafka{
		brokers: cleaned,
		writers: make(map[string]*kafka.Writer),
		logger:  logger,
	}, nil
}

func (k *Kafka) Publish(ctx context.Context, topic string, event events.Envelope) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event envelope: %w", err)
	}

	writer := k.writerFor(topic)
	message := kafka.Message{
		Key:   []byte(event.PartitionKey),
		Value: payload,
	}
	if err := writer.WriteMessages(ctx, message); err != nil {
		return fmt.Errorf("publish to %s: %w", topic, err)
	}

	if k.logger != nil {
		k.logger.Info("event published",
			"event", "kafka_publish",
			"module", "internal/platform/messaging",
			"layer", "platform",
			"topic", topic,
			"event_id", event.EventID,
			"event_type", event.EventType,
		)
	}
	return nil
}

func (k *Kafka) Subscribe(
	ctx context.Context,
	topic string,
	consumerGroup string,
	handler func(context.Context, events.Envelope) error,
) error {
	if strings.TrimSpace(topic) == "" {
		return errors.New("kafka topic required")
	}
	if strings.TrimSpace(consumerGroup) == "" {
		return errors.New("kafka consumer group required")
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        k.brokers,
		Topic:          topic,
		GroupID:        consumerGroup,
		MinBytes:       1,
		MaxBytes:       10e6,
		CommitInterval: time.Second,
		MaxWait:        500 * time.Millisecond,
	})

	go func() {
		defer reader.Close()
		for {
			message, err := reader.ReadMessage(ctx)
			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return
				}
				if k.logger != nil {
					k.logger.Error("kafka read failed",
						"event", "kafka_read_failed",
						"module", "internal/platform/messaging",
						"layer", "platform",
						"topic", topic,
						"consumer_group", consumerGroup,
						"error", err.Error(),
					)
				}
				continue
			}

			var event events.Envelope
			if err := json.Unmarshal(message.Value, &event); err != nil {
				if k.logger != nil {
					k.logger.Error("kafka envelope decode failed",
						"event", "kafka_decode_failed",
						"module", "internal/platform/messaging",
						"layer", "platform",
						"topic", topic,
						"error", err.Error(),
					)
				}
				continue
			}
			if err := handler(ctx, event); err != nil && k.logger != nil {
				k.logger.Error("consumer handler failed",
					"event", "kafka_consume_failed",
					"module", "internal/platform/messaging",
					"layer", "platform",
					"topic", topic,
					"consumer_group", consumerGroup,
					"event_id", event.EventID,
					"event_type", event.EventType,
					"error", err.Error(),
				)
			}
		}
	}()
	return nil
}

func (k *Kafka) Close() error {
	k.mu.Lock()
	defer k.mu.Unlock()

	var firstErr error
	for topic, writer := range k.writers {
		if err := writer.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(k.writers, topic)
	}
	return firstErr
}

func (k *Kafka) writerFor(topic string) *kafka.Writer {
	k.mu.Lock()
	defer k.mu.Unlock()

	if writer, ok := k.writers[topic]; ok {
		return writer
	}
	writer := &kafka.Writer{
		Addr:         kafka.TCP(k.brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		BatchTimeout: 20 * time.Millisecond,
	}
	k.writers[topic] = writer
	return writer
}
