package producers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/mspdesk/billing-engine/internal/config"
	"github.com/segmentio/kafka-go"
)

// ExportEventProducer publishes billing export events to the export topic.
// Downstream consumers (reporting, notifications) subscribe to it; the engine
// itself never reads the topic back.
type ExportEventProducer struct {
	logger *slog.Logger
	writer KafkaWriter // Interface for testability
	topic  string
}

// NewExportEventProducer creates the export event producer and ensures the topic exists
func NewExportEventProducer(ctx context.Context, logger *slog.Logger, cfg *config.KafkaConfig) (*ExportEventProducer, error) {
	if cfg.ExportTopic == "" {
		return nil, fmt.Errorf("kafka export topic is not configured")
	}

	conn, err := kafka.Dial("tcp", cfg.Brokers)
	if err != nil {
		return nil, fmt.Errorf("failed to dial kafka for export event producer: %w", err)
	}
	defer conn.Close()

	err = createKafkaTopicIfNotExists(conn, cfg.ExportTopic, cfg.NumPartitions, cfg.ReplicationFactor, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to ensure export topic %s exists: %w", cfg.ExportTopic, err)
	}

	writer := &kafka.Writer{
		Addr:     kafka.TCP(cfg.Brokers),
		Topic:    cfg.ExportTopic,
		Balancer: &kafka.LeastBytes{},
		// Synchronous with full acks: the outbox poller needs a definitive
		// result per message to decide PROCESSED vs retry.
		RequiredAcks: kafka.RequireAll,
		Async:        false,
		WriteTimeout: cfg.MaxWait,
	}

	return &ExportEventProducer{
		logger: logger,
		writer: writer,
		topic:  cfg.ExportTopic,
	}, nil
}

func (p *ExportEventProducer) Publish(ctx context.Context, key string, value interface{}) error {
	jsonValue, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal export event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: jsonValue,
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("Failed to publish export event",
			"topic", p.topic,
			"key", key,
			"error", err,
		)
		return fmt.Errorf("failed to publish export event to %s: %w", p.topic, err)
	}

	p.logger.Debug("Published export event",
		"topic", p.topic,
		"key", key,
	)
	return nil
}

func (p *ExportEventProducer) Close() error {
	p.logger.Info("Closing export event producer", "topic", p.topic)
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("failed to close export event kafka writer for topic %s: %w", p.topic, err)
	}
	return nil
}
