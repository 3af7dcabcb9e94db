// Package exportpublisher drains the billing outbox into Kafka. Export
// records are committed together with their outbox message, so everything
// the poller finds here describes an export that definitely exists; the only
// job left is at-least-once delivery to the export topic.
package exportpublisher

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mspdesk/billing-engine/internal/domain/outbox"
	"github.com/mspdesk/billing-engine/internal/platform/messaging/producers"
)

// EventPublisher publishes one outbox message to the export topic
type EventPublisher interface {
	PublishExportEvent(ctx context.Context, message *outbox.Message) error
}

// EventPublisherImpl implements EventPublisher
type EventPublisherImpl struct {
	outboxRepo outbox.Repository
	producer   producers.MessagePublisher
	dlq        producers.DeadLetterPublisher
	logger     *slog.Logger
}

// NewEventPublisher creates a new export event publisher
func NewEventPublisher(
	logger *slog.Logger,
	outboxRepo outbox.Repository,
	producer producers.MessagePublisher,
	dlq producers.DeadLetterPublisher,
) EventPublisher {
	return &EventPublisherImpl{
		outboxRepo: outboxRepo,
		producer:   producer,
		dlq:        dlq,
		logger:     logger,
	}
}

// PublishExportEvent publishes the export record carried by the message and
// marks the message PROCESSED. A payload that no longer unmarshals is poison:
// it goes to the DLQ and the message is parked as FAILED_TO_PUBLISH so the
// poller stops retrying it.
func (p *EventPublisherImpl) PublishExportEvent(ctx context.Context, message *outbox.Message) error {
	record, err := message.GetExportRecord()
	if err != nil {
		p.logger.Error("Outbox payload is not a valid export record, routing to DLQ",
			"outbox_id", message.ID, "export_id", message.ExportID.String(), "error", err,
		)
		if dlqErr := p.dlq.PublishToDLQ(ctx, message.ExportID.String(), message.Payload, "unmarshal failed: "+err.Error()); dlqErr != nil {
			p.logger.Error("Failed to publish poison payload to DLQ", "outbox_id", message.ID, "error", dlqErr)
		}
		if updateErr := p.outboxRepo.UpdateStatus(ctx, message.ID, outbox.StatusFailedToPublish); updateErr != nil {
			p.logger.Error("Also failed to park poison outbox message", "outbox_id", message.ID, "update_error", updateErr)
		}
		return fmt.Errorf("unmarshal payload for outbox %d failed: %w", message.ID, err)
	}

	// Key by customer so downstream consumers see one customer's exports in
	// order.
	if err := p.producer.Publish(ctx, record.CustomerID.String(), record); err != nil {
		return fmt.Errorf("failed to publish export event for outbox %d: %w", message.ID, err)
	}

	if err := p.outboxRepo.UpdateStatus(ctx, message.ID, outbox.StatusProcessed); err != nil {
		p.logger.Error("Export event published but failed to mark outbox message PROCESSED",
			"outbox_id", message.ID, "export_id", message.ExportID.String(), "error", err,
		)
		return fmt.Errorf("publish for export %s OK, but failed to mark outbox %d as PROCESSED: %w",
			message.ExportID.String(), message.ID, err)
	}

	p.logger.Info("Published export event",
		"outbox_id", message.ID,
		"export_id", message.ExportID.String(),
		"customer_id", message.CustomerID.String(),
	)
	return nil
}
