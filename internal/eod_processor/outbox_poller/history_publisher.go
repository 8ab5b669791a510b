package outbox_poller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cartera-loan-servicing/internal/domain/outbox"
	"github.com/cartera-loan-servicing/internal/domain/payment"
	"github.com/cartera-loan-servicing/internal/domain/shared"
	"github.com/cartera-loan-servicing/internal/platform/messaging/producers"
)

// HistoryPublisher delivers an outbox message to the downstream consumers:
// the MongoDB payment-history archive and the payment-events topic
type HistoryPublisher interface {
	PublishToHistory(ctx context.Context, message *outbox.Message) error
}

// HistoryPublisherImpl implements HistoryPublisher
type HistoryPublisherImpl struct {
	outboxRepo  outbox.Repository
	historyRepo payment.HistoryRepository
	producer    producers.MessagePublisher
	logger      *slog.Logger
}

// NewHistoryPublisher creates a new publisher
func NewHistoryPublisher(
	outboxRepo outbox.Repository,
	historyRepo payment.HistoryRepository,
	producer producers.MessagePublisher,
	logger *slog.Logger,
) HistoryPublisher {
	return &HistoryPublisherImpl{
		outboxRepo:  outboxRepo,
		historyRepo: historyRepo,
		producer:    producer,
		logger:      logger,
	}
}

// PublishToHistory archives the payment event carried by the message and
// publishes it to the payment-events topic. Both sides are idempotent: an
// already-archived event is not an error, and consumers of the topic must
// deduplicate by event ID, so re-delivery after a partial failure is safe.
func (p *HistoryPublisherImpl) PublishToHistory(ctx context.Context, message *outbox.Message) error {
	event, err := message.GetEvent()
	if err != nil {
		p.logger.Error("Failed to unmarshal payment event from outbox payload",
			"outbox_id", message.ID, "event_id", message.EventID.String(), "error", err,
		)
		if updateErr := p.outboxRepo.UpdateStatus(ctx, message.ID, shared.OutboxStatusFailedToPublish); updateErr != nil {
			p.logger.Error("Also failed to update outbox status to FAILED_TO_PUBLISH after unmarshal error", "outbox_id", message.ID, "update_error", updateErr)
		}
		return fmt.Errorf("unmarshal payload for outbox %d failed: %w", message.ID, err)
	}

	// Add correlation ID to logger
	logger := p.logger
	if event.CorrelationID != "" {
		logger = p.logger.With("correlation_id", event.CorrelationID)
	}

	logger.Info("Attempting to publish outbox message to payment history", "outbox_id", message.ID, "event_id", event.ID.String())

	var duplicate payment.ErrDuplicateEvent
	err = p.historyRepo.Archive(ctx, event)
	switch {
	case err == nil:
		logger.Info("Archived payment event in MongoDB", "event_id", event.ID.String())
	case errors.As(err, &duplicate):
		logger.Info("Payment event already archived", "event_id", event.ID.String())
	default:
		logger.Error("Failed to archive payment event in MongoDB", "event_id", event.ID.String(), "error", err)
		return fmt.Errorf("failed to archive payment event %s: %w", event.ID, err)
	}

	if err := p.producer.Publish(ctx, event.LoanID.String(), event); err != nil {
		logger.Error("Failed to publish payment event to Kafka", "event_id", event.ID.String(), "error", err)
		return fmt.Errorf("failed to publish payment event %s: %w", event.ID, err)
	}

	// Mark outbox message as processed
	if err := p.outboxRepo.UpdateStatus(ctx, message.ID, shared.OutboxStatusProcessed); err != nil {
		logger.Error("Failed to update outbox message status to PROCESSED",
			"outbox_id", message.ID, "event_id", event.ID.String(), "error", err,
		)
		return fmt.Errorf("archive and publish for %s OK, but failed to mark outbox %d as PROCESSED: %w", event.ID, message.ID, err)
	}

	logger.Info("Outbox message successfully processed and marked as PROCESSED", "outbox_id", message.ID, "event_id", event.ID.String())
	return nil
}
