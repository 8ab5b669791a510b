package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/cartera-loan-servicing/internal/engine/accrual"
	"github.com/cartera-loan-servicing/internal/platform/messaging/producers"
)

// DayCloseEvent announces that a business day has been closed and mora may
// be accrued for it
type DayCloseEvent struct {
	BusinessDate  string `json:"business_date"` // YYYY-MM-DD
	CorrelationID string `json:"correlation_id,omitempty"`
}

// AccrualRunner runs the mora accrual batch for one business date
type AccrualRunner interface {
	Run(ctx context.Context, businessDate time.Time) (*accrual.BatchReport, error)
}

// DayCloseEventHandler handles incoming day-close messages from Kafka
type DayCloseEventHandler struct {
	batch    AccrualRunner
	producer producers.DeadLetterPublisher
	logger   *slog.Logger
}

// NewDayCloseEventHandler creates a new handler
func NewDayCloseEventHandler(
	logger *slog.Logger,
	batch AccrualRunner,
	producer producers.DeadLetterPublisher,
) *DayCloseEventHandler {
	return &DayCloseEventHandler{
		batch:    batch,
		producer: producer,
		logger:   logger,
	}
}

// HandleMessage processes Kafka messages. Unparseable messages go to the DLQ;
// accrual failures are returned so the offset is not committed and the event
// is redelivered, which is safe because the accrual is idempotent per date.
func (h *DayCloseEventHandler) HandleMessage(ctx context.Context, key []byte, value []byte) error {
	var event DayCloseEvent
	if err := json.Unmarshal(value, &event); err != nil {
		return h.sendToDLQ(ctx, key, value, "Failed to unmarshal day-close event from Kafka message", err)
	}

	businessDate, err := time.Parse("2006-01-02", event.BusinessDate)
	if err != nil {
		return h.sendToDLQ(ctx, key, value, "Day-close event carries an invalid business date", err)
	}

	// Add correlation ID to logger
	logger := h.logger
	if event.CorrelationID != "" {
		logger = h.logger.With("correlation_id", event.CorrelationID)
	}

	logger.Info("Received day-close event, starting accrual batch",
		"business_date", event.BusinessDate,
	)

	report, err := h.batch.Run(ctx, businessDate)
	if err != nil {
		logger.Error("Accrual batch failed for day-close event",
			"business_date", event.BusinessDate,
			"error", err,
		)
		return fmt.Errorf("accrual batch for %s failed: %w", event.BusinessDate, err)
	}

	logger.Info("Accrual batch completed for day-close event",
		"business_date", event.BusinessDate,
		"loans_processed", report.LoansProcessed,
		"loans_affected", report.LoansAffected,
		"components_created", report.ComponentsCreated,
		"loans_failed", report.LoansFailed,
	)
	return nil // Success, commit offset
}

// sendToDLQ routes an unprocessable message to the DLQ so it does not block
// the partition. Falls back to returning the original error when the DLQ is
// unavailable, which leaves the offset uncommitted for redelivery.
func (h *DayCloseEventHandler) sendToDLQ(ctx context.Context, key []byte, value []byte, reason string, cause error) error {
	h.logger.Error(reason,
		"error", cause,
		"message_key", string(key),
	)

	if h.producer != nil {
		dlqReason := fmt.Sprintf("%s: %s", reason, cause.Error())
		if dlqErr := h.producer.PublishToDLQ(ctx, string(key), value, dlqReason); dlqErr != nil {
			h.logger.Error("Failed to publish message to DLQ",
				"dlq_error", dlqErr,
				"original_error", cause,
				"message_key", string(key),
			)
		} else {
			h.logger.Info("Successfully published unprocessable message to DLQ", "message_key", string(key), "reason", dlqReason)
			// Message handled, commit offset
			return nil
		}
	}
	// Allow Kafka retries
	return fmt.Errorf("%s: %w", reason, cause)
}
