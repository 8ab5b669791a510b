package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cartera-loan-servicing/internal/domain/payment"
	"github.com/cartera-loan-servicing/internal/platform/persistence"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// PaymentRepository implements the payment.Repository interface for PostgreSQL.
// Events and details are insert-only.
type PaymentRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewPaymentRepository creates a new PostgreSQL payment event repository
func NewPaymentRepository(logger *slog.Logger, db *persistence.PostgresDB) payment.Repository {
	return &PaymentRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction for atomic operations
func (r *PaymentRepository) WithTx(tx pgx.Tx) payment.Repository {
	return &PaymentRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Create stores a payment event and its details
func (r *PaymentRepository) Create(ctx context.Context, event *payment.Event) error {
	eventQuery := `
		INSERT INTO payment_events (id, loan_id, type, paid_on, capital_applied, interest_applied,
			mora_applied, other_applied, note, created_by, correlation_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := r.querier.Exec(ctx, eventQuery,
		event.ID,
		event.LoanID,
		event.Type,
		event.PaidOn,
		event.CapitalApplied,
		event.InterestApplied,
		event.MoraApplied,
		event.OtherApplied,
		event.Note,
		event.CreatedBy,
		event.CorrelationID,
		event.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create payment event", "loan_id", event.LoanID.String(), "error", err)
		return fmt.Errorf("failed to create payment event: %w", err)
	}

	detailQuery := `
		INSERT INTO payment_details (id, event_id, component_id, kind, installment, balance_before, applied, new_status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	for _, d := range event.Details {
		_, err := r.querier.Exec(ctx, detailQuery,
			d.ID,
			d.EventID,
			d.ComponentID,
			d.Kind,
			d.Installment,
			d.BalanceBefore,
			d.Applied,
			d.NewStatus,
		)
		if err != nil {
			r.logger.Error("Failed to create payment detail", "event_id", event.ID.String(), "error", err)
			return fmt.Errorf("failed to create payment detail: %w", err)
		}
	}

	return nil
}

// GetByID retrieves a payment event with its details
func (r *PaymentRepository) GetByID(ctx context.Context, id uuid.UUID) (*payment.Event, error) {
	query := `
		SELECT id, loan_id, type, paid_on, capital_applied, interest_applied,
			mora_applied, other_applied, note, created_by, correlation_id, created_at
		FROM payment_events
		WHERE id = $1
	`

	event, err := r.scanEvent(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, payment.ErrEventNotFound{EventID: id}
		}
		r.logger.Error("Failed to get payment event", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get payment event: %w", err)
	}

	details, err := r.getDetails(ctx, id)
	if err != nil {
		return nil, err
	}
	event.Details = details

	return event, nil
}

// GetByLoanID retrieves a page of a loan's payment events, newest first.
// Details are not loaded; use GetByID for the full record.
func (r *PaymentRepository) GetByLoanID(ctx context.Context, loanID uuid.UUID, limit, offset int) ([]*payment.Event, error) {
	query := `
		SELECT id, loan_id, type, paid_on, capital_applied, interest_applied,
			mora_applied, other_applied, note, created_by, correlation_id, created_at
		FROM payment_events
		WHERE loan_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.querier.Query(ctx, query, loanID, limit, offset)
	if err != nil {
		r.logger.Error("Failed to get payment events", "loan_id", loanID.String(), "error", err)
		return nil, fmt.Errorf("failed to get payment events: %w", err)
	}
	defer rows.Close()

	var events []*payment.Event
	for rows.Next() {
		event, err := r.scanEvent(rows)
		if err != nil {
			r.logger.Error("Failed to scan payment event", "error", err)
			return nil, fmt.Errorf("failed to scan payment event: %w", err)
		}
		events = append(events, event)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error("Error iterating over payment events", "error", err)
		return nil, fmt.Errorf("error iterating over payment events: %w", err)
	}

	return events, nil
}

// CountByLoanID returns the total number of payment events for pagination
func (r *PaymentRepository) CountByLoanID(ctx context.Context, loanID uuid.UUID) (int64, error) {
	query := `
		SELECT COUNT(*)
		FROM payment_events
		WHERE loan_id = $1
	`

	var count int64
	if err := r.querier.QueryRow(ctx, query, loanID).Scan(&count); err != nil {
		r.logger.Error("Failed to count payment events", "loan_id", loanID.String(), "error", err)
		return 0, fmt.Errorf("failed to count payment events: %w", err)
	}

	return count, nil
}

func (r *PaymentRepository) getDetails(ctx context.Context, eventID uuid.UUID) ([]payment.Detail, error) {
	query := `
		SELECT id, event_id, component_id, kind, installment, balance_before, applied, new_status
		FROM payment_details
		WHERE event_id = $1
		ORDER BY installment ASC
	`

	rows, err := r.querier.Query(ctx, query, eventID)
	if err != nil {
		r.logger.Error("Failed to get payment details", "event_id", eventID.String(), "error", err)
		return nil, fmt.Errorf("failed to get payment details: %w", err)
	}
	defer rows.Close()

	var details []payment.Detail
	for rows.Next() {
		var d payment.Detail
		err := rows.Scan(
			&d.ID,
			&d.EventID,
			&d.ComponentID,
			&d.Kind,
			&d.Installment,
			&d.BalanceBefore,
			&d.Applied,
			&d.NewStatus,
		)
		if err != nil {
			r.logger.Error("Failed to scan payment detail", "error", err)
			return nil, fmt.Errorf("failed to scan payment detail: %w", err)
		}
		details = append(details, d)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error("Error iterating over payment details", "error", err)
		return nil, fmt.Errorf("error iterating over payment details: %w", err)
	}

	return details, nil
}

func (r *PaymentRepository) scanEvent(row pgx.Row) (*payment.Event, error) {
	var event payment.Event
	err := row.Scan(
		&event.ID,
		&event.LoanID,
		&event.Type,
		&event.PaidOn,
		&event.CapitalApplied,
		&event.InterestApplied,
		&event.MoraApplied,
		&event.OtherApplied,
		&event.Note,
		&event.CreatedBy,
		&event.CorrelationID,
		&event.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &event, nil
}
