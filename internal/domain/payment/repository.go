package payment

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Repository defines payment event persistence operations. Events and their
// details are insert-only; the ledger of record is never rewritten.
type Repository interface {
	Create(ctx context.Context, event *Event) error
	GetByID(ctx context.Context, id uuid.UUID) (*Event, error)
	GetByLoanID(ctx context.Context, loanID uuid.UUID, limit, offset int) ([]*Event, error)
	CountByLoanID(ctx context.Context, loanID uuid.UUID) (int64, error)
	WithTx(tx pgx.Tx) Repository
}

// HistoryRepository defines the read-model archive of payment events,
// populated asynchronously from the outbox
type HistoryRepository interface {
	Archive(ctx context.Context, event *Event) error
	GetByEventID(ctx context.Context, eventID uuid.UUID) (*Event, error)
	GetByLoanID(ctx context.Context, loanID uuid.UUID, limit, offset int) ([]*Event, error)
	CountByLoanID(ctx context.Context, loanID uuid.UUID) (int64, error)
}

// ErrEventNotFound indicates missing payment event
type ErrEventNotFound struct {
	EventID uuid.UUID
}

func (e ErrEventNotFound) Error() string {
	return "payment event not found: " + e.EventID.String()
}

// ErrDuplicateEvent indicates an archive insert for an already archived event
type ErrDuplicateEvent struct {
	EventID uuid.UUID
}

func (e ErrDuplicateEvent) Error() string {
	return "payment event already archived: " + e.EventID.String()
}
