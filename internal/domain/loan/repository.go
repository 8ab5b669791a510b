package loan

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Repository defines loan persistence operations
type Repository interface {
	Create(ctx context.Context, loan *Loan) error
	GetByID(ctx context.Context, id uuid.UUID) (*Loan, error)
	ListActiveIDs(ctx context.Context) ([]uuid.UUID, error)
	Update(ctx context.Context, loan *Loan) error

	// LockForUpdate acquires a pessimistic lock on the loan row so
	// allocations and accruals against one loan run strictly sequentially
	LockForUpdate(ctx context.Context, id uuid.UUID) (*Loan, error)
	WithTx(tx pgx.Tx) Repository
}

// ErrLoanNotFound indicates missing loan
type ErrLoanNotFound struct {
	LoanID uuid.UUID
}

func (e ErrLoanNotFound) Error() string {
	return "loan not found: " + e.LoanID.String()
}

// ErrConcurrentModification indicates optimistic lock failure
type ErrConcurrentModification struct {
	LoanID uuid.UUID
}

func (e ErrConcurrentModification) Error() string {
	return "concurrent modification detected for loan: " + e.LoanID.String()
}
