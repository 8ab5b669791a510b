package obligation

import (
	"context"
	"time"

	"github.com/cartera-loan-servicing/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Repository defines obligation component persistence operations.
// Components are append-plus-balance-update only; rows are never deleted.
type Repository interface {
	Create(ctx context.Context, component *Component) error
	CreateBatch(ctx context.Context, components []*Component) error
	GetByLoanID(ctx context.Context, loanID uuid.UUID) ([]*Component, error)
	GetOpenByLoanID(ctx context.Context, loanID uuid.UUID) ([]*Component, error)

	// GetOverdue returns open CAPITAL/INTERES components with a due date
	// strictly before the given business date
	GetOverdue(ctx context.Context, loanID uuid.UUID, businessDate time.Time) ([]*Component, error)

	// MoraExists checks the (loan, installment, accrual date) idempotency key
	MoraExists(ctx context.Context, loanID uuid.UUID, installment int, accruedOn time.Time) (bool, error)

	// UpdateBalance persists the reduced balance and derived status
	UpdateBalance(ctx context.Context, component *Component) error

	// SumBalancesByKind aggregates open balances for cache reconciliation
	SumBalancesByKind(ctx context.Context, loanID uuid.UUID) (map[shared.Kind]int64, error)

	WithTx(tx pgx.Tx) Repository
}

// ErrComponentNotFound indicates missing obligation component
type ErrComponentNotFound struct {
	ComponentID uuid.UUID
}

func (e ErrComponentNotFound) Error() string {
	return "obligation component not found: " + e.ComponentID.String()
}
