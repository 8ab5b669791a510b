package obligation

import (
	"errors"
	"time"

	"github.com/cartera-loan-servicing/internal/domain/shared"
	"github.com/google/uuid"
)

// Common errors
var (
	ErrInvalidAmount   = errors.New("component amount must be positive")
	ErrNegativeApply   = errors.New("applied amount must be positive")
	ErrOverApplication = errors.New("applied amount exceeds remaining balance")
)

// Component is the atomic unit of debt: one owed slice of capital, interest
// or mora tied to an installment number. Components are never deleted; the
// balance only decreases and the status is derived from it.
type Component struct {
	ID          uuid.UUID              `json:"id"`
	LoanID      uuid.UUID              `json:"loan_id"`
	Kind        shared.Kind            `json:"kind"`
	Amount      int64                  `json:"amount"`  // Original amount in minor units
	Balance     int64                  `json:"balance"` // Remaining, monotonically non-increasing
	DueDate     *time.Time             `json:"due_date,omitempty"`
	Installment int                    `json:"installment"`
	Status      shared.ComponentStatus `json:"status"`
	AccruedOn   *time.Time             `json:"accrued_on,omitempty"` // Set only for MORA components
	CreatedAt   time.Time              `json:"created_at"`
}

// NewComponent creates an open component for the given debt slice
func NewComponent(loanID uuid.UUID, kind shared.Kind, amount int64, dueDate *time.Time, installment int) (*Component, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	return &Component{
		ID:          uuid.New(),
		LoanID:      loanID,
		Kind:        kind,
		Amount:      amount,
		Balance:     amount,
		DueDate:     dueDate,
		Installment: installment,
		Status:      shared.ComponentStatusPendiente,
		CreatedAt:   time.Now(),
	}, nil
}

// NewMoraComponent creates one day's late-fee accrual for an installment.
// The (loan, installment, accruedOn) triple is the idempotency key.
func NewMoraComponent(loanID uuid.UUID, amount int64, installment int, accruedOn time.Time) (*Component, error) {
	due := accruedOn
	c, err := NewComponent(loanID, shared.KindMora, amount, &due, installment)
	if err != nil {
		return nil, err
	}
	c.AccruedOn = &accruedOn
	return c, nil
}

// Apply reduces the balance by the given amount and rederives the status.
// The caller must never apply more than the current balance.
func (c *Component) Apply(amount int64) error {
	if amount <= 0 {
		return ErrNegativeApply
	}
	if amount > c.Balance {
		return ErrOverApplication
	}

	c.Balance -= amount
	c.Status = shared.StatusFor(c.Balance, c.Amount)
	return nil
}

// Open reports whether the component still carries debt
func (c *Component) Open() bool {
	return c.Balance > 0
}

// OverdueAt reports whether the component is past due and unpaid as of the
// given business date
func (c *Component) OverdueAt(businessDate time.Time) bool {
	return c.DueDate != nil && c.DueDate.Before(businessDate) && c.Balance > 0
}
