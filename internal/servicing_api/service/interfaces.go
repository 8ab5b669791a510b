package service

import (
	"context"
	"time"

	"github.com/cartera-loan-servicing/internal/domain/loan"
	"github.com/cartera-loan-servicing/internal/domain/payment"
	"github.com/cartera-loan-servicing/internal/domain/shared"
	"github.com/cartera-loan-servicing/internal/engine/statement"
	"github.com/google/uuid"
)

// NewLoanParams carries the terms of a loan to be disbursed
type NewLoanParams struct {
	Principal     int64 // minor units
	AnnualRatePct float64
	TermCount     int
	FrequencyDays int
	Bullet        bool
	DisbursedOn   time.Time
}

// LoanService defines the interface for loan operations
type LoanService interface {
	// CreateLoan disburses a new loan: the loan row, its full amortization
	// schedule and the reconciled cached balances commit atomically
	CreateLoan(ctx context.Context, params NewLoanParams) (*loan.Loan, error)

	// GetLoanByID retrieves a loan by its ID
	// Returns ErrLoanNotFound if the loan doesn't exist
	GetLoanByID(ctx context.Context, id uuid.UUID) (*loan.Loan, error)

	// GetStatement builds the account statement for a loan as of the
	// current business date
	GetStatement(ctx context.Context, loanID uuid.UUID) (*statement.Statement, error)
}

// PaymentService defines the interface for payment operations
type PaymentService interface {
	// AllocatePayment applies a payment against the loan's open obligations
	// in a single transaction and returns the allocation breakdown
	AllocatePayment(ctx context.Context, req *shared.AllocationRequest) (*shared.AllocationResult, error)

	// GetPaymentByID retrieves a payment event with its details
	// Returns nil if the event is not found
	GetPaymentByID(ctx context.Context, eventID uuid.UUID) (*payment.Event, error)

	// GetPaymentsByLoanID retrieves the paginated payment history of a loan
	// from the read-model archive. Returns events, total count, and any error
	GetPaymentsByLoanID(ctx context.Context, loanID uuid.UUID, page, perPage int) ([]*payment.Event, int64, error)
}
