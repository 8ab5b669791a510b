package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cartera-loan-servicing/internal/domain/loan"
	"github.com/cartera-loan-servicing/internal/domain/obligation"
	"github.com/cartera-loan-servicing/internal/engine/reconcile"
	"github.com/cartera-loan-servicing/internal/engine/schedule"
	"github.com/cartera-loan-servicing/internal/engine/statement"
	"github.com/cartera-loan-servicing/internal/platform/persistence"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// LoanServiceImpl implements the LoanService interface
type LoanServiceImpl struct {
	tx         persistence.TxManager
	loans      loan.Repository
	components obligation.Repository
	reconciler *reconcile.Reconciler
	statements *statement.Builder
	logger     *slog.Logger
}

// NewLoanService creates a new loan service
func NewLoanService(
	tx persistence.TxManager,
	loans loan.Repository,
	components obligation.Repository,
	reconciler *reconcile.Reconciler,
	statements *statement.Builder,
	logger *slog.Logger,
) LoanService {
	return &LoanServiceImpl{
		tx:         tx,
		loans:      loans,
		components: components,
		reconciler: reconciler,
		statements: statements,
		logger:     logger,
	}
}

// CreateLoan disburses a new loan. The schedule is generated up front, so any
// term validation error surfaces before the transaction opens; the loan row,
// its obligation components and the reconciled balances commit together.
func (s *LoanServiceImpl) CreateLoan(ctx context.Context, params NewLoanParams) (*loan.Loan, error) {
	l, err := loan.NewLoan(params.Principal, params.AnnualRatePct, params.TermCount, params.FrequencyDays, params.Bullet, params.DisbursedOn)
	if err != nil {
		return nil, err
	}

	components, err := schedule.Generate(l)
	if err != nil {
		return nil, fmt.Errorf("failed to generate schedule for loan %s: %w", l.ID, err)
	}

	err = s.tx.ExecuteTx(ctx, func(tx pgx.Tx) error {
		loans := s.loans.WithTx(tx)
		componentRepo := s.components.WithTx(tx)

		if err := loans.Create(ctx, l); err != nil {
			return err
		}
		if err := componentRepo.CreateBatch(ctx, components); err != nil {
			return err
		}
		return s.reconciler.Refresh(ctx, loans, componentRepo, l)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Loan disbursed",
		"loan_id", l.ID.String(),
		"principal", l.Principal,
		"term_count", l.TermCount,
		"frequency_days", l.FrequencyDays,
		"bullet", l.Bullet,
		"components", len(components),
	)
	return l, nil
}

// GetLoanByID retrieves a loan by its ID, returns ErrLoanNotFound if not found
func (s *LoanServiceImpl) GetLoanByID(ctx context.Context, id uuid.UUID) (*loan.Loan, error) {
	return s.loans.GetByID(ctx, id)
}

// GetStatement builds the account statement for a loan
func (s *LoanServiceImpl) GetStatement(ctx context.Context, loanID uuid.UUID) (*statement.Statement, error) {
	return s.statements.Build(ctx, loanID)
}
