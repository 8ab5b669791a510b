// Package accrual creates the daily late-fee obligation components. Each
// calendar day an overdue installment carries produces its own immutable
// MORA component, so partial mora payments stay attributable to specific
// days and the accrual history is a full audit trail.
package accrual

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/cartera-loan-servicing/internal/clock"
	"github.com/cartera-loan-servicing/internal/domain/catalog"
	"github.com/cartera-loan-servicing/internal/domain/loan"
	"github.com/cartera-loan-servicing/internal/domain/obligation"
	"github.com/cartera-loan-servicing/internal/engine/reconcile"
	"github.com/cartera-loan-servicing/internal/platform/persistence"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

var (
	hundred = decimal.NewFromInt(100)
	thirty  = decimal.NewFromInt(30)
)

// Engine accrues one loan's mora for one business date inside a single
// transaction. Re-running for the same date creates nothing: the
// (loan, installment, accrual date) triple is the idempotency key, enforced
// both by a pre-check and by a partial unique index on the ledger.
type Engine struct {
	tx         persistence.TxManager
	loans      loan.Repository
	components obligation.Repository
	catalog    catalog.Service
	reconciler *reconcile.Reconciler
	logger     *slog.Logger
}

func NewEngine(
	tx persistence.TxManager,
	loans loan.Repository,
	components obligation.Repository,
	catalogSvc catalog.Service,
	reconciler *reconcile.Reconciler,
	logger *slog.Logger,
) *Engine {
	return &Engine{
		tx:         tx,
		loans:      loans,
		components: components,
		catalog:    catalogSvc,
		reconciler: reconciler,
		logger:     logger,
	}
}

// AccrueLoan creates the MORA components a loan owes for the given business
// date and reconciles its cached mora balance. Returns the number of
// components created (zero when nothing is overdue or the day was already
// accrued).
func (e *Engine) AccrueLoan(ctx context.Context, loanID uuid.UUID, businessDate time.Time) (int, error) {
	businessDate = clock.Midnight(businessDate)

	monthlyRate, err := e.catalog.MoraMonthlyRate(ctx)
	if err != nil {
		return 0, err
	}
	dailyRate := monthlyRate.Div(hundred).Div(thirty)

	created := 0
	err = e.tx.ExecuteTx(ctx, func(tx pgx.Tx) error {
		loans := e.loans.WithTx(tx)
		components := e.components.WithTx(tx)

		lockedLoan, err := loans.LockForUpdate(ctx, loanID)
		if err != nil {
			return err
		}
		if lockedLoan.Terminal() {
			return nil
		}

		overdue, err := components.GetOverdue(ctx, loanID, businessDate)
		if err != nil {
			return err
		}
		if len(overdue) == 0 {
			return nil
		}

		for _, installment := range overdueInstallments(overdue) {
			exists, err := components.MoraExists(ctx, loanID, installment.number, businessDate)
			if err != nil {
				return err
			}
			if exists {
				continue
			}

			amount := dailyMora(installment.balance, dailyRate)
			if amount <= 0 {
				continue
			}

			moraComponent, err := obligation.NewMoraComponent(loanID, amount, installment.number, businessDate)
			if err != nil {
				return fmt.Errorf("failed to build mora component for loan %s installment %d: %w", loanID, installment.number, err)
			}
			if err := components.Create(ctx, moraComponent); err != nil {
				return err
			}
			created++
		}

		if created == 0 {
			return nil
		}
		return e.reconciler.Refresh(ctx, loans, components, lockedLoan)
	})
	if err != nil {
		return 0, err
	}

	if created > 0 {
		e.logger.Info("Mora accrued",
			"loan_id", loanID.String(),
			"business_date", businessDate.Format("2006-01-02"),
			"components_created", created,
		)
	}
	return created, nil
}

type overdueInstallment struct {
	number  int
	balance int64
}

// overdueInstallments sums the overdue capital/interest balance per
// installment, ordered by installment number for deterministic accrual
func overdueInstallments(components []*obligation.Component) []overdueInstallment {
	balances := make(map[int]int64)
	for _, c := range components {
		balances[c.Installment] += c.Balance
	}

	installments := make([]overdueInstallment, 0, len(balances))
	for number, balance := range balances {
		installments = append(installments, overdueInstallment{number: number, balance: balance})
	}
	sort.Slice(installments, func(i, j int) bool {
		return installments[i].number < installments[j].number
	})
	return installments
}

// dailyMora computes round2(balance * dailyRate) in minor units
func dailyMora(balanceCents int64, dailyRate decimal.Decimal) int64 {
	balance := decimal.NewFromInt(balanceCents).Div(hundred)
	return balance.Mul(dailyRate).Round(2).Mul(hundred).IntPart()
}
