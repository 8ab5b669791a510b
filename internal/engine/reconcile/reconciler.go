// Package reconcile keeps the loan's denormalized balances equal to the
// obligation ledger. It is the single write path for the cached columns;
// every mutation of the ledger must invoke it before committing.
package reconcile

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cartera-loan-servicing/internal/domain/loan"
	"github.com/cartera-loan-servicing/internal/domain/obligation"
	"github.com/cartera-loan-servicing/internal/domain/shared"
)

// Reconciler recomputes a loan's cached balances from the ledger of record
type Reconciler struct {
	logger *slog.Logger
}

func NewReconciler(logger *slog.Logger) *Reconciler {
	return &Reconciler{logger: logger}
}

// Refresh re-derives the cached capital/interest/mora balances from the open
// obligation components and persists the loan. The repositories must be
// bound to the same transaction as the mutation being reconciled.
func (r *Reconciler) Refresh(ctx context.Context, loans loan.Repository, components obligation.Repository, l *loan.Loan) error {
	sums, err := components.SumBalancesByKind(ctx, l.ID)
	if err != nil {
		return fmt.Errorf("failed to aggregate obligation balances for loan %s: %w", l.ID, err)
	}

	l.SetCachedBalances(sums[shared.KindCapital], sums[shared.KindInteres], sums[shared.KindMora])

	if err := loans.Update(ctx, l); err != nil {
		return err
	}

	r.logger.Debug("Loan balances reconciled",
		"loan_id", l.ID.String(),
		"capital", l.CapitalBalance,
		"interest", l.InterestBalance,
		"mora", l.MoraBalance,
	)
	return nil
}
