// Package allocation applies incoming payments against a loan's open
// obligations. Every allocation runs inside one database transaction with a
// pessimistic lock on the loan row, so allocations against the same loan
// execute strictly sequentially while different loans proceed in parallel.
package allocation

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cartera-loan-servicing/internal/clock"
	"github.com/cartera-loan-servicing/internal/domain/catalog"
	"github.com/cartera-loan-servicing/internal/domain/fund"
	"github.com/cartera-loan-servicing/internal/domain/loan"
	"github.com/cartera-loan-servicing/internal/domain/obligation"
	"github.com/cartera-loan-servicing/internal/domain/outbox"
	"github.com/cartera-loan-servicing/internal/domain/payment"
	"github.com/cartera-loan-servicing/internal/domain/shared"
	"github.com/cartera-loan-servicing/internal/engine/reconcile"
	"github.com/cartera-loan-servicing/internal/platform/persistence"
	"github.com/jackc/pgx/v5"
)

// Allocator orchestrates one payment allocation end to end: waterfall,
// component balance writes, the immutable payment event and its details,
// loan cache reconciliation, the optional fund credit, and the outbox row.
// All of it commits or none of it does.
type Allocator struct {
	tx         persistence.TxManager
	loans      loan.Repository
	components obligation.Repository
	payments   payment.Repository
	outbox     outbox.Repository
	funds      fund.Repository
	catalog    catalog.Service
	calendar   clock.Provider
	reconciler *reconcile.Reconciler
	logger     *slog.Logger
}

func NewAllocator(
	tx persistence.TxManager,
	loans loan.Repository,
	components obligation.Repository,
	payments payment.Repository,
	outboxRepo outbox.Repository,
	funds fund.Repository,
	catalogSvc catalog.Service,
	calendar clock.Provider,
	reconciler *reconcile.Reconciler,
	logger *slog.Logger,
) *Allocator {
	return &Allocator{
		tx:         tx,
		loans:      loans,
		components: components,
		payments:   payments,
		outbox:     outboxRepo,
		funds:      funds,
		catalog:    catalogSvc,
		calendar:   calendar,
		reconciler: reconciler,
		logger:     logger,
	}
}

// Allocate applies the requested amount against the loan's open obligations.
// Any error aborts the transaction; no partial ledger mutation is ever
// persisted.
func (a *Allocator) Allocate(ctx context.Context, req *shared.AllocationRequest) (*shared.AllocationResult, error) {
	logger := a.logger
	if req.CorrelationID != "" {
		logger = a.logger.With("correlation_id", req.CorrelationID)
	}

	if err := req.Validate(); err != nil {
		return nil, err
	}

	if req.PaidOn.IsZero() {
		businessDate, err := a.calendar.Today(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve business date: %w", err)
		}
		req.PaidOn = businessDate
	}

	var result *shared.AllocationResult
	err := a.tx.ExecuteTx(ctx, func(tx pgx.Tx) error {
		loans := a.loans.WithTx(tx)
		components := a.components.WithTx(tx)
		payments := a.payments.WithTx(tx)
		outboxRepo := a.outbox.WithTx(tx)
		funds := a.funds.WithTx(tx)

		lockedLoan, err := loans.LockForUpdate(ctx, req.LoanID)
		if err != nil {
			return err
		}

		open, err := components.GetOpenByLoanID(ctx, req.LoanID)
		if err != nil {
			return err
		}

		applications, err := runWaterfall(open, req)
		if err != nil {
			return err
		}
		if len(applications) == 0 {
			return shared.ErrNothingToAllocate
		}

		event := payment.NewEvent(
			lockedLoan.ID,
			shared.MovementTypeFor(req.Mode),
			req.PaidOn,
			req.Note,
			req.CreatedBy,
			req.CorrelationID,
		)
		for _, app := range applications {
			c := app.Component
			if err := components.UpdateBalance(ctx, c); err != nil {
				return err
			}
			event.AddDetail(c.ID, c.Kind, c.Installment, app.BalanceBefore, app.Applied, c.Status)
		}

		if err := payments.Create(ctx, event); err != nil {
			return err
		}

		if err := a.reconciler.Refresh(ctx, loans, components, lockedLoan); err != nil {
			return err
		}

		if err := a.creditFund(ctx, funds, req, event, logger); err != nil {
			return err
		}

		message, err := outbox.NewMessage(event)
		if err != nil {
			return fmt.Errorf("failed to build outbox message for event %s: %w", event.ID, err)
		}
		if err := outboxRepo.Create(ctx, message); err != nil {
			return err
		}

		result = a.buildResult(ctx, req.Mode, event, applications)
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Payment allocated",
		"loan_id", req.LoanID.String(),
		"event_id", result.EventID.String(),
		"mode", string(req.Mode),
		"requested", req.Amount,
		"applied", result.TotalApplied(),
	)
	return result, nil
}

// creditFund records the collection against the channel's cash fund.
// A channel with no fund mapping is not an error.
func (a *Allocator) creditFund(ctx context.Context, funds fund.Repository, req *shared.AllocationRequest, event *payment.Event, logger *slog.Logger) error {
	if req.ChannelCode == "" {
		return nil
	}

	f, err := funds.ResolveByChannel(ctx, req.ChannelCode)
	if err != nil {
		return err
	}
	if f == nil {
		logger.Debug("Payment channel has no fund associated", "channel", req.ChannelCode)
		return nil
	}

	memo := fmt.Sprintf("%s %s loan %s", event.Type, shared.FormatCents(event.Total()), event.LoanID)
	return funds.Credit(ctx, f.ID, event.Total(), req.PaidOn, memo, req.CreatedBy)
}

func (a *Allocator) buildResult(ctx context.Context, mode shared.AllocationMode, event *payment.Event, applications []Application) *shared.AllocationResult {
	result := &shared.AllocationResult{
		EventID:         event.ID,
		PaidOn:          event.PaidOn,
		Mode:            mode,
		CapitalApplied:  event.CapitalApplied,
		InterestApplied: event.InterestApplied,
		MoraApplied:     event.MoraApplied,
		OtherApplied:    event.OtherApplied,
	}

	for _, app := range applications {
		c := app.Component
		result.Components = append(result.Components, shared.AppliedComponent{
			ComponentID:   c.ID,
			Kind:          c.Kind,
			KindLabel:     a.catalog.KindLabel(ctx, string(c.Kind)),
			Installment:   c.Installment,
			BalanceBefore: app.BalanceBefore,
			Applied:       app.Applied,
			NewStatus:     c.Status,
		})
	}

	result.Message = fmt.Sprintf("%s applied %s to loan %s (mora %s, interest %s, capital %s)",
		event.Type,
		shared.FormatCents(event.Total()),
		event.LoanID,
		shared.FormatCents(event.MoraApplied),
		shared.FormatCents(event.InterestApplied),
		shared.FormatCents(event.CapitalApplied),
	)
	return result
}
