package accrual

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/cartera-loan-servicing/internal/domain/loan"
	"github.com/panjf2000/ants/v2"
)

// BatchReport summarizes one accrual run for operational reporting
type BatchReport struct {
	BusinessDate      time.Time `json:"business_date"`
	LoansProcessed    int       `json:"loans_processed"`
	LoansAffected     int       `json:"loans_affected"`
	ComponentsCreated int       `json:"components_created"`
	LoansFailed       int       `json:"loans_failed"`
}

// Batch runs the accrual engine across every active loan on a worker pool.
// Each loan accrues in its own transaction, so one loan's failure never
// aborts the rest: failures are counted, logged and skipped.
type Batch struct {
	engine *Engine
	loans  loan.Repository
	pool   *ants.Pool
	logger *slog.Logger
}

func NewBatch(engine *Engine, loans loan.Repository, poolSize int, logger *slog.Logger) (*Batch, error) {
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	return &Batch{
		engine: engine,
		loans:  loans,
		pool:   pool,
		logger: logger,
	}, nil
}

// Run accrues mora for every active loan for the given business date and
// returns the count of loans that received at least one new component.
// Safe to re-run on the same business date.
func (b *Batch) Run(ctx context.Context, businessDate time.Time) (*BatchReport, error) {
	ids, err := b.loans.ListActiveIDs(ctx)
	if err != nil {
		return nil, err
	}

	report := &BatchReport{
		BusinessDate:   businessDate,
		LoansProcessed: len(ids),
	}

	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	for _, id := range ids {
		loanID := id
		wg.Add(1)
		submitErr := b.pool.Submit(func() {
			defer wg.Done()

			created, err := b.engine.AccrueLoan(ctx, loanID, businessDate)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				report.LoansFailed++
				b.logger.Error("Accrual failed for loan, continuing batch",
					"loan_id", loanID.String(),
					"business_date", businessDate.Format("2006-01-02"),
					"error", err,
				)
				return
			}
			if created > 0 {
				report.LoansAffected++
				report.ComponentsCreated += created
			}
		})
		if submitErr != nil {
			wg.Done()
			mu.Lock()
			report.LoansFailed++
			mu.Unlock()
			b.logger.Error("Failed to submit loan to accrual pool", "loan_id", loanID.String(), "error", submitErr)
		}
	}
	wg.Wait()

	b.logger.Info("Accrual batch finished",
		"business_date", businessDate.Format("2006-01-02"),
		"loans_processed", report.LoansProcessed,
		"loans_affected", report.LoansAffected,
		"components_created", report.ComponentsCreated,
		"loans_failed", report.LoansFailed,
	)
	return report, nil
}

// Shutdown releases the worker pool
func (b *Batch) Shutdown() {
	b.pool.Release()
}

// Running returns the number of in-flight accrual workers
func (b *Batch) Running() int {
	return b.pool.Running()
}
