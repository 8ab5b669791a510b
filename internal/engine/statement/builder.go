// Package statement builds the client-facing account statement. It is a
// read-only projection over the obligation ledger: nothing here mutates
// loan or component state.
package statement

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/cartera-loan-servicing/internal/clock"
	"github.com/cartera-loan-servicing/internal/domain/catalog"
	"github.com/cartera-loan-servicing/internal/domain/loan"
	"github.com/cartera-loan-servicing/internal/domain/obligation"
	"github.com/cartera-loan-servicing/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	hundred = decimal.NewFromInt(100)
	thirty  = decimal.NewFromInt(30)
)

// Line is one installment (cuota) on the statement: the paired capital and
// interest slices, accumulated mora, and a live mora figure computed for
// display from the current overdue balance rather than cached totals.
type Line struct {
	Installment     int                      `json:"installment"`
	DueDate         *time.Time               `json:"due_date,omitempty"`
	CapitalAmount   int64                    `json:"capital_amount"`
	CapitalBalance  int64                    `json:"capital_balance"`
	InterestAmount  int64                    `json:"interest_amount"`
	InterestBalance int64                    `json:"interest_balance"`
	MoraAmount      int64                    `json:"mora_amount"`
	MoraBalance     int64                    `json:"mora_balance"`
	LiveMora        int64                    `json:"live_mora"`
	Status          shared.InstallmentStatus `json:"status"`
}

// TotalBalance returns the installment's remaining debt across all kinds
func (l *Line) TotalBalance() int64 {
	return l.CapitalBalance + l.InterestBalance + l.MoraBalance
}

// Summary aggregates the statement for quick display
type Summary struct {
	StatusCounts     map[shared.InstallmentStatus]int `json:"status_counts"`
	NextDueDate      *time.Time                       `json:"next_due_date,omitempty"`
	NextDueAmount    int64                            `json:"next_due_amount"`
	TotalOutstanding int64                            `json:"total_outstanding"`
}

// Statement is the full account statement for one loan
type Statement struct {
	LoanID       uuid.UUID `json:"loan_id"`
	BusinessDate time.Time `json:"business_date"`
	Lines        []Line    `json:"lines"`
	Summary      Summary   `json:"summary"`
}

// Builder assembles statements from the obligation ledger
type Builder struct {
	loans      loan.Repository
	components obligation.Repository
	catalog    catalog.Service
	calendar   clock.Provider
	logger     *slog.Logger
}

func NewBuilder(loans loan.Repository, components obligation.Repository, catalogSvc catalog.Service, calendar clock.Provider, logger *slog.Logger) *Builder {
	return &Builder{
		loans:      loans,
		components: components,
		catalog:    catalogSvc,
		calendar:   calendar,
		logger:     logger,
	}
}

// Build returns the ordered statement for a loan as of the current
// business date
func (b *Builder) Build(ctx context.Context, loanID uuid.UUID) (*Statement, error) {
	l, err := b.loans.GetByID(ctx, loanID)
	if err != nil {
		return nil, err
	}

	businessDate, err := b.calendar.Today(ctx)
	if err != nil {
		return nil, err
	}

	components, err := b.components.GetByLoanID(ctx, loanID)
	if err != nil {
		return nil, err
	}

	monthlyRate, err := b.catalog.MoraMonthlyRate(ctx)
	if err != nil {
		return nil, err
	}
	dailyRate := monthlyRate.Div(hundred).Div(thirty)

	lines := buildLines(components, businessDate, dailyRate)

	statement := &Statement{
		LoanID:       l.ID,
		BusinessDate: businessDate,
		Lines:        lines,
		Summary:      summarize(lines),
	}
	return statement, nil
}

func buildLines(components []*obligation.Component, businessDate time.Time, dailyRate decimal.Decimal) []Line {
	byInstallment := make(map[int]*Line)
	var numbers []int
	for _, c := range components {
		line, ok := byInstallment[c.Installment]
		if !ok {
			line = &Line{Installment: c.Installment}
			byInstallment[c.Installment] = line
			numbers = append(numbers, c.Installment)
		}

		switch c.Kind {
		case shared.KindCapital:
			line.CapitalAmount += c.Amount
			line.CapitalBalance += c.Balance
		case shared.KindInteres:
			line.InterestAmount += c.Amount
			line.InterestBalance += c.Balance
		case shared.KindMora:
			line.MoraAmount += c.Amount
			line.MoraBalance += c.Balance
		}

		// The installment's due date is the scheduled one, carried by the
		// capital/interest pair rather than later mora accruals.
		if c.Kind != shared.KindMora && c.DueDate != nil {
			if line.DueDate == nil || c.DueDate.Before(*line.DueDate) {
				due := *c.DueDate
				line.DueDate = &due
			}
		}

		if c.Kind != shared.KindMora && c.OverdueAt(businessDate) {
			line.LiveMora += liveMora(c.Balance, c.DueDate, businessDate, dailyRate)
		}
	}

	sort.Ints(numbers)
	lines := make([]Line, 0, len(numbers))
	for _, n := range numbers {
		line := byInstallment[n]
		line.Status = lineStatus(line, businessDate)
		lines = append(lines, *line)
	}
	return lines
}

// lineStatus derives the display status of one installment
func lineStatus(line *Line, businessDate time.Time) shared.InstallmentStatus {
	paid := (line.CapitalAmount + line.InterestAmount + line.MoraAmount) - line.TotalBalance()
	switch {
	case line.TotalBalance() == 0:
		return shared.InstallmentPagada
	case paid > 0:
		return shared.InstallmentParcial
	case line.DueDate != nil && line.DueDate.Before(businessDate):
		return shared.InstallmentVencida
	default:
		return shared.InstallmentPendiente
	}
}

// liveMora estimates the late fee accrued through the business date on one
// overdue balance. Display only; the ledger of record is the accrued MORA
// components.
func liveMora(balanceCents int64, dueDate *time.Time, businessDate time.Time, dailyRate decimal.Decimal) int64 {
	days := int64(businessDate.Sub(clock.Midnight(*dueDate)).Hours() / 24)
	if days <= 0 {
		return 0
	}
	balance := decimal.NewFromInt(balanceCents).Div(hundred)
	return balance.Mul(dailyRate).Mul(decimal.NewFromInt(days)).Round(2).Mul(hundred).IntPart()
}

func summarize(lines []Line) Summary {
	summary := Summary{
		StatusCounts: make(map[shared.InstallmentStatus]int),
	}
	for i := range lines {
		line := &lines[i]
		summary.StatusCounts[line.Status]++
		summary.TotalOutstanding += line.TotalBalance()

		if line.TotalBalance() > 0 && line.DueDate != nil {
			if summary.NextDueDate == nil || line.DueDate.Before(*summary.NextDueDate) {
				due := *line.DueDate
				summary.NextDueDate = &due
				summary.NextDueAmount = line.TotalBalance()
			}
		}
	}
	return summary
}
