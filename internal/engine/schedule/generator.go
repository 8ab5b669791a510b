// Package schedule turns loan terms into the initial ledger of obligation
// components. Generation is pure and deterministic: no I/O, same input
// always yields the same schedule.
package schedule

import (
	"errors"
	"fmt"
	"time"

	"github.com/cartera-loan-servicing/internal/domain/loan"
	"github.com/cartera-loan-servicing/internal/domain/obligation"
	"github.com/cartera-loan-servicing/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// ErrNilLoan indicates schedule generation without a loan
var ErrNilLoan = errors.New("cannot generate schedule for nil loan")

var (
	hundred      = decimal.NewFromInt(100)
	twelve       = decimal.NewFromInt(12)
	thirty       = decimal.NewFromInt(30)
	one          = decimal.NewFromInt(1)
	centsPerUnit = decimal.NewFromInt(100)
)

// Generate produces the ordered capital/interest component pairs for a loan
// using French (constant installment) amortization, or a single pair at
// maturity for bullet loans. The last installment's capital is forced to the
// exact remaining outstanding so the schedule always sums to the principal.
func Generate(l *loan.Loan) ([]*obligation.Component, error) {
	if l == nil {
		return nil, ErrNilLoan
	}
	if l.Principal <= 0 {
		return nil, loan.ErrInvalidPrincipal
	}
	if l.TermCount <= 0 {
		return nil, loan.ErrInvalidTerm
	}
	if l.FrequencyDays <= 0 {
		return nil, loan.ErrInvalidFrequency
	}
	if l.AnnualRatePct < 0 {
		return nil, loan.ErrNegativeRate
	}

	if l.Bullet {
		return generateBullet(l)
	}
	return generatePeriodic(l)
}

// periodicRate converts the annual nominal rate to the rate of one payment
// period: (annual/12/100) * (frequencyDays/30)
func periodicRate(annualRatePct float64, frequencyDays int) decimal.Decimal {
	monthly := decimal.NewFromFloat(annualRatePct).Div(twelve).Div(hundred)
	return monthly.Mul(decimal.NewFromInt(int64(frequencyDays))).Div(thirty)
}

// fixedInstallment computes the constant payment:
// P*r*(1+r)^n / ((1+r)^n - 1), rounded to 2 decimals; P/n when r == 0
func fixedInstallment(principal, r decimal.Decimal, n int) decimal.Decimal {
	if r.IsZero() {
		return principal.Div(decimal.NewFromInt(int64(n))).Round(2)
	}
	pow := one.Add(r).Pow(decimal.NewFromInt(int64(n)))
	return principal.Mul(r).Mul(pow).Div(pow.Sub(one)).Round(2)
}

func generatePeriodic(l *loan.Loan) ([]*obligation.Component, error) {
	principal := decimal.NewFromInt(l.Principal).Div(centsPerUnit)
	r := periodicRate(l.AnnualRatePct, l.FrequencyDays)
	installment := fixedInstallment(principal, r, l.TermCount)

	components := make([]*obligation.Component, 0, 2*l.TermCount)
	outstanding := principal

	for i := 1; i <= l.TermCount; i++ {
		interest := outstanding.Mul(r).Round(2)
		capital := installment.Sub(interest)

		if i == l.TermCount {
			// Force the final capital to the exact remaining outstanding to
			// absorb the rounding drift accumulated across the schedule.
			capital = outstanding
			interest = installment.Sub(capital)
			if interest.IsNegative() {
				interest = decimal.Zero
			}
		}

		dueDate := l.DisbursedOn.AddDate(0, 0, l.FrequencyDays*i)
		if err := appendPair(&components, l, capital, interest, dueDate, i); err != nil {
			return nil, err
		}

		outstanding = outstanding.Sub(capital)
	}

	return components, nil
}

func generateBullet(l *loan.Loan) ([]*obligation.Component, error) {
	principal := decimal.NewFromInt(l.Principal).Div(centsPerUnit)
	monthly := decimal.NewFromFloat(l.AnnualRatePct).Div(twelve).Div(hundred)
	periods := decimal.NewFromInt(int64(l.TermCount * l.FrequencyDays)).Div(thirty)
	interest := principal.Mul(monthly).Mul(periods).Round(2)

	dueDate := l.DisbursedOn.AddDate(0, 0, l.FrequencyDays*l.TermCount)

	var components []*obligation.Component
	if err := appendPair(&components, l, principal, interest, dueDate, 1); err != nil {
		return nil, err
	}
	return components, nil
}

// appendPair adds the capital and interest components of one installment,
// skipping zero-amount slices (a zero-rate loan owes no interest)
func appendPair(components *[]*obligation.Component, l *loan.Loan, capital, interest decimal.Decimal, dueDate time.Time, installment int) error {
	if capital.IsPositive() {
		c, err := obligation.NewComponent(l.ID, shared.KindCapital, toCents(capital), &dueDate, installment)
		if err != nil {
			return fmt.Errorf("installment %d capital: %w", installment, err)
		}
		*components = append(*components, c)
	}
	if interest.IsPositive() {
		c, err := obligation.NewComponent(l.ID, shared.KindInteres, toCents(interest), &dueDate, installment)
		if err != nil {
			return fmt.Errorf("installment %d interest: %w", installment, err)
		}
		*components = append(*components, c)
	}
	return nil
}

func toCents(amount decimal.Decimal) int64 {
	return amount.Round(2).Mul(centsPerUnit).IntPart()
}
