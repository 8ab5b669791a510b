package loan

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Common errors
var (
	ErrInvalidPrincipal = errors.New("principal must be positive")
	ErrInvalidTerm      = errors.New("term count must be positive")
	ErrInvalidFrequency = errors.New("payment frequency in days must be positive")
	ErrNegativeRate     = errors.New("annual rate cannot be negative")
)

// Status codes for the loan lifecycle, resolved against the status catalog
const (
	StatusVigente   = "VIGENTE"
	StatusCancelado = "CANCELADO"
	StatusCastigado = "CASTIGADO"
)

// Loan is the aggregate root of the servicing ledger. The three cached
// balances mirror the open obligation components of the corresponding kind
// and are written only by the reconciliation routine.
type Loan struct {
	ID              uuid.UUID `json:"id"`
	Principal       int64     `json:"principal"` // Stored in cents/minor units
	AnnualRatePct   float64   `json:"annual_rate_pct"`
	TermCount       int       `json:"term_count"`
	FrequencyDays   int       `json:"frequency_days"`
	Bullet          bool      `json:"bullet"`
	DisbursedOn     time.Time `json:"disbursed_on"`
	MaturesOn       time.Time `json:"matures_on"`
	CapitalBalance  int64     `json:"capital_balance"`
	InterestBalance int64     `json:"interest_balance"`
	MoraBalance     int64     `json:"mora_balance"`
	StatusCode      string    `json:"status_code"`
	Version         int       `json:"version"` // For optimistic locking
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// NewLoan creates a loan at disbursement. Cached balances start at zero and
// are filled in by reconciliation once the schedule is generated.
func NewLoan(principal int64, annualRatePct float64, termCount, frequencyDays int, bullet bool, disbursedOn time.Time) (*Loan, error) {
	if principal <= 0 {
		return nil, ErrInvalidPrincipal
	}
	if termCount <= 0 {
		return nil, ErrInvalidTerm
	}
	if frequencyDays <= 0 {
		return nil, ErrInvalidFrequency
	}
	if annualRatePct < 0 {
		return nil, ErrNegativeRate
	}

	disbursedOn = disbursedOn.UTC().Truncate(24 * time.Hour)

	return &Loan{
		ID:            uuid.New(),
		Principal:     principal,
		AnnualRatePct: annualRatePct,
		TermCount:     termCount,
		FrequencyDays: frequencyDays,
		Bullet:        bullet,
		DisbursedOn:   disbursedOn,
		MaturesOn:     disbursedOn.AddDate(0, 0, frequencyDays*termCount),
		StatusCode:    StatusVigente,
		Version:       1,
		CreatedAt:     time.Now(),
		UpdatedAt:     time.Now(),
	}, nil
}

// Terminal reports whether the loan is in a state that no longer accrues mora
func (l *Loan) Terminal() bool {
	return l.StatusCode == StatusCancelado || l.StatusCode == StatusCastigado
}

// TotalOutstanding returns the sum of the cached balances
func (l *Loan) TotalOutstanding() int64 {
	return l.CapitalBalance + l.InterestBalance + l.MoraBalance
}

// SetCachedBalances overwrites the denormalized balances. Only the
// reconciliation routine may call this.
func (l *Loan) SetCachedBalances(capital, interest, mora int64) {
	l.CapitalBalance = capital
	l.InterestBalance = interest
	l.MoraBalance = mora
	l.UpdatedAt = time.Now()
	l.Version++
}
