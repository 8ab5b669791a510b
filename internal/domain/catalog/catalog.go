package catalog

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

// Domains group catalog entries by what they identify
const (
	DomainObligationKind = "OBLIGATION_KIND"
	DomainComponentState = "COMPONENT_STATE"
	DomainLoanState      = "LOAN_STATE"
)

// Parameter names
const (
	ParamMoraMonthlyRate = "mora_monthly_rate"
	ParamBusinessDate    = "business_date"
)

// DefaultMoraMonthlyRate is the fallback when the parameter is unset: 3%/month
var DefaultMoraMonthlyRate = decimal.NewFromInt(3)

// Entry is one catalog row identifying a kind, state or other coded value
type Entry struct {
	ID     int64  `json:"id"`
	Domain string `json:"domain"`
	Code   string `json:"code"`
	Label  string `json:"label"`
}

// Service resolves catalog entries and servicing parameters. Required
// entries that are absent surface as ErrConfigurationMissing rather than
// silently defaulting, because a wrong identifier would misclassify ledger
// rows. The mora rate is the one documented exception.
type Service interface {
	// RequireEntry returns the entry for (domain, code) or ErrConfigurationMissing
	RequireEntry(ctx context.Context, domain, code string) (*Entry, error)

	// KindLabel returns the display label for an obligation kind, falling
	// back to the code itself when no catalog entry exists
	KindLabel(ctx context.Context, code string) string

	// MoraMonthlyRate returns the configured monthly mora rate in percent,
	// falling back to DefaultMoraMonthlyRate when unset
	MoraMonthlyRate(ctx context.Context) (decimal.Decimal, error)
}

// ErrConfigurationMissing indicates a required catalog entry is absent.
// This is fatal for the operation that needed it.
type ErrConfigurationMissing struct {
	Domain string
	Code   string
}

func (e ErrConfigurationMissing) Error() string {
	return fmt.Sprintf("required catalog entry missing: %s/%s", e.Domain, e.Code)
}
