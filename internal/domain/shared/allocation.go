package shared

import (
	"time"

	"github.com/google/uuid"
)

// Split is an explicit caller-provided distribution of a PARCIAL payment
// across obligation kinds, in minor units
type Split struct {
	Mora    int64 `json:"mora"`
	Interes int64 `json:"interes"`
	Capital int64 `json:"capital"`
	Otros   int64 `json:"otros"`
}

// Total returns the sum of all split buckets
func (s Split) Total() int64 {
	return s.Mora + s.Interes + s.Capital + s.Otros
}

// AllocationRequest carries one payment to be applied against a loan's
// open obligations. Mode is validated before the request is built.
type AllocationRequest struct {
	LoanID        uuid.UUID
	Amount        int64 // minor units
	Mode          AllocationMode
	Installment   int    // optional scope, 0 = all installments
	Split         *Split // optional explicit split for PARCIAL
	PaidOn        time.Time
	ChannelCode   string // optional payment channel, may map to a cash fund
	Note          string
	CreatedBy     string
	CorrelationID string
}

// Validate checks request-level invariants that do not need loan state
func (r *AllocationRequest) Validate() error {
	if r.Amount <= 0 {
		return ErrInvalidAmount
	}
	if r.Installment < 0 {
		return ErrInvalidInstallment
	}
	if r.Split != nil {
		if r.Split.Mora < 0 || r.Split.Interes < 0 || r.Split.Capital < 0 || r.Split.Otros < 0 {
			return ErrMalformedSplit
		}
		if r.Split.Total() != r.Amount {
			return ErrMalformedSplit
		}
	}
	return nil
}

// AppliedComponent reports one obligation component touched by an allocation
type AppliedComponent struct {
	ComponentID   uuid.UUID       `json:"component_id"`
	Kind          Kind            `json:"kind"`
	KindLabel     string          `json:"kind_label"`
	Installment   int             `json:"installment"`
	BalanceBefore int64           `json:"balance_before"`
	Applied       int64           `json:"applied"`
	NewStatus     ComponentStatus `json:"new_status"`
}

// AllocationResult is the outcome of one successful allocation run
type AllocationResult struct {
	EventID         uuid.UUID          `json:"event_id"`
	PaidOn          time.Time          `json:"paid_on"`
	Mode            AllocationMode     `json:"mode"`
	CapitalApplied  int64              `json:"capital_applied"`
	InterestApplied int64              `json:"interest_applied"`
	MoraApplied     int64              `json:"mora_applied"`
	OtherApplied    int64              `json:"other_applied"`
	Components      []AppliedComponent `json:"components"`
	Message         string             `json:"message"`
}

// TotalApplied returns the sum actually consumed from the requested amount
func (r *AllocationResult) TotalApplied() int64 {
	return r.CapitalApplied + r.InterestApplied + r.MoraApplied + r.OtherApplied
}
