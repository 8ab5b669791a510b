package payment

import (
	"time"

	"github.com/cartera-loan-servicing/internal/domain/shared"
	"github.com/google/uuid"
)

// Event is the immutable record of one allocation run. It is written once
// inside the allocation transaction and never mutated or deleted.
type Event struct {
	ID              uuid.UUID           `json:"id" bson:"event_id"`
	LoanID          uuid.UUID           `json:"loan_id" bson:"loan_id"`
	Type            shared.MovementType `json:"type" bson:"type"`
	PaidOn          time.Time           `json:"paid_on" bson:"paid_on"`
	CapitalApplied  int64               `json:"capital_applied" bson:"capital_applied"`
	InterestApplied int64               `json:"interest_applied" bson:"interest_applied"`
	MoraApplied     int64               `json:"mora_applied" bson:"mora_applied"`
	OtherApplied    int64               `json:"other_applied" bson:"other_applied"`
	Note            string              `json:"note,omitempty" bson:"note,omitempty"`
	CreatedBy       string              `json:"created_by" bson:"created_by"`
	CorrelationID   string              `json:"correlation_id,omitempty" bson:"correlation_id,omitempty"`
	CreatedAt       time.Time           `json:"created_at" bson:"created_at"`
	Details         []Detail            `json:"details,omitempty" bson:"details,omitempty"`
}

// Detail links an event to one obligation component it touched, carrying
// enough state to reconstruct exactly what was paid.
type Detail struct {
	ID            uuid.UUID              `json:"id" bson:"detail_id"`
	EventID       uuid.UUID              `json:"event_id" bson:"event_id"`
	ComponentID   uuid.UUID              `json:"component_id" bson:"component_id"`
	Kind          shared.Kind            `json:"kind" bson:"kind"`
	Installment   int                    `json:"installment" bson:"installment"`
	BalanceBefore int64                  `json:"balance_before" bson:"balance_before"`
	Applied       int64                  `json:"applied" bson:"applied"`
	NewStatus     shared.ComponentStatus `json:"new_status" bson:"new_status"`
}

// NewEvent creates a payment event shell; per-kind totals and details are
// filled in by the allocation engine before persisting.
func NewEvent(loanID uuid.UUID, movementType shared.MovementType, paidOn time.Time, note, createdBy, correlationID string) *Event {
	return &Event{
		ID:            uuid.New(),
		LoanID:        loanID,
		Type:          movementType,
		PaidOn:        paidOn,
		Note:          note,
		CreatedBy:     createdBy,
		CorrelationID: correlationID,
		CreatedAt:     time.Now(),
	}
}

// AddDetail records one component application and accumulates the
// per-kind totals
func (e *Event) AddDetail(componentID uuid.UUID, kind shared.Kind, installment int, balanceBefore, applied int64, newStatus shared.ComponentStatus) {
	e.Details = append(e.Details, Detail{
		ID:            uuid.New(),
		EventID:       e.ID,
		ComponentID:   componentID,
		Kind:          kind,
		Installment:   installment,
		BalanceBefore: balanceBefore,
		Applied:       applied,
		NewStatus:     newStatus,
	})

	switch kind {
	case shared.KindCapital:
		e.CapitalApplied += applied
	case shared.KindInteres:
		e.InterestApplied += applied
	case shared.KindMora:
		e.MoraApplied += applied
	default:
		e.OtherApplied += applied
	}
}

// Total returns the full amount the event applied across all kinds
func (e *Event) Total() int64 {
	return e.CapitalApplied + e.InterestApplied + e.MoraApplied + e.OtherApplied
}
