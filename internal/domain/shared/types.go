package shared

import "fmt"

// Kind identifies the slice of debt an obligation component represents
type Kind string

const (
	KindCapital Kind = "CAPITAL"
	KindInteres Kind = "INTERES"
	KindMora    Kind = "MORA"
)

// ComponentStatus defines obligation component payment states.
// The status is always derived from balance vs. original amount.
type ComponentStatus string

const (
	ComponentStatusPendiente ComponentStatus = "PENDIENTE"
	ComponentStatusParcial   ComponentStatus = "PARCIAL"
	ComponentStatusPagado    ComponentStatus = "PAGADO"
)

// StatusFor derives the component status from its remaining balance
// against the original amount
func StatusFor(balance, amount int64) ComponentStatus {
	switch {
	case balance <= 0:
		return ComponentStatusPagado
	case balance < amount:
		return ComponentStatusParcial
	default:
		return ComponentStatusPendiente
	}
}

// AllocationMode selects the payment waterfall strategy for one allocation run
type AllocationMode string

const (
	ModeCuota   AllocationMode = "CUOTA"
	ModeParcial AllocationMode = "PARCIAL"
	ModeCapital AllocationMode = "CAPITAL"
	ModeMora    AllocationMode = "MORA"
)

// ParseAllocationMode validates a mode string once at the boundary.
// Internal logic switches exhaustively over the returned value.
func ParseAllocationMode(s string) (AllocationMode, error) {
	switch AllocationMode(s) {
	case ModeCuota, ModeParcial, ModeCapital, ModeMora:
		return AllocationMode(s), nil
	default:
		return "", ErrInvalidMode{Mode: s}
	}
}

// MovementType classifies the immutable payment event produced by an allocation
type MovementType string

const (
	MovementPago        MovementType = "PAGO"
	MovementPagoParcial MovementType = "PAGO_PARCIAL"
	MovementAbonoCap    MovementType = "ABONO_CAPITAL"
	MovementPagoMora    MovementType = "PAGO_MORA"
)

// MovementTypeFor maps an allocation mode to the movement type recorded
// on the resulting payment event
func MovementTypeFor(mode AllocationMode) MovementType {
	switch mode {
	case ModeParcial:
		return MovementPagoParcial
	case ModeCapital:
		return MovementAbonoCap
	case ModeMora:
		return MovementPagoMora
	default:
		return MovementPago
	}
}

// InstallmentStatus describes a whole installment on an account statement
type InstallmentStatus string

const (
	InstallmentPagada    InstallmentStatus = "Pagada"
	InstallmentParcial   InstallmentStatus = "Parcial"
	InstallmentVencida   InstallmentStatus = "Vencida"
	InstallmentPendiente InstallmentStatus = "Pendiente"
)

// OutboxStatus defines event publishing states
type OutboxStatus string

const (
	OutboxStatusPending         OutboxStatus = "PENDING"
	OutboxStatusProcessed       OutboxStatus = "PROCESSED"
	OutboxStatusFailedToPublish OutboxStatus = "FAILED_TO_PUBLISH"
)

// FormatCents renders a minor-unit amount as a decimal string for
// human-readable messages (e.g. 94560 -> "945.60")
func FormatCents(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}
