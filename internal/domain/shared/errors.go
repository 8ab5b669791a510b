package shared

import (
	"errors"
	"fmt"
)

// Common validation errors
var (
	ErrInvalidAmount      = errors.New("amount must be positive")
	ErrMalformedSplit     = errors.New("split amounts must be non-negative and sum to the payment amount")
	ErrNothingToAllocate  = errors.New("no open obligations match the requested allocation mode")
	ErrInvalidInstallment = errors.New("installment number must be positive")
)

// ErrInvalidMode indicates an unknown allocation mode string
type ErrInvalidMode struct {
	Mode string
}

func (e ErrInvalidMode) Error() string {
	return fmt.Sprintf("unknown allocation mode: %q", e.Mode)
}
