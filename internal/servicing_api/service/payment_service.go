package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/cartera-loan-servicing/internal/domain/loan"
	"github.com/cartera-loan-servicing/internal/domain/payment"
	"github.com/cartera-loan-servicing/internal/domain/shared"
	"github.com/google/uuid"
)

// Allocator applies one payment against a loan's open obligations
type Allocator interface {
	Allocate(ctx context.Context, req *shared.AllocationRequest) (*shared.AllocationResult, error)
}

// PaymentServiceImpl implements the PaymentService interface
type PaymentServiceImpl struct {
	allocator Allocator
	payments  payment.Repository
	history   payment.HistoryRepository
	logger    *slog.Logger
}

// NewPaymentService creates a new payment service
func NewPaymentService(
	logger *slog.Logger,
	allocator Allocator,
	payments payment.Repository,
	history payment.HistoryRepository,
) PaymentService {
	return &PaymentServiceImpl{
		allocator: allocator,
		payments:  payments,
		history:   history,
		logger:    logger,
	}
}

// AllocatePayment runs the allocation. An optimistic-lock conflict means a
// concurrent allocation or accrual won the race on the same loan; one retry
// against the fresh state is attempted before giving up.
func (s *PaymentServiceImpl) AllocatePayment(ctx context.Context, req *shared.AllocationRequest) (*shared.AllocationResult, error) {
	result, err := s.allocator.Allocate(ctx, req)

	var conflict loan.ErrConcurrentModification
	if errors.As(err, &conflict) {
		s.logger.Warn("Allocation hit a concurrent modification, retrying once",
			"loan_id", req.LoanID.String(),
		)
		result, err = s.allocator.Allocate(ctx, req)
	}
	if err != nil {
		return nil, err
	}
	return result, nil
}

// GetPaymentByID retrieves a payment event by its ID. Returns nil if not found
func (s *PaymentServiceImpl) GetPaymentByID(ctx context.Context, eventID uuid.UUID) (*payment.Event, error) {
	res, err := s.payments.GetByID(ctx, eventID)
	if err != nil {
		var notFound payment.ErrEventNotFound
		if errors.As(err, &notFound) {
			s.logger.Info("Payment event not found", "event_id", eventID.String())
			return nil, nil
		}
		s.logger.Error("Failed to get payment event by ID", "event_id", eventID.String(), "error", err)
		return nil, err
	}
	return res, nil
}

// GetPaymentsByLoanID retrieves the paginated payment history of a loan from
// the MongoDB archive. Returns events, total count, and any error
func (s *PaymentServiceImpl) GetPaymentsByLoanID(ctx context.Context, loanID uuid.UUID, page, perPage int) ([]*payment.Event, int64, error) {
	offset := (page - 1) * perPage

	events, err := s.history.GetByLoanID(ctx, loanID, perPage, offset)
	if err != nil {
		return nil, 0, err
	}

	total, err := s.history.CountByLoanID(ctx, loanID)
	if err != nil {
		return nil, 0, err
	}

	return events, total, nil
}
