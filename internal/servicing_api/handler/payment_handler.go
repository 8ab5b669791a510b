package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/cartera-loan-servicing/internal/domain/loan"
	"github.com/cartera-loan-servicing/internal/domain/payment"
	"github.com/cartera-loan-servicing/internal/domain/shared"
	"github.com/cartera-loan-servicing/internal/servicing_api/middleware"
	"github.com/cartera-loan-servicing/internal/servicing_api/service"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// PaymentHandler handles HTTP requests for payment operations
type PaymentHandler struct {
	paymentService service.PaymentService
	logger         *slog.Logger
}

// NewPaymentHandler creates a new payment handler
func NewPaymentHandler(logger *slog.Logger, paymentService service.PaymentService) *PaymentHandler {
	return &PaymentHandler{
		paymentService: paymentService,
		logger:         logger,
	}
}

// Create allocates a payment against a loan's open obligations
func (h *PaymentHandler) Create(c *gin.Context) {
	loanIDParam := c.Param("id")
	loanID, err := uuid.Parse(loanIDParam)
	if err != nil {
		h.logger.Error("Invalid loan ID", "loan_id", loanIDParam, "error", err)
		RespondBadRequest(c, "Invalid loan ID")
		return
	}

	var req CreatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	mode, err := shared.ParseAllocationMode(req.Mode)
	if err != nil {
		h.logger.Error("Invalid allocation mode", "mode", req.Mode)
		RespondBadRequest(c, err.Error())
		return
	}

	allocationRequest := &shared.AllocationRequest{
		LoanID:        loanID,
		Amount:        req.Amount,
		Mode:          mode,
		Installment:   req.Installment,
		ChannelCode:   req.ChannelCode,
		Note:          req.Note,
		CreatedBy:     req.CreatedBy,
		CorrelationID: middleware.GetCorrelationID(c),
	}

	if req.PaidOn != "" {
		paidOn, err := time.Parse("2006-01-02", req.PaidOn)
		if err != nil {
			h.logger.Error("Invalid payment date", "paid_on", req.PaidOn, "error", err)
			RespondBadRequest(c, "Invalid payment date")
			return
		}
		allocationRequest.PaidOn = paidOn
	}

	if req.Split != nil {
		allocationRequest.Split = &shared.Split{
			Mora:    req.Split.Mora,
			Interes: req.Split.Interes,
			Capital: req.Split.Capital,
			Otros:   req.Split.Otros,
		}
	}

	result, err := h.paymentService.AllocatePayment(c.Request.Context(), allocationRequest)
	if err != nil {
		h.respondAllocationError(c, loanIDParam, err)
		return
	}

	RespondCreated(c, mapAllocationToResponse(result))
}

// respondAllocationError maps allocation failures to HTTP statuses
func (h *PaymentHandler) respondAllocationError(c *gin.Context, loanIDParam string, err error) {
	var loanNotFound loan.ErrLoanNotFound
	var conflict loan.ErrConcurrentModification
	var invalidMode shared.ErrInvalidMode

	switch {
	case errors.As(err, &loanNotFound):
		RespondNotFound(c, "Loan not found")
	case errors.As(err, &conflict):
		h.logger.Warn("Allocation lost the optimistic lock race twice", "loan_id", loanIDParam)
		RespondConflict(c, "Loan was modified concurrently, retry the payment")
	case errors.As(err, &invalidMode),
		errors.Is(err, shared.ErrInvalidAmount),
		errors.Is(err, shared.ErrInvalidInstallment),
		errors.Is(err, shared.ErrMalformedSplit),
		errors.Is(err, shared.ErrNothingToAllocate):
		h.logger.Warn("Rejected payment allocation", "loan_id", loanIDParam, "error", err)
		RespondBadRequest(c, err.Error())
	default:
		h.logger.Error("Failed to allocate payment", "loan_id", loanIDParam, "error", err)
		RespondInternalError(c)
	}
}

// GetByID retrieves a payment event by its ID, returns 404 if not found
func (h *PaymentHandler) GetByID(c *gin.Context) {
	idParam := c.Param("id")
	id, err := uuid.Parse(idParam)
	if err != nil {
		h.logger.Error("Invalid payment event ID", "id", idParam, "error", err)
		RespondBadRequest(c, "Invalid payment event ID")
		return
	}

	event, err := h.paymentService.GetPaymentByID(c.Request.Context(), id)
	if err != nil {
		h.logger.Error("Failed to get payment event", "id", idParam, "error", err)
		RespondInternalError(c)
		return
	}

	if event == nil {
		RespondNotFound(c, "Payment not found")
		return
	}

	RespondOK(c, mapPaymentToResponse(event))
}

// GetByLoanID retrieves paginated payment history for a loan
func (h *PaymentHandler) GetByLoanID(c *gin.Context) {
	loanIDParam := c.Param("id")
	loanID, err := uuid.Parse(loanIDParam)
	if err != nil {
		h.logger.Error("Invalid loan ID", "loan_id", loanIDParam, "error", err)
		RespondBadRequest(c, "Invalid loan ID")
		return
	}

	var pagination PaginationParams
	if err := c.ShouldBindQuery(&pagination); err != nil {
		h.logger.Error("Invalid pagination parameters", "error", err)
		RespondBadRequest(c, "Invalid pagination parameters")
		return
	}

	events, total, err := h.paymentService.GetPaymentsByLoanID(
		c.Request.Context(),
		loanID,
		pagination.Page,
		pagination.PerPage,
	)
	if err != nil {
		h.logger.Error("Failed to get payment history", "loan_id", loanIDParam, "error", err)
		RespondInternalError(c)
		return
	}

	var payments []PaymentResponse
	for _, event := range events {
		payments = append(payments, mapPaymentToResponse(event))
	}

	RespondWithPaginatedData(c, http.StatusOK, payments, pagination.Page, pagination.PerPage, int(total))
}

// mapAllocationToResponse maps an allocation result to a response DTO
func mapAllocationToResponse(result *shared.AllocationResult) AllocationResponse {
	response := AllocationResponse{
		EventID:         result.EventID.String(),
		PaidOn:          result.PaidOn.Format("2006-01-02"),
		Mode:            string(result.Mode),
		CapitalApplied:  result.CapitalApplied,
		InterestApplied: result.InterestApplied,
		MoraApplied:     result.MoraApplied,
		OtherApplied:    result.OtherApplied,
		TotalApplied:    result.TotalApplied(),
		Message:         result.Message,
	}

	for _, component := range result.Components {
		response.Components = append(response.Components, AppliedComponentResponse{
			ComponentID:   component.ComponentID.String(),
			Kind:          string(component.Kind),
			KindLabel:     component.KindLabel,
			Installment:   component.Installment,
			BalanceBefore: component.BalanceBefore,
			Applied:       component.Applied,
			NewStatus:     string(component.NewStatus),
		})
	}

	return response
}

// mapPaymentToResponse maps a payment event to a payment response DTO
func mapPaymentToResponse(event *payment.Event) PaymentResponse {
	return PaymentResponse{
		EventID:         event.ID.String(),
		LoanID:          event.LoanID.String(),
		Type:            string(event.Type),
		PaidOn:          event.PaidOn.Format("2006-01-02"),
		CapitalApplied:  event.CapitalApplied,
		InterestApplied: event.InterestApplied,
		MoraApplied:     event.MoraApplied,
		OtherApplied:    event.OtherApplied,
		TotalApplied:    event.Total(),
		Note:            event.Note,
		CreatedBy:       event.CreatedBy,
		CreatedAt:       event.CreatedAt.Format(time.RFC3339),
	}
}
