package handler

import (
	"errors"
	"log/slog"
	"time"

	"github.com/cartera-loan-servicing/internal/domain/loan"
	"github.com/cartera-loan-servicing/internal/servicing_api/service"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// LoanHandler handles HTTP requests for loan operations
type LoanHandler struct {
	loanService service.LoanService
	logger      *slog.Logger
}

// NewLoanHandler creates a new loan handler
func NewLoanHandler(logger *slog.Logger, loanService service.LoanService) *LoanHandler {
	return &LoanHandler{
		loanService: loanService,
		logger:      logger,
	}
}

// Create disburses a new loan with its full amortization schedule
func (h *LoanHandler) Create(c *gin.Context) {
	var req CreateLoanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	disbursedOn, err := time.Parse("2006-01-02", req.DisbursedOn)
	if err != nil {
		h.logger.Error("Invalid disbursement date", "disbursed_on", req.DisbursedOn, "error", err)
		RespondBadRequest(c, "Invalid disbursement date")
		return
	}

	l, err := h.loanService.CreateLoan(c.Request.Context(), service.NewLoanParams{
		Principal:     req.Principal,
		AnnualRatePct: req.AnnualRatePct,
		TermCount:     req.TermCount,
		FrequencyDays: req.FrequencyDays,
		Bullet:        req.Bullet,
		DisbursedOn:   disbursedOn,
	})
	if err != nil {
		if errors.Is(err, loan.ErrInvalidPrincipal) ||
			errors.Is(err, loan.ErrInvalidTerm) ||
			errors.Is(err, loan.ErrInvalidFrequency) ||
			errors.Is(err, loan.ErrNegativeRate) {
			h.logger.Warn("Rejected loan with invalid terms", "error", err)
			RespondBadRequest(c, err.Error())
			return
		}
		h.logger.Error("Failed to create loan", "error", err)
		RespondInternalError(c)
		return
	}

	RespondCreated(c, mapLoanToResponse(l))
}

// GetByID retrieves a loan by its ID, returning 404 if not found
func (h *LoanHandler) GetByID(c *gin.Context) {
	idParam := c.Param("id")
	id, err := uuid.Parse(idParam)
	if err != nil {
		h.logger.Error("Invalid loan ID", "id", idParam, "error", err)
		RespondBadRequest(c, "Invalid loan ID")
		return
	}

	l, err := h.loanService.GetLoanByID(c.Request.Context(), id)
	if err != nil {
		var notFound loan.ErrLoanNotFound
		if errors.As(err, &notFound) {
			RespondNotFound(c, "Loan not found")
			return
		}
		h.logger.Error("Failed to get loan", "id", idParam, "error", err)
		RespondInternalError(c)
		return
	}

	RespondOK(c, mapLoanToResponse(l))
}

// GetStatement builds the account statement for a loan as of the current
// business date
func (h *LoanHandler) GetStatement(c *gin.Context) {
	idParam := c.Param("id")
	id, err := uuid.Parse(idParam)
	if err != nil {
		h.logger.Error("Invalid loan ID", "id", idParam, "error", err)
		RespondBadRequest(c, "Invalid loan ID")
		return
	}

	stmt, err := h.loanService.GetStatement(c.Request.Context(), id)
	if err != nil {
		var notFound loan.ErrLoanNotFound
		if errors.As(err, &notFound) {
			RespondNotFound(c, "Loan not found")
			return
		}
		h.logger.Error("Failed to build statement", "loan_id", idParam, "error", err)
		RespondInternalError(c)
		return
	}

	RespondOK(c, stmt)
}

// mapLoanToResponse maps a loan entity to a loan response DTO
func mapLoanToResponse(l *loan.Loan) LoanResponse {
	return LoanResponse{
		ID:               l.ID.String(),
		Principal:        l.Principal,
		AnnualRatePct:    l.AnnualRatePct,
		TermCount:        l.TermCount,
		FrequencyDays:    l.FrequencyDays,
		Bullet:           l.Bullet,
		DisbursedOn:      l.DisbursedOn.Format("2006-01-02"),
		MaturesOn:        l.MaturesOn.Format("2006-01-02"),
		CapitalBalance:   l.CapitalBalance,
		InterestBalance:  l.InterestBalance,
		MoraBalance:      l.MoraBalance,
		TotalOutstanding: l.TotalOutstanding(),
		StatusCode:       l.StatusCode,
		CreatedAt:        l.CreatedAt.Format(time.RFC3339),
		UpdatedAt:        l.UpdatedAt.Format(time.RFC3339),
	}
}
