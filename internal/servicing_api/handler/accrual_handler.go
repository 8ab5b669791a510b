package handler

import (
	"context"
	"log/slog"
	"time"

	"github.com/cartera-loan-servicing/internal/clock"
	"github.com/cartera-loan-servicing/internal/engine/accrual"
	"github.com/gin-gonic/gin"
)

// AccrualRunner triggers a mora accrual pass across every active loan.
// Satisfied by the accrual batch.
type AccrualRunner interface {
	Run(ctx context.Context, businessDate time.Time) (*accrual.BatchReport, error)
}

var _ AccrualRunner = (*accrual.Batch)(nil)

// AccrualHandler exposes the admin endpoint that triggers an accrual run
// on demand, outside the scheduled end-of-day flow
type AccrualHandler struct {
	runner   AccrualRunner
	calendar clock.Provider
	logger   *slog.Logger
}

// NewAccrualHandler creates a new accrual handler
func NewAccrualHandler(logger *slog.Logger, runner AccrualRunner, calendar clock.Provider) *AccrualHandler {
	return &AccrualHandler{
		runner:   runner,
		calendar: calendar,
		logger:   logger,
	}
}

// Run accrues mora for all active loans. The business date defaults to the
// current one; a past date may be passed to backfill a missed close. Re-runs
// on an already accrued date are no-ops.
func (h *AccrualHandler) Run(c *gin.Context) {
	// The body is optional: an empty POST runs the current business date
	var req AccrualRunRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.logger.Error("Invalid request body", "error", err)
			RespondBadRequest(c, "Invalid request body: "+err.Error())
			return
		}
	}

	var businessDate time.Time
	if req.BusinessDate != "" {
		parsed, err := time.Parse("2006-01-02", req.BusinessDate)
		if err != nil {
			h.logger.Error("Invalid business date", "business_date", req.BusinessDate, "error", err)
			RespondBadRequest(c, "Invalid business date")
			return
		}
		businessDate = clock.Midnight(parsed)
	} else {
		today, err := h.calendar.Today(c.Request.Context())
		if err != nil {
			h.logger.Error("Failed to resolve business date", "error", err)
			RespondInternalError(c)
			return
		}
		businessDate = today
	}

	report, err := h.runner.Run(c.Request.Context(), businessDate)
	if err != nil {
		h.logger.Error("Accrual run failed", "business_date", businessDate.Format("2006-01-02"), "error", err)
		RespondInternalError(c)
		return
	}

	RespondOK(c, AccrualRunResponse{
		BusinessDate:      report.BusinessDate.Format("2006-01-02"),
		LoansProcessed:    report.LoansProcessed,
		LoansAffected:     report.LoansAffected,
		ComponentsCreated: report.ComponentsCreated,
		LoansFailed:       report.LoansFailed,
	})
}
