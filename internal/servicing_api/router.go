package servicing_api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/cartera-loan-servicing/internal/servicing_api/handler"
	"github.com/cartera-loan-servicing/internal/servicing_api/middleware"
	"github.com/gin-gonic/gin"
)

// setupRouter configures API routes and middleware for the application
func setupRouter(
	logger *slog.Logger,
	r *gin.Engine,
	loanHandler *handler.LoanHandler,
	paymentHandler *handler.PaymentHandler,
	accrualHandler *handler.AccrualHandler,
) {
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CorrelationID())

	// API v1 endpoints
	v1 := r.Group("/api/v1")
	{
		// Loan operations
		loans := v1.Group("/loans")
		{
			loans.POST("", loanHandler.Create)
			loans.GET("/:id", loanHandler.GetByID)
			loans.GET("/:id/statement", loanHandler.GetStatement)
			loans.POST("/:id/payments", paymentHandler.Create)
			loans.GET("/:id/payments", paymentHandler.GetByLoanID)
		}

		// Payment operations
		payments := v1.Group("/payments")
		{
			payments.GET("/:id", paymentHandler.GetByID)
		}

		// Admin operations
		accruals := v1.Group("/accruals")
		{
			accruals.POST("/run", accrualHandler.Run)
		}
	}

	// Health check endpoint for monitoring
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": time.Now().UTC()})
	})
}
