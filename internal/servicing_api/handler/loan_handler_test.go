package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/cartera-loan-servicing/internal/domain/loan"
	"github.com/cartera-loan-servicing/internal/engine/statement"
	"github.com/cartera-loan-servicing/internal/servicing_api/service"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockLoanService struct {
	mock.Mock
}

func (m *MockLoanService) CreateLoan(ctx context.Context, params service.NewLoanParams) (*loan.Loan, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*loan.Loan), args.Error(1)
}

func (m *MockLoanService) GetLoanByID(ctx context.Context, id uuid.UUID) (*loan.Loan, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*loan.Loan), args.Error(1)
}

func (m *MockLoanService) GetStatement(ctx context.Context, loanID uuid.UUID) (*statement.Statement, error) {
	args := m.Called(ctx, loanID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*statement.Statement), args.Error(1)
}

func setupTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.Default()
	return r
}

func testLoan() *loan.Loan {
	disbursedOn := time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)
	now := time.Now()
	return &loan.Loan{
		ID:              uuid.New(),
		Principal:       1000000,
		AnnualRatePct:   24,
		TermCount:       12,
		FrequencyDays:   30,
		DisbursedOn:     disbursedOn,
		MaturesOn:       disbursedOn.AddDate(0, 0, 360),
		CapitalBalance:  1000000,
		InterestBalance: 134720,
		StatusCode:      loan.StatusVigente,
		Version:         1,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

func TestLoanHandler_Create(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	t.Run("Success", func(t *testing.T) {
		mockService := new(MockLoanService)
		handler := NewLoanHandler(logger, mockService)

		expectedLoan := testLoan()
		mockService.On("CreateLoan", mock.Anything, mock.MatchedBy(func(params service.NewLoanParams) bool {
			return params.Principal == int64(1000000) &&
				params.TermCount == 12 &&
				params.FrequencyDays == 30 &&
				params.DisbursedOn.Equal(expectedLoan.DisbursedOn)
		})).Return(expectedLoan, nil)

		router := setupTestRouter()
		router.POST("/loans", handler.Create)

		reqBody := CreateLoanRequest{
			Principal:     1000000,
			AnnualRatePct: 24,
			TermCount:     12,
			FrequencyDays: 30,
			DisbursedOn:   "2025-01-15",
		}
		jsonBody, _ := json.Marshal(reqBody)

		req, _ := http.NewRequest(http.MethodPost, "/loans", bytes.NewBuffer(jsonBody))
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()

		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusCreated, rr.Code)

		var topLevelResponse Response
		err := json.Unmarshal(rr.Body.Bytes(), &topLevelResponse)
		assert.NoError(t, err, "Failed to unmarshal top-level response")
		require.NotNil(t, topLevelResponse.Data, "'data' field should not be nil")

		var responseBody LoanResponse
		dataBytes, marshalErr := json.Marshal(topLevelResponse.Data)
		require.NoError(t, marshalErr)
		require.NoError(t, json.Unmarshal(dataBytes, &responseBody))

		assert.Equal(t, expectedLoan.ID.String(), responseBody.ID)
		assert.Equal(t, expectedLoan.Principal, responseBody.Principal)
		assert.Equal(t, "2025-01-15", responseBody.DisbursedOn)
		assert.Equal(t, expectedLoan.CapitalBalance+expectedLoan.InterestBalance, responseBody.TotalOutstanding)
		assert.Equal(t, loan.StatusVigente, responseBody.StatusCode)

		mockService.AssertExpectations(t)
	})

	t.Run("InvalidRequestBody", func(t *testing.T) {
		mockService := new(MockLoanService)
		handler := NewLoanHandler(logger, mockService)

		router := setupTestRouter()
		router.POST("/loans", handler.Create)

		req, _ := http.NewRequest(http.MethodPost, "/loans", bytes.NewBufferString(`{"invalid`)) // Malformed JSON
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()

		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		mockService.AssertExpectations(t) // Ensure no service methods were called
	})

	t.Run("InvalidDisbursementDate", func(t *testing.T) {
		mockService := new(MockLoanService)
		handler := NewLoanHandler(logger, mockService)

		router := setupTestRouter()
		router.POST("/loans", handler.Create)

		reqBody := map[string]interface{}{
			"principal":      1000000,
			"term_count":     12,
			"frequency_days": 30,
			"disbursed_on":   "15/01/2025",
		}
		jsonBody, _ := json.Marshal(reqBody)

		req, _ := http.NewRequest(http.MethodPost, "/loans", bytes.NewBuffer(jsonBody))
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()

		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		mockService.AssertExpectations(t)
	})

	t.Run("InvalidTerms", func(t *testing.T) {
		mockService := new(MockLoanService)
		handler := NewLoanHandler(logger, mockService)

		mockService.On("CreateLoan", mock.Anything, mock.Anything).Return(nil, loan.ErrInvalidTerm)

		router := setupTestRouter()
		router.POST("/loans", handler.Create)

		reqBody := CreateLoanRequest{
			Principal:     1000000,
			TermCount:     1, // Binding passes, domain validation rejects
			FrequencyDays: 30,
			DisbursedOn:   "2025-01-15",
		}
		jsonBody, _ := json.Marshal(reqBody)

		req, _ := http.NewRequest(http.MethodPost, "/loans", bytes.NewBuffer(jsonBody))
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()

		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)

		var response Response
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &response))
		require.NotNil(t, response.Error)
		assert.Equal(t, "BAD_REQUEST", response.Error.Code)
		mockService.AssertExpectations(t)
	})

	t.Run("ServiceError", func(t *testing.T) {
		mockService := new(MockLoanService)
		handler := NewLoanHandler(logger, mockService)

		mockService.On("CreateLoan", mock.Anything, mock.Anything).Return(nil, errors.New("database connection lost"))

		router := setupTestRouter()
		router.POST("/loans", handler.Create)

		reqBody := CreateLoanRequest{
			Principal:     1000000,
			TermCount:     12,
			FrequencyDays: 30,
			DisbursedOn:   "2025-01-15",
		}
		jsonBody, _ := json.Marshal(reqBody)

		req, _ := http.NewRequest(http.MethodPost, "/loans", bytes.NewBuffer(jsonBody))
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()

		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusInternalServerError, rr.Code)
		mockService.AssertExpectations(t)
	})
}

func TestLoanHandler_GetByID(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	t.Run("Success", func(t *testing.T) {
		mockService := new(MockLoanService)
		handler := NewLoanHandler(logger, mockService)

		expectedLoan := testLoan()
		mockService.On("GetLoanByID", mock.Anything, expectedLoan.ID).Return(expectedLoan, nil)

		router := setupTestRouter()
		router.GET("/loans/:id", handler.GetByID)

		req, _ := http.NewRequest(http.MethodGet, "/loans/"+expectedLoan.ID.String(), nil)
		rr := httptest.NewRecorder()

		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)

		var topLevelResponse Response
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &topLevelResponse))
		require.NotNil(t, topLevelResponse.Data)

		var responseBody LoanResponse
		dataBytes, _ := json.Marshal(topLevelResponse.Data)
		require.NoError(t, json.Unmarshal(dataBytes, &responseBody))

		assert.Equal(t, expectedLoan.ID.String(), responseBody.ID)
		assert.Equal(t, expectedLoan.CapitalBalance, responseBody.CapitalBalance)
		assert.Equal(t, expectedLoan.InterestBalance, responseBody.InterestBalance)

		mockService.AssertExpectations(t)
	})

	t.Run("InvalidUUID", func(t *testing.T) {
		mockService := new(MockLoanService)
		handler := NewLoanHandler(logger, mockService)

		router := setupTestRouter()
		router.GET("/loans/:id", handler.GetByID)

		req, _ := http.NewRequest(http.MethodGet, "/loans/not-a-uuid", nil)
		rr := httptest.NewRecorder()

		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		mockService.AssertExpectations(t) // No service calls expected
	})

	t.Run("LoanNotFound", func(t *testing.T) {
		mockService := new(MockLoanService)
		handler := NewLoanHandler(logger, mockService)

		loanID := uuid.New()
		mockService.On("GetLoanByID", mock.Anything, loanID).Return(nil, loan.ErrLoanNotFound{LoanID: loanID})

		router := setupTestRouter()
		router.GET("/loans/:id", handler.GetByID)

		req, _ := http.NewRequest(http.MethodGet, "/loans/"+loanID.String(), nil)
		rr := httptest.NewRecorder()

		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusNotFound, rr.Code)
		mockService.AssertExpectations(t)
	})

	t.Run("ServiceError", func(t *testing.T) {
		mockService := new(MockLoanService)
		handler := NewLoanHandler(logger, mockService)

		loanID := uuid.New()
		mockService.On("GetLoanByID", mock.Anything, loanID).Return(nil, errors.New("database connection lost"))

		router := setupTestRouter()
		router.GET("/loans/:id", handler.GetByID)

		req, _ := http.NewRequest(http.MethodGet, "/loans/"+loanID.String(), nil)
		rr := httptest.NewRecorder()

		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusInternalServerError, rr.Code)
		mockService.AssertExpectations(t)
	})
}

func TestLoanHandler_GetStatement(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	t.Run("Success", func(t *testing.T) {
		mockService := new(MockLoanService)
		handler := NewLoanHandler(logger, mockService)

		loanID := uuid.New()
		businessDate := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)
		expectedStatement := &statement.Statement{
			LoanID:       loanID,
			BusinessDate: businessDate,
			Lines: []statement.Line{
				{Installment: 1, CapitalAmount: 74560, CapitalBalance: 74560},
			},
		}
		mockService.On("GetStatement", mock.Anything, loanID).Return(expectedStatement, nil)

		router := setupTestRouter()
		router.GET("/loans/:id/statement", handler.GetStatement)

		req, _ := http.NewRequest(http.MethodGet, "/loans/"+loanID.String()+"/statement", nil)
		rr := httptest.NewRecorder()

		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)

		var topLevelResponse Response
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &topLevelResponse))
		require.NotNil(t, topLevelResponse.Data)

		var responseBody statement.Statement
		dataBytes, _ := json.Marshal(topLevelResponse.Data)
		require.NoError(t, json.Unmarshal(dataBytes, &responseBody))

		assert.Equal(t, loanID, responseBody.LoanID)
		assert.Len(t, responseBody.Lines, 1)

		mockService.AssertExpectations(t)
	})

	t.Run("LoanNotFound", func(t *testing.T) {
		mockService := new(MockLoanService)
		handler := NewLoanHandler(logger, mockService)

		loanID := uuid.New()
		mockService.On("GetStatement", mock.Anything, loanID).Return(nil, loan.ErrLoanNotFound{LoanID: loanID})

		router := setupTestRouter()
		router.GET("/loans/:id/statement", handler.GetStatement)

		req, _ := http.NewRequest(http.MethodGet, "/loans/"+loanID.String()+"/statement", nil)
		rr := httptest.NewRecorder()

		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusNotFound, rr.Code)
		mockService.AssertExpectations(t)
	})
}

var _ service.LoanService = (*MockLoanService)(nil)
