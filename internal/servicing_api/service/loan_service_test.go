package service

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/cartera-loan-servicing/internal/clock"
	"github.com/cartera-loan-servicing/internal/domain/catalog"
	"github.com/cartera-loan-servicing/internal/domain/loan"
	"github.com/cartera-loan-servicing/internal/domain/obligation"
	"github.com/cartera-loan-servicing/internal/domain/shared"
	"github.com/cartera-loan-servicing/internal/engine/reconcile"
	"github.com/cartera-loan-servicing/internal/engine/statement"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockTxManager runs the transactional function without a real transaction
type MockTxManager struct {
	mock.Mock
}

func (m *MockTxManager) ExecuteTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	args := m.Called(ctx)
	if args.Error(0) != nil {
		return args.Error(0)
	}
	return fn(nil)
}

// MockLoanRepo for testing
type MockLoanRepo struct {
	mock.Mock
}

func (m *MockLoanRepo) Create(ctx context.Context, l *loan.Loan) error {
	args := m.Called(ctx, l)
	return args.Error(0)
}

func (m *MockLoanRepo) GetByID(ctx context.Context, id uuid.UUID) (*loan.Loan, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*loan.Loan), args.Error(1)
}

func (m *MockLoanRepo) ListActiveIDs(ctx context.Context) ([]uuid.UUID, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]uuid.UUID), args.Error(1)
}

func (m *MockLoanRepo) Update(ctx context.Context, l *loan.Loan) error {
	args := m.Called(ctx, l)
	return args.Error(0)
}

func (m *MockLoanRepo) LockForUpdate(ctx context.Context, id uuid.UUID) (*loan.Loan, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*loan.Loan), args.Error(1)
}

func (m *MockLoanRepo) WithTx(tx pgx.Tx) loan.Repository {
	return m
}

// MockComponentRepo for testing
type MockComponentRepo struct {
	mock.Mock
}

func (m *MockComponentRepo) Create(ctx context.Context, c *obligation.Component) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

func (m *MockComponentRepo) CreateBatch(ctx context.Context, components []*obligation.Component) error {
	args := m.Called(ctx, components)
	return args.Error(0)
}

func (m *MockComponentRepo) GetByLoanID(ctx context.Context, loanID uuid.UUID) ([]*obligation.Component, error) {
	args := m.Called(ctx, loanID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*obligation.Component), args.Error(1)
}

func (m *MockComponentRepo) GetOpenByLoanID(ctx context.Context, loanID uuid.UUID) ([]*obligation.Component, error) {
	args := m.Called(ctx, loanID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*obligation.Component), args.Error(1)
}

func (m *MockComponentRepo) GetOverdue(ctx context.Context, loanID uuid.UUID, businessDate time.Time) ([]*obligation.Component, error) {
	args := m.Called(ctx, loanID, businessDate)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*obligation.Component), args.Error(1)
}

func (m *MockComponentRepo) MoraExists(ctx context.Context, loanID uuid.UUID, installment int, accruedOn time.Time) (bool, error) {
	args := m.Called(ctx, loanID, installment, accruedOn)
	return args.Bool(0), args.Error(1)
}

func (m *MockComponentRepo) UpdateBalance(ctx context.Context, c *obligation.Component) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

func (m *MockComponentRepo) SumBalancesByKind(ctx context.Context, loanID uuid.UUID) (map[shared.Kind]int64, error) {
	args := m.Called(ctx, loanID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[shared.Kind]int64), args.Error(1)
}

func (m *MockComponentRepo) WithTx(tx pgx.Tx) obligation.Repository {
	return m
}

// MockCatalogService for testing
type MockCatalogService struct {
	mock.Mock
}

func (m *MockCatalogService) RequireEntry(ctx context.Context, domain, code string) (*catalog.Entry, error) {
	args := m.Called(ctx, domain, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.Entry), args.Error(1)
}

func (m *MockCatalogService) KindLabel(ctx context.Context, code string) string {
	args := m.Called(ctx, code)
	return args.String(0)
}

func (m *MockCatalogService) MoraMonthlyRate(ctx context.Context) (decimal.Decimal, error) {
	args := m.Called(ctx)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestLoanService_CreateLoan(t *testing.T) {
	logger := newTestLogger()
	disbursedOn := time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)

	params := NewLoanParams{
		Principal:     1000000, // 10,000.00
		AnnualRatePct: 24,
		TermCount:     12,
		FrequencyDays: 30,
		DisbursedOn:   disbursedOn,
	}

	t.Run("Success", func(t *testing.T) {
		mockTx := new(MockTxManager)
		mockLoans := new(MockLoanRepo)
		mockComponents := new(MockComponentRepo)
		reconciler := reconcile.NewReconciler(logger)

		svc := NewLoanService(mockTx, mockLoans, mockComponents, reconciler, nil, logger)

		mockTx.On("ExecuteTx", mock.Anything).Return(nil).Once()
		mockLoans.On("Create", mock.Anything, mock.MatchedBy(func(l *loan.Loan) bool {
			return l.Principal == params.Principal && l.StatusCode == loan.StatusVigente
		})).Return(nil).Once()
		mockComponents.On("CreateBatch", mock.Anything, mock.MatchedBy(func(components []*obligation.Component) bool {
			// 12 installments, each with a capital and an interest slice
			return len(components) == 24
		})).Return(nil).Once()
		mockComponents.On("SumBalancesByKind", mock.Anything, mock.Anything).Return(map[shared.Kind]int64{
			shared.KindCapital: 1000000,
			shared.KindInteres: 134720,
		}, nil).Once()
		mockLoans.On("Update", mock.Anything, mock.Anything).Return(nil).Once()

		l, err := svc.CreateLoan(context.Background(), params)
		require.NoError(t, err)
		require.NotNil(t, l)
		assert.Equal(t, int64(1000000), l.CapitalBalance)
		assert.Equal(t, int64(134720), l.InterestBalance)
		assert.Equal(t, int64(0), l.MoraBalance)

		mockTx.AssertExpectations(t)
		mockLoans.AssertExpectations(t)
		mockComponents.AssertExpectations(t)
	})

	t.Run("InvalidTerms", func(t *testing.T) {
		mockTx := new(MockTxManager)
		mockLoans := new(MockLoanRepo)
		mockComponents := new(MockComponentRepo)
		reconciler := reconcile.NewReconciler(logger)

		svc := NewLoanService(mockTx, mockLoans, mockComponents, reconciler, nil, logger)

		bad := params
		bad.Principal = 0

		l, err := svc.CreateLoan(context.Background(), bad)
		require.Error(t, err)
		assert.Nil(t, l)
		assert.ErrorIs(t, err, loan.ErrInvalidPrincipal)

		mockLoans.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("TransactionError", func(t *testing.T) {
		mockTx := new(MockTxManager)
		mockLoans := new(MockLoanRepo)
		mockComponents := new(MockComponentRepo)
		reconciler := reconcile.NewReconciler(logger)

		svc := NewLoanService(mockTx, mockLoans, mockComponents, reconciler, nil, logger)

		mockTx.On("ExecuteTx", mock.Anything).Return(errors.New("tx begin failed")).Once()

		l, err := svc.CreateLoan(context.Background(), params)
		require.Error(t, err)
		assert.Nil(t, l)
	})
}

func TestLoanService_GetLoanByID(t *testing.T) {
	logger := newTestLogger()
	loanID := uuid.New()

	t.Run("Success", func(t *testing.T) {
		mockLoans := new(MockLoanRepo)
		svc := NewLoanService(new(MockTxManager), mockLoans, new(MockComponentRepo), reconcile.NewReconciler(logger), nil, logger)

		expected := &loan.Loan{ID: loanID, Principal: 1000000}
		mockLoans.On("GetByID", mock.Anything, loanID).Return(expected, nil).Once()

		l, err := svc.GetLoanByID(context.Background(), loanID)
		require.NoError(t, err)
		assert.Equal(t, expected, l)
		mockLoans.AssertExpectations(t)
	})

	t.Run("NotFound", func(t *testing.T) {
		mockLoans := new(MockLoanRepo)
		svc := NewLoanService(new(MockTxManager), mockLoans, new(MockComponentRepo), reconcile.NewReconciler(logger), nil, logger)

		mockLoans.On("GetByID", mock.Anything, loanID).Return(nil, loan.ErrLoanNotFound{LoanID: loanID}).Once()

		l, err := svc.GetLoanByID(context.Background(), loanID)
		require.Error(t, err)
		assert.Nil(t, l)

		var notFound loan.ErrLoanNotFound
		assert.ErrorAs(t, err, &notFound)
	})
}

func TestLoanService_GetStatement(t *testing.T) {
	logger := newTestLogger()
	loanID := uuid.New()
	businessDate := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)

	mockLoans := new(MockLoanRepo)
	mockComponents := new(MockComponentRepo)
	mockCatalog := new(MockCatalogService)

	builder := statement.NewBuilder(mockLoans, mockComponents, mockCatalog, clock.FixedProvider{Date: businessDate}, logger)
	svc := NewLoanService(new(MockTxManager), mockLoans, mockComponents, reconcile.NewReconciler(logger), builder, logger)

	dueDate := time.Date(2025, 2, 14, 0, 0, 0, 0, time.UTC)
	capital, err := obligation.NewComponent(loanID, shared.KindCapital, 74560, &dueDate, 1)
	require.NoError(t, err)

	mockLoans.On("GetByID", mock.Anything, loanID).Return(&loan.Loan{ID: loanID}, nil).Once()
	mockComponents.On("GetByLoanID", mock.Anything, loanID).Return([]*obligation.Component{capital}, nil).Once()
	mockCatalog.On("MoraMonthlyRate", mock.Anything).Return(decimal.NewFromInt(3), nil).Once()

	stmt, err := svc.GetStatement(context.Background(), loanID)
	require.NoError(t, err)
	require.NotNil(t, stmt)
	assert.Equal(t, loanID, stmt.LoanID)
	assert.Len(t, stmt.Lines, 1)
	assert.Equal(t, shared.InstallmentVencida, stmt.Lines[0].Status)
}

var _ LoanService = (*LoanServiceImpl)(nil)
