package outbox_poller

import (
	"context"
	"errors"
	"testing"
	"time"

	"log/slog"

	"github.com/cartera-loan-servicing/internal/domain/outbox"
	"github.com/cartera-loan-servicing/internal/domain/payment"
	"github.com/cartera-loan-servicing/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// MockOutboxRepo for testing
type MockOutboxRepo struct {
	mock.Mock
}

func (m *MockOutboxRepo) Create(ctx context.Context, message *outbox.Message) error {
	args := m.Called(ctx, message)
	return args.Error(0)
}

func (m *MockOutboxRepo) GetPending(ctx context.Context, limit int) ([]*outbox.Message, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*outbox.Message), args.Error(1)
}

func (m *MockOutboxRepo) UpdateStatus(ctx context.Context, id int64, status shared.OutboxStatus) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *MockOutboxRepo) IncrementAttempts(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockOutboxRepo) Delete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockOutboxRepo) GetByEventID(ctx context.Context, eventID uuid.UUID) (*outbox.Message, error) {
	args := m.Called(ctx, eventID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*outbox.Message), args.Error(1)
}

func (m *MockOutboxRepo) WithTx(tx pgx.Tx) outbox.Repository {
	args := m.Called(tx)
	return args.Get(0).(outbox.Repository)
}

// MockHistoryRepo for testing
type MockHistoryRepo struct {
	mock.Mock
}

func (m *MockHistoryRepo) Archive(ctx context.Context, event *payment.Event) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockHistoryRepo) GetByEventID(ctx context.Context, eventID uuid.UUID) (*payment.Event, error) {
	args := m.Called(ctx, eventID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.Event), args.Error(1)
}

func (m *MockHistoryRepo) GetByLoanID(ctx context.Context, loanID uuid.UUID, limit, offset int) ([]*payment.Event, error) {
	args := m.Called(ctx, loanID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*payment.Event), args.Error(1)
}

func (m *MockHistoryRepo) CountByLoanID(ctx context.Context, loanID uuid.UUID) (int64, error) {
	args := m.Called(ctx, loanID)
	return args.Get(0).(int64), args.Error(1)
}

// MockEventPublisher for testing
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(ctx context.Context, key string, value interface{}) error {
	args := m.Called(ctx, key, value)
	return args.Error(0)
}

func (m *MockEventPublisher) Close() error {
	args := m.Called()
	return args.Error(0)
}

func TestHistoryPublisher_PublishToHistory(t *testing.T) {
	mockOutboxRepo := &MockOutboxRepo{}
	mockHistoryRepo := &MockHistoryRepo{}
	mockProducer := &MockEventPublisher{}
	logger := slog.Default()

	publisher := NewHistoryPublisher(mockOutboxRepo, mockHistoryRepo, mockProducer, logger)

	eventID := uuid.New()
	loanID := uuid.New()
	event := &payment.Event{
		ID:              eventID,
		LoanID:          loanID,
		Type:            shared.MovementPago,
		PaidOn:          time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
		CapitalApplied:  74560,
		InterestApplied: 20000,
		CorrelationID:   "corr1",
	}

	message, err := outbox.NewMessage(event)
	assert.NoError(t, err)
	message.ID = 1

	tests := []struct {
		name          string
		message       *outbox.Message
		setupMocks    func()
		expectedError error
	}{
		{
			name:    "successful archive and publish",
			message: message,
			setupMocks: func() {
				mockHistoryRepo.On("Archive", mock.Anything, mock.MatchedBy(func(e *payment.Event) bool {
					return e.ID == eventID && e.LoanID == loanID
				})).Return(nil).Once()

				mockProducer.On("Publish", mock.Anything, loanID.String(), mock.Anything).Return(nil).Once()

				mockOutboxRepo.On("UpdateStatus", mock.Anything, int64(1), shared.OutboxStatusProcessed).Return(nil).Once()
			},
			expectedError: nil,
		},
		{
			name:    "event already archived is not an error",
			message: message,
			setupMocks: func() {
				mockHistoryRepo.On("Archive", mock.Anything, mock.Anything).Return(payment.ErrDuplicateEvent{EventID: eventID}).Once()

				mockProducer.On("Publish", mock.Anything, loanID.String(), mock.Anything).Return(nil).Once()

				mockOutboxRepo.On("UpdateStatus", mock.Anything, int64(1), shared.OutboxStatusProcessed).Return(nil).Once()
			},
			expectedError: nil,
		},
		{
			name: "error unmarshalling payload",
			message: &outbox.Message{
				ID:        1,
				EventID:   eventID,
				LoanID:    loanID,
				Status:    shared.OutboxStatusPending,
				Payload:   []byte("invalid json"),
				Attempts:  0,
				CreatedAt: time.Now(),
			},
			setupMocks: func() {
				mockOutboxRepo.On("UpdateStatus", mock.Anything, int64(1), shared.OutboxStatusFailedToPublish).Return(nil).Once()
			},
			expectedError: errors.New("unmarshal payload"),
		},
		{
			name:    "error archiving event",
			message: message,
			setupMocks: func() {
				mockHistoryRepo.On("Archive", mock.Anything, mock.Anything).Return(errors.New("mongo error")).Once()
			},
			expectedError: errors.New("failed to archive payment event"),
		},
		{
			name:    "error publishing to kafka",
			message: message,
			setupMocks: func() {
				mockHistoryRepo.On("Archive", mock.Anything, mock.Anything).Return(nil).Once()

				mockProducer.On("Publish", mock.Anything, loanID.String(), mock.Anything).Return(errors.New("kafka down")).Once()
			},
			expectedError: errors.New("failed to publish payment event"),
		},
		{
			name:    "error updating outbox status",
			message: message,
			setupMocks: func() {
				mockHistoryRepo.On("Archive", mock.Anything, mock.Anything).Return(nil).Once()

				mockProducer.On("Publish", mock.Anything, loanID.String(), mock.Anything).Return(nil).Once()

				mockOutboxRepo.On("UpdateStatus", mock.Anything, int64(1), shared.OutboxStatusProcessed).Return(errors.New("db error")).Once()
			},
			expectedError: errors.New("failed to mark outbox"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockOutboxRepo = &MockOutboxRepo{}
			mockHistoryRepo = &MockHistoryRepo{}
			mockProducer = &MockEventPublisher{}
			publisher = NewHistoryPublisher(mockOutboxRepo, mockHistoryRepo, mockProducer, logger)

			tt.setupMocks()
			ctx := context.Background()

			err := publisher.PublishToHistory(ctx, tt.message)

			if tt.expectedError != nil {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tt.expectedError.Error())
			} else {
				assert.NoError(t, err)
			}

			mockOutboxRepo.AssertExpectations(t)
			mockHistoryRepo.AssertExpectations(t)
			mockProducer.AssertExpectations(t)
		})
	}
}
