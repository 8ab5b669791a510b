// Package mongo provides the MongoDB read-model archive of payment events.
// The archive is populated asynchronously from the transactional outbox and
// serves the account history queries without touching the PostgreSQL ledger.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/cartera-loan-servicing/internal/domain/payment"
)

const (
	// HistoryCollectionName is the name of the payment history collection in MongoDB
	HistoryCollectionName = "payment_history"
)

// HistoryRepository implements the payment.HistoryRepository interface for MongoDB
type HistoryRepository struct {
	db     *mongo.Database
	logger *slog.Logger
}

// NewHistoryRepository creates a new MongoDB payment history repository
func NewHistoryRepository(logger *slog.Logger, db *mongo.Database) payment.HistoryRepository {
	return &HistoryRepository{
		db:     db,
		logger: logger,
	}
}

// Archive stores a payment event in the read model after checking for
// duplicates. Returns ErrDuplicateEvent if the event is already archived,
// which the poller treats as success.
func (r *HistoryRepository) Archive(ctx context.Context, event *payment.Event) error {
	collection := r.db.Collection(HistoryCollectionName)

	existing, err := r.GetByEventID(ctx, event.ID)
	var notFound payment.ErrEventNotFound
	if err != nil && !errors.As(err, &notFound) {
		r.logger.Error("Failed to check for archived payment event",
			"event_id", event.ID.String(),
			"error", err)
		return fmt.Errorf("failed to check for archived payment event: %w", err)
	}

	if existing != nil {
		return payment.ErrDuplicateEvent{EventID: event.ID}
	}

	_, err = collection.InsertOne(ctx, event)
	if err != nil {
		r.logger.Error("Failed to archive payment event",
			"event_id", event.ID.String(),
			"error", err)
		return fmt.Errorf("failed to archive payment event: %w", err)
	}

	return nil
}

// GetByEventID retrieves an archived payment event by its ID.
// Returns ErrEventNotFound if no event exists.
func (r *HistoryRepository) GetByEventID(ctx context.Context, eventID uuid.UUID) (*payment.Event, error) {
	collection := r.db.Collection(HistoryCollectionName)

	filter := bson.M{"event_id": eventID}
	var event payment.Event
	err := collection.FindOne(ctx, filter).Decode(&event)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, payment.ErrEventNotFound{EventID: eventID}
		}
		r.logger.Error("Failed to get archived payment event",
			"event_id", eventID.String(),
			"error", err)
		return nil, fmt.Errorf("failed to get archived payment event: %w", err)
	}

	return &event, nil
}

// GetByLoanID retrieves paginated archived events for a loan.
// Results are sorted by creation time in descending order (newest first).
func (r *HistoryRepository) GetByLoanID(ctx context.Context, loanID uuid.UUID, limit, offset int) ([]*payment.Event, error) {
	collection := r.db.Collection(HistoryCollectionName)

	filter := bson.M{"loan_id": loanID}
	opts := options.Find().
		SetSort(bson.M{"created_at": -1}). // Sort by created_at in descending order
		SetSkip(int64(offset)).
		SetLimit(int64(limit))

	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		r.logger.Error("Failed to get payment history",
			"loan_id", loanID.String(),
			"error", err)
		return nil, fmt.Errorf("failed to get payment history: %w", err)
	}
	defer cursor.Close(ctx)

	var events []*payment.Event
	if err := cursor.All(ctx, &events); err != nil {
		r.logger.Error("Failed to decode payment history",
			"loan_id", loanID.String(),
			"error", err)
		return nil, fmt.Errorf("failed to decode payment history: %w", err)
	}

	return events, nil
}

// CountByLoanID counts the archived events for a loan
func (r *HistoryRepository) CountByLoanID(ctx context.Context, loanID uuid.UUID) (int64, error) {
	collection := r.db.Collection(HistoryCollectionName)

	filter := bson.M{"loan_id": loanID}
	count, err := collection.CountDocuments(ctx, filter)
	if err != nil {
		r.logger.Error("Failed to count payment history",
			"loan_id", loanID.String(),
			"error", err)
		return 0, fmt.Errorf("failed to count payment history: %w", err)
	}

	return count, nil
}
