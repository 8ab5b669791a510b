package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cartera-loan-servicing/internal/domain/fund"
	"github.com/cartera-loan-servicing/internal/platform/persistence"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// FundRepository implements the fund.Repository interface for PostgreSQL
type FundRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewFundRepository creates a new PostgreSQL fund repository
func NewFundRepository(logger *slog.Logger, db *persistence.PostgresDB) fund.Repository {
	return &FundRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction for atomic operations
func (r *FundRepository) WithTx(tx pgx.Tx) fund.Repository {
	return &FundRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// ResolveByChannel returns the fund mapped to a payment channel, or
// (nil, nil) when the channel has no fund associated
func (r *FundRepository) ResolveByChannel(ctx context.Context, channelCode string) (*fund.Fund, error) {
	query := `
		SELECT f.id, f.name, f.balance, f.version, f.created_at, f.updated_at
		FROM funds f
		JOIN fund_channels fc ON fc.fund_id = f.id
		WHERE fc.channel_code = $1
	`

	var f fund.Fund
	err := r.querier.QueryRow(ctx, query, channelCode).Scan(
		&f.ID,
		&f.Name,
		&f.Balance,
		&f.Version,
		&f.CreatedAt,
		&f.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil // Unmapped channel: collections simply skip the fund ledger
		}
		r.logger.Error("Failed to resolve fund by channel", "channel", channelCode, "error", err)
		return nil, fmt.Errorf("failed to resolve fund by channel: %w", err)
	}

	return &f, nil
}

// Credit records a fund movement and increases the cached fund balance
func (r *FundRepository) Credit(ctx context.Context, fundID uuid.UUID, amount int64, movedOn time.Time, memo, actor string) error {
	if amount <= 0 {
		return fund.ErrInvalidCredit
	}

	movementQuery := `
		INSERT INTO fund_movements (id, fund_id, amount, moved_on, memo, actor, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.querier.Exec(ctx, movementQuery,
		uuid.New(),
		fundID,
		amount,
		movedOn,
		memo,
		actor,
		time.Now(),
	)
	if err != nil {
		r.logger.Error("Failed to create fund movement", "fund_id", fundID.String(), "error", err)
		return fmt.Errorf("failed to create fund movement: %w", err)
	}

	balanceQuery := `
		UPDATE funds
		SET balance = balance + $1, version = version + 1, updated_at = NOW()
		WHERE id = $2
	`

	result, err := r.querier.Exec(ctx, balanceQuery, amount, fundID)
	if err != nil {
		r.logger.Error("Failed to credit fund", "fund_id", fundID.String(), "error", err)
		return fmt.Errorf("failed to credit fund: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fund.ErrFundNotFound{FundID: fundID}
	}

	return nil
}
