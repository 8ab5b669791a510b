package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cartera-loan-servicing/internal/domain/obligation"
	"github.com/cartera-loan-servicing/internal/domain/shared"
	"github.com/cartera-loan-servicing/internal/platform/persistence"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const componentColumns = "id, loan_id, kind, amount, balance, due_date, installment, status, accrued_on, created_at"

// ObligationRepository implements the obligation.Repository interface for PostgreSQL
type ObligationRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewObligationRepository creates a new PostgreSQL obligation component repository
func NewObligationRepository(logger *slog.Logger, db *persistence.PostgresDB) obligation.Repository {
	return &ObligationRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction for atomic operations
func (r *ObligationRepository) WithTx(tx pgx.Tx) obligation.Repository {
	return &ObligationRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Create stores a new obligation component
func (r *ObligationRepository) Create(ctx context.Context, c *obligation.Component) error {
	query := `
		INSERT INTO obligation_components (id, loan_id, kind, amount, balance, due_date, installment, status, accrued_on, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.querier.Exec(ctx, query,
		c.ID,
		c.LoanID,
		c.Kind,
		c.Amount,
		c.Balance,
		c.DueDate,
		c.Installment,
		c.Status,
		c.AccruedOn,
		c.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create obligation component",
			"loan_id", c.LoanID.String(),
			"kind", string(c.Kind),
			"error", err,
		)
		return fmt.Errorf("failed to create obligation component: %w", err)
	}

	return nil
}

// CreateBatch stores a set of components, used when a freshly generated
// schedule is persisted. The caller's transaction makes the batch atomic.
func (r *ObligationRepository) CreateBatch(ctx context.Context, components []*obligation.Component) error {
	if len(components) == 0 {
		return nil
	}

	for _, c := range components {
		if err := r.Create(ctx, c); err != nil {
			return err
		}
	}

	return nil
}

// GetByLoanID retrieves every component of a loan ordered for display
func (r *ObligationRepository) GetByLoanID(ctx context.Context, loanID uuid.UUID) ([]*obligation.Component, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM obligation_components
		WHERE loan_id = $1
		ORDER BY installment ASC, due_date ASC NULLS LAST, created_at ASC
	`, componentColumns)

	return r.queryComponents(ctx, query, loanID)
}

// GetOpenByLoanID retrieves components that still carry debt
func (r *ObligationRepository) GetOpenByLoanID(ctx context.Context, loanID uuid.UUID) ([]*obligation.Component, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM obligation_components
		WHERE loan_id = $1 AND balance > 0
		ORDER BY due_date ASC NULLS LAST, installment ASC
	`, componentColumns)

	return r.queryComponents(ctx, query, loanID)
}

// GetOverdue retrieves open capital and interest components whose due date is
// strictly before the business date. Mora components never accrue on
// themselves, so they are excluded.
func (r *ObligationRepository) GetOverdue(ctx context.Context, loanID uuid.UUID, businessDate time.Time) ([]*obligation.Component, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM obligation_components
		WHERE loan_id = $1 AND balance > 0 AND kind != $2 AND due_date < $3
		ORDER BY installment ASC
	`, componentColumns)

	return r.queryComponents(ctx, query, loanID, shared.KindMora, businessDate)
}

// MoraExists checks the per-day accrual idempotency key
func (r *ObligationRepository) MoraExists(ctx context.Context, loanID uuid.UUID, installment int, accruedOn time.Time) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM obligation_components
			WHERE loan_id = $1 AND installment = $2 AND accrued_on = $3 AND kind = $4
		)
	`

	var exists bool
	err := r.querier.QueryRow(ctx, query, loanID, installment, accruedOn, shared.KindMora).Scan(&exists)
	if err != nil {
		r.logger.Error("Failed to check mora accrual existence",
			"loan_id", loanID.String(),
			"installment", installment,
			"error", err,
		)
		return false, fmt.Errorf("failed to check mora accrual existence: %w", err)
	}

	return exists, nil
}

// UpdateBalance persists a reduced balance and its derived status
func (r *ObligationRepository) UpdateBalance(ctx context.Context, c *obligation.Component) error {
	query := `
		UPDATE obligation_components
		SET balance = $1, status = $2
		WHERE id = $3
	`

	result, err := r.querier.Exec(ctx, query, c.Balance, c.Status, c.ID)
	if err != nil {
		r.logger.Error("Failed to update obligation component balance", "id", c.ID.String(), "error", err)
		return fmt.Errorf("failed to update obligation component balance: %w", err)
	}

	if result.RowsAffected() == 0 {
		return obligation.ErrComponentNotFound{ComponentID: c.ID}
	}

	return nil
}

// SumBalancesByKind aggregates open balances per kind for cache reconciliation
func (r *ObligationRepository) SumBalancesByKind(ctx context.Context, loanID uuid.UUID) (map[shared.Kind]int64, error) {
	query := `
		SELECT kind, COALESCE(SUM(balance), 0)
		FROM obligation_components
		WHERE loan_id = $1 AND balance > 0
		GROUP BY kind
	`

	rows, err := r.querier.Query(ctx, query, loanID)
	if err != nil {
		r.logger.Error("Failed to sum obligation balances", "loan_id", loanID.String(), "error", err)
		return nil, fmt.Errorf("failed to sum obligation balances: %w", err)
	}
	defer rows.Close()

	sums := make(map[shared.Kind]int64)
	for rows.Next() {
		var kind shared.Kind
		var sum int64
		if err := rows.Scan(&kind, &sum); err != nil {
			r.logger.Error("Failed to scan balance sum", "error", err)
			return nil, fmt.Errorf("failed to scan balance sum: %w", err)
		}
		sums[kind] = sum
	}

	if err := rows.Err(); err != nil {
		r.logger.Error("Error iterating over balance sums", "error", err)
		return nil, fmt.Errorf("error iterating over balance sums: %w", err)
	}

	return sums, nil
}

func (r *ObligationRepository) queryComponents(ctx context.Context, query string, args ...interface{}) ([]*obligation.Component, error) {
	rows, err := r.querier.Query(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to query obligation components", "error", err)
		return nil, fmt.Errorf("failed to query obligation components: %w", err)
	}
	defer rows.Close()

	var components []*obligation.Component
	for rows.Next() {
		var c obligation.Component
		err := rows.Scan(
			&c.ID,
			&c.LoanID,
			&c.Kind,
			&c.Amount,
			&c.Balance,
			&c.DueDate,
			&c.Installment,
			&c.Status,
			&c.AccruedOn,
			&c.CreatedAt,
		)
		if err != nil {
			r.logger.Error("Failed to scan obligation component", "error", err)
			return nil, fmt.Errorf("failed to scan obligation component: %w", err)
		}
		components = append(components, &c)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error("Error iterating over obligation components", "error", err)
		return nil, fmt.Errorf("error iterating over obligation components: %w", err)
	}

	return components, nil
}
