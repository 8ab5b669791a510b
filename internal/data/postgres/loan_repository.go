// Package postgres provides PostgreSQL implementations of the domain repositories.
// It handles all database operations while maintaining transaction safety and
// proper error handling for the loan servicing ledger.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cartera-loan-servicing/internal/domain/loan"
	"github.com/cartera-loan-servicing/internal/platform/persistence"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// LoanRepository implements the loan.Repository interface for PostgreSQL
type LoanRepository struct {
	querier persistence.Querier // Can be *pgxpool.Pool or pgx.Tx
	logger  *slog.Logger
}

// NewLoanRepository creates a new PostgreSQL loan repository.
// It expects db.Pool() to satisfy persistence.Querier.
func NewLoanRepository(logger *slog.Logger, db *persistence.PostgresDB) loan.Repository {
	return &LoanRepository{
		querier: db.Pool(), // Initialize with the pool
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction, allowing for atomic operations
// across multiple repository calls. The returned repository will use the provided
// transaction for all database operations.
func (r *LoanRepository) WithTx(tx pgx.Tx) loan.Repository {
	return &LoanRepository{
		querier: tx, // Use the transaction
		logger:  r.logger,
	}
}

// Create stores a new loan in the database
func (r *LoanRepository) Create(ctx context.Context, l *loan.Loan) error {
	query := `
		INSERT INTO loans (id, principal, annual_rate_pct, term_count, frequency_days, bullet,
			disbursed_on, matures_on, capital_balance, interest_balance, mora_balance,
			status_code, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`

	_, err := r.querier.Exec(ctx, query,
		l.ID,
		l.Principal,
		l.AnnualRatePct,
		l.TermCount,
		l.FrequencyDays,
		l.Bullet,
		l.DisbursedOn,
		l.MaturesOn,
		l.CapitalBalance,
		l.InterestBalance,
		l.MoraBalance,
		l.StatusCode,
		l.Version,
		l.CreatedAt,
		l.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create loan", "error", err)
		return fmt.Errorf("failed to create loan: %w", err)
	}

	return nil
}

// GetByID retrieves a loan by its ID
func (r *LoanRepository) GetByID(ctx context.Context, id uuid.UUID) (*loan.Loan, error) {
	query := `
		SELECT id, principal, annual_rate_pct, term_count, frequency_days, bullet,
			disbursed_on, matures_on, capital_balance, interest_balance, mora_balance,
			status_code, version, created_at, updated_at
		FROM loans
		WHERE id = $1
	`

	l, err := r.scanLoan(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, loan.ErrLoanNotFound{LoanID: id}
		}
		r.logger.Error("Failed to get loan", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get loan: %w", err)
	}

	return l, nil
}

// ListActiveIDs returns the IDs of every loan that still accrues, used by the
// end-of-day batch
func (r *LoanRepository) ListActiveIDs(ctx context.Context) ([]uuid.UUID, error) {
	query := `
		SELECT id
		FROM loans
		WHERE status_code = $1
		ORDER BY created_at ASC
	`

	rows, err := r.querier.Query(ctx, query, loan.StatusVigente)
	if err != nil {
		r.logger.Error("Failed to list active loans", "error", err)
		return nil, fmt.Errorf("failed to list active loans: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			r.logger.Error("Failed to scan loan id", "error", err)
			return nil, fmt.Errorf("failed to scan loan id: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error("Error iterating over loan ids", "error", err)
		return nil, fmt.Errorf("error iterating over loan ids: %w", err)
	}

	return ids, nil
}

// Update persists the loan using optimistic locking on the version column.
// Returns ErrConcurrentModification if the loan was modified between read and update.
func (r *LoanRepository) Update(ctx context.Context, l *loan.Loan) error {
	query := `
		UPDATE loans
		SET capital_balance = $1, interest_balance = $2, mora_balance = $3,
			status_code = $4, version = $5, updated_at = $6
		WHERE id = $7 AND version = $8
	`

	result, err := r.querier.Exec(ctx, query,
		l.CapitalBalance,
		l.InterestBalance,
		l.MoraBalance,
		l.StatusCode,
		l.Version,
		l.UpdatedAt,
		l.ID,
		l.Version-1, // Check previous version for optimistic locking
	)
	if err != nil {
		r.logger.Error("Failed to update loan", "id", l.ID.String(), "error", err)
		return fmt.Errorf("failed to update loan: %w", err)
	}

	if result.RowsAffected() == 0 {
		return loan.ErrConcurrentModification{LoanID: l.ID}
	}

	return nil
}

// LockForUpdate obtains a pessimistic lock on the loan and returns its current state.
// This should be used within a transaction when strong consistency is required.
func (r *LoanRepository) LockForUpdate(ctx context.Context, id uuid.UUID) (*loan.Loan, error) {
	query := `
		SELECT id, principal, annual_rate_pct, term_count, frequency_days, bullet,
			disbursed_on, matures_on, capital_balance, interest_balance, mora_balance,
			status_code, version, created_at, updated_at
		FROM loans
		WHERE id = $1
		FOR UPDATE
	`

	l, err := r.scanLoan(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, loan.ErrLoanNotFound{LoanID: id}
		}
		r.logger.Error("Failed to lock loan for update", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to lock loan for update: %w", err)
	}

	return l, nil
}

func (r *LoanRepository) scanLoan(row pgx.Row) (*loan.Loan, error) {
	var l loan.Loan
	err := row.Scan(
		&l.ID,
		&l.Principal,
		&l.AnnualRatePct,
		&l.TermCount,
		&l.FrequencyDays,
		&l.Bullet,
		&l.DisbursedOn,
		&l.MaturesOn,
		&l.CapitalBalance,
		&l.InterestBalance,
		&l.MoraBalance,
		&l.StatusCode,
		&l.Version,
		&l.CreatedAt,
		&l.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &l, nil
}
