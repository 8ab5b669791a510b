package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cartera-loan-servicing/internal/domain/catalog"
	"github.com/cartera-loan-servicing/internal/platform/persistence"
	"github.com/jackc/pgx/v5"
)

// CatalogRepository implements the catalog.Repository interface for PostgreSQL
type CatalogRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewCatalogRepository creates a new PostgreSQL catalog repository
func NewCatalogRepository(logger *slog.Logger, db *persistence.PostgresDB) catalog.Repository {
	return &CatalogRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// GetEntry retrieves one catalog entry by domain and code
func (r *CatalogRepository) GetEntry(ctx context.Context, domain, code string) (*catalog.Entry, error) {
	query := `
		SELECT id, domain, code, label
		FROM catalogs
		WHERE domain = $1 AND code = $2
	`

	var entry catalog.Entry
	err := r.querier.QueryRow(ctx, query, domain, code).Scan(
		&entry.ID,
		&entry.Domain,
		&entry.Code,
		&entry.Label,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, catalog.ErrConfigurationMissing{Domain: domain, Code: code}
		}
		r.logger.Error("Failed to get catalog entry", "domain", domain, "code", code, "error", err)
		return nil, fmt.Errorf("failed to get catalog entry: %w", err)
	}

	return &entry, nil
}

// ListEntries retrieves every entry of a domain
func (r *CatalogRepository) ListEntries(ctx context.Context, domain string) ([]*catalog.Entry, error) {
	query := `
		SELECT id, domain, code, label
		FROM catalogs
		WHERE domain = $1
		ORDER BY code ASC
	`

	rows, err := r.querier.Query(ctx, query, domain)
	if err != nil {
		r.logger.Error("Failed to list catalog entries", "domain", domain, "error", err)
		return nil, fmt.Errorf("failed to list catalog entries: %w", err)
	}
	defer rows.Close()

	var entries []*catalog.Entry
	for rows.Next() {
		var entry catalog.Entry
		if err := rows.Scan(&entry.ID, &entry.Domain, &entry.Code, &entry.Label); err != nil {
			r.logger.Error("Failed to scan catalog entry", "error", err)
			return nil, fmt.Errorf("failed to scan catalog entry: %w", err)
		}
		entries = append(entries, &entry)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error("Error iterating over catalog entries", "error", err)
		return nil, fmt.Errorf("error iterating over catalog entries: %w", err)
	}

	return entries, nil
}

// GetParameter returns the raw parameter value, or "" when unset
func (r *CatalogRepository) GetParameter(ctx context.Context, name string) (string, error) {
	query := `
		SELECT value
		FROM parameters
		WHERE name = $1
	`

	var value string
	err := r.querier.QueryRow(ctx, query, name).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}
		r.logger.Error("Failed to get parameter", "name", name, "error", err)
		return "", fmt.Errorf("failed to get parameter: %w", err)
	}

	return value, nil
}
