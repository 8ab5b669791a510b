package catalog

import "context"

// Repository defines read-only access to catalog entries and parameters
type Repository interface {
	GetEntry(ctx context.Context, domain, code string) (*Entry, error)
	ListEntries(ctx context.Context, domain string) ([]*Entry, error)

	// GetParameter returns the raw parameter value, or "" when unset
	GetParameter(ctx context.Context, name string) (string, error)
}
