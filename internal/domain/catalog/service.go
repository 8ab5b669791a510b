package catalog

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// cacheTTL bounds how stale a cached entry or parameter may get. Catalogs
// change rarely; a minute keeps hot paths off the database without making
// operational changes painful.
const cacheTTL = time.Minute

type cachedEntry struct {
	entry     *Entry
	fetchedAt time.Time
}

type cachedRate struct {
	rate      decimal.Decimal
	fetchedAt time.Time
}

type service struct {
	repo   Repository
	logger *slog.Logger

	mu      sync.RWMutex
	entries map[string]cachedEntry
	rate    *cachedRate
}

// NewService creates the catalog service backed by the given repository
func NewService(repo Repository, logger *slog.Logger) Service {
	return &service{
		repo:    repo,
		logger:  logger,
		entries: make(map[string]cachedEntry),
	}
}

func (s *service) RequireEntry(ctx context.Context, domain, code string) (*Entry, error) {
	key := domain + "/" + code

	s.mu.RLock()
	cached, ok := s.entries[key]
	s.mu.RUnlock()
	if ok && time.Since(cached.fetchedAt) < cacheTTL {
		return cached.entry, nil
	}

	entry, err := s.repo.GetEntry(ctx, domain, code)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.entries[key] = cachedEntry{entry: entry, fetchedAt: time.Now()}
	s.mu.Unlock()

	return entry, nil
}

func (s *service) KindLabel(ctx context.Context, code string) string {
	entry, err := s.RequireEntry(ctx, DomainObligationKind, code)
	if err != nil {
		return code
	}
	return entry.Label
}

func (s *service) MoraMonthlyRate(ctx context.Context) (decimal.Decimal, error) {
	s.mu.RLock()
	cached := s.rate
	s.mu.RUnlock()
	if cached != nil && time.Since(cached.fetchedAt) < cacheTTL {
		return cached.rate, nil
	}

	raw, err := s.repo.GetParameter(ctx, ParamMoraMonthlyRate)
	if err != nil {
		return decimal.Zero, err
	}

	rate := DefaultMoraMonthlyRate
	if raw != "" {
		parsed, err := decimal.NewFromString(raw)
		if err != nil || parsed.IsNegative() {
			s.logger.Warn("Invalid mora_monthly_rate parameter, using default",
				"value", raw,
				"default", DefaultMoraMonthlyRate.String(),
			)
		} else {
			rate = parsed
		}
	}

	s.mu.Lock()
	s.rate = &cachedRate{rate: rate, fetchedAt: time.Now()}
	s.mu.Unlock()

	return rate, nil
}
