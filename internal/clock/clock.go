// Package clock supplies the system business date. All overdue and accrual
// checks use this date, never the wall clock directly, because the business
// day may lag real time until it is closed.
package clock

import (
	"context"
	"time"
)

// Provider returns the current business date, truncated to midnight UTC
type Provider interface {
	Today(ctx context.Context) (time.Time, error)
}

// Midnight truncates a timestamp to its UTC calendar date
func Midnight(t time.Time) time.Time {
	return t.UTC().Truncate(24 * time.Hour)
}

// SystemProvider falls back to the wall-clock UTC date. Used when no
// business calendar is configured and in the daemon's ticker path.
type SystemProvider struct{}

func (SystemProvider) Today(_ context.Context) (time.Time, error) {
	return Midnight(time.Now()), nil
}

// FixedProvider always returns the same date. Used in tests.
type FixedProvider struct {
	Date time.Time
}

func (p FixedProvider) Today(_ context.Context) (time.Time, error) {
	return Midnight(p.Date), nil
}
