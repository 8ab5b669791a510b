package clock

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

const businessDateParam = "business_date"

// ParameterSource reads named system parameters. The catalog repository
// satisfies it.
type ParameterSource interface {
	GetParameter(ctx context.Context, name string) (string, error)
}

// ParameterProvider resolves the business date from the business_date system
// parameter. Operations can hold the date back during a delayed day close;
// when the parameter is unset the provider falls back to the wall-clock UTC
// date.
type ParameterProvider struct {
	params ParameterSource
	logger *slog.Logger
}

func NewParameterProvider(params ParameterSource, logger *slog.Logger) *ParameterProvider {
	return &ParameterProvider{
		params: params,
		logger: logger,
	}
}

func (p *ParameterProvider) Today(ctx context.Context) (time.Time, error) {
	raw, err := p.params.GetParameter(ctx, businessDateParam)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to read business date parameter: %w", err)
	}
	if raw == "" {
		return Midnight(time.Now()), nil
	}

	date, err := time.Parse("2006-01-02", raw)
	if err != nil {
		p.logger.Warn("Malformed business date parameter, falling back to wall clock", "value", raw, "error", err)
		return Midnight(time.Now()), nil
	}
	return Midnight(date), nil
}
