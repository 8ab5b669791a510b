package fund

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ErrInvalidCredit indicates a non-positive credit amount
var ErrInvalidCredit = errors.New("fund credit amount must be positive")

// Fund is a cash fund associated with one or more payment channels.
// Collections through a mapped channel credit the fund.
type Fund struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Balance   int64     `json:"balance"` // Stored in cents/minor units
	Version   int       `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Movement is an immutable fund ledger line
type Movement struct {
	ID        uuid.UUID `json:"id"`
	FundID    uuid.UUID `json:"fund_id"`
	Amount    int64     `json:"amount"`
	MovedOn   time.Time `json:"moved_on"`
	Memo      string    `json:"memo"`
	Actor     string    `json:"actor"`
	CreatedAt time.Time `json:"created_at"`
}

// Repository defines fund ledger operations. ResolveByChannel returning
// (nil, nil) means the channel has no fund associated, which is not an error.
type Repository interface {
	ResolveByChannel(ctx context.Context, channelCode string) (*Fund, error)
	Credit(ctx context.Context, fundID uuid.UUID, amount int64, movedOn time.Time, memo, actor string) error
	WithTx(tx pgx.Tx) Repository
}

// ErrFundNotFound indicates missing fund
type ErrFundNotFound struct {
	FundID uuid.UUID
}

func (e ErrFundNotFound) Error() string {
	return "fund not found: " + e.FundID.String()
}
