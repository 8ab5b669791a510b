package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cartera-loan-servicing/internal/domain/fund"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFundRepository_ResolveByChannel(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &FundRepository{querier: mock, logger: logger}

	query := `
		SELECT f.id, f.name, f.balance, f.version, f.created_at, f.updated_at
		FROM funds f
		JOIN fund_channels fc ON fc.fund_id = f.id
		WHERE fc.channel_code = \$1
	`

	t.Run("mapped channel", func(t *testing.T) {
		fundID := uuid.New()
		now := time.Now()
		rows := pgxmock.NewRows([]string{"id", "name", "balance", "version", "created_at", "updated_at"}).
			AddRow(fundID, "Caja principal", int64(500000), 2, now, now)
		mock.ExpectQuery(query).WithArgs("CAJA").WillReturnRows(rows)

		f, err := repo.ResolveByChannel(ctx, "CAJA")
		require.NoError(t, err)
		require.NotNil(t, f)
		assert.Equal(t, fundID, f.ID)
		assert.Equal(t, "Caja principal", f.Name)
		assert.Equal(t, int64(500000), f.Balance)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unmapped channel is not an error", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs("TRANSFERENCIA").WillReturnError(pgx.ErrNoRows)

		f, err := repo.ResolveByChannel(ctx, "TRANSFERENCIA")
		assert.NoError(t, err)
		assert.Nil(t, f)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("query failure", func(t *testing.T) {
		expectedErr := errors.New("db error")
		mock.ExpectQuery(query).WithArgs("CAJA").WillReturnError(expectedErr)

		f, err := repo.ResolveByChannel(ctx, "CAJA")
		assert.Nil(t, f)
		assert.ErrorIs(t, err, expectedErr)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestFundRepository_Credit(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &FundRepository{querier: mock, logger: logger}
	fundID := uuid.New()
	movedOn := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

	movementQuery := `
		INSERT INTO fund_movements \(id, fund_id, amount, moved_on, memo, actor, created_at\)
		VALUES \(\$1, \$2, \$3, \$4, \$5, \$6, \$7\)
	`
	balanceQuery := `
		UPDATE funds
		SET balance = balance \+ \$1, version = version \+ 1, updated_at = NOW\(\)
		WHERE id = \$2
	`

	t.Run("success", func(t *testing.T) {
		mock.ExpectExec(movementQuery).
			WithArgs(pgxmock.AnyArg(), fundID, int64(94560), movedOn, "PAGO 945.60", "teller01", pgxmock.AnyArg()).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		mock.ExpectExec(balanceQuery).
			WithArgs(int64(94560), fundID).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		err := repo.Credit(ctx, fundID, 94560, movedOn, "PAGO 945.60", "teller01")
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("non-positive amount", func(t *testing.T) {
		err := repo.Credit(ctx, fundID, 0, movedOn, "", "")
		assert.ErrorIs(t, err, fund.ErrInvalidCredit)
	})

	t.Run("missing fund", func(t *testing.T) {
		mock.ExpectExec(movementQuery).
			WithArgs(pgxmock.AnyArg(), fundID, int64(100), movedOn, "memo", "actor", pgxmock.AnyArg()).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		mock.ExpectExec(balanceQuery).
			WithArgs(int64(100), fundID).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		err := repo.Credit(ctx, fundID, 100, movedOn, "memo", "actor")
		require.Error(t, err)

		var notFound fund.ErrFundNotFound
		assert.ErrorAs(t, err, &notFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("movement insert failure", func(t *testing.T) {
		expectedErr := errors.New("db error")
		mock.ExpectExec(movementQuery).
			WithArgs(pgxmock.AnyArg(), fundID, int64(100), movedOn, "memo", "actor", pgxmock.AnyArg()).
			WillReturnError(expectedErr)

		err := repo.Credit(ctx, fundID, 100, movedOn, "memo", "actor")
		assert.ErrorIs(t, err, expectedErr)
		assert.Contains(t, err.Error(), "failed to create fund movement")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
