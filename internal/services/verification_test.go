package services

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/livingvectors/lv-api/internal/database"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupVerificationService(t *testing.T) (*VerificationService, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	return NewVerificationService(&database.DB{Pool: mock}), mock
}

func TestVerificationService_Create(t *testing.T) {
	svc, mock := setupVerificationService(t)

	mock.ExpectExec(`INSERT INTO verification_tokens`).
		WithArgs("dev@example.com", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	token, err := svc.Create(context.Background(), "dev@example.com")

	require.NoError(t, err)
	assert.Len(t, token, 43)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVerificationService_Consume_Valid(t *testing.T) {
	svc, mock := setupVerificationService(t)

	mock.ExpectQuery(`DELETE FROM verification_tokens`).
		WithArgs("dev@example.com", HashToken("tok")).
		WillReturnRows(pgxmock.NewRows([]string{"expires_at"}).AddRow(time.Now().Add(time.Hour)))

	assert.NoError(t, svc.Consume(context.Background(), "dev@example.com", "tok"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVerificationService_Consume_Expired(t *testing.T) {
	svc, mock := setupVerificationService(t)

	mock.ExpectQuery(`DELETE FROM verification_tokens`).
		WithArgs("dev@example.com", HashToken("tok")).
		WillReturnRows(pgxmock.NewRows([]string{"expires_at"}).AddRow(time.Now().Add(-time.Minute)))

	assert.ErrorIs(t, svc.Consume(context.Background(), "dev@example.com", "tok"), ErrVerificationTokenExpired)
}

func TestVerificationService_Consume_Unknown(t *testing.T) {
	svc, mock := setupVerificationService(t)

	mock.ExpectQuery(`DELETE FROM verification_tokens`).
		WithArgs("dev@example.com", HashToken("tok")).
		WillReturnError(pgx.ErrNoRows)

	assert.ErrorIs(t, svc.Consume(context.Background(), "dev@example.com", "tok"), ErrInvalidVerificationToken)
}

func TestVerificationService_CleanupExpired(t *testing.T) {
	svc, mock := setupVerificationService(t)

	mock.ExpectExec(`DELETE FROM verification_tokens WHERE expires_at < NOW\(\)`).
		WillReturnResult(pgxmock.NewResult("DELETE", 2))

	n, err := svc.CleanupExpired(context.Background())

	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}
