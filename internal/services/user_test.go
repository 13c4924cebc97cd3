package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/livingvectors/lv-api/internal/database"
	"github.com/livingvectors/lv-api/internal/models"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupUserService(t *testing.T) (*UserService, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	db := &database.DB{Pool: mock}
	return NewUserService(db), mock
}

func strPtr(s string) *string { return &s }

var nilString = (*string)(nil)

var userRowColumns = []string{
	"id", "name", "first_name", "last_name", "email", "email_verified", "image", "phone", "bio", "created_at", "updated_at",
}

var profileRowColumns = []string{"id", "name", "first_name", "last_name", "email", "phone", "bio"}

func TestUserService_GetByID_Success(t *testing.T) {
	svc, mock := setupUserService(t)
	userID := uuid.New()
	now := time.Now()

	rows := pgxmock.NewRows(userRowColumns).
		AddRow(userID, strPtr("Ada Lovelace"), strPtr("Ada"), strPtr("Lovelace"), strPtr("ada@example.com"), nil, nil, nil, nil, now, now)
	mock.ExpectQuery(`SELECT .+ FROM users WHERE id = \$1`).
		WithArgs(userID).
		WillReturnRows(rows)

	user, err := svc.GetByID(context.Background(), userID)

	require.NoError(t, err)
	assert.Equal(t, userID, user.ID)
	assert.Equal(t, "ada@example.com", *user.Email)
	assert.Nil(t, user.Image)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserService_GetByEmail_NotFound(t *testing.T) {
	svc, mock := setupUserService(t)

	mock.ExpectQuery(`SELECT .+ FROM users WHERE email = \$1`).
		WithArgs("nobody@example.com").
		WillReturnError(pgx.ErrNoRows)

	user, err := svc.GetByEmail(context.Background(), "nobody@example.com")

	assert.Nil(t, user)
	assert.ErrorIs(t, err, ErrUserNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserService_GetProfile_Success(t *testing.T) {
	svc, mock := setupUserService(t)
	userID := uuid.New()

	rows := pgxmock.NewRows(profileRowColumns).
		AddRow(userID, strPtr("John Doe"), strPtr("John"), strPtr("Doe"), strPtr("john.doe@example.com"), strPtr("+1-555-0123"), nil)
	mock.ExpectQuery(`SELECT id, name, first_name, last_name, email, phone, bio FROM users WHERE id = \$1`).
		WithArgs(userID).
		WillReturnRows(rows)

	profile, err := svc.GetProfile(context.Background(), userID)

	require.NoError(t, err)
	assert.Equal(t, userID, profile.ID)
	assert.Equal(t, "John", *profile.FirstName)
	assert.Equal(t, "+1-555-0123", *profile.Phone)
	assert.Nil(t, profile.Bio)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserService_GetProfile_NotFound(t *testing.T) {
	svc, mock := setupUserService(t)
	userID := uuid.New()

	mock.ExpectQuery(`SELECT .+ FROM users WHERE id = \$1`).
		WithArgs(userID).
		WillReturnError(pgx.ErrNoRows)

	_, err := svc.GetProfile(context.Background(), userID)

	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestUserService_GetProfile_DatabaseError(t *testing.T) {
	svc, mock := setupUserService(t)
	userID := uuid.New()

	mock.ExpectQuery(`SELECT .+ FROM users WHERE id = \$1`).
		WithArgs(userID).
		WillReturnError(errors.New("connection refused"))

	_, err := svc.GetProfile(context.Background(), userID)

	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrUserNotFound)
	assert.Contains(t, err.Error(), "failed to load profile")
}

func TestUserService_UpdateProfile_EmptyAndMissingBecomeNull(t *testing.T) {
	svc, mock := setupUserService(t)
	userID := uuid.New()

	upd := models.ProfileUpdate{
		Name:      strPtr("Ada Lovelace"),
		FirstName: strPtr(""),
		LastName:  nil,
		Phone:     strPtr("+44 20 7946 0000"),
		Bio:       strPtr(""),
	}

	rows := pgxmock.NewRows(profileRowColumns).
		AddRow(userID, strPtr("Ada Lovelace"), nil, nil, strPtr("ada@example.com"), strPtr("+44 20 7946 0000"), nil)
	mock.ExpectQuery(`UPDATE users`).
		WithArgs(strPtr("Ada Lovelace"), nilString, nilString, strPtr("+44 20 7946 0000"), nilString, userID).
		WillReturnRows(rows)

	profile, err := svc.UpdateProfile(context.Background(), userID, upd)

	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace", *profile.Name)
	assert.Nil(t, profile.FirstName)
	assert.Nil(t, profile.LastName)
	assert.Nil(t, profile.Bio)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserService_UpdateProfile_NotFound(t *testing.T) {
	svc, mock := setupUserService(t)
	userID := uuid.New()

	mock.ExpectQuery(`UPDATE users`).
		WithArgs(nilString, nilString, nilString, nilString, nilString, userID).
		WillReturnError(pgx.ErrNoRows)

	_, err := svc.UpdateProfile(context.Background(), userID, models.ProfileUpdate{})

	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestUserService_EnsureDevUser(t *testing.T) {
	svc, mock := setupUserService(t)
	userID := uuid.New()
	now := time.Now()

	rows := pgxmock.NewRows(userRowColumns).
		AddRow(userID, strPtr("Test User"), nil, nil, strPtr("dev@example.com"), &now, nil, nil, nil, now, now)
	mock.ExpectQuery(`INSERT INTO users \(email, name, email_verified\)`).
		WithArgs("dev@example.com", "Test User").
		WillReturnRows(rows)

	user, err := svc.EnsureDevUser(context.Background(), "dev@example.com")

	require.NoError(t, err)
	assert.Equal(t, userID, user.ID)
	assert.Equal(t, models.DevUserName, *user.Name)
	assert.NotNil(t, user.EmailVerified)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserService_ListAccounts(t *testing.T) {
	svc, mock := setupUserService(t)
	userID := uuid.New()
	now := time.Now()

	rows := pgxmock.NewRows([]string{
		"id", "user_id", "type", "provider", "provider_account_id", "token_type", "scope", "expires_at",
		"email", "first_name", "last_name", "picture_url", "created_at", "updated_at",
	}).
		AddRow(uuid.New(), userID, "oauth", "google", "sub-1", strPtr("Bearer"), nil, nil, strPtr("a@b.c"), nil, nil, nil, now, now).
		AddRow(uuid.New(), userID, "oauth", "github", "42", strPtr("bearer"), nil, nil, nil, nil, nil, nil, now, now)
	mock.ExpectQuery(`SELECT .+ FROM accounts\s+WHERE user_id = \$1`).
		WithArgs(userID).
		WillReturnRows(rows)

	accounts, err := svc.ListAccounts(context.Background(), userID)

	require.NoError(t, err)
	require.Len(t, accounts, 2)
	assert.Equal(t, "google", accounts[0].Provider)
	assert.Equal(t, "42", accounts[1].ProviderAccountID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserService_SeedDemoUsers_SkipsExisting(t *testing.T) {
	svc, mock := setupUserService(t)

	mock.ExpectExec(`INSERT INTO users`).
		WithArgs("John Doe", "John", "Doe", "john.doe@example.com", pgxmock.AnyArg(), "+1-555-0123").
		WillReturnResult(pgxmock.NewResult("INSERT", 0))
	mock.ExpectExec(`INSERT INTO users`).
		WithArgs("Jane Smith", "Jane", "Smith", "jane.smith@example.com", pgxmock.AnyArg(), "+1-555-0456").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	created, err := svc.SeedDemoUsers(context.Background())

	require.NoError(t, err)
	assert.Equal(t, []string{"jane.smith@example.com"}, created)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEmptyToNil(t *testing.T) {
	assert.Nil(t, emptyToNil(nil))
	assert.Nil(t, emptyToNil(strPtr("")))
	assert.Equal(t, " ", *emptyToNil(strPtr(" ")))
	assert.Equal(t, "x", *emptyToNil(strPtr("x")))
}
