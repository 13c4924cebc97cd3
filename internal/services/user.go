package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/livingvectors/lv-api/internal/database"
	"github.com/livingvectors/lv-api/internal/models"
)

var ErrUserNotFound = errors.New("user not found")

const userColumns = `id, name, first_name, last_name, email, email_verified, image, phone, bio, created_at, updated_at`

const profileColumns = `id, name, first_name, last_name, email, phone, bio`

type UserService struct {
	db *database.DB
}

func NewUserService(db *database.DB) *UserService {
	return &UserService{db: db}
}

func scanUser(row pgx.Row) (*models.User, error) {
	var user models.User
	err := row.Scan(
		&user.ID, &user.Name, &user.FirstName, &user.LastName, &user.Email, &user.EmailVerified,
		&user.Image, &user.Phone, &user.Bio, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func scanProfile(row pgx.Row) (*models.Profile, error) {
	var p models.Profile
	if err := row.Scan(&p.ID, &p.Name, &p.FirstName, &p.LastName, &p.Email, &p.Phone, &p.Bio); err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *UserService) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user, err := scanUser(s.db.Pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	return user, err
}

func (s *UserService) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	user, err := scanUser(s.db.Pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	return user, err
}

func (s *UserService) GetProfile(ctx context.Context, id uuid.UUID) (*models.Profile, error) {
	profile, err := scanProfile(s.db.Pool.QueryRow(ctx, `SELECT `+profileColumns+` FROM users WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}
	return profile, nil
}

// UpdateProfile overwrites every writable column. Missing and empty values become NULL.
func (s *UserService) UpdateProfile(ctx context.Context, id uuid.UUID, upd models.ProfileUpdate) (*models.Profile, error) {
	profile, err := scanProfile(s.db.Pool.QueryRow(ctx, `
		UPDATE users
		SET name = $1, first_name = $2, last_name = $3, phone = $4, bio = $5, updated_at = NOW()
		WHERE id = $6
		RETURNING `+profileColumns,
		emptyToNil(upd.Name), emptyToNil(upd.FirstName), emptyToNil(upd.LastName),
		emptyToNil(upd.Phone), emptyToNil(upd.Bio), id,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}
	return profile, nil
}

// EnsureDevUser returns the user for email, creating it with the development display name
// when absent. The address is marked verified either way.
func (s *UserService) EnsureDevUser(ctx context.Context, email string) (*models.User, error) {
	user, err := scanUser(s.db.Pool.QueryRow(ctx, `
		INSERT INTO users (email, name, email_verified)
		VALUES ($1, $2, NOW())
		ON CONFLICT (email) DO UPDATE
		SET email_verified = COALESCE(users.email_verified, EXCLUDED.email_verified), updated_at = NOW()
		RETURNING `+userColumns,
		email, models.DevUserName,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to ensure user: %w", err)
	}
	return user, nil
}

func (s *UserService) ListAccounts(ctx context.Context, userID uuid.UUID) ([]models.Account, error) {
	rows, err := s.db.Pool.Query(ctx, `
		SELECT id, user_id, type, provider, provider_account_id, token_type, scope, expires_at,
		       email, first_name, last_name, picture_url, created_at, updated_at
		FROM accounts
		WHERE user_id = $1
		ORDER BY created_at
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []models.Account
	for rows.Next() {
		var a models.Account
		if err := rows.Scan(
			&a.ID, &a.UserID, &a.Type, &a.Provider, &a.ProviderAccountID, &a.TokenType, &a.Scope, &a.ExpiresAt,
			&a.Email, &a.FirstName, &a.LastName, &a.PictureURL, &a.CreatedAt, &a.UpdatedAt,
		); err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

type seedUser struct {
	name, firstName, lastName, email, bio, phone string
}

var demoUsers = []seedUser{
	{"John Doe", "John", "Doe", "john.doe@example.com", "Software engineer with 5 years of experience in web development.", "+1-555-0123"},
	{"Jane Smith", "Jane", "Smith", "jane.smith@example.com", "Product manager passionate about building user-centric applications.", "+1-555-0456"},
}

// SeedDemoUsers inserts the demo users, leaving existing emails untouched. It returns the
// emails that were actually created.
func (s *UserService) SeedDemoUsers(ctx context.Context) ([]string, error) {
	var created []string
	for _, u := range demoUsers {
		tag, err := s.db.Pool.Exec(ctx, `
			INSERT INTO users (name, first_name, last_name, email, bio, phone)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (email) DO NOTHING
		`, u.name, u.firstName, u.lastName, u.email, u.bio, u.phone)
		if err != nil {
			return created, fmt.Errorf("failed to seed %s: %w", u.email, err)
		}
		if tag.RowsAffected() > 0 {
			created = append(created, u.email)
		}
	}
	return created, nil
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func emptyToNil(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	return s
}
