package testutil

import (
	"context"
	"fmt"
	"testing"

	"github.com/livingvectors/lv-api/internal/database"
	"github.com/livingvectors/lv-api/internal/models"
	"github.com/livingvectors/lv-api/internal/oauth"
)

// Fixtures provides factory methods for creating test data
type Fixtures struct {
	db      *database.DB
	counter int
}

func NewFixtures(db *database.DB) *Fixtures {
	return &Fixtures{db: db}
}

// CreateUser inserts a user with a unique email unless overridden.
func (f *Fixtures) CreateUser(t *testing.T, opts ...UserOption) *models.User {
	t.Helper()
	f.counter++

	email := fmt.Sprintf("user%d@example.com", f.counter)
	name := fmt.Sprintf("Test User %d", f.counter)
	user := &models.User{Email: &email, Name: &name}

	for _, opt := range opts {
		opt(user)
	}

	err := f.db.Pool.QueryRow(context.Background(), `
		INSERT INTO users (email, name, image)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, updated_at
	`, user.Email, user.Name, user.Image).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		t.Fatalf("failed to create user: %v", err)
	}

	return user
}

// UserOption configures a test user
type UserOption func(*models.User)

func WithEmail(email string) UserOption {
	return func(u *models.User) {
		u.Email = &email
	}
}

func WithName(name string) UserOption {
	return func(u *models.User) {
		u.Name = &name
	}
}

func WithImage(url string) UserOption {
	return func(u *models.User) {
		u.Image = &url
	}
}

// Assertion builds a provider assertion for email with a unique account id.
func (f *Fixtures) Assertion(provider, email string) *oauth.Assertion {
	f.counter++
	return &oauth.Assertion{
		Account: oauth.AccountCredentials{
			Type:              "oauth",
			Provider:          provider,
			ProviderAccountID: fmt.Sprintf("%s-%d", provider, f.counter),
			AccessToken:       "access-token",
			TokenType:         "Bearer",
		},
		User: oauth.UserInfo{
			Email: email,
			Name:  "Fixture User",
		},
		Profile: map[string]any{
			"given_name":  "Fixture",
			"family_name": "User",
			"email":       email,
		},
	}
}
