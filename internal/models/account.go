package models

import (
	"time"

	"github.com/google/uuid"
)

type Account struct {
	ID                uuid.UUID `json:"id"`
	UserID            uuid.UUID `json:"user_id"`
	Type              string    `json:"type"`
	Provider          string    `json:"provider"`
	ProviderAccountID string    `json:"provider_account_id"`
	AccessToken       *string   `json:"-"`
	RefreshToken      *string   `json:"-"`
	IDToken           *string   `json:"-"`
	TokenType         *string   `json:"token_type,omitempty"`
	Scope             *string   `json:"scope,omitempty"`
	SessionState      *string   `json:"-"`
	ExpiresAt         *int64    `json:"expires_at,omitempty"`
	Email             *string   `json:"email"`
	FirstName         *string   `json:"first_name"`
	LastName          *string   `json:"last_name"`
	PictureURL        *string   `json:"picture_url"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}
