package models

import (
	"time"

	"github.com/google/uuid"
)

const DevUserName = "Test User"

type User struct {
	ID            uuid.UUID  `json:"id"`
	Name          *string    `json:"name"`
	FirstName     *string    `json:"first_name"`
	LastName      *string    `json:"last_name"`
	Email         *string    `json:"email"`
	EmailVerified *time.Time `json:"email_verified,omitempty"`
	Image         *string    `json:"image"`
	Phone         *string    `json:"phone"`
	Bio           *string    `json:"bio"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// Profile is the projection of User exposed by the profile endpoint.
type Profile struct {
	ID        uuid.UUID `json:"id"`
	Name      *string   `json:"name"`
	FirstName *string   `json:"first_name"`
	LastName  *string   `json:"last_name"`
	Email     *string   `json:"email"`
	Phone     *string   `json:"phone"`
	Bio       *string   `json:"bio"`
}

// ProfileUpdate carries the writable profile columns. A nil field clears the column.
type ProfileUpdate struct {
	Name      *string
	FirstName *string
	LastName  *string
	Phone     *string
	Bio       *string
}
