package handlers

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/livingvectors/lv-api/internal/models"
	"github.com/livingvectors/lv-api/internal/oauth"
	"github.com/livingvectors/lv-api/internal/services"
)

// UserServiceInterface defines the methods used by handlers from UserService
type UserServiceInterface interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetProfile(ctx context.Context, id uuid.UUID) (*models.Profile, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, upd models.ProfileUpdate) (*models.Profile, error)
	EnsureDevUser(ctx context.Context, email string) (*models.User, error)
}

// AccountLinkerInterface defines the methods used by handlers from AccountLinker
type AccountLinkerInterface interface {
	Link(ctx context.Context, a *oauth.Assertion) (*services.LinkResult, error)
}

// SessionServiceInterface defines the methods used by handlers from SessionService
type SessionServiceInterface interface {
	Create(ctx context.Context, user *models.User, ipAddress, userAgent string) (string, time.Time, error)
	Revoke(ctx context.Context, token string) error
}

// VerificationServiceInterface defines the methods used by handlers from VerificationService
type VerificationServiceInterface interface {
	Create(ctx context.Context, identifier string) (string, error)
	Consume(ctx context.Context, identifier, token string) error
}

// EmailServiceInterface defines the methods used by handlers from EmailService
type EmailServiceInterface interface {
	SendSignInLink(to, link string) error
}

// PyAPIServiceInterface defines the methods used by handlers from PyAPIClient
type PyAPIServiceInterface interface {
	Chat(ctx context.Context, message string, history []services.HistoryMessage) (*services.ChatReply, error)
	Status(ctx context.Context) (*services.ServiceStatus, error)
}
