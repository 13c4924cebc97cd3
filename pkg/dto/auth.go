package dto

import "github.com/google/uuid"

type ProviderResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Type        string `json:"type"`
	SigninURL   string `json:"signinUrl"`
	CallbackURL string `json:"callbackUrl"`
}

type CSRFResponse struct {
	CSRFToken string `json:"csrfToken"`
}

type EmailSignInRequest struct {
	Email       string `json:"email"`
	CSRFToken   string `json:"csrfToken"`
	CallbackURL string `json:"callbackUrl"`
}

type EmailSignInResponse struct {
	URL string `json:"url"`
}

type SessionUser struct {
	ID    *uuid.UUID `json:"id,omitempty"`
	Name  string     `json:"name,omitempty"`
	Email string     `json:"email,omitempty"`
	Image string     `json:"image,omitempty"`
}

// SessionResponse marshals to {} when there is no session.
type SessionResponse struct {
	User    *SessionUser `json:"user,omitempty"`
	Expires string       `json:"expires,omitempty"`
}

type LogoutResponse struct {
	Success bool `json:"success"`
}
