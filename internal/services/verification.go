package services

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/livingvectors/lv-api/internal/database"
)

const verificationTokenTTL = 24 * time.Hour

var (
	ErrInvalidVerificationToken = errors.New("invalid verification token")
	ErrVerificationTokenExpired = errors.New("verification token expired")
)

// VerificationService issues the single-use tokens behind email sign-in links.
type VerificationService struct {
	db  *database.DB
	ttl time.Duration
}

func NewVerificationService(db *database.DB) *VerificationService {
	return &VerificationService{db: db, ttl: verificationTokenTTL}
}

func (s *VerificationService) Create(ctx context.Context, identifier string) (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	token := base64.RawURLEncoding.EncodeToString(b)

	_, err := s.db.Pool.Exec(ctx, `
		INSERT INTO verification_tokens (identifier, token_hash, expires_at)
		VALUES ($1, $2, $3)
	`, identifier, HashToken(token), time.Now().Add(s.ttl))
	if err != nil {
		return "", fmt.Errorf("failed to store verification token: %w", err)
	}

	return token, nil
}

// Consume deletes the token and reports whether it was still valid. A token can be used once.
func (s *VerificationService) Consume(ctx context.Context, identifier, token string) error {
	var expiresAt time.Time
	err := s.db.Pool.QueryRow(ctx, `
		DELETE FROM verification_tokens
		WHERE identifier = $1 AND token_hash = $2
		RETURNING expires_at
	`, identifier, HashToken(token)).Scan(&expiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrInvalidVerificationToken
	}
	if err != nil {
		return fmt.Errorf("failed to consume verification token: %w", err)
	}

	if time.Now().After(expiresAt) {
		return ErrVerificationTokenExpired
	}
	return nil
}

func (s *VerificationService) CleanupExpired(ctx context.Context) (int64, error) {
	tag, err := s.db.Pool.Exec(ctx, `DELETE FROM verification_tokens WHERE expires_at < NOW()`)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
