package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/livingvectors/lv-api/internal/database"
	"github.com/livingvectors/lv-api/internal/models"
	"go.uber.org/zap"
)

var ErrInvalidSession = errors.New("invalid session token")

// SessionCache remembers which user a session token hash resolves to.
type SessionCache interface {
	GetUserID(ctx context.Context, tokenHash string) (uuid.UUID, error)
	SetUserID(ctx context.Context, tokenHash string, userID uuid.UUID, ttl time.Duration) error
	Delete(ctx context.Context, tokenHash string) error
}

// SessionUser is the identity exposed to the browser. ID is nil when the store lookup failed.
type SessionUser struct {
	ID    *uuid.UUID
	Name  string
	Email string
	Image string
}

type Session struct {
	User      SessionUser
	Expires   time.Time
	TokenHash string
}

type SessionService struct {
	db       *database.DB
	jwt      *JWTService
	cache    SessionCache
	cacheTTL time.Duration
	logger   *zap.Logger
}

func NewSessionService(db *database.DB, jwt *JWTService, logger *zap.Logger) *SessionService {
	return &SessionService{db: db, jwt: jwt, logger: logger}
}

// WithCache enables the token hash to user id cache.
func (s *SessionService) WithCache(cache SessionCache, ttl time.Duration) *SessionService {
	s.cache = cache
	s.cacheTTL = ttl
	return s
}

// Create issues a session token for user and stores its hash.
func (s *SessionService) Create(ctx context.Context, user *models.User, ipAddress, userAgent string) (string, time.Time, error) {
	token, expiresAt, err := s.jwt.GenerateSessionToken(user.ID, deref(user.Name), deref(user.Email), deref(user.Image))
	if err != nil {
		return "", time.Time{}, err
	}

	_, err = s.db.Pool.Exec(ctx, `
		INSERT INTO sessions (user_id, token_hash, expires_at, ip_address, user_agent)
		VALUES ($1, $2, $3, $4, $5)
	`, user.ID, HashToken(token), expiresAt, nullableString(ipAddress), nullableString(userAgent))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to store session: %w", err)
	}

	return token, expiresAt, nil
}

// Materialize turns a session token into the outward session. The canonical user id is
// attached only when the store confirms the session; a failed lookup leaves it unset.
func (s *SessionService) Materialize(ctx context.Context, token string) (*Session, error) {
	claims, err := s.jwt.ValidateSessionToken(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSession, err)
	}

	session := &Session{
		User: SessionUser{
			Name:  claims.Name,
			Email: claims.Email,
			Image: claims.Picture,
		},
		TokenHash: HashToken(token),
	}
	if claims.ExpiresAt != nil {
		session.Expires = claims.ExpiresAt.Time
	}

	userID, err := s.lookupUserID(ctx, session.TokenHash)
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			s.logger.Warn("session lookup failed", zap.Error(err))
		}
		return session, nil
	}

	session.User.ID = &userID
	return session, nil
}

func (s *SessionService) lookupUserID(ctx context.Context, tokenHash string) (uuid.UUID, error) {
	if s.cache != nil {
		if id, err := s.cache.GetUserID(ctx, tokenHash); err == nil {
			return id, nil
		}
	}

	var userID uuid.UUID
	err := s.db.Pool.QueryRow(ctx, `
		SELECT u.id
		FROM sessions s
		JOIN users u ON u.id = s.user_id
		WHERE s.token_hash = $1 AND s.expires_at > NOW()
	`, tokenHash).Scan(&userID)
	if err != nil {
		return uuid.Nil, err
	}

	if s.cache != nil {
		if err := s.cache.SetUserID(ctx, tokenHash, userID, s.cacheTTL); err != nil {
			s.logger.Debug("session cache write failed", zap.Error(err))
		}
	}
	return userID, nil
}

func (s *SessionService) Revoke(ctx context.Context, token string) error {
	tokenHash := HashToken(token)
	if s.cache != nil {
		_ = s.cache.Delete(ctx, tokenHash)
	}
	_, err := s.db.Pool.Exec(ctx, `DELETE FROM sessions WHERE token_hash = $1`, tokenHash)
	return err
}

// RevokeAllForUser drops every stored session for userID and evicts their cached ids.
func (s *SessionService) RevokeAllForUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	rows, err := s.db.Pool.Query(ctx, `DELETE FROM sessions WHERE user_id = $1 RETURNING token_hash`, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to revoke sessions: %w", err)
	}
	defer rows.Close()

	var revoked int64
	for rows.Next() {
		var tokenHash string
		if err := rows.Scan(&tokenHash); err != nil {
			return revoked, err
		}
		revoked++
		if s.cache != nil {
			if err := s.cache.Delete(ctx, tokenHash); err != nil {
				s.logger.Warn("session cache eviction failed", zap.Error(err))
			}
		}
	}
	return revoked, rows.Err()
}

func (s *SessionService) CleanupExpired(ctx context.Context) (int64, error) {
	tag, err := s.db.Pool.Exec(ctx, `DELETE FROM sessions WHERE expires_at < NOW()`)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
