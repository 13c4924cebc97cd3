package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/livingvectors/lv-api/internal/services"
	"github.com/m1z23r/drift/pkg/drift"
)

const (
	UserIDKey       = "user_id"
	SessionKey      = "session"
	SessionTokenKey = "session_token"
)

const (
	SessionCookieName       = "next-auth.session-token"
	SecureSessionCookieName = "__Secure-next-auth.session-token"
)

type SessionMaterializer interface {
	Materialize(ctx context.Context, token string) (*services.Session, error)
}

// Session resolves the caller's session on every request. It never rejects a request;
// handlers decide what an anonymous caller may do.
func Session(materializer SessionMaterializer) drift.HandlerFunc {
	return func(c *drift.Context) {
		if token := SessionToken(c.Request); token != "" {
			session, err := materializer.Materialize(c.Request.Context(), token)
			if err == nil {
				c.Set(SessionKey, session)
				c.Set(SessionTokenKey, token)
				if session.User.ID != nil {
					c.Set(UserIDKey, *session.User.ID)
				}
			}
		}

		c.Next()
	}
}

// SessionToken reads the session cookie, falling back to a bearer token.
func SessionToken(r *http.Request) string {
	for _, name := range []string{SecureSessionCookieName, SessionCookieName} {
		if cookie, err := r.Cookie(name); err == nil && cookie.Value != "" {
			return cookie.Value
		}
	}

	parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
		return strings.TrimSpace(parts[1])
	}
	return ""
}

func GetUserID(c *drift.Context) uuid.UUID {
	if id, ok := c.Get(UserIDKey); ok {
		if uid, ok := id.(uuid.UUID); ok {
			return uid
		}
	}
	return uuid.Nil
}

func GetSession(c *drift.Context) *services.Session {
	if s, ok := c.Get(SessionKey); ok {
		if session, ok := s.(*services.Session); ok {
			return session
		}
	}
	return nil
}

func GetSessionToken(c *drift.Context) string {
	if t, ok := c.Get(SessionTokenKey); ok {
		if token, ok := t.(string); ok {
			return token
		}
	}
	return ""
}
