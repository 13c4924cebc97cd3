package handlers

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"net/http"
	"net/mail"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/livingvectors/lv-api/internal/config"
	"github.com/livingvectors/lv-api/internal/middleware"
	"github.com/livingvectors/lv-api/internal/models"
	"github.com/livingvectors/lv-api/internal/oauth"
	"github.com/livingvectors/lv-api/pkg/dto"
	"github.com/m1z23r/drift/pkg/drift"
	"go.uber.org/zap"
)

const (
	stateTTL        = 10 * time.Minute
	callbackTimeout = 30 * time.Second
	emailProviderID = "email"
)

// Error codes understood by the sign-in error page.
const (
	errOAuthSignin   = "OAuthSignin"
	errOAuthCallback = "OAuthCallback"
	errAccessDenied  = "AccessDenied"
	errCallback      = "Callback"
	errVerification  = "Verification"
)

var providerOrder = []string{"google", "github", "gitlab"}

type AuthHandler struct {
	cfg          *config.Config
	providers    map[string]oauth.Provider
	linker       AccountLinkerInterface
	users        UserServiceInterface
	sessions     SessionServiceInterface
	verification VerificationServiceInterface
	email        EmailServiceInterface
	logger       *zap.Logger
	cookies      cookieJar
	states       sync.Map
}

type stateData struct {
	callbackURL string
	expiresAt   time.Time
}

func NewAuthHandler(
	cfg *config.Config,
	linker AccountLinkerInterface,
	users UserServiceInterface,
	sessions SessionServiceInterface,
	verification VerificationServiceInterface,
	email EmailServiceInterface,
	logger *zap.Logger,
) *AuthHandler {
	h := &AuthHandler{
		cfg:          cfg,
		providers:    make(map[string]oauth.Provider),
		linker:       linker,
		users:        users,
		sessions:     sessions,
		verification: verification,
		email:        email,
		logger:       logger,
		cookies:      newCookieJar(cfg.BaseURL),
	}

	if cfg.Google.ClientID != "" {
		h.providers["google"] = oauth.NewGoogleProvider(cfg.Google)
	}
	if cfg.GitHub.ClientID != "" {
		h.providers["github"] = oauth.NewGitHubProvider(cfg.GitHub)
	}
	if cfg.GitLab.ClientID != "" {
		h.providers["gitlab"] = oauth.NewGitLabProvider(cfg.GitLab)
	}

	go h.cleanupStates()

	return h
}

func (h *AuthHandler) cleanupStates() {
	ticker := time.NewTicker(1 * time.Minute)
	for range ticker.C {
		h.sweepStates(time.Now())
	}
}

func (h *AuthHandler) sweepStates(now time.Time) {
	h.states.Range(func(key, value any) bool {
		if sd, ok := value.(stateData); ok && now.After(sd.expiresAt) {
			h.states.Delete(key)
		}
		return true
	})
}

func (h *AuthHandler) emailEnabled() bool {
	return h.cfg.IsDevelopment()
}

func (h *AuthHandler) Providers(c *drift.Context) {
	resp := make(map[string]dto.ProviderResponse)
	for _, id := range providerOrder {
		p, ok := h.providers[id]
		if !ok {
			continue
		}
		resp[id] = dto.ProviderResponse{
			ID:          id,
			Name:        p.DisplayName(),
			Type:        "oauth",
			SigninURL:   h.cfg.BaseURL + "/api/auth/signin/" + id,
			CallbackURL: h.cfg.BaseURL + "/api/auth/callback/" + id,
		}
	}
	if h.emailEnabled() {
		resp[emailProviderID] = dto.ProviderResponse{
			ID:          emailProviderID,
			Name:        "Email",
			Type:        "email",
			SigninURL:   h.cfg.BaseURL + "/api/auth/signin/email",
			CallbackURL: h.cfg.BaseURL + "/api/auth/callback/email",
		}
	}
	c.JSON(http.StatusOK, resp)
}

// CSRF issues a double-submit token. The cookie holds the token and its keyed hash;
// the body holds the bare token.
func (h *AuthHandler) CSRF(c *drift.Context) {
	if token, ok := h.verifiedCSRFCookie(c); ok {
		c.JSON(http.StatusOK, dto.CSRFResponse{CSRFToken: token})
		return
	}

	token, err := oauth.GenerateState()
	if err != nil {
		c.InternalServerError("failed to generate csrf token")
		return
	}

	h.cookies.set(c, csrfCookieBase, token+"|"+h.csrfHash(token), time.Time{}, true)
	c.JSON(http.StatusOK, dto.CSRFResponse{CSRFToken: token})
}

func (h *AuthHandler) csrfHash(token string) string {
	sum := sha256.Sum256([]byte(token + h.cfg.SessionSecret))
	return hex.EncodeToString(sum[:])
}

func (h *AuthHandler) verifiedCSRFCookie(c *drift.Context) (string, bool) {
	token, hash, ok := strings.Cut(h.cookies.get(c, csrfCookieBase), "|")
	if !ok || token == "" {
		return "", false
	}
	if subtle.ConstantTimeCompare([]byte(hash), []byte(h.csrfHash(token))) != 1 {
		return "", false
	}
	return token, true
}

func (h *AuthHandler) SignIn(c *drift.Context) {
	provider := c.Param("provider")

	p, ok := h.providers[provider]
	if !ok {
		c.BadRequest("unsupported provider: " + provider)
		return
	}

	state, err := oauth.GenerateState()
	if err != nil {
		h.redirectWithError(c, errOAuthSignin, err)
		return
	}

	callbackURL := h.safeCallbackURL(c.QueryParam("callbackUrl"))
	h.states.Store(state, stateData{callbackURL: callbackURL, expiresAt: time.Now().Add(stateTTL)})
	h.cookies.set(c, callbackURLCookieBase, callbackURL, time.Time{}, true)

	h.redirect(c, p.GetConsentURL(state))
}

// Callback completes a provider sign-in. The email provider shares this route.
func (h *AuthHandler) Callback(c *drift.Context) {
	provider := c.Param("provider")
	if provider == emailProviderID {
		h.EmailCallback(c)
		return
	}

	p, ok := h.providers[provider]
	if !ok {
		h.redirectWithError(c, errOAuthCallback, errors.New("unsupported provider: "+provider))
		return
	}

	if providerErr := c.QueryParam("error"); providerErr != "" {
		h.redirectWithError(c, errAccessDenied, errors.New(providerErr))
		return
	}

	state := c.QueryParam("state")
	if state == "" {
		h.redirectWithError(c, errOAuthCallback, errors.New("missing state parameter"))
		return
	}

	sd, ok := h.states.LoadAndDelete(state)
	if !ok {
		h.redirectWithError(c, errOAuthCallback, errors.New("invalid or expired state"))
		return
	}

	sdTyped, ok := sd.(stateData)
	if !ok || time.Now().After(sdTyped.expiresAt) {
		h.redirectWithError(c, errOAuthCallback, errors.New("state expired"))
		return
	}

	code := c.QueryParam("code")
	if code == "" {
		h.redirectWithError(c, errOAuthCallback, errors.New("missing authorization code"))
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), callbackTimeout)
	defer cancel()

	assertion, err := p.ExchangeCode(ctx, code)
	if err != nil {
		h.redirectWithError(c, errOAuthCallback, err)
		return
	}

	result, err := h.linker.Link(ctx, assertion)
	if err != nil {
		h.redirectWithError(c, errCallback, err)
		return
	}

	user, err := h.users.GetByID(ctx, result.UserID)
	if err != nil {
		h.redirectWithError(c, errCallback, err)
		return
	}

	if err := h.startSession(ctx, c, user); err != nil {
		h.redirectWithError(c, errCallback, err)
		return
	}

	h.logger.Info("signed in",
		zap.String("provider", provider),
		zap.String("user_id", user.ID.String()),
		zap.String("decision", string(result.Decision)),
	)
	h.redirect(c, sdTyped.callbackURL)
}

func (h *AuthHandler) EmailSignIn(c *drift.Context) {
	if !h.emailEnabled() {
		c.NotFound("email sign-in is disabled")
		return
	}

	var req dto.EmailSignInRequest
	if err := c.BindJSON(&req); err != nil {
		c.BadRequest("invalid request body")
		return
	}

	token, ok := h.verifiedCSRFCookie(c)
	if !ok || subtle.ConstantTimeCompare([]byte(token), []byte(req.CSRFToken)) != 1 {
		c.Forbidden("invalid csrf token")
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if _, err := mail.ParseAddress(email); err != nil {
		c.BadRequest("a valid email is required")
		return
	}

	ctx := c.Request.Context()
	verificationToken, err := h.verification.Create(ctx, email)
	if err != nil {
		h.logger.Error("failed to create verification token", zap.Error(err))
		c.InternalServerError("failed to start email sign-in")
		return
	}

	q := url.Values{}
	q.Set("token", verificationToken)
	q.Set("email", email)
	q.Set("callbackUrl", h.safeCallbackURL(req.CallbackURL))
	link := h.cfg.BaseURL + "/api/auth/callback/email?" + q.Encode()

	if err := h.email.SendSignInLink(email, link); err != nil {
		h.logger.Error("failed to deliver sign-in link", zap.Error(err))
		c.InternalServerError("failed to send sign-in email")
		return
	}

	c.JSON(http.StatusOK, dto.EmailSignInResponse{
		URL: h.cfg.BaseURL + "/auth/verify-request?provider=email&type=email",
	})
}

func (h *AuthHandler) EmailCallback(c *drift.Context) {
	if !h.emailEnabled() {
		c.NotFound("email sign-in is disabled")
		return
	}

	token := c.QueryParam("token")
	email := strings.ToLower(strings.TrimSpace(c.QueryParam("email")))
	if token == "" || email == "" {
		h.redirectWithError(c, errVerification, errors.New("missing token or email"))
		return
	}

	ctx := c.Request.Context()
	if err := h.verification.Consume(ctx, email, token); err != nil {
		h.redirectWithError(c, errVerification, err)
		return
	}

	user, err := h.users.EnsureDevUser(ctx, email)
	if err != nil {
		h.redirectWithError(c, errCallback, err)
		return
	}

	if err := h.startSession(ctx, c, user); err != nil {
		h.redirectWithError(c, errCallback, err)
		return
	}

	h.redirect(c, h.safeCallbackURL(c.QueryParam("callbackUrl")))
}

func (h *AuthHandler) Session(c *drift.Context) {
	session := middleware.GetSession(c)
	if session == nil {
		c.JSON(http.StatusOK, dto.SessionResponse{})
		return
	}

	c.JSON(http.StatusOK, dto.SessionResponse{
		User: &dto.SessionUser{
			ID:    session.User.ID,
			Name:  session.User.Name,
			Email: session.User.Email,
			Image: session.User.Image,
		},
		Expires: session.Expires.UTC().Format("2006-01-02T15:04:05.000Z"),
	})
}

// Logout clears every auth cookie variant and drops the stored session if one was presented.
func (h *AuthHandler) Logout(c *drift.Context) {
	if token := middleware.SessionToken(c.Request); token != "" {
		if err := h.sessions.Revoke(c.Request.Context(), token); err != nil {
			h.logger.Warn("failed to revoke session", zap.Error(err))
		}
	}

	clearAuthCookies(c)
	c.JSON(http.StatusOK, dto.LogoutResponse{Success: true})
}

func (h *AuthHandler) startSession(ctx context.Context, c *drift.Context, user *models.User) error {
	token, expiresAt, err := h.sessions.Create(ctx, user, middleware.ClientIP(c.Request), c.GetHeader("User-Agent"))
	if err != nil {
		return err
	}
	h.cookies.set(c, sessionCookieBase, token, expiresAt, true)
	return nil
}

// safeCallbackURL keeps redirects on our own origin. Relative paths are resolved against
// BASE_URL; anything else falls back to BASE_URL.
func (h *AuthHandler) safeCallbackURL(raw string) string {
	if raw == "" {
		return h.cfg.BaseURL
	}
	if strings.HasPrefix(raw, "/") && !strings.HasPrefix(raw, "//") {
		return h.cfg.BaseURL + raw
	}

	target, err := url.Parse(raw)
	if err != nil {
		return h.cfg.BaseURL
	}
	base, err := url.Parse(h.cfg.BaseURL)
	if err != nil {
		return h.cfg.BaseURL
	}
	if target.Scheme == base.Scheme && target.Host == base.Host {
		return raw
	}
	return h.cfg.BaseURL
}

func (h *AuthHandler) redirect(c *drift.Context, target string) {
	c.Response.Header().Set("Location", target)
	c.Response.WriteHeader(http.StatusFound)
	c.Abort()
}

func (h *AuthHandler) redirectWithError(c *drift.Context, code string, err error) {
	h.logger.Warn("sign-in failed",
		zap.String("path", c.Request.URL.Path),
		zap.String("code", code),
		zap.Error(err),
	)
	h.redirect(c, h.cfg.BaseURL+"/auth/error?error="+url.QueryEscape(code))
}

