package testutil

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/livingvectors/lv-api/internal/services"
	"github.com/stretchr/testify/mock"
)

const TestSessionToken = "test-session-token"

// AuthenticatedSession returns the session a materializer would attach for userID.
func AuthenticatedSession(userID uuid.UUID) *services.Session {
	return &services.Session{
		User: services.SessionUser{
			ID:    &userID,
			Name:  "Test User",
			Email: "test@example.com",
		},
		Expires: time.Now().Add(time.Hour),
	}
}

// ExpectSession makes m resolve TestSessionToken to a session for userID.
func ExpectSession(m *MockSessionService, userID uuid.UUID) {
	m.On("Materialize", mock.Anything, TestSessionToken).Return(AuthenticatedSession(userID), nil)
}

// SessionCookie returns the cookie carrying TestSessionToken.
func SessionCookie() *http.Cookie {
	return &http.Cookie{Name: "next-auth.session-token", Value: TestSessionToken}
}

// HTTPTestClient provides helper methods for HTTP testing
type HTTPTestClient struct {
	t       *testing.T
	handler http.Handler
	cookies []*http.Cookie
}

func NewHTTPTestClient(t *testing.T, handler http.Handler) *HTTPTestClient {
	return &HTTPTestClient{t: t, handler: handler}
}

// WithCookie returns a client that sends cookie on every request.
func (c *HTTPTestClient) WithCookie(cookie *http.Cookie) *HTTPTestClient {
	return &HTTPTestClient{t: c.t, handler: c.handler, cookies: append(append([]*http.Cookie{}, c.cookies...), cookie)}
}

func (c *HTTPTestClient) Request(method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	c.t.Helper()

	var bodyReader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		bodyReader = bytes.NewReader([]byte(b))
	default:
		jsonBody, err := json.Marshal(body)
		if err != nil {
			c.t.Fatalf("failed to marshal request body: %v", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req := httptest.NewRequest(method, path, bodyReader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	for _, cookie := range c.cookies {
		req.AddCookie(cookie)
	}

	rec := httptest.NewRecorder()
	c.handler.ServeHTTP(rec, req)
	return rec
}

func (c *HTTPTestClient) GET(path string, headers map[string]string) *httptest.ResponseRecorder {
	return c.Request(http.MethodGet, path, nil, headers)
}

// POST sends body as JSON. A string body is sent verbatim.
func (c *HTTPTestClient) POST(path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	return c.Request(http.MethodPost, path, body, headers)
}

func (c *HTTPTestClient) PUT(path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	return c.Request(http.MethodPut, path, body, headers)
}

// ParseJSON parses the response body as JSON
func ParseJSON(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(v); err != nil {
		t.Fatalf("failed to parse response JSON: %v", err)
	}
}

// AssertStatus asserts the response status code
func AssertStatus(t *testing.T, rec *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if rec.Code != expected {
		t.Errorf("expected status %d, got %d. Body: %s", expected, rec.Code, rec.Body.String())
	}
}
