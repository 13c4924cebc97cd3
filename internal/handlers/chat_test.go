package handlers

import (
	"errors"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/livingvectors/lv-api/internal/middleware"
	"github.com/livingvectors/lv-api/internal/services"
	"github.com/livingvectors/lv-api/internal/testutil"
	"github.com/m1z23r/drift/pkg/drift"
	driftmw "github.com/m1z23r/drift/pkg/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

func setupChatTest(t *testing.T) (*testutil.MockPyAPIService, *testutil.HTTPTestClient) {
	t.Helper()
	mockPyAPI := new(testutil.MockPyAPIService)
	mockSessions := new(testutil.MockSessionService)
	testutil.ExpectSession(mockSessions, uuid.New())
	handler := NewChatHandler(mockPyAPI, zap.NewNop())

	app := drift.New()
	app.Use(driftmw.BodyParser())
	app.Use(middleware.Session(mockSessions))
	app.Post("/api/interview/chat", handler.Chat)

	return mockPyAPI, testutil.NewHTTPTestClient(t, app)
}

func TestChatHandler_Success(t *testing.T) {
	mockPyAPI, client := setupChatTest(t)

	history := []services.HistoryMessage{{Role: "user", Content: "hi"}, {Role: "ai", Content: "hello"}}
	mockPyAPI.On("Chat", mock.Anything, "Tell me about yourself", history).Return(&services.ChatReply{
		ID:        "42",
		Role:      "ai",
		Content:   "Sure.",
		Timestamp: "2025-03-01T12:30:45.123Z",
	}, nil)

	rec := client.WithCookie(testutil.SessionCookie()).POST("/api/interview/chat", map[string]any{
		"message": "Tell me about yourself",
		"conversation_history": []map[string]string{
			{"role": "user", "content": "hi"},
			{"role": "ai", "content": "hello"},
		},
	}, nil)

	testutil.AssertStatus(t, rec, http.StatusOK)
	assert.JSONEq(t, `{"id":"42","role":"ai","content":"Sure.","timestamp":"2025-03-01T12:30:45.123Z"}`, rec.Body.String())
	mockPyAPI.AssertExpectations(t)
}

func TestChatHandler_Unauthorized_NoUpstreamCall(t *testing.T) {
	mockPyAPI, client := setupChatTest(t)

	rec := client.POST("/api/interview/chat", map[string]any{"message": "hi"}, nil)

	testutil.AssertStatus(t, rec, http.StatusUnauthorized)
	assert.JSONEq(t, `{"error":"Unauthorized"}`, rec.Body.String())
	mockPyAPI.AssertNotCalled(t, "Chat", mock.Anything, mock.Anything, mock.Anything)
}

func TestChatHandler_MessageValidation(t *testing.T) {
	tests := []struct {
		name string
		body map[string]any
	}{
		{name: "missing", body: map[string]any{}},
		{name: "empty", body: map[string]any{"message": ""}},
		{name: "number", body: map[string]any{"message": 123}},
		{name: "null", body: map[string]any{"message": nil}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockPyAPI, client := setupChatTest(t)

			rec := client.WithCookie(testutil.SessionCookie()).POST("/api/interview/chat", tt.body, nil)

			testutil.AssertStatus(t, rec, http.StatusBadRequest)
			assert.JSONEq(t, `{"error":"Message is required"}`, rec.Body.String())
			mockPyAPI.AssertNotCalled(t, "Chat", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestChatHandler_UpstreamErrorKeepsStatus(t *testing.T) {
	mockPyAPI, client := setupChatTest(t)
	mockPyAPI.On("Chat", mock.Anything, "hi", []services.HistoryMessage{}).
		Return(nil, &services.UpstreamError{Status: http.StatusServiceUnavailable, Detail: "Model is warming up"})

	rec := client.WithCookie(testutil.SessionCookie()).POST("/api/interview/chat", map[string]any{"message": "hi"}, nil)

	testutil.AssertStatus(t, rec, http.StatusServiceUnavailable)
	assert.JSONEq(t, `{"error":"Model is warming up"}`, rec.Body.String())
}

func TestChatHandler_TransportError(t *testing.T) {
	mockPyAPI, client := setupChatTest(t)
	mockPyAPI.On("Chat", mock.Anything, "hi", []services.HistoryMessage{}).
		Return(nil, errors.New("dial tcp: connection refused"))

	rec := client.WithCookie(testutil.SessionCookie()).POST("/api/interview/chat", map[string]any{"message": "hi"}, nil)

	testutil.AssertStatus(t, rec, http.StatusInternalServerError)
	assert.JSONEq(t, `{"error":"Internal server error: dial tcp: connection refused"}`, rec.Body.String())
}

func TestChatHandler_ForwardsNonStringHistoryUntouched(t *testing.T) {
	mockPyAPI, client := setupChatTest(t)

	history := []services.HistoryMessage{{Role: "user", Content: float64(5)}}
	mockPyAPI.On("Chat", mock.Anything, "hi", history).Return(&services.ChatReply{
		ID: "1", Role: "ai", Content: "ok", Timestamp: "2025-03-01T12:30:45.123Z",
	}, nil)

	rec := client.WithCookie(testutil.SessionCookie()).POST("/api/interview/chat", `{"message":"hi","conversation_history":[{"role":"user","content":5}]}`, nil)

	testutil.AssertStatus(t, rec, http.StatusOK)
	mockPyAPI.AssertExpectations(t)
}

// setupWiredChatApp mounts the chat route the way the server does: session, then the
// per-user limiter, then the handler.
func setupWiredChatApp(t *testing.T, burst int) (*testutil.MockPyAPIService, *testutil.HTTPTestClient) {
	t.Helper()
	mockPyAPI := new(testutil.MockPyAPIService)
	mockSessions := new(testutil.MockSessionService)
	testutil.ExpectSession(mockSessions, uuid.New())
	handler := NewChatHandler(mockPyAPI, zap.NewNop())
	limiter := middleware.NewRateLimiter(0.001, burst)

	app := drift.New()
	app.Use(driftmw.BodyParser())
	app.Use(middleware.Session(mockSessions))

	api := app.Group("/api")
	interview := api.Group("/interview")
	interview.Use(limiter.Middleware())
	interview.Post("/chat", handler.Chat)

	return mockPyAPI, testutil.NewHTTPTestClient(t, app)
}

func TestChatRoute_AnonymousAlwaysUnauthorized(t *testing.T) {
	mockPyAPI, client := setupWiredChatApp(t, 2)

	for i := 0; i < 8; i++ {
		rec := client.POST("/api/interview/chat", map[string]any{"message": "hi"}, nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, "request %d", i)
		assert.JSONEq(t, `{"error":"Unauthorized"}`, rec.Body.String())
	}
	mockPyAPI.AssertNotCalled(t, "Chat", mock.Anything, mock.Anything, mock.Anything)
}

func TestChatRoute_AuthenticatedOverBurstIsLimited(t *testing.T) {
	mockPyAPI, client := setupWiredChatApp(t, 2)
	mockPyAPI.On("Chat", mock.Anything, "hi", []services.HistoryMessage{}).Return(&services.ChatReply{
		ID: "1", Role: "ai", Content: "ok", Timestamp: "2025-03-01T12:30:45.123Z",
	}, nil)
	authed := client.WithCookie(testutil.SessionCookie())

	assert.Equal(t, http.StatusOK, authed.POST("/api/interview/chat", map[string]any{"message": "hi"}, nil).Code)
	assert.Equal(t, http.StatusOK, authed.POST("/api/interview/chat", map[string]any{"message": "hi"}, nil).Code)

	rec := authed.POST("/api/interview/chat", map[string]any{"message": "hi"}, nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.JSONEq(t, `{"error":"Too many requests"}`, rec.Body.String())
	mockPyAPI.AssertNumberOfCalls(t, "Chat", 2)

	// the limit is per user, so anonymous callers still get 401
	assert.Equal(t, http.StatusUnauthorized, client.POST("/api/interview/chat", map[string]any{"message": "hi"}, nil).Code)
}
