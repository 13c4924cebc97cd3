package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/livingvectors/lv-api/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPyAPIClient(t *testing.T, handler http.HandlerFunc) *PyAPIClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client := NewPyAPIClient(config.PyAPIConfig{URL: srv.URL, Timeout: 5 * time.Second})
	client.now = func() time.Time { return time.Date(2025, 3, 1, 12, 30, 45, 123_000_000, time.UTC) }
	return client
}

func TestPyAPIClient_Chat_ForwardsPayload(t *testing.T) {
	var got map[string]any
	var path string
	client := newTestPyAPIClient(t, func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"m-1","role":"ai","content":"Tell me more.","timestamp":"2025-01-01T00:00:00Z"}`))
	})

	reply, err := client.Chat(context.Background(), "Hello", []HistoryMessage{{Role: "user", Content: "Hi"}})

	require.NoError(t, err)
	assert.Equal(t, "/api/interview/chat", path)
	assert.Equal(t, "Hello", got["message"])
	assert.Equal(t, []any{map[string]any{"role": "user", "content": "Hi"}}, got["conversation_history"])
	assert.Equal(t, "m-1", reply.ID)
	assert.Equal(t, "Tell me more.", reply.Content)
}

func TestPyAPIClient_Chat_NilHistoryIsEmptyArray(t *testing.T) {
	var raw map[string]json.RawMessage
	client := newTestPyAPIClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&raw)
		_, _ = w.Write([]byte(`{}`))
	})

	_, err := client.Chat(context.Background(), "Hello", nil)

	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(raw["conversation_history"]))
}

func TestPyAPIClient_Chat_FillsDefaults(t *testing.T) {
	client := newTestPyAPIClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"content":""}`))
	})

	reply, err := client.Chat(context.Background(), "Hello", nil)

	require.NoError(t, err)
	assert.Equal(t, "1740832245123", reply.ID)
	assert.Equal(t, "ai", reply.Role)
	assert.Equal(t, "", reply.Content)
	assert.Equal(t, "2025-03-01T12:30:45.123Z", reply.Timestamp)
}

func TestPyAPIClient_Chat_UpstreamErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		detail any
	}{
		{"detail string", http.StatusServiceUnavailable, `{"detail":"Model overloaded"}`, "Model overloaded"},
		{"no detail", http.StatusBadRequest, `{"message":"nope"}`, "Failed to get AI response"},
		{"empty detail", http.StatusInternalServerError, `{"detail":""}`, "Failed to get AI response"},
		{"non json", http.StatusBadGateway, `<html>bad gateway</html>`, "Unknown error"},
		{"structured detail", http.StatusUnprocessableEntity, `{"detail":[{"msg":"field required"}]}`, []any{map[string]any{"msg": "field required"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestPyAPIClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := client.Chat(context.Background(), "Hello", nil)

			ue, ok := IsUpstreamError(err)
			require.True(t, ok)
			assert.Equal(t, tt.status, ue.Status)
			assert.Equal(t, tt.detail, ue.Detail)
		})
	}
}

func TestPyAPIClient_Chat_TransportError(t *testing.T) {
	client := NewPyAPIClient(config.PyAPIConfig{URL: "http://127.0.0.1:1", Timeout: time.Second})

	_, err := client.Chat(context.Background(), "Hello", nil)

	require.Error(t, err)
	_, ok := IsUpstreamError(err)
	assert.False(t, ok)
}

func TestPyAPIClient_Status(t *testing.T) {
	client := newTestPyAPIClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/health":
			_, _ = w.Write([]byte(`{"status":"healthy","service":"lv-pyapi"}`))
		case "/":
			_, _ = w.Write([]byte(`{"message":"Hello from PyAPI"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	status, err := client.Status(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "healthy", status.Health.Status)
	assert.Equal(t, "lv-pyapi", status.Health.Service)
	assert.Equal(t, "Hello from PyAPI", status.Message)
}

func TestPyAPIClient_Status_HealthFailure(t *testing.T) {
	client := newTestPyAPIClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"message":"Hello"}`))
	})

	_, err := client.Status(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "pyapi health check failed")
}

func TestOrDefault(t *testing.T) {
	assert.Equal(t, "x", orDefault(nil, "x"))
	assert.Equal(t, "x", orDefault("", "x"))
	assert.Equal(t, "x", orDefault(0.0, "x"))
	assert.Equal(t, "x", orDefault(false, "x"))
	assert.Equal(t, 42.0, orDefault(42.0, "x"))
	assert.Equal(t, "v", orDefault("v", "x"))
}
