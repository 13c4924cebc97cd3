package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRoute(t *testing.T) {
	tests := []struct {
		path     string
		expected string
	}{
		{"/api/auth/callback/google", "/api/auth/callback/:provider"},
		{"/api/auth/signin/github", "/api/auth/signin/:provider"},
		{"/api/profile", "/api/profile"},
		{"/metrics", "/metrics"},
		{"/favicon.ico", "other"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.expected, Route(tt.path))
		})
	}
}

func TestInstrument_CountsStatus(t *testing.T) {
	handler := Instrument(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	before := testutil.ToFloat64(RequestsTotal.WithLabelValues(http.MethodGet, "/api/health", "418"))

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Equal(t, before+1, testutil.ToFloat64(RequestsTotal.WithLabelValues(http.MethodGet, "/api/health", "418")))
}

func TestInstrument_DefaultStatusOK(t *testing.T) {
	handler := Instrument(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))

	before := testutil.ToFloat64(RequestsTotal.WithLabelValues(http.MethodGet, "/api/profile", "200"))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/profile", nil))

	assert.Equal(t, before+1, testutil.ToFloat64(RequestsTotal.WithLabelValues(http.MethodGet, "/api/profile", "200")))
}

func TestRecordAccountLinkFailure(t *testing.T) {
	before := testutil.ToFloat64(AccountLinkFailuresTotal)
	RecordAccountLinkFailure()
	assert.Equal(t, before+1, testutil.ToFloat64(AccountLinkFailuresTotal))
}

func TestHandler_ExposesMetrics(t *testing.T) {
	RecordChatUpstream("ok")

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "lv_chat_upstream_total")
}
