package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lv_requests_total",
		Help: "Total HTTP requests by method, route and response status.",
	}, []string{"method", "route", "status"})

	RequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "lv_request_duration_seconds",
		Help:    "Request duration in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	AccountLinksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lv_account_links_total",
		Help: "Sign-ins processed by the account linker, by decision.",
	}, []string{"decision"})

	AccountLinkFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lv_account_link_failures_total",
		Help: "Account link executions that exhausted their retries.",
	})

	ChatUpstreamTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lv_chat_upstream_total",
		Help: "Interview chat calls forwarded upstream, by result.",
	}, []string{"result"})
)

// RecordAccountLink records the branch the linker took for a sign-in.
func RecordAccountLink(decision string) {
	AccountLinksTotal.WithLabelValues(decision).Inc()
}

func RecordAccountLinkFailure() {
	AccountLinkFailuresTotal.Inc()
}

// RecordChatUpstream records an upstream chat call as "ok", "upstream_error" or "transport_error".
func RecordChatUpstream(result string) {
	ChatUpstreamTotal.WithLabelValues(result).Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Instrument wraps next and records request count and latency.
func Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		route := Route(r.URL.Path)
		RequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(rec.status)).Inc()
		RequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

// Route collapses provider-specific auth paths so label cardinality stays bounded.
func Route(path string) string {
	for _, prefix := range []string{"/api/auth/signin/", "/api/auth/callback/"} {
		if strings.HasPrefix(path, prefix) {
			return prefix + ":provider"
		}
	}
	if strings.HasPrefix(path, "/api/") || path == "/metrics" {
		return path
	}
	return "other"
}

func Handler() http.Handler {
	return promhttp.Handler()
}
