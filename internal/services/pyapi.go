package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/livingvectors/lv-api/internal/config"
	"github.com/livingvectors/lv-api/internal/metrics"
	"golang.org/x/sync/errgroup"
)

const (
	defaultChatRole       = "ai"
	upstreamFailureDetail = "Failed to get AI response"
	upstreamUnknownDetail = "Unknown error"
)

// UpstreamError is a non-2xx answer from the inference service.
type UpstreamError struct {
	Status int
	// Detail is the upstream "detail" value, which is not always a string.
	Detail any
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("pyapi returned status %d: %v", e.Status, e.Detail)
}

// HistoryMessage is relayed as received; the upstream service owns its validation.
type HistoryMessage struct {
	Role    any `json:"role"`
	Content any `json:"content"`
}

type chatRequest struct {
	Message             string           `json:"message"`
	ConversationHistory []HistoryMessage `json:"conversation_history"`
}

// ChatReply mirrors the upstream message. Fields keep whatever JSON type upstream used.
type ChatReply struct {
	ID        any `json:"id"`
	Role      any `json:"role"`
	Content   any `json:"content"`
	Timestamp any `json:"timestamp"`
}

type HealthStatus struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}

type ServiceStatus struct {
	Health  HealthStatus `json:"health"`
	Message string       `json:"message"`
}

type PyAPIClient struct {
	baseURL string
	client  *http.Client
	now     func() time.Time
}

func NewPyAPIClient(cfg config.PyAPIConfig) *PyAPIClient {
	return &PyAPIClient{
		baseURL: cfg.URL,
		client:  &http.Client{Timeout: cfg.Timeout},
		now:     time.Now,
	}
}

func (c *PyAPIClient) BaseURL() string {
	return c.baseURL
}

// Chat forwards one message with its history and fills defaults for missing reply fields.
func (c *PyAPIClient) Chat(ctx context.Context, message string, history []HistoryMessage) (*ChatReply, error) {
	if history == nil {
		history = []HistoryMessage{}
	}

	payload, err := json.Marshal(chatRequest{Message: message, ConversationHistory: history})
	if err != nil {
		return nil, fmt.Errorf("failed to encode chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/interview/chat", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		metrics.RecordChatUpstream("transport_error")
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.RecordChatUpstream("transport_error")
		return nil, fmt.Errorf("failed to read chat response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		metrics.RecordChatUpstream("upstream_error")
		return nil, &UpstreamError{Status: resp.StatusCode, Detail: upstreamDetail(body)}
	}

	var data map[string]any
	if err := json.Unmarshal(body, &data); err != nil {
		metrics.RecordChatUpstream("transport_error")
		return nil, fmt.Errorf("failed to decode chat response: %w", err)
	}

	metrics.RecordChatUpstream("ok")

	now := c.now()
	return &ChatReply{
		ID:        orDefault(data["id"], strconv.FormatInt(now.UnixMilli(), 10)),
		Role:      orDefault(data["role"], defaultChatRole),
		Content:   orDefault(data["content"], ""),
		Timestamp: orDefault(data["timestamp"], now.UTC().Format("2006-01-02T15:04:05.000Z")),
	}, nil
}

func upstreamDetail(body []byte) any {
	var data map[string]any
	if err := json.Unmarshal(body, &data); err != nil {
		return upstreamUnknownDetail
	}
	return orDefault(data["detail"], upstreamFailureDetail)
}

// orDefault returns v unless it is JSON-falsy (null, false, 0 or "").
func orDefault(v any, fallback any) any {
	switch t := v.(type) {
	case nil:
		return fallback
	case bool:
		if !t {
			return fallback
		}
	case float64:
		if t == 0 {
			return fallback
		}
	case string:
		if t == "" {
			return fallback
		}
	}
	return v
}

func (c *PyAPIClient) getJSON(ctx context.Context, path string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return &UpstreamError{Status: resp.StatusCode, Detail: http.StatusText(resp.StatusCode)}
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", path, err)
	}
	return nil
}

func (c *PyAPIClient) Health(ctx context.Context) (*HealthStatus, error) {
	var h HealthStatus
	if err := c.getJSON(ctx, "/health", &h); err != nil {
		return nil, fmt.Errorf("pyapi health check failed: %w", err)
	}
	return &h, nil
}

func (c *PyAPIClient) Hello(ctx context.Context) (string, error) {
	var body struct {
		Message string `json:"message"`
	}
	if err := c.getJSON(ctx, "/", &body); err != nil {
		return "", fmt.Errorf("pyapi hello failed: %w", err)
	}
	return body.Message, nil
}

// Status runs the health and greeting calls concurrently. Either failure fails the whole call.
func (c *PyAPIClient) Status(ctx context.Context) (*ServiceStatus, error) {
	g, gctx := errgroup.WithContext(ctx)

	var status ServiceStatus
	g.Go(func() error {
		h, err := c.Health(gctx)
		if err != nil {
			return err
		}
		status.Health = *h
		return nil
	})
	g.Go(func() error {
		msg, err := c.Hello(gctx)
		if err != nil {
			return err
		}
		status.Message = msg
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &status, nil
}

// IsUpstreamError reports whether err carries an upstream status.
func IsUpstreamError(err error) (*UpstreamError, bool) {
	var ue *UpstreamError
	if errors.As(err, &ue) {
		return ue, true
	}
	return nil, false
}
