package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"whistlemcp/internal/domain"
	"whistlemcp/internal/infra/telemetry"
)

const userAgent = "whistle-mcp-server/1.0"

// Caller is the surface tool handlers depend on; kept narrow so tests can
// substitute a fake backend.
type Caller interface {
	Request(ctx context.Context, method, endpoint string, body any, headers map[string]string) (map[string]any, error)
}

type Options struct {
	BaseURL        string
	APIKey         string
	MaxRetries     int
	RetryBaseDelay time.Duration
	RetryMaxDelay  time.Duration
	RequestTimeout time.Duration
	HTTPClient     *http.Client
	Logger         *zap.Logger
	Metrics        telemetry.Metrics
}

// Client issues JSON requests to the Dowhistle REST backend with bounded
// retry and a fixed per-call timeout.
type Client struct {
	mu             sync.RWMutex
	baseURL        string
	apiKey         string
	maxRetries     int
	retryBaseDelay time.Duration
	retryMaxDelay  time.Duration
	requestTimeout time.Duration
	httpClient     *http.Client
	logger         *zap.Logger
	metrics        telemetry.Metrics
}

func NewClient(opts Options) *Client {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics := opts.Metrics
	if metrics == nil {
		metrics = telemetry.NewNoopMetrics()
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	maxRetries := opts.MaxRetries
	if maxRetries < 1 {
		maxRetries = domain.DefaultMaxRetries
	}
	retryBase := opts.RetryBaseDelay
	if retryBase <= 0 {
		retryBase = domain.DefaultRetryBaseDelay
	}
	retryMax := opts.RetryMaxDelay
	if retryMax <= 0 {
		retryMax = domain.DefaultRetryMaxDelay
	}
	timeout := opts.RequestTimeout
	if timeout <= 0 {
		timeout = domain.DefaultRequestTimeout
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = domain.DefaultBackendBaseURL
	}
	return &Client{
		baseURL:        baseURL,
		apiKey:         opts.APIKey,
		maxRetries:     maxRetries,
		retryBaseDelay: retryBase,
		retryMaxDelay:  retryMax,
		requestTimeout: timeout,
		httpClient:     httpClient,
		logger:         logger.Named("backend"),
		metrics:        metrics,
	}
}

// SetBaseURL swaps the backend base URL; used by config reload.
func (c *Client) SetBaseURL(baseURL string) {
	baseURL = strings.TrimRight(baseURL, "/")
	if baseURL == "" {
		return
	}
	c.mu.Lock()
	c.baseURL = baseURL
	c.mu.Unlock()
}

// baseURLFor keeps the original deployment quirk: the dev backend has no
// search index, so search calls are routed to production.
func (c *Client) baseURLFor(endpoint string) string {
	c.mu.RLock()
	base := c.baseURL
	c.mu.RUnlock()

	if base == domain.DevBackendBaseURL && strings.HasPrefix(strings.TrimLeft(endpoint, "/"), "searchAround") {
		return domain.DefaultBackendBaseURL
	}
	return base
}

// Request performs one backend exchange. Transport errors and 5xx
// responses are retried with exponential backoff up to the attempt cap;
// 4xx responses fail immediately. The overall call is bounded by the
// configured timeout, reported as DEADLINE_EXCEEDED distinct from a
// backend rejection (UNAVAILABLE).
func (c *Client) Request(ctx context.Context, method, endpoint string, body any, headers map[string]string) (map[string]any, error) {
	url := c.baseURLFor(endpoint) + "/" + strings.TrimLeft(endpoint, "/")

	var payload []byte
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, domain.E(domain.CodeInternal, "backend.request", "encode request body", err)
		}
		payload = encoded
	}

	callCtx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()

	wait := newBackoff(c.retryBaseDelay, c.retryMaxDelay)
	var lastErr error
	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		if attempt > 1 {
			wait.Sleep(callCtx)
		}
		if err := callCtx.Err(); err != nil {
			break
		}

		result, retryable, err := c.do(callCtx, method, url, payload, headers)
		if err == nil {
			return result, nil
		}
		lastErr = err
		if !retryable {
			break
		}
		c.metrics.ObserveBackendRetry()
		c.logger.Warn("backend request retrying",
			zap.String("method", method),
			zap.String("endpoint", endpoint),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
	}

	if err := callCtx.Err(); errors.Is(err, context.DeadlineExceeded) {
		return nil, domain.E(domain.CodeDeadlineExceeded, "backend.request",
			fmt.Sprintf("backend call to %s timed out after %s", endpoint, c.requestTimeout), lastErr)
	}
	if lastErr == nil {
		lastErr = callCtx.Err()
	}
	var statusErr *StatusError
	if errors.As(lastErr, &statusErr) && (statusErr.StatusCode == http.StatusUnauthorized || statusErr.StatusCode == http.StatusForbidden) {
		return nil, domain.Wrap(domain.CodeUnauthenticated, "backend.request", lastErr)
	}
	return nil, domain.Wrap(domain.CodeUnavailable, "backend.request", lastErr)
}

func (c *Client) do(ctx context.Context, method, url string, payload []byte, headers map[string]string) (map[string]any, bool, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, false, err
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)
	c.mu.RLock()
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	c.mu.RUnlock()
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, true, err
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, true, err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		retryable := resp.StatusCode >= 500
		return nil, retryable, &StatusError{
			StatusCode: resp.StatusCode,
			Message:    upstreamMessage(raw),
		}
	}

	result := map[string]any{}
	if len(bytes.TrimSpace(raw)) == 0 {
		return result, false, nil
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		// Some endpoints return a bare array; fold it under "results"
		// so callers always see an object.
		var list []any
		if listErr := json.Unmarshal(raw, &list); listErr == nil {
			return map[string]any{"results": list}, false, nil
		}
		// Malformed success body counts as an upstream failure but is
		// not worth another round trip.
		return nil, false, fmt.Errorf("decode backend response: %w", err)
	}
	return result, false, nil
}

// StatusError is a non-2xx backend response with whatever message the
// body carried.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("backend returned status %d: %s", e.StatusCode, e.Message)
}

func upstreamMessage(raw []byte) string {
	var body map[string]any
	if err := json.Unmarshal(raw, &body); err == nil {
		for _, key := range []string{"message", "error"} {
			if msg, ok := body[key].(string); ok && msg != "" {
				return msg
			}
		}
	}
	text := strings.TrimSpace(string(raw))
	if len(text) > 200 {
		text = text[:200]
	}
	return text
}
