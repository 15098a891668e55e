package backend

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"whistlemcp/internal/domain"
)

func newTestClient(t *testing.T, baseURL string, overrides func(*Options)) *Client {
	t.Helper()
	opts := Options{
		BaseURL:        baseURL,
		MaxRetries:     3,
		RetryBaseDelay: time.Millisecond,
		RetryMaxDelay:  5 * time.Millisecond,
		RequestTimeout: 2 * time.Second,
	}
	if overrides != nil {
		overrides(&opts)
	}
	return NewClient(opts)
}

func TestRequestSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "whistle-mcp-server/1.0", r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"message":"ok"}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, nil)
	result, err := client.Request(context.Background(), "POST", "/twilio/sign-in", map[string]any{"phone": "1"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "ok", result["message"])
}

func TestRequestRetriesServerErrors(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"message":"recovered"}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, nil)
	result, err := client.Request(context.Background(), "GET", "/user", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "recovered", result["message"])
	assert.Equal(t, int32(3), hits.Load())
}

func TestRequestDoesNotRetryClientErrors(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"message":"bad payload"}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, nil)
	_, err := client.Request(context.Background(), "POST", "/whistle", map[string]any{}, nil)
	require.Error(t, err)
	assert.Equal(t, int32(1), hits.Load(), "4xx must not be retried")
	assert.Contains(t, err.Error(), "bad payload")
}

func TestRequestUnauthorizedMapsToUnauthenticated(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"invalid token"}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, nil)
	_, err := client.Request(context.Background(), "GET", "/user", nil, map[string]string{"Authorization": "bad"})
	require.Error(t, err)
	assert.True(t, domain.IsCode(err, domain.CodeUnauthenticated))
}

func TestRequestTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, func(opts *Options) {
		opts.RequestTimeout = 50 * time.Millisecond
	})
	_, err := client.Request(context.Background(), "GET", "/user", nil, nil)
	require.Error(t, err)
	assert.True(t, domain.IsCode(err, domain.CodeDeadlineExceeded))
}

func TestRequestFoldsBareArrayResponses(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"id":"p1"}]`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, nil)
	result, err := client.Request(context.Background(), "POST", "/searchAround", map[string]any{}, nil)
	require.NoError(t, err)
	list, ok := result["results"].([]any)
	require.True(t, ok)
	assert.Len(t, list, 1)
}

func TestRequestCallHeadersOverrideDefaults(t *testing.T) {
	var sawAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sawAuth = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, func(opts *Options) {
		opts.APIKey = "service-key"
	})
	_, err := client.Request(context.Background(), "GET", "/user", nil, map[string]string{"Authorization": "user-token"})
	require.NoError(t, err)
	assert.Equal(t, "user-token", sawAuth, "per-call headers win over the service key")
}

func TestDevBaseURLReroutesSearch(t *testing.T) {
	client := newTestClient(t, domain.DevBackendBaseURL, nil)
	assert.Equal(t, domain.DefaultBackendBaseURL, client.baseURLFor("/searchAround"))
	assert.Equal(t, domain.DevBackendBaseURL, client.baseURLFor("/user"))
}

func TestSetBaseURL(t *testing.T) {
	client := newTestClient(t, "https://example.com/v3", nil)
	client.SetBaseURL("https://other.example.com/v3/")
	assert.Equal(t, "https://other.example.com/v3", client.baseURLFor("/user"))

	client.SetBaseURL("")
	assert.Equal(t, "https://other.example.com/v3", client.baseURLFor("/user"), "empty base URL is ignored")
}
