package clients

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dext/tap-intercom/pkg/config"
	"github.com/dext/tap-intercom/pkg/errors"
)

func clientConfig(baseURL string) *config.Config {
	cfg := config.New()
	cfg.Credentials.AccessToken = "token"
	cfg.API.BaseURL = baseURL
	cfg.Reliability.RetryAttempts = 0
	cfg.Reliability.CircuitBreaker = false
	return cfg
}

func TestGetSendsHeaders(t *testing.T) {
	var got http.Header
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	cfg := clientConfig(server.URL)
	client := NewClient(cfg, nil)

	body, err := client.Get(context.Background(), "admins", nil)
	require.NoError(t, err)
	assert.Equal(t, `{"ok":true}`, string(body))
	assert.Equal(t, "application/json", got.Get("Accept"))
	assert.Equal(t, "2.10", got.Get("Intercom-Version"))
	assert.Equal(t, "tap-intercom/1.0", got.Get("User-Agent"))
}

func TestGetDecompressesGzip(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "gzip", r.Header.Get("Accept-Encoding"))
		w.Header().Set("Content-Encoding", "gzip")
		gz := gzip.NewWriter(w)
		gz.Write([]byte(`{"compressed":true}`))
		gz.Close()
	}))
	defer server.Close()

	client := NewClient(clientConfig(server.URL), nil)
	body, err := client.Get(context.Background(), "tags", nil)
	require.NoError(t, err)
	assert.Equal(t, `{"compressed":true}`, string(body))
}

func TestStatusMapping(t *testing.T) {
	cases := []struct {
		status   int
		errType  errors.ErrorType
		retrying bool
	}{
		{http.StatusUnauthorized, errors.ErrorTypeAuthentication, false},
		{http.StatusForbidden, errors.ErrorTypeAuthentication, false},
		{http.StatusNotFound, errors.ErrorTypeNotFound, false},
		{http.StatusTooManyRequests, errors.ErrorTypeRateLimit, true},
		{http.StatusBadGateway, errors.ErrorTypeConnection, true},
		{http.StatusBadRequest, errors.ErrorTypeValidation, false},
	}

	for _, tc := range cases {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.status)
		}))
		client := NewClient(clientConfig(server.URL), nil)
		_, err := client.Get(context.Background(), "x", nil)
		require.Error(t, err, "status %d", tc.status)
		assert.True(t, errors.IsType(err, tc.errType), "status %d maps to %s, got %v", tc.status, tc.errType, err)
		assert.Equal(t, tc.retrying, errors.IsRetryable(err), "status %d retryable", tc.status)
		server.Close()
	}
}

func TestRetryOnServerError(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	cfg := clientConfig(server.URL)
	cfg.Reliability.RetryAttempts = 3
	cfg.Reliability.RetryDelay = time.Millisecond

	client := NewClient(cfg, nil)
	body, err := client.Get(context.Background(), "teams", nil)
	require.NoError(t, err)
	assert.Equal(t, `{"ok":true}`, string(body))
	assert.Equal(t, 3, attempts)
}

func TestPostJSONBody(t *testing.T) {
	var received []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		buf := new(bytes.Buffer)
		buf.ReadFrom(r.Body)
		received = buf.Bytes()
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client := NewClient(clientConfig(server.URL), nil)
	_, err := client.PostJSON(context.Background(), "conversations/search", map[string]interface{}{"query": "x"})
	require.NoError(t, err)
	assert.Contains(t, string(received), `"query":"x"`)
}

func TestDownload(t *testing.T) {
	payload := []byte("zip-bytes-here")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(payload)
	}))
	defer server.Close()

	client := NewClient(clientConfig(server.URL), nil)
	dest := filepath.Join(t.TempDir(), "archive.zip")
	require.NoError(t, client.Download(context.Background(), "download/content/data/j1", dest))

	got, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestParseRetryAfter(t *testing.T) {
	assert.Equal(t, 7*time.Second, parseRetryAfter("7"))
	assert.Zero(t, parseRetryAfter(""))
	assert.Zero(t, parseRetryAfter("garbage"))
}

func TestCircuitBreakerOpensAfterFailures(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{FailureThreshold: 2, SuccessThreshold: 1, Timeout: time.Minute})
	fail := func(context.Context) error { return errors.New(errors.ErrorTypeConnection, "down") }

	ctx := context.Background()
	require.Error(t, cb.Execute(ctx, fail))
	require.Error(t, cb.Execute(ctx, fail))
	assert.Equal(t, CircuitOpen, cb.State())

	err := cb.Execute(ctx, func(context.Context) error { return nil })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "circuit breaker is open")
}

func TestTokenBucketUnlimitedWhenZero(t *testing.T) {
	tb := NewTokenBucket(0)
	for i := 0; i < 100; i++ {
		assert.True(t, tb.Allow())
	}
	require.NoError(t, tb.Wait(context.Background()))
}

func TestTokenBucketThrottles(t *testing.T) {
	tb := NewTokenBucket(1)
	assert.True(t, tb.Allow())
	assert.False(t, tb.Allow())

	stats := tb.GetStats()
	assert.Equal(t, int64(1), stats.TotalAllowed)
	assert.Equal(t, int64(1), stats.TotalThrottled)
}
