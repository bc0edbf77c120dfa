// Package clients provides the resilient HTTP client the tap issues all
// API traffic through, together with the rate limiting, circuit breaking,
// and retry machinery wrapped around it.
package clients

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/klauspost/compress/gzip"
	"go.uber.org/zap"

	"github.com/dext/tap-intercom/pkg/config"
	"github.com/dext/tap-intercom/pkg/errors"
	"github.com/dext/tap-intercom/pkg/json"
	"github.com/dext/tap-intercom/pkg/logger"
	"github.com/dext/tap-intercom/pkg/metrics"
	pstrings "github.com/dext/tap-intercom/pkg/strings"
)

// Client is the resilient API client. Every request flows through the
// rate limiter, the circuit breaker, and the retry policy in that order.
type Client struct {
	baseURL    string
	version    string
	userAgent  string
	httpClient *http.Client
	limiter    RateLimiter
	breaker    *CircuitBreaker
	retry      *RetryPolicy
	collector  *metrics.Collector
	download   time.Duration
}

// NewClient builds a client from configuration. The transport carries
// authentication; pass nil to use http.DefaultTransport.
func NewClient(cfg *config.Config, transport http.RoundTripper) *Client {
	if transport == nil {
		transport = http.DefaultTransport
	}

	c := &Client{
		baseURL:   cfg.API.BaseURL,
		version:   cfg.API.Version,
		userAgent: cfg.API.UserAgent,
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   cfg.Timeouts.Request,
		},
		limiter:   NewTokenBucket(cfg.Reliability.RateLimitPerSec),
		retry:     NewRetryPolicy(cfg.Reliability),
		collector: metrics.NewCollector("http_client"),
		download:  cfg.Timeouts.Download,
	}
	if cfg.Reliability.CircuitBreaker {
		c.breaker = NewCircuitBreaker(DefaultCircuitBreakerConfig())
	}
	return c
}

// Get issues a GET against an API path with optional query parameters and
// returns the response body.
func (c *Client) Get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	u := c.buildURL(path, params)
	return c.do(ctx, http.MethodGet, path, u, nil)
}

// PostJSON issues a POST with a JSON body against an API path.
func (c *Client) PostJSON(ctx context.Context, path string, body interface{}) ([]byte, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeData, "failed to encode request body")
	}
	u := c.buildURL(path, nil)
	return c.do(ctx, http.MethodPost, path, u, payload)
}

// Download streams the response of an API path into destPath. The longer
// download timeout applies instead of the request timeout.
func (c *Client) Download(ctx context.Context, path, destPath string) error {
	u := c.buildURL(path, nil)

	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, c.download)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeInternal, "failed to build download request")
	}
	c.setHeaders(req)
	// Archives are already compressed.
	req.Header.Set("Accept", "application/octet-stream")
	req.Header.Del("Accept-Encoding")

	start := time.Now()
	// http.Client.Timeout would cut long downloads short; rely on ctx.
	resp, err := (&http.Client{Transport: c.httpClient.Transport}).Do(req)
	if err != nil {
		c.collector.ObserveRequest(path, http.MethodGet, "error", time.Since(start))
		return errors.Wrap(err, errors.ErrorTypeConnection, "download request failed")
	}
	defer resp.Body.Close()

	c.collector.ObserveRequest(path, http.MethodGet, strconv.Itoa(resp.StatusCode), time.Since(start))
	if resp.StatusCode != http.StatusOK {
		return statusError(resp, nil)
	}

	f, err := os.Create(destPath)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to create download target")
	}
	defer f.Close()

	n, err := io.Copy(f, resp.Body)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeConnection, "download interrupted")
	}

	logger.Get().Debug("downloaded archive",
		zap.String("path", path),
		zap.String("dest", destPath),
		zap.Int64("bytes", n))
	return nil
}

// do executes a request under the full reliability stack and returns the
// response body.
func (c *Client) do(ctx context.Context, method, endpoint, fullURL string, body []byte) ([]byte, error) {
	var out []byte

	attempt := func(ctx context.Context) error {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}

		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, fullURL, reader)
		if err != nil {
			return errors.Wrap(err, errors.ErrorTypeInternal, "failed to build request")
		}
		c.setHeaders(req)
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		start := time.Now()
		resp, err := c.httpClient.Do(req)
		if err != nil {
			c.collector.ObserveRequest(endpoint, method, "error", time.Since(start))
			if ctx.Err() != nil {
				return errors.Wrap(err, errors.ErrorTypeTimeout, "request timed out")
			}
			return errors.Wrap(err, errors.ErrorTypeConnection, "request failed")
		}
		defer resp.Body.Close()

		c.collector.ObserveRequest(endpoint, method, strconv.Itoa(resp.StatusCode), time.Since(start))

		data, readErr := readBody(resp)
		if resp.StatusCode >= 400 {
			return statusError(resp, data)
		}
		if readErr != nil {
			return errors.Wrap(readErr, errors.ErrorTypeConnection, "failed to read response body")
		}
		out = data
		return nil
	}

	wrapped := attempt
	if c.breaker != nil {
		wrapped = func(ctx context.Context) error {
			return c.breaker.Execute(ctx, attempt)
		}
	}

	if err := c.retry.Execute(ctx, wrapped); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) buildURL(path string, params url.Values) string {
	ub := pstrings.NewURLBuilder(c.baseURL)
	defer ub.Close()

	ub.AddPath(pstrings.Split(pstrings.TrimSpace(path), "/")...)
	for key, values := range params {
		for _, v := range values {
			ub.AddParam(key, v)
		}
	}
	return ub.String()
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Accept-Encoding", "gzip")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if c.version != "" {
		req.Header.Set("Intercom-Version", c.version)
	}
}

// readBody drains the response, transparently decompressing gzip.
func readBody(resp *http.Response) ([]byte, error) {
	var r io.Reader = resp.Body
	if resp.Header.Get("Content-Encoding") == "gzip" {
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, err
		}
		defer gz.Close()
		r = gz
	}

	buf := json.GetBuffer()
	defer json.PutBuffer(buf)
	if _, err := buf.ReadFrom(r); err != nil {
		return nil, err
	}
	out := make([]byte, buf.Len())
	copy(out, buf.Bytes())
	return out, nil
}

// statusError maps an HTTP failure status to a typed error.
func statusError(resp *http.Response, body []byte) error {
	msg := fmt.Sprintf("API returned %d", resp.StatusCode)
	if len(body) > 0 {
		snippet := body
		if len(snippet) > 256 {
			snippet = snippet[:256]
		}
		msg = fmt.Sprintf("%s: %s", msg, snippet)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return errors.New(errors.ErrorTypeAuthentication, msg)
	case resp.StatusCode == http.StatusNotFound:
		return errors.New(errors.ErrorTypeNotFound, msg)
	case resp.StatusCode == http.StatusTooManyRequests:
		err := errors.New(errors.ErrorTypeRateLimit, msg)
		if ra := parseRetryAfter(resp.Header.Get("Retry-After")); ra > 0 {
			err = err.WithDetail("retry_after", ra)
		}
		return err
	case resp.StatusCode >= 500:
		return errors.New(errors.ErrorTypeConnection, msg)
	default:
		return errors.New(errors.ErrorTypeValidation, msg)
	}
}

func parseRetryAfter(header string) time.Duration {
	if header == "" {
		return 0
	}
	if secs, err := strconv.Atoi(header); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(header); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}
