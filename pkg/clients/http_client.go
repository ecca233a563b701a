package clients

import (
	"context"
	"net"
	"net/http"
	"time"
)

const userAgent = "Gaon/1.0"

// HTTPConfig configures the HTTP client
type HTTPConfig struct {
	DialTimeout         time.Duration
	RequestTimeout      time.Duration
	IdleConnTimeout     time.Duration
	MaxIdleConnsPerHost int

	// RateLimit enables client-side throttling when > 0 (requests/sec)
	RateLimit float64
	RateBurst int
}

// DefaultHTTPConfig returns defaults suited to polite API extraction
func DefaultHTTPConfig() *HTTPConfig {
	return &HTTPConfig{
		DialTimeout:         10 * time.Second,
		RequestTimeout:      30 * time.Second,
		IdleConnTimeout:     90 * time.Second,
		MaxIdleConnsPerHost: 4,
	}
}

// HTTPClient wraps net/http with connection reuse and optional
// client-side rate limiting. Connectors that need auth middleware
// (e.g. an oauth2 token transport) layer it over the configured
// transport with WrapTransport, keeping timeouts and Close intact.
type HTTPClient struct {
	httpClient  *http.Client
	transport   *http.Transport
	rateLimiter RateLimiter
}

// NewHTTPClient creates a new HTTP client
func NewHTTPClient(config *HTTPConfig) *HTTPClient {
	if config == nil {
		config = DefaultHTTPConfig()
	}

	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   config.DialTimeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConnsPerHost: config.MaxIdleConnsPerHost,
		IdleConnTimeout:     config.IdleConnTimeout,
	}

	client := &HTTPClient{
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   config.RequestTimeout,
		},
		transport: transport,
	}

	if config.RateLimit > 0 {
		client.rateLimiter = NewTokenBucketRateLimiter(config.RateLimit, config.RateBurst)
	}

	return client
}

// WrapTransport layers middleware (e.g. an auth round tripper) over
// the configured transport. Request timeout, rate limiting, and idle
// connection release are unaffected by the wrapping.
func (c *HTTPClient) WrapTransport(wrap func(http.RoundTripper) http.RoundTripper) *HTTPClient {
	c.httpClient.Transport = wrap(c.httpClient.Transport)
	return c
}

// Get performs an HTTP GET request
func (c *HTTPClient) Get(ctx context.Context, url string, headers map[string]string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	for key, value := range headers {
		req.Header.Set(key, value)
	}
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", userAgent)
	}

	return c.Do(req)
}

// Do performs an HTTP request, honoring the rate limiter
func (c *HTTPClient) Do(req *http.Request) (*http.Response, error) {
	if c.rateLimiter != nil {
		if err := c.rateLimiter.Wait(req.Context()); err != nil {
			return nil, err
		}
	}
	return c.httpClient.Do(req)
}

// Close releases idle connections on the configured transport,
// regardless of any middleware wrapped over it
func (c *HTTPClient) Close() {
	c.transport.CloseIdleConnections()
}
