package clients

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type headerTransport struct {
	base http.RoundTripper
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())
	clone.Header.Set("X-Auth", "wrapped")
	return t.base.RoundTrip(clone)
}

func TestWrapTransportKeepsClientConfig(t *testing.T) {
	cfg := DefaultHTTPConfig()
	c := NewHTTPClient(cfg)

	var sawBase http.RoundTripper
	c.WrapTransport(func(base http.RoundTripper) http.RoundTripper {
		sawBase = base
		return &headerTransport{base: base}
	})

	// The middleware wraps the configured transport, not a fresh one
	assert.Same(t, c.transport, sawBase)

	// Request timeout survives the wrapping
	assert.Equal(t, cfg.RequestTimeout, c.httpClient.Timeout)

	// Close still reaches the configured transport through the wrapper
	c.Close()
}

func TestWrapTransportMiddlewareApplies(t *testing.T) {
	var gotHeader string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeader = r.Header.Get("X-Auth")
	}))
	defer server.Close()

	c := NewHTTPClient(DefaultHTTPConfig()).WrapTransport(func(base http.RoundTripper) http.RoundTripper {
		return &headerTransport{base: base}
	})
	defer c.Close()

	resp, err := c.Get(context.Background(), server.URL, nil)
	require.NoError(t, err)
	_ = resp.Body.Close()

	assert.Equal(t, "wrapped", gotHeader)
}

func TestRequestTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(time.Second)
	}))
	defer server.Close()

	cfg := DefaultHTTPConfig()
	cfg.RequestTimeout = 20 * time.Millisecond

	c := NewHTTPClient(cfg).WrapTransport(func(base http.RoundTripper) http.RoundTripper {
		return &headerTransport{base: base}
	})
	defer c.Close()

	_, err := c.Get(context.Background(), server.URL, nil)
	require.Error(t, err)
}

func TestGetSetsUserAgent(t *testing.T) {
	var gotUA string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
	}))
	defer server.Close()

	c := NewHTTPClient(nil)
	defer c.Close()

	resp, err := c.Get(context.Background(), server.URL, nil)
	require.NoError(t, err)
	_ = resp.Body.Close()

	assert.Equal(t, userAgent, gotUA)
}
