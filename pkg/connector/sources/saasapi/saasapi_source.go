// Package saasapi implements the saas_api source connector for
// cursor-paginated REST APIs with bearer-token auth. Each page of the
// collection becomes one batch; "next page" cursors are followed until
// the API signals exhaustion, and HTTP 429 responses are retried with
// exponential backoff up to a bounded budget before surfacing a
// rate-limit error.
package saasapi

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/gaon-data/gaon/pkg/clients"
	"github.com/gaon-data/gaon/pkg/config"
	"github.com/gaon-data/gaon/pkg/connector/core"
	"github.com/gaon-data/gaon/pkg/errors"
	"github.com/gaon-data/gaon/pkg/logger"
)

const (
	defaultPageSize   = 100
	maxPageSize       = 1000
	defaultMaxRetries = 5
	initialBackoff    = time.Second
)

// Source implements core.Source for paginated SaaS APIs.
type Source struct {
	spec       *config.SourceSpec
	pageSize   int
	maxRetries int
	logger     *zap.Logger

	client *clients.HTTPClient
	retry  *clients.RetryPolicy

	mu        sync.Mutex
	opened    bool
	extracted bool
}

// pageResponse is the wire shape of one collection page.
type pageResponse struct {
	Results []core.Record `json:"results"`
	Paging  *pagingInfo   `json:"paging,omitempty"`
}

type pagingInfo struct {
	Next *nextCursor `json:"next,omitempty"`
}

type nextCursor struct {
	After string `json:"after,omitempty"`
}

// New creates a saas_api source connector
func New(spec *config.SourceSpec) (core.Source, error) {
	if spec.API == nil {
		return nil, errors.New(errors.ErrorTypeConfig, "api payload is required for saas_api")
	}

	pageSize := spec.API.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	if spec.BatchSize > 0 && spec.BatchSize < pageSize {
		pageSize = spec.BatchSize
	}

	maxRetries := spec.API.MaxRetries
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}

	return &Source{
		spec:       spec,
		pageSize:   pageSize,
		maxRetries: maxRetries,
		logger:     logger.Get().With(zap.String("connector", "saas_api"), zap.String("source", spec.Name)),
	}, nil
}

// Open builds the authenticated HTTP client and validates the
// credential with a single-record probe against the collection.
func (s *Source) Open(ctx context.Context, spec *config.SourceSpec) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.opened {
		return errors.New(errors.ErrorTypeValidation, "source already open")
	}

	tokenSource := oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: spec.API.Token,
		TokenType:   "Bearer",
	})

	httpCfg := clients.DefaultHTTPConfig()
	httpCfg.RateLimit = spec.API.RequestsPerSecond
	httpCfg.RateBurst = 1

	s.client = clients.NewHTTPClient(httpCfg).WrapTransport(func(base http.RoundTripper) http.RoundTripper {
		return &oauth2.Transport{Source: tokenSource, Base: base}
	})
	s.retry = clients.NewRetryPolicy(s.maxRetries, initialBackoff)

	if err := s.probe(ctx); err != nil {
		s.client.Close()
		s.client = nil
		return err
	}

	s.opened = true
	s.logger.Info("authenticated against API",
		zap.String("object", spec.API.Object),
		zap.Int("page_size", s.pageSize))

	return nil
}

// probe requests a single record to verify reachability and auth
func (s *Source) probe(ctx context.Context) error {
	resp, err := s.client.Get(ctx, s.pageURL("", 1), nil)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeConnection, "failed to reach API")
	}
	defer drainAndClose(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return errors.Newf(errors.ErrorTypeConnection, "API probe returned status %d", resp.StatusCode)
	}
	return nil
}

// Extract returns a cursor over the collection's pages.
func (s *Source) Extract(ctx context.Context) (core.Cursor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.opened {
		return nil, errors.New(errors.ErrorTypeValidation, "source not open")
	}
	if s.extracted {
		return nil, errors.New(errors.ErrorTypeValidation, "extraction already started; reopen the source to re-extract")
	}
	s.extracted = true

	return &pageCursor{source: s}, nil
}

// Close releases idle connections.
func (s *Source) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.client != nil {
		s.client.Close()
		s.client = nil
	}
	s.opened = false

	return nil
}

// pageURL builds the collection URL for one page fetch. The bearer
// token travels in the Authorization header, never in the URL.
func (s *Source) pageURL(after string, limit int) string {
	base := strings.TrimRight(s.spec.API.BaseURL, "/")

	params := url.Values{}
	params.Set("limit", strconv.Itoa(limit))
	if after != "" {
		params.Set("after", after)
	}

	return fmt.Sprintf("%s/%s?%s", base, url.PathEscape(s.spec.API.Object), params.Encode())
}

// fetchPage fetches one page, retrying 429 responses with exponential
// backoff. The same page is re-requested until it succeeds or the
// retry budget is exhausted.
func (s *Source) fetchPage(ctx context.Context, after string) (*pageResponse, error) {
	var page *pageResponse

	err := s.retry.ExecuteWithCondition(ctx, func() (time.Duration, error) {
		resp, err := s.client.Get(ctx, s.pageURL(after, s.pageSize), nil)
		if err != nil {
			return 0, errors.Wrap(err, errors.ErrorTypeExtraction, "page fetch failed")
		}
		defer drainAndClose(resp.Body)

		if resp.StatusCode == http.StatusTooManyRequests {
			hint := retryAfterHint(resp)
			s.logger.Warn("API throttled request, backing off",
				zap.String("after", after),
				zap.Duration("retry_after", hint))
			return hint, errors.New(errors.ErrorTypeRateLimit, "API returned 429")
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return 0, errors.Newf(errors.ErrorTypeExtraction, "page fetch returned status %d", resp.StatusCode)
		}

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return 0, errors.Wrap(err, errors.ErrorTypeExtraction, "failed to read page body")
		}

		var decoded pageResponse
		if err := json.Unmarshal(body, &decoded); err != nil {
			return 0, errors.Wrap(err, errors.ErrorTypeExtraction, "failed to decode page")
		}

		page = &decoded
		return 0, nil
	}, func(err error) bool {
		return errors.IsType(err, errors.ErrorTypeRateLimit)
	})

	if err != nil {
		if errors.IsType(err, errors.ErrorTypeRateLimit) {
			return nil, errors.Wrap(err, errors.ErrorTypeRateLimit, "rate limit retry budget exhausted")
		}
		return nil, err
	}

	return page, nil
}

// retryAfterHint reads the Retry-After header, if any
func retryAfterHint(resp *http.Response) time.Duration {
	header := resp.Header.Get("Retry-After")
	if header == "" {
		return 0
	}
	seconds, err := strconv.Atoi(header)
	if err != nil || seconds <= 0 {
		return 0
	}
	return time.Duration(seconds) * time.Second
}

func drainAndClose(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, body)
	_ = body.Close()
}

// pageCursor yields one batch per API page, following next cursors
// until the API stops returning them.
type pageCursor struct {
	source *Source

	after  string
	seq    int
	done   bool
	closed bool
}

// Next fetches the next page. It returns nil, nil once the API signals
// exhaustion: no next cursor and no further results. A mid-stream empty
// page that still carries a next cursor is followed, not treated as the
// end of the collection.
func (c *pageCursor) Next(ctx context.Context) (*core.Batch, error) {
	for {
		if c.done || c.closed {
			return nil, nil
		}

		page, err := c.source.fetchPage(ctx, c.after)
		if err != nil {
			c.done = true
			return nil, err
		}

		next := ""
		if page.Paging != nil && page.Paging.Next != nil {
			next = page.Paging.Next.After
		}

		// A repeated cursor would spin forever; treat it as terminal.
		if next == "" || next == c.after {
			c.done = true
		} else {
			c.after = next
		}

		if len(page.Results) == 0 {
			if c.done {
				return nil, nil
			}
			continue
		}

		c.seq++
		return &core.Batch{
			Source:  c.source.spec.Name,
			Seq:     c.seq,
			Records: page.Results,
		}, nil
	}
}

// Close marks the cursor terminal.
func (c *pageCursor) Close() error {
	c.closed = true
	return nil
}
