package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/mauv0809/edgar-ingest/internal/config"
	"github.com/rs/zerolog"
	"github.com/sethvargo/go-retry"
)

const (
	defaultTimeout = 60 * time.Second
	defaultBackoff = time.Second
	maxBodySize    = 512 << 20
)

// Fetcher is the narrow fetch boundary the ingestors depend on.
type Fetcher interface {
	Get(ctx context.Context, url string) ([]byte, error)
}

// StatusError is returned for any non-2xx response.
type StatusError struct {
	StatusCode int
	URL        string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d from %s", e.StatusCode, e.URL)
}

// IsNotFound reports whether err carries a 404 status.
func IsNotFound(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == http.StatusNotFound
}

// Client is a rate-limited HTTP client for the SEC endpoints.
type Client struct {
	userAgent  string
	httpClient *http.Client
	limiter    *Limiter
	maxRetries uint64
	backoff    time.Duration
	log        zerolog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// WithRetries sets the retry budget and the first backoff interval.
func WithRetries(n int, base time.Duration) Option {
	return func(c *Client) {
		if n < 0 {
			n = 0
		}
		c.maxRetries = uint64(n)
		if base > 0 {
			c.backoff = base
		}
	}
}

// WithLogger sets the logger used for retry messages.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) { c.log = l }
}

// NewClient creates a client that identifies itself with userAgent on every
// request. The SEC rejects anonymous traffic, so the agent is validated here.
func NewClient(userAgent string, limiter *Limiter, opts ...Option) (*Client, error) {
	if err := config.ValidateUserAgent(userAgent); err != nil {
		return nil, err
	}
	if limiter == nil {
		return nil, errors.New("limiter is required")
	}
	c := &Client{
		userAgent:  userAgent,
		httpClient: &http.Client{Timeout: defaultTimeout},
		limiter:    limiter,
		maxRetries: 3,
		backoff:    defaultBackoff,
		log:        zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Get fetches url and returns the response body. Network errors, 429 and 5xx
// responses are retried with exponential backoff; every attempt waits on the
// shared limiter first.
func (c *Client) Get(ctx context.Context, url string) ([]byte, error) {
	var body []byte
	attempt := 0

	b := retry.WithMaxRetries(c.maxRetries, retry.NewExponential(c.backoff))
	err := retry.Do(ctx, b, func(ctx context.Context) error {
		attempt++
		if attempt > 1 {
			c.log.Debug().Str("url", url).Int("attempt", attempt).Msg("retrying request")
		}

		if err := c.limiter.Acquire(ctx); err != nil {
			return err
		}

		data, err := c.doRequest(ctx, url)
		if err == nil {
			body = data
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if retryable(err) {
			c.log.Warn().Err(err).Str("url", url).Int("attempt", attempt).Msg("request failed")
			return retry.RetryableError(err)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return body, nil
}

func (c *Client) doRequest(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return nil, &StatusError{StatusCode: resp.StatusCode, URL: url}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	return body, nil
}

func retryable(err error) bool {
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode == http.StatusTooManyRequests || se.StatusCode >= 500
	}
	return true
}
