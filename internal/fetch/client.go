package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"time"
)

const (
	// UserAgent identifies the client to upstream sites. Several of them
	// serve stripped pages to unknown agents, so a desktop browser string
	// is sent by default.
	UserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

	// DefaultTimeout applies when a source sets none; MaxTimeout is the
	// hard cap no source may exceed.
	DefaultTimeout = 10 * time.Second
	MaxTimeout     = 15 * time.Second

	// DefaultMaxRetries is the number of additional attempts after a 429.
	DefaultMaxRetries = 2

	// DefaultBackoffBase seeds the exponential backoff used when a 429
	// carries no Retry-After header.
	DefaultBackoffBase = 2 * time.Second
)

// Request describes one GET to an upstream endpoint.
type Request struct {
	URL      string
	Provider string
	Headers  map[string]string
	Timeout  time.Duration
}

// Payload is the raw response body; no parsing happens in this layer.
type Payload struct {
	Body        []byte
	ContentType string
	URL         string
}

// Config controls the retrieval client.
type Config struct {
	UserAgent   string
	Timeout     time.Duration
	MaxRetries  int
	BackoffBase time.Duration
}

// DefaultConfig returns the standard retrieval settings.
func DefaultConfig() Config {
	return Config{
		UserAgent:   UserAgent,
		Timeout:     DefaultTimeout,
		MaxRetries:  DefaultMaxRetries,
		BackoffBase: DefaultBackoffBase,
	}
}

// Client performs single fetches with timeout, identification, and
// rate-limit-aware retry. Retry state is local to each Fetch call.
type Client struct {
	httpClient *http.Client
	cfg        Config
	logger     *log.Logger
}

// NewClient creates a retrieval client.
func NewClient(cfg Config) *Client {
	if cfg.UserAgent == "" {
		cfg.UserAgent = UserAgent
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.BackoffBase <= 0 {
		cfg.BackoffBase = DefaultBackoffBase
	}
	return &Client{
		httpClient: &http.Client{},
		cfg:        cfg,
		logger:     log.New(log.Writer(), "[fetch] ", log.LstdFlags),
	}
}

// Fetch GETs the request URL and returns the raw payload. HTTP 429 is
// retried up to MaxRetries additional times, honoring Retry-After when the
// server sends one and backing off exponentially otherwise. Any other
// non-success status fails immediately.
func (c *Client) Fetch(ctx context.Context, req Request) (*Payload, error) {
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = c.cfg.Timeout
	}
	if timeout > MaxTimeout {
		timeout = MaxTimeout
	}

	var lastErr error
	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		payload, err := c.do(ctx, req, timeout)
		if err == nil {
			return payload, nil
		}
		lastErr = err

		var fe *Error
		if !errors.As(err, &fe) || fe.Kind != ErrRateLimited || attempt == c.cfg.MaxRetries {
			return nil, err
		}

		delay := fe.RetryAfter
		if delay <= 0 {
			delay = c.cfg.BackoffBase * (1 << attempt)
		}
		c.logger.Printf("⚠️ 429 from %s, retrying in %v (attempt %d/%d)",
			req.URL, delay, attempt+1, c.cfg.MaxRetries)

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, NewTransport(ctx.Err())
		}
	}
	return nil, lastErr
}

func (c *Client) do(ctx context.Context, req Request, timeout time.Duration) (*Payload, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, req.URL, nil)
	if err != nil {
		return nil, NewTransport(fmt.Errorf("building request: %w", err))
	}
	httpReq.Header.Set("User-Agent", c.cfg.UserAgent)
	for key, value := range req.Headers {
		httpReq.Header.Set(key, value)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, NewTransport(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, NewRateLimited(parseRetryAfter(resp.Header.Get("Retry-After")))
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, NewHTTPStatus(resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, NewTransport(fmt.Errorf("reading body: %w", err))
	}

	return &Payload{
		Body:        body,
		ContentType: resp.Header.Get("Content-Type"),
		URL:         req.URL,
	}, nil
}

// parseRetryAfter accepts both delta-seconds and HTTP-date forms.
func parseRetryAfter(value string) time.Duration {
	if value == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(value); err == nil && seconds >= 0 {
		return time.Duration(seconds) * time.Second
	}
	if at, err := http.ParseTime(value); err == nil {
		if wait := time.Until(at); wait > 0 {
			return wait
		}
	}
	return 0
}
