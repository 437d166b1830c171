package kanka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/kanka-search/internal/metrics"
)

// DefaultAPIURL is the root of the Kanka REST API.
const DefaultAPIURL = "https://api.kanka.io/1.0"

// Fetcher performs a single HTTP GET.
type Fetcher interface {
	Fetch(ctx context.Context, request FetchRequest) (FetchResponse, error)
}

// Waiter throttles outgoing calls.
type Waiter interface {
	Wait(ctx context.Context, url string) error
}

// Retrier decides whether and when a failed call is attempted again.
type Retrier interface {
	ShouldRetry(err error, attempt int) bool
	Backoff(attempt int) time.Duration
}

// Config controls a Client.
type Config struct {
	APIURL         string
	RequestTimeout time.Duration
}

// Client lists campaigns and category entities.
type Client struct {
	apiURL  string
	timeout time.Duration
	headers HeaderProvider
	fetcher Fetcher
	limiter Waiter
	retry   Retrier
	logger  *zap.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithRetry retries throttled and failed calls according to r.
func WithRetry(r Retrier) Option {
	return func(c *Client) {
		c.retry = r
	}
}

// NewClient wires a Client. limiter and logger may be nil.
func NewClient(
	cfg Config,
	headers HeaderProvider,
	fetcher Fetcher,
	limiter Waiter,
	logger *zap.Logger,
	opts ...Option,
) (*Client, error) {
	if headers == nil {
		return nil, errors.New("kanka: header provider is required")
	}
	if fetcher == nil {
		return nil, errors.New("kanka: fetcher is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	apiURL := strings.TrimRight(cfg.APIURL, "/")
	if apiURL == "" {
		apiURL = DefaultAPIURL
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	c := &Client{
		apiURL:  apiURL,
		timeout: timeout,
		headers: headers,
		fetcher: fetcher,
		limiter: limiter,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// ListCampaigns returns every campaign visible to the token.
func (c *Client) ListCampaigns(ctx context.Context) ([]Entity, error) {
	return c.list(ctx, "campaigns", "campaigns")
}

// ListCategory returns the records of one category inside a campaign.
func (c *Client) ListCategory(ctx context.Context, campaignID, category string) ([]Entity, error) {
	return c.list(ctx, category, fmt.Sprintf("campaigns/%s/%s", campaignID, category))
}

func (c *Client) list(ctx context.Context, endpoint, path string) ([]Entity, error) {
	target := c.apiURL + "/" + path
	for attempt := 1; ; attempt++ {
		entities, err := c.listOnce(ctx, endpoint, target)
		if err == nil || c.retry == nil || errors.Is(err, ErrMalformedResponse) || !c.retry.ShouldRetry(err, attempt) {
			return entities, err
		}

		delay := c.retry.Backoff(attempt)
		var statusErr *StatusError
		if errors.As(err, &statusErr) && statusErr.RetryAfter > delay {
			delay = statusErr.RetryAfter
		}
		metrics.ObserveAPIRetry(endpoint)
		c.logger.Warn("retrying kanka request",
			zap.String("endpoint", endpoint),
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.Error(err),
		)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, fmt.Errorf("retry %s: %w", target, errors.Join(ctx.Err(), err))
		case <-timer.C:
		}
	}
}

func (c *Client) listOnce(ctx context.Context, endpoint, target string) ([]Entity, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx, target); err != nil {
			return nil, fmt.Errorf("wait for rate limit: %w", err)
		}
	}

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	resp, err := c.fetcher.Fetch(callCtx, FetchRequest{URL: target, Headers: c.header()})
	if err != nil {
		metrics.ObserveAPIRequest(endpoint, "error", time.Since(start))
		if ctx.Err() == nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			return nil, &CallTimeoutError{URL: target, Timeout: c.timeout, Err: err}
		}
		return nil, fmt.Errorf("get %s: %w", target, err)
	}
	if resp.StatusCode != http.StatusOK {
		metrics.ObserveAPIRequest(endpoint, "status_"+strconv.Itoa(resp.StatusCode), time.Since(start))
		return nil, &StatusError{URL: target, StatusCode: resp.StatusCode, RetryAfter: retryAfter(resp.Headers)}
	}
	metrics.ObserveAPIRequest(endpoint, "ok", time.Since(start))

	var payload listResponse
	if err := json.Unmarshal(resp.Body, &payload); err != nil {
		return nil, fmt.Errorf("decode %s: %w", target, errors.Join(ErrMalformedResponse, err))
	}
	if payload.Data == nil {
		return nil, fmt.Errorf("decode %s: %w", target, ErrMalformedResponse)
	}
	c.logger.Debug("listed entities",
		zap.String("endpoint", endpoint),
		zap.Int("count", len(*payload.Data)),
		zap.Duration("duration", resp.Duration),
	)
	return *payload.Data, nil
}

func (c *Client) header() http.Header {
	h := make(http.Header)
	for k, v := range c.headers.Headers() {
		h.Set(k, v)
	}
	return h
}
