// Package client talks to the accidents REST API.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ppiankov/acmap/internal/cache"
	"github.com/ppiankov/acmap/internal/model"
	"github.com/ppiankov/acmap/internal/util"
	"github.com/ppiankov/acmap/internal/worker"
	"go.uber.org/zap"
)

const accidentsPath = "/accidents"

// fetchSleepFunc is the sleep function used between retries (injectable for tests)
var fetchSleepFunc = time.Sleep

// ErrUnexpectedStatus marks non-2xx API responses
var ErrUnexpectedStatus = errors.New("unexpected status")

// StatusError carries the status of a failed API response
type StatusError struct {
	Code   int
	Status string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status: %d %s", e.Code, e.Status)
}

// Unwrap lets callers match ErrUnexpectedStatus
func (e *StatusError) Unwrap() error {
	return ErrUnexpectedStatus
}

// Client fetches accident data from the API
type Client struct {
	httpClient *http.Client
	baseURL    string
	userAgent  string
	maxBytes   int64
	maxRetries int
	limiter    *worker.Limiter
	cache      cache.Cache
	log        *zap.Logger
}

// NewClient creates an API client. limiter, c and log may be nil.
func NewClient(cfg model.APIConfig, limiter *worker.Limiter, c cache.Cache, log *zap.Logger) *Client {
	if c == nil {
		c = cache.Nop{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 1
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = model.DefaultConfig().API.MaxBodyBytes
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				Proxy: util.NewProxyFunc(cfg.HTTPProxy, cfg.HTTPSProxy, cfg.NoProxy),
			},
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 3 {
					return fmt.Errorf("stopped after 3 redirects")
				}
				return nil
			},
		},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		userAgent:  cfg.UserAgent,
		maxBytes:   cfg.MaxBodyBytes,
		maxRetries: cfg.MaxRetries,
		limiter:    limiter,
		cache:      c,
		log:        log,
	}
}

// FetchMeta contains HTTP metadata of an API response
type FetchMeta struct {
	StatusCode   int    `json:"status_code"`
	ContentType  string `json:"content_type,omitempty"`
	LastModified string `json:"last_modified,omitempty"`
	ETag         string `json:"etag,omitempty"`
}

// FetchResult is a raw API response body
type FetchResult struct {
	Body      []byte
	Meta      FetchMeta
	FinalURL  string
	FromCache bool
}

// AccidentsURL returns the endpoint serving the full accident list
func (c *Client) AccidentsURL() string {
	return c.baseURL + accidentsPath
}

// FetchAccidents returns the full accident list, from cache when possible
func (c *Client) FetchAccidents(ctx context.Context) ([]model.Accident, error) {
	endpoint := c.AccidentsURL()
	key := cache.Key(endpoint)

	if body, ok := c.cache.Get(key); ok {
		accidents, err := decodeAccidents(body)
		if err == nil {
			c.log.Debug("Accidents served from cache", zap.String("url", endpoint), zap.Int("count", len(accidents)))
			return accidents, nil
		}
		c.log.Warn("Dropping unreadable cache entry", zap.String("url", endpoint), zap.Error(err))
		_ = c.cache.Delete(key)
	}

	result, err := c.FetchWithRetry(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	accidents, err := decodeAccidents(result.Body)
	if err != nil {
		return nil, err
	}

	if err := c.cache.Set(key, result.Body, 0); err != nil {
		c.log.Warn("Failed to cache accidents", zap.String("url", endpoint), zap.Error(err))
	}

	c.log.Info("Fetched accidents",
		zap.String("url", result.FinalURL),
		zap.Int("count", len(accidents)),
		zap.Int("bytes", len(result.Body)),
	)

	return accidents, nil
}

func decodeAccidents(body []byte) ([]model.Accident, error) {
	var accidents []model.Accident
	if err := json.Unmarshal(body, &accidents); err != nil {
		return nil, fmt.Errorf("decode accidents: %w", err)
	}
	if accidents == nil {
		accidents = []model.Accident{}
	}
	return accidents, nil
}

// FetchWithRetry fetches rawURL, retrying transport failures, 5xx and 429
// with a linear backoff
func (c *Client) FetchWithRetry(ctx context.Context, rawURL string) (*FetchResult, error) {
	var lastErr error

	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		result, err := c.Fetch(ctx, rawURL)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !isRetryableFetchError(err) || attempt == c.maxRetries {
			break
		}

		backoff := time.Duration(attempt) * 500 * time.Millisecond
		c.log.Debug("Retrying API request",
			zap.String("url", rawURL),
			zap.Int("attempt", attempt),
			zap.Duration("backoff", backoff),
			zap.Error(err),
		)
		fetchSleepFunc(backoff)

		if ctx.Err() != nil {
			return nil, fmt.Errorf("fetch: %w", ctx.Err())
		}
	}

	return nil, lastErr
}

// Fetch performs a single GET request
func (c *Client) Fetch(ctx context.Context, rawURL string) (*FetchResult, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx, rawURL); err != nil {
			return nil, fmt.Errorf("rate limit: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{Code: resp.StatusCode, Status: resp.Status}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if int64(len(body)) > c.maxBytes {
		return nil, fmt.Errorf("read body: response exceeds %d bytes", c.maxBytes)
	}

	return &FetchResult{
		Body: body,
		Meta: FetchMeta{
			StatusCode:   resp.StatusCode,
			ContentType:  resp.Header.Get("Content-Type"),
			LastModified: resp.Header.Get("Last-Modified"),
			ETag:         resp.Header.Get("ETag"),
		},
		FinalURL: resp.Request.URL.String(),
	}, nil
}

// isRetryableFetchError reports whether another attempt may succeed
func isRetryableFetchError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Code >= 500 || statusErr.Code == http.StatusTooManyRequests
	}

	var urlErr *url.Error
	return errors.As(err, &urlErr)
}
