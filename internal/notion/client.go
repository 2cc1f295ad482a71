// Package notion is a small client for the Notion REST API, limited to the
// tasks database the dashboard reads and updates.
//
// Outbound requests are paced with a token bucket and guarded by a circuit
// breaker. A 429 answer becomes a rate-limit error carrying the Retry-After
// hint so callers can start their cooldown.
package notion

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"task-dashboard/internal/circuitbreaker"
	"task-dashboard/internal/common/errors"
	"task-dashboard/internal/common/logging"
)

const (
	DefaultBaseURL           = "https://api.notion.com/v1"
	DefaultVersion           = "2022-06-28"
	DefaultRequestsPerSecond = 3
	DefaultTimeout           = 15 * time.Second

	// maxErrorBody bounds how much of an error response is read.
	maxErrorBody = 64 << 10
)

// Config configures a Client.
type Config struct {
	APIKey            string
	DatabaseID        string
	BaseURL           string
	Version           string
	RequestsPerSecond int
	HTTPClient        *http.Client
	Breaker           circuitbreaker.Config
}

// Client talks to one Notion tasks database.
type Client struct {
	config  Config
	http    *http.Client
	limiter *rate.Limiter
	breaker *circuitbreaker.Breaker
	logger  logging.Logger
}

// NewClient creates a client. Missing credentials are not an error here;
// every call fails with a config error until they are provided.
func NewClient(config Config, logger logging.Logger) *Client {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")
	if config.Version == "" {
		config.Version = DefaultVersion
	}
	if config.RequestsPerSecond <= 0 {
		config.RequestsPerSecond = DefaultRequestsPerSecond
	}
	if config.Breaker == (circuitbreaker.Config{}) {
		config.Breaker = circuitbreaker.DefaultConfig()
	}
	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultTimeout}
	}

	logger = logger.WithFields(logging.String("component", "notion"))
	return &Client{
		config:  config,
		http:    httpClient,
		limiter: rate.NewLimiter(rate.Limit(config.RequestsPerSecond), config.RequestsPerSecond),
		breaker: circuitbreaker.New("notion", config.Breaker, logger),
		logger:  logger,
	}
}

// Configured reports whether both the API key and database id are set.
func (c *Client) Configured() bool {
	return c.config.APIKey != "" && c.config.DatabaseID != ""
}

// DatabaseID returns the tasks database id.
func (c *Client) DatabaseID() string {
	return c.config.DatabaseID
}

// BreakerState returns the circuit breaker state name.
func (c *Client) BreakerState() string {
	return c.breaker.State()
}

// do sends one request and decodes a 2xx JSON answer into out.
func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	if !c.Configured() {
		return errors.ConfigError("Notion credentials missing. Set NOTION_API_KEY and NOTION_DATABASE_ID.")
	}

	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return errors.InternalError("failed to encode Notion request", err)
		}
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	start := time.Now()
	err := c.breaker.Execute(ctx, func() error {
		return c.send(ctx, method, path, payload, out)
	})
	c.logger.WithContext(ctx).Debug("Notion request",
		logging.String("method", method),
		logging.String("path", path),
		logging.Duration("duration", time.Since(start)),
		logging.Bool("ok", err == nil),
	)
	return err
}

func (c *Client) send(ctx context.Context, method, path string, payload []byte, out interface{}) error {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.config.BaseURL+path, reader)
	if err != nil {
		return errors.InternalError("failed to build Notion request", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	req.Header.Set("Notion-Version", c.config.Version)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return errors.ConnectionError("Notion request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))
		return errors.RateLimitError("notion", ParseRetryAfter(resp.Header.Get("Retry-After")))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		msg := fmt.Sprintf("Notion API returned %d", resp.StatusCode)
		var apiErr apiError
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Message != "" {
			msg = apiErr.Message
		}
		appErr := errors.UpstreamError(resp.StatusCode, msg, nil)
		if apiErr.Code != "" {
			appErr = appErr.WithCode(apiErr.Code)
		}
		return appErr
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.UpstreamError(resp.StatusCode, "invalid Notion response", err)
	}
	return nil
}

// ParseRetryAfter reads a Retry-After header given in seconds or as an HTTP
// date. Missing or unparseable values yield the one second default.
func ParseRetryAfter(value string) time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return errors.DefaultRetryAfter
	}
	if secs, err := strconv.ParseFloat(value, 64); err == nil {
		if secs <= 0 {
			return errors.DefaultRetryAfter
		}
		return time.Duration(secs * float64(time.Second))
	}
	if at, err := http.ParseTime(value); err == nil {
		if d := time.Until(at); d > 0 {
			return d
		}
	}
	return errors.DefaultRetryAfter
}
