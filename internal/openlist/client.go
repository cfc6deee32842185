package openlist

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/cantoplayer/canto/internal/domain"
)

const (
	defaultTimeout = 30 * time.Second
	maxRetries     = 3
	baseRetryDelay = 500 * time.Millisecond
)

// APIError is a response whose envelope code is not 200
type APIError struct {
	Path    string
	Code    int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: code %d: %s", e.Path, e.Code, e.Message)
}

// Unwrap maps the envelope code onto the domain sentinels
func (e *APIError) Unwrap() error {
	if e.Code == http.StatusUnauthorized {
		return domain.ErrUnauthorized
	}
	return domain.ErrRequestFailed
}

// envelope is the common OpenList response shape
type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// Client talks to the OpenList REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *slog.Logger

	mu    sync.RWMutex
	token string
}

var (
	_ domain.FavoritesRepository = (*Client)(nil)
	_ domain.MarksRepository     = (*Client)(nil)
)

// NewClient creates a client. requestsPerSecond <= 0 disables throttling.
func NewClient(baseURL, token string, requestsPerSecond float64, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	limit := rate.Inf
	if requestsPerSecond > 0 {
		limit = rate.Limit(requestsPerSecond)
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
		limiter: rate.NewLimiter(limit, 1),
		logger:  logger,
	}
}

// BaseURL returns the server address without a trailing slash
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Token returns the current auth token
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// SetToken replaces the auth token
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

// get performs a GET request and decodes the envelope data into out
func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	return c.doRequest(ctx, http.MethodGet, path, query, nil, out)
}

// post performs a POST request with a JSON body and decodes the envelope data into out
func (c *Client) post(ctx context.Context, path string, query url.Values, body, out any) error {
	if body == nil {
		body = struct{}{}
	}
	return c.doRequest(ctx, http.MethodPost, path, query, body, out)
}

// doRequest performs an authenticated request against /api.
// 5xx responses to GET are retried with exponential backoff. Other methods
// may have taken effect on the server, so their 5xx is returned as is.
func (c *Client) doRequest(ctx context.Context, method, path string, query url.Values, body, out any) error {
	reqURL := c.baseURL + "/api" + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
	}

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			delay := baseRetryDelay * time.Duration(1<<(attempt-1))
			c.logger.Debug("retrying request", "attempt", attempt, "delay", delay, "path", path)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}

		var reader io.Reader
		if payload != nil {
			reader = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, reqURL, reader)
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Accept", "application/json")
		if payload != nil {
			req.Header.Set("Content-Type", "application/json;charset=utf-8")
		}
		if token := c.Token(); token != "" {
			req.Header.Set("Authorization", token)
		}

		c.logger.Debug("openlist request", "method", method, "path", path, "attempt", attempt)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.logger.Error("openlist request failed", "error", err, "path", path)
			return fmt.Errorf("%s: %w", path, domain.ErrServerOffline)
		}

		data, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return fmt.Errorf("failed to read response: %w", err)
		}

		if resp.StatusCode == http.StatusUnauthorized {
			return &APIError{Path: path, Code: http.StatusUnauthorized, Message: "unauthorized"}
		}
		if resp.StatusCode >= 500 {
			if method != http.MethodGet {
				c.logger.Error("openlist server error", "status", resp.StatusCode, "method", method, "path", path)
				return fmt.Errorf("%s: server error %d: %w", path, resp.StatusCode, domain.ErrRequestFailed)
			}
			lastErr = fmt.Errorf("%s: server error %d: %w", path, resp.StatusCode, domain.ErrRequestFailed)
			c.logger.Warn("openlist server error, will retry",
				"status", resp.StatusCode,
				"attempt", attempt,
				"path", path,
			)
			continue
		}
		if resp.StatusCode != http.StatusOK {
			c.logger.Error("openlist request error", "status", resp.StatusCode, "path", path)
			return fmt.Errorf("%s: unexpected status %d: %w", path, resp.StatusCode, domain.ErrRequestFailed)
		}

		return decodeEnvelope(path, data, out)
	}

	c.logger.Error("openlist request failed after retries", "error", lastErr, "path", path)
	return lastErr
}

func decodeEnvelope(path string, data []byte, out any) error {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return fmt.Errorf("%s: failed to decode response: %w", path, err)
	}
	if env.Code != http.StatusOK {
		msg := env.Message
		if msg == "" {
			msg = "request failed"
		}
		return &APIError{Path: path, Code: env.Code, Message: msg}
	}
	if out == nil || len(env.Data) == 0 || bytes.Equal(env.Data, []byte("null")) {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("%s: failed to decode data: %w", path, err)
	}
	return nil
}

// IsUnauthorized reports whether err means the token must be renewed
func IsUnauthorized(err error) bool {
	return errors.Is(err, domain.ErrUnauthorized)
}
