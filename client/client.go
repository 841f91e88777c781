// Package client talks to the blog CMS API. Reads go through a small
// response cache with per-resource stale times, and identical concurrent
// reads share one request.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

// APIError is a non-2xx response of the API.
type APIError struct {
	StatusCode int
	Message    string
	Field      string
}

func (e *APIError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("api error %d: %s (field %s)", e.StatusCode, e.Message, e.Field)
	}
	return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Message)
}

// IsNotFound reports whether err is a 404 from the API.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// Pagination mirrors the pagination block of list responses.
type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int64 `json:"totalPages"`
}

type envelope[T any] struct {
	Data       T           `json:"data"`
	Message    string      `json:"message"`
	Error      string      `json:"error"`
	Field      string      `json:"field"`
	Pagination *Pagination `json:"pagination"`
	LastUpdate int64       `json:"lastUpdate"`
}

type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	clock      clock.Clock
	logger     zerolog.Logger

	cache *responseCache
	group singleflight.Group
}

type Option func(*Client)

// WithToken authenticates every request with a bearer session token.
func WithToken(token string) Option {
	return func(c *Client) {
		c.token = token
	}
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

func WithClock(clk clock.Clock) Option {
	return func(c *Client) {
		c.clock = clk
	}
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		clock:      clock.New(),
		logger:     log.With().Str("component", "client").Logger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.cache = newResponseCache(c.clock)
	return c
}

// cacheKey identifies a read by resource, path argument and query.
// url.Values.Encode sorts the parameters.
func cacheKey(resource, arg string, query url.Values) string {
	key := resource + ":" + arg
	if len(query) > 0 {
		key += "?" + query.Encode()
	}
	return key
}

// get fetches path through the cache and decodes the envelope into env.
func get[T any](ctx context.Context, c *Client, resource, arg, path string, query url.Values) (envelope[T], error) {
	var env envelope[T]
	key := cacheKey(resource, arg, query)

	body, ok := c.cache.get(resource, key)
	if !ok {
		v, err, shared := c.group.Do(key, func() (any, error) {
			b, err := c.do(ctx, http.MethodGet, path, query, nil)
			if err != nil {
				return nil, err
			}
			c.cache.put(resource, key, b)
			return b, nil
		})
		if err != nil {
			return env, err
		}
		if shared {
			c.logger.Debug().Str("key", key).Msg("shared in-flight fetch")
		}
		body = v.([]byte)
	}

	if err := json.Unmarshal(body, &env); err != nil {
		return env, fmt.Errorf("decode %s response: %w", resource, err)
	}
	return env, nil
}

// send performs a mutation and decodes the response envelope.
func send[T any](ctx context.Context, c *Client, method, path string, query url.Values, payload any) (envelope[T], error) {
	var env envelope[T]
	body, err := c.do(ctx, method, path, query, payload)
	if err != nil {
		return env, err
	}
	if err := json.Unmarshal(body, &env); err != nil {
		return env, fmt.Errorf("decode %s %s response: %w", method, path, err)
	}
	return env, nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, payload any) ([]byte, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reqBody io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := c.clock.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	c.logger.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("duration", c.clock.Now().Sub(start)).
		Msg("api request")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		var env envelope[json.RawMessage]
		if err := json.Unmarshal(body, &env); err == nil && env.Error != "" {
			apiErr.Message = env.Error
			apiErr.Field = env.Field
		}
		return nil, apiErr
	}
	return body, nil
}
