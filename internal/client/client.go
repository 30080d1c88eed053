// Package client talks to the views API. It implements the same persistence
// interfaces as the local store so the browser can use either.
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

	"github.com/plumber-cd/ez-netmap/internal/domain"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// BreakerConfig tunes the circuit breaker in front of the API.
type BreakerConfig struct {
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold float64
	MinRequests      uint32
}

// DefaultBreakerConfig trips after most of at least five requests failed and probes
// again after thirty seconds.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		MaxRequests:      1,
		Interval:         30 * time.Second,
		Timeout:          30 * time.Second,
		FailureThreshold: 0.8,
		MinRequests:      5,
	}
}

// Client is an HTTP client for the views API.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
	logger     *zap.Logger
}

// statusError is a non-2xx response.
type statusError struct {
	code    int
	message string
}

func (e *statusError) Error() string {
	if e.message == "" {
		return fmt.Sprintf("unexpected status %d", e.code)
	}
	return fmt.Sprintf("unexpected status %d: %s", e.code, e.message)
}

// New creates a client for the API at baseURL.
func New(baseURL string, timeout time.Duration, breaker BreakerConfig, logger *zap.Logger) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse api url %q: %w", baseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("api url %q: scheme must be http or https", baseURL)
	}

	c := &Client{
		baseURL:    u,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "views-api",
		MaxRequests: breaker.MaxRequests,
		Interval:    breaker.Interval,
		Timeout:     breaker.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < breaker.MinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= breaker.FailureThreshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
		IsSuccessful: func(err error) bool {
			// Client errors say nothing about the health of the API.
			var se *statusError
			if errors.As(err, &se) {
				return se.code < 500
			}
			return err == nil
		},
	})
	return c, nil
}

// SaveView POSTs new views and PUTs existing ones, returning the view id.
func (c *Client) SaveView(ctx context.Context, attrs domain.ViewAttributes) (string, error) {
	method, path := http.MethodPost, "/api/netmap/views"
	if attrs.ViewID != "" {
		method, path = http.MethodPut, "/api/netmap/views/"+url.PathEscape(attrs.ViewID)
	}
	var id string
	if err := c.do(ctx, method, path, attrs, &id); err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrPersist, err)
	}
	if id == "" {
		return "", fmt.Errorf("%w: empty view id in response", domain.ErrPersist)
	}
	return id, nil
}

// GetView fetches a single view.
func (c *Client) GetView(ctx context.Context, id string) (domain.ViewAttributes, error) {
	var attrs domain.ViewAttributes
	err := c.do(ctx, http.MethodGet, "/api/netmap/views/"+url.PathEscape(id), nil, &attrs)
	return attrs, err
}

// ListViews fetches every view.
func (c *Client) ListViews(ctx context.Context) ([]domain.ViewAttributes, error) {
	var views []domain.ViewAttributes
	err := c.do(ctx, http.MethodGet, "/api/netmap/views", nil, &views)
	return views, err
}

// DeleteView removes a view.
func (c *Client) DeleteView(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/netmap/views/"+url.PathEscape(id), nil, nil)
}

// Graph fetches the topology snapshot.
func (c *Client) Graph(ctx context.Context) (*domain.Graph, error) {
	g := &domain.Graph{}
	if err := c.do(ctx, http.MethodGet, "/api/netmap/graph", nil, g); err != nil {
		return nil, err
	}
	return g, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	_, err := c.breaker.Execute(func() (any, error) {
		return nil, c.roundTrip(ctx, method, path, in, out)
	})
	if err != nil {
		var se *statusError
		if errors.As(err, &se) && se.code == http.StatusNotFound {
			return fmt.Errorf("%s %s: %w", method, path, domain.ErrNotFound)
		}
		c.logger.Debug("api request failed", zap.String("method", method), zap.String("path", path), zap.Error(err))
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	return nil
}

func (c *Client) roundTrip(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL.String()+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var e struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&e)
		return &statusError{code: resp.StatusCode, message: e.Error}
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
