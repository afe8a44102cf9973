// Package httpx is the JSON-over-HTTP transport shared by the collaborator clients.
package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/vietddude/tema/internal/apperr"
	"github.com/vietddude/tema/internal/metrics"
)

// Client calls one collaborator's REST API.
type Client struct {
	name       string
	baseURL    string
	httpClient *http.Client
	headers    http.Header

	Monitor *Monitor
}

// Option configures a Client.
type Option func(*Client)

// WithHeader sets a header on every request.
func WithHeader(key, value string) Option {
	return func(c *Client) { c.headers.Set(key, value) }
}

// WithBearer sets the Authorization bearer token.
func WithBearer(token string) Option {
	return WithHeader("Authorization", "Bearer "+token)
}

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// New creates a client for baseURL with a per-request timeout.
func New(name, baseURL string, timeout time.Duration, opts ...Option) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	c := &Client{
		name:    name,
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		headers: http.Header{},
		Monitor: NewMonitor(),
	}
	c.headers.Set("Accept", "application/json")
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name returns the collaborator name.
func (c *Client) Name() string { return c.name }

// Request describes one call.
type Request struct {
	Method  string
	Path    string
	Query   url.Values
	Body    any
	Headers map[string]string
}

// Do performs req and decodes a 2xx JSON body into out (when non-nil). Non-2xx responses
// become *apperr.StatusError.
func (c *Client) Do(ctx context.Context, req Request, out any) error {
	start := time.Now()

	var body io.Reader
	if req.Body != nil {
		data, err := json.Marshal(req.Body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	endpoint := c.baseURL + req.Path
	if len(req.Query) > 0 {
		endpoint += "?" + req.Query.Encode()
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, endpoint, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	for k, vs := range c.headers {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}
	if req.Body != nil && httpReq.Header.Get("Content-Type") == "" {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.recordFailure()
		return fmt.Errorf("%s %s %s: %w", c.name, req.Method, req.Path, err)
	}
	defer resp.Body.Close()

	latency := time.Since(start)
	metrics.CollaboratorLatency.WithLabelValues(c.name).Observe(latency.Seconds())

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		c.recordFailure()
		return fmt.Errorf("%s read response: %w", c.name, err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		c.Monitor.RecordThrottle(resp.Header.Get("Retry-After"))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.recordFailure()
		return &apperr.StatusError{
			Service: c.name,
			Status:  resp.StatusCode,
			Code:    errorCode(respBody),
			Body:    truncate(string(respBody), 512),
		}
	}

	c.Monitor.RecordRequest(latency)
	metrics.CollaboratorCalls.WithLabelValues(c.name, "success").Inc()

	if out == nil || len(bytes.TrimSpace(respBody)) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("%s parse response: %w", c.name, err)
	}
	return nil
}

// Close releases idle connections.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

func (c *Client) recordFailure() {
	c.Monitor.RecordFailure()
	metrics.CollaboratorCalls.WithLabelValues(c.name, "failure").Inc()
}

// errorCode extracts a vendor error code from common JSON error shapes.
func errorCode(body []byte) string {
	var shape struct {
		Code   any    `json:"code"`
		Error  any    `json:"error"`
		Errors []struct {
			Code string `json:"code"`
		} `json:"errors"`
	}
	if json.Unmarshal(body, &shape) != nil {
		return ""
	}
	if s, ok := shape.Code.(string); ok && s != "" {
		return s
	}
	if len(shape.Errors) > 0 && shape.Errors[0].Code != "" {
		return shape.Errors[0].Code
	}
	if s, ok := shape.Error.(string); ok && !strings.Contains(s, " ") {
		return s
	}
	return ""
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
