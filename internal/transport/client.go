package transport

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

	"github.com/jpalmerr/coursestore/courses"
)

const maxResponseBodySize = 1 << 20 // 1MB

// DefaultTimeout bounds a single request when no timeout is configured.
const DefaultTimeout = 10 * time.Second

// connection pooling limits; every request goes to the same host
const (
	defaultMaxIdleConns        = 100
	defaultMaxIdleConnsPerHost = 10
	defaultMaxConnsPerHost     = 10
	defaultIdleConnTimeout     = 60 * time.Second // matches common ALB defaults
)

const coursesPath = "/api/courses"

var _ courses.Transport = (*Client)(nil)

// StatusError is returned when the API answers with a non-2xx status.
type StatusError struct {
	Method     string
	URL        string
	StatusCode int
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: unexpected status %d", e.Method, e.URL, e.StatusCode)
}

// Client talks to the remote course API.
//
// Client uses per-request timeouts via context rather than a global client
// timeout. Response bodies are limited to 1MB. Client is safe for concurrent
// use.
type Client struct {
	httpClient *http.Client
	baseURL    string
	headers    map[string]string
	timeout    time.Duration
}

// NewClient creates a [Client] for the API rooted at baseURL.
//
// headers are sent with every request. A timeout <= 0 uses [DefaultTimeout].
func NewClient(baseURL string, headers map[string]string, timeout time.Duration) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid base URL %q: scheme must be http or https", baseURL)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("invalid base URL %q: missing host", baseURL)
	}

	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	h := make(map[string]string, len(headers))
	for k, v := range headers {
		h[k] = v
	}

	return &Client{
		httpClient: &http.Client{
			// no default timeout - we use per-request timeouts via context
			Transport: &http.Transport{
				MaxIdleConns:        defaultMaxIdleConns,
				MaxIdleConnsPerHost: defaultMaxIdleConnsPerHost,
				MaxConnsPerHost:     defaultMaxConnsPerHost,
				IdleConnTimeout:     defaultIdleConnTimeout,
			},
		},
		baseURL: strings.TrimRight(baseURL, "/"),
		headers: h,
		timeout: timeout,
	}, nil
}

// FetchAll retrieves the whole collection.
func (c *Client) FetchAll(ctx context.Context) (courses.Envelope, error) {
	body, err := c.do(ctx, http.MethodGet, c.baseURL+coursesPath, nil)
	if err != nil {
		return courses.Envelope{}, err
	}

	var env courses.Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return courses.Envelope{}, fmt.Errorf("failed to decode courses: %w", err)
	}
	return env, nil
}

// Update sends changes for the course id. The response body is discarded.
func (c *Client) Update(ctx context.Context, id string, changes courses.Changes) error {
	payload, err := json.Marshal(changes)
	if err != nil {
		return fmt.Errorf("failed to encode changes: %w", err)
	}

	_, err = c.do(ctx, http.MethodPut, c.baseURL+coursesPath+"/"+url.PathEscape(id), payload)
	return err
}

// do performs one request and returns the (size limited) response body.
func (c *Client) do(ctx context.Context, method, target string, payload []byte) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	for key, value := range c.headers {
		req.Header.Set(key, value)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	// read body with size limit
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodySize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{Method: method, URL: target, StatusCode: resp.StatusCode}
	}
	return body, nil
}

// Close closes all idle connections in the client's connection pool.
//
// Safe to call multiple times. After Close, the client remains usable but
// new connections will be established as needed.
func (c *Client) Close() {
	if c == nil || c.httpClient == nil {
		return
	}
	if transport, ok := c.httpClient.Transport.(*http.Transport); ok {
		transport.CloseIdleConnections()
	}
}
