// Package api is the HTTP client for the candidate-admin backend: the auth
// service, the admin console listings, the screening workflow, the training
// catalogue and the candidate signup endpoints.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/felixgeelhaar/candidash/internal/auth"
	"github.com/felixgeelhaar/candidash/internal/log"
	"github.com/felixgeelhaar/candidash/internal/telemetry"
	"github.com/felixgeelhaar/candidash/internal/transport"
	"github.com/felixgeelhaar/candidash/internal/version"
)

// DefaultTimeout bounds every backend request.
const DefaultTimeout = 30 * time.Second

// maxBodySize caps how much of a response body is read.
const maxBodySize = 4 << 20

// Client is the candidate-admin backend API client
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	// Scheme prefixes explicitly supplied tokens (validate, logout). It
	// follows the same rules as transport.Transport.Scheme.
	Scheme string

	schemas *Schemas
	logger  *log.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.HTTPClient = hc
		}
	}
}

// WithTransport sets the round tripper, typically a *transport.Transport.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) { c.HTTPClient.Transport = rt }
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.HTTPClient.Timeout = d
		}
	}
}

// WithScheme sets the Authorization scheme used for explicit tokens.
func WithScheme(scheme string) Option {
	return func(c *Client) { c.Scheme = scheme }
}

// WithLogger sets the client logger.
func WithLogger(l *log.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l.WithComponent("api")
		}
	}
}

// NewClient creates a new backend API client. It fails only if the embedded
// OpenAPI contract cannot be loaded.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	schemas, err := LoadSchemas()
	if err != nil {
		return nil, err
	}

	c := &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: DefaultTimeout},
		schemas:    schemas,
		logger:     log.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// requestOption adjusts an outgoing request.
type requestOption func(*http.Request)

// withToken sends token explicitly instead of relying on the transport's
// credentials.
func (c *Client) withToken(token string) requestOption {
	return func(req *http.Request) {
		if token != "" {
			req.Header.Set(transport.HeaderAuthorization, transport.Authorization(c.Scheme, token))
		}
	}
}

// withHeader sets a request header.
func withHeader(key, value string) requestOption {
	return func(req *http.Request) { req.Header.Set(key, value) }
}

// doRequest performs an HTTP request. Failures to reach the backend are
// returned as auth.ErrNetwork errors.
func (c *Client) doRequest(ctx context.Context, method, path string, body any, opts ...requestOption) (*http.Response, error) {
	var reqBody io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, opt := range opts {
		opt(req)
	}

	start := time.Now()
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		c.logger.WithError(err).WithGroup("http").DebugContext(ctx, "backend request failed", "method", method, "path", path)
		return nil, auth.WrapError(auth.ErrNetwork, "backend unreachable", err,
			map[string]any{"url": c.BaseURL + path})
	}
	c.logger.WithGroup("http").DebugContext(ctx, "backend request",
		"method", method, "path", path, "status", resp.StatusCode, "elapsed", time.Since(start))
	return resp, nil
}

// ErrorResponse is the error body returned by the backend.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error"`
}

// StatusError is a non-2xx reply from an endpoint outside the auth flow.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("request failed with status %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("request failed with status %d", e.StatusCode)
}

// readBody reads and closes the response body.
func readBody(resp *http.Response) ([]byte, error) {
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, auth.WrapError(auth.ErrNetwork, "failed to read response", err, nil)
	}
	return body, nil
}

// errorMessage extracts the human message from an error body.
func errorMessage(body []byte) string {
	var errResp ErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil {
		if errResp.Message != "" {
			return errResp.Message
		}
		if errResp.Error != "" {
			return errResp.Error
		}
	}
	return strings.TrimSpace(string(body))
}

// decode validates body against schema and unmarshals it into target.
func (c *Client) decode(schema string, body []byte, target any) error {
	if err := c.schemas.Validate(schema, body); err != nil {
		return auth.WrapError(auth.ErrMalformedResponse, "unexpected response from backend", err,
			map[string]any{"schema": schema})
	}
	if err := json.Unmarshal(body, target); err != nil {
		return auth.WrapError(auth.ErrMalformedResponse, "failed to decode response", err,
			map[string]any{"schema": schema})
	}
	return nil
}

// getJSON performs an authenticated GET on a console endpoint.
func (c *Client) getJSON(ctx context.Context, path, schema string, target any) error {
	return c.callJSON(ctx, http.MethodGet, path, nil, schema, target)
}

// callJSON performs an authenticated console request and decodes the reply.
// 401 and 403 mean the session is gone and are returned as
// auth.ErrSessionExpired; the transport has already raised the expiry signal.
func (c *Client) callJSON(ctx context.Context, method, path string, body any, schema string, target any, opts ...requestOption) (err error) {
	ctx, span := telemetry.StartAPISpan(ctx, method, path)
	defer func() {
		if err != nil {
			telemetry.RecordError(span, err)
		} else {
			telemetry.RecordSuccess(span)
		}
		span.End()
	}()

	resp, err := c.doRequest(ctx, method, path, body, opts...)
	if err != nil {
		return err
	}
	respBody, err := readBody(resp)
	if err != nil {
		return err
	}

	switch {
	case transport.IsAuthRejection(resp.StatusCode):
		return auth.NewError(auth.ErrSessionExpired, "Session expired. Please login again.",
			map[string]any{"status": resp.StatusCode, "path": path})
	case resp.StatusCode >= 500:
		return auth.NewError(auth.ErrServiceError, errorMessage(respBody),
			map[string]any{"status": resp.StatusCode, "path": path})
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return &StatusError{StatusCode: resp.StatusCode, Message: errorMessage(respBody)}
	}

	return c.decode(schema, respBody, target)
}

// Ping checks that the backend answers. Any reply below 500 counts, since an
// anonymous call to the validate endpoint is expected to be refused.
func (c *Client) Ping(ctx context.Context) error {
	resp, err := c.doRequest(transport.WithoutAuthCheck(ctx), http.MethodGet, PathValidate, nil)
	if err != nil {
		return err
	}
	body, err := readBody(resp)
	if err != nil {
		return err
	}
	if resp.StatusCode >= http.StatusInternalServerError {
		return &StatusError{StatusCode: resp.StatusCode, Message: errorMessage(body)}
	}
	return nil
}
