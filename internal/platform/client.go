package platform

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

	"github.com/avast/retry-go/v4"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/time/rate"
)

const (
	defaultRPS        = 20
	defaultMaxRetries = 2
	backoffMin        = 200 * time.Millisecond
	backoffMax        = 2 * time.Second
	userAgent         = "ragcookbook-server/1.0"
)

// shared HTTP client for workspace API calls
var workspaceHTTPClient = &http.Client{
	Timeout: 60 * time.Second,
	Transport: otelhttp.NewTransport(&http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}),
}

type Config struct {
	Host       string // https://<workspace>
	Token      string
	RPS        float64 // client-side request rate limit
	MaxRetries int     // retries for 429 and 5xx responses
	HTTPClient *http.Client
}

// talks to the workspace REST API (vector search, catalog, serving,
// registry and tracking)
type Client struct {
	host       string
	token      string
	httpClient *http.Client
	limiter    *rate.Limiter
	maxRetries int
}

func New(cfg Config) (*Client, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("platform host is required")
	}

	if cfg.Token == "" {
		return nil, fmt.Errorf("platform token is required")
	}

	rps := cfg.RPS
	if rps <= 0 {
		rps = defaultRPS
	}

	maxRetries := cfg.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	} else if maxRetries == 0 {
		maxRetries = defaultMaxRetries
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = workspaceHTTPClient
	}

	return &Client{
		host:       strings.TrimRight(cfg.Host, "/"),
		token:      cfg.Token,
		httpClient: httpClient,
		limiter:    rate.NewLimiter(rate.Limit(rps), max(1, int(rps))),
		maxRetries: maxRetries,
	}, nil
}

// returns the workspace base URL
func (c *Client) Host() string {
	return c.host
}

// error returned for every non-2xx response
type APIError struct {
	StatusCode int    `json:"-"`
	ErrorCode  string `json:"error_code"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	if e.ErrorCode != "" {
		return fmt.Sprintf("platform API error %d %s: %s", e.StatusCode, e.ErrorCode, e.Message)
	}

	return fmt.Sprintf("platform API error %d: %s", e.StatusCode, e.Message)
}

// reports whether err means the remote resource does not exist
func IsNotFound(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}

	switch apiErr.ErrorCode {
	case "RESOURCE_DOES_NOT_EXIST", "NOT_FOUND":
		return true
	}

	return apiErr.StatusCode == http.StatusNotFound
}

// reports whether err is a create conflict
func IsAlreadyExists(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}

	return apiErr.ErrorCode == "RESOURCE_ALREADY_EXISTS" || apiErr.StatusCode == http.StatusConflict
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	return c.do(ctx, http.MethodGet, path, query, nil, out)
}

func (c *Client) post(ctx context.Context, path string, in, out any) error {
	return c.do(ctx, http.MethodPost, path, nil, in, out)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, in, out any) error {
	var payload []byte

	if in != nil {
		var err error
		payload, err = json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
	}

	return c.send(ctx, method, path, query, payload, "application/json", out)
}

func (c *Client) send(ctx context.Context, method, path string, query url.Values, payload []byte, contentType string, out any) error {
	endpoint := c.host + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	return retry.Do(
		func() error {
			if err := c.limiter.Wait(ctx); err != nil {
				return retry.Unrecoverable(fmt.Errorf("rate limiter error: %w", err))
			}

			var body io.Reader
			if payload != nil {
				body = bytes.NewReader(payload)
			}

			req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
			if err != nil {
				return retry.Unrecoverable(fmt.Errorf("failed to create request: %w", err))
			}

			req.Header.Set("Authorization", "Bearer "+c.token)
			req.Header.Set("User-Agent", userAgent)
			req.Header.Set("Accept", "application/json")
			if payload != nil {
				req.Header.Set("Content-Type", contentType)
			}

			resp, err := c.httpClient.Do(req)
			if err != nil {
				return fmt.Errorf("failed to send request %s %s: %w", method, path, err)
			}

			return decodeResponse(resp, out)
		},
		retry.Context(ctx),
		retry.Attempts(uint(c.maxRetries)+1),
		retry.Delay(backoffMin),
		retry.MaxDelay(backoffMax),
		retry.MaxJitter(backoffMin),
		retry.DelayType(retry.CombineDelay(retry.BackOffDelay, retry.RandomDelay)),
		retry.RetryIf(isRetryable),
		retry.LastErrorOnly(true),
	)
}

func decodeResponse(resp *http.Response, out any) error {
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10)) //nolint:errcheck

		apiErr := &APIError{StatusCode: resp.StatusCode}
		if err := json.Unmarshal(body, apiErr); err != nil || apiErr.Message == "" {
			apiErr.Message = strings.TrimSpace(string(body))
		}

		return apiErr
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body) //nolint:errcheck
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}

func retryable(status int) bool {
	return status == http.StatusTooManyRequests || status >= http.StatusInternalServerError
}

// throttling, server errors and transport failures are retried; canceled
// or expired contexts are not
func isRetryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return retryable(apiErr.StatusCode)
	}

	var urlErr *url.Error
	return errors.As(err, &urlErr)
}

func escape(name string) string {
	return url.PathEscape(name)
}
