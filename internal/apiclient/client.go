// Package apiclient is the console's gateway to the machine inventory REST
// backend. It normalizes backend failures into two error shapes: *APIError
// when the server answered with a non-2xx status, and *TransportError when
// the request never completed.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/HerbHall/labtrack/internal/version"
)

// DefaultBaseURL is used when no base URL override is configured.
const DefaultBaseURL = "http://localhost:8000"

// apiPrefix is appended to the base URL for every request.
const apiPrefix = "/api/v1"

// APIError is a structured error response from the backend.
type APIError struct {
	Status int
	Detail string
}

func (e *APIError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("HTTP %d", e.Status)
	}
	return e.Detail
}

// TransportError means the request never produced an HTTP response
// (connection refused, DNS failure, timeout, cancelled context).
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: backend unreachable: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// AsAPIError returns err as an *APIError if it is one.
func AsAPIError(err error) (*APIError, bool) {
	var ae *APIError
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}

// IsTransport reports whether err is a transport-level failure.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// Detail returns the human-readable detail of a structured API error, or ""
// for any other error.
func Detail(err error) string {
	if ae, ok := AsAPIError(err); ok {
		return ae.Detail
	}
	return ""
}

// Options configures a Client.
type Options struct {
	BaseURL string
	Timeout time.Duration
	// RateLimit caps outgoing requests per second; zero disables limiting.
	RateLimit float64
	Burst     int
	HTTP      *http.Client
	Logger    *zap.Logger
	Metrics   *Metrics
}

// Client issues requests against the backend.
type Client struct {
	base    string
	http    *http.Client
	limiter *rate.Limiter
	logger  *zap.Logger
	metrics *Metrics
}

// New creates a Client. An empty BaseURL falls back to DefaultBaseURL.
func New(opts Options) *Client {
	base := strings.TrimRight(opts.BaseURL, "/")
	if base == "" {
		base = DefaultBaseURL
	}
	hc := opts.HTTP
	if hc == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 15 * time.Second
		}
		hc = &http.Client{Timeout: timeout}
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	limiter := rate.NewLimiter(rate.Inf, 0)
	if opts.RateLimit > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), burst)
	}
	return &Client{
		base:    base,
		http:    hc,
		limiter: limiter,
		logger:  logger,
		metrics: opts.Metrics,
	}
}

// BaseURL returns the configured base URL without the API prefix.
func (c *Client) BaseURL() string { return c.base }

// do sends method+path with an optional JSON body and decodes a successful
// response into out (which may be nil). A 204 leaves out untouched.
func (c *Client) do(ctx context.Context, op, method, path string, body, out any) (err error) {
	start := time.Now()
	defer func() { c.metrics.observe(op, start, err) }()

	if err := c.limiter.Wait(ctx); err != nil {
		return &TransportError{Op: op, Err: err}
	}

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: encode body: %w", op, err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+apiPrefix+path, reader)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Debug("backend request failed",
			zap.String("op", op), zap.String("path", path), zap.Error(err))
		return &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	c.logger.Debug("backend request",
		zap.String("op", op),
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{Status: resp.StatusCode, Detail: errorDetail(resp)}
	}
	if resp.StatusCode == http.StatusNoContent || out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("%s: decode response: %w", op, err)
	}
	return nil
}

// errorDetail extracts the detail message from an error body, falling back
// to "HTTP <status>" when the body is missing or unparseable.
func errorDetail(resp *http.Response) string {
	fallback := fmt.Sprintf("HTTP %d", resp.StatusCode)
	var body struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&body); err != nil {
		return fallback
	}
	if d := detailText(body.Detail); d != "" {
		return d
	}
	return fallback
}

// detailText accepts a plain string detail or a list of validation
// entries ({"msg": ...}) and flattens it to one line.
func detailText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var entries []struct {
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(raw, &entries); err == nil {
		msgs := make([]string, 0, len(entries))
		for _, e := range entries {
			if e.Msg != "" {
				msgs = append(msgs, e.Msg)
			}
		}
		return strings.Join(msgs, "; ")
	}
	return ""
}
