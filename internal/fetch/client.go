package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

const (
	// DefaultUserAgent identifies benchmark traffic in server logs.
	DefaultUserAgent = "shake-proof/1.0 (+https://github.com/langshake/shake-proof)"

	// DefaultMaxBodySize caps how much of a response body is read.
	DefaultMaxBodySize = 10 * 1024 * 1024
)

// ErrHTTPStatus is wrapped by StatusError so callers can test for any
// non-2xx response with errors.Is.
var ErrHTTPStatus = errors.New("unexpected HTTP status")

// StatusError reports a response outside the 2xx range.
type StatusError struct {
	URL        string
	StatusCode int
}

// Error implements error.
func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: %d %s", e.URL, e.StatusCode, http.StatusText(e.StatusCode))
}

// Unwrap returns ErrHTTPStatus.
func (e *StatusError) Unwrap() error {
	return ErrHTTPStatus
}

// Response is the outcome of the last attempt of a GET.
type Response struct {
	URL        string
	StatusCode int
	Header     http.Header
	Body       []byte

	// Start is when the first attempt began and End when the last finished.
	Start time.Time
	End   time.Time

	// BytesIn counts the body bytes read; BytesOut estimates the request size.
	BytesIn  int64
	BytesOut int64

	Attempts int
}

// Client performs GET requests with cache-busting headers, a retry policy
// and an optional politeness rate limit.
type Client struct {
	httpClient  *http.Client
	policy      RetryPolicy
	limiter     *rate.Limiter
	userAgent   string
	maxBodySize int64
	headers     map[string]string
	logger      *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithRetryPolicy sets the retry policy used for every request.
func WithRetryPolicy(p RetryPolicy) Option {
	return func(c *Client) {
		c.policy = p
	}
}

// WithRateLimit throttles requests to rps per second with the given burst.
// A non-positive rps disables throttling.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// WithMaxBodySize limits how many body bytes are read per response.
func WithMaxBodySize(n int64) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxBodySize = n
		}
	}
}

// WithHeaders adds extra request headers. The no-cache headers cannot be
// overridden.
func WithHeaders(h map[string]string) Option {
	return func(c *Client) {
		for k, v := range h {
			c.headers[k] = v
		}
	}
}

// WithLogger sets the logger used for retry diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// NewClient creates a Client using DefaultRetryPolicy unless overridden.
func NewClient(opts ...Option) *Client {
	c := &Client{
		httpClient:  &http.Client{},
		policy:      DefaultRetryPolicy(),
		userAgent:   DefaultUserAgent,
		maxBodySize: DefaultMaxBodySize,
		headers:     make(map[string]string),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c
}

// Policy returns the retry policy in effect.
func (c *Client) Policy() RetryPolicy {
	return c.policy
}

// Get fetches url under the client's retry policy. On failure the returned
// Response, if non-nil, describes the last attempt that produced an HTTP
// response so callers can still record its status code.
func (c *Client) Get(ctx context.Context, url string) (*Response, error) {
	resp := &Response{URL: url, Start: time.Now()}
	gotResponse := false

	err := c.policy.Do(ctx, func(ctx context.Context, attempt int) error {
		resp.Attempts = attempt

		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return err
			}
		}

		err := c.do(ctx, url, resp)
		gotResponse = resp.StatusCode != 0
		if err != nil {
			c.logger.Debug("fetch attempt failed",
				"url", url,
				"attempt", attempt,
				"maxAttempts", c.policy.attempts(),
				"error", err,
			)
		}
		return err
	})
	resp.End = time.Now()

	if err != nil {
		if gotResponse {
			return resp, err
		}
		return nil, err
	}
	return resp, nil
}

// do performs a single attempt, filling resp.
func (c *Client) do(ctx context.Context, url string, resp *Response) error {
	resp.StatusCode, resp.Header, resp.Body, resp.BytesIn = 0, nil, nil, 0

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("Pragma", "no-cache")

	resp.BytesOut = requestSize(req)

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer httpResp.Body.Close()

	resp.StatusCode = httpResp.StatusCode
	resp.Header = httpResp.Header

	body, err := io.ReadAll(io.LimitReader(httpResp.Body, c.maxBodySize))
	if err != nil {
		return fmt.Errorf("read body of %s: %w", url, err)
	}
	resp.Body = body
	resp.BytesIn = int64(len(body))

	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		return &StatusError{URL: url, StatusCode: httpResp.StatusCode}
	}
	return nil
}

// requestSize estimates the bytes of the request line and headers.
func requestSize(req *http.Request) int64 {
	// "GET <uri> HTTP/1.1\r\n" + "Host: <host>\r\n" + trailing "\r\n"
	n := len(req.Method) + 1 + len(req.URL.RequestURI()) + len(" HTTP/1.1\r\n")
	n += len("Host: \r\n") + len(req.URL.Host) + 2
	for k, vs := range req.Header {
		for _, v := range vs {
			n += len(k) + 2 + len(v) + 2
		}
	}
	return int64(n)
}

// IsTimeout reports whether err stems from a deadline or network timeout.
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
