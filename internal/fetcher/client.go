package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// MaxBodySize caps how much of a response body is read.
const MaxBodySize = 5 << 20 // 5MiB

// connection pooling limits; feeds rarely share hosts so per-host limits stay low
const (
	defaultMaxIdleConns        = 50
	defaultMaxIdleConnsPerHost = 2
	defaultMaxConnsPerHost     = 4
	defaultIdleConnTimeout     = 60 * time.Second
)

// acceptHeader asks for feed formats first but still accepts anything.
const acceptHeader = "application/rss+xml, application/atom+xml, application/feed+json, application/xml;q=0.9, text/xml;q=0.9, */*;q=0.8"

// Response holds the result of an HTTP request made by [Client].
type Response struct {
	// Body contains the response body, limited to [MaxBodySize].
	Body []byte

	// Truncated is set when the body was longer than [MaxBodySize].
	Truncated bool

	// StatusCode is the HTTP status code. Zero if the request failed before
	// receiving a response.
	StatusCode int

	// Header holds the response headers.
	Header http.Header

	// Latency is the total time taken for the request.
	Latency time.Duration

	// Error contains any error that occurred during the request.
	// nil indicates the request completed (though status may indicate an error).
	Error error
}

// Client is an HTTP client wrapper for fetching feed documents.
//
// Client uses per-request timeouts via context rather than a global timeout.
// Every request carries the configured User-Agent. An optional global rate
// limit caps requests per second across all hosts, on top of the per-host
// spacing the scheduler enforces.
type Client struct {
	httpClient *http.Client
	userAgent  string
	limiter    *rate.Limiter
}

// ClientOption configures a [Client].
type ClientOption func(*Client)

// WithUserAgent sets the User-Agent header sent with every request.
func WithUserAgent(ua string) ClientOption {
	return func(c *Client) { c.userAgent = ua }
}

// WithRateLimit caps the client at rps requests per second. Zero or less
// disables the cap.
func WithRateLimit(rps float64) ClientOption {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		burst := int(rps)
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient creates a new feed [Client] with a pooled transport.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		httpClient: &http.Client{
			// no default timeout - we use per-request timeouts via context
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConns:        defaultMaxIdleConns,
				MaxIdleConnsPerHost: defaultMaxIdleConnsPerHost,
				MaxConnsPerHost:     defaultMaxConnsPerHost,
				IdleConnTimeout:     defaultIdleConnTimeout,
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get performs a GET request and returns a structured [Response].
//
// headers are set after the defaults. The timeout is applied via context
// cancellation and covers waiting for the rate limiter. Get always returns a
// Response; errors are captured in the Error field rather than returned
// separately.
func (c *Client) Get(ctx context.Context, url string, headers map[string]string, timeout time.Duration) Response {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return Response{
				Latency: time.Since(start),
				Error:   fmt.Errorf("rate limiter: %w", err),
			}
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Response{
			Latency: time.Since(start),
			Error:   fmt.Errorf("failed to create request: %w", err),
		}
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	req.Header.Set("Accept", acceptHeader)
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Response{
			Latency: time.Since(start),
			Error:   fmt.Errorf("request failed: %w", err),
		}
	}
	defer func() { _ = resp.Body.Close() }()

	// read one byte past the limit to detect truncation
	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxBodySize+1))
	if err != nil {
		return Response{
			StatusCode: resp.StatusCode,
			Header:     resp.Header,
			Latency:    time.Since(start),
			Error:      fmt.Errorf("failed to read response body: %w", err),
		}
	}

	truncated := len(body) > MaxBodySize
	if truncated {
		body = body[:MaxBodySize]
	}

	return Response{
		Body:       body,
		Truncated:  truncated,
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Latency:    time.Since(start),
	}
}

// Close closes all idle connections in the client's connection pool.
// Safe to call multiple times and on a nil client.
func (c *Client) Close() {
	if c == nil || c.httpClient == nil {
		return
	}
	c.httpClient.CloseIdleConnections()
}
