// Package client talks to the upstream document service: it negotiates the
// session (anti-forgery token and cookie) and fetches list pages with the
// options of the original list request.
package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/parldok-indexer/pkg/htmldoc"
	"github.com/Sternrassler/parldok-indexer/pkg/parldok"
	"github.com/Sternrassler/parldok-indexer/pkg/ratelimit"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Prometheus metrics for upstream requests.
var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "parldok_upstream_requests_total",
		Help: "Total upstream requests by kind and status",
	}, []string{"kind", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "parldok_upstream_request_duration_seconds",
		Help:    "Upstream request duration in seconds by kind",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
	}, []string{"kind"})

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "parldok_upstream_errors_total",
		Help: "Total upstream errors by class",
	}, []string{"class"})
)

// Request kinds used as metric labels.
const (
	kindSession = "session"
	kindList    = "list"
)

// Browser-like request headers the listing form expects.
const (
	DefaultAccept         = "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8"
	DefaultAcceptLanguage = "en,en-US;q=0.7,de-DE;q=0.3"
	FormContentType       = "application/x-www-form-urlencoded"
)

// Config holds the client configuration.
type Config struct {
	// Endpoint is the absolute URL of the listing form.
	Endpoint string

	// UserAgent header sent with every request.
	UserAgent string

	// Timeout bounds each HTTP exchange. A hung request holds its fetch
	// slot until this fires.
	Timeout time.Duration

	// MaxBodyBytes caps how much of a response body is read.
	MaxBodyBytes int64

	// RateLimit paces requests. The zero value is unlimited.
	RateLimit ratelimit.Config

	// Retry controls retries of failed requests. Default: no retries.
	Retry RetryConfig
}

// DefaultConfig returns the configuration for the public endpoint.
func DefaultConfig() Config {
	return Config{
		Endpoint:     parldok.DefaultEndpoint,
		UserAgent:    "parldok-indexer/1.0",
		Timeout:      60 * time.Second,
		MaxBodyBytes: 10 << 20,
		Retry:        DefaultRetryConfig(),
	}
}

// Client is the upstream document service client.
type Client struct {
	httpClient *http.Client
	limiter    *ratelimit.Limiter
	config     Config
	logger     zerolog.Logger
}

// New creates a new client.
func New(cfg Config) (*Client, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("endpoint is required")
	}
	u, err := url.Parse(cfg.Endpoint)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return nil, fmt.Errorf("endpoint must be an absolute URL (got %q)", cfg.Endpoint)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 10 << 20
	}

	logger := log.With().Str("component", "parldok-client").Logger()

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		limiter: ratelimit.New(cfg.RateLimit, logger),
		config:  cfg,
		logger:  logger,
	}, nil
}

// Endpoint returns the listing endpoint.
func (c *Client) Endpoint() string {
	return c.config.Endpoint
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}

// ListRequest holds the options of the list request. Every later page is
// requested with exactly these options; only the URL changes.
type ListRequest struct {
	Method  string
	Header  http.Header
	Body    string
	Referer string
}

// NewListRequest builds the filter POST for a negotiated session.
func (c *Client) NewListRequest(session parldok.Session, filter parldok.Filter) ListRequest {
	header := http.Header{}
	header.Set("Accept", DefaultAccept)
	header.Set("Accept-Language", DefaultAcceptLanguage)
	header.Set("Content-Type", FormContentType)
	if session.Cookie != "" {
		header.Set("Cookie", session.Cookie)
	}

	return ListRequest{
		Method:  http.MethodPost,
		Header:  header,
		Body:    filter.Encode(session.Token),
		Referer: c.config.Endpoint,
	}
}

// Negotiate performs the initial GET and extracts the anti-forgery token
// and session cookies. A missing token or cookie is not an error. On an
// HTTP error status the session is still read from the error response and
// returned together with the *UpstreamError.
func (c *Client) Negotiate(ctx context.Context) (parldok.Session, error) {
	resp, body, err := c.do(ctx, kindSession, c.config.Endpoint, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.Endpoint, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", DefaultAccept)
		req.Header.Set("Accept-Language", DefaultAcceptLanguage)
		return req, nil
	})
	if resp == nil {
		return parldok.Session{}, err
	}

	session := parldok.Session{
		Cookies: resp.Header.Values("Set-Cookie"),
	}
	if len(session.Cookies) > 0 {
		session.Cookie = cookiePair(session.Cookies[0])
	}

	doc, parseErr := htmldoc.ParseWithContentType(bytes.NewReader(body), resp.Header.Get("Content-Type"))
	if parseErr != nil {
		c.logger.Warn().Err(parseErr).Msg("Initial page could not be parsed - continuing without token")
		return session, err
	}
	session.Token = parldok.ExtractToken(doc)

	c.logger.Debug().
		Bool("token", session.HasToken()).
		Int("cookies", len(session.Cookies)).
		Int("status", resp.StatusCode).
		Msg("Session negotiated")

	return session, err
}

// Fetch sends lr to target and parses the response as HTML. Transport
// failures, HTTP status >= 400 and unparsable bodies are returned as
// *UpstreamError.
func (c *Client) Fetch(ctx context.Context, lr ListRequest, target string) (htmldoc.Node, error) {
	resp, body, err := c.do(ctx, kindList, target, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, lr.Method, target, strings.NewReader(lr.Body))
		if err != nil {
			return nil, err
		}
		req.Header = lr.Header.Clone()
		if lr.Referer != "" {
			req.Header.Set("Referer", lr.Referer)
		}
		return req, nil
	})
	if err != nil {
		return nil, err
	}

	doc, err := htmldoc.ParseWithContentType(bytes.NewReader(body), resp.Header.Get("Content-Type"))
	if err != nil {
		errorsTotal.WithLabelValues(string(ErrorClassParse)).Inc()
		return nil, &UpstreamError{
			URL:        target,
			StatusCode: resp.StatusCode,
			ErrorClass: ErrorClassParse,
			Message:    "parse body",
			Err:        err,
		}
	}
	return doc, nil
}

// do executes one logical request, including rate limiting and retries,
// and returns the response with its fully read body. The response body is
// already closed. When the last attempt ended with an HTTP error status the
// response and body are returned together with the error.
func (c *Client) do(ctx context.Context, kind, target string, build func(context.Context) (*http.Request, error)) (*http.Response, []byte, error) {
	startTime := time.Now()
	defer func() {
		requestDuration.WithLabelValues(kind).Observe(time.Since(startTime).Seconds())
	}()

	var resp *http.Response
	var body []byte

	err := retryWithBackoff(ctx, c.config.Retry, func() error {
		resp, body = nil, nil

		if err := c.limiter.Wait(ctx); err != nil {
			return &UpstreamError{URL: target, ErrorClass: ErrorClassNetwork, Message: "rate limiter", Err: err}
		}

		req, err := build(ctx)
		if err != nil {
			return &UpstreamError{URL: target, ErrorClass: ErrorClassClient, Message: "build request", Err: err}
		}
		if c.config.UserAgent != "" {
			req.Header.Set("User-Agent", c.config.UserAgent)
		}

		c.logger.Debug().
			Str("url", target).
			Str("method", req.Method).
			Msg("Executing upstream request")

		r, err := c.httpClient.Do(req)
		if err != nil {
			c.logger.Warn().Err(err).Str("url", target).Msg("HTTP request failed")
			errorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
			requestsTotal.WithLabelValues(kind, "network_error").Inc()
			return &UpstreamError{URL: target, ErrorClass: ErrorClassNetwork, Message: "request failed", Err: err}
		}
		defer r.Body.Close()

		c.limiter.UpdateFromResponse(r.StatusCode, r.Header)
		requestsTotal.WithLabelValues(kind, strconv.Itoa(r.StatusCode)).Inc()

		if class := classifyStatus(r.StatusCode); class != "" {
			errorsTotal.WithLabelValues(string(class)).Inc()
			c.logger.Warn().
				Str("url", target).
				Int("status", r.StatusCode).
				Str("error_class", string(class)).
				Msg("Upstream request error")
			// Error pages still carry headers and markup callers may need.
			b, _ := readBody(r.Body, c.config.MaxBodyBytes)
			resp, body = r, b
			return &UpstreamError{URL: target, StatusCode: r.StatusCode, ErrorClass: class, Message: r.Status}
		}

		b, err := readBody(r.Body, c.config.MaxBodyBytes)
		if err != nil {
			errorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
			class := ErrorClassNetwork
			if errors.Is(err, ErrBodyTooLarge) {
				class = ErrorClassParse
			}
			return &UpstreamError{URL: target, StatusCode: r.StatusCode, ErrorClass: class, Message: "read body", Err: err}
		}

		resp, body = r, b
		return nil
	}, ClassOf)

	return resp, body, err
}

// classifyStatus maps an HTTP status to an error class, "" for success.
func classifyStatus(status int) ErrorClass {
	switch {
	case status >= 500:
		return ErrorClassServer
	case status >= 400:
		return ErrorClassClient
	default:
		return ""
	}
}

// readBody reads at most limit bytes and fails if the body is longer.
func readBody(r io.Reader, limit int64) ([]byte, error) {
	b, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(b)) > limit {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrBodyTooLarge, limit)
	}
	return b, nil
}

// cookiePair strips the attributes (Path, HttpOnly, ...) from a Set-Cookie
// value, leaving the name=value pair sent back in the Cookie header.
func cookiePair(setCookie string) string {
	pair, _, _ := strings.Cut(setCookie, ";")
	return strings.TrimSpace(pair)
}
