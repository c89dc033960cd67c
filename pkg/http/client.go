package http

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"
)

// Transport is an http.RoundTripper that logs every request and retries
// network errors and 5xx responses. MaxTries of 1 means a single attempt.
type Transport struct {
	Base            http.RoundTripper
	MaxTries        uint
	MaxElapsed      time.Duration
	InitialInterval time.Duration
	MaxInterval     time.Duration

	logger *zap.Logger
}

// Client is the HTTP client shared by the identity provider and SharePoint calls.
type Client struct {
	httpClient *http.Client
	transport  *Transport
	logger     *zap.Logger
}

type Options struct {
	Timeout  time.Duration
	MaxTries int
}

// NewTransport creates a logging transport over http.DefaultTransport
func NewTransport(maxTries int, logger *zap.Logger) *Transport {
	if maxTries <= 0 {
		maxTries = 1
	}
	return &Transport{
		Base:     http.DefaultTransport,
		MaxTries: uint(maxTries),
		logger:   logger,
	}
}

// NewClientWithLogger creates a new HTTP client with a custom logger
func NewClientWithLogger(opts Options, logger *zap.Logger) *Client {
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	transport := NewTransport(opts.MaxTries, logger)
	return &Client{
		httpClient: &http.Client{
			Timeout:   opts.Timeout,
			Transport: transport,
		},
		transport: transport,
		logger:    logger,
	}
}

// Do executes req through the retrying transport.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	return c.httpClient.Do(req)
}

func (c *Client) CloseIdleConnections() {
	c.httpClient.CloseIdleConnections()
}

// Transport returns the round tripper so other HTTP stacks can share it.
func (c *Client) Transport() *Transport {
	return c.transport
}

// HTTPClient returns the underlying *http.Client.
func (c *Client) HTTPClient() *http.Client {
	return c.httpClient
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}
	logger := t.logger
	if logger == nil {
		logger = zap.NewNop()
	}

	maxTries := t.MaxTries
	if maxTries == 0 {
		maxTries = 1
	}
	// A body we cannot rewind can only be sent once
	if req.Body != nil && req.Body != http.NoBody && req.GetBody == nil {
		maxTries = 1
	}

	// Set default backoff configuration
	maxElapsed := t.MaxElapsed
	if maxElapsed == 0 {
		maxElapsed = 5 * time.Minute
	}
	initialInterval := t.InitialInterval
	if initialInterval == 0 {
		initialInterval = 100 * time.Millisecond
	}
	maxInterval := t.MaxInterval
	if maxInterval == 0 {
		maxInterval = 30 * time.Second
	}

	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.InitialInterval = initialInterval
	expBackoff.MaxInterval = maxInterval
	expBackoff.Reset()

	ctx := req.Context()

	var attempt uint
	operation := func() (*http.Response, error) {
		attempt++
		r, err := rewind(req, attempt)
		if err != nil {
			logger.Error("Failed to rewind request body", zap.Error(err), zap.String("method", req.Method), zap.String("url", req.URL.String()))
			return nil, backoff.Permanent(err)
		}

		logger.Debug("Making HTTP request",
			zap.String("method", req.Method),
			zap.String("url", req.URL.String()),
			zap.Uint("attempt", attempt))

		resp, err := base.RoundTrip(r)
		if err != nil {
			if attempt >= maxTries {
				return nil, backoff.Permanent(err)
			}
			// Network errors are retryable
			logger.Warn("HTTP request failed, will retry",
				zap.Error(err),
				zap.String("method", req.Method),
				zap.String("url", req.URL.String()))
			return nil, err
		}

		// Server errors are retryable while tries remain; the last response is
		// handed back untouched so callers can read the status and body.
		if resp.StatusCode >= 500 && attempt < maxTries {
			logger.Warn("Server error, will retry",
				zap.Int("status_code", resp.StatusCode),
				zap.String("method", req.Method),
				zap.String("url", req.URL.String()))
			_, _ = io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			return nil, fmt.Errorf("server error: %d", resp.StatusCode)
		}

		if resp.StatusCode >= 400 {
			logger.Warn("HTTP request returned error status",
				zap.Int("status_code", resp.StatusCode),
				zap.String("method", req.Method),
				zap.String("url", req.URL.String()))
		} else {
			logger.Debug("HTTP request successful",
				zap.Int("status_code", resp.StatusCode),
				zap.String("method", req.Method),
				zap.String("url", req.URL.String()))
		}

		return resp, nil
	}

	retryOpts := []backoff.RetryOption{
		backoff.WithBackOff(expBackoff),
		backoff.WithMaxElapsedTime(maxElapsed),
		backoff.WithMaxTries(maxTries),
	}

	resp, err := backoff.Retry(ctx, operation, retryOpts...)
	if err != nil {
		logger.Error("HTTP request failed",
			zap.Error(err),
			zap.String("method", req.Method),
			zap.String("url", req.URL.String()),
			zap.Uint("attempts", attempt))
		return nil, err
	}

	return resp, nil
}

// rewind returns the request to send on the given attempt. The first attempt
// uses req as-is; later attempts get a clone with a fresh body.
func rewind(req *http.Request, attempt uint) (*http.Request, error) {
	if attempt == 1 || req.GetBody == nil {
		return req, nil
	}
	body, err := req.GetBody()
	if err != nil {
		return nil, fmt.Errorf("failed to get request body: %w", err)
	}
	r := req.Clone(req.Context())
	r.Body = body
	return r, nil
}
