package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/joseph-ayodele/zero-paper-user/internal/common"
)

// Strategy is one way of reaching the API.
type Strategy interface {
	Name() string
	Attempt(ctx context.Context, req *Request) (*Response, error)
}

// StatusError reports a response the chain should not accept (5xx). The
// response is kept so the last one can still be surfaced to the caller.
type StatusError struct {
	Response *Response
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("server error %d: %s", e.Response.StatusCode, common.ExtractMessage(e.Response.Body, e.Response.StatusCode))
}

// HTTPStrategy reaches BaseURL using Routes.
type HTTPStrategy struct {
	name    string
	baseURL string
	routes  RouteTable
	client  *http.Client
	logger  *slog.Logger
}

func NewHTTPStrategy(name, baseURL string, routes RouteTable, client *http.Client, logger *slog.Logger) *HTTPStrategy {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTPStrategy{name: name, baseURL: baseURL, routes: routes, client: client, logger: logger}
}

func (s *HTTPStrategy) Name() string { return s.name }

// Attempt sends req. 2xx-4xx responses are answers; 5xx and transport
// failures are errors.
func (s *HTTPStrategy) Attempt(ctx context.Context, req *Request) (*Response, error) {
	method, url, body, err := s.routes.Resolve(s.baseURL, req)
	if err != nil {
		return nil, err
	}
	resp, err := Send(ctx, s.client, method, url, req.Header, body, s.logger)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= http.StatusInternalServerError {
		return resp, &StatusError{Response: resp}
	}
	return resp, nil
}

type retrying struct {
	inner    Strategy
	attempts int
	delay    time.Duration
	logger   *slog.Logger
}

// WithRetry retries s up to attempts times with a fixed delay in between.
func WithRetry(s Strategy, attempts int, delay time.Duration, logger *slog.Logger) Strategy {
	if attempts < 1 {
		attempts = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &retrying{inner: s, attempts: attempts, delay: delay, logger: logger}
}

func (r *retrying) Name() string { return r.inner.Name() }

func (r *retrying) Attempt(ctx context.Context, req *Request) (*Response, error) {
	var (
		resp *Response
		err  error
	)
	for i := 1; i <= r.attempts; i++ {
		resp, err = r.inner.Attempt(ctx, req)
		if err == nil || !retryable(err) || i == r.attempts {
			return resp, err
		}
		r.logger.Warn("transport.retry",
			"strategy", r.inner.Name(),
			"op", req.Op,
			"attempt", i,
			"error", err,
		)
		select {
		case <-ctx.Done():
			return resp, ctx.Err()
		case <-time.After(r.delay):
		}
	}
	return resp, err
}

func retryable(err error) bool {
	return !errors.Is(err, ErrUnknownOp) &&
		!errors.Is(err, ErrNoMock) &&
		!errors.Is(err, context.Canceled) &&
		!errors.Is(err, context.DeadlineExceeded)
}

var ErrNoMock = errors.New("no mock payload for operation")

// MockStrategy answers with canned payloads. It stands in for the API in
// demos and offline development only.
type MockStrategy struct {
	payloads map[Op][]byte
}

func NewMockStrategy(payloads map[Op][]byte) *MockStrategy {
	return &MockStrategy{payloads: payloads}
}

func (m *MockStrategy) Name() string { return "mock" }

func (m *MockStrategy) Attempt(_ context.Context, req *Request) (*Response, error) {
	payload, ok := m.payloads[req.Op]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoMock, req.Op)
	}
	h := http.Header{}
	h.Set("Content-Type", "application/json")
	h.Set("X-Mock-Response", "true")
	return &Response{StatusCode: http.StatusOK, Header: h, Body: append([]byte(nil), payload...)}, nil
}
