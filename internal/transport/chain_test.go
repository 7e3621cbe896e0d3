package transport

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/zero-paper-user/internal/common"
)

func quiet() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

// countingServer answers every request with status and body and counts hits.
func countingServer(t *testing.T, status int, body string) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func deadURL(t *testing.T) string {
	t.Helper()
	srv := httptest.NewServer(http.NotFoundHandler())
	u := srv.URL
	srv.Close()
	return u
}

func TestChainFirstStrategyAnswers(t *testing.T) {
	srv, hits := countingServer(t, http.StatusOK, `[{"id":1}]`)
	mockHit := false
	chain := NewChain(quiet(),
		NewHTTPStrategy("proxy", srv.URL, testRoutes, srv.Client(), quiet()),
		strategyFunc("mock", func() (*Response, error) { mockHit = true; return nil, nil }),
	)

	resp, err := chain.Do(context.Background(), &Request{Op: "list", Params: map[string]string{"uid": "u-1"}})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `[{"id":1}]`, string(resp.Body))
	assert.EqualValues(t, 1, hits.Load())
	assert.False(t, mockHit)
}

func TestChainClientErrorIsAnAnswer(t *testing.T) {
	srv, _ := countingServer(t, http.StatusUnauthorized, `{"error":"expired"}`)
	fallback, fallbackHits := countingServer(t, http.StatusOK, `[]`)
	chain := NewChain(quiet(),
		WithRetry(NewHTTPStrategy("proxy", srv.URL, testRoutes, nil, quiet()), 2, time.Millisecond, quiet()),
		NewHTTPStrategy("direct", fallback.URL, testRoutes, nil, quiet()),
	)

	resp, err := chain.Do(context.Background(), &Request{Op: "list", Params: map[string]string{"uid": "u-1"}})
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Zero(t, fallbackHits.Load())
	assert.Equal(t, "expired", common.ExtractMessage(resp.Body, resp.StatusCode))
}

func TestChainServerErrorFallsThrough(t *testing.T) {
	broken, brokenHits := countingServer(t, http.StatusBadGateway, `{"message":"down"}`)
	healthy, _ := countingServer(t, http.StatusOK, `{"ok":true}`)
	chain := NewChain(quiet(),
		WithRetry(NewHTTPStrategy("proxy", broken.URL, testRoutes, nil, quiet()), 2, time.Millisecond, quiet()),
		WithRetry(NewHTTPStrategy("direct", healthy.URL, testRoutes, nil, quiet()), 2, time.Millisecond, quiet()),
	)

	resp, err := chain.Do(context.Background(), &Request{Op: "create", Body: []byte(`{}`)})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 2, brokenHits.Load())
}

func TestChainExhaustedReturnsChainError(t *testing.T) {
	broken, _ := countingServer(t, http.StatusInternalServerError, `{"error":"boom"}`)
	chain := NewChain(quiet(),
		WithRetry(NewHTTPStrategy("proxy", deadURL(t), testRoutes, nil, quiet()), 2, time.Millisecond, quiet()),
		NewHTTPStrategy("direct", broken.URL, testRoutes, nil, quiet()),
		NewMockStrategy(map[Op][]byte{}),
	)

	_, err := chain.Do(context.Background(), &Request{Op: "create"})
	var chainErr *ChainError
	require.True(t, errors.As(err, &chainErr))
	assert.Equal(t, Op("create"), chainErr.Op)
	require.Len(t, chainErr.Failures, 3)
	assert.Equal(t, "proxy", chainErr.Failures[0].Strategy)
	assert.Equal(t, "direct", chainErr.Failures[1].Strategy)
	assert.ErrorIs(t, err, ErrNoMock)

	last := chainErr.LastResponse()
	require.NotNil(t, last)
	assert.Equal(t, http.StatusInternalServerError, last.StatusCode)
}

func TestChainFallsBackToMock(t *testing.T) {
	chain := NewChain(quiet(),
		NewHTTPStrategy("direct", deadURL(t), testRoutes, nil, quiet()),
		NewMockStrategy(map[Op][]byte{"list": []byte(`[]`)}),
	)
	assert.Equal(t, []string{"direct", "mock"}, chain.Strategies())

	resp, err := chain.Do(context.Background(), &Request{Op: "list", Params: map[string]string{"uid": "u"}})
	require.NoError(t, err)
	assert.Equal(t, "true", resp.Header.Get("X-Mock-Response"))
	assert.Equal(t, "[]", string(resp.Body))
}

func TestChainEmpty(t *testing.T) {
	_, err := NewChain(nil).Do(context.Background(), &Request{Op: "list"})
	var chainErr *ChainError
	require.True(t, errors.As(err, &chainErr))
	assert.Len(t, chainErr.Failures, 1)
}

func TestWithRetryStopsOnCancel(t *testing.T) {
	var calls int
	s := WithRetry(strategyFunc("flaky", func() (*Response, error) {
		calls++
		return nil, errors.New("connection refused")
	}), 5, time.Hour, quiet())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := s.Attempt(ctx, &Request{Op: "list"})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, calls)
}

func TestWithRetrySkipsPermanentErrors(t *testing.T) {
	var calls int
	s := WithRetry(strategyFunc("x", func() (*Response, error) {
		calls++
		return nil, ErrUnknownOp
	}), 3, time.Millisecond, quiet())

	_, err := s.Attempt(context.Background(), &Request{Op: "list"})
	assert.ErrorIs(t, err, ErrUnknownOp)
	assert.Equal(t, 1, calls)
}

func TestSendPropagatesRequestID(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get(common.RequestIDHeader)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	ctx := common.WithRequestID(context.Background(), "req-42")
	resp, err := Send(ctx, srv.Client(), http.MethodGet, srv.URL, nil, nil, quiet())
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "req-42", got)
}

func TestRedactQuery(t *testing.T) {
	req, _ := http.NewRequest(http.MethodPost, "http://api/users/login?email=a%40b.c&password=secret", nil)
	out := redactQuery(req)
	assert.NotContains(t, out, "secret")
	assert.Contains(t, out, "REDACTED")
}

type funcStrategy struct {
	name string
	fn   func() (*Response, error)
}

func strategyFunc(name string, fn func() (*Response, error)) Strategy {
	return &funcStrategy{name: name, fn: fn}
}

func (f *funcStrategy) Name() string { return f.name }

func (f *funcStrategy) Attempt(context.Context, *Request) (*Response, error) { return f.fn() }
