package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/zero-paper-user/internal/common"
	"github.com/joseph-ayodele/zero-paper-user/internal/metrics"
)

// MaxResponseBytes bounds how much of a response body is buffered. Receipt
// images travel base64 encoded, hence the generous limit.
const MaxResponseBytes = 32 << 20

// Send performs one HTTP exchange and buffers the response. Any status code
// is returned as a Response; only transport failures produce an error.
func Send(ctx context.Context, client *http.Client, method, url string, header http.Header, body []byte, logger *slog.Logger) (*Response, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}

	reqID := common.RequestIDFromContext(ctx)
	if reqID == "" {
		reqID = uuid.New().String()
	}
	start := time.Now()

	var rdr io.Reader
	if len(body) > 0 {
		rdr = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, rdr)
	if err != nil {
		logger.Error("upstream.http.build_request_error", "req_id", reqID, "error", err)
		return nil, fmt.Errorf("build request: %w", err)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if len(body) > 0 && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set(common.RequestIDHeader, reqID)

	logger.Debug("upstream.http.request",
		"req_id", reqID,
		"method", method,
		"url", redactQuery(req),
		"content_length", len(body),
	)

	resp, err := client.Do(req)
	if err != nil {
		logger.Error("upstream.http.send_error", "req_id", reqID, "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		metrics.ObserveUpstream(method, 0, time.Since(start))
		return nil, err
	}
	defer func(Body io.ReadCloser) {
		err := Body.Close()
		if err != nil {
			logger.Warn("upstream.http.response_body_close_error", "req_id", reqID, "error", err)
		}
	}(resp.Body)

	raw, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseBytes))
	if err != nil {
		logger.Error("upstream.http.read_error", "req_id", reqID, "error", err)
		return nil, fmt.Errorf("read response: %w", err)
	}

	logger.Info("upstream.http.response",
		"req_id", reqID,
		"method", method,
		"status", resp.StatusCode,
		"bytes", len(raw),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	metrics.ObserveUpstream(method, resp.StatusCode, time.Since(start))

	return &Response{StatusCode: resp.StatusCode, Header: resp.Header.Clone(), Body: raw}, nil
}

// redactQuery keeps credentials sent as query parameters out of the logs.
func redactQuery(req *http.Request) string {
	u := *req.URL
	q := u.Query()
	for _, k := range []string{"password", "otp", "refreshToken"} {
		if q.Has(k) {
			q.Set(k, "REDACTED")
		}
	}
	u.RawQuery = q.Encode()
	return u.String()
}
