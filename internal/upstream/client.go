// Package upstream forwards gateway calls to the zpu API.
package upstream

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/joseph-ayodele/zero-paper-user/internal/common"
	"github.com/joseph-ayodele/zero-paper-user/internal/routes"
	"github.com/joseph-ayodele/zero-paper-user/internal/transport"
)

// Client sends exactly one request per call; retrying is the caller's job.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

func NewClient(cfg common.UpstreamConfig, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 20 * time.Second
	}
	return &Client{
		baseURL: cfg.BaseURL,
		http:    &http.Client{Timeout: cfg.Timeout},
		logger:  logger,
	}
}

// NewClientWithHTTP is used when the caller owns the http.Client.
func NewClientWithHTTP(baseURL string, hc *http.Client, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{baseURL: baseURL, http: hc, logger: logger}
}

func (c *Client) BaseURL() string { return c.baseURL }

// Call resolves req against the upstream route table and sends it. The
// bearer token stored in ctx is attached when the request carries none.
func (c *Client) Call(ctx context.Context, req *transport.Request) (*transport.Response, error) {
	method, url, body, err := routes.Upstream.Resolve(c.baseURL, req)
	if err != nil {
		return nil, err
	}
	header := req.Header.Clone()
	if header == nil {
		header = http.Header{}
	}
	if header.Get("Authorization") == "" {
		if token := common.BearerFromContext(ctx); token != "" {
			header.Set("Authorization", "Bearer "+token)
		}
	}
	return transport.Send(ctx, c.http, method, url, header, body, c.logger)
}
