// Package client is the service layer used by the CLI: every call goes
// through the transport chain and comes back as a common.Result.
package client

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/tidwall/gjson"

	"github.com/joseph-ayodele/zero-paper-user/internal/common"
	"github.com/joseph-ayodele/zero-paper-user/internal/routes"
	"github.com/joseph-ayodele/zero-paper-user/internal/session"
	"github.com/joseph-ayodele/zero-paper-user/internal/transport"
)

// Strategy names, in default chain order.
const (
	StrategyProxy  = "proxy"
	StrategyDirect = "direct"
)

const (
	msgLoginRequired = "please log in again"
	msgNetwork       = "unable to reach the server, please try again"
)

// DefaultChain builds gateway -> direct API -> mock (only when mock mode is
// on), each HTTP tier retried with the configured fixed delay.
func DefaultChain(cfg *common.Config, mock map[transport.Op][]byte, logger *slog.Logger) *transport.Chain {
	if logger == nil {
		logger = slog.Default()
	}
	hc := &http.Client{Timeout: cfg.Upstream.Timeout}
	if hc.Timeout <= 0 {
		hc.Timeout = 20 * time.Second
	}
	attempts, delay := cfg.Client.RetryAttempts, cfg.Client.RetryDelay

	strategies := make([]transport.Strategy, 0, 3)
	if cfg.Client.GatewayURL != "" {
		proxy := transport.NewHTTPStrategy(StrategyProxy, cfg.Client.GatewayURL, routes.Gateway, hc, logger)
		strategies = append(strategies, transport.WithRetry(proxy, attempts, delay, logger))
	}
	direct := transport.NewHTTPStrategy(StrategyDirect, cfg.Upstream.BaseURL, routes.Upstream, hc, logger)
	strategies = append(strategies, transport.WithRetry(direct, attempts, delay, logger))
	if cfg.Client.MockMode {
		strategies = append(strategies, transport.NewMockStrategy(mock))
	}
	return transport.NewChain(logger, strategies...)
}

// caller is shared by the services.
type caller struct {
	chain   *transport.Chain
	session *session.Session
	logger  *slog.Logger
}

// do sends req. With authed set the session is refreshed first and its
// token attached; a 401/403 answer then clears the session.
func (c *caller) do(ctx context.Context, req *transport.Request, authed bool) (*transport.Response, *common.Failure) {
	if req.Header == nil {
		req.Header = http.Header{}
	}
	if id := common.RequestIDFromContext(ctx); id != "" {
		req.Header.Set(common.RequestIDHeader, id)
	}

	if authed {
		if err := c.session.RefreshIfNeeded(ctx); err != nil {
			return nil, &common.Failure{Kind: common.KindAuth, Status: http.StatusUnauthorized, Message: msgLoginRequired}
		}
		token, err := c.session.AuthToken(ctx)
		if err != nil || token == "" {
			return nil, &common.Failure{Kind: common.KindAuth, Status: http.StatusUnauthorized, Message: msgLoginRequired}
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.chain.Do(ctx, req)
	if err != nil {
		return nil, c.transportFailure(err)
	}
	if resp.OK() {
		return resp, nil
	}

	f := failureFromResponse(resp)
	if f.Kind == common.KindAuth && authed {
		c.logger.Info("client.auth_rejected", "op", req.Op, "status", resp.StatusCode)
		if cerr := c.session.Clear(ctx); cerr != nil {
			c.logger.Warn("client.session_clear_error", "error", cerr)
		}
		f.Message = msgLoginRequired
	}
	return nil, f
}

func (c *caller) transportFailure(err error) *common.Failure {
	var chainErr *transport.ChainError
	if errors.As(err, &chainErr) {
		if last := chainErr.LastResponse(); last != nil {
			return failureFromResponse(last)
		}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return &common.Failure{Kind: common.KindNetwork, Message: "request cancelled"}
	}
	return &common.Failure{Kind: common.KindNetwork, Message: msgNetwork}
}

func failureFromResponse(resp *transport.Response) *common.Failure {
	f := &common.Failure{
		Kind:    common.KindFromStatus(resp.StatusCode),
		Status:  resp.StatusCode,
		Message: common.ExtractMessage(resp.Body, resp.StatusCode),
	}
	if fields := gjson.GetBytes(resp.Body, "fields"); fields.IsArray() {
		for _, v := range fields.Array() {
			f.Fields = append(f.Fields, v.String())
		}
	}
	return f
}

// successMessage returns the message of a 2xx body, or fallback.
func successMessage(body []byte, fallback string) string {
	if v := gjson.GetBytes(body, "message"); v.Type == gjson.String && v.String() != "" {
		return v.String()
	}
	return fallback
}

func validationFailure[T any](v *common.Validator) common.Result[T] {
	return common.FailWith[T](&common.Failure{
		Kind:    common.KindValidation,
		Status:  http.StatusBadRequest,
		Message: v.ErrorMessage(),
		Fields:  v.Fields(),
	})
}
