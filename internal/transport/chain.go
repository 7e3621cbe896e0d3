package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/joseph-ayodele/zero-paper-user/internal/metrics"
)

// AttemptFailure is one strategy that did not produce an answer.
type AttemptFailure struct {
	Strategy string
	Err      error
}

// ChainError is returned when every strategy failed.
type ChainError struct {
	Op       Op
	Failures []AttemptFailure
}

func (e *ChainError) Error() string {
	parts := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		parts = append(parts, fmt.Sprintf("%s: %v", f.Strategy, f.Err))
	}
	return fmt.Sprintf("%s: all strategies failed (%s)", e.Op, strings.Join(parts, "; "))
}

func (e *ChainError) Unwrap() []error {
	errs := make([]error, 0, len(e.Failures))
	for _, f := range e.Failures {
		errs = append(errs, f.Err)
	}
	return errs
}

// LastResponse returns the most recent server error response, if any
// strategy got that far.
func (e *ChainError) LastResponse() *Response {
	for i := len(e.Failures) - 1; i >= 0; i-- {
		var se *StatusError
		if errors.As(e.Failures[i].Err, &se) {
			return se.Response
		}
	}
	return nil
}

// Chain tries strategies in order until one answers.
type Chain struct {
	strategies []Strategy
	logger     *slog.Logger
}

func NewChain(logger *slog.Logger, strategies ...Strategy) *Chain {
	if logger == nil {
		logger = slog.Default()
	}
	return &Chain{strategies: strategies, logger: logger}
}

// Strategies returns the strategy names in order.
func (c *Chain) Strategies() []string {
	names := make([]string, len(c.strategies))
	for i, s := range c.strategies {
		names[i] = s.Name()
	}
	return names
}

func (c *Chain) Do(ctx context.Context, req *Request) (*Response, error) {
	start := time.Now()
	chainErr := &ChainError{Op: req.Op}
	for _, s := range c.strategies {
		resp, err := s.Attempt(ctx, req)
		if err == nil {
			if len(chainErr.Failures) > 0 {
				c.logger.Info("transport.chain.fallback_ok",
					"op", req.Op,
					"strategy", s.Name(),
					"skipped", len(chainErr.Failures),
					"elapsed_ms", time.Since(start).Milliseconds(),
				)
			}
			metrics.ObserveStrategy(string(req.Op), s.Name(), true)
			return resp, nil
		}
		metrics.ObserveStrategy(string(req.Op), s.Name(), false)
		c.logger.Warn("transport.chain.strategy_failed", "op", req.Op, "strategy", s.Name(), "error", err)
		chainErr.Failures = append(chainErr.Failures, AttemptFailure{Strategy: s.Name(), Err: err})
		if ctx.Err() != nil {
			break
		}
	}
	if len(c.strategies) == 0 {
		chainErr.Failures = append(chainErr.Failures, AttemptFailure{Strategy: "none", Err: errors.New("no strategies configured")})
	}
	c.logger.Error("transport.chain.exhausted", "op", req.Op, "error", chainErr, "elapsed_ms", time.Since(start).Milliseconds())
	return nil, chainErr
}
