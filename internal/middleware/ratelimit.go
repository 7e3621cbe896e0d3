package middleware

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"

	"github.com/joseph-ayodele/zero-paper-user/internal/common"
	"github.com/joseph-ayodele/zero-paper-user/internal/metrics"
)

// maxPeekBytes bounds how much of a body is read to find the email.
const maxPeekBytes = 64 << 10

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter throttles OTP emails per address (or per client IP when the
// body names none).
type RateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*limiterEntry
	rate     rate.Limit
	burst    int
	idle     time.Duration
	logger   *slog.Logger
}

func NewRateLimiter(cfg common.OTPConfig, logger *slog.Logger) *RateLimiter {
	return &RateLimiter{
		limiters: make(map[string]*limiterEntry),
		rate:     rate.Every(time.Minute / time.Duration(max(cfg.PerMinute, 1))),
		burst:    max(cfg.Burst, 1),
		idle:     10 * time.Minute,
		logger:   logger,
	}
}

func (rl *RateLimiter) allow(key string, now time.Time) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	e, ok := rl.limiters[key]
	if !ok {
		e = &limiterEntry{limiter: rate.NewLimiter(rl.rate, rl.burst)}
		rl.limiters[key] = e
	}
	e.lastSeen = now
	return e.limiter.AllowN(now, 1)
}

// Cleanup drops limiters idle for longer than the refill window.
func (rl *RateLimiter) Cleanup(now time.Time) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	removed := 0
	for k, e := range rl.limiters {
		if now.Sub(e.lastSeen) > rl.idle {
			delete(rl.limiters, k)
			removed++
		}
	}
	return removed
}

// StartCleanup runs Cleanup every interval until ctx is done.
func (rl *RateLimiter) StartCleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				if n := rl.Cleanup(now); n > 0 {
					rl.logger.Debug("gateway.rate_limiter.cleanup", "removed", n)
				}
			}
		}
	}()
}

// Handler rejects over-limit requests with 429 and a JSON envelope.
func (rl *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := rateKey(r)
		if !rl.allow(key, time.Now()) {
			route := routeTemplate(r)
			metrics.IncRateLimited(route)
			rl.logger.Warn("gateway.rate_limited",
				"req_id", common.RequestIDFromContext(r.Context()),
				"route", route,
			)
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Retry-After", "60")
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":"too many requests, please try again later"}`))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// rateKey peeks at the JSON body for an email and restores the body.
func rateKey(r *http.Request) string {
	if r.Body != nil {
		b, err := io.ReadAll(io.LimitReader(r.Body, maxPeekBytes))
		_ = r.Body.Close()
		r.Body = io.NopCloser(bytes.NewReader(b))
		if err == nil {
			if email := strings.ToLower(strings.TrimSpace(gjson.GetBytes(b, "email").String())); email != "" {
				return "email:" + email
			}
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "ip:" + host
}
