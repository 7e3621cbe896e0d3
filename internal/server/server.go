// Package server is the HTTP gateway in front of the zpu API. Handlers
// validate input, forward exactly one upstream request and relay the answer
// inside the gateway's JSON envelopes.
package server

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/joseph-ayodele/zero-paper-user/internal/common"
	"github.com/joseph-ayodele/zero-paper-user/internal/metrics"
	"github.com/joseph-ayodele/zero-paper-user/internal/middleware"
	"github.com/joseph-ayodele/zero-paper-user/internal/routes"
	"github.com/joseph-ayodele/zero-paper-user/internal/transport"
)

// Upstream is the single-shot forwarder the handlers use.
type Upstream interface {
	Call(ctx context.Context, req *transport.Request) (*transport.Response, error)
}

type Server struct {
	upstream Upstream
	limiter  *middleware.RateLimiter
	logger   *slog.Logger
}

func New(up Upstream, limiter *middleware.RateLimiter, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{upstream: up, limiter: limiter, logger: logger}
}

// NewRouter wires every gateway route and the middleware stack.
func NewRouter(cfg *common.Config, s *Server) *mux.Router {
	r := mux.NewRouter()
	r.Use(
		middleware.RequestID,
		middleware.Logging(s.logger),
		middleware.Metrics,
		middleware.Recover(s.logger),
		middleware.CORS(cfg.Server.CORSOrigins),
		middleware.Bearer,
	)

	limited := func(h http.HandlerFunc) http.Handler {
		if s.limiter == nil {
			return h
		}
		return s.limiter.Handler(h)
	}

	r.HandleFunc(routes.PathAuth, s.handleAuth).Methods(http.MethodPost, http.MethodOptions)
	r.HandleFunc(routes.PathLogin, s.handleLogin).Methods(http.MethodPost, http.MethodOptions)
	r.HandleFunc(routes.PathRegister, s.handleRegister).Methods(http.MethodPost, http.MethodOptions)
	r.Handle(routes.PathSendOTP, limited(s.handleSendOTP)).Methods(http.MethodPost, http.MethodOptions)
	r.HandleFunc(routes.PathVerifyOTP, s.handleVerifyOTP).Methods(http.MethodPost, http.MethodOptions)
	r.Handle(routes.PathSendDeleteOTP, limited(s.handleSendDeleteOTP)).Methods(http.MethodPost, http.MethodOptions)
	r.HandleFunc(routes.PathDeleteAccount, s.handleDeleteAccount).Methods(http.MethodPost, http.MethodOptions)
	r.HandleFunc(routes.PathForgotPassword, s.handleForgotPassword).Methods(http.MethodPost, http.MethodOptions)
	r.HandleFunc(routes.PathRefreshToken, s.handleRefreshToken).Methods(http.MethodPost, http.MethodOptions)

	r.HandleFunc(routes.PathReceipts, s.handleListReceipts).Methods(http.MethodGet)
	r.HandleFunc(routes.PathReceipts, s.handleAddReceipt).Methods(http.MethodPost)
	r.HandleFunc(routes.PathReceipts, s.handleDeleteReceipt).Methods(http.MethodDelete)
	r.HandleFunc(routes.PathReceipts, preflight).Methods(http.MethodOptions)
	r.HandleFunc(routes.PathReceiptsAdd, s.handleAddReceipt).Methods(http.MethodPost, http.MethodOptions)
	r.HandleFunc(routes.PathReceiptsDelete, s.handleDeleteReceipt).Methods(http.MethodDelete, http.MethodOptions)
	r.HandleFunc(routes.PathReceiptsProc, s.handleProcessReceipt).Methods(http.MethodPost, http.MethodOptions)
	r.HandleFunc(routes.PathReceiptsSum, s.handleSummary).Methods(http.MethodGet, http.MethodOptions)
	r.HandleFunc(routes.PathReceiptsExport, s.handleExport).Methods(http.MethodGet, http.MethodOptions)
	r.HandleFunc(routes.PathReceiptImage, s.handleReceiptImage).Methods(http.MethodGet, http.MethodOptions)

	r.HandleFunc("/healthz", handleHealth).Methods(http.MethodGet)
	r.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})
	return r
}

// preflight is only reached when CORS did not already answer.
func preflight(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
