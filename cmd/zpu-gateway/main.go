package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/joseph-ayodele/zero-paper-user/internal/common"
	"github.com/joseph-ayodele/zero-paper-user/internal/logging"
	"github.com/joseph-ayodele/zero-paper-user/internal/middleware"
	"github.com/joseph-ayodele/zero-paper-user/internal/server"
	"github.com/joseph-ayodele/zero-paper-user/internal/upstream"
)

func main() {
	addr := flag.String("addr", "", "HTTP listen address (overrides HTTP_ADDR)")
	flag.Parse()

	cfg := common.LoadConfig()
	if *addr != "" {
		cfg.Server.HTTPAddr = *addr
	}

	logger := logging.New(os.Stdout, cfg.Log.Format, cfg.Log.Level)
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("config.invalid", "error", err)
		os.Exit(1)
	}

	if err := run(cfg, logger); err != nil {
		logger.Error("gateway.exit", "error", err)
		os.Exit(1)
	}
}

func run(cfg *common.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	up := upstream.NewClient(cfg.Upstream, logger)
	limiter := middleware.NewRateLimiter(cfg.OTP, logger)
	limiter.StartCleanup(ctx, 5*time.Minute)

	router := server.NewRouter(cfg, server.New(up, limiter, logger))
	httpServer := &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      cfg.Upstream.Timeout + 30*time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	errCh := make(chan error, 2)

	var (
		grpcServer *grpc.Server
		hs         *health.Server
	)
	if cfg.Server.GRPCHealthAddr != "" {
		lis, err := net.Listen("tcp", cfg.Server.GRPCHealthAddr)
		if err != nil {
			return fmt.Errorf("listen grpc health: %w", err)
		}
		grpcServer = grpc.NewServer()
		hs = health.NewServer()
		healthpb.RegisterHealthServer(grpcServer, hs)
		hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
		hs.SetServingStatus("zpu.gateway", healthpb.HealthCheckResponse_SERVING)
		go func() {
			logger.Info("gateway.grpc_health.listening", "addr", cfg.Server.GRPCHealthAddr)
			if err := grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
				errCh <- fmt.Errorf("grpc serve: %w", err)
			}
		}()
	}

	go func() {
		logger.Info("gateway.listening",
			"addr", cfg.Server.HTTPAddr,
			"upstream", up.BaseURL(),
		)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http serve: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("gateway.shutdown", "reason", "signal")
	case err := <-errCh:
		return err
	}

	if hs != nil {
		hs.Shutdown()
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("gateway.shutdown_error", "error", err)
	}
	if grpcServer != nil {
		grpcServer.GracefulStop()
	}
	logger.Info("gateway.stopped")
	return nil
}
