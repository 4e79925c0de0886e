package main

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"
	"google.golang.org/grpc"

	"github.com/mekarlab/payrollgate/internal/adapter/engine"
	"github.com/mekarlab/payrollgate/internal/adapter/layout"
	"github.com/mekarlab/payrollgate/internal/adapter/metrics"
	"github.com/mekarlab/payrollgate/internal/adapter/registry"
	"github.com/mekarlab/payrollgate/internal/adapter/rpc"
	"github.com/mekarlab/payrollgate/internal/adapter/store"
	"github.com/mekarlab/payrollgate/internal/pkg/config"
	"github.com/mekarlab/payrollgate/internal/pkg/logger"
	"github.com/mekarlab/payrollgate/internal/usecase"
	pb "github.com/mekarlab/payrollgate/proto"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := logger.New(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)

	m := metrics.New(prometheus.DefaultRegisterer)

	// --- Start Admin and Metrics Server ---
	adminMux := http.NewServeMux()
	adminMux.Handle("/metrics", promhttp.Handler())
	adminMux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	adminServer := &http.Server{
		Addr:    cfg.AdminAddr,
		Handler: adminMux,
	}

	go func() {
		logger.Info("starting admin & metrics server", "addr", adminServer.Addr)
		if err := adminServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("admin & metrics server failed", "error", err)
		}
	}()

	// --- Graceful Shutdown Context ---
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Adapters ---
	lay, err := layout.New(cfg.StorageRoot)
	if err != nil {
		logger.Error("failed to resolve storage root", "error", err)
		os.Exit(1)
	}
	creds := registry.New(cfg.RegistryPath, lay, logger)
	eng := engine.New(cfg.EngineBin, cfg.EngineProjectDir, logger)
	conn := store.New(logger)

	// --- Use Cases ---
	transformSvc := usecase.NewTransformService(
		lay, eng, conn, logger, m,
		cfg.EngineTimeout, cfg.EngineSettleDelay, nil,
	)
	querySvc := usecase.NewQueryService(lay, conn, logger, m)

	// --- gRPC Server ---
	limiter := rate.NewLimiter(rate.Limit(cfg.IngestRatePerSec), cfg.IngestBurst)
	router := rpc.NewServer(creds, transformSvc, querySvc, limiter, cfg.StreamBatchRows, m, logger)

	grpcSrv := grpc.NewServer(grpc.ForceServerCodec(pb.Codec{}))
	pb.RegisterPayrollFlightServer(grpcSrv, router)

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		logger.Error("failed to listen", "addr", cfg.GRPCAddr, "error", err)
		os.Exit(1)
	}

	go func() {
		logger.Info("flight gateway listening", "addr", cfg.GRPCAddr)
		if err := grpcSrv.Serve(lis); err != nil {
			logger.Error("grpc serve failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown signal received")

	// Give in-flight requests a bounded window to finish.
	done := make(chan struct{})
	go func() {
		grpcSrv.GracefulStop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(15 * time.Second):
		logger.Warn("graceful stop timed out, forcing")
		grpcSrv.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := adminServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("admin server shutdown failed", "error", err)
	}

	logger.Info("shutdown complete")
}
