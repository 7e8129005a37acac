package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/punchd/punchd/internal/platform/timeouts"
	"github.com/punchd/punchd/internal/services/attendance/dispatch"
	"github.com/punchd/punchd/internal/services/attendance/domain"
	attendancesqlite "github.com/punchd/punchd/internal/services/attendance/storage/sqlite"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"
)

// RuntimeConfig controls attendance service startup, dependencies, and pool
// behavior.
type RuntimeConfig struct {
	HTTPAddr        string
	HealthGRPCPort  int
	DBPath          string
	Workers         int
	QueueSize       int
	LogReadCommands bool
	CallbackTimeout time.Duration
}

const (
	defaultHTTPAddr = ":8080"
	defaultDBPath   = "data/attendance.db"
)

// Run starts the attendance runtime and blocks until the context ends.
func Run(ctx context.Context, cfg RuntimeConfig) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if strings.TrimSpace(cfg.HTTPAddr) == "" {
		cfg.HTTPAddr = defaultHTTPAddr
	}
	if strings.TrimSpace(cfg.DBPath) == "" {
		cfg.DBPath = defaultDBPath
	}

	if dir := filepath.Dir(cfg.DBPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create attendance storage dir: %w", err)
		}
	}

	eventStore, err := attendancesqlite.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open attendance sqlite store: %w", err)
	}
	defer func() {
		if closeErr := eventStore.Close(); closeErr != nil {
			log.Printf("close attendance sqlite store: %v", closeErr)
		}
	}()

	service := domain.NewService(eventStore, nil, cfg.LogReadCommands)
	dispatcher := dispatch.NewDispatcher(nil)
	pool := NewPool(service, dispatcher, PoolConfig{
		Workers:         cfg.Workers,
		QueueSize:       cfg.QueueSize,
		CallbackTimeout: cfg.CallbackTimeout,
	}, nil)
	pool.Start()

	mux := http.NewServeMux()
	NewServer(pool, eventStore).RegisterRoutes(mux)
	httpServer := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: timeouts.ReadHeader,
	}

	httpListener, err := net.Listen("tcp", cfg.HTTPAddr)
	if err != nil {
		pool.Close()
		return fmt.Errorf("listen on http addr %s: %w", cfg.HTTPAddr, err)
	}

	var grpcServer *grpc.Server
	var grpcErr chan error
	if cfg.HealthGRPCPort > 0 {
		grpcListener, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.HealthGRPCPort))
		if err != nil {
			pool.Close()
			_ = httpListener.Close()
			return fmt.Errorf("listen on health port %d: %w", cfg.HealthGRPCPort, err)
		}
		grpcServer = grpc.NewServer(grpc.StatsHandler(otelgrpc.NewServerHandler()))
		healthServer := health.NewServer()
		grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
		healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
		healthServer.SetServingStatus("attendance.runtime", grpc_health_v1.HealthCheckResponse_SERVING)
		grpcErr = make(chan error, 1)
		go func() {
			grpcErr <- grpcServer.Serve(grpcListener)
		}()
		log.Printf("attendance health server listening at %v", grpcListener.Addr())
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- httpServer.Serve(httpListener)
	}()
	log.Printf("attendance server listening at %v", httpListener.Addr())

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		pool.Close()
		if grpcServer != nil {
			grpcServer.GracefulStop()
			<-grpcErr
		}
		return fmt.Errorf("serve http: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeouts.Shutdown)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("http shutdown: %v", err)
	}
	if err := <-serveErr; err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Printf("serve http: %v", err)
	}

	// Stop intake first, then drain queued jobs so accepted commands still
	// reach the log and their callbacks.
	pool.Close()

	if grpcServer != nil {
		grpcServer.GracefulStop()
		if err := <-grpcErr; err != nil {
			log.Printf("serve health grpc: %v", err)
		}
	}
	return nil
}
