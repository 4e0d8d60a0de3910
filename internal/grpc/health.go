package grpc

import (
	"context"
	"log/slog"
	"net"
	"sync"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/keepalive"

	"github.com/EgehanKilicarslan/bienesraices/internal/worker"
)

// ServiceName is the service reported alongside the overall ("") status
const ServiceName = "bienesraices"

// Probe reports whether a dependency is usable
type Probe func(ctx context.Context) error

// HealthServer exposes the standard gRPC health protocol for orchestrators.
// Serving status follows the result of the last probe run.
type HealthServer struct {
	server  *grpc.Server
	health  *health.Server
	probe   Probe
	timeout time.Duration
	logger  *slog.Logger

	mu      sync.Mutex
	serving bool
}

// NewHealthServer creates a gRPC server with only the health service registered.
// It starts NOT_SERVING until the first probe succeeds.
func NewHealthServer(probe Probe, timeout time.Duration, logger *slog.Logger) *HealthServer {
	server := grpc.NewServer(
		grpc.KeepaliveParams(keepalive.ServerParameters{
			Time:    30 * time.Second,
			Timeout: 10 * time.Second,
		}),
	)
	hs := health.NewServer()
	healthpb.RegisterHealthServer(server, hs)

	h := &HealthServer{
		server:  server,
		health:  hs,
		probe:   probe,
		timeout: timeout,
		logger:  logger,
	}
	h.setStatus(healthpb.HealthCheckResponse_NOT_SERVING)
	return h
}

// Check runs the probe once and updates the reported status
func (h *HealthServer) Check(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	err := h.probe(ctx)

	h.mu.Lock()
	changed := h.serving != (err == nil)
	h.serving = err == nil
	h.mu.Unlock()

	if err != nil {
		h.setStatus(healthpb.HealthCheckResponse_NOT_SERVING)
		if changed {
			h.logger.Warn("⚠️ [Health] Dependency check failed", "error", err)
		}
		return false
	}

	h.setStatus(healthpb.HealthCheckResponse_SERVING)
	if changed {
		h.logger.Info("✅ [Health] Dependencies healthy")
	}
	return true
}

// Watch re-runs the probe on the pool until it shuts down
func (h *HealthServer) Watch(pool *worker.Pool, interval time.Duration) {
	pool.Every("health-probe", interval, func(ctx context.Context) {
		if ctx.Err() != nil {
			return
		}
		h.Check(ctx)
	})
}

// Serve blocks accepting connections on lis
func (h *HealthServer) Serve(lis net.Listener) error {
	return h.server.Serve(lis)
}

// Stop marks the service as shutting down and drains open RPCs
func (h *HealthServer) Stop() {
	h.health.Shutdown()
	h.server.GracefulStop()
}

func (h *HealthServer) setStatus(status healthpb.HealthCheckResponse_ServingStatus) {
	h.health.SetServingStatus("", status)
	h.health.SetServingStatus(ServiceName, status)
}
