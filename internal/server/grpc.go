package server

import (
	"context"
	"log/slog"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// HealthProbe reports whether a dependency is usable, e.g. the ledger database.
type HealthProbe func(ctx context.Context) error

// NewGRPCServer returns a server carrying the standard health service and
// reflection. The overall status starts SERVING.
func NewGRPCServer(opts ...grpc.ServerOption) (*grpc.Server, *health.Server) {
	gs := grpc.NewServer(opts...)
	hs := health.NewServer()
	healthpb.RegisterHealthServer(gs, hs)
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	reflection.Register(gs)
	return gs, hs
}

// WatchHealth polls probe every interval and flips the overall status between
// SERVING and NOT_SERVING until ctx ends.
func WatchHealth(ctx context.Context, hs *health.Server, probe HealthProbe, interval time.Duration, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	if interval <= 0 {
		interval = 15 * time.Second
	}
	last := healthpb.HealthCheckResponse_SERVING
	check := func() {
		next := healthpb.HealthCheckResponse_SERVING
		if err := probe(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			next = healthpb.HealthCheckResponse_NOT_SERVING
			logger.Warn("grpc.health.probe_failed", "error", err)
		}
		if next != last {
			logger.Info("grpc.health.status", "status", next.String())
			last = next
		}
		hs.SetServingStatus("", next)
	}
	check()
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			hs.Shutdown()
			return
		case <-t.C:
			check()
		}
	}
}
