// Package grpc reports catalog health over the standard gRPC health service.
package grpc

import (
	"context"
	"log/slog"
	"time"

	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName is the name clients pass to grpc.health.v1.Health/Check.
const ServiceName = "catalog.v1.CatalogService"

// Pinger is satisfied by the product store backends.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthReporter mirrors the database reachability into a health.Server.
type HealthReporter struct {
	pinger   Pinger
	health   *health.Server
	interval time.Duration
	timeout  time.Duration
	logger   *slog.Logger
}

func NewHealthReporter(pinger Pinger, hs *health.Server, interval time.Duration, logger *slog.Logger) *HealthReporter {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	return &HealthReporter{
		pinger:   pinger,
		health:   hs,
		interval: interval,
		timeout:  interval / 2,
		logger:   logger.With("component", "grpc_health"),
	}
}

// Check pings once and updates the serving status of ServiceName and the server as a whole.
func (r *HealthReporter) Check(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	pingCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	status := healthpb.HealthCheckResponse_SERVING
	if err := r.pinger.Ping(pingCtx); err != nil {
		r.logger.WarnContext(ctx, "database ping failed", "error", err)
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	r.health.SetServingStatus(ServiceName, status)
	r.health.SetServingStatus("", status)
	return status
}

// Run checks on every interval until ctx is done, then marks the service as shutting down.
func (r *HealthReporter) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.Check(ctx)
	for {
		select {
		case <-ctx.Done():
			r.health.Shutdown()
			return nil
		case <-ticker.C:
			r.Check(ctx)
		}
	}
}
