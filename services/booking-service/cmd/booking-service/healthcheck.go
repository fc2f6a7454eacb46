package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/md-rashed-zaman/salonbook/libs/config"
	"github.com/md-rashed-zaman/salonbook/libs/grpcx"
	"github.com/md-rashed-zaman/salonbook/libs/httpx"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// runHealthcheck calls the local gRPC health service and returns a process exit code, so
// images without a shell can use "booking-service healthcheck" as their container health check.
func runHealthcheck(ctx context.Context, out io.Writer) int {
	port, err := config.Port("GRPC_PORT", "9093")
	if err != nil {
		fmt.Fprintln(out, err)
		return 1
	}
	if err := checkHealth(ctx, "127.0.0.1:"+port); err != nil {
		fmt.Fprintln(out, "unhealthy:", err)
		return 1
	}
	return 0
}

func checkHealth(ctx context.Context, addr string) error {
	conn, err := grpcx.NewClient(addr, grpcx.DialOptions{})
	if err != nil {
		return err
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	ctx = httpx.ContextWithRequestID(ctx, "healthcheck-"+httpx.NewRequestID())
	resp, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{})
	if err != nil {
		return err
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		return fmt.Errorf("status %s", resp.GetStatus())
	}
	return nil
}
