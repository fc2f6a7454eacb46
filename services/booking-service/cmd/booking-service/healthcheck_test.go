package main

import (
	"bytes"
	"context"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/md-rashed-zaman/salonbook/libs/runtime"
)

func freePort(t *testing.T) string {
	t.Helper()
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	_, port, _ := net.SplitHostPort(lis.Addr().String())
	_ = lis.Close()
	return port
}

func TestHealthcheckAgainstHealthServer(t *testing.T) {
	port := freePort(t)
	t.Setenv("GRPC_PORT", port)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		serveHealthGRPC(ctx, runtime.Discard(), port)
		close(done)
	}()
	defer func() {
		cancel()
		<-done
	}()

	var out bytes.Buffer
	deadline := time.Now().Add(3 * time.Second)
	for {
		out.Reset()
		if code := runHealthcheck(context.Background(), &out); code == 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("healthcheck never passed: %s", out.String())
		}
		time.Sleep(50 * time.Millisecond)
	}
}

func TestHealthcheckFailsWithoutServer(t *testing.T) {
	t.Setenv("GRPC_PORT", freePort(t))
	var out bytes.Buffer
	if code := runHealthcheck(context.Background(), &out); code != 1 {
		t.Fatalf("exit code = %d, want 1", code)
	}
	if !strings.Contains(out.String(), "unhealthy") {
		t.Fatalf("unexpected output %q", out.String())
	}
}
