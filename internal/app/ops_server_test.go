package app

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/pedidohub/backoffice/internal/health"
	"github.com/pedidohub/backoffice/internal/version"
)

func findFreePort(t *testing.T) int {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to reserve port: %v", err)
	}
	port := listener.Addr().(*net.TCPAddr).Port
	_ = listener.Close()
	return port
}

func waitForEndpoint(t *testing.T, url string) *http.Response {
	t.Helper()

	var lastErr error
	for i := 0; i < 50; i++ {
		resp, err := http.Get(url)
		if err == nil {
			return resp
		}
		lastErr = err
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("endpoint %s never came up: %v", url, lastErr)
	return nil
}

func TestStartOpsServer_Endpoints(t *testing.T) {
	logger := log.WithField("test", "ops-server")
	port := findFreePort(t)
	addr := fmt.Sprintf("127.0.0.1:%d", port)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	healthHandler := health.NewHandler(version.String())
	srv := startOpsServer(ctx, addr, logger, healthHandler)
	if srv == nil {
		t.Fatal("startOpsServer returned nil")
	}

	for _, path := range []string{"/metrics", "/healthz", "/readyz", "/livez"} {
		resp := waitForEndpoint(t, fmt.Sprintf("http://%s%s", addr, path))
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			t.Fatalf("%s returned status %d", path, resp.StatusCode)
		}
		if len(body) == 0 {
			t.Fatalf("%s returned empty body", path)
		}
		if path == "/livez" && strings.TrimSpace(string(body)) != "ok" {
			t.Fatalf("unexpected /livez body: %q", string(body))
		}
	}
}

func TestStartOpsServer_StopsOnContextCancel(t *testing.T) {
	logger := log.WithField("test", "ops-shutdown")
	port := findFreePort(t)
	addr := fmt.Sprintf("127.0.0.1:%d", port)

	ctx, cancel := context.WithCancel(context.Background())

	healthHandler := health.NewHandler(version.String())
	startOpsServer(ctx, addr, logger, healthHandler)

	url := fmt.Sprintf("http://%s/livez", addr)
	resp := waitForEndpoint(t, url)
	resp.Body.Close()

	cancel()

	stopped := false
	for i := 0; i < 50; i++ {
		if _, err := http.Get(url); err != nil {
			stopped = true
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	if !stopped {
		t.Fatal("ops server kept serving after context cancellation")
	}
}

func TestShutdownHTTP_NilServer(_ *testing.T) {
	// Must not panic.
	shutdownHTTP(nil, log.WithField("test", "nil-server"))
}

func TestShutdownHTTP_StopsServer(t *testing.T) {
	logger := log.WithField("test", "shutdown-http")
	port := findFreePort(t)
	addr := fmt.Sprintf("127.0.0.1:%d", port)

	mux := http.NewServeMux()
	mux.HandleFunc("/ping", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() { _ = srv.ListenAndServe() }()

	url := fmt.Sprintf("http://%s/ping", addr)
	resp := waitForEndpoint(t, url)
	resp.Body.Close()

	shutdownHTTP(srv, logger)

	if _, err := http.Get(url); err == nil {
		t.Fatal("server still serving after shutdownHTTP")
	}
}
