package server

import (
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/dd0wney/nodewire/pkg/metrics"
)

func startTestServer(t *testing.T, status StatusFunc) (string, *TelemetryServer) {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	ln.Close()

	reg := metrics.NewRegistry()
	reg.ConnectsTotal.Inc()

	ts := NewTelemetryServer(addr, reg, status, nil)
	go func() {
		if err := ts.Start(); err != nil {
			t.Logf("server stopped: %v", err)
		}
	}()
	t.Cleanup(func() { ts.Shutdown(time.Second) })

	// Wait for the listener to come up.
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		conn, err := net.Dial("tcp", addr)
		if err == nil {
			conn.Close()
			return "http://" + addr, ts
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("telemetry server never came up")
	return "", nil
}

func TestTelemetryMetricsEndpoint(t *testing.T) {
	base, _ := startTestServer(t, nil)

	resp, err := http.Get(base + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if !strings.Contains(string(body), "nodewire_connection_opens_total") {
		t.Errorf("metrics exposition missing connection counter:\n%s", body)
	}
}

func TestTelemetryStatusEndpoint(t *testing.T) {
	base, _ := startTestServer(t, func() any {
		return map[string]string{"connection": "open", "run": "idle"}
	})

	resp, err := http.Get(base + "/status")
	if err != nil {
		t.Fatalf("GET /status: %v", err)
	}
	defer resp.Body.Close()

	var payload map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if payload["connection"] != "open" {
		t.Errorf("status payload = %v", payload)
	}
}

func TestTelemetryShutdownIdempotent(t *testing.T) {
	_, ts := startTestServer(t, nil)

	if err := ts.Shutdown(time.Second); err != nil {
		t.Fatalf("first Shutdown: %v", err)
	}
	if err := ts.Shutdown(time.Second); err != nil {
		t.Fatalf("second Shutdown: %v", err)
	}

	select {
	case <-ts.ShutdownChannel():
	default:
		t.Error("ShutdownChannel still open after Shutdown")
	}
}
