// Package server hosts the client runtime's local telemetry endpoint: a
// small HTTP server exposing prometheus metrics and a status snapshot for
// supervisors. It serves loopback traffic, not the editing UI.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dd0wney/nodewire/pkg/logging"
	"github.com/dd0wney/nodewire/pkg/metrics"
)

// StatusFunc supplies the /status payload on demand. The callback runs on
// request goroutines, so it must be safe for concurrent use.
type StatusFunc func() any

// TelemetryServer serves GET /metrics and GET /status with graceful
// shutdown. Shutdown is idempotent.
type TelemetryServer struct {
	server       *http.Server
	logger       logging.Logger
	shutdownCh   chan struct{}
	shutdownOnce sync.Once
}

// NewTelemetryServer builds a telemetry server on addr exposing the given
// metrics registry. status may be nil; /status then reports only liveness.
func NewTelemetryServer(addr string, registry *metrics.Registry, status StatusFunc, logger logging.Logger) *TelemetryServer {
	if registry == nil {
		registry = metrics.DefaultRegistry()
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(
		registry.GetPrometheusRegistry(),
		promhttp.HandlerOpts{},
	))
	mux.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		payload := any(map[string]string{"status": "up"})
		if status != nil {
			payload = status()
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(payload)
	})

	return &TelemetryServer{
		server: &http.Server{
			Addr:           addr,
			Handler:        mux,
			ReadTimeout:    10 * time.Second,
			WriteTimeout:   10 * time.Second,
			IdleTimeout:    60 * time.Second,
			MaxHeaderBytes: 1 << 20,
		},
		logger:     logger,
		shutdownCh: make(chan struct{}),
	}
}

// Start serves until Shutdown. It returns nil after a clean shutdown.
func (ts *TelemetryServer) Start() error {
	ts.logger.Info("telemetry server listening", logging.String("addr", ts.server.Addr))
	if err := ts.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests and stops the listener. Repeat calls
// are no-ops.
func (ts *TelemetryServer) Shutdown(timeout time.Duration) error {
	var err error
	ts.shutdownOnce.Do(func() {
		close(ts.shutdownCh)

		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		if shutdownErr := ts.server.Shutdown(ctx); shutdownErr != nil {
			err = shutdownErr
			ts.logger.Warn("telemetry shutdown incomplete", logging.Error(shutdownErr))
		} else {
			ts.logger.Info("telemetry server stopped")
		}
	})
	return err
}

// ShutdownChannel returns a channel that closes when shutdown begins.
func (ts *TelemetryServer) ShutdownChannel() <-chan struct{} {
	return ts.shutdownCh
}
