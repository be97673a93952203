package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dd0wney/nodewire/pkg/api"
	"github.com/dd0wney/nodewire/pkg/catalog"
	"github.com/dd0wney/nodewire/pkg/connection"
	"github.com/dd0wney/nodewire/pkg/execution"
	"github.com/dd0wney/nodewire/pkg/graph"
	"github.com/dd0wney/nodewire/pkg/logging"
	"github.com/dd0wney/nodewire/pkg/metrics"
	"github.com/dd0wney/nodewire/pkg/protocol"
	"github.com/dd0wney/nodewire/pkg/pubsub"
	"github.com/dd0wney/nodewire/pkg/server"
	"github.com/dd0wney/nodewire/pkg/workspace"
)

func main() {
	configPath := flag.String("config", "", "YAML config file (flags override)")
	endpoint := flag.String("endpoint", "", "Backend websocket URL (e.g. ws://localhost:3001/ws)")
	apiURL := flag.String("api", "", "Backend HTTP base URL (e.g. http://localhost:3001)")
	nexusDir := flag.String("nexus", "", "Local workspace directory")
	wsName := flag.String("workspace", "", "Workspace to load on startup")
	trigger := flag.String("trigger", "", "Trigger node id (empty picks the first trigger node)")
	run := flag.Bool("run", false, "Execute the loaded workspace and exit when it settles")
	telemetryAddr := flag.String("telemetry", "", "Telemetry listen address (e.g. 127.0.0.1:9180)")
	logLevel := flag.String("log-level", "", "Log level: debug, info, warn, error")
	flag.Parse()

	fmt.Printf("NodeWire Client\n")
	fmt.Printf("===============\n\n")

	cfg, err := loadFileConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	applyFlag(&cfg.Endpoint, *endpoint, "ws://localhost:3001/ws")
	applyFlag(&cfg.APIURL, *apiURL, "http://localhost:3001")
	applyFlag(&cfg.NexusDir, *nexusDir, "./nexus")
	applyFlag(&cfg.TelemetryAddr, *telemetryAddr, "")
	applyFlag(&cfg.LogLevel, *logLevel, "info")

	sink := logging.NewSink(cfg.LogPath, logging.ParseLevel(cfg.LogLevel))
	if err := sink.Start(); err != nil {
		log.Fatalf("Failed to start log sink: %v", err)
	}
	defer sink.Stop()
	logger := sink.Logger("client")

	registry := metrics.NewRegistry()
	bus := pubsub.NewPubSub()
	defer bus.Shutdown()

	// HTTP side of the backend contract: health probe + catalog fetch.
	// Either may fail; the socket can still come up later.
	cat := catalog.New()
	httpClient, err := api.NewClient(cfg.APIURL, 0, sink.Logger("api"))
	if err != nil {
		log.Fatalf("Invalid API URL: %v", err)
	}
	probeBackend(httpClient, cat, logger)

	manager, err := connection.NewManager(
		cfg.connectionConfig(cfg.Endpoint),
		nil, sink.Logger("connection"), registry, bus,
	)
	if err != nil {
		log.Fatalf("Invalid connection config: %v", err)
	}

	session := execution.NewSession(
		execution.SessionConfig{TriggerTypes: cfg.TriggerTypes},
		manager, cat, sink.Logger("session"), registry, bus,
	)
	manager.OnMessage(session.HandleMessage)
	manager.OnMessage(func(msg protocol.Message) {
		push, ok := msg.(protocol.NodeRegistry)
		if !ok {
			return
		}
		if err := cat.RefreshFromRegistry(push.Raw); err != nil {
			logger.Warn("catalog push rejected", logging.Error(err))
			return
		}
		logger.Info("catalog refreshed from push", logging.Count(cat.Len()))
		bus.Publish(pubsub.TopicCatalog, cat.Len())
	})

	var telemetry *server.TelemetryServer
	if cfg.TelemetryAddr != "" {
		telemetry = server.NewTelemetryServer(cfg.TelemetryAddr, registry, func() any {
			snap := session.Snapshot()
			return map[string]any{
				"connection": manager.State().String(),
				"run":        snap.Status.String(),
				"run_id":     snap.RunID,
			}
		}, sink.Logger("telemetry"))
		go func() {
			if err := telemetry.Start(); err != nil {
				logger.Error("telemetry server failed", logging.Error(err))
			}
		}()
	}

	if err := manager.Start(); err != nil {
		log.Fatalf("Failed to start connection: %v", err)
	}

	fmt.Printf("Endpoint:  %s\n", cfg.Endpoint)
	fmt.Printf("API:       %s\n", cfg.APIURL)
	fmt.Printf("Nexus dir: %s\n\n", cfg.NexusDir)

	done := make(chan int, 1)
	if *wsName != "" {
		go func() {
			code, err := loadAndRun(cfg, *wsName, *trigger, *run, manager, session, bus, registry, logger)
			if err != nil {
				logger.Error("workspace run failed", logging.Workspace(*wsName), logging.Error(err))
			}
			if *run {
				done <- code
			}
		}()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	exitCode := 0
	select {
	case sig := <-sigCh:
		logger.Info("shutting down", logging.String("signal", sig.String()))
	case exitCode = <-done:
	}

	// One teardown step: manual-close flag, reconnect timer, heartbeat,
	// transport. Nothing may fire after this returns.
	manager.Close()
	if telemetry != nil {
		telemetry.Shutdown(5 * time.Second)
	}

	fmt.Printf("\nGoodbye.\n")
	os.Exit(exitCode)
}

// applyFlag resolves one setting: flag beats file, file beats default.
func applyFlag(target *string, flagValue, fallback string) {
	if flagValue != "" {
		*target = flagValue
	}
	if *target == "" {
		*target = fallback
	}
}

// probeBackend checks backend health and pulls the node type catalog over
// HTTP. Failures are logged and tolerated; a node_registry push can fill
// the catalog later.
func probeBackend(client *api.Client, cat *catalog.Catalog, logger logging.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	health, err := client.Health(ctx)
	if err != nil {
		logger.Warn("backend health check failed", logging.Error(err))
		return
	}
	logger.Info("backend healthy",
		logging.String("service", health.Service),
		logging.Bool("hermes_connected", health.HermesConnected))

	body, err := client.NodeRegistry(ctx)
	if err != nil {
		logger.Warn("catalog fetch failed", logging.Error(err))
		return
	}
	if err := cat.RefreshFromRegistry(body); err != nil {
		logger.Warn("catalog parse failed", logging.Error(err))
		return
	}
	logger.Info("catalog loaded", logging.Count(cat.Len()))
}

// loadAndRun loads the named workspace, reconciles its port counts, and
// (when run is set) waits for the connection to open, triggers execution,
// and watches the run to a terminal state. The exit code is 0 for a
// completed run, 1 otherwise.
func loadAndRun(cfg fileConfig, name, trigger string, run bool,
	manager *connection.Manager, session *execution.Session,
	bus *pubsub.PubSub, registry *metrics.Registry, logger logging.Logger) (int, error) {

	store, err := workspace.NewFileStore(
		workspace.FileStoreConfig{Dir: cfg.NexusDir, Compress: cfg.Compress},
		logger, registry)
	if err != nil {
		return 1, err
	}

	data, err := store.Load(name)
	if err != nil {
		return 1, err
	}

	rec := graph.NewReconciler()
	g, changes := rec.Apply(data.Graph)
	registry.RecordReconcilePass(len(g.Nodes), len(changes))
	if len(changes) > 0 {
		bus.Publish(pubsub.TopicPortLayout, changes)
	}
	logger.Info("workspace loaded",
		logging.Workspace(name),
		logging.Int("nodes", len(g.Nodes)),
		logging.Int("edges", len(g.Edges)),
		logging.Int("ports_changed", len(changes)))

	if !run {
		// Dry run: report validation findings without touching the socket.
		result := execution.NewValidator(cfg.TriggerTypes...).Validate(g)
		for _, w := range result.Warnings {
			logger.Warn("validation warning", logging.String("warning", w))
		}
		if err := result.Err(); err != nil {
			return 1, fmt.Errorf("workspace %s invalid: %w", name, err)
		}
		logger.Info("workspace valid", logging.Workspace(name))
		return 0, nil
	}

	if !waitForOpen(manager, bus, 30*time.Second) {
		return 1, fmt.Errorf("connection never opened (state %s)", manager.State())
	}

	sub, err := bus.Subscribe(context.Background(), pubsub.TopicRunState)
	if err != nil {
		return 1, err
	}
	defer sub.Unsubscribe()

	if err := session.Trigger(g, trigger, name); err != nil {
		return 1, err
	}

	for msg := range sub.Channel() {
		snap, ok := msg.(execution.Snapshot)
		if !ok {
			continue
		}
		switch snap.Status {
		case execution.StatusCompleted:
			fmt.Printf("Run %s completed: %d nodes (%d executed, %d cached) in %dms\n",
				snap.RunID, snap.TotalNodes, snap.ExecutedNodes, snap.CachedNodes, snap.DurationMS)
			return 0, nil
		case execution.StatusError:
			fmt.Printf("Run failed: %s (node %s)\n", snap.Error, snap.FailedNode)
			return 1, nil
		}
	}
	return 1, fmt.Errorf("run feed closed before the run settled")
}

// waitForOpen blocks until the manager reports Open, the timeout passes,
// or the manager settles closed with reconnection off.
func waitForOpen(manager *connection.Manager, bus *pubsub.PubSub, timeout time.Duration) bool {
	if manager.State() == connection.StateOpen {
		return true
	}

	sub, err := bus.Subscribe(context.Background(), pubsub.TopicConnectionState)
	if err != nil {
		return false
	}
	defer sub.Unsubscribe()

	// The state may have moved while subscribing.
	if manager.State() == connection.StateOpen {
		return true
	}

	deadline := time.After(timeout)
	for {
		select {
		case msg := <-sub.Channel():
			change, ok := msg.(connection.StateChange)
			if ok && change.State == connection.StateOpen {
				return true
			}
		case <-deadline:
			return false
		}
	}
}
