package connection

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/dd0wney/nodewire/pkg/metrics"
	"github.com/dd0wney/nodewire/pkg/protocol"
	"github.com/dd0wney/nodewire/pkg/pubsub"
)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Endpoint = "ws://127.0.0.1:9001/ws"
	cfg.HeartbeatInterval = 0
	cfg.BackoffBase = 10 * time.Millisecond
	cfg.BackoffCap = 40 * time.Millisecond
	cfg.ConnectTimeout = time.Second
	return cfg
}

func newTestManager(t *testing.T, cfg Config, dialer Dialer, bus *pubsub.PubSub) *Manager {
	t.Helper()
	m, err := NewManager(cfg, dialer, nil, metrics.NewRegistry(), bus)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	t.Cleanup(func() { m.Close() })
	return m
}

func TestManagerConnectAndWelcome(t *testing.T) {
	dialer := newMemDialer(dialOK())
	m := newTestManager(t, testConfig(), dialer, nil)

	if err := m.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	conn := dialer.awaitConn(t)
	waitFor(t, time.Second, "open state", func() bool { return m.State() == StateOpen })

	conn.inject(`{"type":"connected","client_id":"client-7","message":"welcome"}`)
	waitFor(t, time.Second, "client id", func() bool { return m.ClientID() == "client-7" })

	if m.Retries() != 0 {
		t.Errorf("Retries() = %d after clean connect, want 0", m.Retries())
	}
}

func TestManagerStartTwice(t *testing.T) {
	m := newTestManager(t, testConfig(), newMemDialer(dialOK()), nil)

	if err := m.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := m.Start(); err == nil {
		t.Error("second Start should fail")
	}
}

func TestManagerSendRequiresOpen(t *testing.T) {
	dialer := newMemDialer()
	m := newTestManager(t, testConfig(), dialer, nil)

	// Never started: Idle.
	err := m.Send(protocol.Ping{})
	if !errors.Is(err, ErrNotOpen) {
		t.Fatalf("Send while idle = %v, want ErrNotOpen", err)
	}
	if m.State() != StateIdle {
		t.Errorf("State() = %v after failed send, want Idle", m.State())
	}
	if dialer.dialCount() != 0 {
		t.Errorf("failed send triggered %d dials, want 0", dialer.dialCount())
	}

	m.Close()
	if err := m.Send(protocol.Ping{}); !errors.Is(err, ErrNotOpen) {
		t.Fatalf("Send after close = %v, want ErrNotOpen", err)
	}
	if m.State() != StateClosed {
		t.Errorf("State() = %v after close, want Closed", m.State())
	}
}

func TestManagerSendWritesFrame(t *testing.T) {
	dialer := newMemDialer(dialOK())
	m := newTestManager(t, testConfig(), dialer, nil)

	if err := m.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	conn := dialer.awaitConn(t)
	waitFor(t, time.Second, "open state", func() bool { return m.State() == StateOpen })

	if err := m.Send(protocol.Ping{}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if frame := conn.nextFrame(t); frame != `{"type":"ping"}` {
		t.Errorf("frame = %s, want ping sentinel", frame)
	}
}

func TestManagerReconnectsAfterDrop(t *testing.T) {
	dialer := newMemDialer(dialOK(), dialOK())
	m := newTestManager(t, testConfig(), dialer, nil)

	if err := m.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	first := dialer.awaitConn(t)
	waitFor(t, time.Second, "first open", func() bool { return m.State() == StateOpen })

	// Server-side drop: the read loop sees an error and reconnects.
	first.Close()

	second := dialer.awaitConn(t)
	waitFor(t, time.Second, "reopen", func() bool { return m.State() == StateOpen })

	if second == first {
		t.Fatal("reconnect did not establish a fresh connection")
	}
	if got := dialer.dialCount(); got != 2 {
		t.Errorf("dialCount = %d, want 2", got)
	}
	if m.Retries() != 0 {
		t.Errorf("Retries() = %d after successful reopen, want 0", m.Retries())
	}
}

func TestManagerRetriesThenGivesUp(t *testing.T) {
	dialer := newMemDialer(dialErr(), dialErr(), dialErr(), dialErr())
	cfg := testConfig()
	cfg.MaxRetries = 2
	m := newTestManager(t, cfg, dialer, nil)

	if err := m.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	// Initial dial plus two retries, then the loop gives up.
	waitFor(t, 2*time.Second, "retries exhausted", func() bool {
		return dialer.dialCount() == 3 && m.State() == StateClosed
	})
	time.Sleep(60 * time.Millisecond)
	if got := dialer.dialCount(); got != 3 {
		t.Errorf("dialCount = %d after giving up, want 3", got)
	}
	if m.Retries() != 2 {
		t.Errorf("Retries() = %d, want 2", m.Retries())
	}
}

func TestManagerCloseSuppressesReconnect(t *testing.T) {
	dialer := newMemDialer(dialOK(), dialOK())
	m := newTestManager(t, testConfig(), dialer, nil)

	if err := m.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	dialer.awaitConn(t)
	waitFor(t, time.Second, "open state", func() bool { return m.State() == StateOpen })

	if err := m.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	waitFor(t, time.Second, "closed state", func() bool { return m.State() == StateClosed })

	// The transport close event must not schedule a new dial.
	time.Sleep(60 * time.Millisecond)
	if got := dialer.dialCount(); got != 1 {
		t.Errorf("dialCount = %d after manual close, want 1", got)
	}

	if err := m.Close(); err != nil {
		t.Errorf("second Close = %v, want nil", err)
	}
	if err := m.Start(); !errors.Is(err, ErrClosed) {
		t.Errorf("Start after Close = %v, want ErrClosed", err)
	}
}

func TestManagerCloseDuringBackoff(t *testing.T) {
	dialer := newMemDialer(dialErr())
	cfg := testConfig()
	cfg.BackoffBase = 2 * time.Second
	cfg.BackoffCap = 4 * time.Second
	m := newTestManager(t, cfg, dialer, nil)

	if err := m.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	waitFor(t, time.Second, "first dial", func() bool { return dialer.dialCount() == 1 })

	// Close must interrupt the pending backoff wait, well before the 2s
	// delay elapses.
	start := time.Now()
	m.Close()
	waitFor(t, time.Second, "closed state", func() bool { return m.State() == StateClosed })
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Errorf("close took %v, backoff wait was not interrupted", elapsed)
	}
	if got := dialer.dialCount(); got != 1 {
		t.Errorf("dialCount = %d, want 1", got)
	}
}

func TestManagerDispatchOrder(t *testing.T) {
	dialer := newMemDialer(dialOK())
	m := newTestManager(t, testConfig(), dialer, nil)

	var mu sync.Mutex
	var seen []string
	for _, name := range []string{"first", "second"} {
		name := name
		m.OnMessage(func(msg protocol.Message) {
			mu.Lock()
			seen = append(seen, fmt.Sprintf("%s:%s", name, msg.Kind()))
			mu.Unlock()
		})
	}

	if err := m.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	conn := dialer.awaitConn(t)
	waitFor(t, time.Second, "open state", func() bool { return m.State() == StateOpen })

	conn.inject(`{"type":"execution_progress","execution_id":"run-1","current_node":"n1"}`)
	conn.inject(`{"type":"graph_execution_complete","execution_id":"run-1","total_nodes":3,"executed_nodes":2,"cached_nodes":1,"duration_ms":12}`)
	conn.inject(`{"type":"shutdown_warning","reason":"maintenance"}`)

	want := []string{
		"first:execution_progress", "second:execution_progress",
		"first:graph_execution_complete", "second:graph_execution_complete",
		"first:shutdown_warning", "second:shutdown_warning",
	}
	waitFor(t, time.Second, "all dispatches", func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) == len(want)
	})

	mu.Lock()
	defer mu.Unlock()
	for i := range want {
		if seen[i] != want[i] {
			t.Fatalf("dispatch[%d] = %s, want %s (full order %v)", i, seen[i], want[i], seen)
		}
	}
}

func TestManagerLatestFrameProjection(t *testing.T) {
	dialer := newMemDialer(dialOK())
	m := newTestManager(t, testConfig(), dialer, nil)

	var calls int
	var mu sync.Mutex
	m.OnMessage(func(protocol.Message) {
		mu.Lock()
		calls++
		mu.Unlock()
	})

	if err := m.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	conn := dialer.awaitConn(t)
	waitFor(t, time.Second, "open state", func() bool { return m.State() == StateOpen })

	conn.inject(`{"type":"connected","client_id":"c1","message":"hi"}`)
	waitFor(t, time.Second, "json frame", func() bool {
		_, ok := m.LatestParsed()
		return ok
	})

	parsed, ok := m.LatestParsed()
	if !ok {
		t.Fatal("LatestParsed ok = false for valid JSON")
	}
	obj, isMap := parsed.(map[string]any)
	if !isMap || obj["type"] != "connected" {
		t.Fatalf("parsed projection = %#v, want connected object", parsed)
	}

	// Non-JSON payloads stay inspectable raw but have no parsed form and
	// reach no handler.
	conn.inject(`plaintext diagnostics`)
	waitFor(t, time.Second, "raw frame retained", func() bool {
		return string(m.LatestRaw()) == "plaintext diagnostics"
	})
	if _, ok := m.LatestParsed(); ok {
		t.Error("LatestParsed ok = true for non-JSON payload")
	}

	mu.Lock()
	defer mu.Unlock()
	if calls != 1 {
		t.Errorf("handler calls = %d, want 1 (non-JSON frame must not dispatch)", calls)
	}
}

func TestManagerHeartbeat(t *testing.T) {
	dialer := newMemDialer(dialOK())
	cfg := testConfig()
	cfg.HeartbeatInterval = 15 * time.Millisecond
	m := newTestManager(t, cfg, dialer, nil)

	if err := m.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	conn := dialer.awaitConn(t)
	waitFor(t, time.Second, "open state", func() bool { return m.State() == StateOpen })

	for i := 0; i < 2; i++ {
		if frame := conn.nextFrame(t); frame != `{"type":"ping"}` {
			t.Fatalf("heartbeat frame = %s, want ping sentinel", frame)
		}
	}
}

func TestManagerHeartbeatDisabled(t *testing.T) {
	dialer := newMemDialer(dialOK())
	m := newTestManager(t, testConfig(), dialer, nil) // interval 0

	if err := m.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	conn := dialer.awaitConn(t)
	waitFor(t, time.Second, "open state", func() bool { return m.State() == StateOpen })

	select {
	case data := <-conn.outbound:
		t.Fatalf("unexpected frame %s with heartbeat disabled", data)
	case <-time.After(60 * time.Millisecond):
	}
}

func TestHeartbeatStartIdempotent(t *testing.T) {
	cfg := testConfig()
	cfg.HeartbeatInterval = 10 * time.Millisecond
	m := newTestManager(t, cfg, newMemDialer(), nil)

	m.startHeartbeat()
	m.mu.Lock()
	first := m.heartbeatStop
	m.mu.Unlock()
	if first == nil {
		t.Fatal("startHeartbeat did not install a probe")
	}

	m.startHeartbeat()
	m.mu.Lock()
	second := m.heartbeatStop
	m.mu.Unlock()
	if first != second {
		t.Error("second startHeartbeat replaced the running probe")
	}

	m.stopHeartbeat()
	m.mu.Lock()
	stopped := m.heartbeatStop == nil
	m.mu.Unlock()
	if !stopped {
		t.Error("stopHeartbeat left the probe handle in place")
	}
	m.stopHeartbeat() // second stop is a no-op
}

func TestManagerPublishesStateEvents(t *testing.T) {
	bus := pubsub.NewPubSub()
	defer bus.Shutdown()

	sub, err := bus.Subscribe(context.Background(), pubsub.TopicConnectionState)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer sub.Unsubscribe()

	dialer := newMemDialer(dialOK())
	m := newTestManager(t, testConfig(), dialer, bus)
	if err := m.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	dialer.awaitConn(t)

	var states []State
	for len(states) < 2 {
		select {
		case msg := <-sub.Channel():
			change, ok := msg.(StateChange)
			if !ok {
				t.Fatalf("event type = %T, want StateChange", msg)
			}
			states = append(states, change.State)
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for state events, got %v", states)
		}
	}

	if states[0] != StateConnecting || states[1] != StateOpen {
		t.Errorf("state sequence = %v, want [connecting open]", states)
	}
}
