package connection

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/dd0wney/nodewire/pkg/logging"
	"github.com/dd0wney/nodewire/pkg/metrics"
	"github.com/dd0wney/nodewire/pkg/protocol"
	"github.com/dd0wney/nodewire/pkg/pubsub"
)

// MessageHandler receives decoded inbound frames. Handlers run on the read
// goroutine, one frame at a time, in transport order.
type MessageHandler func(protocol.Message)

// StateChange is published on the event bus whenever the connection moves.
type StateChange struct {
	State   State
	Retries int
}

// Manager owns one logical duplex connection to the backend. It dials,
// reconnects with capped exponential backoff after non-manual closes, runs
// the heartbeat probe, and dispatches decoded frames to registered
// handlers. All methods are safe for concurrent use.
type Manager struct {
	config   Config
	dialer   Dialer
	logger   logging.Logger
	registry *metrics.Registry
	bus      *pubsub.PubSub

	mu            sync.Mutex
	state         State
	conn          Conn
	retries       int
	started       bool
	manualClose   bool
	dialCancel    context.CancelFunc
	heartbeatStop chan struct{}
	handlers      []MessageHandler
	lastRaw       []byte
	lastParsed    any
	hasParsed     bool
	clientID      string

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// NewManager builds a manager for the configured endpoint. The config is
// defaulted and validated here; nil collaborators fall back to no-op
// logging, the shared metrics registry, and no event publishing.
func NewManager(config Config, dialer Dialer, logger logging.Logger, registry *metrics.Registry, bus *pubsub.PubSub) (*Manager, error) {
	config.ApplyDefaults()
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if dialer == nil {
		dialer = &WSDialer{WriteTimeout: config.WriteTimeout}
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if registry == nil {
		registry = metrics.DefaultRegistry()
	}

	return &Manager{
		config:   config,
		dialer:   dialer,
		logger:   logger,
		registry: registry,
		bus:      bus,
		state:    StateIdle,
		stopCh:   make(chan struct{}),
	}, nil
}

// OnMessage registers a handler for decoded inbound frames. Handlers are
// invoked in registration order, synchronously from the read loop, so a
// slow handler delays everything behind it.
func (m *Manager) OnMessage(h MessageHandler) {
	m.mu.Lock()
	m.handlers = append(m.handlers, h)
	m.mu.Unlock()
}

// Start launches the connection loop. It returns an error when called
// twice or after Close.
func (m *Manager) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.manualClose {
		return ErrClosed
	}
	if m.started {
		return fmt.Errorf("connection manager already started")
	}
	m.started = true

	m.wg.Add(1)
	go m.run()
	return nil
}

// Close tears the manager down in one step: the manual-close flag
// suppresses all reconnection, any in-flight dial is cancelled, the
// pending backoff wait is interrupted, the heartbeat stops, and the
// transport closes. Safe to call multiple times.
func (m *Manager) Close() error {
	m.mu.Lock()
	if m.manualClose {
		m.mu.Unlock()
		return nil
	}
	m.manualClose = true
	wasOpen := m.state == StateOpen
	running := m.started
	if m.dialCancel != nil {
		m.dialCancel()
	}
	conn := m.conn
	m.conn = nil
	close(m.stopCh)
	m.mu.Unlock()

	if wasOpen {
		m.setState(StateClosing)
	}
	m.stopHeartbeat()
	if conn != nil {
		if err := conn.Close(); err != nil {
			m.logger.Debug("transport close failed", logging.Error(err))
		}
	}
	// With no loop running nobody else will settle the state.
	if !running {
		m.setState(StateClosed)
	}

	m.logger.Info("connection manager closed")
	return nil
}

// State returns the current connection state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Retries returns the current consecutive reconnect count. It resets to
// zero on every successful open.
func (m *Manager) Retries() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.retries
}

// Endpoint returns the configured backend URL.
func (m *Manager) Endpoint() string {
	return m.config.Endpoint
}

// ClientID returns the id assigned by the server's welcome frame, empty
// until one arrives.
func (m *Manager) ClientID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.clientID
}

// LatestRaw returns the most recent inbound payload as delivered by the
// transport.
func (m *Manager) LatestRaw() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastRaw
}

// LatestParsed returns the JSON projection of the latest payload. ok is
// false when the payload was not valid JSON; that is absence, not an
// error.
func (m *Manager) LatestParsed() (any, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastParsed, m.hasParsed
}

// Send encodes and writes one message. It fails synchronously when the
// connection is not Open or the transport write fails, and it never
// queues the payload.
func (m *Manager) Send(msg protocol.Message) error {
	m.mu.Lock()
	state := m.state
	conn := m.conn
	m.mu.Unlock()

	if state != StateOpen || conn == nil {
		m.registry.SendFailuresTotal.Inc()
		return fmt.Errorf("%w (state %s)", ErrNotOpen, state)
	}

	data, err := protocol.Encode(msg)
	if err != nil {
		m.registry.SendFailuresTotal.Inc()
		return err
	}
	if err := conn.Send(data); err != nil {
		m.registry.SendFailuresTotal.Inc()
		return fmt.Errorf("send %s: %w", msg.Kind(), err)
	}

	m.registry.RecordMessageSent(string(msg.Kind()))
	return nil
}

// run is the connection loop: dial, serve until the transport drops, back
// off, repeat. It is the only goroutine that moves the manager between
// states, so transitions stay ordered.
func (m *Manager) run() {
	defer m.wg.Done()

	for {
		select {
		case <-m.stopCh:
			m.setState(StateClosed)
			return
		default:
		}

		m.setState(StateConnecting)
		conn, err := m.dial()
		if err != nil {
			m.setState(StateClosed)
			if !m.waitReconnect() {
				m.setState(StateClosed)
				return
			}
			continue
		}

		select {
		case <-m.stopCh:
			conn.Close()
			m.setState(StateClosed)
			return
		default:
		}

		m.mu.Lock()
		m.conn = conn
		m.retries = 0
		m.mu.Unlock()

		m.registry.ConnectsTotal.Inc()
		m.logger.Info("connected", logging.Endpoint(m.config.Endpoint))
		m.setState(StateOpen)
		m.startHeartbeat()

		m.serve(conn)

		m.stopHeartbeat()
		m.teardown(conn)

		select {
		case <-m.stopCh:
			m.setState(StateClosed)
			return
		default:
		}

		m.setState(StateClosed)
		if !m.waitReconnect() {
			m.setState(StateClosed)
			return
		}
	}
}

// dial attempts one connection, bounded by the connect timeout and
// cancellable by Close.
func (m *Manager) dial() (Conn, error) {
	ctx, cancel := context.WithTimeout(context.Background(), m.config.ConnectTimeout)
	m.mu.Lock()
	m.dialCancel = cancel
	m.mu.Unlock()
	defer func() {
		cancel()
		m.mu.Lock()
		m.dialCancel = nil
		m.mu.Unlock()
	}()

	conn, err := m.dialer.Dial(ctx, m.config.Endpoint)
	if err != nil {
		m.logger.Warn("dial failed",
			logging.Endpoint(m.config.Endpoint),
			logging.Error(err))
		return nil, err
	}
	return conn, nil
}

// serve reads frames until the transport reports an error. A manual Close
// surfaces here as a read error on the closed transport.
func (m *Manager) serve(conn Conn) {
	for {
		data, err := conn.Recv()
		if err != nil {
			m.mu.Lock()
			manual := m.manualClose
			m.mu.Unlock()
			if !manual {
				m.logger.Warn("connection lost", logging.Error(err))
			}
			return
		}
		m.handleFrame(data)
	}
}

// teardown closes the transport if Close has not already taken it.
func (m *Manager) teardown(conn Conn) {
	m.mu.Lock()
	if m.conn == conn {
		m.conn = nil
	}
	m.mu.Unlock()
	conn.Close()
}

// waitReconnect sleeps out the backoff for the current retry number and
// reports whether the loop should dial again. False means the manager is
// done: manual close, auto-reconnect off, or retries exhausted.
func (m *Manager) waitReconnect() bool {
	m.mu.Lock()
	if m.manualClose || !m.config.AutoReconnect {
		m.mu.Unlock()
		return false
	}
	if m.config.MaxRetries > 0 && m.retries >= m.config.MaxRetries {
		m.mu.Unlock()
		m.logger.Error("reconnect retries exhausted", logging.Attempt(m.config.MaxRetries))
		return false
	}
	delay := m.config.BackoffDelay(m.retries)
	m.retries++
	attempt := m.retries
	m.mu.Unlock()

	m.registry.ReconnectAttemptsTotal.Inc()
	m.logger.Info("reconnect scheduled",
		logging.Duration("backoff", delay),
		logging.Attempt(attempt))

	select {
	case <-m.stopCh:
		return false
	case <-time.After(delay):
		return true
	}
}

// handleFrame retains the raw payload, refreshes the parsed projection,
// and dispatches the decoded message to handlers in arrival order.
func (m *Manager) handleFrame(data []byte) {
	raw := append([]byte(nil), data...)

	var parsed any
	parsedOK := json.Unmarshal(raw, &parsed) == nil

	m.mu.Lock()
	m.lastRaw = raw
	if parsedOK {
		m.lastParsed = parsed
		m.hasParsed = true
	} else {
		m.lastParsed = nil
		m.hasParsed = false
	}
	handlers := make([]MessageHandler, len(m.handlers))
	copy(handlers, m.handlers)
	m.mu.Unlock()

	if !parsedOK {
		// Raw stays inspectable via LatestRaw; nothing to route.
		m.logger.Debug("non-JSON frame retained", logging.Count(len(raw)))
		return
	}

	msg, err := protocol.Decode(raw)
	if err != nil {
		m.logger.Debug("unroutable frame", logging.Error(err))
		return
	}

	kind := string(msg.Kind())
	if _, ok := msg.(protocol.Unknown); ok {
		// Bound the metric label space; the raw kind is still in the log.
		m.logger.Debug("unknown frame kind", logging.Kind(kind))
		kind = "unknown"
	}
	m.registry.RecordMessageReceived(kind)

	if welcome, ok := msg.(protocol.Connected); ok {
		m.mu.Lock()
		m.clientID = welcome.ClientID
		m.mu.Unlock()
		m.logger.Info("server welcome",
			logging.String("client_id", welcome.ClientID))
	}

	for _, h := range handlers {
		h(msg)
	}
}

// setState records a transition and notifies consumers. Repeated settles
// into the same state are absorbed silently.
func (m *Manager) setState(s State) {
	m.mu.Lock()
	if m.state == s {
		m.mu.Unlock()
		return
	}
	m.state = s
	retries := m.retries
	m.mu.Unlock()

	m.registry.SetConnectionState(s.String())
	m.logger.Info("connection state changed", logging.State(s.String()))
	if m.bus != nil {
		m.bus.Publish(pubsub.TopicConnectionState, StateChange{State: s, Retries: retries})
	}
}
