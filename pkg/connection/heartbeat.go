package connection

import (
	"time"

	"github.com/dd0wney/nodewire/pkg/logging"
	"github.com/dd0wney/nodewire/pkg/protocol"
)

// startHeartbeat launches the ping probe for the current connection.
// Idempotent: a second call while a probe is running does nothing, so two
// overlapping tickers can never exist.
func (m *Manager) startHeartbeat() {
	m.mu.Lock()
	if m.config.HeartbeatInterval <= 0 || m.heartbeatStop != nil {
		m.mu.Unlock()
		return
	}
	stop := make(chan struct{})
	m.heartbeatStop = stop
	m.mu.Unlock()

	m.wg.Add(1)
	go m.heartbeatLoop(stop)
}

// stopHeartbeat cancels the running probe, if any. Safe to call with no
// probe running.
func (m *Manager) stopHeartbeat() {
	m.mu.Lock()
	if m.heartbeatStop != nil {
		close(m.heartbeatStop)
		m.heartbeatStop = nil
	}
	m.mu.Unlock()
}

// heartbeatLoop sends the ping sentinel on every tick. The server makes no
// reply promise; a dead transport is discovered by the read loop, so send
// failures here are only logged.
func (m *Manager) heartbeatLoop(stop chan struct{}) {
	defer m.wg.Done()

	ticker := time.NewTicker(m.config.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-m.stopCh:
			return
		case <-ticker.C:
			if err := m.Send(protocol.Ping{}); err != nil {
				m.logger.Debug("heartbeat send failed", logging.Error(err))
				continue
			}
			m.registry.HeartbeatsSentTotal.Inc()
		}
	}
}
