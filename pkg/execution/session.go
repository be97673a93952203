package execution

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dd0wney/nodewire/pkg/catalog"
	"github.com/dd0wney/nodewire/pkg/graph"
	"github.com/dd0wney/nodewire/pkg/logging"
	"github.com/dd0wney/nodewire/pkg/metrics"
	"github.com/dd0wney/nodewire/pkg/protocol"
	"github.com/dd0wney/nodewire/pkg/pubsub"
)

// Status is the run state exposed to the UI.
type Status uint8

const (
	StatusIdle Status = iota
	StatusRunning
	StatusCompleted
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusRunning:
		return "running"
	case StatusCompleted:
		return "completed"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// Snapshot is one observation of the session. Counts are only meaningful
// in the states that set them: totals grow during Running from progress
// events, and a completion replaces them wholesale.
type Snapshot struct {
	Status        Status
	RunID         string
	TriggerNode   string
	Workspace     string
	CurrentNode   string
	FailedNode    string
	Error         string
	TotalNodes    int
	ExecutedNodes int
	CachedNodes   int
	DurationMS    int64
}

// Sender is the slice of the connection manager the session needs. Send
// must fail synchronously when the connection is not open.
type Sender interface {
	Send(protocol.Message) error
}

// SessionConfig holds the session's tunables.
type SessionConfig struct {
	// TriggerTypes are the node types accepted as run entry points.
	// Empty means DefaultTriggerType.
	TriggerTypes []string
}

// DefaultSessionConfig returns the standard session configuration.
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{TriggerTypes: []string{DefaultTriggerType}}
}

// Session drives one remote graph execution at a time and folds the
// inbound event stream into a Snapshot. Events for other runs, and events
// arriving outside Running, are ignored. All methods are safe for
// concurrent use.
type Session struct {
	sender     Sender
	validator  *Validator
	serializer *Serializer
	logger     logging.Logger
	registry   *metrics.Registry
	bus        *pubsub.PubSub

	mu   sync.Mutex
	snap Snapshot
}

// NewSession builds a session sending through the given sender and
// resolving routing keys through the catalog. Nil logger, registry, and
// bus fall back to no-op logging, the shared registry, and no events.
func NewSession(config SessionConfig, sender Sender, cat *catalog.Catalog, logger logging.Logger, registry *metrics.Registry, bus *pubsub.PubSub) *Session {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if registry == nil {
		registry = metrics.DefaultRegistry()
	}
	return &Session{
		sender:     sender,
		validator:  NewValidator(config.TriggerTypes...),
		serializer: NewSerializer(cat),
		logger:     logger,
		registry:   registry,
		bus:        bus,
	}
}

// Trigger validates, serializes, and sends the graph for execution. Any
// validation error moves the session to Error with the joined messages and
// makes no network call. A send failure (connection not open, transport
// write error) also lands in Error; nothing retries automatically.
// An empty triggerNode selects the first trigger-typed node in the graph.
func (s *Session) Trigger(g graph.Graph, triggerNode, workspace string) error {
	s.mu.Lock()
	if s.snap.Status == StatusRunning {
		s.mu.Unlock()
		return ErrRunInProgress
	}

	result := s.validator.Validate(g)
	if !result.OK() {
		joined := strings.Join(result.Errors, "; ")
		s.snap = Snapshot{Status: StatusError, Error: joined, TriggerNode: triggerNode, Workspace: workspace}
		snap := s.snap
		s.mu.Unlock()

		s.registry.ValidationErrorsTotal.Inc()
		s.registry.RecordRun("rejected", 0)
		s.logger.Warn("run rejected by validation",
			logging.Count(len(result.Errors)),
			logging.String("errors", joined))
		s.publish(snap)
		return fmt.Errorf("%w: %s", ErrValidation, joined)
	}
	for _, w := range result.Warnings {
		s.logger.Warn("validation warning", logging.String("warning", w))
	}

	if triggerNode == "" {
		for i := range g.Nodes {
			if s.validator.IsTriggerType(g.Nodes[i].Type) {
				triggerNode = g.Nodes[i].ID
				break
			}
		}
	}

	env := s.serializer.ExecuteRequest(g, triggerNode, workspace)
	if err := s.sender.Send(env); err != nil {
		s.snap = Snapshot{Status: StatusError, Error: err.Error(), TriggerNode: triggerNode, Workspace: workspace}
		snap := s.snap
		s.mu.Unlock()

		s.registry.RecordRun("rejected", 0)
		s.logger.Warn("run not sent", logging.Error(err))
		s.publish(snap)
		return err
	}

	s.snap = Snapshot{Status: StatusRunning, TriggerNode: triggerNode, Workspace: workspace}
	snap := s.snap
	s.mu.Unlock()

	s.logger.Info("run triggered",
		logging.NodeID(triggerNode),
		logging.Workspace(workspace),
		logging.Count(len(env.Graph.Nodes)))
	s.publish(snap)
	return nil
}

// HandleMessage folds one inbound event into the session. Kinds the
// session does not own are ignored; the connection manager routes them to
// other consumers. Safe to register directly as a connection handler.
func (s *Session) HandleMessage(msg protocol.Message) {
	switch ev := msg.(type) {
	case protocol.Progress:
		s.onProgress(ev)
	case protocol.Complete:
		s.onComplete(ev)
	case protocol.ExecutionError:
		s.onError(ev)
	}
}

// Reset returns the session to Idle. It forgets local state only: a run
// already issued keeps executing server-side and its late events are
// ignored here.
func (s *Session) Reset() {
	s.mu.Lock()
	s.snap = Snapshot{}
	snap := s.snap
	s.mu.Unlock()

	s.logger.Debug("session reset")
	s.publish(snap)
}

// Snapshot returns the current run state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap
}

// Status returns the current run status.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap.Status
}

func (s *Session) onProgress(ev protocol.Progress) {
	s.mu.Lock()
	if s.snap.Status != StatusRunning || !s.sameRun(ev.ExecutionID) {
		s.mu.Unlock()
		return
	}
	if s.snap.RunID == "" {
		s.snap.RunID = ev.ExecutionID
	}
	s.snap.CurrentNode = ev.CurrentNode
	if ev.TotalNodes > 0 {
		s.snap.TotalNodes = ev.TotalNodes
	}
	snap := s.snap
	s.mu.Unlock()

	s.logger.Debug("run progress",
		logging.RunID(snap.RunID),
		logging.NodeID(snap.CurrentNode))
	s.publish(snap)
}

func (s *Session) onComplete(ev protocol.Complete) {
	s.mu.Lock()
	if s.snap.Status != StatusRunning || !s.sameRun(ev.ExecutionID) {
		s.mu.Unlock()
		return
	}
	if ev.ExecutionID != "" {
		s.snap.RunID = ev.ExecutionID
	}
	s.snap.Status = StatusCompleted
	// Final counts are the completion event's counts, replacing anything
	// progress reported.
	s.snap.TotalNodes = ev.TotalNodes
	s.snap.ExecutedNodes = ev.ExecutedNodes
	s.snap.CachedNodes = ev.CachedNodes
	s.snap.DurationMS = ev.DurationMS
	s.snap.CurrentNode = ""
	snap := s.snap
	s.mu.Unlock()

	s.registry.RecordRun("completed", time.Duration(ev.DurationMS)*time.Millisecond)
	s.registry.RecordRunNodes(ev.ExecutedNodes, ev.CachedNodes)
	s.logger.Info("run completed",
		logging.RunID(snap.RunID),
		logging.Int("total_nodes", snap.TotalNodes),
		logging.Int("executed_nodes", snap.ExecutedNodes),
		logging.Int("cached_nodes", snap.CachedNodes),
		logging.Int64("duration_ms", snap.DurationMS))
	s.publish(snap)
}

func (s *Session) onError(ev protocol.ExecutionError) {
	s.mu.Lock()
	if s.snap.Status != StatusRunning || !s.sameRun(ev.ExecutionID) {
		s.mu.Unlock()
		return
	}
	if ev.ExecutionID != "" {
		s.snap.RunID = ev.ExecutionID
	}
	failed := ev.FailedNode
	if failed == "" {
		// The backend did not name the failure; the last node seen
		// executing is the best available answer.
		failed = s.snap.CurrentNode
	}
	s.snap.Status = StatusError
	s.snap.Error = ev.Error
	s.snap.FailedNode = failed
	s.snap.CurrentNode = ""
	snap := s.snap
	s.mu.Unlock()

	s.registry.RecordRun("failed", 0)
	s.logger.Warn("run failed",
		logging.RunID(snap.RunID),
		logging.NodeID(snap.FailedNode),
		logging.String("error", snap.Error))
	s.publish(snap)
}

// sameRun reports whether an event belongs to the current run. Empty ids
// match: the first event carrying an id adopts it for the run.
func (s *Session) sameRun(id string) bool {
	return id == "" || s.snap.RunID == "" || id == s.snap.RunID
}

func (s *Session) publish(snap Snapshot) {
	if s.bus != nil {
		s.bus.Publish(pubsub.TopicRunState, snap)
	}
}
