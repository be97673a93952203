package logging

import (
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
)

// Sink owns the process's log destination. The application entry point
// constructs one, starts it, hands loggers to components, and stops it on
// shutdown. Start and Stop are idempotent: a second Start does not reopen
// the destination, a second Stop does not double-close it. Records written
// while the sink is not started are dropped.
type Sink struct {
	mu      sync.Mutex
	started atomic.Bool
	path    string
	level   Level
	out     io.Writer
	file    *os.File
}

// NewSink creates a sink writing to the given file path, or to stdout when
// path is empty. The sink does nothing until Start is called.
func NewSink(path string, level Level) *Sink {
	return &Sink{
		path:  path,
		level: level,
	}
}

// Start opens the sink's destination. Calling Start on a started sink is a
// no-op returning nil.
func (s *Sink) Start() error {
	if !s.started.CompareAndSwap(false, true) {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.path == "" {
		s.out = os.Stdout
		return nil
	}

	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		s.started.Store(false)
		return fmt.Errorf("open log destination: %w", err)
	}
	s.file = f
	s.out = f
	return nil
}

// Stop closes the sink's destination. Calling Stop on a stopped sink is a
// no-op returning nil.
func (s *Sink) Stop() error {
	if !s.started.CompareAndSwap(true, false) {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.out = nil
	if s.file != nil {
		err := s.file.Close()
		s.file = nil
		if err != nil {
			return fmt.Errorf("close log destination: %w", err)
		}
	}
	return nil
}

// Started reports whether the sink is currently accepting records.
func (s *Sink) Started() bool {
	return s.started.Load()
}

// Write implements io.Writer. Writes on a stopped sink are silently dropped
// so a logger outliving its sink never errors.
func (s *Sink) Write(p []byte) (int, error) {
	if !s.started.Load() {
		return len(p), nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.out == nil {
		return len(p), nil
	}
	return s.out.Write(p)
}

// Logger returns a logger writing through the sink, tagged with the given
// component name. An empty component yields an untagged logger.
func (s *Sink) Logger(component string) Logger {
	base := NewJSONLogger(s, s.level)
	if component == "" {
		return base
	}
	return base.With(Component(component))
}
