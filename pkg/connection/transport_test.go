package connection

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// memConn is an in-memory transport session for tests. The test side
// injects inbound frames and observes what the manager sent.
type memConn struct {
	inbound   chan []byte
	outbound  chan []byte
	closed    chan struct{}
	closeOnce sync.Once
}

func newMemConn() *memConn {
	return &memConn{
		inbound:  make(chan []byte, 64),
		outbound: make(chan []byte, 64),
		closed:   make(chan struct{}),
	}
}

func (c *memConn) Send(data []byte) error {
	select {
	case <-c.closed:
		return errors.New("use of closed connection")
	case c.outbound <- append([]byte(nil), data...):
		return nil
	}
}

func (c *memConn) Recv() ([]byte, error) {
	select {
	case <-c.closed:
		return nil, errors.New("use of closed connection")
	case data := <-c.inbound:
		return data, nil
	}
}

func (c *memConn) Close() error {
	c.closeOnce.Do(func() { close(c.closed) })
	return nil
}

func (c *memConn) inject(frame string) {
	c.inbound <- []byte(frame)
}

// nextFrame pops one outbound frame or fails the test.
func (c *memConn) nextFrame(t *testing.T) string {
	t.Helper()
	select {
	case data := <-c.outbound:
		return string(data)
	case <-time.After(time.Second):
		t.Fatal("no outbound frame within 1s")
		return ""
	}
}

// memDialer plays a script of dial outcomes and announces every
// successful connection.
type memDialer struct {
	mu     sync.Mutex
	script []dialOutcome
	dials  int
	opened chan *memConn
}

type dialOutcome struct {
	conn *memConn
	err  error
}

func newMemDialer(outcomes ...dialOutcome) *memDialer {
	return &memDialer{script: outcomes, opened: make(chan *memConn, 16)}
}

func dialOK() dialOutcome  { return dialOutcome{conn: newMemConn()} }
func dialErr() dialOutcome { return dialOutcome{err: errors.New("connection refused")} }

func (d *memDialer) Dial(_ context.Context, _ string) (Conn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.dials++
	if len(d.script) == 0 {
		return nil, errors.New("dial script exhausted")
	}
	next := d.script[0]
	d.script = d.script[1:]
	if next.err != nil {
		return nil, next.err
	}
	d.opened <- next.conn
	return next.conn, nil
}

func (d *memDialer) dialCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dials
}

// awaitConn returns the next successfully dialed connection.
func (d *memDialer) awaitConn(t *testing.T) *memConn {
	t.Helper()
	select {
	case c := <-d.opened:
		return c
	case <-time.After(time.Second):
		t.Fatal("no connection established within 1s")
		return nil
	}
}

// waitFor polls a condition until it holds or the timeout expires.
func waitFor(t *testing.T, timeout time.Duration, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}
