package connection

import (
	"context"
	"io"
)

// Conn is one established transport session carrying whole frames.
type Conn interface {
	io.Closer
	Send([]byte) error
	Recv() ([]byte, error)
}

// Dialer establishes transport sessions. Implementations exist for
// websockets (default) and mangos pair sockets (nng build tag); tests use
// an in-memory pipe.
type Dialer interface {
	Dial(ctx context.Context, endpoint string) (Conn, error)
}
