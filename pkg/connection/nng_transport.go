//go:build nng
// +build nng

package connection

import (
	"context"
	"fmt"
	"time"

	"go.nanomsg.org/mangos/v3"
	"go.nanomsg.org/mangos/v3/protocol/pair"

	// Register all transports
	_ "go.nanomsg.org/mangos/v3/transport/all"
)

// NNGDialer dials a mangos pair socket (tcp://, ipc://, inproc://
// endpoints). The dial context's deadline maps onto the socket's send
// deadline; mangos performs the first dial attempt synchronously.
type NNGDialer struct {
	// RecvTimeout bounds each Recv; zero blocks indefinitely.
	RecvTimeout time.Duration
}

func (d *NNGDialer) Dial(ctx context.Context, endpoint string) (Conn, error) {
	sock, err := pair.NewSocket()
	if err != nil {
		return nil, fmt.Errorf("pair socket: %w", err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = sock.SetOption(mangos.OptionSendDeadline, time.Until(deadline))
	}
	if d.RecvTimeout > 0 {
		if err := sock.SetOption(mangos.OptionRecvDeadline, d.RecvTimeout); err != nil {
			sock.Close()
			return nil, fmt.Errorf("set recv deadline: %w", err)
		}
	}
	if err := sock.Dial(endpoint); err != nil {
		sock.Close()
		return nil, fmt.Errorf("nng dial %s: %w", endpoint, err)
	}
	return &nngConn{sock: sock}, nil
}

// nngConn wraps a mangos pair socket.
type nngConn struct {
	sock mangos.Socket
}

func (c *nngConn) Send(data []byte) error {
	return c.sock.Send(data)
}

func (c *nngConn) Recv() ([]byte, error) {
	return c.sock.Recv()
}

func (c *nngConn) Close() error {
	return c.sock.Close()
}

var _ Dialer = (*NNGDialer)(nil)
