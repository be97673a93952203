package connection

import "errors"

var (
	// ErrNotOpen is returned by Send when the connection is not in the
	// Open state. The payload is never queued for later delivery.
	ErrNotOpen = errors.New("connection not open")

	// ErrClosed is returned once the manager has been closed by its
	// owner. A closed manager never reconnects.
	ErrClosed = errors.New("connection manager closed")
)
