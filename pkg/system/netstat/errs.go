package netstat

import "errors"

var (
	// ErrNotFound indicates that no listening socket is bound to the port.
	ErrNotFound = errors.New("netstat: no listening process on port")

	// ErrNoMatch indicates that a socket-table query matched no line.
	ErrNoMatch = errors.New("netstat: no matching socket")

	// ErrParse indicates that a matched socket-table line had no usable
	// Recv-Q/Send-Q columns.
	ErrParse = errors.New("netstat: malformed socket line")
)
