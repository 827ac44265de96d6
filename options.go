package sessions

import "time"

// defaultLineTimeout bounds the blocking device read and paces the read
// loop when no explicit timeout is supplied.
const defaultLineTimeout = 200 * time.Millisecond

// OpenOptions carries the optional line parameters for Open. Zero values
// select the documented defaults, and unrecognized values fall back to them
// as well (see the mappers in mode.go).
type OpenOptions struct {
	// DataBits is 5, 6, 7 or 8. Anything else falls back to 8.
	DataBits int

	// FlowControl is "Software" or "Hardware". Anything else falls back
	// to none.
	FlowControl string

	// Parity is "Odd" or "Even". Anything else falls back to none.
	Parity string

	// StopBits is 1 or 2. Anything else falls back to 2.
	StopBits int

	// Timeout is the device-level read timeout. Values <= 0 fall back to
	// 200ms.
	Timeout time.Duration
}

func (o OpenOptions) timeout() time.Duration {
	if o.Timeout <= 0 {
		return defaultLineTimeout
	}
	return o.Timeout
}

// ReadOptions carries the optional per-call parameters for Read.
type ReadOptions struct {
	// Timeout paces the read loop between iterations and matches the
	// device read timeout in spirit. Values <= 0 use the manager default.
	Timeout time.Duration

	// Size is the maximum number of bytes per read attempt. Values <= 0
	// use the manager default.
	Size int
}
