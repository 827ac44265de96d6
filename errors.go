package sessions

import "errors"

var (
	// ErrNotFound is returned when an operation references a path with no
	// open session.
	ErrNotFound = errors.New("sessions: port not found")

	// ErrNotOpen is returned by Close when the path is not open.
	ErrNotOpen = errors.New("sessions: port is not open")

	// ErrAlreadyOpen is returned by Open when the path is already open.
	ErrAlreadyOpen = errors.New("sessions: port is already open")

	// ErrManagerClosed is returned once Shutdown has been called.
	ErrManagerClosed = errors.New("sessions: manager is closed")

	// ErrInvalidBuffer is returned for nil or empty write payloads.
	ErrInvalidBuffer = errors.New("sessions: invalid buffer")

	// ErrBufferTooLarge is returned when a write payload or requested read
	// size exceeds the configured maximum.
	ErrBufferTooLarge = errors.New("sessions: buffer exceeds configured maximum")

	// ErrBusClosed is returned by Bus.Publish after the bus is closed.
	ErrBusClosed = errors.New("sessions: event bus is closed")
)

var (
	// errReadCancelled is the cancellation cause recorded when a read loop
	// is stopped explicitly (CancelRead, ForceClose, CloseAll).
	errReadCancelled = errors.New("sessions: read loop cancelled")

	// errSessionDetached is the cancellation cause recorded when the
	// session is destroyed without an explicit cancel (Close). It is the
	// counterpart of a signal channel disconnecting without a signal.
	errSessionDetached = errors.New("sessions: session detached")
)
