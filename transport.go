package sessions

import (
	"time"

	gobug "go.bug.st/serial"
)

// allow tests to override external dependencies
var (
	openPort = func(name string, mode *gobug.Mode) (SerialPort, error) {
		p, err := gobug.Open(name, mode)
		if err != nil {
			return nil, err
		}
		return &bugstPort{Port: p}, nil
	}
	getPortsList = gobug.GetPortsList
)

// SerialPort abstracts the subset of go.bug.st/serial.Port used by this
// package, plus handle duplication for background read loops.
type SerialPort interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	Close() error
	SetReadTimeout(d time.Duration) error

	// Clone returns a handle to the same device that the caller may use
	// independently of the original. A read loop owns its clone so that
	// synchronous writers and the loop never share a handle object.
	Clone() (SerialPort, error)
}

// bugstPort wraps the concrete serial.Port to satisfy SerialPort.
type bugstPort struct {
	gobug.Port
}

// Clone returns a shared reference to the underlying port. go.bug.st ports
// support one concurrent reader alongside writers, and callers never share
// buffers across the two, so duplication of the OS handle is not required.
func (b *bugstPort) Clone() (SerialPort, error) {
	return b, nil
}
