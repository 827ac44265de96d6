package sessions

import (
	gobug "go.bug.st/serial"
)

type BaudRate int

func (b BaudRate) Int() int {
	return int(b)
}

const (
	Baud1200   BaudRate = 1200
	Baud2400   BaudRate = 2400
	Baud4800   BaudRate = 4800
	Baud9600   BaudRate = 9600
	Baud19200  BaudRate = 19200
	Baud38400  BaudRate = 38400
	Baud57600  BaudRate = 57600
	Baud115200 BaudRate = 115200
	Baud230400 BaudRate = 230400
	Baud460800 BaudRate = 460800
	Baud921600 BaudRate = 921600
)

type DataBits int

func (d DataBits) Int() int {
	return int(d)
}

const (
	DataBits5 DataBits = 5
	DataBits6 DataBits = 6
	DataBits7 DataBits = 7
	DataBits8 DataBits = 8
)

type Parity gobug.Parity

func (pa Parity) Get() gobug.Parity {
	return gobug.Parity(pa)
}

const (
	// ParityNone represents no parity bit
	ParityNone = Parity(gobug.NoParity)
	// ParityOdd represents odd parity bit
	ParityOdd = Parity(gobug.OddParity)
	// ParityEven represents even parity bit
	ParityEven = Parity(gobug.EvenParity)
)

type StopBits gobug.StopBits

func (sb StopBits) Get() gobug.StopBits {
	return gobug.StopBits(sb)
}

const (
	// StopBits1 represents 1 stop bit
	StopBits1 = StopBits(gobug.OneStopBit)
	// StopBits2 represents 2 stop bits
	StopBits2 = StopBits(gobug.TwoStopBits)
)

// FlowControl represents the requested flow control discipline. The
// go.bug.st backend has no flow control knob in its Mode, so a non-default
// value is recorded on the session and logged but not applied to the device.
type FlowControl int

const (
	FlowControlNone FlowControl = iota
	FlowControlSoftware
	FlowControlHardware
)

func (fc FlowControl) String() string {
	switch fc {
	case FlowControlSoftware:
		return "Software"
	case FlowControlHardware:
		return "Hardware"
	default:
		return "None"
	}
}

// The option mappers below are deliberately permissive: a value outside the
// accepted set falls back to the documented default instead of failing.
// This keeps the boundary simple but masks caller typos, so the applied mode
// is logged on every Open.

func dataBitsFrom(value int) DataBits {
	switch value {
	case 5:
		return DataBits5
	case 6:
		return DataBits6
	case 7:
		return DataBits7
	case 8:
		return DataBits8
	default:
		return DataBits8
	}
}

func flowControlFrom(value string) FlowControl {
	switch value {
	case "Software":
		return FlowControlSoftware
	case "Hardware":
		return FlowControlHardware
	default:
		return FlowControlNone
	}
}

func parityFrom(value string) Parity {
	switch value {
	case "Odd":
		return ParityOdd
	case "Even":
		return ParityEven
	default:
		return ParityNone
	}
}

func stopBitsFrom(value int) StopBits {
	switch value {
	case 1:
		return StopBits1
	case 2:
		return StopBits2
	default:
		return StopBits2
	}
}
