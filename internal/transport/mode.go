package transport

import (
	"fmt"
	"time"
)

// Parity represents the parity mode
type Parity int

const (
	ParityNone Parity = iota
	ParityOdd
	ParityEven
)

func (p Parity) String() string {
	switch p {
	case ParityOdd:
		return "O"
	case ParityEven:
		return "E"
	default:
		return "N"
	}
}

// Mode holds the framing parameters a port is opened with
type Mode struct {
	BaudRate int
	DataBits int
	StopBits int
	Parity   Parity
}

// DefaultMode returns the fixed session framing: 115200 8N1
func DefaultMode() Mode {
	return Mode{
		BaudRate: 115200,
		DataBits: 8,
		StopBits: 1,
		Parity:   ParityNone,
	}
}

func (m Mode) String() string {
	return fmt.Sprintf("%d %d%s%d", m.BaudRate, m.DataBits, m.Parity, m.StopBits)
}

// Validate checks the mode against what every driver can express
func (m Mode) Validate() error {
	if m.BaudRate <= 0 {
		return ErrInvalidMode
	}
	if m.DataBits < 5 || m.DataBits > 8 {
		return ErrInvalidMode
	}
	if m.StopBits != 1 && m.StopBits != 2 {
		return ErrInvalidMode
	}
	return nil
}

// Timeouts bound the blocking operations of a handle
type Timeouts struct {
	Read  time.Duration
	Write time.Duration
	Idle  time.Duration // delay between polls when no bytes are pending
}

// DefaultTimeouts returns the recommended read window, write bound and
// idle poll delay.
func DefaultTimeouts() Timeouts {
	return Timeouts{
		Read:  200 * time.Millisecond,
		Write: 500 * time.Millisecond,
		Idle:  50 * time.Millisecond,
	}
}
