package transport

import (
	"errors"
	"fmt"
)

// Predefined error types for robust error handling
var (
	ErrPermissionRequired = errors.New("permission required to access device")
	ErrDeviceNotFound     = errors.New("device not found or disconnected")
	ErrOpenFailed         = errors.New("failed to open device")
	ErrTimeout            = errors.New("operation timed out")
	ErrClosed             = errors.New("port is closed")
	ErrUnsupported        = errors.New("not supported on this platform")
	ErrInvalidMode        = errors.New("invalid serial mode")
)

// OpError records a failed transport operation on a named port
type OpError struct {
	Op   string // "enumerate", "open", "read", "write", "close"
	Port string
	Err  error
}

func (e *OpError) Error() string {
	if e.Port == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Port, e.Err)
}

func (e *OpError) Unwrap() error {
	return e.Err
}

// IsTimeout reports whether err is a routine timeout rather than a failure
func IsTimeout(err error) bool {
	if errors.Is(err, ErrTimeout) {
		return true
	}
	var t interface{ Timeout() bool }
	return errors.As(err, &t) && t.Timeout()
}

// IsPermissionRequired reports whether the open must be retried after the
// user grants access to the device.
func IsPermissionRequired(err error) bool {
	return errors.Is(err, ErrPermissionRequired)
}

// IsDeviceNotFound reports whether the device vanished or never existed
func IsDeviceNotFound(err error) bool {
	return errors.Is(err, ErrDeviceNotFound)
}
