package transport

import "time"

// Driver enumerates and opens byte-stream endpoints on one kind of
// platform transport.
type Driver interface {
	// Name identifies the driver ("native", "accessory")
	Name() string

	// Enumerate returns the names of candidate ports, fresh on every call
	Enumerate() ([]string, error)

	// Open establishes the endpoint at the given mode. It fails with
	// ErrPermissionRequired, ErrDeviceNotFound or ErrOpenFailed (wrapped).
	Open(port string, mode Mode) (Handle, error)
}

// Handle is an open endpoint. Read and Write may be called concurrently
// with each other but not with Close.
type Handle interface {
	// Read blocks for at most timeout. A timeout is reported either as
	// (0, nil) or as an error satisfying IsTimeout, depending on the driver.
	Read(buf []byte, timeout time.Duration) (int, error)

	// Write blocks for at most timeout
	Write(data []byte, timeout time.Duration) (int, error)

	// Close releases the endpoint. Calling it more than once is allowed.
	Close() error
}

// Describer is implemented by drivers that can report details about the
// ports they enumerate.
type Describer interface {
	Describe() ([]PortInfo, error)
}
