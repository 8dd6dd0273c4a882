// Package native implements the desktop transport driver on top of the
// operating system's serial port API.
package native

import (
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/allbin/serialterm/internal/transport"
	"github.com/rs/zerolog/log"
	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"
)

// Name is the registry name of this driver
const Name = "native"

// portHandle is the subset of serial.Port the driver relies on
type portHandle interface {
	SetReadTimeout(timeout time.Duration) error
	SetDTR(dtr bool) error
	SetRTS(rts bool) error
	ResetInputBuffer() error
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	Close() error
}

// allow tests to override external dependencies
var (
	openPort = func(name string, mode *serial.Mode) (portHandle, error) {
		return serial.Open(name, mode)
	}
	listPorts    = serial.GetPortsList
	listDetailed = enumerator.GetDetailedPortsList
)

// Driver opens ports through go.bug.st/serial
type Driver struct {
	config Config
}

// Ensure Driver implements the transport interfaces at compile time
var (
	_ transport.Driver    = (*Driver)(nil)
	_ transport.Describer = (*Driver)(nil)
	_ transport.Handle    = (*handle)(nil)
)

// New creates a native driver with the given options
func New(opts ...Option) (*Driver, error) {
	config := DefaultConfig()
	for _, opt := range opts {
		if err := opt(&config); err != nil {
			return nil, err
		}
	}
	return &Driver{config: config}, nil
}

func (d *Driver) Name() string {
	return Name
}

// Enumerate returns the sorted list of serial ports known to the OS
func (d *Driver) Enumerate() ([]string, error) {
	ports, err := listPorts()
	if err != nil {
		return nil, &transport.OpError{Op: "enumerate", Err: err}
	}

	filtered := make([]string, 0, len(ports))
	for _, p := range ports {
		if d.config.IncludeNames != nil && !d.config.IncludeNames(p) {
			continue
		}
		filtered = append(filtered, p)
	}
	sort.Strings(filtered)
	return filtered, nil
}

// Describe returns enumerated ports enriched with USB metadata
func (d *Driver) Describe() ([]transport.PortInfo, error) {
	details, err := listDetailed()
	if err != nil {
		return nil, &transport.OpError{Op: "enumerate", Err: err}
	}

	infos := make([]transport.PortInfo, 0, len(details))
	for _, det := range details {
		if det == nil {
			continue
		}
		if d.config.IncludeNames != nil && !d.config.IncludeNames(det.Name) {
			continue
		}
		info := transport.NewPortInfo(det.Name)
		if det.IsUSB {
			info.USB = true
			info.VendorID = det.VID
			info.ProductID = det.PID
			info.SerialNumber = det.SerialNumber
			info.Product = det.Product
		}
		infos = append(infos, info)
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos, nil
}

// Open opens the named port at mode
func (d *Driver) Open(port string, mode transport.Mode) (transport.Handle, error) {
	if err := mode.Validate(); err != nil {
		return nil, &transport.OpError{Op: "open", Port: port, Err: fmt.Errorf("%w: %w", transport.ErrOpenFailed, err)}
	}

	p, err := openPort(port, toSerialMode(mode))
	if err != nil {
		return nil, &transport.OpError{Op: "open", Port: port, Err: classifyOpenError(err)}
	}

	if err := d.applyConfig(p); err != nil {
		_ = p.Close()
		return nil, &transport.OpError{Op: "open", Port: port, Err: fmt.Errorf("%w: %w", transport.ErrOpenFailed, err)}
	}

	log.Info().Str("port", port).Str("mode", mode.String()).Msg("Serial port opened")

	return &handle{port: p, name: port, readTimeout: -1}, nil
}

func (d *Driver) applyConfig(p portHandle) error {
	if d.config.InitialDTR != nil {
		if err := p.SetDTR(*d.config.InitialDTR); err != nil {
			return fmt.Errorf("set DTR: %w", err)
		}
	}
	if d.config.InitialRTS != nil {
		if err := p.SetRTS(*d.config.InitialRTS); err != nil {
			return fmt.Errorf("set RTS: %w", err)
		}
	}
	if d.config.FlushOnOpen {
		if err := p.ResetInputBuffer(); err != nil {
			// Non-fatal - some adapters do not implement input flushing
			log.Debug().Err(err).Msg("Input flush on open failed")
		}
	}
	return nil
}

func toSerialMode(mode transport.Mode) *serial.Mode {
	m := &serial.Mode{
		BaudRate: mode.BaudRate,
		DataBits: mode.DataBits,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	switch mode.Parity {
	case transport.ParityOdd:
		m.Parity = serial.OddParity
	case transport.ParityEven:
		m.Parity = serial.EvenParity
	}
	if mode.StopBits == 2 {
		m.StopBits = serial.TwoStopBits
	}
	return m
}

// portErrorCode extracts the library error code, whichever way the
// PortError was returned.
func portErrorCode(err error) (serial.PortErrorCode, bool) {
	var ptr *serial.PortError
	if errors.As(err, &ptr) && ptr != nil {
		return ptr.Code(), true
	}
	var val serial.PortError
	if errors.As(err, &val) {
		return val.Code(), true
	}
	return 0, false
}

func classifyOpenError(err error) error {
	if code, ok := portErrorCode(err); ok {
		switch code {
		case serial.PortNotFound, serial.InvalidSerialPort:
			return fmt.Errorf("%w: %w", transport.ErrDeviceNotFound, err)
		}
		return fmt.Errorf("%w: %w", transport.ErrOpenFailed, err)
	}
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %w", transport.ErrDeviceNotFound, err)
	}
	return fmt.Errorf("%w: %w", transport.ErrOpenFailed, err)
}

// handle is an open native port
type handle struct {
	mu     sync.RWMutex
	port   portHandle
	name   string
	closed bool

	readMu      sync.Mutex
	readTimeout time.Duration

	// writing is set while an OS write is in progress, including one
	// abandoned by a timed-out Write
	writing atomic.Bool
}

// Read waits up to timeout for bytes. An idle window returns (0, nil),
// which the session treats as "nothing pending" and polls again later.
func (h *handle) Read(buf []byte, timeout time.Duration) (int, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.closed {
		return 0, &transport.OpError{Op: "read", Port: h.name, Err: transport.ErrClosed}
	}

	h.readMu.Lock()
	defer h.readMu.Unlock()

	if timeout != h.readTimeout {
		if err := h.port.SetReadTimeout(timeout); err != nil {
			return 0, &transport.OpError{Op: "read", Port: h.name, Err: err}
		}
		h.readTimeout = timeout
	}

	n, err := h.port.Read(buf)
	if err != nil {
		if code, ok := portErrorCode(err); ok && code == serial.PortClosed {
			return n, &transport.OpError{Op: "read", Port: h.name, Err: fmt.Errorf("%w: %w", transport.ErrClosed, err)}
		}
		return n, &transport.OpError{Op: "read", Port: h.name, Err: err}
	}
	return n, nil
}

// Write sends data, giving up after timeout. The OS write keeps running in
// the background when the bound is hit, and later writes fail with
// ErrTimeout until it finishes so bytes never interleave on the wire.
func (h *handle) Write(data []byte, timeout time.Duration) (int, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.closed {
		return 0, &transport.OpError{Op: "write", Port: h.name, Err: transport.ErrClosed}
	}

	if !h.writing.CompareAndSwap(false, true) {
		return 0, &transport.OpError{Op: "write", Port: h.name, Err: fmt.Errorf("%w: previous write still in progress", transport.ErrTimeout)}
	}

	if timeout <= 0 {
		n, err := h.port.Write(data)
		h.writing.Store(false)
		if err != nil {
			return n, &transport.OpError{Op: "write", Port: h.name, Err: err}
		}
		return n, nil
	}

	type writeResult struct {
		n   int
		err error
	}
	resultCh := make(chan writeResult, 1)

	go func() {
		n, err := h.port.Write(data)
		h.writing.Store(false)
		resultCh <- writeResult{n: n, err: err}
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case result := <-resultCh:
		if result.err != nil {
			return result.n, &transport.OpError{Op: "write", Port: h.name, Err: result.err}
		}
		return result.n, nil
	case <-timer.C:
		return 0, &transport.OpError{Op: "write", Port: h.name, Err: transport.ErrTimeout}
	}
}

// Close closes the port; subsequent calls are no-ops
func (h *handle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil
	}
	h.closed = true

	if err := h.port.Close(); err != nil {
		return &transport.OpError{Op: "close", Port: h.name, Err: err}
	}
	log.Info().Str("port", h.name).Msg("Serial port closed")
	return nil
}
