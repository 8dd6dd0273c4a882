//go:build linux

package accessory

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/allbin/serialterm/internal/transport"
	"golang.org/x/sys/unix"
)

// endpoint is a raw termios byte stream on a granted device node
type endpoint struct {
	mu     sync.RWMutex
	fd     int
	name   string
	closed bool
}

// Ensure endpoint implements transport.Handle at compile time
var _ transport.Handle = (*endpoint)(nil)

// getBaudRate converts an integer baud rate to the unix constant
func getBaudRate(rate int) (uint32, error) {
	switch rate {
	case 1200:
		return unix.B1200, nil
	case 2400:
		return unix.B2400, nil
	case 4800:
		return unix.B4800, nil
	case 9600:
		return unix.B9600, nil
	case 19200:
		return unix.B19200, nil
	case 38400:
		return unix.B38400, nil
	case 57600:
		return unix.B57600, nil
	case 115200:
		return unix.B115200, nil
	case 230400:
		return unix.B230400, nil
	case 460800:
		return unix.B460800, nil
	case 921600:
		return unix.B921600, nil
	default:
		return 0, fmt.Errorf("%w: unsupported baud rate %d", transport.ErrInvalidMode, rate)
	}
}

func openEndpoint(path string, mode transport.Mode) (*endpoint, error) {
	fd, err := unix.Open(path, unix.O_RDWR|unix.O_NOCTTY|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
	if err != nil {
		if errors.Is(err, unix.ENOENT) || errors.Is(err, unix.ENODEV) || errors.Is(err, unix.ENXIO) {
			return nil, fmt.Errorf("%w: %w", transport.ErrDeviceNotFound, err)
		}
		return nil, err
	}

	if err := configureEndpoint(fd, mode); err != nil {
		unix.Close(fd)
		return nil, err
	}

	return &endpoint{fd: fd, name: path}, nil
}

// configureEndpoint puts the line into raw mode at mode
func configureEndpoint(fd int, mode transport.Mode) error {
	termios, err := unix.IoctlGetTermios(fd, unix.TCGETS)
	if err != nil {
		return fmt.Errorf("failed to get termios: %v", err)
	}

	termios.Cflag = unix.CREAD | unix.CLOCAL
	termios.Iflag = 0 // No input processing
	termios.Oflag = 0 // No output processing
	termios.Lflag = 0 // No line processing (raw mode)

	// Reads are bounded by poll, not by VTIME
	termios.Cc[unix.VMIN] = 0
	termios.Cc[unix.VTIME] = 0

	baudRate, err := getBaudRate(mode.BaudRate)
	if err != nil {
		return err
	}
	termios.Cflag = (termios.Cflag &^ unix.CBAUD) | baudRate
	termios.Ispeed = baudRate
	termios.Ospeed = baudRate

	switch mode.DataBits {
	case 5:
		termios.Cflag |= unix.CS5
	case 6:
		termios.Cflag |= unix.CS6
	case 7:
		termios.Cflag |= unix.CS7
	default:
		termios.Cflag |= unix.CS8
	}

	if mode.StopBits == 2 {
		termios.Cflag |= unix.CSTOPB
	}

	switch mode.Parity {
	case transport.ParityOdd:
		termios.Cflag |= unix.PARENB | unix.PARODD
	case transport.ParityEven:
		termios.Cflag |= unix.PARENB
	}

	if err := unix.IoctlSetTermios(fd, unix.TCSETS, termios); err != nil {
		return fmt.Errorf("failed to set termios: %v", err)
	}
	return nil
}

// pollOnce waits up to timeout for events on the endpoint
func (e *endpoint) pollOnce(events int16, timeout time.Duration) (int16, error) {
	ms := int(timeout / time.Millisecond)
	if ms < 0 {
		ms = 0
	}
	fds := []unix.PollFd{{Fd: int32(e.fd), Events: events}}
	n, err := unix.Poll(fds, ms)
	if err != nil {
		if errors.Is(err, unix.EINTR) {
			return 0, nil
		}
		return 0, err
	}
	if n == 0 {
		return 0, nil
	}
	return fds[0].Revents, nil
}

// Read waits up to timeout for bytes; an empty window is ErrTimeout
func (e *endpoint) Read(buf []byte, timeout time.Duration) (int, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.closed {
		return 0, &transport.OpError{Op: "read", Port: e.name, Err: transport.ErrClosed}
	}

	revents, err := e.pollOnce(unix.POLLIN, timeout)
	if err != nil {
		return 0, &transport.OpError{Op: "read", Port: e.name, Err: err}
	}
	if revents == 0 {
		return 0, &transport.OpError{Op: "read", Port: e.name, Err: transport.ErrTimeout}
	}
	if revents&unix.POLLIN == 0 && revents&(unix.POLLHUP|unix.POLLERR|unix.POLLNVAL) != 0 {
		return 0, &transport.OpError{Op: "read", Port: e.name, Err: fmt.Errorf("device hung up: %w", io.ErrUnexpectedEOF)}
	}

	n, err := unix.Read(e.fd, buf)
	if err != nil {
		if errors.Is(err, unix.EAGAIN) {
			return 0, &transport.OpError{Op: "read", Port: e.name, Err: transport.ErrTimeout}
		}
		return 0, &transport.OpError{Op: "read", Port: e.name, Err: err}
	}
	if n == 0 {
		return 0, &transport.OpError{Op: "read", Port: e.name, Err: fmt.Errorf("device hung up: %w", io.ErrUnexpectedEOF)}
	}
	return n, nil
}

// Write sends all of data unless timeout elapses first
func (e *endpoint) Write(data []byte, timeout time.Duration) (int, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.closed {
		return 0, &transport.OpError{Op: "write", Port: e.name, Err: transport.ErrClosed}
	}

	deadline := time.Now().Add(timeout)
	written := 0
	for written < len(data) {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return written, &transport.OpError{Op: "write", Port: e.name, Err: transport.ErrTimeout}
		}

		revents, err := e.pollOnce(unix.POLLOUT, remaining)
		if err != nil {
			return written, &transport.OpError{Op: "write", Port: e.name, Err: err}
		}
		if revents == 0 {
			continue
		}
		if revents&(unix.POLLHUP|unix.POLLERR|unix.POLLNVAL) != 0 {
			return written, &transport.OpError{Op: "write", Port: e.name, Err: fmt.Errorf("device hung up: %w", io.ErrUnexpectedEOF)}
		}

		n, err := unix.Write(e.fd, data[written:])
		if err != nil {
			if errors.Is(err, unix.EAGAIN) {
				continue
			}
			return written, &transport.OpError{Op: "write", Port: e.name, Err: err}
		}
		written += n
	}
	return written, nil
}

// Close releases the device node; later calls are no-ops
func (e *endpoint) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil
	}
	e.closed = true

	if err := unix.Close(e.fd); err != nil {
		return &transport.OpError{Op: "close", Port: e.name, Err: err}
	}
	return nil
}
