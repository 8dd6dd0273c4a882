package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/allbin/serialterm/internal/transcript"
	"github.com/allbin/serialterm/internal/transport"
	"github.com/rs/zerolog/log"
)

// ErrNoDriver is returned by New when no transport driver is supplied
var ErrNoDriver = errors.New("session requires a transport driver")

// MsgPermissionRequested is recorded when the driver is waiting on a
// device permission grant.
const MsgPermissionRequested = "Requested USB permission. Please accept the prompt and connect again."

const readBufferSize = 4096

// State is a snapshot of the session for observers
type State struct {
	Connected bool   `json:"connected"`
	Port      string `json:"port,omitempty"`
	Driver    string `json:"driver"`
	Records   int    `json:"records"`
}

// conn is one open connection and its receive loop
type conn struct {
	handle transport.Handle
	port   string
	cancel context.CancelFunc
	done   chan struct{}
}

// Session is the serial session engine
type Session struct {
	driver   transport.Driver
	mode     transport.Mode
	timeouts transport.Timeouts
	log      *transcript.Log

	mu         sync.Mutex
	conn       *conn
	port       string
	connected  bool
	connecting bool
	closed     bool

	// writeMu serializes writes and guards the handle against Close
	writeMu sync.Mutex
}

// New creates a disconnected session that owns driver
func New(driver transport.Driver, opts ...Option) (*Session, error) {
	if driver == nil {
		return nil, ErrNoDriver
	}

	o := options{timeouts: transport.DefaultTimeouts()}
	for _, opt := range opts {
		if err := opt(&o); err != nil {
			return nil, err
		}
	}

	return &Session{
		driver:   driver,
		mode:     transport.DefaultMode(),
		timeouts: o.timeouts,
		log:      transcript.NewLog(o.clock),
	}, nil
}

// Transcript returns the read-only transcript view
func (s *Session) Transcript() transcript.Reader {
	return s.log
}

func (s *Session) DriverName() string {
	return s.driver.Name()
}

// Mode returns the framing every connection is opened with
func (s *Session) Mode() transport.Mode {
	return s.mode
}

// IsConnected reports the connection state
func (s *Session) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

// Port returns the connected port, or "" when disconnected
func (s *Session) Port() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.port
}

// State returns a consistent snapshot of the session
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return State{
		Connected: s.connected,
		Port:      s.port,
		Driver:    s.driver.Name(),
		Records:   s.log.Len(),
	}
}

func (s *Session) system(format string, args ...any) {
	s.log.Append(transcript.System, fmt.Sprintf(format, args...))
}

// ListAvailablePorts enumerates ports through the driver. Failures are
// recorded and yield an empty list.
func (s *Session) ListAvailablePorts() []string {
	ports, err := s.driver.Enumerate()
	if err != nil {
		log.Error().Err(err).Str("driver", s.driver.Name()).Msg("Port enumeration failed")
		s.system("Error fetching ports: %v", err)
		return []string{}
	}
	if ports == nil {
		return []string{}
	}
	return ports
}

// DescribePorts is ListAvailablePorts with port details when the driver
// can supply them.
func (s *Session) DescribePorts() []transport.PortInfo {
	d, ok := s.driver.(transport.Describer)
	if !ok {
		names := s.ListAvailablePorts()
		infos := make([]transport.PortInfo, len(names))
		for i, name := range names {
			infos[i] = transport.NewPortInfo(name)
		}
		return infos
	}

	infos, err := d.Describe()
	if err != nil {
		log.Error().Err(err).Str("driver", s.driver.Name()).Msg("Port enumeration failed")
		s.system("Error fetching ports: %v", err)
		return []transport.PortInfo{}
	}
	if infos == nil {
		return []transport.PortInfo{}
	}
	return infos
}

// Connect opens port and starts the receive loop. It does nothing when
// already connected or while another Connect is opening a port.
func (s *Session) Connect(port string) {
	s.mu.Lock()
	if s.connected || s.connecting || s.closed {
		s.mu.Unlock()
		return
	}
	s.connecting = true
	s.mu.Unlock()

	handle, err := s.driver.Open(port, s.mode)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.connecting = false

	if err != nil {
		if transport.IsPermissionRequired(err) {
			log.Info().Str("port", port).Msg("Waiting for device permission")
			s.log.Append(transcript.System, MsgPermissionRequested)
			return
		}
		log.Error().Err(err).Str("port", port).Msg("Connect failed")
		s.system("Failed to connect: %v", err)
		return
	}

	if s.closed {
		_ = handle.Close()
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &conn{
		handle: handle,
		port:   port,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	s.conn = c
	s.port = port
	s.connected = true

	log.Info().Str("port", port).Str("driver", s.driver.Name()).Msg("Connected")
	s.system("Connected to %s at %d baud.", port, s.mode.BaudRate)

	go s.receive(ctx, c)
}

// Disconnect stops the receive loop and closes the port. It does nothing
// when disconnected.
func (s *Session) Disconnect() {
	s.mu.Lock()
	c := s.conn
	s.mu.Unlock()

	if c == nil {
		return
	}
	s.teardown(c, false)
}

// teardown closes c exactly once. fromLoop is set when the receive loop
// itself is tearing down and must not wait for its own exit. The session
// reports connected on c.port until the handle is closed.
func (s *Session) teardown(c *conn, fromLoop bool) {
	s.mu.Lock()
	if s.conn != c {
		s.mu.Unlock()
		return
	}
	s.conn = nil
	s.mu.Unlock()

	c.cancel()
	if !fromLoop {
		<-c.done
	}

	s.writeMu.Lock()
	err := c.handle.Close()
	s.writeMu.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.connected = false
	s.port = ""

	if err != nil {
		log.Error().Err(err).Str("port", c.port).Msg("Close failed")
		s.system("Error disconnecting: %v", err)
		return
	}
	log.Info().Str("port", c.port).Msg("Disconnected")
	s.log.Append(transcript.System, "Disconnected.")
}

// Frame returns the bytes transmitted for command: CRLF is appended unless
// the command already ends in CR or LF.
func Frame(command string) []byte {
	if strings.HasSuffix(command, "\r") || strings.HasSuffix(command, "\n") {
		return []byte(command)
	}
	return []byte(command + "\r\n")
}

// Send records command and writes it to the port. It does nothing when
// disconnected. Write failures are recorded and leave the session connected.
func (s *Session) Send(command string) {
	s.mu.Lock()
	c := s.conn
	s.mu.Unlock()

	if c == nil {
		return
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	// The connection may have been torn down while waiting for the writer
	s.mu.Lock()
	current := s.conn == c
	s.mu.Unlock()
	if !current {
		return
	}

	s.log.Append(transcript.Outbound, command)

	if _, err := c.handle.Write(Frame(command), s.timeouts.Write); err != nil {
		log.Error().Err(err).Str("port", c.port).Msg("Send failed")
		s.system("Failed to send: %v", err)
	}
}

// receive reads from c until ctx is cancelled or a read fails
func (s *Session) receive(ctx context.Context, c *conn) {
	defer close(c.done)

	buf := make([]byte, readBufferSize)
	for {
		if ctx.Err() != nil {
			return
		}

		n, err := c.handle.Read(buf, s.timeouts.Read)

		if ctx.Err() != nil {
			return
		}

		if n > 0 {
			s.log.Append(transcript.Inbound, transcript.Decode(buf[:n]))
		}

		if err != nil {
			if transport.IsTimeout(err) {
				continue
			}
			log.Error().Err(err).Str("port", c.port).Msg("Read failed")
			s.system("Read error: %v", err)
			s.teardown(c, true)
			return
		}

		if n == 0 && s.timeouts.Idle > 0 {
			timer := time.NewTimer(s.timeouts.Idle)
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
			}
		}
	}
}

// Close disconnects and closes every transcript subscription. The session
// cannot be reconnected afterwards.
func (s *Session) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	s.Disconnect()
	s.log.Close()
}
