//go:build linux

package accessory

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/allbin/serialterm/internal/transport"
	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
	"go.bug.st/serial/enumerator"
	"golang.org/x/sys/unix"
)

// DefaultGrantTimeout bounds how long a permission request stays pending
const DefaultGrantTimeout = 2 * time.Minute

// allow tests to override external dependencies
var (
	accessCheck = func(path string) bool {
		return unix.Access(path, unix.R_OK|unix.W_OK) == nil
	}
	listDetailed = enumerator.GetDetailedPortsList
	runCommand   = func(ctx context.Context, name string, args ...string) ([]byte, error) {
		return exec.CommandContext(ctx, name, args...).CombinedOutput()
	}
	lookPath = exec.LookPath
)

// HostManager exposes USB-serial adapters attached to a Linux host. A
// device is granted when this process can read and write its node.
type HostManager struct {
	mu      sync.Mutex
	pending map[string]chan struct{}

	grantCommand string
	grantTimeout time.Duration
}

// HostOption configures a HostManager
type HostOption func(*HostManager)

// WithGrantCommand sets a helper run to request access to a device. The
// "{device}" placeholder is replaced by the device node path.
func WithGrantCommand(command string) HostOption {
	return func(m *HostManager) {
		m.grantCommand = command
	}
}

// WithGrantTimeout bounds how long a request waits for access to appear
func WithGrantTimeout(d time.Duration) HostOption {
	return func(m *HostManager) {
		if d > 0 {
			m.grantTimeout = d
		}
	}
}

// Ensure HostManager implements Manager at compile time
var _ Manager = (*HostManager)(nil)

// NewHostManager creates the Linux host manager
func NewHostManager(opts ...HostOption) (*HostManager, error) {
	m := &HostManager{
		pending:      make(map[string]chan struct{}),
		grantTimeout: DefaultGrantTimeout,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Devices lists USB serial devices known to the OS
func (m *HostManager) Devices() ([]Device, error) {
	details, err := listDetailed()
	if err != nil {
		return nil, err
	}

	var devices []Device
	for _, d := range details {
		if d == nil || !d.IsUSB {
			continue
		}
		devices = append(devices, Device{
			Name:         d.Name,
			VendorID:     strings.ToUpper(d.VID),
			ProductID:    strings.ToUpper(d.PID),
			SerialNumber: d.SerialNumber,
			Product:      d.Product,
		})
	}
	return devices, nil
}

func (m *HostManager) HasPermission(dev Device) bool {
	return accessCheck(dev.Name)
}

// Pending reports whether a permission request for dev is in flight
func (m *HostManager) Pending(dev Device) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.pending[dev.Name]
	return ok
}

// Done returns a channel closed when the pending request for dev settles.
// A nil channel is returned when nothing is pending.
func (m *HostManager) Done(dev Device) <-chan struct{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pending[dev.Name]
}

// RequestPermission starts watching dev for access and runs the grant
// helper, if any. Repeated requests while one is pending are coalesced.
func (m *HostManager) RequestPermission(dev Device) error {
	m.mu.Lock()
	if _, ok := m.pending[dev.Name]; ok {
		m.mu.Unlock()
		return nil
	}
	done := make(chan struct{})
	m.pending[dev.Name] = done
	m.mu.Unlock()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		m.settle(dev, done)
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(dev.Name)); err != nil {
		watcher.Close()
		m.settle(dev, done)
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(dev.Name), err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), m.grantTimeout)

	go func() {
		defer cancel()
		defer m.settle(dev, done)
		defer watcher.Close()
		m.await(ctx, dev, watcher)
	}()

	if m.grantCommand != "" {
		go m.runGrant(ctx, dev)
	}
	return nil
}

func (m *HostManager) settle(dev Device, done chan struct{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pending[dev.Name] == done {
		delete(m.pending, dev.Name)
		close(done)
	}
}

// await blocks until dev becomes accessible, disappears, or ctx expires
func (m *HostManager) await(ctx context.Context, dev Device, watcher *fsnotify.Watcher) {
	// The grant may already have landed before the watch was in place
	if accessCheck(dev.Name) {
		log.Info().Str("device", dev.Name).Msg("Device permission granted")
		return
	}

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if event.Name != dev.Name {
				continue
			}
			if event.Has(fsnotify.Remove) {
				log.Warn().Str("device", dev.Name).Msg("Device removed while awaiting permission")
				return
			}
			if accessCheck(dev.Name) {
				log.Info().Str("device", dev.Name).Msg("Device permission granted")
				return
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			log.Error().Err(err).Str("device", dev.Name).Msg("Permission watcher error")
		case <-ctx.Done():
			log.Warn().Str("device", dev.Name).Dur("timeout", m.grantTimeout).Msg("Device permission request expired")
			return
		}
	}
}

func (m *HostManager) runGrant(ctx context.Context, dev Device) {
	fields := strings.Fields(m.grantCommand)
	if len(fields) == 0 {
		return
	}
	for i, f := range fields {
		fields[i] = strings.ReplaceAll(f, "{device}", dev.Name)
	}

	if _, err := lookPath(fields[0]); err != nil {
		log.Error().Err(err).Str("command", fields[0]).Msg("Grant helper not available")
		return
	}

	output, err := runCommand(ctx, fields[0], fields[1:]...)
	if err != nil && !errors.Is(ctx.Err(), context.Canceled) {
		log.Error().Err(err).Str("device", dev.Name).Str("output", strings.TrimSpace(string(output))).Msg("Grant helper failed")
		return
	}
	log.Debug().Str("device", dev.Name).Msg("Grant helper finished")
}

// OpenDevice opens a granted device node
func (m *HostManager) OpenDevice(dev Device, mode transport.Mode) (transport.Handle, error) {
	return openEndpoint(dev.Name, mode)
}
